package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/clover/pkg/catalog"
	"github.com/Ramsey-B/clover/pkg/pipeline"
)

func validateCmd() *cobra.Command {
	var recordsPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the catalog and optionally a record set",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := catalog.Load(cfg.CatalogPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "catalog %s is valid: %d companies, %d participants, %d stages\n",
				c.Version, len(c.Companies), len(c.Participants), len(c.Stages))

			if recordsPath == "" {
				return nil
			}
			records, err := readRecords(cmd.InOrStdin(), recordsPath)
			if err != nil {
				return err
			}
			if err := pipeline.Validate(records); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "record set is valid: %d conversations, %d meetings, %d deals\n",
				len(records.Conversations), len(records.Meetings), len(records.Deals))
			return nil
		},
	}

	cmd.Flags().StringVarP(&recordsPath, "records", "r", "", "record set JSON file to validate, - for stdin")
	return cmd
}
