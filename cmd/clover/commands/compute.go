package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/clover/pkg/catalog"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/pipeline"
)

func computeCmd() *cobra.Command {
	var (
		recordsPath string
		output      string
		deliver     bool
	)

	cmd := &cobra.Command{
		Use:   "compute",
		Short: "Compute the commission table for a record set",
		Long:  "Reads a JSON record set (conversations, meetings and deals) from a file or stdin and prints the commission table with rationales.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			c, err := catalog.Load(cfg.CatalogPath)
			if err != nil {
				return err
			}
			svc, err := pipeline.NewService(c, logger, cfg.Workers)
			if err != nil {
				return err
			}

			records, err := readRecords(cmd.InOrStdin(), recordsPath)
			if err != nil {
				return err
			}

			report, err := svc.ComputeTable(ctx, records)
			if err != nil {
				return err
			}

			if deliver {
				in, err := connectInfra(ctx, false)
				if err != nil {
					return err
				}
				defer in.close()
				if err := in.outputs().Deliver(ctx, report, c); err != nil {
					return err
				}
			}

			switch output {
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			case "table":
				return printReport(cmd.OutOrStdout(), report, c)
			default:
				return fmt.Errorf("unknown output format %q", output)
			}
		},
	}

	cmd.Flags().StringVarP(&recordsPath, "records", "r", "-", "record set JSON file, - for stdin")
	cmd.Flags().StringVarP(&output, "output", "o", "table", "output format: table or json")
	cmd.Flags().BoolVar(&deliver, "deliver", false, "deliver the report to the configured database, Kafka topic and graph")
	return cmd
}

func readRecords(stdin io.Reader, path string) (models.RecordSet, error) {
	var records models.RecordSet

	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return records, fmt.Errorf("failed to open records: %w", err)
		}
		defer f.Close()
		r = f
	}

	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return records, fmt.Errorf("failed to decode records: %w", err)
	}
	return records, nil
}

// printReport writes one row per company and participant, followed by the rationales
func printReport(w io.Writer, report *models.Report, c *catalog.Catalog) error {
	names := make(map[string]string, len(c.Participants))
	for _, p := range c.Participants {
		names[p.Key] = p.CanonicalName
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COMPANY\tPARTICIPANT\tSHARE")

	companies := make([]string, 0, len(report.Table))
	for id := range report.Table {
		companies = append(companies, id)
	}
	sort.Strings(companies)

	for _, id := range companies {
		split := report.Table[id]
		keys := make([]string, 0, len(split))
		for key := range split {
			keys = append(keys, key)
		}
		sort.Slice(keys, func(i, j int) bool {
			if split[keys[i]] != split[keys[j]] {
				return split[keys[i]] > split[keys[j]]
			}
			return keys[i] < keys[j]
		})
		for _, key := range keys {
			name := names[key]
			if name == "" {
				name = key
			}
			fmt.Fprintf(tw, "%s\t%s\t%d%%\n", id, name, split[key])
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, id := range companies {
		if rationale := report.Rationales[id]; rationale != "" {
			fmt.Fprintf(w, "\n%s: %s\n", id, rationale)
		}
	}

	u := report.Unmatched
	fmt.Fprintf(w, "\nunmatched: %d conversations, %d meetings, %d deals, %d malformed records\n",
		u.Conversations, u.Meetings, u.Deals, u.MalformedRecords)
	if len(u.CompaniesWithoutActivity) > 0 {
		fmt.Fprintf(w, "no activity: %v\n", u.CompaniesWithoutActivity)
	}
	return nil
}
