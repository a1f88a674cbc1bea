// Package commands holds the clover command line
package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/spf13/cobra"

	"github.com/Ramsey-B/clover/config"
	"github.com/Ramsey-B/clover/pkg/logging"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// version is set at build time with -ldflags "-X github.com/Ramsey-B/clover/cmd/clover/commands.version=..."
var version = "dev"

var (
	envFile     string
	catalogPath string

	cfg         *config.Config
	logger      ectologger.Logger
	flushLogs   = func() {}
	stopTracing = func(context.Context) error { return nil }
)

func Execute() error {
	root := &cobra.Command{
		Use:          "clover",
		Short:        "Cross platform commission attribution",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var envFiles []string
			if envFile != "" {
				envFiles = append(envFiles, envFile)
			}

			var err error
			if cfg, err = config.Load(envFiles...); err != nil {
				return err
			}
			if catalogPath != "" {
				cfg.CatalogPath = catalogPath
			}

			if logger, flushLogs, err = logging.New(cfg.LogLevel, cfg.PrettyLogs); err != nil {
				return err
			}

			if cfg.TracingEnabled {
				shutdown, err := tracing.Setup(cmd.Context(), tracing.Options{
					ServiceName:   cfg.AppName,
					Exporter:      cfg.TracingExporter,
					Endpoint:      cfg.TracingEndpoint,
					Insecure:      cfg.TracingInsecure,
					SamplingRatio: cfg.TracingSampling,
					Timeout:       10 * time.Second,
				}, logger)
				if err != nil {
					return err
				}
				stopTracing = shutdown
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			defer flushLogs()

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return stopTracing(ctx)
		},
	}

	root.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file to load before reading the environment (default .env)")
	root.PersistentFlags().StringVarP(&catalogPath, "catalog", "c", "", "catalog file (overrides CATALOG_PATH)")

	root.AddCommand(computeCmd(), validateCmd(), serveCmd(), consumeCmd(), migrateCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return root.ExecuteContext(ctx)
}
