package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/clover/pkg/catalog"
	"github.com/Ramsey-B/clover/pkg/pipeline"
	"github.com/Ramsey-B/clover/pkg/routes"
	"github.com/Ramsey-B/clover/pkg/routes/analysis"
	"github.com/Ramsey-B/clover/pkg/routes/health"
	"github.com/Ramsey-B/clover/pkg/routes/splits"
)

const shutdownTimeout = 15 * time.Second

func serveCmd() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the attribution HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			holder, err := loadHolder(ctx)
			if err != nil {
				return err
			}

			in, err := connectInfra(ctx, migrate && cfg.DatabaseEnabled)
			if err != nil {
				return err
			}
			defer in.close()

			checker := health.NewChecker(version)
			in.addChecks(checker)

			e := routes.NewServer(
				routes.Options{
					ServiceName:  cfg.AppName,
					MaxBodySize:  cfg.MaxBodyBytes,
					AllowOrigins: cfg.AllowOrigins,
					AllowMethods: cfg.AllowMethods,
					Tracing:      cfg.TracingEnabled,
				},
				logger,
				checker,
				splits.NewHandler(holder, in.reportCache(), in.outputs(), in.splitReader(), logger),
				analysis.NewHandler(holder),
			)

			server := &http.Server{
				Addr:           fmt.Sprintf(":%d", cfg.Port),
				Handler:        e,
				ReadTimeout:    time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second,
				WriteTimeout:   time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second,
				IdleTimeout:    time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second,
				MaxHeaderBytes: cfg.MaxHeaderBytes,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.WithField("port", cfg.Port).Infof("Starting %s on port %d", cfg.AppName, cfg.Port)
				errCh <- e.StartServer(server)
			}()
			checker.SetReady(true)

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			logger.Info("Shutting down")
			checker.SetReady(false)
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return e.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", true, "apply database migrations on startup")
	return cmd
}

// loadHolder loads the catalog and keeps the pipeline in step with it when watching is enabled
func loadHolder(ctx context.Context) (*pipeline.Holder, error) {
	store, err := catalog.NewStore(cfg.CatalogPath, logger)
	if err != nil {
		return nil, err
	}
	svc, err := pipeline.NewService(store.Current(), logger, cfg.Workers)
	if err != nil {
		return nil, err
	}

	holder := pipeline.NewHolder(svc, logger, cfg.Workers)
	if cfg.CatalogWatch {
		store.OnReload(holder.Swap)
		if err := store.Watch(ctx); err != nil {
			return nil, err
		}
	}
	return holder, nil
}
