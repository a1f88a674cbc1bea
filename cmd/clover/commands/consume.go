package commands

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/clover/pkg/cache"
	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/pipeline"
)

func consumeCmd() *cobra.Command {
	var (
		idle time.Duration
		once bool
	)

	cmd := &cobra.Command{
		Use:   "consume",
		Short: "Consume collector record batches from Kafka and compute reports",
		Long:  "Accumulates record batches from the input topic and computes a commission report once no new batch has arrived for --idle.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if !cfg.KafkaEnabled {
				return fmt.Errorf("kafka is not enabled, set KAFKA_ENABLED=true")
			}
			if idle <= 0 {
				return fmt.Errorf("--idle must be positive")
			}

			holder, err := loadHolder(ctx)
			if err != nil {
				return err
			}
			in, err := connectInfra(ctx, false)
			if err != nil {
				return err
			}
			defer in.close()

			collector := kafka.NewCollector()
			var pending atomic.Int64
			consumer := kafka.NewConsumer(kafka.ConsumerConfig{
				Brokers:       cfg.KafkaBrokers,
				Topic:         cfg.KafkaInputTopic,
				ConsumerGroup: cfg.KafkaConsumerGroup,
			}, logger, func(ctx context.Context, msg *kafka.IncomingMessage) error {
				batch, err := msg.ParseRecordBatch()
				if err != nil {
					metrics.BatchesConsumed.WithLabelValues("malformed").Inc()
					return fmt.Errorf("%w: %v", kafka.ErrDrop, err)
				}
				collector.Add(batch)
				pending.Add(1)
				metrics.BatchesConsumed.WithLabelValues(string(batch.Kind)).Inc()
				return nil
			})
			consumer.Start(ctx)
			defer consumer.Stop()

			run := &consumeRun{holder: holder, outputs: in.outputs(), reports: in.reportCache()}
			ticker := time.NewTicker(max(idle/4, 10*time.Millisecond))
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
				}

				if pending.Load() == 0 || collector.IdleFor() < idle {
					continue
				}
				pending.Store(0)

				if err := run.compute(ctx, collector.RecordSet()); err != nil {
					logger.WithContext(ctx).WithError(err).Error("Failed to compute commission report")
					continue
				}
				if once {
					return nil
				}
			}
		},
	}

	cmd.Flags().DurationVar(&idle, "idle", 30*time.Second, "compute after no batch has arrived for this long")
	cmd.Flags().BoolVar(&once, "once", false, "exit after the first report")
	return cmd
}

type consumeRun struct {
	holder  *pipeline.Holder
	outputs *pipeline.Outputs
	reports *cache.ReportCache
}

func (r *consumeRun) compute(ctx context.Context, records models.RecordSet) error {
	svc := r.holder.Service()

	var (
		report *models.Report
		cached bool
		err    error
	)
	if r.reports != nil {
		fingerprint, ferr := svc.Fingerprint(records)
		if ferr != nil {
			return ferr
		}
		report, cached, err = r.reports.GetOrCompute(ctx, fingerprint, func(ctx context.Context) (*models.Report, error) {
			return svc.ComputeTable(ctx, records)
		})
		if err == nil {
			metrics.ObserveCache(cached)
		}
	} else {
		report, err = svc.ComputeTable(ctx, records)
	}
	if err != nil {
		return err
	}
	if cached {
		logger.WithContext(ctx).WithField("fingerprint", report.Fingerprint).Info("Record set unchanged, report already delivered")
		return nil
	}
	return r.outputs.Deliver(ctx, report, svc.Catalog())
}
