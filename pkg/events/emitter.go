// Package events announces finished commission runs to downstream consumers
package events

import (
	"context"
	"sort"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Publisher writes events to the message bus
type Publisher interface {
	Publish(ctx context.Context, events ...kafka.Event) error
}

// Emitter handles event emission for commission runs
type Emitter struct {
	publisher Publisher
	logger    ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(publisher Publisher, logger ectologger.Logger) *Emitter {
	return &Emitter{publisher: publisher, logger: logger}
}

// EmitReport publishes one split event per attributed company, in company id order,
// followed by a run completed event
func (e *Emitter) EmitReport(ctx context.Context, report *models.Report, catalogVersion string) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitReport")
	defer span.End()

	companies := make([]string, 0, len(report.Table))
	for id := range report.Table {
		companies = append(companies, id)
	}
	sort.Strings(companies)

	batch := make([]kafka.Event, 0, len(companies)+1)
	for _, id := range companies {
		batch = append(batch, kafka.Event{
			Key:       id,
			EventType: string(EventTypeSplitComputed),
			Payload: SplitComputedEvent{
				BaseEvent: newBase(EventTypeSplitComputed, report),
				CompanyID: id,
				Split:     report.Table[id],
				Rationale: report.Rationales[id],
			},
		})
	}
	batch = append(batch, kafka.Event{
		Key:       report.RunID,
		EventType: string(EventTypeRunCompleted),
		Payload: RunCompletedEvent{
			BaseEvent:      newBase(EventTypeRunCompleted, report),
			Fingerprint:    report.Fingerprint,
			CatalogVersion: catalogVersion,
			Companies:      len(companies),
			Unmatched:      report.Unmatched,
		},
	})

	if err := e.publisher.Publish(ctx, batch...); err != nil {
		tracing.RecordError(span, err)
		e.logger.WithContext(ctx).WithError(err).WithField("run_id", report.RunID).Error("Failed to emit commission events")
		return err
	}

	e.logger.WithContext(ctx).WithFields(map[string]any{
		"run_id": report.RunID,
		"events": len(batch),
	}).Info("Emitted commission events")
	return nil
}
