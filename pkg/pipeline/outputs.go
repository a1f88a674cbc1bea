package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/catalog"
	"github.com/Ramsey-B/clover/pkg/models"
)

// ReportStore persists reports
type ReportStore interface {
	SaveReport(ctx context.Context, report *models.Report, catalogVersion string) error
}

// ReportEmitter announces reports on the message bus
type ReportEmitter interface {
	EmitReport(ctx context.Context, report *models.Report, catalogVersion string) error
}

// GraphWriter projects reports into the contribution graph
type GraphWriter interface {
	WriteReport(ctx context.Context, report *models.Report, companies []models.Company, participants []models.Participant) error
}

// Outputs delivers a finished report to every configured destination. Unset destinations are skipped.
type Outputs struct {
	Store  ReportStore
	Events ReportEmitter
	Graph  GraphWriter
	Logger ectologger.Logger
}

// Deliver sends the report everywhere and reports every failure, not only the first
func (o *Outputs) Deliver(ctx context.Context, report *models.Report, c *catalog.Catalog) error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Store != nil {
		if err := o.Store.SaveReport(ctx, report, c.Version); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}
	if o.Graph != nil {
		if err := o.Graph.WriteReport(ctx, report, c.Companies, c.Participants); err != nil {
			errs = append(errs, fmt.Errorf("graph: %w", err))
		}
	}
	if o.Events != nil {
		if err := o.Events.EmitReport(ctx, report, c.Version); err != nil {
			errs = append(errs, fmt.Errorf("events: %w", err))
		}
	}

	err := errors.Join(errs...)
	if err != nil && o.Logger != nil {
		o.Logger.WithContext(ctx).WithError(err).WithField("run_id", report.RunID).Error("Failed to deliver report")
	}
	return err
}
