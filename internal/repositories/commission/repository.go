// Package commission stores computed commission reports
package commission

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

var (
	splitColumns     = []string{"run_id", "company_id", "participant_key", "percentage", "share", "generated_at"}
	rationaleColumns = []string{"run_id", "company_id", "rationale"}
)

// SplitRow is one participant's stored percentage
type SplitRow struct {
	RunID          string    `db:"run_id" json:"run_id"`
	CompanyID      string    `db:"company_id" json:"company_id"`
	ParticipantKey string    `db:"participant_key" json:"participant_key"`
	Percentage     int       `db:"percentage" json:"percentage"`
	Share          float64   `db:"share" json:"share"`
	GeneratedAt    time.Time `db:"generated_at" json:"generated_at"`
}

// StoredSplit is the most recent split of a company
type StoredSplit struct {
	RunID       string                 `json:"run_id"`
	CompanyID   string                 `json:"company_id"`
	Split       models.CommissionSplit `json:"split"`
	Rationale   string                 `json:"rationale,omitempty"`
	GeneratedAt time.Time              `json:"generated_at"`
}

// Repository handles database operations for commission runs
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// New creates a new commission repository
func New(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// SaveReport stores the run, its splits and rationales in one transaction.
// Saving the same run twice overwrites the earlier rows.
func (r *Repository) SaveReport(ctx context.Context, report *models.Report, catalogVersion string) error {
	ctx, span := tracing.StartSpan(ctx, "commission.Repository.SaveReport")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"method": "SaveReport",
		"run_id": report.RunID,
	})

	unmatched, err := json.Marshal(report.Unmatched)
	if err != nil {
		log.WithError(err).Error("Failed to marshal unmatched summary")
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid report")
	}

	err = database.WithTx(ctx, r.db, func(ctx context.Context, tx database.Tx) error {
		runQuery, runArgs := runUpsert(report, catalogVersion, unmatched)
		if _, err := tx.ExecContext(ctx, runQuery, runArgs...); err != nil {
			return err
		}

		if query, args, ok := splitUpsert(report); ok {
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return err
			}
		}
		if query, args, ok := rationaleUpsert(report); ok {
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		tracing.RecordError(span, err)
		log.WithError(err).Error("Failed to save commission report")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to save commission report")
	}

	log.WithField("companies", len(report.Table)).Info("Saved commission report")
	return nil
}

// LatestSplit returns the most recent split stored for a company
func (r *Repository) LatestSplit(ctx context.Context, companyID string) (*StoredSplit, error) {
	ctx, span := tracing.StartSpan(ctx, "commission.Repository.LatestSplit")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"method":     "LatestSplit",
		"company_id": companyID,
	})

	query, args := latestSplitQuery(companyID)
	var rows []SplitRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		log.WithError(err).Error("Failed to query latest split")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to query latest split")
	}
	if len(rows) == 0 {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "no split stored for company")
	}

	stored := &StoredSplit{
		RunID:       rows[0].RunID,
		CompanyID:   companyID,
		Split:       models.CommissionSplit{},
		GeneratedAt: rows[0].GeneratedAt,
	}
	for _, row := range rows {
		stored.Split[row.ParticipantKey] = row.Percentage
	}

	err := r.db.GetContext(ctx, &stored.Rationale,
		`SELECT rationale FROM commission_rationales WHERE run_id = $1 AND company_id = $2`,
		stored.RunID, companyID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		log.WithError(err).Warn("Failed to load rationale")
	}

	return stored, nil
}

func runUpsert(report *models.Report, catalogVersion string, unmatched []byte) (string, []any) {
	return database.Upsert("commission_runs",
		[]string{"id", "fingerprint", "catalog_version", "unmatched", "generated_at"},
		[]string{"id"},
		[]string{"fingerprint", "catalog_version", "unmatched", "generated_at"},
		[]any{report.RunID, report.Fingerprint, catalogVersion, unmatched, report.GeneratedAt},
	)
}

func splitUpsert(report *models.Report) (string, []any, bool) {
	companies := make([]string, 0, len(report.Table))
	for id := range report.Table {
		companies = append(companies, id)
	}
	sort.Strings(companies)

	shares := make(map[string]map[string]float64, len(report.Results))
	for _, result := range report.Results {
		shares[result.CompanyID] = result.Shares
	}

	var rows [][]any
	for _, companyID := range companies {
		split := report.Table[companyID]
		keys := make([]string, 0, len(split))
		for key := range split {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			rows = append(rows, []any{report.RunID, companyID, key, split[key], shares[companyID][key], report.GeneratedAt})
		}
	}
	if len(rows) == 0 {
		return "", nil, false
	}

	query, args := database.Upsert("commission_splits", splitColumns,
		[]string{"run_id", "company_id", "participant_key"},
		[]string{"percentage", "share", "generated_at"},
		rows...)
	return query, args, true
}

func rationaleUpsert(report *models.Report) (string, []any, bool) {
	companies := make([]string, 0, len(report.Rationales))
	for id := range report.Rationales {
		companies = append(companies, id)
	}
	sort.Strings(companies)

	rows := make([][]any, 0, len(companies))
	for _, companyID := range companies {
		rows = append(rows, []any{report.RunID, companyID, report.Rationales[companyID]})
	}
	if len(rows) == 0 {
		return "", nil, false
	}

	query, args := database.Upsert("commission_rationales", rationaleColumns,
		[]string{"run_id", "company_id"},
		[]string{"rationale"},
		rows...)
	return query, args, true
}

func latestSplitQuery(companyID string) (string, []any) {
	latest := sqlbuilder.PostgreSQL.NewSelectBuilder()
	latest.Select("run_id").From("commission_splits").
		Where(latest.Equal("company_id", companyID)).
		OrderBy("generated_at").Desc().
		Limit(1)

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(splitColumns...).From("commission_splits").
		Where(
			sb.Equal("company_id", companyID),
			sb.In("run_id", latest),
		).
		OrderBy("participant_key")
	return sb.Build()
}
