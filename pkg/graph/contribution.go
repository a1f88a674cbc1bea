package graph

import (
	"context"
	"sort"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Statement is a parameterised cypher query
type Statement struct {
	Cypher string
	Params map[string]any
}

// Executor runs statements atomically
type Executor interface {
	ExecuteWrite(ctx context.Context, statements []Statement) error
}

const (
	clearContributions = `
		MATCH (:Participant)-[r:CONTRIBUTED_TO]->(:Company {id: $company_id})
		DELETE r`

	mergeContribution = `
		MERGE (c:Company {id: $company_id})
		SET c.name = $company_name
		WITH c
		UNWIND $contributions AS contribution
		MERGE (p:Participant {key: contribution.key})
		SET p.name = contribution.name
		MERGE (p)-[r:CONTRIBUTED_TO]->(c)
		SET r.percentage = contribution.percentage, r.run_id = $run_id, r.generated_at = $generated_at`
)

// ContributionWriter mirrors the latest commission table as CONTRIBUTED_TO edges
type ContributionWriter struct {
	executor Executor
	logger   ectologger.Logger
}

func NewContributionWriter(executor Executor, logger ectologger.Logger) *ContributionWriter {
	return &ContributionWriter{executor: executor, logger: logger}
}

// WriteReport replaces the edges of every company in the table with the report's split.
// Participants with a 0% share get no edge.
func (w *ContributionWriter) WriteReport(ctx context.Context, report *models.Report, companies []models.Company, participants []models.Participant) error {
	ctx, span := tracing.StartSpan(ctx, "graph.ContributionWriter.WriteReport")
	defer span.End()

	statements := ContributionStatements(report, companies, participants)
	if len(statements) == 0 {
		return nil
	}

	if err := w.executor.ExecuteWrite(ctx, statements); err != nil {
		w.logger.WithContext(ctx).WithError(err).WithField("run_id", report.RunID).Error("Failed to write contributions")
		return err
	}

	w.logger.WithContext(ctx).WithFields(map[string]any{
		"run_id":    report.RunID,
		"companies": len(report.Table),
	}).Debug("Wrote contributions to graph")
	return nil
}

// ContributionStatements builds the cypher that projects a report, ordered by company id
func ContributionStatements(report *models.Report, companies []models.Company, participants []models.Participant) []Statement {
	companyNames := make(map[string]string, len(companies))
	for _, c := range companies {
		companyNames[c.ID] = c.DisplayName
	}
	participantNames := make(map[string]string, len(participants))
	for _, p := range participants {
		participantNames[p.Key] = p.CanonicalName
	}

	ids := make([]string, 0, len(report.Table))
	for id := range report.Table {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var statements []Statement
	for _, id := range ids {
		split := report.Table[id]
		keys := make([]string, 0, len(split))
		for key, pct := range split {
			if pct > 0 {
				keys = append(keys, key)
			}
		}
		sort.Strings(keys)

		contributions := make([]map[string]any, 0, len(keys))
		for _, key := range keys {
			contributions = append(contributions, map[string]any{
				"key":        key,
				"name":       participantNames[key],
				"percentage": int64(split[key]),
			})
		}

		statements = append(statements,
			Statement{Cypher: clearContributions, Params: map[string]any{"company_id": id}},
			Statement{Cypher: mergeContribution, Params: map[string]any{
				"company_id":    id,
				"company_name":  companyNames[id],
				"run_id":        report.RunID,
				"generated_at":  report.GeneratedAt,
				"contributions": contributions,
			}},
		)
	}
	return statements
}
