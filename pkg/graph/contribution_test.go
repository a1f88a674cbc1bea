package graph

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/models"
)

type fakeExecutor struct {
	statements []Statement
	err        error
}

func (f *fakeExecutor) ExecuteWrite(_ context.Context, statements []Statement) error {
	f.statements = append(f.statements, statements...)
	return f.err
}

func testReport() *models.Report {
	return &models.Report{
		RunID: "run-1",
		Table: models.CommissionTable{
			"globex": {"bob": 100},
			"acme":   {"alice": 75, "bob": 25, "carol": 0},
		},
		GeneratedAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestContributionStatements(t *testing.T) {
	companies := []models.Company{{ID: "acme", DisplayName: "Acme Corp"}, {ID: "globex", DisplayName: "Globex"}}
	participants := []models.Participant{{Key: "alice", CanonicalName: "Alice Adams"}}

	t.Run("should clear then merge edges per company in id order", func(t *testing.T) {
		statements := ContributionStatements(testReport(), companies, participants)

		require.Len(t, statements, 4)
		assert.Equal(t, clearContributions, statements[0].Cypher)
		assert.Equal(t, "acme", statements[0].Params["company_id"])
		assert.Equal(t, "Acme Corp", statements[1].Params["company_name"])
		assert.Equal(t, "globex", statements[2].Params["company_id"])
	})

	t.Run("should skip participants with no share", func(t *testing.T) {
		statements := ContributionStatements(testReport(), companies, participants)

		contributions := statements[1].Params["contributions"].([]map[string]any)
		require.Len(t, contributions, 2)
		assert.Equal(t, map[string]any{"key": "alice", "name": "Alice Adams", "percentage": int64(75)}, contributions[0])
		assert.Equal(t, "bob", contributions[1]["key"])
	})
}

func TestContributionWriter_WriteReport(t *testing.T) {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})

	t.Run("should execute all statements at once", func(t *testing.T) {
		exec := &fakeExecutor{}

		require.NoError(t, NewContributionWriter(exec, logger).WriteReport(context.Background(), testReport(), nil, nil))
		assert.Len(t, exec.statements, 4)
	})

	t.Run("should skip an empty table", func(t *testing.T) {
		exec := &fakeExecutor{}

		require.NoError(t, NewContributionWriter(exec, logger).WriteReport(context.Background(), &models.Report{}, nil, nil))
		assert.Empty(t, exec.statements)
	})

	t.Run("should return executor errors", func(t *testing.T) {
		exec := &fakeExecutor{err: errors.New("bolt down")}

		assert.Error(t, NewContributionWriter(exec, logger).WriteReport(context.Background(), testReport(), nil, nil))
	})
}
