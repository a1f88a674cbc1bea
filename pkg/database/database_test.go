package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsert(t *testing.T) {
	t.Run("should overwrite the update columns on conflict", func(t *testing.T) {
		query, args := Upsert("commission_splits",
			[]string{"company_id", "participant_key", "percentage"},
			[]string{"company_id", "participant_key"},
			[]string{"percentage"},
			[]any{"acme", "alice", 75},
			[]any{"acme", "bob", 25},
		)

		assert.Contains(t, query, "INSERT INTO commission_splits (company_id, participant_key, percentage) VALUES ($1, $2, $3), ($4, $5, $6)")
		assert.Contains(t, query, "ON CONFLICT (company_id, participant_key) DO UPDATE SET percentage = EXCLUDED.percentage")
		assert.Equal(t, []any{"acme", "alice", 75, "acme", "bob", 25}, args)
	})

	t.Run("should do nothing on conflict without update columns", func(t *testing.T) {
		query, _ := Upsert("commission_runs", []string{"id"}, []string{"id"}, nil, []any{"r1"})

		assert.Contains(t, query, "ON CONFLICT (id) DO NOTHING")
	})
}

func TestLatestVersion(t *testing.T) {
	t.Run("should return the highest up migration", func(t *testing.T) {
		dir := t.TempDir()
		for _, name := range []string{"000001_a.up.sql", "000001_a.down.sql", "000003_c.up.sql", "000002_b.up.sql", "README.md"} {
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o600))
		}

		version, err := LatestVersion(dir)
		require.NoError(t, err)
		assert.Equal(t, 3, version)
	})

	t.Run("should fail for a folder without migrations", func(t *testing.T) {
		_, err := LatestVersion(t.TempDir())

		assert.Error(t, err)
	})
}
