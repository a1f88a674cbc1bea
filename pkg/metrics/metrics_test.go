package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/Ramsey-B/clover/pkg/models"
)

func TestObserveRun(t *testing.T) {
	t.Run("should count successful runs and unmatched records", func(t *testing.T) {
		before := testutil.ToFloat64(RunsTotal.WithLabelValues("succeeded"))
		unmatchedBefore := testutil.ToFloat64(UnmatchedRecords.WithLabelValues("meeting"))

		ObserveRun(&models.Report{
			Table:     models.CommissionTable{"acme": {"alice": 100}},
			Unmatched: models.UnmatchedSummary{Meetings: 3},
		}, time.Now(), nil)

		assert.Equal(t, before+1, testutil.ToFloat64(RunsTotal.WithLabelValues("succeeded")))
		assert.Equal(t, unmatchedBefore+3, testutil.ToFloat64(UnmatchedRecords.WithLabelValues("meeting")))
	})

	t.Run("should count failed runs", func(t *testing.T) {
		before := testutil.ToFloat64(RunsTotal.WithLabelValues("failed"))

		ObserveRun(nil, time.Now(), errors.New("boom"))

		assert.Equal(t, before+1, testutil.ToFloat64(RunsTotal.WithLabelValues("failed")))
	})
}

func TestObserveCache(t *testing.T) {
	t.Run("should split hits and misses", func(t *testing.T) {
		hits := testutil.ToFloat64(CacheLookups.WithLabelValues("hit"))

		ObserveCache(true)
		ObserveCache(false)

		assert.Equal(t, hits+1, testutil.ToFloat64(CacheLookups.WithLabelValues("hit")))
	})
}
