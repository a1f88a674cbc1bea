package attribution

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Ramsey-B/clover/pkg/models"
)

func TestRoundToNearest25(t *testing.T) {
	tests := []struct {
		input    float64
		expected int
	}{
		{-5, 0},
		{0, 0},
		{12.5, 0},
		{20, 0},
		{25, 25},
		{37.5, 25},
		{40, 25},
		{62.5, 50},
		{74.99999999999, 75},
		{80, 75},
		{87.5, 75},
		{100, 100},
		{140, 100},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, RoundToNearest25(tt.input), "input %v", tt.input)
	}

	t.Run("should only produce tiers", func(t *testing.T) {
		for pct := 0.0; pct <= 100; pct += 0.5 {
			assert.Contains(t, []int{0, 25, 50, 75, 100}, RoundToNearest25(pct))
		}
	})
}

func TestScorer_Split(t *testing.T) {
	scorer := NewScorer(DefaultPolicy(), nil)

	// Floor tiers round the 20% share down to 0, so the vanished share repair is what lifts it to 25.
	t.Run("should turn 80/20 into 75/25", func(t *testing.T) {
		assert.Zero(t, RoundToNearest25(20))

		split, shares := scorer.Split(map[string]float64{"alice": 80, "bob": 20}, []string{"alice", "bob"}, nil)

		assert.Equal(t, models.CommissionSplit{"alice": 75, "bob": 25}, split)
		assert.InDelta(t, 100, shares["alice"]+shares["bob"], 1e-9)
		assert.Equal(t, 100, split.Total())
	})

	t.Run("should turn 40/35/25 into 25/25/25 without lifting anyone", func(t *testing.T) {
		split, shares := scorer.Split(map[string]float64{"alice": 40, "bob": 35, "carol": 25}, nil, nil)

		assert.Equal(t, models.CommissionSplit{"alice": 25, "bob": 25, "carol": 25}, split)
		assert.InDelta(t, 40, shares["alice"], 1e-9)
		assert.Equal(t, 75, split.Total())
	})

	t.Run("should return an empty split without activity", func(t *testing.T) {
		split, _ := scorer.Split(map[string]float64{}, nil, nil)

		assert.Empty(t, split)
		assert.NotNil(t, split)
	})

	t.Run("should split equally among active participants when every score is zero", func(t *testing.T) {
		split, shares := scorer.Split(map[string]float64{"alice": 0, "bob": 0}, []string{"alice", "bob"}, nil)

		assert.Equal(t, models.CommissionSplit{"alice": 50, "bob": 50}, split)
		assert.InDelta(t, 50, shares["bob"], 1e-9)
	})

	t.Run("should return an empty split when every score is zero and nobody was active", func(t *testing.T) {
		split, _ := scorer.Split(map[string]float64{"alice": 0}, nil, nil)

		assert.Empty(t, split)
	})

	t.Run("should take from the largest holder when lifted shares overflow", func(t *testing.T) {
		scores := map[string]float64{"a": 20, "b": 20, "c": 20, "d": 20, "e": 20}
		split, _ := scorer.Split(scores, nil, nil)

		assert.Equal(t, models.CommissionSplit{"a": 0, "b": 25, "c": 25, "d": 25, "e": 25}, split)
	})

	t.Run("should lift positive scores to the presence floor", func(t *testing.T) {
		split, shares := scorer.Split(map[string]float64{"alice": 94, "bob": 1}, nil, nil)

		assert.InDelta(t, 5.0/99.0*100, shares["bob"], 1e-9)
		assert.Equal(t, 25, split["bob"])
		assert.Equal(t, 75, split["alice"])
	})

	t.Run("should leave tiny shares at zero", func(t *testing.T) {
		split, _ := scorer.Split(map[string]float64{"alice": 97, "bob": 3}, nil, nil)

		assert.Equal(t, models.CommissionSplit{"alice": 75, "bob": 0}, split)
	})
}

func TestScorer_FounderCap(t *testing.T) {
	limit := 40.0
	policy := DefaultPolicy()
	policy.FounderCap = &limit
	scorer := NewScorer(policy, nil)

	split, shares := scorer.Split(
		map[string]float64{"founder": 80, "rep": 20},
		nil,
		map[string]bool{"founder": true},
	)

	assert.InDelta(t, 40, shares["founder"], 1e-9)
	assert.InDelta(t, 60, shares["rep"], 1e-9)
	assert.Equal(t, models.CommissionSplit{"founder": 25, "rep": 50}, split)
}

func TestScorer_WeightedScore(t *testing.T) {
	scorer := NewScorer(DefaultPolicy(), map[string]int{"discovery": 20, "contract_legal": 35})

	totals := &models.ActivityTotals{
		StageConfidence: map[string]float64{"discovery": 0.7, "contract_legal": 2.0, "unknown": 5},
		MessageCount:    12,
		CalendarMinutes: 60,
		EarlyBonus:      0.2,
		ClosedDeals:     1,
	}

	// 0.7*20 + 2*35 + 10 + 0.1*60 + 10*0.2
	assert.InDelta(t, 14+70+10+6+2, scorer.WeightedScore(totals), 1e-9)
	assert.Equal(t, 0.0, scorer.WeightedScore(nil))
}

func TestPolicy_Validate(t *testing.T) {
	assert.NoError(t, DefaultPolicy().Validate())

	bad := DefaultPolicy()
	limit := 140.0
	bad.FounderCap = &limit
	bad.EarlyWindow = 2
	err := bad.Validate()
	assert.ErrorIs(t, err, ErrInvalidPolicy)
	assert.Contains(t, err.Error(), "founder_cap")
	assert.Contains(t, err.Error(), "early_window")
}

func TestPolicy_IsClosedWon(t *testing.T) {
	policy := DefaultPolicy()

	assert.True(t, policy.IsClosedWon("Closed Won"))
	assert.True(t, policy.IsClosedWon("closed-won"))
	assert.True(t, policy.IsClosedWon("WON"))
	assert.False(t, policy.IsClosedWon("Closed Lost"))
	assert.False(t, policy.IsClosedWon(""))
}
