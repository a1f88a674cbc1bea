package matching

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/models"
)

func newTestMatcher() *Matcher {
	return NewMatcher(DefaultConfig())
}

func acme() *models.Company {
	return &models.Company{
		ID:          "acme",
		DisplayName: "Acme Corp",
		Aliases:     []string{"Acme Rockets"},
		BaseCompany: "Acme Holdings",
		Domain:      "acme.io",
		GroupNames: map[models.Platform]string{
			models.PlatformTelegram: "Acme Telegram Group",
		},
	}
}

func TestMatcher_IsMatch(t *testing.T) {
	m := newTestMatcher()

	tests := []struct {
		name     string
		a, b     string
		expected bool
	}{
		{"exact", "acme", "acme", true},
		{"normalized equality with stacked suffixes", "Acme Corp", "acme-corp-bitsafe", true},
		{"unrelated names", "Acme", "Beta", false},
		{"close spelling", "Globex Industries", "Globex Industires", true},
		{"containment for long names", "blockworks", "blockworks-research", true},
		{"containment needs six characters", "acme", "acme-rockets-team", false},
		{"reserved fragment blocks containment", "stakefish", "stakefish-minter-ops", false},
		{"empty never matches", "", "", false},
		{"blank never matches", "  ", "acme", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, m.IsMatch(tt.a, tt.b))
		})
	}
}

func TestMatcher_MatchCompanyToChannel(t *testing.T) {
	m := newTestMatcher()
	company := acme()

	t.Run("should match a channel named after the display name", func(t *testing.T) {
		assert.True(t, m.MatchCompanyToChannel(company, "acme-corp", models.SourceTypeChannel))
	})

	t.Run("should match an alias", func(t *testing.T) {
		assert.True(t, m.MatchCompanyToChannel(company, "acme_rockets", models.SourceTypeChannel))
	})

	t.Run("should match a declared group name for the platform", func(t *testing.T) {
		assert.True(t, m.MatchCompanyToChannel(company, "Acme Telegram Group", models.SourceTypeTelegramChat))
	})

	t.Run("should match after stripping a trailing bitsafe marker", func(t *testing.T) {
		assert.True(t, m.MatchCompanyToChannel(company, "Acme Rockets-bitsafe", models.SourceTypeChannel))
	})

	t.Run("should not match an unrelated channel", func(t *testing.T) {
		assert.False(t, m.MatchCompanyToChannel(company, "beta-labs", models.SourceTypeChannel))
	})

	t.Run("should not match a nil company", func(t *testing.T) {
		assert.False(t, m.MatchCompanyToChannel(nil, "acme", models.SourceTypeChannel))
	})
}

func TestMatcher_CalculateConfidence(t *testing.T) {
	m := newTestMatcher()
	company := acme()

	t.Run("should be 1.0 for an exact variant", func(t *testing.T) {
		assert.Equal(t, 1.0, m.CalculateConfidence(company, "acme-corp"))
	})

	t.Run("should be 0.95 for the base company", func(t *testing.T) {
		base := &models.Company{ID: "wayne", DisplayName: "Wayne Aerospace", BaseCompany: "Wayne Enterprises"}
		assert.Equal(t, 0.95, m.CalculateConfidence(base, "wayne-enterprises"))
	})

	t.Run("should score containment between 0.85 and 0.9", func(t *testing.T) {
		company := &models.Company{ID: "blockworks", DisplayName: "Blockworks"}

		assert.Equal(t, 0.9, m.CalculateConfidence(company, "blockworks-research"))
		assert.Equal(t, 0.85, m.CalculateConfidence(company, "blockworks-research-partnerships"))
	})

	t.Run("should use the ratio for close spellings", func(t *testing.T) {
		company := &models.Company{ID: "globex", DisplayName: "Globex"}

		confidence := m.CalculateConfidence(company, "globez")
		assert.InDelta(t, 1.0-1.0/6.0, confidence, 1e-9)
	})

	t.Run("should be zero for unrelated names", func(t *testing.T) {
		assert.Equal(t, 0.0, m.CalculateConfidence(company, "beta"))
	})
}

func TestMatcher_FindBestMatches(t *testing.T) {
	m := newTestMatcher()
	company := &models.Company{ID: "blockworks", DisplayName: "Blockworks"}

	records := []models.ConversationRecord{
		{ID: "c3", SourceType: models.SourceTypeChannel, RawName: "blockworks-research-partnerships"},
		{ID: "c2", SourceType: models.SourceTypeChannel, RawName: "blockworks"},
		{ID: "c1", SourceType: models.SourceTypeDM, RawName: "Blockworks Inc"},
		{ID: "c2", SourceType: models.SourceTypeChannel, RawName: "blockworks"},
		{ID: "c4", SourceType: models.SourceTypeChannel, RawName: "unrelated"},
	}

	matches := m.FindBestMatches(company, records)

	require.Len(t, matches, 3)
	assert.Equal(t, "c1", matches[0].RecordID)
	assert.Equal(t, "c2", matches[1].RecordID)
	assert.Equal(t, "c3", matches[2].RecordID)
	assert.Equal(t, 1.0, matches[0].Confidence)
	assert.Equal(t, 0.85, matches[2].Confidence)
}

func TestMatcher_Warm(t *testing.T) {
	companies := []models.Company{*acme()}
	m := newTestMatcher()
	m.Warm(companies)

	cached := func(cache *sync.Map) int {
		n := 0
		cache.Range(func(_, _ any) bool {
			n++
			return true
		})
		return n
	}
	variants, patterns := cached(&m.variants), cached(&m.patterns)

	t.Run("should not grow the caches with channel names", func(t *testing.T) {
		for i := range 2000 {
			name := fmt.Sprintf("channel-%d-bitsafe", i)
			m.MatchCompanyToChannel(&companies[0], name, models.SourceTypeChannel)
			m.CalculateConfidence(&companies[0], name)
		}

		assert.Equal(t, variants, cached(&m.variants))
		assert.Equal(t, patterns, cached(&m.patterns))
	})

	t.Run("should match the same way as a cold matcher", func(t *testing.T) {
		cold := newTestMatcher()

		assert.Equal(t,
			cold.MatchCompanyToChannel(acme(), "acme-corp-bitsafe", models.SourceTypeChannel),
			m.MatchCompanyToChannel(&companies[0], "acme-corp-bitsafe", models.SourceTypeChannel))
		assert.True(t, m.MatchCompanyToChannel(&companies[0], "acme-corp-bitsafe", models.SourceTypeChannel))
	})

	t.Run("should not reuse catalog patterns for an ad-hoc company with the same id", func(t *testing.T) {
		adhoc := &models.Company{ID: "acme", DisplayName: "Globex"}

		assert.True(t, m.mentions(adhoc, "globex quarterly review"))
		assert.False(t, m.mentions(adhoc, "acme rockets sync"))
		assert.True(t, m.mentions(&companies[0], "acme rockets sync"))
	})
}

func TestScorer_Ratio(t *testing.T) {
	s := NewScorer()

	assert.Equal(t, 1.0, s.Ratio("", ""))
	assert.Equal(t, 1.0, s.Ratio("acme", "acme"))
	assert.Equal(t, 0.0, s.Ratio("acme", "beta"))
	assert.InDelta(t, 0.75, s.Ratio("acme", "acne"), 1e-9)
}
