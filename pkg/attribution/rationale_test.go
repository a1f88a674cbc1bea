package attribution

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Ramsey-B/clover/pkg/models"
)

func TestRationale(t *testing.T) {
	company := &models.Company{ID: "acme", DisplayName: "Acme Corp"}
	directory := NewDirectory([]models.Participant{
		{Key: "alice", CanonicalName: "Alice Adams"},
		{Key: "bob", CanonicalName: "Bob Brown"},
	})

	t.Run("should list participants by share with their strongest stages", func(t *testing.T) {
		result := &models.CompanyResult{
			Split:                models.CommissionSplit{"bob": 25, "alice": 75},
			Shares:               map[string]float64{"alice": 80, "bob": 20},
			MatchedConversations: []string{"C1"},
			Totals: map[string]*models.ActivityTotals{
				"alice": {
					StageConfidence: map[string]float64{"discovery": 0.7, "contract_legal": 1, "proposal": 0.3, "poc": 0.1},
					MessageCount:    4,
					ClosedDeals:     1,
				},
				"bob": {StageConfidence: map[string]float64{}, MessageCount: 1, CalendarMinutes: 60, EarlyBonus: 0.2},
			},
		}

		text := Rationale(company, result, directory)
		lines := strings.Split(strings.TrimSpace(text), "\n")

		assert.Equal(t, "Acme Corp (acme): 1 conversations, 0 meetings, 0 deals matched", lines[0])
		assert.Equal(t, "  Alice Adams: 75% (share 80.0%; stages: contract_legal 1.00, discovery 0.70, proposal 0.30; 4 messages; 1 closed deals)", lines[1])
		assert.Equal(t, "  Bob Brown: 25% (share 20.0%; 1 messages; 60 weighted meeting minutes; early involvement)", lines[2])
	})

	t.Run("should say when nothing is attributable", func(t *testing.T) {
		text := Rationale(company, &models.CompanyResult{}, directory)

		assert.Contains(t, text, "no attributable activity")
	})
}

func TestDirectory(t *testing.T) {
	directory := NewDirectory([]models.Participant{
		{Key: "alice", Founder: true, PlatformIDs: map[models.Platform]string{
			models.PlatformEmail: "Alice@Clover.xyz",
			models.PlatformSlack: "U1",
		}},
		{Key: "bob", PlatformIDs: map[models.Platform]string{models.PlatformSlack: "U2"}},
	})

	t.Run("should resolve emails case-insensitively", func(t *testing.T) {
		key, ok := directory.Resolve(models.PlatformEmail, " alice@clover.XYZ ")
		assert.True(t, ok)
		assert.Equal(t, "alice", key)
	})

	t.Run("should keep platform ids apart", func(t *testing.T) {
		_, ok := directory.Resolve(models.PlatformTelegram, "U1")
		assert.False(t, ok)
	})

	t.Run("should match chat ids exactly", func(t *testing.T) {
		_, ok := directory.Resolve(models.PlatformSlack, "u1")
		assert.False(t, ok)
	})

	t.Run("should list founders and keys", func(t *testing.T) {
		assert.Equal(t, map[string]bool{"alice": true}, directory.Founders())
		assert.Equal(t, []string{"alice", "bob"}, directory.Keys())
	})
}
