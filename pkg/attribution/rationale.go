package attribution

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Gobusters/ectolinq"

	"github.com/Ramsey-B/clover/pkg/models"
)

// maxRationaleStages is how many stages are listed per participant
const maxRationaleStages = 3

// Rationale renders a human readable explanation of a company's split
func Rationale(company *models.Company, result *models.CompanyResult, directory *Directory) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s): %d conversations, %d meetings, %d deals matched\n",
		company.DisplayName, company.ID,
		len(result.MatchedConversations), len(result.MatchedMeetings), len(result.MatchedDeals))

	if len(result.Split) == 0 {
		b.WriteString("  no attributable activity\n")
		return b.String()
	}

	keys := make([]string, 0, len(result.Split))
	for key := range result.Split {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if result.Split[keys[i]] != result.Split[keys[j]] {
			return result.Split[keys[i]] > result.Split[keys[j]]
		}
		return keys[i] < keys[j]
	})

	for _, key := range keys {
		name := key
		if p, ok := directory.Participant(key); ok && p.CanonicalName != "" {
			name = p.CanonicalName
		}
		fmt.Fprintf(&b, "  %s: %d%% (share %.1f%%", name, result.Split[key], result.Shares[key])

		t := result.Totals[key]
		if t != nil {
			if stageSummary := topStages(t.StageConfidence); stageSummary != "" {
				fmt.Fprintf(&b, "; stages: %s", stageSummary)
			}
			fmt.Fprintf(&b, "; %d messages", t.MessageCount)
			if t.CalendarMinutes > 0 {
				fmt.Fprintf(&b, "; %.0f weighted meeting minutes", t.CalendarMinutes)
			}
			if t.ClosedDeals > 0 {
				fmt.Fprintf(&b, "; %d closed deals", t.ClosedDeals)
			}
			if t.EarlyBonus > 0 {
				b.WriteString("; early involvement")
			}
		}
		b.WriteString(")\n")
	}
	return b.String()
}

type stageScore struct {
	name  string
	score float64
}

func topStages(confidence map[string]float64) string {
	scores := make([]stageScore, 0, len(confidence))
	for name, score := range confidence {
		if score > 0 {
			scores = append(scores, stageScore{name: name, score: score})
		}
	}
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].score != scores[j].score {
			return scores[i].score > scores[j].score
		}
		return scores[i].name < scores[j].name
	})
	if len(scores) > maxRationaleStages {
		scores = scores[:maxRationaleStages]
	}

	return strings.Join(ectolinq.Map(scores, func(s stageScore) string {
		return fmt.Sprintf("%s %.2f", s.name, s.score)
	}), ", ")
}
