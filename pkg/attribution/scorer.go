package attribution

import (
	"math"
	"sort"

	"github.com/Ramsey-B/clover/pkg/models"
)

const (
	// Tier is the granularity of a final split
	Tier = 25
	// FullShare is what a split is normalized to
	FullShare = 100.0

	roundingEpsilon = 1e-9
)

// Scorer turns activity totals into a discretized commission split
type Scorer struct {
	policy  Policy
	weights map[string]int
}

// NewScorer creates a new Scorer for the stage weights
func NewScorer(policy Policy, weights map[string]int) *Scorer {
	return &Scorer{
		policy:  policy,
		weights: weights,
	}
}

// Policy returns the scorer policy
func (s *Scorer) Policy() Policy {
	return s.policy
}

// WeightedScore converts one participant's totals into a raw score
func (s *Scorer) WeightedScore(t *models.ActivityTotals) float64 {
	if t == nil {
		return 0
	}

	score := 0.0
	for _, name := range sortedKeys(t.StageConfidence) {
		score += t.StageConfidence[name] * float64(s.weights[name])
	}
	score += s.policy.CloserBonus * float64(t.ClosedDeals)
	score += s.policy.MeetingMinuteWeight * t.CalendarMinutes
	score += s.policy.EarlyBonusWeight * t.EarlyBonus
	return score
}

// WeightedScores converts every participant's totals into raw scores
func (s *Scorer) WeightedScores(totals map[string]*models.ActivityTotals) map[string]float64 {
	scores := make(map[string]float64, len(totals))
	for key, t := range totals {
		scores[key] = s.WeightedScore(t)
	}
	return scores
}

// Split normalizes raw scores to percentages and discretizes them to 25% tiers.
// active lists the participants with any recorded activity; they share equally when every
// score is zero. founders are subject to the policy founder cap. The returned shares are
// the pre-rounding percentages.
func (s *Scorer) Split(scores map[string]float64, active []string, founders map[string]bool) (models.CommissionSplit, map[string]float64) {
	shares := s.normalize(s.applyFloor(scores), active)
	if len(shares) == 0 {
		return models.CommissionSplit{}, shares
	}

	shares = s.applyFounderCap(shares, founders)

	split := make(models.CommissionSplit, len(shares))
	for key, share := range shares {
		split[key] = RoundToNearest25(share)
	}

	s.repairVanishedShares(split, shares)
	repairOverflow(split)
	return split, shares
}

func (s *Scorer) applyFloor(scores map[string]float64) map[string]float64 {
	floored := make(map[string]float64, len(scores))
	for key, score := range scores {
		if score > 0 && score < s.policy.PresenceFloor {
			score = s.policy.PresenceFloor
		}
		floored[key] = max(score, 0)
	}
	return floored
}

// normalize scales scores so they sum to 100. A zero total splits equally across active
// participants; with nobody active the result is empty.
func (s *Scorer) normalize(scores map[string]float64, active []string) map[string]float64 {
	total := 0.0
	for _, key := range sortedKeys(scores) {
		total += scores[key]
	}

	shares := make(map[string]float64, len(scores))
	if total <= 0 {
		unique := make(map[string]bool, len(active))
		for _, key := range active {
			unique[key] = true
		}
		for key := range unique {
			shares[key] = FullShare / float64(len(unique))
		}
		return shares
	}

	for key, score := range scores {
		shares[key] = score / total * FullShare
	}
	return shares
}

// applyFounderCap clips founder shares at the cap and hands the excess to the other
// participants in proportion to their shares
func (s *Scorer) applyFounderCap(shares map[string]float64, founders map[string]bool) map[string]float64 {
	if s.policy.FounderCap == nil || len(founders) == 0 {
		return shares
	}
	limit := *s.policy.FounderCap

	excess := 0.0
	for key, share := range shares {
		if founders[key] && share > limit {
			excess += share - limit
			shares[key] = limit
		}
	}
	if excess == 0 {
		return shares
	}

	recipients := 0.0
	for _, key := range sortedKeys(shares) {
		if !founders[key] && shares[key] > 0 {
			recipients += shares[key]
		}
	}
	if recipients == 0 {
		return shares
	}
	for key, share := range shares {
		if !founders[key] && share > 0 {
			shares[key] = share + excess*share/recipients
		}
	}
	return shares
}

// repairVanishedShares lifts anyone with a meaningful share who rounded down to nothing
func (s *Scorer) repairVanishedShares(split models.CommissionSplit, shares map[string]float64) {
	for key, share := range shares {
		if split[key] == 0 && share > s.policy.RepairMinShare {
			split[key] = Tier
		}
	}
}

// repairOverflow takes 25% at a time from the largest holder until the split fits in 100%.
// Ties go to the lexicographically smallest participant key.
func repairOverflow(split models.CommissionSplit) {
	keys := make([]string, 0, len(split))
	for key := range split {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for split.Total() > int(FullShare) {
		largest := ""
		for _, key := range keys {
			if largest == "" || split[key] > split[largest] {
				largest = key
			}
		}
		if largest == "" || split[largest] < Tier {
			return
		}
		split[largest] -= Tier
	}
}

// sortedKeys fixes the summation order so float totals do not depend on map iteration
func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// RoundToNearest25 maps a percentage onto the 0/25/50/75/100 tiers. Each tier covers
// the interval up to the next tier, so boundary values fall to the lower tier:
// 12.5 -> 0, 37.5 -> 25, 62.5 -> 50, 87.5 -> 75 and 100 -> 100. Inputs are clamped to [0, 100].
func RoundToNearest25(pct float64) int {
	if math.IsNaN(pct) || pct <= 0 {
		return 0
	}
	if pct >= FullShare {
		return int(FullShare)
	}
	return int(math.Floor((pct+roundingEpsilon)/Tier)) * Tier
}
