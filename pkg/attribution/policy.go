package attribution

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPolicy is returned when policy values are out of range
var ErrInvalidPolicy = errors.New("invalid commission policy")

// Policy holds every tunable of the commission computation
type Policy struct {
	// FounderCap caps the pre-rounding share of founder tagged participants. Nil disables the cap.
	FounderCap *float64 `json:"founder_cap,omitempty" yaml:"founder_cap"`
	// PresenceFloor lifts any positive weighted score below it up to it
	PresenceFloor float64 `json:"presence_floor" yaml:"presence_floor"`
	// CloserBonus is added to the weighted score once per closed-won deal owned
	CloserBonus float64 `json:"closer_bonus" yaml:"closer_bonus"`
	// MeetingMinuteWeight converts weighted calendar minutes into score
	MeetingMinuteWeight float64 `json:"meeting_minute_weight" yaml:"meeting_minute_weight"`
	// EarlyBonusWeight converts the early involvement bonus into score
	EarlyBonusWeight float64 `json:"early_bonus_weight" yaml:"early_bonus_weight"`
	// RepairMinShare is the pre-rounding share above which a participant never ends at 0%
	RepairMinShare float64 `json:"repair_min_share" yaml:"repair_min_share"`
	// EarlyWindow is the leading fraction of a conversation timeline that counts as early
	EarlyWindow float64 `json:"early_window" yaml:"early_window"`
	// ClosedWonStages are the CRM stages that count as a closed deal
	ClosedWonStages []string `json:"closed_won_stages" yaml:"closed_won_stages"`
}

// DefaultPolicy returns the default commission policy
func DefaultPolicy() Policy {
	return Policy{
		PresenceFloor:       5,
		CloserBonus:         10,
		MeetingMinuteWeight: 0.1,
		EarlyBonusWeight:    10,
		RepairMinShare:      5,
		EarlyWindow:         0.25,
		ClosedWonStages:     []string{"closed won", "closedwon", "won"},
	}
}

// Validate checks that every value is in range
func (p Policy) Validate() error {
	var problems []string
	if p.FounderCap != nil && (*p.FounderCap <= 0 || *p.FounderCap > 100) {
		problems = append(problems, fmt.Sprintf("founder_cap %.2f is outside (0, 100]", *p.FounderCap))
	}
	if p.PresenceFloor < 0 {
		problems = append(problems, "presence_floor must not be negative")
	}
	if p.CloserBonus < 0 || p.MeetingMinuteWeight < 0 || p.EarlyBonusWeight < 0 {
		problems = append(problems, "bonus weights must not be negative")
	}
	if p.RepairMinShare < 0 || p.RepairMinShare >= 100 {
		problems = append(problems, "repair_min_share must be within [0, 100)")
	}
	if p.EarlyWindow < 0 || p.EarlyWindow > 1 {
		problems = append(problems, "early_window must be within [0, 1]")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidPolicy, strings.Join(problems, "; "))
	}
	return nil
}

// IsClosedWon reports whether a CRM stage counts as closed-won
func (p Policy) IsClosedWon(stage string) bool {
	stage = strings.Join(strings.FieldsFunc(strings.ToLower(stage), func(r rune) bool {
		return r == ' ' || r == '-' || r == '_'
	}), " ")
	for _, s := range p.ClosedWonStages {
		if strings.EqualFold(stage, s) {
			return true
		}
	}
	return false
}
