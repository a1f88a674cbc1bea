package models

import "time"

// CommissionSplit maps participant key to a percentage in {0, 25, 50, 75, 100}
type CommissionSplit map[string]int

// Total returns the sum of all percentages in the split
func (s CommissionSplit) Total() int {
	total := 0
	for _, pct := range s {
		total += pct
	}
	return total
}

// CommissionTable maps company id to its split
type CommissionTable map[string]CommissionSplit

// ActivityTotals is the per participant aggregate for a single company
type ActivityTotals struct {
	StageConfidence map[string]float64 `json:"stage_confidence"`
	MessageCount    int                `json:"message_count"`
	CalendarMinutes float64            `json:"calendar_minutes"`
	EarlyBonus      float64            `json:"early_bonus"`
	ClosedDeals     int                `json:"closed_deals"`
}

// NewActivityTotals creates an empty ActivityTotals
func NewActivityTotals() *ActivityTotals {
	return &ActivityTotals{StageConfidence: make(map[string]float64)}
}

// HasActivity reports whether anything at all was recorded
func (a *ActivityTotals) HasActivity() bool {
	if a == nil {
		return false
	}
	return a.MessageCount > 0 || a.CalendarMinutes > 0 || a.ClosedDeals > 0
}

// CompanyResult is the full outcome of attributing a single company
type CompanyResult struct {
	CompanyID            string                     `json:"company_id"`
	Split                CommissionSplit            `json:"split"`
	Shares               map[string]float64         `json:"shares"`
	Totals               map[string]*ActivityTotals `json:"totals"`
	Rationale            string                     `json:"rationale"`
	MatchedConversations []string                   `json:"matched_conversations"`
	MatchedMeetings      []string                   `json:"matched_meetings"`
	MatchedDeals         []string                   `json:"matched_deals"`
}

// HasMatches reports whether any record was attributed to the company
func (r *CompanyResult) HasMatches() bool {
	return len(r.MatchedConversations) > 0 || len(r.MatchedMeetings) > 0 || len(r.MatchedDeals) > 0
}

// UnmatchedSummary accounts for everything that did not make it into the table
type UnmatchedSummary struct {
	Conversations            int      `json:"conversations"`
	Meetings                 int      `json:"meetings"`
	Deals                    int      `json:"deals"`
	CompaniesWithoutActivity []string `json:"companies_without_activity"`
	MalformedRecords         int      `json:"malformed_records"`
}

// Report is the output of one attribution run
type Report struct {
	RunID       string            `json:"run_id"`
	Fingerprint string            `json:"fingerprint"`
	Table       CommissionTable   `json:"table"`
	Rationales  map[string]string `json:"rationales"`
	Results     []CompanyResult   `json:"results"`
	Unmatched   UnmatchedSummary  `json:"unmatched"`
	GeneratedAt time.Time         `json:"generated_at"`
}
