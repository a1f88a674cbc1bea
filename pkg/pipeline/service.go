// Package pipeline runs a full attribution: it matches records to companies, aggregates
// activity per participant and turns it into a commission table
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Ramsey-B/clover/pkg/attribution"
	"github.com/Ramsey-B/clover/pkg/catalog"
	"github.com/Ramsey-B/clover/pkg/fingerprint"
	"github.com/Ramsey-B/clover/pkg/matching"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/stages"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// DefaultWorkers bounds the number of companies computed concurrently
const DefaultWorkers = 4

// Service computes commission splits against a single catalog
type Service struct {
	catalog    *catalog.Catalog
	logger     ectologger.Logger
	workers    int
	matcher    *matching.Matcher
	detector   *stages.Detector
	directory  *attribution.Directory
	aggregator *attribution.Aggregator
	scorer     *attribution.Scorer
	now        func() time.Time
}

// NewService wires the matching, stage and attribution components for a catalog
func NewService(c *catalog.Catalog, logger ectologger.Logger, workers int) (*Service, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: catalog is required", catalog.ErrInvalidCatalog)
	}
	detector, err := stages.NewDetector(c.Stages)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", catalog.ErrInvalidCatalog, err)
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}

	matcher := matching.NewMatcher(matching.DefaultConfig())
	matcher.Warm(c.Companies)

	directory := attribution.NewDirectory(c.Participants)
	return &Service{
		catalog:    c,
		logger:     logger,
		workers:    workers,
		matcher:    matcher,
		detector:   detector,
		directory:  directory,
		aggregator: attribution.NewAggregator(detector, directory, c.Policy),
		scorer:     attribution.NewScorer(c.Policy, detector.Weights()),
		now:        time.Now,
	}, nil
}

// Catalog returns the catalog the service was built from
func (s *Service) Catalog() *catalog.Catalog {
	return s.catalog
}

// Matcher returns the company matcher
func (s *Service) Matcher() *matching.Matcher {
	return s.matcher
}

// Detector returns the stage detector
func (s *Service) Detector() *stages.Detector {
	return s.detector
}

// ComputeSplit attributes a single company. It does no I/O and holds no state between calls.
// A company with no matched conversations gets an empty split without its meetings or deals
// being considered.
func (s *Service) ComputeSplit(company *models.Company, records models.RecordSet) models.CompanyResult {
	result := models.CompanyResult{
		CompanyID: company.ID,
		Split:     models.CommissionSplit{},
		Shares:    map[string]float64{},
		Totals:    map[string]*models.ActivityTotals{},
	}

	var activity attribution.CompanyActivity
	matchedConversations := make(map[string]bool)
	for _, match := range s.matcher.FindBestMatches(company, records.Conversations) {
		result.MatchedConversations = append(result.MatchedConversations, match.RecordID)
		matchedConversations[match.RecordID] = true
	}
	for _, conversation := range records.Conversations {
		if matchedConversations[conversation.ID] {
			activity.Conversations = append(activity.Conversations, conversation)
		}
	}
	if len(activity.Conversations) == 0 {
		result.Rationale = attribution.Rationale(company, &result, s.directory)
		return result
	}

	matchedMeetings := make(map[string]bool)
	for i := range records.Meetings {
		meeting := &records.Meetings[i]
		if _, ok := s.matcher.MatchMeeting(company, meeting, s.catalog.InternalDomains); ok {
			activity.Meetings = append(activity.Meetings, *meeting)
			if !matchedMeetings[meeting.ID] {
				matchedMeetings[meeting.ID] = true
				result.MatchedMeetings = append(result.MatchedMeetings, meeting.ID)
			}
		}
	}

	matchedDeals := make(map[string]bool)
	for i := range records.Deals {
		deal := &records.Deals[i]
		if _, ok := s.matcher.MatchDeal(company, deal); ok {
			activity.Deals = append(activity.Deals, *deal)
			if !matchedDeals[deal.ID] {
				matchedDeals[deal.ID] = true
				result.MatchedDeals = append(result.MatchedDeals, deal.ID)
			}
		}
	}
	sort.Strings(result.MatchedMeetings)
	sort.Strings(result.MatchedDeals)

	totals := s.aggregator.Aggregate(activity)
	active := make([]string, 0, len(totals))
	for key, t := range totals {
		if t.HasActivity() {
			active = append(active, key)
		}
	}
	sort.Strings(active)

	split, shares := s.scorer.Split(s.scorer.WeightedScores(totals), active, s.directory.Founders())
	result.Split = split
	result.Shares = shares
	result.Totals = totals
	result.Rationale = attribution.Rationale(company, &result, s.directory)
	return result
}

// ComputeTable attributes every catalog company against the record set. Malformed records are
// skipped and counted. Companies with no matched conversations, or whose split is otherwise
// empty, are left out of the table and listed once in the unmatched summary.
func (s *Service) ComputeTable(ctx context.Context, records models.RecordSet) (report *models.Report, err error) {
	ctx, span := tracing.StartSpan(ctx, "pipeline.Service.ComputeTable")
	defer span.End()

	started := time.Now()
	defer func() {
		tracing.RecordError(span, err)
		metrics.ObserveRun(report, started, err)
	}()

	log := s.logger.WithContext(ctx)

	clean, malformed := s.sanitize(ctx, records)
	if len(clean.Meetings) == 0 {
		log.Warn("No meeting records supplied, calendar activity will not be scored")
	}
	if len(clean.Deals) == 0 {
		log.Warn("No deal records supplied, closed deals will not be scored")
	}

	runFingerprint, err := s.Fingerprint(records)
	if err != nil {
		return nil, err
	}

	companies := s.catalog.Companies
	results := make([]models.CompanyResult, len(companies))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range companies {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			results[i] = s.ComputeSplit(&companies[i], clean)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to compute commission table: %w", err)
	}

	report = &models.Report{
		RunID:       uuid.NewString(),
		Fingerprint: runFingerprint,
		Table:       models.CommissionTable{},
		Rationales:  map[string]string{},
		Results:     results,
		GeneratedAt: s.now().UTC(),
	}
	report.Unmatched.MalformedRecords = malformed
	report.Unmatched.CompaniesWithoutActivity = []string{}

	conversations := make(map[string]bool)
	meetings := make(map[string]bool)
	deals := make(map[string]bool)
	for _, result := range results {
		for _, id := range result.MatchedConversations {
			conversations[id] = true
		}
		for _, id := range result.MatchedMeetings {
			meetings[id] = true
		}
		for _, id := range result.MatchedDeals {
			deals[id] = true
		}

		report.Rationales[result.CompanyID] = result.Rationale
		if len(result.Split) == 0 {
			log.WithFields(map[string]any{
				"company_id": result.CompanyID,
				"matched":    result.HasMatches(),
			}).Info("Company has no attributable activity")
			report.Unmatched.CompaniesWithoutActivity = append(report.Unmatched.CompaniesWithoutActivity, result.CompanyID)
			continue
		}
		report.Table[result.CompanyID] = result.Split
	}
	sort.Strings(report.Unmatched.CompaniesWithoutActivity)

	report.Unmatched.Conversations = countUnmatched(clean.Conversations, func(r models.ConversationRecord) string { return r.ID }, conversations)
	report.Unmatched.Meetings = countUnmatched(clean.Meetings, func(r models.MeetingRecord) string { return r.ID }, meetings)
	report.Unmatched.Deals = countUnmatched(clean.Deals, func(r models.DealRecord) string { return r.ID }, deals)

	log.WithFields(map[string]any{
		"run_id":                  report.RunID,
		"companies":               len(companies),
		"attributed":              len(report.Table),
		"unmatched_conversations": report.Unmatched.Conversations,
		"unmatched_meetings":      report.Unmatched.Meetings,
		"unmatched_deals":         report.Unmatched.Deals,
		"malformed":               malformed,
	}).Info("Computed commission table")
	return report, nil
}

// Fingerprint identifies a run by its input records and the catalog version. The order in
// which records arrive does not affect it.
func (s *Service) Fingerprint(records models.RecordSet) (string, error) {
	recordFingerprint, err := fingerprint.GenerateFrom(canonicalRecords(records))
	if err != nil {
		return "", fmt.Errorf("failed to fingerprint records: %w", err)
	}
	return fingerprint.Parts(recordFingerprint, s.catalog.Version), nil
}

func countUnmatched[T any](records []T, id func(T) string, matched map[string]bool) int {
	seen := make(map[string]bool, len(records))
	count := 0
	for _, r := range records {
		key := id(r)
		if seen[key] {
			continue
		}
		seen[key] = true
		if !matched[key] {
			count++
		}
	}
	return count
}
