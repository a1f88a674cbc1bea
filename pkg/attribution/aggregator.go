// Package attribution turns matched activity into per participant commission splits
package attribution

import (
	"sort"
	"time"

	"github.com/Ramsey-B/clover/pkg/fingerprint"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/stages"
)

const (
	// calendarMinuteMultiplier weights meeting time against chat activity
	calendarMinuteMultiplier = 2.0
	// earlyBonusPerConversation is granted once per conversation a participant joined early
	earlyBonusPerConversation = 0.2
)

// CompanyActivity is everything matched to a single company
type CompanyActivity struct {
	Conversations []models.ConversationRecord
	Meetings      []models.MeetingRecord
	Deals         []models.DealRecord
}

// Aggregator reduces matched records to per participant activity totals
type Aggregator struct {
	detector  *stages.Detector
	directory *Directory
	policy    Policy
}

// NewAggregator creates a new Aggregator
func NewAggregator(detector *stages.Detector, directory *Directory, policy Policy) *Aggregator {
	return &Aggregator{
		detector:  detector,
		directory: directory,
		policy:    policy,
	}
}

// Aggregate computes activity totals per participant key. Records are deduplicated by id and
// messages by content, and everything is visited in a fixed order, so the result does not
// depend on the order the collectors delivered records in.
func (a *Aggregator) Aggregate(activity CompanyActivity) map[string]*models.ActivityTotals {
	totals := make(map[string]*models.ActivityTotals)
	get := func(key string) *models.ActivityTotals {
		t, ok := totals[key]
		if !ok {
			t = models.NewActivityTotals()
			totals[key] = t
		}
		return t
	}

	for _, conversation := range uniqueConversations(activity.Conversations) {
		a.aggregateConversation(conversation, get)
	}

	for _, meeting := range uniqueMeetings(activity.Meetings) {
		minutes := meeting.DurationMinutes()
		if minutes <= 0 {
			continue
		}
		for _, key := range a.attendees(meeting) {
			get(key).CalendarMinutes += minutes * calendarMinuteMultiplier
		}
	}

	for _, deal := range uniqueDeals(activity.Deals) {
		if !a.policy.IsClosedWon(deal.Stage) {
			continue
		}
		if key, ok := a.directory.Resolve(models.PlatformCRM, deal.OwnerID); ok {
			get(key).ClosedDeals++
		}
	}

	return totals
}

func (a *Aggregator) aggregateConversation(conversation models.ConversationRecord, get func(string) *models.ActivityTotals) {
	messages := uniqueMessages(conversation)
	if len(messages) == 0 {
		return
	}

	platform := conversation.SourceType.Platform()
	firstSeen := make(map[string]time.Time)
	for _, msg := range messages {
		key, ok := a.directory.Resolve(platform, msg.AuthorID)
		if !ok {
			continue
		}

		t := get(key)
		t.MessageCount++
		for _, hit := range a.detector.Detect(msg.Text) {
			t.StageConfidence[hit.Stage] += hit.Confidence
		}
		if _, seen := firstSeen[key]; !seen {
			firstSeen[key] = msg.Timestamp
		}
	}

	cutoff, ok := earlyCutoff(messages, a.policy.EarlyWindow)
	if !ok {
		return
	}
	for key, first := range firstSeen {
		if !first.After(cutoff) {
			get(key).EarlyBonus += earlyBonusPerConversation
		}
	}
}

// earlyCutoff returns the instant that closes the early window of a conversation.
// Conversations whose messages all share one timestamp have no early window.
func earlyCutoff(messages []models.Message, window float64) (time.Time, bool) {
	first, last := messages[0].Timestamp, messages[len(messages)-1].Timestamp
	span := last.Sub(first)
	if span <= 0 {
		return time.Time{}, false
	}
	return first.Add(time.Duration(float64(span) * window)), true
}

func (a *Aggregator) attendees(meeting models.MeetingRecord) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, email := range meeting.AttendeeEmails {
		key, ok := a.directory.Resolve(models.PlatformEmail, email)
		if !ok || seen[key] {
			continue
		}
		seen[key] = true
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func uniqueConversations(records []models.ConversationRecord) []models.ConversationRecord {
	byID := make(map[string]models.ConversationRecord, len(records))
	for _, r := range records {
		if existing, ok := byID[r.ID]; ok {
			// the same conversation may arrive in several batches
			r.Messages = append(append([]models.Message{}, existing.Messages...), r.Messages...)
		}
		byID[r.ID] = r
	}
	unique := make([]models.ConversationRecord, 0, len(byID))
	for _, r := range byID {
		unique = append(unique, r)
	}
	sort.Slice(unique, func(i, j int) bool { return unique[i].ID < unique[j].ID })
	return unique
}

// uniqueMessages drops duplicate messages and orders the rest chronologically
func uniqueMessages(conversation models.ConversationRecord) []models.Message {
	seen := make(map[string]bool, len(conversation.Messages))
	messages := make([]models.Message, 0, len(conversation.Messages))
	for _, msg := range conversation.Messages {
		key := MessageFingerprint(conversation.ID, msg)
		if seen[key] {
			continue
		}
		seen[key] = true
		messages = append(messages, msg)
	}
	sort.Slice(messages, func(i, j int) bool {
		mi, mj := messages[i], messages[j]
		if !mi.Timestamp.Equal(mj.Timestamp) {
			return mi.Timestamp.Before(mj.Timestamp)
		}
		if mi.AuthorID != mj.AuthorID {
			return mi.AuthorID < mj.AuthorID
		}
		return mi.Text < mj.Text
	})
	return messages
}

// MessageFingerprint identifies a message by its conversation, author, time and text
func MessageFingerprint(conversationID string, msg models.Message) string {
	return fingerprint.Parts(conversationID, msg.AuthorID, msg.Timestamp.UTC().Format(time.RFC3339Nano), msg.Text)
}

func uniqueMeetings(records []models.MeetingRecord) []models.MeetingRecord {
	byID := make(map[string]models.MeetingRecord, len(records))
	for _, r := range records {
		byID[r.ID] = r
	}
	unique := make([]models.MeetingRecord, 0, len(byID))
	for _, r := range byID {
		unique = append(unique, r)
	}
	sort.Slice(unique, func(i, j int) bool { return unique[i].ID < unique[j].ID })
	return unique
}

func uniqueDeals(records []models.DealRecord) []models.DealRecord {
	byID := make(map[string]models.DealRecord, len(records))
	for _, r := range records {
		byID[r.ID] = r
	}
	unique := make([]models.DealRecord, 0, len(byID))
	for _, r := range byID {
		unique = append(unique, r)
	}
	sort.Slice(unique, func(i, j int) bool { return unique[i].ID < unique[j].ID })
	return unique
}
