package kafka

import (
	"sort"
	"sync"
	"time"

	"github.com/Ramsey-B/clover/pkg/models"
)

// Collector accumulates record batches into one deduplicated record set.
// Conversations delivered more than once have their messages merged; meetings and deals
// are replaced by the latest delivery.
type Collector struct {
	mu            sync.Mutex
	conversations map[string]models.ConversationRecord
	meetings      map[string]models.MeetingRecord
	deals         map[string]models.DealRecord
	lastActivity  time.Time
	now           func() time.Time
}

func NewCollector() *Collector {
	return &Collector{
		conversations: make(map[string]models.ConversationRecord),
		meetings:      make(map[string]models.MeetingRecord),
		deals:         make(map[string]models.DealRecord),
		now:           time.Now,
	}
}

// Add merges a batch into the collected set
func (c *Collector) Add(batch *RecordBatch) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, conversation := range batch.Conversations {
		if existing, ok := c.conversations[conversation.ID]; ok {
			existing.Messages = append(existing.Messages, conversation.Messages...)
			conversation = existing
		}
		c.conversations[conversation.ID] = conversation
	}
	for _, meeting := range batch.Meetings {
		c.meetings[meeting.ID] = meeting
	}
	for _, deal := range batch.Deals {
		c.deals[deal.ID] = deal
	}
	c.lastActivity = c.now()
}

// IdleFor reports how long it has been since the last batch. It is zero before the first batch.
func (c *Collector) IdleFor() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastActivity.IsZero() {
		return 0
	}
	return c.now().Sub(c.lastActivity)
}

// RecordSet returns the collected records ordered by id
func (c *Collector) RecordSet() models.RecordSet {
	c.mu.Lock()
	defer c.mu.Unlock()

	var set models.RecordSet
	for _, r := range c.conversations {
		set.Conversations = append(set.Conversations, r)
	}
	for _, r := range c.meetings {
		set.Meetings = append(set.Meetings, r)
	}
	for _, r := range c.deals {
		set.Deals = append(set.Deals, r)
	}
	sort.Slice(set.Conversations, func(i, j int) bool { return set.Conversations[i].ID < set.Conversations[j].ID })
	sort.Slice(set.Meetings, func(i, j int) bool { return set.Meetings[i].ID < set.Meetings[j].ID })
	sort.Slice(set.Deals, func(i, j int) bool { return set.Deals[i].ID < set.Deals[j].ID })
	return set
}
