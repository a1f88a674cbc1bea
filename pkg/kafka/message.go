package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Ramsey-B/clover/pkg/models"
)

const (
	HeaderEventType   = "event_type"
	HeaderTraceParent = "traceparent"
)

// BatchKind names the record type carried by a RecordBatch
type BatchKind string

const (
	BatchConversations BatchKind = "conversations"
	BatchMeetings      BatchKind = "meetings"
	BatchDeals         BatchKind = "deals"
)

// RecordBatch is what a collector publishes to the input topic
type RecordBatch struct {
	Kind          BatchKind                   `json:"kind"`
	Conversations []models.ConversationRecord `json:"conversations,omitempty"`
	Meetings      []models.MeetingRecord      `json:"meetings,omitempty"`
	Deals         []models.DealRecord         `json:"deals,omitempty"`
}

// IncomingMessage wraps a raw Kafka message with parsed headers
type IncomingMessage struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Timestamp time.Time
	Topic     string
}

// TraceParent returns the propagated trace header, if any
func (m *IncomingMessage) TraceParent() string {
	return m.Headers[HeaderTraceParent]
}

// ParseRecordBatch decodes the message value as a RecordBatch
func (m *IncomingMessage) ParseRecordBatch() (*RecordBatch, error) {
	var batch RecordBatch
	if err := json.Unmarshal(m.Value, &batch); err != nil {
		return nil, fmt.Errorf("failed to decode record batch: %w", err)
	}

	switch batch.Kind {
	case BatchConversations, BatchMeetings, BatchDeals:
		return &batch, nil
	default:
		return nil, fmt.Errorf("unknown record batch kind %q", batch.Kind)
	}
}
