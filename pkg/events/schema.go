package events

import (
	"time"

	"github.com/Ramsey-B/clover/pkg/models"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// EventType defines the type of event
type EventType string

const (
	EventTypeSplitComputed EventType = "commission.split.computed"
	EventTypeRunCompleted  EventType = "commission.run.completed"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventType     EventType `json:"event_type"`
	SchemaVersion string    `json:"schema_version"`
	RunID         string    `json:"run_id"`
	Timestamp     time.Time `json:"timestamp"`
}

// SplitComputedEvent is emitted for every company that received a split
type SplitComputedEvent struct {
	BaseEvent
	CompanyID string                 `json:"company_id"`
	Split     models.CommissionSplit `json:"split"`
	Rationale string                 `json:"rationale"`
}

// RunCompletedEvent is emitted once per run after all splits
type RunCompletedEvent struct {
	BaseEvent
	Fingerprint    string                  `json:"fingerprint"`
	CatalogVersion string                  `json:"catalog_version"`
	Companies      int                     `json:"companies"`
	Unmatched      models.UnmatchedSummary `json:"unmatched"`
}

func newBase(eventType EventType, report *models.Report) BaseEvent {
	return BaseEvent{
		EventType:     eventType,
		SchemaVersion: SchemaVersion,
		RunID:         report.RunID,
		Timestamp:     report.GeneratedAt,
	}
}
