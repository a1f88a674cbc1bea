package models

import "time"

// SourceType is the kind of conversation a record was collected from
type SourceType string

const (
	SourceTypeChannel      SourceType = "channel"
	SourceTypeDM           SourceType = "dm"
	SourceTypeTelegramChat SourceType = "telegram_chat"
)

// Platform returns the platform whose ids authors of this source type use
func (s SourceType) Platform() Platform {
	if s == SourceTypeTelegramChat {
		return PlatformTelegram
	}
	return PlatformSlack
}

// Message is a single authored message inside a conversation
type Message struct {
	AuthorID  string    `json:"author_id" validate:"required"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp" validate:"required"`
}

// ConversationRecord is a channel, direct message or group chat as handed over by a collector
type ConversationRecord struct {
	ID         string     `json:"id" validate:"required"`
	SourceType SourceType `json:"source_type" validate:"required,oneof=channel dm telegram_chat"`
	RawName    string     `json:"raw_name" validate:"required"`
	Messages   []Message  `json:"messages" validate:"dive"`
}

// MeetingRecord is a calendar event
type MeetingRecord struct {
	ID             string    `json:"id" validate:"required"`
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	Start          time.Time `json:"start" validate:"required"`
	End            time.Time `json:"end" validate:"required,gtefield=Start"`
	AttendeeEmails []string  `json:"attendee_emails" validate:"dive,email"`
}

// DurationMinutes returns the meeting length in minutes
func (m *MeetingRecord) DurationMinutes() float64 {
	return m.End.Sub(m.Start).Minutes()
}

// DealRecord is an opportunity exported from the CRM
type DealRecord struct {
	ID       string     `json:"id" validate:"required"`
	Name     string     `json:"name" validate:"required"`
	OwnerID  string     `json:"owner_id"`
	Stage    string     `json:"stage"`
	Amount   float64    `json:"amount,omitempty"`
	ClosedAt *time.Time `json:"closed_at,omitempty"`
}

// RecordSet is the full input handed over by the collectors
type RecordSet struct {
	Conversations []ConversationRecord `json:"conversations" validate:"dive"`
	Meetings      []MeetingRecord      `json:"meetings" validate:"dive"`
	Deals         []DealRecord         `json:"deals" validate:"dive"`
}

// IsEmpty reports whether the record set holds no records at all
func (r *RecordSet) IsEmpty() bool {
	return len(r.Conversations) == 0 && len(r.Meetings) == 0 && len(r.Deals) == 0
}
