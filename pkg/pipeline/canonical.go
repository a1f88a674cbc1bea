package pipeline

import (
	"cmp"
	"slices"
	"strings"

	"github.com/Ramsey-B/clover/pkg/models"
)

// canonicalRecords returns a copy of records with every list in a stable order so that the
// same records fingerprint identically however the collectors delivered them. Empty lists
// become nil.
func canonicalRecords(records models.RecordSet) models.RecordSet {
	out := models.RecordSet{
		Conversations: cloneOrNil(records.Conversations),
		Meetings:      cloneOrNil(records.Meetings),
		Deals:         cloneOrNil(records.Deals),
	}

	for i, conversation := range out.Conversations {
		conversation.Messages = cloneOrNil(conversation.Messages)
		slices.SortFunc(conversation.Messages, compareMessages)
		out.Conversations[i] = conversation
	}
	slices.SortFunc(out.Conversations, func(a, b models.ConversationRecord) int {
		return cmp.Or(
			strings.Compare(a.ID, b.ID),
			strings.Compare(string(a.SourceType), string(b.SourceType)),
			strings.Compare(a.RawName, b.RawName),
			slices.CompareFunc(a.Messages, b.Messages, compareMessages),
		)
	})

	for i, meeting := range out.Meetings {
		meeting.AttendeeEmails = cloneOrNil(meeting.AttendeeEmails)
		slices.Sort(meeting.AttendeeEmails)
		out.Meetings[i] = meeting
	}
	slices.SortFunc(out.Meetings, func(a, b models.MeetingRecord) int {
		return cmp.Or(
			strings.Compare(a.ID, b.ID),
			a.Start.Compare(b.Start),
			a.End.Compare(b.End),
			strings.Compare(a.Title, b.Title),
			strings.Compare(a.Description, b.Description),
			slices.Compare(a.AttendeeEmails, b.AttendeeEmails),
		)
	})

	slices.SortFunc(out.Deals, func(a, b models.DealRecord) int {
		return cmp.Or(
			strings.Compare(a.ID, b.ID),
			strings.Compare(a.Name, b.Name),
			strings.Compare(a.OwnerID, b.OwnerID),
			strings.Compare(a.Stage, b.Stage),
			cmp.Compare(a.Amount, b.Amount),
		)
	})
	return out
}

func compareMessages(a, b models.Message) int {
	return cmp.Or(
		a.Timestamp.Compare(b.Timestamp),
		strings.Compare(a.AuthorID, b.AuthorID),
		strings.Compare(a.Text, b.Text),
	)
}

func cloneOrNil[S ~[]E, E any](s S) S {
	if len(s) == 0 {
		return nil
	}
	return slices.Clone(s)
}
