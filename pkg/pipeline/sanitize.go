package pipeline

import (
	"context"

	"github.com/go-playground/validator/v10"

	"github.com/Ramsey-B/clover/pkg/models"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// sanitize drops records that fail validation and returns how many were dropped.
// A malformed message is removed from its conversation without discarding the conversation.
func (s *Service) sanitize(ctx context.Context, records models.RecordSet) (models.RecordSet, int) {
	log := s.logger.WithContext(ctx)
	var clean models.RecordSet
	malformed := 0

	for _, conversation := range records.Conversations {
		if err := validate.StructExcept(conversation, "Messages"); err != nil {
			log.WithError(err).WithField("id", conversation.ID).Warn("Skipping malformed conversation")
			malformed++
			continue
		}

		messages := make([]models.Message, 0, len(conversation.Messages))
		for _, msg := range conversation.Messages {
			if err := validate.Struct(msg); err != nil {
				log.WithError(err).WithField("conversation_id", conversation.ID).Debug("Skipping malformed message")
				malformed++
				continue
			}
			messages = append(messages, msg)
		}
		conversation.Messages = messages
		clean.Conversations = append(clean.Conversations, conversation)
	}

	for _, meeting := range records.Meetings {
		if err := validate.Struct(meeting); err != nil {
			log.WithError(err).WithField("id", meeting.ID).Warn("Skipping malformed meeting")
			malformed++
			continue
		}
		clean.Meetings = append(clean.Meetings, meeting)
	}

	for _, deal := range records.Deals {
		if err := validate.Struct(deal); err != nil {
			log.WithError(err).WithField("id", deal.ID).Warn("Skipping malformed deal")
			malformed++
			continue
		}
		clean.Deals = append(clean.Deals, deal)
	}

	return clean, malformed
}

// Validate reports the first validation problem of a record set without modifying it
func Validate(records models.RecordSet) error {
	return validate.Struct(records)
}
