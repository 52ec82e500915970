package store

import (
	"context"
	"errors"

	"contactdesk/pkg/domain"
)

// ErrInvalidMessage is returned for contact messages missing an id or timestamp.
var ErrInvalidMessage = errors.New("invalid contact message")

// ContactStore persists accepted submissions (the contact_messages sink).
// Saves are idempotent on message ID because the outbox delivers at least once.
type ContactStore interface {
	SaveContactMessage(ctx context.Context, msg domain.ContactMessage) error
	GetContactMessage(ctx context.Context, id string) (domain.ContactMessage, bool, error)
	ListContactMessages(ctx context.Context, limit int) ([]domain.ContactMessage, error)
}

func validateMessage(msg domain.ContactMessage) error {
	if msg.ID == "" || msg.SubmittedAt.IsZero() {
		return ErrInvalidMessage
	}
	return nil
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return 50
	}
	return limit
}
