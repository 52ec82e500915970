package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"contactdesk/internal/util"
	"contactdesk/pkg/domain"
	"contactdesk/pkg/queue"
)

// Submission bundles the three downstream payloads of one accepted contact.
type Submission struct {
	ID        string
	Admin     domain.AdminNotification
	Message   domain.ContactMessage
	AutoReply domain.AutoReply
}

// NewSubmission builds the payloads for rec, submitted at `at`.
func NewSubmission(rec domain.ContactRecord, reply Reply, adminEmail string, at time.Time) Submission {
	at = at.UTC()
	id := util.NewID()
	return Submission{
		ID: id,
		Admin: domain.AdminNotification{
			To:        adminEmail,
			From:      rec.Email,
			Name:      rec.Name,
			Message:   rec.Message,
			Timestamp: at,
		},
		Message: domain.ContactMessage{
			ID:          id,
			Name:        rec.Name,
			Email:       rec.Email,
			Message:     rec.Message,
			SubmittedAt: at,
			Metadata:    map[string]string{"reply_source": string(reply.Source)},
		},
		AutoReply: domain.AutoReply{
			To:      rec.Email,
			Subject: ReplySubject,
			Body:    reply.Body,
		},
	}
}

// Dispatcher hands an accepted submission to whatever sends and stores it.
type Dispatcher interface {
	Dispatch(ctx context.Context, sub Submission) error
}

// LogDispatcher records the three actions in the log without performing them.
type LogDispatcher struct{}

func (LogDispatcher) Dispatch(ctx context.Context, sub Submission) error {
	logger := util.LoggerFromContext(ctx).With("submission_id", sub.ID)
	logger.Info("simulated admin notification",
		"to", sub.Admin.To,
		"from", sub.Admin.From,
		"name", sub.Admin.Name,
		"message", sub.Admin.Message,
		"timestamp", sub.Admin.Timestamp.Format(time.RFC3339),
	)
	logger.Info("simulated database insert",
		"table", "contact_messages",
		"name", sub.Message.Name,
		"email", sub.Message.Email,
		"submitted_at", sub.Message.SubmittedAt.Format(time.RFC3339),
	)
	logger.Info("simulated auto-reply email",
		"to", sub.AutoReply.To,
		"subject", sub.AutoReply.Subject,
		"body", sub.AutoReply.Body,
	)
	return nil
}

// Enqueuer is the write side of the dispatch outbox.
type Enqueuer interface {
	EnqueueBatch(ctx context.Context, items []queue.BatchItem) ([]queue.Job, error)
}

// QueueDispatcher writes the three payloads of a submission to the outbox in
// one batch, so a failed dispatch leaves nothing behind to duplicate on retry.
type QueueDispatcher struct {
	Queue Enqueuer
}

func (d QueueDispatcher) Dispatch(ctx context.Context, sub Submission) error {
	if d.Queue == nil {
		return fmt.Errorf("dispatch queue not configured")
	}
	payloads := []struct {
		kind    domain.DispatchKind
		payload any
	}{
		{domain.DispatchContactMessage, sub.Message},
		{domain.DispatchAdminNotification, sub.Admin},
		{domain.DispatchAutoReply, sub.AutoReply},
	}
	items := make([]queue.BatchItem, 0, len(payloads))
	for _, p := range payloads {
		data, err := json.Marshal(p.payload)
		if err != nil {
			return fmt.Errorf("encode %s: %w", p.kind, err)
		}
		items = append(items, queue.BatchItem{Kind: string(p.kind), Payload: string(data)})
	}
	jobs, err := d.Queue.EnqueueBatch(ctx, items)
	if err != nil {
		return fmt.Errorf("enqueue submission %s: %w", sub.ID, err)
	}
	logger := util.LoggerFromContext(ctx)
	for _, job := range jobs {
		logger.Info("dispatch job enqueued", "kind", job.Kind, "job_id", job.ID, "submission_id", sub.ID)
	}
	return nil
}
