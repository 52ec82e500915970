package app

import (
	"context"
	"strings"

	"contactdesk/internal/util"
)

// Email is one outbound message handed to a Mailer.
type Email struct {
	To      string
	From    string
	ReplyTo string
	Subject string
	Body    string
}

// Mailer delivers email.
type Mailer interface {
	Send(ctx context.Context, msg Email) error
}

// LogMailer logs each email instead of sending it.
type LogMailer struct {
	From string
}

func (m LogMailer) Send(ctx context.Context, msg Email) error {
	from := msg.From
	if from == "" {
		from = m.From
	}
	util.LoggerFromContext(ctx).Info("email sent (log mailer)",
		"to", msg.To,
		"from", from,
		"reply_to", msg.ReplyTo,
		"subject", msg.Subject,
		"body_lines", strings.Count(msg.Body, "\n")+1,
	)
	return nil
}
