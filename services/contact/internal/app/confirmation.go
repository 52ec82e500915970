package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"contactdesk/internal/util"
	"contactdesk/pkg/ai"
	"contactdesk/pkg/domain"
)

const (
	ResponseWindow = "24-48 business hours"
	ReplySubject   = "We have received your message!"
)

const systemPrompt = `You are a friendly customer support assistant. A user has just submitted a contact form on our website.
Your task is to generate the body of a polite and professional automatic reply email to this user.`

const userPromptTemplate = `The email must contain the following elements:
1. A friendly greeting using the user's name.
2. A "thank you" message for contacting us.
3. A confirmation that their message has been received.
4. Set the expectation that we will respond within a specific timeframe (e.g., "within %s").
5. A summary of the details they submitted, for their records.
6. A polite closing.

Here is the user's submitted data:
- Name: %s
- Email: %s
- Message: "%s"

Please generate only the plain text content for the email body. Do not include a subject line or any headers.`

const fallbackTemplate = `Hello %s,

Thank you so much for reaching out to us!

This is an automated confirmation that we have successfully received your message. Our team will review your inquiry and get back to you within %s.

For your reference, here are the details you submitted:
- Name: %s
- Email: %s
- Message: "%s"

We appreciate your patience.

Best regards,
The Team`

// Reply is an auto-reply body and where it came from.
type Reply struct {
	Body   string
	Source domain.ReplySource
}

// Confirmer writes auto-reply bodies. It never fails: any generator problem
// yields the fallback template.
type Confirmer struct {
	gen ai.TextGenerator
}

func NewConfirmer(gen ai.TextGenerator) *Confirmer {
	return &Confirmer{gen: gen}
}

// BuildPrompt returns the system and user prompts for rec. Field values are
// embedded verbatim.
func BuildPrompt(rec domain.ContactRecord) (system, user string) {
	return systemPrompt, fmt.Sprintf(userPromptTemplate, ResponseWindow, rec.Name, rec.Email, rec.Message)
}

// FallbackReply is the deterministic body used when generation fails.
func FallbackReply(rec domain.ContactRecord) string {
	return fmt.Sprintf(fallbackTemplate, rec.Name, ResponseWindow, rec.Name, rec.Email, rec.Message)
}

// Write asks the generator for a reply body once.
func (c *Confirmer) Write(ctx context.Context, rec domain.ContactRecord) Reply {
	logger := util.LoggerFromContext(ctx)
	if c == nil || c.gen == nil {
		logger.Warn("no text generator configured, using fallback reply")
		return Reply{Body: FallbackReply(rec), Source: domain.ReplyFromFallback}
	}
	text, err := c.generate(ctx, rec)
	if err != nil {
		logger.Error("generate confirmation email failed", "err", err)
		return Reply{Body: FallbackReply(rec), Source: domain.ReplyFromFallback}
	}
	return Reply{Body: text, Source: domain.ReplyFromModel}
}

func (c *Confirmer) generate(ctx context.Context, rec domain.ContactRecord) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("text generator panic: %v", r)
		}
	}()
	system, user := BuildPrompt(rec)
	text, err = c.gen.GenerateText(ctx, system, user)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("empty generation response")
	}
	slog.Debug("confirmation email generated", "chars", len(text))
	return text, nil
}
