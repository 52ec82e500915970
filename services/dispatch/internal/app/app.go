package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"contactdesk/internal/util"
	"contactdesk/pkg/domain"
	"contactdesk/pkg/queue"
	"contactdesk/pkg/storage"
	"contactdesk/pkg/store"
)

// Config holds runtime configuration.
type Config struct {
	DatabaseURL string
	Store       store.ContactStore
	// Objects, when set, archives every auto-reply body.
	Objects storage.ObjectStore
	Mailer  Mailer
	// MailFrom is the sender of auto-replies.
	MailFrom string
}

// App executes dispatch jobs written by the contact service.
type App struct {
	store    store.ContactStore
	objects  storage.ObjectStore
	mailer   Mailer
	mailFrom string
}

// New constructs the dispatch worker core with persistence.
func New(cfg Config) (*App, error) {
	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("database URL required")
		}
		var err error
		dataStore, err = store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
	}
	mailer := cfg.Mailer
	if mailer == nil {
		mailer = LogMailer{From: cfg.MailFrom}
	}
	return &App{
		store:    dataStore,
		objects:  cfg.Objects,
		mailer:   mailer,
		mailFrom: cfg.MailFrom,
	}, nil
}

// Store exposes the persistence sink for read endpoints.
func (a *App) Store() store.ContactStore { return a.store }

// Handle runs one job. Malformed payloads and unknown kinds fail permanently.
func (a *App) Handle(ctx context.Context, job queue.Job) error {
	logger := util.LoggerFromContext(ctx).With("job_id", job.ID, "kind", job.Kind, "attempt", job.Attempts)
	ctx = util.ContextWithLogger(ctx, logger)
	start := time.Now()

	var err error
	switch domain.DispatchKind(job.Kind) {
	case domain.DispatchContactMessage:
		err = a.saveMessage(ctx, job)
	case domain.DispatchAdminNotification:
		err = a.notifyAdmin(ctx, job)
	case domain.DispatchAutoReply:
		err = a.sendAutoReply(ctx, job)
	default:
		err = fmt.Errorf("%w: unknown job kind %q", queue.ErrPermanent, job.Kind)
	}
	if err != nil {
		logger.Warn("dispatch job failed", "err", err, "duration_ms", time.Since(start).Milliseconds())
		return err
	}
	logger.Info("dispatch job done", "duration_ms", time.Since(start).Milliseconds())
	return nil
}

func (a *App) saveMessage(ctx context.Context, job queue.Job) error {
	var msg domain.ContactMessage
	if err := decode(job, &msg); err != nil {
		return err
	}
	if err := a.store.SaveContactMessage(ctx, msg); err != nil {
		if errors.Is(err, store.ErrInvalidMessage) {
			return fmt.Errorf("%w: %v", queue.ErrPermanent, err)
		}
		return fmt.Errorf("save contact message: %w", err)
	}
	return nil
}

func (a *App) notifyAdmin(ctx context.Context, job queue.Job) error {
	var n domain.AdminNotification
	if err := decode(job, &n); err != nil {
		return err
	}
	if strings.TrimSpace(n.To) == "" {
		return fmt.Errorf("%w: admin notification without recipient", queue.ErrPermanent)
	}
	body := fmt.Sprintf("Name: %s\nEmail: %s\nReceived: %s\n\n%s",
		n.Name, n.From, n.Timestamp.UTC().Format(time.RFC3339), n.Message)
	return a.send(ctx, Email{
		To:      n.To,
		From:    a.mailFrom,
		ReplyTo: n.From,
		Subject: "New contact form submission from " + n.Name,
		Body:    body,
	})
}

func (a *App) sendAutoReply(ctx context.Context, job queue.Job) error {
	var reply domain.AutoReply
	if err := decode(job, &reply); err != nil {
		return err
	}
	if strings.TrimSpace(reply.To) == "" {
		return fmt.Errorf("%w: auto-reply without recipient", queue.ErrPermanent)
	}
	if a.objects != nil {
		key := storage.ReplyKey(job.ID, job.CreatedAt)
		if err := storage.PutText(ctx, a.objects, key, reply.Body); err != nil {
			return fmt.Errorf("archive auto-reply: %w", err)
		}
		slog.Debug("auto-reply archived", "key", key)
	}
	return a.send(ctx, Email{
		To:      reply.To,
		From:    a.mailFrom,
		Subject: reply.Subject,
		Body:    reply.Body,
	})
}

func (a *App) send(ctx context.Context, msg Email) error {
	if err := a.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

func decode(job queue.Job, v any) error {
	if err := json.Unmarshal([]byte(job.Payload), v); err != nil {
		return fmt.Errorf("%w: decode %s payload: %v", queue.ErrPermanent, job.Kind, err)
	}
	return nil
}
