package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"contactdesk/pkg/ai"
	"contactdesk/pkg/domain"
)

// Config holds runtime configuration for the contact core.
type Config struct {
	GenerationProvider string
	GenerationAPIKey   string
	GenerationBaseURL  string
	GenerationModel    string
	// Generator overrides the provider fields when set.
	Generator  ai.TextGenerator
	Dispatcher Dispatcher
	AdminEmail string
	NoticeTTL  time.Duration
	Now        func() time.Time
}

// App builds controllers that share one generator and dispatcher.
type App struct {
	confirmer  *Confirmer
	dispatcher Dispatcher
	adminEmail string
	noticeTTL  time.Duration
	now        func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	ctrl *Controller
	refs int
}

// New constructs the application and its text generator.
func New(ctx context.Context, cfg Config) (*App, error) {
	gen := cfg.Generator
	if gen == nil {
		var err error
		gen, err = ai.NewGenerator(ctx, ai.ProviderConfig{
			Provider: cfg.GenerationProvider,
			APIKey:   cfg.GenerationAPIKey,
			BaseURL:  cfg.GenerationBaseURL,
			Model:    cfg.GenerationModel,
		})
		if err != nil {
			return nil, fmt.Errorf("init text generator: %w", err)
		}
	}
	var dispatcher Dispatcher = LogDispatcher{}
	if cfg.Dispatcher != nil {
		dispatcher = cfg.Dispatcher
	}
	ttl := cfg.NoticeTTL
	if ttl <= 0 {
		ttl = DefaultNoticeTTL
	}
	return &App{
		confirmer:  NewConfirmer(gen),
		dispatcher: dispatcher,
		adminEmail: cfg.AdminEmail,
		noticeTTL:  ttl,
		now:        cfg.Now,
		sessions:   make(map[string]*session),
	}, nil
}

// NoticeTTL is how long clients should show an outcome notice.
func (a *App) NoticeTTL() time.Duration { return a.noticeTTL }

// NewController returns a controller for one interactive form.
func (a *App) NewController() *Controller {
	return NewController(ControllerConfig{
		Confirmer:  a.confirmer,
		Dispatcher: a.dispatcher,
		AdminEmail: a.adminEmail,
		NoticeTTL:  a.noticeTTL,
		Now:        a.now,
	})
}

// Submit runs rec through the controller held for key. A second call for the
// same key while the first is still generating returns ErrSubmitInFlight.
func (a *App) Submit(ctx context.Context, key string, rec domain.ContactRecord) (domain.OutcomeNotice, error) {
	ctrl := a.acquire(key)
	defer a.release(key)
	return ctrl.SubmitRecord(ctx, rec)
}

func (a *App) acquire(key string) *Controller {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.sessions[key]
	if !ok {
		s = &session{ctrl: a.NewController()}
		a.sessions[key] = s
	}
	s.refs++
	return s.ctrl
}

func (a *App) release(key string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.sessions[key]
	if !ok {
		return
	}
	s.refs--
	if s.refs <= 0 {
		delete(a.sessions, key)
	}
}
