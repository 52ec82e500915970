package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"contactdesk/internal/ratelimit"
	"contactdesk/internal/util"
	"contactdesk/pkg/domain"
	"contactdesk/services/contact/internal/app"
)

const rateWindow = time.Minute

// Config wires required dependencies for the HTTP server.
type Config struct {
	App                *app.App
	RedisAddr          string
	RedisPassword      string
	RateLimitPerMinute int
	TrustedProxies     []string
	AllowedOrigins     []string
}

// Server exposes HTTP endpoints for the contact service.
type Server struct {
	app     *app.App
	limiter *ratelimit.FixedWindowLimiter
	proxies *util.TrustedProxies
	origins []string
	mux     *http.ServeMux
}

// New constructs the server with routes configured. A positive
// RateLimitPerMinute requires Redis.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("app required")
	}
	proxies, err := util.NewTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("parse trusted proxies: %w", err)
	}
	s := &Server{
		app:     cfg.App,
		proxies: proxies,
		origins: cfg.AllowedOrigins,
		mux:     http.NewServeMux(),
	}
	if cfg.RateLimitPerMinute > 0 {
		s.limiter, err = ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, "contactdesk:ratelimit:contact", cfg.RateLimitPerMinute, rateWindow)
		if err != nil {
			return nil, fmt.Errorf("init contact limiter: %w", err)
		}
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	var h http.Handler = s.mux
	h = util.WithRequestLog("contact", s.proxies, h)
	h = util.WithRequestID(h)
	h = util.WithCORS(s.origins, h)
	return util.WithSecurityHeaders(h)
}

// Close releases the rate limiter's Redis pool.
func (s *Server) Close() error {
	if s.limiter == nil {
		return nil
	}
	return s.limiter.Close()
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/api/contact", s.handleContact)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type contactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

type contactResponse struct {
	Notice         domain.OutcomeNotice `json:"notice"`
	DismissAfterMs int64                `json:"dismissAfterMs"`
}

func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req contactRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	clientIP := util.ClientIP(r, s.proxies)
	if !s.allowRate(w, r, clientIP) {
		return
	}

	// The generation call runs to completion even if the client goes away.
	ctx := context.WithoutCancel(r.Context())
	notice, err := s.app.Submit(ctx, clientIP, domain.ContactRecord{
		Name:    req.Name,
		Email:   req.Email,
		Message: req.Message,
	})
	var vErr *app.ValidationError
	switch {
	case err == nil:
		s.writeNotice(w, http.StatusOK, notice)
	case errors.As(err, &vErr):
		s.writeNotice(w, http.StatusBadRequest, notice)
	case errors.Is(err, app.ErrSubmitInFlight):
		writeError(w, http.StatusConflict, "a submission from this client is already in progress")
	default:
		s.writeNotice(w, http.StatusInternalServerError, notice)
	}
}

func (s *Server) allowRate(w http.ResponseWriter, r *http.Request, key string) bool {
	if s.limiter == nil {
		return true
	}
	d, err := s.limiter.Take(r.Context(), key)
	if err != nil {
		util.LoggerFromContext(r.Context()).Warn("rate limit check failed", "err", err)
	}
	if err == nil && d.Allowed {
		return true
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(d.RetryAfter)))
	writeError(w, http.StatusTooManyRequests, "too many submissions, please try again later")
	return false
}

func retryAfterSeconds(d time.Duration) int {
	if d <= 0 {
		return int(rateWindow.Seconds())
	}
	return int(math.Ceil(d.Seconds()))
}

func (s *Server) writeNotice(w http.ResponseWriter, status int, notice domain.OutcomeNotice) {
	writeJSON(w, status, contactResponse{
		Notice:         notice,
		DismissAfterMs: s.app.NoticeTTL().Milliseconds(),
	})
}

func methodNotAllowed(w http.ResponseWriter) {
	w.Header().Set("Allow", http.MethodPost)
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
