package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"contactdesk/internal/servicetoken"
	"contactdesk/internal/util"
	"contactdesk/pkg/queue"
	"contactdesk/pkg/store"
)

// JobSource reads outbox job status.
type JobSource interface {
	GetJob(ctx context.Context, jobID string) (queue.Job, bool, error)
	Ping(ctx context.Context) error
}

// Audience is the aud claim internal tokens must carry.
const Audience = "dispatch"

// Config wires required dependencies for the HTTP server.
type Config struct {
	Jobs  JobSource
	Store store.ContactStore

	InternalJWTPublicKeyPath    string
	InternalJWTKeyID            string
	InternalJWTVerifyPublicKeys map[string]string
	InternalJWTAllowedIssuers   []string
}

// Server exposes health and read-only status endpoints for the dispatch worker.
// Everything except /healthz requires an internal service token.
type Server struct {
	jobs         JobSource
	store        store.ContactStore
	internalAuth *servicetoken.Verifier
	mux          *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	verifier, err := servicetoken.NewVerifier(servicetoken.VerifierOptions{
		PublicKeyPath:  cfg.InternalJWTPublicKeyPath,
		KeyID:          cfg.InternalJWTKeyID,
		ExtraKeys:      cfg.InternalJWTVerifyPublicKeys,
		Audience:       Audience,
		AllowedIssuers: cfg.InternalJWTAllowedIssuers,
		Leeway:         servicetoken.DefaultLeeway,
	})
	if err != nil {
		return nil, fmt.Errorf("internal auth: %w", err)
	}
	s := &Server{
		jobs:         cfg.Jobs,
		store:        cfg.Store,
		internalAuth: verifier,
		mux:          http.NewServeMux(),
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	var h http.Handler = s.mux
	h = util.WithRequestLog("dispatch", nil, h)
	h = util.WithRequestID(h)
	return util.WithSecurityHeaders(h)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.Handle("/dispatch/jobs/", s.withInternal(s.handleJobByID))
	s.mux.Handle("/contact-messages", s.withInternal(s.handleMessages))
	s.mux.Handle("/contact-messages/", s.withInternal(s.handleMessageByID))
}

func (s *Server) withInternal(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.internalAuth == nil {
			writeError(w, http.StatusInternalServerError, "internal auth not configured")
			return
		}
		token, ok := servicetoken.BearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		claims, err := s.internalAuth.Verify(token)
		if err != nil {
			util.LoggerFromContext(r.Context()).Warn("internal token rejected", "path", r.URL.Path, "err", err)
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		logger := util.LoggerFromContext(r.Context()).With("caller", claims.Subject)
		next(w, r.WithContext(util.ContextWithLogger(r.Context(), logger)))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.jobs != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.jobs.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "redis": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleJobByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	if s.jobs == nil {
		writeError(w, http.StatusInternalServerError, "job source not configured")
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/dispatch/jobs/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	job, ok, err := s.jobs.GetJob(r.Context(), id)
	if err != nil {
		util.LoggerFromContext(r.Context()).Error("get job failed", "job_id", id, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to load job")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	msgs, err := s.store.ListContactMessages(r.Context(), limit)
	if err != nil {
		util.LoggerFromContext(r.Context()).Error("list contact messages failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to list messages")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": msgs, "count": len(msgs)})
}

func (s *Server) handleMessageByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/contact-messages/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	msg, ok, err := s.store.GetContactMessage(r.Context(), id)
	if err != nil {
		util.LoggerFromContext(r.Context()).Error("get contact message failed", "id", id, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to load message")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "message not found")
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

func methodNotAllowed(w http.ResponseWriter) {
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
