// Package server exposes ticket resolution over HTTP. The external contract
// is the three-field response only; pipeline diagnostics never cross this
// boundary.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/sweetpotato0/support-assistant/contrib/audit/mongo"
	"github.com/sweetpotato0/support-assistant/pkg/logging"
	"github.com/sweetpotato0/support-assistant/rag/pipeline"
	"github.com/sweetpotato0/support-assistant/schema"
)

const serviceVersion = "1.0.0"

// Resolver runs a ticket through the resolution pipeline.
type Resolver interface {
	Resolve(ctx context.Context, ticket string) (*pipeline.Resolution, error)
}

// Cache stores validated responses keyed by ticket. A nil cache disables
// caching.
type Cache interface {
	Get(ctx context.Context, ticket string) (*schema.Response, error)
	Put(ctx context.Context, ticket string, resp *schema.Response) error
}

// Auditor records finished resolutions. A nil auditor disables auditing.
type Auditor interface {
	Record(ctx context.Context, rec *mongo.Record) error
}

// Server is the HTTP front end.
type Server struct {
	resolver Resolver
	cache    Cache
	auditor  Auditor
	logger   *slog.Logger
	server   *http.Server
}

// Option customises the server.
type Option func(*Server)

// WithCache enables the resolution cache.
func WithCache(cache Cache) Option {
	return func(s *Server) {
		s.cache = cache
	}
}

// WithAuditor enables the resolution audit trail.
func WithAuditor(auditor Auditor) Option {
	return func(s *Server) {
		s.auditor = auditor
	}
}

// New creates the HTTP server listening on addr.
func New(addr string, resolver Resolver, opts ...Option) *Server {
	s := &Server{
		resolver: resolver,
		logger:   logging.WithComponent("server"),
	}
	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/resolve-ticket", s.handleResolveTicket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/", s.handleRoot)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start serves until the listener fails or Stop is called.
func (s *Server) Start() error {
	s.logger.Info("listening", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler exposes the route table, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

type errorResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	StatusCode int    `json:"status_code"`
}

func (s *Server) handleResolveTicket(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "only POST is supported")
		return
	}

	var req schema.TicketRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	s.logger.Info("received ticket", "ticket_length", len(req.TicketText))

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, req.TicketText)
		if err != nil {
			s.logger.Warn("cache lookup failed", "error", err)
		} else if cached != nil {
			s.logger.Info("ticket resolved from cache")
			s.audit(ctx, req.TicketText, cached, nil, true, 0)
			s.writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	start := time.Now()
	result, err := s.resolver.Resolve(ctx, req.TicketText)
	duration := time.Since(start)
	if err != nil {
		var verr *schema.ValidationError
		if errors.As(err, &verr) {
			s.logger.Error("response failed validation", "field", verr.Field, "error", err)
		} else {
			s.logger.Error("ticket resolution failed", "error", err)
		}
		s.writeError(w, http.StatusInternalServerError, "Failed to resolve support ticket")
		return
	}

	resp := result.Response
	s.logger.Info("ticket resolved",
		"answer_length", len(resp.Answer),
		"num_references", len(resp.References),
		"action_required", resp.ActionRequired,
		"duration", duration)

	if s.cache != nil {
		if err := s.cache.Put(ctx, req.TicketText, &resp); err != nil {
			s.logger.Warn("cache store failed", "error", err)
		}
	}
	s.audit(ctx, req.TicketText, &resp, result, false, duration)

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) audit(ctx context.Context, ticket string, resp *schema.Response, result *pipeline.Resolution, cached bool, duration time.Duration) {
	if s.auditor == nil {
		return
	}
	rec := &mongo.Record{
		Ticket:   ticket,
		Response: *resp,
		Cached:   cached,
		Duration: duration,
	}
	if result != nil {
		rec.RewrittenQueries = result.RewrittenQueries
		rec.Quality = string(result.Aggregate.Quality)
	}
	if err := s.auditor.Record(ctx, rec); err != nil {
		s.logger.Warn("audit record failed", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "only GET is supported")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.writeError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "only GET is supported")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"service": "Support Knowledge Assistant",
		"status":  "running",
		"version": serviceVersion,
		"health":  "/health",
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	s.writeJSON(w, statusCode, errorResponse{
		Error:      http.StatusText(statusCode),
		Message:    message,
		StatusCode: statusCode,
	})
}
