// Package http is the webhook front-end: it accepts updates from the chat
// platform, hands them to the bot and returns the replies.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"budgeter/internal/bot"
	"budgeter/internal/log"
	"budgeter/internal/middleware/ratelimit"
	"budgeter/internal/middleware/security"
	"budgeter/internal/middleware/trace"
)

const maxUpdateBytes = 64 << 10

// UpdateHandler processes one inbound update.
type UpdateHandler interface {
	Handle(ctx context.Context, u bot.Update) ([]bot.Message, error)
}

type Options struct {
	// RequestsPerMinute limits updates per client IP.
	RequestsPerMinute int
	// Ready reports whether dependencies are usable; nil means always ready.
	Ready func(ctx context.Context) error
}

type Server struct {
	http.Server
	updates  UpdateHandler
	ready    func(ctx context.Context) error
	limiter  *ratelimit.Limiter
	tracer   *trace.Middleware
	detector *security.Detector
	logger   *log.Logger

	shutdownOnce sync.Once
}

type updatesResponse struct {
	Messages []bot.Message `json:"messages"`
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, updates UpdateHandler, logger *log.Logger, opts Options) *Server {
	if logger == nil {
		logger = log.Discard()
	}
	s := &Server{
		updates:  updates,
		ready:    opts.Ready,
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RequestsPerMinute}),
		detector: security.NewDetector(logger),
		logger:   logger.WithComponent(log.ComponentHTTP),
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, logger)

	limited := s.limiter.Middleware(s.detector.ExtractClientIP, s.onLimit)

	mux := http.NewServeMux()
	mux.Handle("POST /v1/updates", limited(http.HandlerFunc(s.handleUpdate)))
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.detector.Middleware(s.tracer.Middleware(headers.Middleware(mux))),
		ReadHeaderTimeout: 10 * time.Second,
		// Updates wait on spreadsheet round-trips, retries included.
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}
	return s
}

// Shutdown stops the limiter and drains the server once.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.logTraffic(ctx)
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// logTraffic writes the middleware counters accumulated since start.
func (s *Server) logTraffic(ctx context.Context) {
	tm := s.tracer.GetMetrics()
	lm := s.limiter.GetMetrics()
	dm := s.detector.GetMetrics()
	s.logger.InfoContext(ctx, "http traffic",
		"requests", tm.TotalRequests,
		"failed", tm.FailedRequests,
		"avg_response_us", tm.AverageResponseTime,
		"rate_limited", lm.TotalHits,
		"active_clients", lm.ClientCount,
		"suspicious", dm.SuspiciousRequests,
		"blocked", dm.BlockedRequests)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx)

	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		writeError(w, r, http.StatusUnsupportedMediaType, "content type must be application/json")
		return
	}

	var u bot.Update
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUpdateBytes))
	if err := dec.Decode(&u); err != nil {
		logger.WarnContext(ctx, "bad update body", log.FieldError, err)
		writeError(w, r, http.StatusBadRequest, "body must be a JSON update")
		return
	}

	msgs, err := s.updates.Handle(ctx, u)
	switch {
	case errors.Is(err, bot.ErrInvalidUpdate):
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	case err != nil:
		logger.LogError(ctx, "update failed", err, "handle_update", log.NewFields().WithUser(u.UserID, u.ChatID))
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	if msgs == nil {
		msgs = []bot.Message{}
	}
	writeJSON(w, http.StatusOK, updatesResponse{Messages: msgs})
}

func (s *Server) onLimit(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "rate limit exceeded", log.FieldClientIP, s.detector.ExtractClientIP(r))
	w.Header().Set("Retry-After", "60")
	writeError(w, r, http.StatusTooManyRequests, "rate limit exceeded")
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "not ready", log.FieldError, err)
			writeError(w, r, http.StatusServiceUnavailable, "not ready")
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, RequestID: trace.GetRequestID(r.Context())})
}
