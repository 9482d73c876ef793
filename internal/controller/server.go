package controller

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"golddust/internal/addrutil"
	"golddust/internal/api"
	"golddust/internal/health"
	"golddust/internal/router"
)

// Server exposes routing decisions over HTTP.
type Server struct {
	listen string
	logger *slog.Logger

	mu     sync.RWMutex
	active *lease
}

// NewServer constructs a decision server backed by source.
func NewServer(listen string, source health.Source, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "controller")
	return &Server{
		listen: listen,
		logger: logger,
		active: newLease(source, logger),
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/decide", s.handleDecide)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// ListenAndServe runs until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("decision API listening", "addr", s.listen, "source", s.Source().Name())
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return ctx.Err()
}

// Source returns the active snapshot source.
func (s *Server) Source() health.Source {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active.src
}

// SetSource swaps the active source. The previous one is closed after the
// requests still using it finish.
func (s *Server) SetSource(src health.Source) {
	s.mu.Lock()
	prev := s.active
	if prev.src == src {
		s.mu.Unlock()
		return
	}
	s.active = newLease(src, s.logger)
	s.mu.Unlock()

	prev.retire()
}

// Close retires the active source.
func (s *Server) Close() {
	s.mu.RLock()
	l := s.active
	s.mu.RUnlock()
	l.retire()
}

// acquire pins the active source for one request.
func (s *Server) acquire() *lease {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.active.acquire()
	return s.active
}

type evaluation struct {
	source   string
	set      router.SnapshotSet
	decision router.Decision
	// err is the decision error, nil or router.ErrNoBackendsAvailable.
	err error
}

// evaluate fetches snapshots and runs the engine. The returned error is a source failure.
func (s *Server) evaluate(ctx context.Context) (evaluation, error) {
	l := s.acquire()
	defer l.release()

	name := l.src.Name()
	set, err := l.src.Snapshots(ctx)
	if err != nil {
		observeDecision(router.Decision{}, err)
		return evaluation{source: name}, err
	}
	observeSet(set)

	d, derr := router.Decide(set)
	observeDecision(d, derr)
	return evaluation{source: name, set: set, decision: d, err: derr}, nil
}

func (s *Server) handleDecide(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	w.Header().Set("X-Request-Id", requestID)
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, requestID, "method not allowed")
		return
	}

	target, err := addrutil.NormalizeTarget(r.URL.Query().Get("target"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, requestID, err.Error())
		return
	}

	logger := s.logger.With("request_id", requestID, "target", target)
	ev, err := s.evaluate(r.Context())
	d := ev.decision
	switch {
	case err != nil:
		logger.Error("snapshot source failed", "source", ev.source, "error", err)
		writeJSONError(w, http.StatusInternalServerError, requestID, err.Error())
	case errors.Is(ev.err, router.ErrNoBackendsAvailable):
		logger.Warn("no backend available")
		writeJSONError(w, http.StatusServiceUnavailable, requestID, ev.err.Error())
	default:
		logger.Debug("routing decision", "backend_id", d.BackendID, "kind", d.Kind.String(), "reason", d.Reason.String())
		writeJSON(w, http.StatusOK, api.NewDecisionResponse(requestID, target, d, nil))
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	w.Header().Set("X-Request-Id", requestID)
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, requestID, "method not allowed")
		return
	}

	ev, err := s.evaluate(r.Context())
	if err != nil {
		s.logger.Error("snapshot source failed", "request_id", requestID, "source", ev.source, "error", err)
		writeJSONError(w, http.StatusInternalServerError, requestID, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, api.StatusResponse{
		RequestID: requestID,
		Source:    ev.source,
		Backends:  api.BackendsFromSet(ev.set),
		Decision:  api.NewDecisionResponse(requestID, "", ev.decision, ev.err),
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	_ = encoder.Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, requestID, message string) {
	writeJSON(w, status, api.ErrorResponse{RequestID: requestID, Error: message})
}
