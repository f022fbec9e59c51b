// Package diagserver exposes a dispatcher's diagnostics over HTTP for
// operator inspection. It serves read-only JSON snapshots; nothing mounted
// here mutates dispatcher state.
package diagserver

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wowaddondeveloper/dispatch"
)

// Server wraps a dispatcher with an HTTP diagnostics surface.
type Server struct {
	dispatcher *dispatch.Dispatcher
	logger     dispatch.Logger
}

// New creates a diagnostics server for the given dispatcher.
func New(d *dispatch.Dispatcher, logger dispatch.Logger) *Server {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Server{dispatcher: d, logger: logger}
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Debug(string, ...any) {}

// Router builds the diagnostics route tree:
//
//	GET /diagnostics      full diagnostics report
//	GET /health           error rate, disabled callbacks, all health records
//	GET /health/{event}   one event's health record
//	GET /queue            queue statistics and queued items
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/diagnostics", s.handleDiagnostics)
	r.Get("/health", s.handleHealth)
	r.Get("/health/{event}", s.handleEventHealth)
	r.Get("/queue", s.handleQueue)
	return r
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.dispatcher.Report())
}

// healthResponse is the payload for GET /health.
type healthResponse struct {
	ErrorRate float64                 `json:"errorRate"`
	Disabled  []string                `json:"disabled"`
	Records   []dispatch.HealthRecord `json:"records"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, healthResponse{
		ErrorRate: s.dispatcher.ErrorRate(),
		Disabled:  s.dispatcher.DisabledCallbacks(),
		Records:   s.dispatcher.AllCallbackHealth(),
	})
}

func (s *Server) handleEventHealth(w http.ResponseWriter, r *http.Request) {
	event := chi.URLParam(r, "event")
	record, ok := s.dispatcher.CallbackHealth(event)
	if !ok {
		http.Error(w, "no health record for event", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, record)
}

// queueResponse is the payload for GET /queue.
type queueResponse struct {
	Size  int                  `json:"size"`
	Items []dispatch.QueueItem `json:"items"`
}

func (s *Server) handleQueue(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, queueResponse{
		Size:  s.dispatcher.QueueSize(),
		Items: s.dispatcher.QueuedItems(),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("Failed to encode diagnostics response", "error", err)
	}
}
