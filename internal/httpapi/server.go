// Package httpapi exposes a Runner over a small JSON API.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hupe1980/coopdesk/core"
	"github.com/hupe1980/coopdesk/logging"
	"github.com/hupe1980/coopdesk/runner"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 64 << 10

// Runner is the conversation surface served by the API.
type Runner interface {
	Chat(ctx context.Context, sessionID, text string) (runner.Reply, error)
	History(ctx context.Context, sessionID string) (*core.State, error)
	Reset(ctx context.Context, sessionID string) error
	Cancel(sessionID string) error
}

// Options configures the handler.
type Options struct {
	// Gatherer enables GET /metrics when set.
	Gatherer prometheus.Gatherer
	Logger   logging.Logger
	// Timeout bounds each request. 0 disables the bound.
	Timeout time.Duration
}

// MessageRequest is the body of POST /v1/sessions/{id}/messages.
type MessageRequest struct {
	Text string `json:"text"`
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error string `json:"error"`
}

type server struct {
	runner Runner
	logger logging.Logger
}

// NewHandler returns the API router:
//
//	POST   /v1/sessions/{id}/messages
//	GET    /v1/sessions/{id}
//	DELETE /v1/sessions/{id}
//	POST   /v1/sessions/{id}/cancel
//	GET    /healthz
//	GET    /metrics
func NewHandler(r Runner, optFns ...func(o *Options)) http.Handler {
	opts := Options{}

	for _, fn := range optFns {
		fn(&opts)
	}

	s := &server{runner: r, logger: logging.OrNoOp(opts.Logger)}

	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.Recoverer)
	mux.Use(s.accessLog)

	if opts.Timeout > 0 {
		mux.Use(middleware.Timeout(opts.Timeout))
	}

	mux.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if opts.Gatherer != nil {
		mux.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	mux.Route("/v1/sessions/{id}", func(r chi.Router) {
		r.Get("/", s.history)
		r.Delete("/", s.reset)
		r.Post("/messages", s.chat)
		r.Post("/cancel", s.cancel)
	})

	return mux
}

func (s *server) chat(w http.ResponseWriter, r *http.Request) {
	var body MessageRequest

	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reply, err := s.runner.Chat(r.Context(), chi.URLParam(r, "id"), body.Text)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, reply)
}

func (s *server) history(w http.ResponseWriter, r *http.Request) {
	state, err := s.runner.History(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, state)
}

func (s *server) reset(w http.ResponseWriter, r *http.Request) {
	if err := s.runner.Reset(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *server) cancel(w http.ResponseWriter, r *http.Request) {
	if err := s.runner.Cancel(chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

func (s *server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, runner.ErrEmptyMessage), errors.Is(err, runner.ErrInvalidSession):
		status = http.StatusBadRequest
	case errors.Is(err, core.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, runner.ErrNoActiveTurn):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("httpapi.request.error", "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "error", err)
		writeError(w, status, "internal error")

		return
	}

	writeError(w, status, err.Error())
}

func (s *server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		s.logger.Info(
			"httpapi.request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
