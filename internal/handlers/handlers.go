// Package handlers provides the HTTP JSON API for smoothscroll.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Rorqualx/smoothscroll-go/internal/config"
	"github.com/Rorqualx/smoothscroll-go/internal/easing"
	"github.com/Rorqualx/smoothscroll-go/internal/presets"
	"github.com/Rorqualx/smoothscroll-go/internal/scroll"
	"github.com/Rorqualx/smoothscroll-go/internal/security"
	"github.com/Rorqualx/smoothscroll-go/internal/session"
	"github.com/Rorqualx/smoothscroll-go/internal/types"
	"github.com/Rorqualx/smoothscroll-go/pkg/version"
)

// maxBodySize bounds request bodies.
const maxBodySize = 1 << 20

// Runner runs fn on the scheduler goroutine and waits for it.
type Runner interface {
	Do(ctx context.Context, fn func()) error
}

// Handler handles all smoothscroll API requests.
type Handler struct {
	sessions *session.Manager
	runner   Runner
	config   *config.Config
}

// New creates a new Handler. Scroll sessions are only touched through runner.
func New(sessions *session.Manager, runner Runner, cfg *config.Config) *Handler {
	return &Handler{
		sessions: sessions,
		runner:   runner,
		config:   cfg,
	}
}

// ServeHTTP routes /health and the POST API endpoint.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/health":
		h.HandleHealth(w, r)
	case "/", "/v1":
		if r.Method != http.MethodPost {
			h.HandleMethodNotAllowed(w, r)
			return
		}
		h.HandleAPI(w, r)
	default:
		h.HandleNotFound(w, r)
	}
}

// HandleHealth reports readiness and the number of open sessions.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	resp := types.Response{
		Status:    types.StatusOK,
		Message:   "smoothscroll is ready",
		StartTime: startTime.UnixMilli(),
		EndTime:   time.Now().UnixMilli(),
		Version:   version.Full(),
		Sessions:  h.sessions.List(),
	}
	h.writeJSONResponse(w, http.StatusOK, resp)
}

// HandleAPI handles the main API endpoint.
func (h *Handler) HandleAPI(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	defer r.Body.Close()

	buf := getBuffer()
	defer putBuffer(buf)

	if _, err := io.Copy(buf, r.Body); err != nil {
		log.Warn().Err(err).Msg("Failed to read request body")
		h.writeErrorWithStatus(w, http.StatusRequestEntityTooLarge, "Failed to read request", startTime)
		return
	}

	var req types.Request
	if err := json.Unmarshal(buf.Bytes(), &req); err != nil {
		log.Warn().Err(err).Msg("Failed to decode request")
		h.writeErrorWithStatus(w, http.StatusBadRequest, "Invalid JSON request", startTime)
		return
	}

	log.Info().
		Str("cmd", req.Cmd).
		Str("url", security.RedactURL(req.URL)).
		Str("session", req.Session).
		Str("selector", req.Selector).
		Msg("Request received")

	resp, err := h.routeCommand(r.Context(), &req)
	if err != nil {
		log.Warn().Err(err).Str("cmd", req.Cmd).Str("session", req.Session).Msg("Command failed")
		h.writeErrorWithStatus(w, statusFor(err), err.Error(), startTime)
		return
	}

	resp.Status = types.StatusOK
	resp.StartTime = startTime.UnixMilli()
	resp.EndTime = time.Now().UnixMilli()
	resp.Version = version.Full()
	h.writeJSONResponse(w, http.StatusOK, resp)
}

// HandleMethodNotAllowed handles requests with unsupported HTTP methods.
func (h *Handler) HandleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", http.MethodPost)
	h.writeErrorWithStatus(w, http.StatusMethodNotAllowed, "Method not allowed", time.Now())
}

// HandleNotFound handles requests to unknown paths.
func (h *Handler) HandleNotFound(w http.ResponseWriter, r *http.Request) {
	h.writeErrorWithStatus(w, http.StatusNotFound, "Not found", time.Now())
}

// statusFor maps command errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrSessionNotFound),
		errors.Is(err, types.ErrContainerNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrSessionAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, types.ErrTooManySessions):
		return http.StatusTooManyRequests
	case errors.Is(err, types.ErrInvalidRequest),
		errors.Is(err, types.ErrInvalidCommand),
		errors.Is(err, types.ErrInvalidURL),
		errors.Is(err, types.ErrURLRequired),
		errors.Is(err, types.ErrSessionRequired),
		errors.Is(err, scroll.ErrInvalidDuration),
		errors.Is(err, scroll.ErrInvalidTarget),
		errors.Is(err, easing.ErrInvalidEasing),
		errors.Is(err, presets.ErrUnknownPreset):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrBrowserPoolTimeout),
		errors.Is(err, types.ErrShuttingDown):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeErrorWithStatus writes an error response with a specific HTTP status code.
func (h *Handler) writeErrorWithStatus(w http.ResponseWriter, statusCode int, message string, startTime time.Time) {
	resp := types.Response{
		Status:    types.StatusError,
		Message:   message,
		StartTime: startTime.UnixMilli(),
		EndTime:   time.Now().UnixMilli(),
		Version:   version.Full(),
	}
	h.writeJSONResponse(w, statusCode, resp)
}

// writeJSONResponse encodes into a buffer first so encoding errors are caught
// before headers are sent.
func (h *Handler) writeJSONResponse(w http.ResponseWriter, statusCode int, resp interface{}) {
	buf := getResponseBuffer()
	defer putResponseBuffer(buf)

	if err := json.NewEncoder(buf).Encode(resp); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"status":"error","message":"internal encoding error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write(buf.Bytes())
}
