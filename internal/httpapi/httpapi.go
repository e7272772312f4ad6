// Package httpapi exposes the send pipeline over HTTP: message submission,
// message lookup, delivery log queries, and health probes.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/szhangbiao/mailsend/internal/core"
	"github.com/szhangbiao/mailsend/internal/maillog"
)

// Sender sends email and looks up sent messages.
type Sender interface {
	Send(ctx context.Context, email *core.Email) (*core.SendResult, error)
	GetMessage(ctx context.Context, id string) (*core.MessageDetails, error)
}

// LogStore records and queries delivery log entries.
type LogStore interface {
	Record(ctx context.Context, entry maillog.Entry) error
	List(ctx context.Context, filter maillog.Filter) ([]maillog.Entry, error)
}

// Handler serves the mailsend HTTP API.
type Handler struct {
	sender  Sender
	senders map[string]Sender
	logs    LogStore
	log     *slog.Logger
}

// NewHandler creates an API handler around a default sender. logs may be
// nil: delivery logging is then disabled and /v1/logs answers 404.
func NewHandler(sender Sender, logs LogStore, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		sender:  sender,
		senders: make(map[string]Sender),
		logs:    logs,
		log:     log,
	}
}

// RegisterSender makes an additional named sender selectable through the
// request's "provider" field. Requests without that field use the default.
func (h *Handler) RegisterSender(name string, sender Sender) {
	h.senders[name] = sender
}

// Routes builds the HTTP router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.health)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/messages", h.sendMessage)
		r.Get("/messages/{id}", h.getMessage)
		if h.logs != nil {
			r.Get("/logs", h.listLogs)
		}
	})

	return r
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) sendMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		core.Email
		Provider string `json:"provider,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	email := req.Email

	sender := h.sender
	if req.Provider != "" {
		s, ok := h.senders[req.Provider]
		if !ok {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unknown provider: " + req.Provider})
			return
		}
		sender = s
	}

	ctx := r.Context()
	result, err := sender.Send(ctx, &email)
	h.recordDelivery(ctx, &email, result, err)

	if err != nil {
		h.log.Error("send failed",
			"to", email.To,
			"error", err,
			"request_id", middleware.GetReqID(ctx),
		)
		writeError(w, err)
		return
	}

	h.log.Info("message sent",
		"to", email.To,
		"provider", result.Provider,
		"message_id", result.MessageID,
		"request_id", middleware.GetReqID(ctx),
	)
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) getMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	details, err := h.sender.GetMessage(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, details)
}

func (h *Handler) listLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := maillog.Filter{
		Recipient: q.Get("recipient"),
		Provider:  q.Get("provider"),
		Status:    q.Get("status"),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
			return
		}
		filter.Limit = n
	}
	if v := q.Get("since"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "since must be an RFC 3339 timestamp"})
			return
		}
		filter.Since = ts
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "offset must be a non-negative integer"})
			return
		}
		filter.Offset = n
	}

	entries, err := h.logs.List(r.Context(), filter)
	if err != nil {
		h.log.Error("list delivery log failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to query delivery log"})
		return
	}
	if entries == nil {
		entries = []maillog.Entry{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// recordDelivery writes the delivery log entry for a send attempt. Logging
// is best effort: a log write failure never fails a send that the provider
// already accepted.
func (h *Handler) recordDelivery(ctx context.Context, email *core.Email, result *core.SendResult, sendErr error) {
	if h.logs == nil {
		return
	}

	entry := maillog.Entry{
		Recipient: email.To,
		Subject:   email.Subject,
		Status:    maillog.StatusSent,
		CreatedAt: time.Now().UTC(),
	}
	if result != nil {
		entry.Provider = result.Provider
		entry.MessageID = result.MessageID
		entry.ThreadID = result.ThreadID
	}
	if sendErr != nil {
		entry.Status = maillog.StatusFailed
		entry.Error = sendErr.Error()
	}

	if err := h.logs.Record(ctx, entry); err != nil {
		h.log.Warn("delivery log write failed",
			"to", email.To,
			"status", entry.Status,
			"error", err,
		)
	}
}

// writeError maps the error taxonomy onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	var (
		validationErr  *core.ValidationError
		unsupportedErr *core.UnsupportedOperationError
		timeoutErr     *core.TimeoutError
	)
	switch {
	case errors.As(err, &validationErr):
		status = http.StatusBadRequest
	case errors.As(err, &unsupportedErr):
		status = http.StatusNotImplemented
	case errors.As(err, &timeoutErr):
		status = http.StatusGatewayTimeout
	case isUpstreamError(err):
		status = http.StatusBadGateway
	}

	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// isUpstreamError reports whether the failure originated at the provider
// rather than inside this service.
func isUpstreamError(err error) bool {
	var (
		transportErr *core.TransportError
		exchangeErr  *core.TokenExchangeError
		emptyErr     *core.EmptyResponseError
		invalidErr   *core.InvalidResponseError
	)
	return errors.As(err, &transportErr) ||
		errors.As(err, &exchangeErr) ||
		errors.As(err, &emptyErr) ||
		errors.As(err, &invalidErr)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
