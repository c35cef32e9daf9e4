// Package handler exposes the audit trail over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"renoflow/internal/audit"
	"renoflow/internal/platform/middleware"
	id "renoflow/pkg/domain"
	dErrors "renoflow/pkg/domain-errors"
	"renoflow/pkg/platform/httputil"
	"renoflow/pkg/requestcontext"
)

// Trail is the query surface the handler reads.
type Trail interface {
	List(ctx context.Context, userID string) ([]audit.Event, error)
}

type Handler struct {
	trail        Trail
	logger       *slog.Logger
	jwtValidator middleware.JWTValidator
}

func New(trail Trail, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{trail: trail, logger: logger, jwtValidator: jwtValidator}
}

// Register mounts the audit routes.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		r.Get("/audit", h.handleListEvents)
	})
}

type eventResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Subject   string    `json:"subject,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

type eventsResponse struct {
	Events []eventResponse `json:"events"`
}

// handleListEvents returns the caller's own trail. Admins may read any
// user's trail through the user_id query parameter.
func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := requestcontext.Actor(ctx)
	if actor.UserID.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "no authenticated user"))
		return
	}

	target := actor.UserID.String()
	if requested := r.URL.Query().Get("user_id"); requested != "" && requested != target {
		if actor.Role != id.RoleAdmin {
			httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden,
				"only administrators may read another user's trail"))
			return
		}
		target = requested
	}

	events, err := h.trail.List(ctx, target)
	if err != nil {
		h.logger.ErrorContext(ctx, "list audit events failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	resp := eventsResponse{Events: make([]eventResponse, 0, len(events))}
	for _, event := range events {
		resp.Events = append(resp.Events, eventResponse{
			Timestamp: event.Timestamp,
			Action:    string(event.Action),
			Subject:   event.Subject,
			Detail:    event.Detail,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
