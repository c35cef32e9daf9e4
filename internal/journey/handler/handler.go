// Package handler exposes the citizen's journey over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"renoflow/internal/journey"
	"renoflow/internal/platform/middleware"
	id "renoflow/pkg/domain"
	dErrors "renoflow/pkg/domain-errors"
	"renoflow/pkg/platform/httputil"
	"renoflow/pkg/requestcontext"
)

// Service is the journey surface the handler reads.
type Service interface {
	GetOrCreate(ctx context.Context, userID id.UserID) (*journey.Journey, error)
}

type Handler struct {
	journeys     Service
	logger       *slog.Logger
	jwtValidator middleware.JWTValidator
}

func New(journeys Service, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{journeys: journeys, logger: logger, jwtValidator: jwtValidator}
}

// Register mounts the journey routes.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		r.Get("/journey", h.handleGetJourney)
	})
}

type journeyResponse struct {
	Step        string              `json:"step"`
	Status      string              `json:"status"`
	Completed   bool                `json:"completed"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
	Actions     journey.NextActions `json:"actions"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

func (h *Handler) handleGetJourney(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := requestcontext.Actor(ctx)
	if actor.UserID.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "no authenticated user"))
		return
	}

	j, err := h.journeys.GetOrCreate(ctx, actor.UserID)
	if err != nil {
		h.logger.ErrorContext(ctx, "load journey failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, journeyResponse{
		Step:        j.Step.String(),
		Status:      j.Status.String(),
		Completed:   j.Completed(),
		CompletedAt: j.CompletedAt,
		Actions:     j.Actions(),
		UpdatedAt:   j.UpdatedAt,
	})
}
