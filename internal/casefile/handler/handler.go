// Package handler exposes the case-file operations over HTTP: opening the
// current step's file and refreshing its external status.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"renoflow/internal/casefile"
	"renoflow/internal/platform/middleware"
	id "renoflow/pkg/domain"
	dErrors "renoflow/pkg/domain-errors"
	"renoflow/pkg/platform/httputil"
	"renoflow/pkg/requestcontext"
)

// Bridge is the case-file surface the handler drives.
type Bridge interface {
	FileStep(ctx context.Context, userID id.UserID, data map[string]string) (*casefile.CaseFile, error)
	File(ctx context.Context, userID id.UserID) (*casefile.CaseFile, error)
	Sync(ctx context.Context, userID id.UserID) (casefile.SyncResult, error)
}

type Handler struct {
	bridge       Bridge
	logger       *slog.Logger
	jwtValidator middleware.JWTValidator
}

func New(bridge Bridge, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{bridge: bridge, logger: logger, jwtValidator: jwtValidator}
}

// Register mounts the case-file routes.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		r.Post("/journey/file", h.handleFileStep)
		r.Get("/journey/file", h.handleGetFile)
		r.Post("/journey/file/sync", h.handleSync)
	})
}

type fileStepRequest struct {
	Data map[string]string `json:"data"`
}

type fileResponse struct {
	Step        string     `json:"step"`
	FileNumber  string     `json:"file_number"`
	URL         string     `json:"url"`
	LastStatus  string     `json:"last_status"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}

func toFileResponse(file *casefile.CaseFile) fileResponse {
	return fileResponse{
		Step:        file.Step.String(),
		FileNumber:  file.FileNumber,
		URL:         file.URL,
		LastStatus:  file.LastStatus.String(),
		SubmittedAt: file.SubmittedAt,
		ProcessedAt: file.ProcessedAt,
	}
}

func (h *Handler) handleFileStep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := requestcontext.Actor(ctx)
	if actor.UserID.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "no authenticated user"))
		return
	}

	var req fileStepRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
			return
		}
	}

	file, err := h.bridge.FileStep(ctx, actor.UserID, req.Data)
	if err != nil {
		h.logger.WarnContext(ctx, "file step failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toFileResponse(file))
}

func (h *Handler) handleGetFile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := requestcontext.Actor(ctx)
	if actor.UserID.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "no authenticated user"))
		return
	}

	file, err := h.bridge.File(ctx, actor.UserID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toFileResponse(file))
}

type syncResponse struct {
	Result string `json:"result"`
}

func (h *Handler) handleSync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := requestcontext.Actor(ctx)
	if actor.UserID.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "no authenticated user"))
		return
	}

	result, err := h.bridge.Sync(ctx, actor.UserID)
	if err != nil {
		h.logger.WarnContext(ctx, "sync failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, syncResponse{Result: string(result)})
}
