// Package handler exposes the AMO validation workflow over HTTP: company
// discovery and selection for citizens, token introspection and decisions for
// assistance companies.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"renoflow/internal/amo"
	"renoflow/internal/amo/service"
	"renoflow/internal/platform/middleware"
	id "renoflow/pkg/domain"
	dErrors "renoflow/pkg/domain-errors"
	"renoflow/pkg/platform/httputil"
	"renoflow/pkg/requestcontext"
)

// Service is the workflow surface the handler drives.
type Service interface {
	Discover(ctx context.Context, userID id.UserID) ([]*amo.Company, error)
	SelectCompany(ctx context.Context, userID id.UserID, input service.SelectionInput) (*service.SelectionResult, error)
	Validation(ctx context.Context, userID id.UserID) (*amo.ValidationRecord, error)
	Introspect(ctx context.Context, tokenValue string) (*service.TokenIntrospection, error)
	Approve(ctx context.Context, actor id.Identity, tokenValue, comment string) (*amo.ValidationRecord, error)
	RejectEligibility(ctx context.Context, actor id.Identity, tokenValue, comment string) (*amo.ValidationRecord, error)
	RejectAssistance(ctx context.Context, actor id.Identity, tokenValue, comment string) (*amo.ValidationRecord, error)
}

type Handler struct {
	svc          Service
	logger       *slog.Logger
	jwtValidator middleware.JWTValidator
}

func New(svc Service, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{svc: svc, logger: logger, jwtValidator: jwtValidator}
}

// Register mounts the AMO routes.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))

		r.Get("/amo/companies", h.handleDiscover)
		r.Post("/amo/selection", h.handleSelect)
		r.Get("/amo/validation", h.handleValidation)

		r.Get("/amo/tokens/{token}", h.handleIntrospect)
		r.Post("/amo/tokens/{token}/approve", h.decisionHandler(h.svc.Approve))
		r.Post("/amo/tokens/{token}/reject-eligibility", h.decisionHandler(h.svc.RejectEligibility))
		r.Post("/amo/tokens/{token}/reject-assistance", h.decisionHandler(h.svc.RejectAssistance))
	})
}

type companyResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Phone     string `json:"phone,omitempty"`
	Address   string `json:"address,omitempty"`
	Perimeter string `json:"perimeter,omitempty"`
}

func (h *Handler) handleDiscover(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := requestcontext.Actor(ctx)
	if actor.UserID.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "no authenticated user"))
		return
	}

	companies, err := h.svc.Discover(ctx, actor.UserID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result := make([]companyResponse, 0, len(companies))
	for _, company := range companies {
		result = append(result, companyResponse{
			ID:        company.ID.String(),
			Name:      company.Name,
			Phone:     company.Phone,
			Address:   company.Address,
			Perimeter: company.Perimeter,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"companies": result})
}

type selectionRequest struct {
	CompanyID       string `json:"company_id"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	ContactEmail    string `json:"contact_email"`
	ContactPhone    string `json:"contact_phone"`
	DwellingAddress string `json:"dwelling_address"`
}

type validationResponse struct {
	ValidationID string     `json:"validation_id"`
	CompanyID    string     `json:"company_id"`
	Status       string     `json:"status"`
	Comment      string     `json:"comment,omitempty"`
	DecidedAt    *time.Time `json:"decided_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func toValidationResponse(record *amo.ValidationRecord) validationResponse {
	return validationResponse{
		ValidationID: record.ID.String(),
		CompanyID:    record.CompanyID.String(),
		Status:       record.Status.String(),
		Comment:      record.Comment,
		DecidedAt:    record.DecidedAt,
		CreatedAt:    record.CreatedAt,
	}
}

func (h *Handler) handleSelect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := requestcontext.Actor(ctx)
	if actor.UserID.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "no authenticated user"))
		return
	}

	var req selectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	companyID, err := id.ParseCompanyID(req.CompanyID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.svc.SelectCompany(ctx, actor.UserID, service.SelectionInput{
		CompanyID:       companyID,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		ContactEmail:    req.ContactEmail,
		ContactPhone:    req.ContactPhone,
		DwellingAddress: req.DwellingAddress,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "company selection declined",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toValidationResponse(result.Record))
}

func (h *Handler) handleValidation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := requestcontext.Actor(ctx)
	if actor.UserID.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "no authenticated user"))
		return
	}

	record, err := h.svc.Validation(ctx, actor.UserID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toValidationResponse(record))
}

type introspectionResponse struct {
	ValidationID    string     `json:"validation_id"`
	Status          string     `json:"status"`
	Comment         string     `json:"comment,omitempty"`
	DecidedAt       *time.Time `json:"decided_at,omitempty"`
	CompanyID       string     `json:"company_id"`
	CompanyName     string     `json:"company_name,omitempty"`
	FirstName       string     `json:"first_name,omitempty"`
	LastName        string     `json:"last_name,omitempty"`
	DwellingAddress string     `json:"dwelling_address,omitempty"`
	ExpiresAt       time.Time  `json:"expires_at"`
	Consumed        bool       `json:"consumed"`
}

func (h *Handler) handleIntrospect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	view, err := h.svc.Introspect(ctx, chi.URLParam(r, "token"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, introspectionResponse{
		ValidationID:    view.ValidationID.String(),
		Status:          view.Status.String(),
		Comment:         view.Comment,
		DecidedAt:       view.DecidedAt,
		CompanyID:       view.CompanyID.String(),
		CompanyName:     view.CompanyName,
		FirstName:       view.FirstName,
		LastName:        view.LastName,
		DwellingAddress: view.DwellingAddress,
		ExpiresAt:       view.ExpiresAt,
		Consumed:        view.Consumed,
	})
}

type decisionRequest struct {
	Comment string `json:"comment"`
}

type decisionFunc func(ctx context.Context, actor id.Identity, tokenValue, comment string) (*amo.ValidationRecord, error)

func (h *Handler) decisionHandler(decide decisionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actor := requestcontext.Actor(ctx)

		var req decisionRequest
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
				return
			}
		}

		record, err := decide(ctx, actor, chi.URLParam(r, "token"), req.Comment)
		if err != nil {
			// An advancement failure carries the committed decision with it.
			if dErrors.HasCode(err, dErrors.CodeAdvancementFailed) && record != nil {
				h.logger.ErrorContext(ctx, "decision recorded but journey stuck",
					"request_id", requestcontext.RequestID(ctx),
					"validation_id", record.ID.String(),
					"error", err,
				)
			} else {
				h.logger.WarnContext(ctx, "decision declined",
					"request_id", requestcontext.RequestID(ctx),
					"error", err,
				)
			}
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, toValidationResponse(record))
	}
}
