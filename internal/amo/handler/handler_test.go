package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"renoflow/internal/amo"
	"renoflow/internal/amo/service"
	"renoflow/internal/journey"
	jwttoken "renoflow/internal/jwt_token"
	"renoflow/internal/mailer"
	"renoflow/internal/territory"
	"renoflow/internal/users"
	id "renoflow/pkg/domain"
)

type fixture struct {
	router    chi.Router
	jwt       *jwttoken.JWTService
	companies *amo.InMemoryCompanyStore
	profiles  *users.InMemoryStore
	mail      *mailer.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.Default()

	companies := amo.NewInMemoryCompanyStore()
	validations := amo.NewInMemoryValidationStore()
	tokens := amo.NewInMemoryTokenStore()
	profiles := users.NewInMemoryStore()
	mail := &mailer.Recorder{}

	journeys, err := journey.NewService(journey.NewInMemoryStore(), journey.DefaultConfig(), logger, nil)
	require.NoError(t, err)
	engine, err := territory.NewEngine(companies)
	require.NoError(t, err)

	svc, err := service.New(validations, tokens, companies, journeys, engine,
		users.NewDirectory(profiles), mail, nil, nil, logger, service.DefaultConfig())
	require.NoError(t, err)

	jwtSvc := jwttoken.NewJWTService("test-signing-key", "renoflow", "renoflow")
	router := chi.NewRouter()
	New(svc, logger, jwtSvc).Register(router)

	return &fixture{
		router:    router,
		jwt:       jwtSvc,
		companies: companies,
		profiles:  profiles,
		mail:      mail,
	}
}

func (f *fixture) seedCompany(t *testing.T) *amo.Company {
	t.Helper()
	company := &amo.Company{
		ID:        id.NewCompanyID(),
		Name:      "Habitat Conseil",
		Email:     "contact@habitat-conseil.example",
		Perimeter: "Paris (75)",
	}
	require.NoError(t, f.companies.Save(context.Background(), company))
	return company
}

func (f *fixture) seedCitizen(t *testing.T, commune string) id.UserID {
	t.Helper()
	userID := id.NewUserID()
	require.NoError(t, f.profiles.Save(context.Background(), &users.Profile{
		UserID:      userID,
		CommuneCode: commune,
	}))
	return userID
}

func (f *fixture) tokenFor(t *testing.T, actor id.Identity) string {
	t.Helper()
	token, err := f.jwt.GenerateSessionToken(actor, time.Hour)
	require.NoError(t, err)
	return token
}

func (f *fixture) do(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func selectionBody(companyID string) map[string]string {
	return map[string]string{
		"company_id":       companyID,
		"first_name":       "Jeanne",
		"last_name":        "Martin",
		"contact_email":    "jeanne.martin@example.org",
		"contact_phone":    "0601020304",
		"dwelling_address": "12 rue de la Paix, Paris",
	}
}

func TestAuthRequired(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/amo/companies", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDiscoverAndSelect(t *testing.T) {
	f := newFixture(t)
	company := f.seedCompany(t)
	userID := f.seedCitizen(t, "75001")
	bearer := f.tokenFor(t, id.Identity{UserID: userID, Role: id.RoleApplicant})

	rec := f.do(t, http.MethodGet, "/amo/companies", bearer, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var listResp struct {
		Companies []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"companies"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&listResp))
	require.Len(t, listResp.Companies, 1)
	require.Equal(t, company.ID.String(), listResp.Companies[0].ID)

	rec = f.do(t, http.MethodPost, "/amo/selection", bearer, selectionBody(company.ID.String()))
	require.Equal(t, http.StatusCreated, rec.Code)

	var selResp struct {
		ValidationID string `json:"validation_id"`
		Status       string `json:"status"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&selResp))
	require.Equal(t, "pending", selResp.Status)
	require.NotEmpty(t, selResp.ValidationID)
	require.Len(t, f.mail.Sent, 1)

	rec = f.do(t, http.MethodGet, "/amo/validation", bearer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestSelectValidationErrors(t *testing.T) {
	f := newFixture(t)
	company := f.seedCompany(t)
	userID := f.seedCitizen(t, "75001")
	bearer := f.tokenFor(t, id.Identity{UserID: userID, Role: id.RoleApplicant})

	t.Run("malformed company id", func(t *testing.T) {
		body := selectionBody("not-a-uuid")
		rec := f.do(t, http.MethodPost, "/amo/selection", bearer, body)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing field", func(t *testing.T) {
		body := selectionBody(company.ID.String())
		body["first_name"] = ""
		rec := f.do(t, http.MethodPost, "/amo/selection", bearer, body)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("outside coverage", func(t *testing.T) {
		outside := f.seedCitizen(t, "36006")
		outsideBearer := f.tokenFor(t, id.Identity{UserID: outside, Role: id.RoleApplicant})
		rec := f.do(t, http.MethodPost, "/amo/selection", outsideBearer, selectionBody(company.ID.String()))
		require.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestDecisionFlow(t *testing.T) {
	f := newFixture(t)
	company := f.seedCompany(t)
	userID := f.seedCitizen(t, "75001")
	citizen := f.tokenFor(t, id.Identity{UserID: userID, Role: id.RoleApplicant})

	rec := f.do(t, http.MethodPost, "/amo/selection", citizen, selectionBody(company.ID.String()))
	require.Equal(t, http.StatusCreated, rec.Code)

	require.Len(t, f.mail.Sent, 1)
	decisionURL := f.mail.Sent[0].Data.DecisionURL
	link := decisionURL[len(decisionURL)-36:]

	agent := f.tokenFor(t, id.Identity{UserID: id.NewUserID(), Role: id.RoleAMO, CompanyID: company.ID})

	t.Run("introspect", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/amo/tokens/"+link, agent, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var view struct {
			FirstName string `json:"first_name"`
			Consumed  bool   `json:"consumed"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&view))
		require.Equal(t, "Jeanne", view.FirstName)
		require.False(t, view.Consumed)
	})

	t.Run("short rejection comment", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/amo/tokens/"+link+"/reject-eligibility", agent,
			map[string]string{"comment": "Court"})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("foreign agent forbidden", func(t *testing.T) {
		foreign := f.tokenFor(t, id.Identity{UserID: id.NewUserID(), Role: id.RoleAMO, CompanyID: id.NewCompanyID()})
		rec := f.do(t, http.MethodPost, "/amo/tokens/"+link+"/approve", foreign,
			map[string]string{"comment": "ok"})
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("approve", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/amo/tokens/"+link+"/approve", agent,
			map[string]string{"comment": "dossier conforme"})
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Status string `json:"status"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		require.Equal(t, "eligible", resp.Status)
	})

	t.Run("replay is gone", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/amo/tokens/"+link+"/approve", agent,
			map[string]string{"comment": "again"})
		require.Equal(t, http.StatusGone, rec.Code)
	})

	t.Run("consumed token still introspectable", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/amo/tokens/"+link, agent, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var view struct {
			FirstName string `json:"first_name"`
			Consumed  bool   `json:"consumed"`
			Status    string `json:"status"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&view))
		require.True(t, view.Consumed)
		require.Empty(t, view.FirstName)
		require.Equal(t, "eligible", view.Status)
	})

	t.Run("unknown token", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/amo/tokens/does-not-exist", agent, nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}
