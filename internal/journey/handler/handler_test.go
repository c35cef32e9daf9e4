package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"renoflow/internal/journey"
	"renoflow/internal/journey/handler/mocks"
	id "renoflow/pkg/domain"
	dErrors "renoflow/pkg/domain-errors"
	"renoflow/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/journey-mocks.go -package=mocks Service
type JourneyHandlerSuite struct {
	suite.Suite
}

func TestJourneyHandlerSuite(t *testing.T) {
	suite.Run(t, new(JourneyHandlerSuite))
}

func newTestHandler(t *testing.T) (*Handler, *mocks.MockService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	mockService := mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return New(mockService, logger, nil), mockService
}

func requestAs(userID id.UserID) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/journey", nil)
	ctx := requestcontext.WithActor(req.Context(), id.Identity{
		UserID: userID,
		Role:   id.RoleApplicant,
	})
	return req.WithContext(ctx)
}

func (s *JourneyHandlerSuite) TestHandleGetJourney() {
	handler, mockService := newTestHandler(s.T())
	userID := id.NewUserID()
	now := time.Date(2026, 2, 10, 9, 30, 0, 0, time.UTC)

	mockService.EXPECT().GetOrCreate(gomock.Any(), userID).Return(&journey.Journey{
		UserID:    userID,
		Step:      id.StepCompanyChoice,
		Status:    id.StatusUnderReview,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil)

	w := httptest.NewRecorder()
	handler.handleGetJourney(w, requestAs(userID))

	assert.Equal(s.T(), http.StatusOK, w.Code)
	var resp journeyResponse
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), "company_choice", resp.Step)
	assert.Equal(s.T(), "under_review", resp.Status)
	assert.False(s.T(), resp.Completed)
	assert.Nil(s.T(), resp.CompletedAt)
	assert.True(s.T(), resp.Actions.CanValidate)
	assert.False(s.T(), resp.Actions.CanCreateFile)
}

func (s *JourneyHandlerSuite) TestHandleGetJourneyCompleted() {
	handler, mockService := newTestHandler(s.T())
	userID := id.NewUserID()
	now := time.Date(2026, 2, 10, 9, 30, 0, 0, time.UTC)
	done := now.Add(time.Hour)

	mockService.EXPECT().GetOrCreate(gomock.Any(), userID).Return(&journey.Journey{
		UserID:      userID,
		Step:        id.StepInvoicing,
		Status:      id.StatusApproved,
		CompletedAt: &done,
		CreatedAt:   now,
		UpdatedAt:   done,
	}, nil)

	w := httptest.NewRecorder()
	handler.handleGetJourney(w, requestAs(userID))

	assert.Equal(s.T(), http.StatusOK, w.Code)
	var resp journeyResponse
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(s.T(), resp.Completed)
	require.NotNil(s.T(), resp.CompletedAt)
	assert.Equal(s.T(), done, resp.CompletedAt.UTC())
}

func (s *JourneyHandlerSuite) TestHandleGetJourneyNoActor() {
	handler, _ := newTestHandler(s.T())

	w := httptest.NewRecorder()
	handler.handleGetJourney(w, httptest.NewRequest(http.MethodGet, "/journey", nil))

	assert.Equal(s.T(), http.StatusUnauthorized, w.Code)
}

func (s *JourneyHandlerSuite) TestHandleGetJourneyServiceFailure() {
	handler, mockService := newTestHandler(s.T())
	userID := id.NewUserID()

	mockService.EXPECT().GetOrCreate(gomock.Any(), userID).
		Return(nil, dErrors.New(dErrors.CodeInternal, "store down"))

	w := httptest.NewRecorder()
	handler.handleGetJourney(w, requestAs(userID))

	assert.Equal(s.T(), http.StatusInternalServerError, w.Code)
	var body map[string]any
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(s.T(), "internal", body["error"])
	assert.NotContains(s.T(), body, "error_description")
}
