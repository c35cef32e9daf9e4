package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"renoflow/internal/audit"
	id "renoflow/pkg/domain"
	"renoflow/pkg/requestcontext"
)

type AuditHandlerSuite struct {
	suite.Suite
	trail   *audit.Publisher
	handler *Handler
	userID  id.UserID
}

func TestAuditHandlerSuite(t *testing.T) {
	suite.Run(t, new(AuditHandlerSuite))
}

func (s *AuditHandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.trail = audit.NewPublisher(audit.NewInMemoryStore(), audit.WithLogger(logger))
	s.handler = New(s.trail, logger, nil)

	s.userID = id.NewUserID()
	err := s.trail.Emit(context.Background(), audit.Event{
		UserID:  s.userID.String(),
		Action:  audit.ActionCompanySelected,
		Subject: "company-1",
	})
	require.NoError(s.T(), err)
}

func (s *AuditHandlerSuite) request(identity id.Identity, target string) *httptest.ResponseRecorder {
	url := "/audit"
	if target != "" {
		url += "?user_id=" + target
	}
	req := httptest.NewRequest(http.MethodGet, url, nil)
	if !identity.UserID.IsZero() {
		req = req.WithContext(requestcontext.WithActor(req.Context(), identity))
	}
	w := httptest.NewRecorder()
	s.handler.handleListEvents(w, req)
	return w
}

func (s *AuditHandlerSuite) decode(w *httptest.ResponseRecorder) eventsResponse {
	var resp eventsResponse
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func (s *AuditHandlerSuite) TestOwnTrail() {
	w := s.request(id.Identity{UserID: s.userID, Role: id.RoleApplicant}, "")

	assert.Equal(s.T(), http.StatusOK, w.Code)
	resp := s.decode(w)
	require.Len(s.T(), resp.Events, 1)
	assert.Equal(s.T(), "company_selected", resp.Events[0].Action)
	assert.Equal(s.T(), "company-1", resp.Events[0].Subject)
}

func (s *AuditHandlerSuite) TestEmptyTrailIsAnEmptyList() {
	w := s.request(id.Identity{UserID: id.NewUserID(), Role: id.RoleApplicant}, "")

	assert.Equal(s.T(), http.StatusOK, w.Code)
	assert.JSONEq(s.T(), `{"events":[]}`, w.Body.String())
}

func (s *AuditHandlerSuite) TestAdminReadsAnotherUser() {
	admin := id.Identity{UserID: id.NewUserID(), Role: id.RoleAdmin}
	w := s.request(admin, s.userID.String())

	assert.Equal(s.T(), http.StatusOK, w.Code)
	resp := s.decode(w)
	require.Len(s.T(), resp.Events, 1)
}

func (s *AuditHandlerSuite) TestNonAdminCannotReadAnotherUser() {
	other := id.Identity{UserID: id.NewUserID(), Role: id.RoleApplicant}
	w := s.request(other, s.userID.String())

	assert.Equal(s.T(), http.StatusForbidden, w.Code)
}

func (s *AuditHandlerSuite) TestNoActor() {
	w := s.request(id.Identity{}, "")

	assert.Equal(s.T(), http.StatusUnauthorized, w.Code)
}
