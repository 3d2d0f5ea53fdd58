package httpd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeDjb10/recruitment-platform-backend/internal/models"
	"github.com/MeDjb10/recruitment-platform-backend/internal/service/integration"
	"github.com/MeDjb10/recruitment-platform-backend/internal/service/user"
)

type stubUserService struct {
	candidate *models.Candidate
	decideErr error
	decidedBy string
}

func (s *stubUserService) GetCandidate(ctx context.Context, candidateID string) (*models.Candidate, error) {
	return s.candidate, nil
}

func (s *stubUserService) Decide(ctx context.Context, candidateID, status, decidedBy string, examDate *time.Time) (*models.Candidate, error) {
	s.decidedBy = decidedBy
	if s.decideErr != nil {
		return nil, s.decideErr
	}
	return s.candidate, nil
}

func (s *stubUserService) HandleAssignmentCompleted(ctx context.Context, event models.AssignmentCompletedEvent) error {
	return nil
}

func (s *stubUserService) HandleCandidateRejected(ctx context.Context, event models.CandidateRejectedEvent) error {
	return nil
}

type allowAllAuth struct {
	info *integration.TokenInfo
}

func (a *allowAllAuth) Verify(ctx context.Context, token string) (*integration.TokenInfo, error) {
	return a.info, nil
}

func (a *allowAllAuth) Healthy(ctx context.Context) bool { return true }

func newUserRouter(svc user.Service) http.Handler {
	auth := &allowAllAuth{info: &integration.TokenInfo{UserID: "admin-1", Role: "admin"}}
	handler := NewUserHandler(svc, auth, testServiceToken, []string{"admin"}, nil, zerolog.Nop())
	router := chi.NewRouter()
	handler.RegisterRoutes(router)
	return router
}

func TestServiceLookupRequiresServiceToken(t *testing.T) {
	router := newUserRouter(&stubUserService{candidate: &models.Candidate{ID: "c-1"}})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users/service/c-1", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestServiceLookupFound(t *testing.T) {
	router := newUserRouter(&stubUserService{candidate: &models.Candidate{ID: "c-1", Email: "one@example.com"}})

	req := httptest.NewRequest(http.MethodGet, "/api/users/service/c-1", nil)
	req.Header.Set("Authorization", "Bearer "+testServiceToken)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "one@example.com")
}

func TestServiceLookupNotFound(t *testing.T) {
	router := newUserRouter(&stubUserService{})

	req := httptest.NewRequest(http.MethodGet, "/api/users/service/c-404", nil)
	req.Header.Set("Authorization", "Bearer "+testServiceToken)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDecideUsesAuthenticatedIdentity(t *testing.T) {
	svc := &stubUserService{candidate: &models.Candidate{ID: "c-1", AuthorizationStatus: models.StatusApproved}}
	router := newUserRouter(svc)

	req := httptest.NewRequest(http.MethodPut, "/api/users/c-1/decision", strings.NewReader(`{"status":"approved"}`))
	req.Header.Set("Authorization", "Bearer staff-token")
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	// The decider comes from the verified token, not the request body.
	assert.Equal(t, "admin-1", svc.decidedBy)
}

func TestDecideInvalidStatus(t *testing.T) {
	svc := &stubUserService{decideErr: user.ErrInvalidDecision}
	router := newUserRouter(svc)

	req := httptest.NewRequest(http.MethodPut, "/api/users/c-1/decision", strings.NewReader(`{"status":"maybe"}`))
	req.Header.Set("Authorization", "Bearer staff-token")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDecideUnknownCandidate(t *testing.T) {
	svc := &stubUserService{decideErr: user.ErrCandidateNotFound}
	router := newUserRouter(svc)

	req := httptest.NewRequest(http.MethodPut, "/api/users/c-1/decision", strings.NewReader(`{"status":"approved"}`))
	req.Header.Set("Authorization", "Bearer staff-token")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthTriState(t *testing.T) {
	up := func(ctx context.Context) bool { return true }
	down := func(ctx context.Context) bool { return false }

	cases := []struct {
		name   string
		checks []DependencyCheck
		status string
		code   int
	}{
		{"all up", []DependencyCheck{{Name: "a", Check: up}, {Name: "b", Check: up}}, models.HealthHealthy, http.StatusOK},
		{"some down", []DependencyCheck{{Name: "a", Check: up}, {Name: "b", Check: down}}, models.HealthDegraded, http.StatusOK},
		{"all down", []DependencyCheck{{Name: "a", Check: down}, {Name: "b", Check: down}}, models.HealthError, http.StatusServiceUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			HealthHandler("user-service", tc.checks)(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tc.code, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.status)
		})
	}
}
