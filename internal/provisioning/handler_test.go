package provisioning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"internship-hub/project-portal/project-portal-backend/internal/apperrors"
	"internship-hub/project-portal/project-portal-backend/internal/validation"
)

func newTestRouter(f *fixture) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewHandler(f.manager, zap.NewNop()).RegisterRoutes(router.Group("/api/v1"))
	return router
}

func doJSON(router *gin.Engine, method, path string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// httpSession starts a session over HTTP and posts raw JSON events to it
type httpSession struct {
	t      *testing.T
	router *gin.Engine
	id     uuid.UUID
}

func startHTTPSession(t *testing.T, f *fixture, router *gin.Engine) *httpSession {
	t.Helper()
	w := doJSON(router, http.MethodPost, fmt.Sprintf("/api/v1/projects/%d/provisioning", f.project.ID), "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var session Session
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &session))
	assert.Equal(t, StepPositionForm, session.View.Step)
	return &httpSession{t: t, router: router, id: session.ID}
}

func (s *httpSession) post(body string) (int, Session) {
	s.t.Helper()
	w := doJSON(s.router, http.MethodPost, fmt.Sprintf("/api/v1/provisioning/%s/events", s.id), body)
	var session Session
	if w.Code == http.StatusOK {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &session))
	}
	return w.Code, session
}

func (s *httpSession) step(body string) Step {
	s.t.Helper()
	code, session := s.post(body)
	require.Equal(s.t, http.StatusOK, code)
	return session.View.Step
}

func TestHandlerProvisionsPositionFromNestedJSON(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(f)
	s := startHTTPSession(t, f, router)

	code, session := s.post(`{
		"kind": "submit",
		"position": {"code": "P0001", "vacancy_count": "2", "max_application_count": "10", "weekly_hours": "20"}
	}`)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, StepPositionConfirm, session.View.Step)
	require.NotNil(t, session.View.CandidatePosition)
	assert.Equal(t, "Desarrollador Full Stack", session.View.CandidatePosition.Name)
	assert.Equal(t, 2, session.View.CandidatePosition.VacancyCount)

	require.Equal(t, StepRequirementIntro, s.step(`{"kind": "confirm"}`))
	require.Equal(t, StepRequirementForm, s.step(`{"kind": "confirm"}`))

	code, session = s.post(`{
		"kind": "submit",
		"requirement": {
			"career_code": "C0001",
			"required_approved_courses": "15",
			"required_in_progress_courses": "3",
			"study_plan_code": "PE1"
		}
	}`)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, StepRequirementConfirm, session.View.Step)
	require.NotNil(t, session.View.CandidateRequirement)
	assert.Equal(t, 1, session.View.CandidateRequirement.StudyPlanCode)

	require.Equal(t, StepMoreRequirements, s.step(`{"kind": "confirm"}`))
	require.Equal(t, StepMorePositions, s.step(`{"kind": "no"}`))
	require.Equal(t, StepCommitted, s.step(`{"kind": "no"}`))

	stored, err := f.repo.ListPositions(context.Background(), f.project.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "P0001", stored[0].Code)
	require.Len(t, stored[0].Requirements, 1)
	assert.Equal(t, "C0001", stored[0].Requirements[0].CareerCode)
	assert.Equal(t, 15, stored[0].Requirements[0].RequiredApprovedCourses)
}

func TestHandlerRejectedFormKeepsStep(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(f)
	s := startHTTPSession(t, f, router)

	code, session := s.post(`{
		"kind": "submit",
		"position": {"code": "P0001", "vacancy_count": "0", "max_application_count": "10", "weekly_hours": "20"}
	}`)

	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, StepPositionForm, session.View.Step)
	assert.Equal(t, "0", session.View.PositionForm.VacancyCount)
	require.NotNil(t, session.View.Errors)
	assert.Equal(t, validation.MsgVacanciesPositive, session.View.Errors.FieldErrors[validation.FieldVacancyCount])
}

func TestHandlerRejectsEventOutsideStep(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(f)
	s := startHTTPSession(t, f, router)

	w := doJSON(router, http.MethodPost, fmt.Sprintf("/api/v1/provisioning/%s/events", s.id), `{"kind": "confirm"}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp apperrors.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, apperrors.CodeInvalidEvent, resp.Code)
}

func TestHandlerSessionLookup(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(f)
	s := startHTTPSession(t, f, router)
	path := fmt.Sprintf("/api/v1/provisioning/%s", s.id)

	w := doJSON(router, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodDelete, path, "")
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(router, http.MethodGet, path, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandlerProvisioningBadRequests(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(f)
	s := startHTTPSession(t, f, router)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"invalid project id", http.MethodPost, "/api/v1/projects/0/provisioning", "", http.StatusBadRequest},
		{"unknown project", http.MethodPost, "/api/v1/projects/999/provisioning", "", http.StatusNotFound},
		{"invalid session id", http.MethodGet, "/api/v1/provisioning/not-a-uuid", "", http.StatusBadRequest},
		{"missing kind", http.MethodPost, fmt.Sprintf("/api/v1/provisioning/%s/events", s.id), `{}`, http.StatusBadRequest},
		{"unknown session", http.MethodPost, fmt.Sprintf("/api/v1/provisioning/%s/events", uuid.New()), `{"kind": "cancel"}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(router, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}
