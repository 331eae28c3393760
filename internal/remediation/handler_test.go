package remediation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"internship-hub/project-portal/project-portal-backend/internal/apperrors"
	"internship-hub/project-portal/project-portal-backend/internal/projects"
)

func newTestRouter(f *fixture) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewHandler(f.service, zap.NewNop()).RegisterRoutes(router.Group("/api/v1"))
	return router
}

func doJSON(router *gin.Engine, method, path string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandlerListCandidates(t *testing.T) {
	f := newFixture(t, nil)
	f.tracker.SetApplicationCount(f.positions[1].ID, 3)
	router := newTestRouter(f)

	w := doJSON(router, http.MethodGet, fmt.Sprintf("/api/v1/projects/%d/remediation", f.project.ID), "")

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Candidates []Candidate `json:"candidates"`
		Actions    []Action    `json:"actions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Candidates, 1)
	assert.Equal(t, "P0001", resp.Candidates[0].Position.Code)
	assert.Len(t, resp.Actions, 3)
}

func TestHandlerModifySchedule(t *testing.T) {
	f := newFixture(t, nil)
	router := newTestRouter(f)

	w := doJSON(router, http.MethodPost, fmt.Sprintf("/api/v1/projects/%d/remediation", f.project.ID), `{
		"action": "modify_schedule",
		"schedule": {
			"applications_close_date": "2025-05-10",
			"activities_start_date": "2025-06-15",
			"activities_end_date": "2025-12-15"
		}
	}`)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var result Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, ActionModifySchedule, result.Action)
	assert.Equal(t, day("2025-05-10"), result.Project.ApplicationsCloseDate)
	require.NotNil(t, result.Project.ApplicationsOpenDate)
	assert.Equal(t, day("2025-04-10"), *result.Project.ApplicationsOpenDate)

	stored, err := f.repo.GetProject(context.Background(), f.project.ID)
	require.NoError(t, err)
	assert.Equal(t, day("2025-06-15"), stored.ActivitiesStartDate)
	assert.Equal(t, projects.StatusSuspended, stored.Status)
}

func TestHandlerAdjustVacancies(t *testing.T) {
	f := newFixture(t, nil)
	target := f.positions[0]
	f.tracker.SetApplicationCount(target.ID, 1)
	f.tracker.SetApplicationCount(f.positions[1].ID, 3)
	router := newTestRouter(f)

	w := doJSON(router, http.MethodPost, fmt.Sprintf("/api/v1/projects/%d/remediation", f.project.ID),
		fmt.Sprintf(`{"action": "adjust_vacancies", "position_id": %d}`, target.ID))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var result Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, projects.StatusUnderEvaluation, result.Project.Status)
	require.NotNil(t, result.Position)
	assert.Equal(t, 1, result.Position.VacancyCount)
}

func TestHandlerWithdrawWithApplicationsConflicts(t *testing.T) {
	f := newFixture(t, nil)
	target := f.positions[0]
	f.tracker.SetApplicationCount(target.ID, 2)
	router := newTestRouter(f)

	w := doJSON(router, http.MethodPost, fmt.Sprintf("/api/v1/projects/%d/remediation", f.project.ID),
		fmt.Sprintf(`{"action": "withdraw_position", "position_id": %d}`, target.ID))

	require.Equal(t, http.StatusConflict, w.Code)
	var resp apperrors.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, apperrors.CodePositionHasApplications, resp.Code)
	assert.Equal(t, MsgPositionHasApplications, resp.Error)
}

func TestHandlerRemediationBadRequests(t *testing.T) {
	f := newFixture(t, nil)
	router := newTestRouter(f)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"invalid project id", "/api/v1/projects/abc/remediation", `{"action": "modify_schedule"}`, http.StatusBadRequest},
		{"missing action", fmt.Sprintf("/api/v1/projects/%d/remediation", f.project.ID), `{}`, http.StatusBadRequest},
		{"schedule missing", fmt.Sprintf("/api/v1/projects/%d/remediation", f.project.ID), `{"action": "modify_schedule"}`, http.StatusUnprocessableEntity},
		{"unknown project", "/api/v1/projects/999/remediation", `{"action": "modify_schedule"}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(router, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}
