package projects

import (
	"bytes"
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
)

func newTestRouter(f *lifecycleFixture) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler := NewHandler(newTestService(f), f.controller, zap.NewNop())
	handler.RegisterRoutes(router.Group("/api/v1"))
	return router
}

func doJSON(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandlerCreateProject(t *testing.T) {
	f := newLifecycleFixture()
	router := newTestRouter(f)

	w := doJSON(router, http.MethodPost, "/api/v1/projects", projectForm("Sistema de Gestión"))

	require.Equal(t, http.StatusCreated, w.Code)
	var project Project
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &project))
	assert.Equal(t, StatusCreated, project.Status)
}

func TestHandlerCreateProjectValidationError(t *testing.T) {
	f := newLifecycleFixture()
	router := newTestRouter(f)
	form := projectForm("Sistema de Gestión")
	form.ActivitiesEndDate = "no es una fecha"

	w := doJSON(router, http.MethodPost, "/api/v1/projects", form)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var resp struct {
		Code    apperrors.Code `json:"code"`
		Details struct {
			GeneralErrors []string `json:"general_errors"`
		} `json:"details"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, apperrors.CodeValidation, resp.Code)
	assert.NotEmpty(t, resp.Details.GeneralErrors)
}

func TestHandlerTransitionBlocked(t *testing.T) {
	f := newLifecycleFixture()
	router := newTestRouter(f)
	p := f.seed(t, StatusCreated)

	w := doJSON(router, http.MethodPost, fmt.Sprintf("/api/v1/projects/%d/transitions", p.ID),
		TransitionRequest{Action: ActionStart})

	require.Equal(t, http.StatusConflict, w.Code)
	var outcome Outcome
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &outcome))
	assert.Equal(t, OutcomeBlocked, outcome.Kind)
	assert.Equal(t, BlockNoPositions, outcome.Reason)
}

func TestHandlerTransitionApplied(t *testing.T) {
	f := newLifecycleFixture()
	router := newTestRouter(f)
	p := f.seed(t, StatusCreated, activePosition("P0001"))

	w := doJSON(router, http.MethodPost, fmt.Sprintf("/api/v1/projects/%d/transitions", p.ID),
		TransitionRequest{Action: ActionStart})

	require.Equal(t, http.StatusOK, w.Code)
	var outcome Outcome
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &outcome))
	assert.Equal(t, OutcomeApplied, outcome.Kind)
	assert.Equal(t, StatusStarted, outcome.Project.Status)
}

func TestHandlerTransitionInvalid(t *testing.T) {
	f := newLifecycleFixture()
	router := newTestRouter(f)
	p := f.seed(t, StatusFinished)

	w := doJSON(router, http.MethodPost, fmt.Sprintf("/api/v1/projects/%d/transitions", p.ID),
		TransitionRequest{Action: ActionCancel})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlerAllowedActions(t *testing.T) {
	f := newLifecycleFixture()
	router := newTestRouter(f)
	p := f.seed(t, StatusStarted)

	w := doJSON(router, http.MethodGet, fmt.Sprintf("/api/v1/projects/%d/actions", p.ID), nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Status  Status   `json:"status"`
		Actions []Action `json:"actions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, StatusStarted, resp.Status)
	assert.Equal(t, []Action{ActionSuspend, ActionCancel}, resp.Actions)
}

func TestHandlerBadID(t *testing.T) {
	f := newLifecycleFixture()
	router := newTestRouter(f)

	w := doJSON(router, http.MethodGet, "/api/v1/projects/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, http.MethodGet, "/api/v1/projects/77", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
