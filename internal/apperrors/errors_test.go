package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatchesByCode(t *testing.T) {
	err := fmt.Errorf("commit positions: %w", New(CodeNotEditable, "project is not editable"))

	assert.True(t, errors.Is(err, New(CodeNotEditable, "")))
	assert.False(t, errors.Is(err, New(CodeNotFound, "")))
	assert.Equal(t, CodeNotEditable, CodeOf(err))
	assert.True(t, HasCode(err, CodeNotEditable))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(CodeInternal, "failed to load project", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to load project: connection reset", err.Error())
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{New(CodeValidation, "x"), http.StatusUnprocessableEntity},
		{New(CodeNotFound, "x"), http.StatusNotFound},
		{New(CodeNotEditable, "x"), http.StatusConflict},
		{New(CodePositionHasApplications, "x"), http.StatusConflict},
		{New(CodeInvalidTransition, "x"), http.StatusBadRequest},
		{New(CodeWorkflowClosed, "x"), http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), tt.err.Error())
	}
}
