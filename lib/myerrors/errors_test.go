package myerrors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, GetHTTPStatus(NewInvalidInputErrorf("bad %s", "input")))
	assert.Equal(t, http.StatusNotFound, GetHTTPStatus(NewNotFoundError(fmt.Errorf("not found"))))
	assert.Equal(t, http.StatusConflict, GetHTTPStatus(NewConflictError(fmt.Errorf("dup"))))
	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus(NewInternalError(fmt.Errorf("boom"))))
	assert.Equal(t, http.StatusServiceUnavailable, GetHTTPStatus(NewUnavailableError(fmt.Errorf("down"))))
}

func TestErrorStatusOfPlainError(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus(fmt.Errorf("anything")))
}

func TestErrorStatusOfWrappedError(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", NewNotFoundError(fmt.Errorf("inner")))
	assert.Equal(t, http.StatusNotFound, GetHTTPStatus(wrapped))
}
