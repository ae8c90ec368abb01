package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rpattn/maintops/internal/auth"
	"github.com/rpattn/maintops/internal/domain"
	"github.com/rpattn/maintops/internal/repository"
	"github.com/rpattn/maintops/internal/transition"
)

func TestStatusFor(t *testing.T) {
	cases := map[string]struct {
		err  error
		want int
	}{
		"not found":    {fmt.Errorf("load: %w", repository.ErrNotFound), http.StatusNotFound},
		"forbidden":    {auth.ErrForbidden, http.StatusForbidden},
		"policy":       {fmt.Errorf("start: %w", transition.ErrTerminalState), http.StatusConflict},
		"closing note": {transition.ErrClosingNoteRequired, http.StatusConflict},
		"validation":   {fmt.Errorf("%w: bad", domain.ErrValidation), http.StatusBadRequest},
		"state":        {domain.ErrInvalidState, http.StatusBadRequest},
		"other":        {errors.New("boom"), http.StatusInternalServerError},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, StatusFor(tc.err))
		})
	}
}

func TestWriteError_JSONBody(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, fmt.Errorf("%w: missing name", domain.ErrValidation))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"validation failed: missing name"}`, rec.Body.String())
}

func TestSegments(t *testing.T) {
	assert.Equal(t, []string{"abc", "start"}, Segments("/work-orders/abc/start", "/work-orders"))
	assert.Nil(t, Segments("/work-orders/", "/work-orders"))
}
