package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fieldErr struct{ fields map[string]string }

func (e fieldErr) Error() string                  { return "invalid input" }
func (e fieldErr) FieldErrors() map[string]string { return e.fields }

func TestRespondError(t *testing.T) {
	cases := map[string]struct {
		err    error
		status int
		title  string
	}{
		"not found":   {err: fmt.Errorf("load: %w", ErrNotFound), status: http.StatusNotFound, title: "Not Found"},
		"validation":  {err: ErrValidation, status: http.StatusBadRequest, title: "Validation Failed"},
		"unavailable": {err: ErrUnavailable, status: http.StatusServiceUnavailable, title: "Service Unavailable"},
		"unknown":     {err: errors.New("boom"), status: http.StatusInternalServerError, title: "Internal Error"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			RespondError(rr, tc.err)
			assert.Equal(t, tc.status, rr.Code)
			assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
			var p ProblemDetail
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p))
			assert.Equal(t, tc.title, p.Title)
			assert.Equal(t, tc.status, p.Status)
		})
	}
}

func TestRespondErrorIncludesFieldErrors(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondError(rr, fmt.Errorf("create: %w", fieldErr{fields: map[string]string{"owner": "is required"}}))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	var p ProblemDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p))
	assert.Equal(t, "is required", p.Errors["owner"])
}
