package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kliq/backoffice/internal/shared"
)

func TestRespondErrorMapsSentinels(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("customer 9: %w", shared.ErrNotFound), http.StatusNotFound},
		{shared.ErrAlreadyExists, http.StatusConflict},
		{fmt.Errorf("lang: %w", shared.ErrValidation), http.StatusBadRequest},
		{ErrForbidden, http.StatusForbidden},
		{shared.ErrInvalidCredentials, http.StatusUnauthorized},
		{fmt.Errorf("db down"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		RespondError(w, tc.err)
		assert.Equal(t, tc.status, w.Code, tc.err.Error())
		assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))

		var body ProblemDetail
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, tc.status, body.Status)
	}
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	var target struct {
		Key string `json:"key"`
	}
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"key":"a","extra":1}`))
	assert.Error(t, DecodeJSON(httptest.NewRecorder(), r, &target))

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"key":"a"}`))
	require.NoError(t, DecodeJSON(httptest.NewRecorder(), r, &target))
	assert.Equal(t, "a", target.Key)
}
