package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookexpress/cotizador/internal/shared"
)

func TestRespondErrorMapsSentinels(t *testing.T) {
	type payload struct {
		Name string `validate:"required"`
	}
	validationErr := validator.New().Struct(payload{})

	cases := []struct {
		err    error
		status int
	}{
		{err: fmt.Errorf("sales: %w", shared.ErrNotFound), status: http.StatusNotFound},
		{err: fmt.Errorf("pricing: %w", shared.ErrInvalidInput), status: http.StatusBadRequest},
		{err: fmt.Errorf("sales: %w", shared.ErrConflict), status: http.StatusConflict},
		{err: validationErr, status: http.StatusBadRequest},
		{err: fmt.Errorf("boom"), status: http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		RespondError(rr, tc.err)
		assert.Equal(t, tc.status, rr.Code, tc.err.Error())

		var problem ProblemDetail
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &problem))
		assert.Equal(t, tc.status, problem.Status)
	}
}

func TestDecodeJSONKeepsNumbersExact(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"price": 100.005}`))
	var body map[string]any
	require.NoError(t, DecodeJSON(req, &body))
	assert.Equal(t, json.Number("100.005"), body["price"])

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
	require.ErrorIs(t, DecodeJSON(req, &body), shared.ErrInvalidInput)
}
