package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Record map[string]any `json:"record"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"record":{"user_id":7}}`))
	require.NoError(t, DecodeJSON(req, &dst))
	require.Equal(t, json.Number("7"), dst.Record["user_id"])

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"record":{}} {"record":{}}`))
	require.ErrorIs(t, DecodeJSON(req, &dst), ErrTrailingData)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
	require.Error(t, DecodeJSON(req, &dst))
}

func TestRespondErrorCarriesRequestID(t *testing.T) {
	var handler http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		RespondError(w, r, fmt.Errorf("role: %w", ErrDuplicate))
	})
	handler = middleware.RequestID(handler)

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/roles", nil))

	require.Equal(t, http.StatusConflict, res.Code)
	require.Equal(t, ProblemContentType, res.Header().Get("Content-Type"))
	var body ProblemDetail
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	require.Equal(t, http.StatusConflict, body.Status)
	require.NotEmpty(t, body.RequestID)
}

func TestProblemWithoutRequest(t *testing.T) {
	res := httptest.NewRecorder()
	Problem(res, http.StatusBadRequest, "Bad Request", "malformed JSON body")

	var body ProblemDetail
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	require.Equal(t, ProblemDetail{Title: "Bad Request", Status: http.StatusBadRequest, Detail: "malformed JSON body"}, body)
}
