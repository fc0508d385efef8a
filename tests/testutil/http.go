package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Envelope is the decoded API response with a typed payload
type Envelope[T any] struct {
	Success   bool           `json:"success"`
	Data      T              `json:"data"`
	Error     *dto.ErrorInfo `json:"error"`
	RequestID string         `json:"request_id"`
}

// DoJSON serves one request against h. A non-nil body is sent as JSON.
func DoJSON(t *testing.T, h http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		reader = ToJSONReader(t, body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// Decode parses the response envelope, typing its data as T
func Decode[T any](t *testing.T, w *httptest.ResponseRecorder) Envelope[T] {
	t.Helper()

	var env Envelope[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), "Failed to parse JSON response: %s", w.Body.String())
	return env
}

// DecodeJSON parses a response body that is not wrapped in the envelope
func DecodeJSON[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "Failed to parse JSON response: %s", w.Body.String())
	return out
}

// AssertSuccess asserts a 2xx envelope without an error object
func AssertSuccess(t *testing.T, w *httptest.ResponseRecorder) {
	t.Helper()

	require.GreaterOrEqual(t, w.Code, 200, w.Body.String())
	require.Less(t, w.Code, 300, w.Body.String())
	env := Decode[json.RawMessage](t, w)
	assert.True(t, env.Success, "Expected success to be true")
	assert.Nil(t, env.Error, "Expected no error")
}

// AssertError asserts an error envelope with the given status and code
func AssertError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()

	require.Equal(t, status, w.Code, w.Body.String())
	env := Decode[json.RawMessage](t, w)
	assert.False(t, env.Success, "Expected success to be false")
	require.NotNil(t, env.Error, "Expected error object in response")
	assert.Equal(t, code, env.Error.Code, "Unexpected error code")
}

// ToJSONReader converts a value to a JSON io.Reader
func ToJSONReader(t *testing.T, v any) io.Reader {
	t.Helper()

	data, err := json.Marshal(v)
	require.NoError(t, err, "Failed to marshal to JSON")
	return bytes.NewReader(data)
}
