package testkit

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run executes each scenario as a subtest.
func Run(t *testing.T, handler http.Handler, scenarios ...Scenario) {
	t.Helper()
	for _, s := range scenarios {
		s := s
		t.Run(s.Name, func(t *testing.T) {
			rec := Do(t, handler, s)
			AssertStatusCode(t, s, rec.Code)
			AssertJSONBody(t, s, rec.Body.Bytes())
			for _, want := range s.Contains {
				assert.Contains(t, rec.Body.String(), want, "[%s]", s.Name)
			}
		})
	}
}

// RunFile loads scenarios from path and runs them.
func RunFile(t *testing.T, handler http.Handler, path string) {
	t.Helper()
	scenarios, err := LoadScenarios(path)
	require.NoError(t, err)
	Run(t, handler, scenarios...)
}

// Do fires the scenario's request and returns the recorded response without
// asserting anything.
func Do(t *testing.T, handler http.Handler, s Scenario) *httptest.ResponseRecorder {
	t.Helper()

	method := strings.ToUpper(s.Method)
	if method == "" {
		method = http.MethodGet
	}

	req := httptest.NewRequest(method, s.URL, body(t, s.Body))
	req.Header.Set("Accept", "application/json")
	if s.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}
	for k, v := range s.Headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

// DecodeJSON unmarshals the recorded body into v.
func DecodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), "body: %s", rec.Body.String())
}

func body(t *testing.T, v any) io.Reader {
	t.Helper()
	switch b := v.(type) {
	case nil:
		return nil
	case string:
		return strings.NewReader(b)
	case []byte:
		return bytes.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		return bytes.NewReader(data)
	}
}
