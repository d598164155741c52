package testkit

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertStatusCode checks the response code with testify.
func AssertStatusCode(t *testing.T, s Scenario, got int) {
	t.Helper()
	assert.Equal(t, s.ExpectedCode, got, "[%s] HTTP status code mismatch", s.Name)
}

// AssertJSONBody deep-compares the actual body against s.ExpectedBody after
// normalising both through JSON unmarshal.
func AssertJSONBody(t *testing.T, s Scenario, actual []byte) {
	t.Helper()
	if s.ExpectedBody == "" {
		return
	}

	var expVal, actVal interface{}
	require.NoError(t, json.Unmarshal([]byte(s.ExpectedBody), &expVal),
		"[%s] expected body is not valid JSON", s.Name)

	if !assert.NoError(t, json.Unmarshal(actual, &actVal),
		"[%s] actual response is not valid JSON\nbody: %s", s.Name, string(actual)) {
		return
	}
	assert.Equal(t, expVal, actVal, "[%s] response body mismatch", s.Name)
}

// AssertError checks a {"status":N,"error":msg} error body.
func AssertError(t *testing.T, rec *httptest.ResponseRecorder, status int, msg string) {
	t.Helper()
	assert.Equal(t, status, rec.Code, "body: %s", rec.Body.String())

	var got struct {
		Status int    `json:"status"`
		Error  string `json:"error"`
	}
	if assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got), "body: %s", rec.Body.String()) {
		assert.Equal(t, status, got.Status)
		assert.Equal(t, msg, got.Error)
	}
}
