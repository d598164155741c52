package testkit_test

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kumarketplace/marketplace/pkg/testkit"
)

// echo answers with the request body and the bearer token it saw.
var echo = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/echo" {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"status":404,"error":"Not found"}`)) //nolint:errcheck
		return
	}
	raw, _ := io.ReadAll(r.Body)
	var in map[string]any
	_ = json.Unmarshal(raw, &in)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
		"auth": r.Header.Get("Authorization"),
		"body": in,
	})
})

func TestRunInline(t *testing.T) {
	testkit.Run(t, echo,
		testkit.Scenario{
			Name:         "echo",
			Method:       "POST",
			URL:          "/echo",
			Body:         map[string]string{"message": "hello"},
			Token:        "abc",
			ExpectedCode: 200,
			ExpectedBody: `{"body":{"message":"hello"},"auth":"Bearer abc"}`,
		},
		testkit.Scenario{
			Name:         "missing",
			URL:          "/nope",
			ExpectedCode: 404,
			Contains:     []string{"Not found"},
		},
	)
}

func TestRunFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenarios.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"name":"raw body","requestMethod":"POST","requestUrl":"/echo","requestBody":{"n":1},"expectedCode":200,
		 "expectedBody":"{\"auth\":\"\",\"body\":{\"n\":1}}"}
	]`), 0o644))

	testkit.RunFile(t, echo, path)
}

func TestLoadScenariosRejectsIncomplete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"name":"no code","requestUrl":"/"}]`), 0o644))

	_, err := testkit.LoadScenarios(path)
	assert.Error(t, err)
}

func TestAssertError(t *testing.T) {
	rec := testkit.Do(t, echo, testkit.Scenario{URL: "/nope"})
	testkit.AssertError(t, rec, 404, "Not found")
}
