// Package testkit drives table-style REST scenarios against an http.Handler.
//
// A scenario describes one request and what must come back:
//
//	testkit.Run(t, handler, testkit.Scenario{
//	    Name:         "unauthenticated",
//	    Method:       "GET",
//	    URL:          "/api/orders",
//	    ExpectedCode: 401,
//	    ExpectedBody: `{"status":401,"error":"No token provided"}`,
//	})
//
// Scenarios can also live in a JSON file next to the test:
//
//	testkit.RunFile(t, handler, "testdata/auth_scenarios.json")
package testkit

import (
	"encoding/json"
	"fmt"
	"os"
)

// Scenario is a single REST test case.
type Scenario struct {
	Name string `json:"name"`

	Method  string            `json:"requestMethod"`
	URL     string            `json:"requestUrl"`
	Body    any               `json:"requestBody,omitempty"` // string and []byte are sent verbatim, anything else as JSON
	Token   string            `json:"token,omitempty"`       // sent as "Authorization: Bearer <token>"
	Headers map[string]string `json:"headers,omitempty"`

	ExpectedCode int `json:"expectedCode"`
	// ExpectedBody is compared as JSON, so key order and whitespace never
	// matter. Empty skips the comparison.
	ExpectedBody string `json:"expectedBody,omitempty"`
	// Contains lists substrings the raw body must include.
	Contains []string `json:"contains,omitempty"`
}

// LoadScenarios reads a JSON array of scenarios.
func LoadScenarios(path string) ([]Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("testkit: read %q: %w", path, err)
	}

	var out []Scenario
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("testkit: parse %q: %w", path, err)
	}
	for i, s := range out {
		if s.Name == "" {
			return nil, fmt.Errorf("testkit: %q: scenario %d has no name", path, i)
		}
		if s.ExpectedCode == 0 {
			return nil, fmt.Errorf("testkit: %q: scenario %q has no expectedCode", path, s.Name)
		}
	}
	return out, nil
}
