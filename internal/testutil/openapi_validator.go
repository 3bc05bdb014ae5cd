package testutil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/legacy"
)

// unvalidatedPaths do not serve JSON described by the contract.
var unvalidatedPaths = map[string]bool{
	"/healthz":          true,
	"/readyz":           true,
	"/docs":             true,
	"/api/openapi.yaml": true,
}

// OpenAPIValidator checks requests and responses against api/openapi/openapi.yaml.
type OpenAPIValidator struct {
	doc    *openapi3.T
	router routers.Router
}

// NewOpenAPIValidator loads the contract or fails the test.
func NewOpenAPIValidator(t *testing.T, specPath string) *OpenAPIValidator {
	t.Helper()

	v, err := LoadOpenAPIValidator(specPath)
	if err != nil {
		t.Fatalf("load OpenAPI validator: %v", err)
	}
	return v
}

// LoadOpenAPIValidator loads and validates the contract. It is meant for
// TestMain, where no *testing.T exists yet.
func LoadOpenAPIValidator(specPath string) (*OpenAPIValidator, error) {
	doc, err := openapi3.NewLoader().LoadFromFile(specPath)
	if err != nil {
		return nil, fmt.Errorf("load OpenAPI spec from %s: %w", specPath, err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("validate OpenAPI spec: %w", err)
	}

	router, err := legacy.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("create OpenAPI router: %w", err)
	}
	return &OpenAPIValidator{doc: doc, router: router}, nil
}

func (v *OpenAPIValidator) input(method, path string, req *http.Request) (*openapi3filter.RequestValidationInput, error) {
	// The contract declares no servers, so routes are matched on the bare path.
	routeReq, err := http.NewRequest(method, path, nil)
	if err != nil {
		return nil, err
	}
	route, params, err := v.router.FindRoute(routeReq)
	if err != nil {
		return nil, fmt.Errorf("no route for %s %s: %w", method, path, err)
	}
	return &openapi3filter.RequestValidationInput{
		Request:    req,
		PathParams: params,
		Route:      route,
		Options: &openapi3filter.Options{
			MultiError:         true,
			AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
		},
	}, nil
}

// ValidateRequest reports a test error when req does not match the contract.
func (v *OpenAPIValidator) ValidateRequest(t *testing.T, req *http.Request) {
	t.Helper()

	if unvalidatedPaths[req.URL.Path] {
		return
	}

	in, err := v.input(req.Method, req.URL.Path, req)
	if err != nil {
		t.Errorf("OpenAPI: %v", err)
		return
	}
	if err := openapi3filter.ValidateRequest(context.Background(), in); err != nil {
		t.Errorf("OpenAPI request validation failed for %s %s: %v", req.Method, req.URL.Path, err)
	}
}

// ValidateResponse reports a test error when resp does not match the
// contract. The body is read and put back.
func (v *OpenAPIValidator) ValidateResponse(t *testing.T, req *http.Request, resp *http.Response) {
	t.Helper()

	if unvalidatedPaths[req.URL.Path] {
		return
	}

	in, err := v.input(req.Method, req.URL.Path, req)
	if err != nil {
		t.Errorf("OpenAPI: %v", err)
		return
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Errorf("read response body: %v", err)
		return
	}
	_ = resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))

	err = openapi3filter.ValidateResponse(context.Background(), &openapi3filter.ResponseValidationInput{
		RequestValidationInput: in,
		Status:                 resp.StatusCode,
		Header:                 resp.Header,
		Body:                   io.NopCloser(bytes.NewReader(body)),
		Options: &openapi3filter.Options{
			MultiError:            true,
			IncludeResponseStatus: true,
		},
	})
	if err != nil {
		t.Errorf("OpenAPI response validation failed for %s %s (status %d):\n%s\nResponse body: %s",
			req.Method, req.URL.Path, resp.StatusCode, truncate(err.Error(), 500), truncate(string(body), 200))
	}
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
