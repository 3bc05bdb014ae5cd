// Package testutil provides testing utilities for integration tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
)

// Client is an HTTP client for testing API endpoints.
type Client struct {
	BaseURL        string
	AcceptLanguage string
	HTTPClient     *http.Client
	Validator      *OpenAPIValidator
	ValidateAPI    bool
	t              *testing.T
}

// NewClient creates a new test client without validation.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{},
	}
}

// NewClientWithValidation creates a new test client with OpenAPI validation enabled.
// contractPath points at the OpenAPI document.
func NewClientWithValidation(t *testing.T, baseURL, contractPath string) *Client {
	t.Helper()
	return &Client{
		BaseURL:     baseURL,
		HTTPClient:  &http.Client{},
		Validator:   NewOpenAPIValidator(t, contractPath),
		ValidateAPI: true,
		t:           t,
	}
}

// NewClientWithValidator creates a new test client with a pre-loaded OpenAPI validator.
// Use this in TestMain where *testing.T is not available during initialization.
func NewClientWithValidator(baseURL string, validator *OpenAPIValidator) *Client {
	return &Client{
		BaseURL:     baseURL,
		HTTPClient:  &http.Client{},
		Validator:   validator,
		ValidateAPI: true,
	}
}

// SetT sets the testing.T for validation error reporting.
// This should be called at the beginning of each test when using a shared client.
func (c *Client) SetT(t *testing.T) {
	c.t = t
}

// WithoutValidation returns a copy of the client with validation disabled.
// Use this for negative tests where you expect invalid responses.
func (c *Client) WithoutValidation() *Client {
	clone := *c
	clone.ValidateAPI = false
	return &clone
}

// WithLanguage returns a copy of the client sending the given Accept-Language header.
func (c *Client) WithLanguage(lang string) *Client {
	clone := *c
	clone.AcceptLanguage = lang
	return &clone
}

// GET performs a GET request.
func (c *Client) GET(path string) (*http.Response, error) {
	return c.do(http.MethodGet, path, nil)
}

// POST performs a POST request with JSON body.
func (c *Client) POST(path string, body interface{}) (*http.Response, error) {
	return c.do(http.MethodPost, path, body)
}

// PUT performs a PUT request with JSON body.
func (c *Client) PUT(path string, body interface{}) (*http.Response, error) {
	return c.do(http.MethodPut, path, body)
}

// PATCH performs a PATCH request with JSON body.
func (c *Client) PATCH(path string, body interface{}) (*http.Response, error) {
	return c.do(http.MethodPatch, path, body)
}

// DELETE performs a DELETE request.
func (c *Client) DELETE(path string) (*http.Response, error) {
	return c.do(http.MethodDelete, path, nil)
}

func (c *Client) do(method, path string, body interface{}) (*http.Response, error) {
	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
	}

	req, err := c.newRequest(method, path, bodyBytes)
	if err != nil {
		return nil, err
	}

	validate := c.ValidateAPI && c.Validator != nil && c.t != nil
	if validate {
		// Validation consumes the body, so it runs on its own copy.
		vreq, err := c.newRequest(method, path, bodyBytes)
		if err != nil {
			return nil, err
		}
		c.Validator.ValidateRequest(c.t, vreq)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}

	if validate {
		vreq, err := c.newRequest(method, path, bodyBytes)
		if err != nil {
			return nil, err
		}
		c.Validator.ValidateResponse(c.t, vreq, resp)
	}

	return resp, nil
}

func (c *Client) newRequest(method, path string, body []byte) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, r)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.AcceptLanguage != "" {
		req.Header.Set("Accept-Language", c.AcceptLanguage)
	}
	return req, nil
}

// DecodeJSON decodes the response body into v and closes it.
func DecodeJSON(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

// ReadBody returns the response body as a string and closes it.
func ReadBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(body)
}
