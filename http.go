package userstack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxResponseBody caps how much of a response body is read into memory.
const maxResponseBody = 1 << 20

// httpClient handles HTTP requests to the userstack API.
// Every call is a single attempt; nothing is retried.
type httpClient struct {
	client     *http.Client
	baseURL    string
	projectKey string
	userAgent  string
	hook       HTTPHook
}

// newHTTPClient creates a new HTTP client.
func newHTTPClient(cfg *Config) *httpClient {
	return &httpClient{
		client:     cfg.HTTPClient,
		baseURL:    cfg.BaseURL,
		projectKey: cfg.ProjectKey,
		userAgent:  cfg.UserAgent,
		hook:       combineHooks(cfg.HTTPHooks),
	}
}

// request represents an HTTP request to be made.
type request struct {
	method string
	path   string
	body   any
	bearer string
}

// response is the raw outcome of a request that reached the server.
type response struct {
	statusCode int
	body       []byte
}

func (r *response) ok() bool {
	return r.statusCode >= 200 && r.statusCode < 300
}

// do executes a single HTTP request. A non-nil error means the request never
// produced a response; HTTP error statuses are reported through response.
func (h *httpClient) do(ctx context.Context, req *request) (*response, error) {
	var bodyReader io.Reader
	if req.body != nil {
		bodyBytes, err := json.Marshal(req.body)
		if err != nil {
			return nil, fmt.Errorf("userstack: failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, h.baseURL+req.path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("userstack: failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", h.userAgent)
	httpReq.Header.Set(ProjectKeyHeader, h.projectKey)
	if req.bearer != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.bearer)
	}

	if h.hook != nil {
		if err := h.hook.BeforeRequest(ctx, httpReq); err != nil {
			return nil, fmt.Errorf("userstack: request hook failed: %w", err)
		}
	}

	start := time.Now()
	resp, err := h.client.Do(httpReq)
	if h.hook != nil {
		h.hook.AfterResponse(ctx, httpReq, resp, time.Since(start), err)
	}
	if err != nil {
		return nil, fmt.Errorf("userstack: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("userstack: failed to read response body: %w", err)
	}

	return &response{statusCode: resp.StatusCode, body: respBody}, nil
}

// post performs a POST request.
func (h *httpClient) post(ctx context.Context, path string, body any, bearer string) (*response, error) {
	return h.do(ctx, &request{
		method: http.MethodPost,
		path:   path,
		body:   body,
		bearer: bearer,
	})
}
