package userstacktest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	userstack "github.com/jdziat/userstack-go"
)

// DefaultToken is the session token the mock server issues on /identify.
const DefaultToken = "test-session-token"

// MockServer is a test HTTP server that records requests for verification.
type MockServer struct {
	*httptest.Server

	mu       sync.Mutex
	requests []*RecordedRequest
	arrived  chan struct{}
	hold     chan struct{}

	// ResponseFunc allows customizing responses. If nil, default success
	// responses are returned. A string body is written as plain text; any
	// other body is JSON encoded.
	ResponseFunc func(r *http.Request) (int, any)
}

// RecordedRequest represents a recorded HTTP request.
type RecordedRequest struct {
	Method        string
	Path          string
	Body          []byte
	ContentType   string
	Authorization string
	ProjectKey    string
	Header        http.Header
}

// JSON decodes the recorded body into v.
func (r *RecordedRequest) JSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

// BearerToken returns the token from the Authorization header, if any.
func (r *RecordedRequest) BearerToken() string {
	const prefix = "Bearer "
	if len(r.Authorization) > len(prefix) && r.Authorization[:len(prefix)] == prefix {
		return r.Authorization[len(prefix):]
	}
	return ""
}

// NewMockServer creates a new mock server for testing.
func NewMockServer() *MockServer {
	ms := &MockServer{
		requests: make([]*RecordedRequest, 0),
		arrived:  make(chan struct{}, 1),
	}

	ms.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		ms.mu.Lock()
		ms.requests = append(ms.requests, &RecordedRequest{
			Method:        r.Method,
			Path:          r.URL.Path,
			Body:          body,
			ContentType:   r.Header.Get("Content-Type"),
			Authorization: r.Header.Get("Authorization"),
			ProjectKey:    r.Header.Get(userstack.ProjectKeyHeader),
			Header:        r.Header.Clone(),
		})
		hold := ms.hold
		respond := ms.ResponseFunc
		ms.mu.Unlock()

		select {
		case ms.arrived <- struct{}{}:
		default:
		}

		if hold != nil {
			select {
			case <-hold:
			case <-r.Context().Done():
				return
			}
		}

		var status int
		var response any
		if respond != nil {
			status, response = respond(r)
		} else {
			status, response = defaultResponse(r)
		}

		if text, ok := response.(string); ok {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(status)
			io.WriteString(w, text)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(response)
	}))

	return ms
}

func defaultResponse(r *http.Request) (int, any) {
	if r.URL.Path == "/identify" {
		return http.StatusOK, map[string]any{"jwt": DefaultToken, "expiresIn": 3600}
	}
	return http.StatusOK, map[string]any{"ok": true}
}

// Requests returns all recorded requests.
func (ms *MockServer) Requests() []*RecordedRequest {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return append([]*RecordedRequest{}, ms.requests...)
}

// RequestCount returns the number of recorded requests.
func (ms *MockServer) RequestCount() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return len(ms.requests)
}

// Reset clears all recorded requests.
func (ms *MockServer) Reset() {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.requests = make([]*RecordedRequest, 0)
}

// LastRequest returns the most recent request, or nil if none.
func (ms *MockServer) LastRequest() *RecordedRequest {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if len(ms.requests) == 0 {
		return nil
	}
	return ms.requests[len(ms.requests)-1]
}

// RequestsWithPath returns all requests that matched the given path.
func (ms *MockServer) RequestsWithPath(path string) []*RecordedRequest {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	var matched []*RecordedRequest
	for _, req := range ms.requests {
		if req.Path == path {
			matched = append(matched, req)
		}
	}
	return matched
}

// WaitForRequests blocks until at least n requests were recorded or the
// timeout expires. It reports whether n was reached.
func (ms *MockServer) WaitForRequests(n int, timeout time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		if ms.RequestCount() >= n {
			return true
		}
		select {
		case <-ms.arrived:
		case <-deadline.C:
			return ms.RequestCount() >= n
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// Hold makes the server record incoming requests but not answer them until
// Release is called.
func (ms *MockServer) Hold() {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if ms.hold == nil {
		ms.hold = make(chan struct{})
	}
}

// Release answers every held request and stops holding new ones.
func (ms *MockServer) Release() {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if ms.hold != nil {
		close(ms.hold)
		ms.hold = nil
	}
}

// Close releases held requests and shuts the server down.
func (ms *MockServer) Close() {
	ms.Release()
	ms.Server.Close()
}

// SetResponseFunc sets the response function for customizing responses.
func (ms *MockServer) SetResponseFunc(fn func(r *http.Request) (int, any)) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.ResponseFunc = fn
}

// RespondWithToken makes /identify issue token. Other paths succeed.
func (ms *MockServer) RespondWithToken(token string) {
	ms.SetResponseFunc(func(r *http.Request) (int, any) {
		if r.URL.Path == "/identify" {
			return http.StatusOK, map[string]any{"jwt": token, "expiresIn": 3600}
		}
		return http.StatusOK, map[string]any{"ok": true}
	})
}

// RespondWithText makes every path answer with a plain-text body.
func (ms *MockServer) RespondWithText(statusCode int, text string) {
	ms.SetResponseFunc(func(r *http.Request) (int, any) {
		return statusCode, text
	})
}

// RespondWithError makes path answer statusCode with a plain-text message.
// Other paths keep the default behaviour.
func (ms *MockServer) RespondWithError(path string, statusCode int, message string) {
	ms.SetResponseFunc(func(r *http.Request) (int, any) {
		if r.URL.Path == path {
			return statusCode, message
		}
		return defaultResponse(r)
	})
}

// RespondWith configures the server to respond with a custom status and body.
func (ms *MockServer) RespondWith(statusCode int, body any) {
	ms.SetResponseFunc(func(r *http.Request) (int, any) {
		return statusCode, body
	})
}
