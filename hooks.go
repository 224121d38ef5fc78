package userstack

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// RequestIDHeader is set by RequestIDHook.
const RequestIDHeader = "X-Request-Id"

// HTTPHook allows customizing HTTP request/response handling.
// Hooks are called in order before a request and in reverse order after it.
//
//	client, _ := userstack.New(projectKey,
//	    userstack.WithHTTPHooks(
//	        userstack.RequestIDHook(),
//	        userstack.LoggingHook(logger),
//	    ),
//	)
type HTTPHook interface {
	// BeforeRequest is called before sending the HTTP request.
	// It can modify the request (e.g., add headers) and return an error to abort.
	BeforeRequest(ctx context.Context, req *http.Request) error

	// AfterResponse is called after receiving the HTTP response.
	// It receives the response, duration, and any error from the request.
	AfterResponse(ctx context.Context, req *http.Request, resp *http.Response, duration time.Duration, err error)
}

// HTTPHookFunc is a function adapter for simple hooks.
type HTTPHookFunc struct {
	Before func(ctx context.Context, req *http.Request) error
	After  func(ctx context.Context, req *http.Request, resp *http.Response, duration time.Duration, err error)
}

// BeforeRequest implements HTTPHook.
func (f HTTPHookFunc) BeforeRequest(ctx context.Context, req *http.Request) error {
	if f.Before != nil {
		return f.Before(ctx, req)
	}
	return nil
}

// AfterResponse implements HTTPHook.
func (f HTTPHookFunc) AfterResponse(ctx context.Context, req *http.Request, resp *http.Response, duration time.Duration, err error) {
	if f.After != nil {
		f.After(ctx, req, resp, duration, err)
	}
}

// hookChain combines multiple hooks into a single hook.
type hookChain struct {
	hooks []HTTPHook
}

// BeforeRequest calls all hooks in order.
func (c *hookChain) BeforeRequest(ctx context.Context, req *http.Request) error {
	for _, hook := range c.hooks {
		if err := hook.BeforeRequest(ctx, req); err != nil {
			return err
		}
	}
	return nil
}

// AfterResponse calls all hooks in reverse order (like a defer stack).
func (c *hookChain) AfterResponse(ctx context.Context, req *http.Request, resp *http.Response, duration time.Duration, err error) {
	for i := len(c.hooks) - 1; i >= 0; i-- {
		c.hooks[i].AfterResponse(ctx, req, resp, duration, err)
	}
}

// combineHooks combines multiple hooks into a single hook.
// If there are no hooks, returns nil. If there is one hook, returns it directly.
func combineHooks(hooks []HTTPHook) HTTPHook {
	if len(hooks) == 0 {
		return nil
	}
	if len(hooks) == 1 {
		return hooks[0]
	}
	return &hookChain{hooks: hooks}
}

// HeaderHook creates a hook that adds static headers to all requests.
func HeaderHook(headers map[string]string) HTTPHook {
	return HTTPHookFunc{
		Before: func(ctx context.Context, req *http.Request) error {
			for k, v := range headers {
				req.Header.Set(k, v)
			}
			return nil
		},
	}
}

// RequestIDHook tags every request with a random X-Request-Id unless one is
// already set.
func RequestIDHook() HTTPHook {
	return HTTPHookFunc{
		Before: func(ctx context.Context, req *http.Request) error {
			if req.Header.Get(RequestIDHeader) == "" {
				req.Header.Set(RequestIDHeader, uuid.NewString())
			}
			return nil
		},
	}
}

// LoggingHook creates a hook that logs request and response information.
// The Authorization header is never logged.
func LoggingHook(logger StructuredLogger) HTTPHook {
	return HTTPHookFunc{
		Before: func(ctx context.Context, req *http.Request) error {
			if auth := req.Header.Get("Authorization"); auth != "" {
				logger.Debug("userstack: request", "method", req.Method, "path", req.URL.Path, "authorization", MaskAuthHeader(auth))
				return nil
			}
			logger.Debug("userstack: request", "method", req.Method, "path", req.URL.Path)
			return nil
		},
		After: func(ctx context.Context, req *http.Request, resp *http.Response, duration time.Duration, err error) {
			if err != nil {
				logger.Warn("userstack: request failed", "method", req.Method, "path", req.URL.Path, "duration", duration, "error", err)
				return
			}
			if resp != nil {
				logger.Debug("userstack: response", "method", req.Method, "path", req.URL.Path, "duration", duration, "status", resp.StatusCode)
			}
		},
	}
}

// MetricsHook creates a hook that records request counts, errors and durations.
func MetricsHook(metrics Metrics) HTTPHook {
	return HTTPHookFunc{
		After: func(ctx context.Context, req *http.Request, resp *http.Response, duration time.Duration, err error) {
			metrics.IncrementCounter(MetricHTTPRequests, 1)
			metrics.RecordDuration(MetricHTTPDuration, duration)
			if err != nil || (resp != nil && resp.StatusCode >= 400) {
				metrics.IncrementCounter(MetricHTTPErrors, 1)
			}
		},
	}
}
