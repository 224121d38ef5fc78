package chinav

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	userstack "github.com/jdziat/userstack-go"
)

// SkipFunc reports whether a request should not produce a navigation.
type SkipFunc func(r *http.Request) bool

// Config configures the navigation middleware.
type Config struct {
	Client *userstack.Client // provided to handlers via userstack.NewContext; may be nil
	Router *userstack.Router // receives one Navigate call per routed request
	Skip   SkipFunc          // defaults to SkipNonGET
}

// Middleware creates the middleware with the default skip rule.
func Middleware(client *userstack.Client, router *userstack.Router) func(next http.Handler) http.Handler {
	return MiddlewareWithConfig(Config{Client: client, Router: router})
}

// MiddlewareWithConfig creates the middleware with custom configuration.
func MiddlewareWithConfig(cfg Config) func(next http.Handler) http.Handler {
	if cfg.Skip == nil {
		cfg.Skip = SkipNonGET
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Client != nil {
				r = r.WithContext(userstack.NewContext(r.Context(), cfg.Client))
			}

			next.ServeHTTP(w, r)

			// URL params are only complete after chi has finished routing.
			if cfg.Router == nil || cfg.Skip(r) {
				return
			}
			cfg.Router.Navigate(LocationFromRequest(r))
		})
	}
}

// SkipNonGET skips every request that is not a GET.
func SkipNonGET(r *http.Request) bool {
	return r.Method != http.MethodGet
}

// LocationFromRequest builds a userstack.Location from a routed request.
// Params come from chi's route context; empty param values are left out.
func LocationFromRequest(r *http.Request) userstack.Location {
	return userstack.LocationFromURL(r.URL, URLParams(r))
}

// URLParams returns the URL params chi resolved for r, or nil outside a chi
// route.
func URLParams(r *http.Request) map[string]string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil || len(rctx.URLParams.Keys) == 0 {
		return nil
	}

	params := make(map[string]string, len(rctx.URLParams.Keys))
	for i, key := range rctx.URLParams.Keys {
		if i >= len(rctx.URLParams.Values) {
			break
		}
		// Mounted sub-routers leave the "*" wildcard behind.
		if key == "*" || rctx.URLParams.Values[i] == "" {
			continue
		}
		params[key] = rctx.URLParams.Values[i]
	}
	return params
}
