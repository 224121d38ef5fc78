// Package userstack provides a Go client for the userstack product analytics
// API.
//
// The client identifies a user once, keeps the returned session token in a
// pluggable Storage, and attaches it to every tracked event. Page views are
// tracked automatically for any NavigationSource the client is attached to.
//
// # Quick Start
//
//	client, err := userstack.New(os.Getenv("USERSTACK_PROJECT_KEY"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Shutdown(context.Background())
//
//	// Exchange credentials for a session token.
//	err = client.Identify(ctx, userstack.Credentials{
//	    UserID: "user-123",
//	    Email:  "ada@example.com",
//	})
//	var idErr *userstack.IdentificationError
//	if errors.As(err, &idErr) {
//	    log.Printf("rejected: %s", idErr.Message)
//	}
//
//	// Fire-and-forget events.
//	client.Track("billing", "upgrade-clicked", map[string]any{"plan": "pro"})
//
// # Sessions
//
// The token is stored under the key "us-jwt" and read fresh from storage on
// every Track call. Without a token, Track drops the event: nothing is sent,
// nothing is queued, and no error is returned. Forget deletes the token.
//
// MemoryStorage is the default. FileStorage persists the session on disk and
// the redisstore package shares it through Redis.
//
// # Page Views
//
// Attach the client to the application's routing layer:
//
//	router := userstack.NewRouter(userstack.Location{Path: "/"})
//	client.WatchNavigation(router)
//
//	router.Navigate(userstack.Location{
//	    Path:     "/users/42",
//	    RawQuery: "tab=posts",
//	    Params:   map[string]string{"userId": "42"},
//	})
//	// tracks app/pageview {path: "/users/42", route: "/users/[userId]", query: {tab: "posts"}}
//
// # Error Handling
//
// Identify is synchronous and returns its error. Track is fire-and-forget:
// delivery failures are reported as *TrackError to the handler set with
// WithErrorHandler and to the returned *Pending. Nothing is retried.
//
// # Thread Safety
//
// The Client is safe for concurrent use. Concurrent Track calls are sent
// independently and may complete in any order.
package userstack
