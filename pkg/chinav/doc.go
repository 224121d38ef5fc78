// Package chinav connects a chi router to userstack's automatic pageviews.
//
// The middleware provides the client to handlers through the request context
// and, once a request has been routed, publishes its path, query and chi URL
// params to a userstack.Router. A client watching that router emits one
// pageview per request.
//
//	router := userstack.NewRouter(userstack.Location{})
//	client.WatchNavigation(router)
//
//	r := chi.NewRouter()
//	r.Use(chinav.Middleware(client, router))
//	r.Get("/users/{userId}", func(w http.ResponseWriter, r *http.Request) {
//	    userstack.MustFromContext(r.Context()).Track("profile", "view", nil)
//	})
//
// A request for /users/42 produces the pageview route "/users/[userId]".
package chinav
