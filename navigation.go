package userstack

import (
	"net/url"
	"sync"
)

// Location is a snapshot of the host application's navigation state.
type Location struct {
	// Path is the current path without query string.
	Path string
	// RawQuery is the encoded query string, without the leading "?".
	RawQuery string
	// Params maps dynamic route segment names to their resolved values.
	Params map[string]string
}

// LocationFromURL builds a Location from a URL and the route params the
// routing layer resolved for it.
func LocationFromURL(u *url.URL, params map[string]string) Location {
	return Location{
		Path:     u.Path,
		RawQuery: u.RawQuery,
		Params:   params,
	}
}

// NavigationSource is the contract the client needs from a routing layer:
// read access to the current location and a change notification.
type NavigationSource interface {
	// Current returns the current location.
	Current() Location
	// OnNavigate registers handler to be called after each navigation.
	// The returned function removes the registration; calling it more than
	// once is safe.
	OnNavigate(handler func(Location)) (unsubscribe func())
}

// Router is an in-process NavigationSource driven by the host application.
// Call Navigate whenever the application's location changes.
//
//	router := userstack.NewRouter(userstack.Location{Path: "/"})
//	stop := client.WatchNavigation(router)
//	defer stop()
//
//	router.Navigate(userstack.Location{Path: "/users/42", Params: map[string]string{"id": "42"}})
type Router struct {
	mu       sync.Mutex
	current  Location
	nextID   uint64
	handlers map[uint64]func(Location)
	order    []uint64
}

// NewRouter creates a Router positioned at initial.
func NewRouter(initial Location) *Router {
	return &Router{
		current:  initial,
		handlers: make(map[uint64]func(Location)),
	}
}

// Current implements NavigationSource.
func (r *Router) Current() Location {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// OnNavigate implements NavigationSource.
func (r *Router) OnNavigate(handler func(Location)) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++
	r.handlers[id] = handler
	r.order = append(r.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			delete(r.handlers, id)
			for i, oid := range r.order {
				if oid == id {
					r.order = append(r.order[:i], r.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Navigate records loc as the current location and notifies subscribers
// synchronously, in registration order. Handlers run outside the lock and may
// unsubscribe themselves.
func (r *Router) Navigate(loc Location) {
	r.mu.Lock()
	r.current = loc
	handlers := make([]func(Location), 0, len(r.order))
	for _, id := range r.order {
		handlers = append(handlers, r.handlers[id])
	}
	r.mu.Unlock()

	for _, h := range handlers {
		h(loc)
	}
}

// Subscribers returns the number of registered handlers.
func (r *Router) Subscribers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handlers)
}

var _ NavigationSource = (*Router)(nil)
