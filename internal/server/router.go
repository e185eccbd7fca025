package server

import (
	"net/http"

	"github.com/gorilla/mux"
)

// MuxRouter is an HTTP router implementing the [Router] interface.
//
// Uses [mux.Router] internally for routing, so paths may declare {variables}.
type MuxRouter struct {
	mux         *mux.Router
	middlewares []Middleware
}

// NewMuxRouter creates a new [MuxRouter] instance.
func NewMuxRouter() *MuxRouter {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return &MuxRouter{mux: r, middlewares: []Middleware{}}
}

// Use adds [Middleware] to the [Router] instance's middleware stack, applied in the order it's added.
func (r *MuxRouter) Use(middleware ...Middleware) {
	r.middlewares = append(r.middlewares, middleware...)
}

// Handle registers a handler for the specified HTTP method and path.
//
// The handler is wrapped with all registered middleware.
func (r *MuxRouter) Handle(method, path string, handler http.Handler) {
	r.mux.Handle(path, r.Apply(handler)).Methods(method)
}

// Handler registers a custom Handler implementation.
//
// All routes returned by [Handler.Routes] are registered with this handler for every method.
func (r *MuxRouter) Handler(handler Handler) {
	wrapped := r.Apply(handler)

	for _, route := range handler.Routes() {
		r.mux.Handle(route, wrapped)
	}
}

// ServeHTTP implements [http.Handler] for the entire router.
func (r *MuxRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Apply wraps a handler with all registered middleware.
//
// Middleware is applied in reverse order (last added wraps first).
func (r *MuxRouter) Apply(handler http.Handler) http.Handler {
	wrapped := handler

	for i := len(r.middlewares) - 1; i >= 0; i-- {
		wrapped = r.middlewares[i](wrapped)
	}

	return wrapped
}
