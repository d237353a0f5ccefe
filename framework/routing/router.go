// Package routing wraps chi with Laravel-style helpers and the request
// lifecycle middleware that dispatches the request hooks.
package routing

import (
	"context"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	gohttp "github.com/km-arc/go-kernel/framework/http"
)

// Router wraps chi.Router with Laravel-style helpers.
type Router struct {
	mux chi.Router
	// root only: the outer middleware wrapped around mux
	handler http.Handler
}

// New creates a Router with request ids and real client IPs, followed by mw.
// Unmatched paths and methods answer with JSON errors.
//
//	r := routing.New(lifecycle.Middleware)
//
// mw wraps the whole mux, so it runs even when no route is registered.
func New(mw ...func(http.Handler) http.Handler) *Router {
	mux := chi.NewRouter()
	mux.NotFound(func(w http.ResponseWriter, req *http.Request) {
		gohttp.NewResponse(w).For(req).NotFound()
	})
	mux.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		gohttp.NewResponse(w).For(req).MethodNotAllowed()
	})

	outer := append(chi.Middlewares{middleware.RequestID, middleware.RealIP}, mw...)
	return &Router{mux: mux, handler: outer.Handler(mux)}
}

// ── HTTP verbs ───────────────────────────────────────────────────────────────

func (r *Router) Get(pattern string, h http.HandlerFunc)    { r.mux.Get(pattern, h) }
func (r *Router) Post(pattern string, h http.HandlerFunc)   { r.mux.Post(pattern, h) }
func (r *Router) Put(pattern string, h http.HandlerFunc)    { r.mux.Put(pattern, h) }
func (r *Router) Patch(pattern string, h http.HandlerFunc)  { r.mux.Patch(pattern, h) }
func (r *Router) Delete(pattern string, h http.HandlerFunc) { r.mux.Delete(pattern, h) }

// Handle mounts any http.Handler on pattern for every method.
func (r *Router) Handle(pattern string, h http.Handler) { r.mux.Handle(pattern, h) }

// ── Groups & Prefixes ────────────────────────────────────────────────────────

// Group creates an inline group, like Route::group([], fn).
func (r *Router) Group(fn func(r *Router)) {
	r.mux.Group(func(mx chi.Router) {
		fn(&Router{mux: mx})
	})
}

// Prefix creates a sub-router under a URL prefix, like Route::prefix('/api').
func (r *Router) Prefix(pattern string, fn func(r *Router)) {
	r.mux.Route(pattern, func(mx chi.Router) {
		fn(&Router{mux: mx})
	})
}

// Middleware adds one or more middleware to the router. On the root router
// it must run before any route is registered (a chi rule).
func (r *Router) Middleware(mw ...func(http.Handler) http.Handler) {
	r.mux.Use(mw...)
}

// ── Introspection ────────────────────────────────────────────────────────────

// Route is one registered method and pattern.
type Route struct {
	Method  string
	Pattern string
}

// Routes lists every registered route, sorted by pattern then method.
func (r *Router) Routes() []Route {
	var out []Route
	_ = chi.Walk(r.mux, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		out = append(out, Route{Method: method, Pattern: strings.ReplaceAll(route, "/*/", "/")})
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Pattern != out[j].Pattern {
			return out[i].Pattern < out[j].Pattern
		}
		return out[i].Method < out[j].Method
	})
	return out
}

// ── Params ───────────────────────────────────────────────────────────────────

// Param extracts a URL param, the $request->route('id') of chi.
func Param(r *http.Request, key string) string {
	return chi.URLParam(r, key)
}

// Pattern returns the matched route pattern, or "" before routing finished.
func Pattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}

// ── Serve ────────────────────────────────────────────────────────────────────

// ServeHTTP implements http.Handler so Router can be passed to http.Server.
// The root seeds the chi route context before its middleware runs, so
// Pattern sees the matched route once the mux returns.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if r.handler == nil {
		r.mux.ServeHTTP(w, req)
		return
	}
	if chi.RouteContext(req.Context()) == nil {
		rctx := chi.NewRouteContext()
		rctx.Routes = r.mux
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}
	r.handler.ServeHTTP(w, req)
}
