package routing

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/km-arc/go-kernel/framework/container"
	gohttp "github.com/km-arc/go-kernel/framework/http"
	"github.com/km-arc/go-kernel/framework/hooks"
)

// RequestObserver records finished requests, e.g. for metrics.
type RequestObserver interface {
	ObserveRequest(method, route string, status int, d time.Duration)
}

// Lifecycle is the request boundary. For every request it fires
//
//	BEFORE_REQUEST  → before the handler; an error skips the handler
//	AFTER_REQUEST   → after the handler returned, with Status and Err set
//	AFTER_RESPONSE  → once the response is written; errors are only logged
//
// Handler panics and hook errors become a JSON 500 as long as nothing was
// written yet. The process never crashes because of a handler.
type Lifecycle struct {
	hooks    *hooks.Registry
	app      *container.Container
	log      zerolog.Logger
	observer RequestObserver
	debug    bool
}

// NewLifecycle creates the boundary. observer may be nil.
func NewLifecycle(reg *hooks.Registry, app *container.Container, log *zerolog.Logger, observer RequestObserver) *Lifecycle {
	l := &Lifecycle{hooks: reg, app: app, log: zerolog.Nop(), observer: observer}
	if log != nil {
		l.log = *log
	}
	return l
}

// Debug includes error text in 500 responses.
func (l *Lifecycle) Debug(on bool) *Lifecycle {
	l.debug = on
	return l
}

// Middleware is the chi middleware running the boundary.
func (l *Lifecycle) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		ctx := &hooks.Context{Container: l.app, Request: r}

		err := l.hooks.Trigger(hooks.BeforeRequest, ctx)
		if err == nil {
			err = serve(next, ww, r)
		}
		ctx.Err = err
		ctx.Status = status(ww, err)

		if aerr := l.hooks.Trigger(hooks.AfterRequest, ctx); aerr != nil {
			err = errors.Join(err, aerr)
			ctx.Err = err
			ctx.Status = status(ww, err)
		}
		if err != nil && ww.Status() == 0 {
			gohttp.NewResponse(ww).For(r).Exception(err, l.debug)
		}

		if rerr := l.hooks.Trigger(hooks.AfterResponse, ctx); rerr != nil {
			l.log.Warn().Err(rerr).Str("hook", string(hooks.AfterResponse)).Msg("hook failed after response")
		}

		l.record(r, ctx.Status, ww.BytesWritten(), time.Since(start), err)
	})
}

// serve calls the handler, turning a panic into an error.
func serve(next http.Handler, w http.ResponseWriter, r *http.Request) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	next.ServeHTTP(w, r)
	return nil
}

// status reports what the client sees. Nothing written yet means 500 on
// error and 200 otherwise.
func status(ww middleware.WrapResponseWriter, err error) int {
	if s := ww.Status(); s != 0 {
		return s
	}
	if err != nil {
		return http.StatusInternalServerError
	}
	return http.StatusOK
}

func (l *Lifecycle) record(r *http.Request, code, bytes int, d time.Duration, err error) {
	route := Pattern(r)
	if route == "" {
		route = "unmatched"
	}
	if l.observer != nil {
		l.observer.ObserveRequest(r.Method, route, code, d)
	}

	event := l.log.Info()
	switch {
	case code >= 500:
		event = l.log.Error()
	case code >= 400:
		event = l.log.Warn()
	}
	if err != nil {
		event = event.Err(err)
	}
	event.
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Str("route", route).
		Int("status", code).
		Int("bytes", bytes).
		Dur("duration", d).
		Str("request_id", middleware.GetReqID(r.Context())).
		Msg("http_request")
}
