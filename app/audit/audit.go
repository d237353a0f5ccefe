// Package audit is a module that subscribes to lifecycle hooks and exposes
// what it saw at GET /audit.
package audit

import (
	"net/http"
	"sync"

	"github.com/rs/zerolog"

	"github.com/km-arc/go-kernel/framework/container"
	gohttp "github.com/km-arc/go-kernel/framework/http"
	"github.com/km-arc/go-kernel/framework/hooks"
	"github.com/km-arc/go-kernel/framework/routing"
)

// maxRequests bounds the request trail.
const maxRequests = 100

// Request is one finished request.
type Request struct {
	Method string `json:"method"`
	Path   string `json:"path"`
	Status int    `json:"status"`
}

// Snapshot is the trail at one point in time.
type Snapshot struct {
	Modules  []string  `json:"modules"`
	Requests []Request `json:"requests"`
	Total    int       `json:"total"`
}

// Trail records module registrations and requests.
type Trail struct {
	mu       sync.Mutex
	modules  []string
	requests []Request
	total    int
}

func (t *Trail) module(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.modules = append(t.modules, name)
}

func (t *Trail) request(r Request) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.total++
	t.requests = append(t.requests, r)
	if len(t.requests) > maxRequests {
		t.requests = t.requests[len(t.requests)-maxRequests:]
	}
}

// Snapshot copies the trail.
func (t *Trail) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Snapshot{
		Modules:  append([]string{}, t.modules...),
		Requests: append([]Request{}, t.requests...),
		Total:    t.total,
	}
}

// Last keeps only the n most recent requests. Total is unchanged.
func (s Snapshot) Last(n int) Snapshot {
	if n >= 0 && len(s.Requests) > n {
		s.Requests = s.Requests[len(s.Requests)-n:]
	}
	return s
}

// ── Module ────────────────────────────────────────────────────────────────────

type Module struct {
	log   zerolog.Logger
	trail *Trail
}

func New(log *zerolog.Logger) *Module {
	return &Module{log: log.With().Str("module", "audit").Logger(), trail: &Trail{}}
}

// Hooks records every module registered after this one, and every finished
// request.
func (m *Module) Hooks(r *hooks.Registrar) error {
	if err := r.Register(hooks.BeforeModuleRegister, hooks.Self, func(*hooks.Context) error {
		m.log.Info().Msg("audit trail started")
		return nil
	}); err != nil {
		return err
	}
	if err := r.Register(hooks.AfterModuleRegister, hooks.Global, func(ctx *hooks.Context) error {
		m.trail.module(ctx.Module)
		return nil
	}); err != nil {
		return err
	}
	return r.Register(hooks.AfterResponse, hooks.Global, func(ctx *hooks.Context) error {
		if ctx.Request == nil {
			return nil
		}
		m.trail.request(Request{Method: ctx.Request.Method, Path: ctx.Request.URL.Path, Status: ctx.Status})
		return nil
	})
}

func (m *Module) Register(app *container.Container) error {
	app.Instance(container.Key[*Trail](), m.trail)
	return nil
}

func (m *Module) Boot(app *container.Container) error {
	router, err := container.Resolve[*routing.Router](app, "router")
	if err != nil {
		return err
	}
	router.Get("/audit", func(w http.ResponseWriter, r *http.Request) {
		limit := gohttp.NewRequest(r).QueryInt("limit", maxRequests)
		gohttp.NewResponse(w).Success(m.trail.Snapshot().Last(limit))
	})
	return nil
}
