// Package greeter is a module serving GET /greet/{name}. It depends on the
// cache and http capabilities.
package greeter

import (
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/km-arc/go-kernel/app/cache"
	"github.com/km-arc/go-kernel/framework/container"
	gohttp "github.com/km-arc/go-kernel/framework/http"
	"github.com/km-arc/go-kernel/framework/http/validation"
	"github.com/km-arc/go-kernel/framework/routing"
)

// Greeting is the response payload.
type Greeting struct {
	Message string `json:"message"`
	Visits  int    `json:"visits"`
}

// Greeter builds greetings and counts how often each name was greeted.
type Greeter struct {
	store    cache.Store
	greeting string
}

func NewGreeter(store cache.Store, greeting string) *Greeter {
	return &Greeter{store: store, greeting: greeting}
}

func (g *Greeter) Greet(name string) Greeting {
	return Greeting{
		Message: fmt.Sprintf("%s, %s!", g.greeting, name),
		Visits:  g.store.Increment("greeter:" + name),
	}
}

// ── Module ────────────────────────────────────────────────────────────────────

// Module binds the Greeter and mounts its route at boot.
type Module struct {
	log zerolog.Logger
}

func New(log *zerolog.Logger) *Module {
	return &Module{log: log.With().Str("module", "greeter").Logger()}
}

func (m *Module) Register(app *container.Container) error {
	app.Singleton(container.Key[*Greeter](), container.Ctor(NewGreeter,
		container.Arg("store"),
		container.Arg("greeting").Default("Hello"),
	))
	return nil
}

func (m *Module) Boot(app *container.Container) error {
	router, err := container.Resolve[*routing.Router](app, "router")
	if err != nil {
		return err
	}
	greeter, err := container.MakeType[*Greeter](app)
	if err != nil {
		return err
	}

	router.Get("/greet/{name}", func(w http.ResponseWriter, r *http.Request) {
		res := gohttp.NewResponse(w).For(r)
		name := gohttp.NewRequest(r).RouteParam("name")

		v := validation.Make(map[string]string{"name": name}, validation.Rules{
			"name": "required|alpha_dash|max:32",
		})
		if v.Fails() {
			res.ValidationError(v.Errors())
			return
		}
		g := greeter.Greet(name)
		m.log.Debug().Str("name", name).Int("visits", g.Visits).Msg("greeted")
		res.Success(g)
	})
	return nil
}
