package app_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/km-arc/go-kernel/app"
	"github.com/km-arc/go-kernel/framework/config"
	kernel "github.com/km-arc/go-kernel/framework/app"
	"github.com/km-arc/go-kernel/framework/module"
	"github.com/km-arc/go-kernel/framework/routing"
)

// ── helpers ──────────────────────────────────────────────────────────────────

func newConfig(disabled ...string) *config.Config {
	return &config.Config{
		App:     config.AppConfig{Name: "test", Env: "testing", Port: "0"},
		Modules: config.ModulesConfig{Paths: []string{"."}, Disabled: disabled, Verify: true},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

func boot(t *testing.T, disabled ...string) *routing.Router {
	t.Helper()
	a := kernel.New(newConfig(disabled...), zerolog.Nop(), kernel.WithRuntimeVersion("1.23.0"))
	app.Register(a)
	if err := a.Bootstrap(); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	router, err := a.Router()
	if err != nil {
		t.Fatalf("Router: %v", err)
	}
	return router
}

func get(t *testing.T, h http.Handler, path string, out any) int {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	if out != nil {
		if err := json.NewDecoder(rr.Body).Decode(out); err != nil {
			t.Fatalf("GET %s: decode: %v", path, err)
		}
	}
	return rr.Code
}

// ── tests ────────────────────────────────────────────────────────────────────

func TestApp_LoadOrder(t *testing.T) {
	a := kernel.New(newConfig(), zerolog.Nop(), kernel.WithRuntimeVersion("1.23.0"))
	app.Register(a)
	if err := a.Bootstrap(); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	var got []string
	for _, d := range a.Loader.Modules() {
		got = append(got, d.Name)
		if st, _ := a.Loader.Status(d.Name); st.State != module.Booted {
			t.Errorf("%s: %s", d.Name, st)
		}
	}
	if strings.Join(got, ",") != "http,audit,cache,greeter" {
		t.Errorf("load order: %v", got)
	}
	if !a.Sealed() {
		t.Error("container should be sealed after bootstrap")
	}
}

func TestApp_GreetCountsVisits(t *testing.T) {
	router := boot(t)

	var body struct {
		Data struct {
			Message string `json:"message"`
			Visits  int    `json:"visits"`
		} `json:"data"`
	}
	get(t, router, "/greet/ada", nil)
	if code := get(t, router, "/greet/ada", &body); code != http.StatusOK {
		t.Fatalf("status: %d", code)
	}
	if body.Data.Message != "Hello, ada!" || body.Data.Visits != 2 {
		t.Errorf("got %+v", body.Data)
	}

	if code := get(t, router, "/greet/bad.name", nil); code != http.StatusUnprocessableEntity {
		t.Errorf("invalid name: got %d", code)
	}
}

func TestApp_AuditSeesModulesAndRequests(t *testing.T) {
	router := boot(t)
	get(t, router, "/health", nil)
	get(t, router, "/greet/bob", nil)

	var body struct {
		Data struct {
			Modules  []string `json:"modules"`
			Total    int      `json:"total"`
			Requests []struct {
				Path   string `json:"path"`
				Status int    `json:"status"`
			} `json:"requests"`
		} `json:"data"`
	}
	get(t, router, "/audit", &body)

	if got := strings.Join(body.Data.Modules, ","); got != "audit,cache,greeter" {
		t.Errorf("modules: %s", got)
	}
	if body.Data.Total != 2 || body.Data.Requests[1].Path != "/greet/bob" || body.Data.Requests[1].Status != 200 {
		t.Errorf("requests: %+v", body.Data)
	}
}

func TestApp_AuditLimit(t *testing.T) {
	router := boot(t)
	get(t, router, "/health", nil)
	get(t, router, "/greet/bob", nil)

	var body struct {
		Data struct {
			Total    int `json:"total"`
			Requests []struct {
				Path string `json:"path"`
			} `json:"requests"`
		} `json:"data"`
	}
	get(t, router, "/audit?limit=1", &body)

	if body.Data.Total != 2 || len(body.Data.Requests) != 1 || body.Data.Requests[0].Path != "/greet/bob" {
		t.Errorf("limited trail: %+v", body.Data)
	}
}

func TestApp_ModulesAndMetricsEndpoints(t *testing.T) {
	router := boot(t)

	var body struct {
		Data []struct {
			Name   string `json:"name"`
			Status string `json:"status"`
		} `json:"data"`
	}
	get(t, router, "/_modules", &body)
	if len(body.Data) != 4 {
		t.Fatalf("modules: %+v", body.Data)
	}
	for _, m := range body.Data {
		if m.Status != "booted" {
			t.Errorf("%s: %s", m.Name, m.Status)
		}
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	for _, want := range []string{
		`gokernel_module_state{module="greeter",state="booted"} 1`,
		`gokernel_hooks_triggers_total{hook="AFTER_MODULE_REGISTER",outcome="ok"} 4`,
		`gokernel_http_requests_total{method="GET",route="/_modules",status="200"} 1`,
	} {
		if !strings.Contains(rr.Body.String(), want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestApp_DisableOptionalModule(t *testing.T) {
	router := boot(t, "greeter")
	if code := get(t, router, "/greet/ada", nil); code != http.StatusNotFound {
		t.Errorf("greeter disabled: got %d", code)
	}
}

func TestApp_DisablingDependencyFailsBootstrap(t *testing.T) {
	a := kernel.New(newConfig("cache"), zerolog.Nop(), kernel.WithRuntimeVersion("1.23.0"))
	app.Register(a)

	err := a.Bootstrap()
	if !errors.Is(err, module.ErrUnmetDependency) {
		t.Fatalf("expected ErrUnmetDependency, got %v", err)
	}
	if !strings.Contains(err.Error(), "greeter requires cache >=1.0.0") {
		t.Errorf("message: %s", err)
	}
}
