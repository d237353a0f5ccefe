package http_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	gohttp "github.com/km-arc/go-kernel/framework/http"
)

func TestRequest_Bind(t *testing.T) {
	var got struct {
		Name string `json:"name"`
	}
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"ada"}`))
	r.Header.Set("Content-Type", "application/json")

	req := gohttp.NewRequest(r)
	if err := req.Bind(&got); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if got.Name != "ada" {
		t.Errorf("name: got %q", got.Name)
	}
	if !req.IsJSON() {
		t.Error("IsJSON should be true")
	}
}

func TestRequest_BindRejects(t *testing.T) {
	var v struct {
		Name string `json:"name"`
	}
	empty := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	if err := gohttp.NewRequest(empty).Bind(&v); !errors.Is(err, gohttp.ErrEmptyBody) {
		t.Errorf("empty body: got %v", err)
	}
	unknown := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"age":3}`))
	if err := gohttp.NewRequest(unknown).Bind(&v); err == nil {
		t.Error("unknown field should fail")
	}
}

func TestRequest_Query(t *testing.T) {
	req := gohttp.NewRequest(httptest.NewRequest(http.MethodGet, "/audit?limit=5&bad=x&q=go", nil))

	if got := req.Query("q"); got != "go" {
		t.Errorf("Query: got %q", got)
	}
	if got := req.Query("missing", "dflt"); got != "dflt" {
		t.Errorf("Query fallback: got %q", got)
	}
	if got := req.QueryInt("limit", 10); got != 5 {
		t.Errorf("QueryInt: got %d", got)
	}
	if got := req.QueryInt("bad", 10); got != 10 {
		t.Errorf("QueryInt malformed: got %d", got)
	}
	if req.Method() != http.MethodGet || req.Path() != "/audit" {
		t.Errorf("method/path: %s %s", req.Method(), req.Path())
	}
}

func TestRequest_RouteParam(t *testing.T) {
	var got string
	mux := chi.NewRouter()
	mux.Get("/greet/{name}", func(w http.ResponseWriter, r *http.Request) {
		got = gohttp.NewRequest(r).RouteParam("name")
	})
	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/greet/ada", nil))
	if got != "ada" {
		t.Errorf("RouteParam: got %q", got)
	}
}
