package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/km-arc/go-kernel/framework/config"
	"github.com/km-arc/go-kernel/framework/http/validation"
)

// ── helpers ──────────────────────────────────────────────────────────────────

var keys = []string{
	"APP_NAME", "APP_ENV", "APP_DEBUG", "APP_URL", "APP_PORT",
	"LOG_LEVEL", "LOG_FORMAT",
	"MODULE_PATHS", "MODULES_DISABLED", "MODULES_VERIFY",
	"METRICS_ENABLED", "METRICS_PATH",
}

// unsetAll removes every config key for the duration of the test.
func unsetAll(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "") // registers the restore
		os.Unsetenv(k)
	}
}

func missingEnv(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

// ── Load ─────────────────────────────────────────────────────────────────────

func TestLoad_Defaults(t *testing.T) {
	unsetAll(t)
	cfg := config.Load(missingEnv(t))

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"App.Name", cfg.App.Name, "GoKernel"},
		{"App.Env", cfg.App.Env, "local"},
		{"App.Port", cfg.App.Port, "8000"},
		{"Log.Level", cfg.Log.Level, "debug"},
		{"Log.Format", cfg.Log.Format, "console"},
		{"Modules.Paths", strings.Join(cfg.Modules.Paths, ","), "app"},
		{"Metrics.Path", cfg.Metrics.Path, "/metrics"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
	if cfg.Modules.Verify || len(cfg.Modules.Disabled) != 0 {
		t.Errorf("Modules: got %+v", cfg.Modules)
	}
	if !cfg.Metrics.Enabled {
		t.Error("metrics should be enabled by default")
	}
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	unsetAll(t)
	t.Setenv("APP_NAME", "MyApp")
	t.Setenv("APP_ENV", "production")
	t.Setenv("APP_PORT", "9000")
	t.Setenv("LOG_FORMAT", "JSON")
	t.Setenv("MODULE_PATHS", "app, vendor/modules ,")
	t.Setenv("MODULES_DISABLED", "audit")
	t.Setenv("MODULES_VERIFY", "true")

	cfg := config.Load(missingEnv(t))

	if cfg.App.Name != "MyApp" || cfg.App.Env != "production" || cfg.App.Port != "9000" {
		t.Errorf("App: got %+v", cfg.App)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format: got %q want json", cfg.Log.Format)
	}
	if got := strings.Join(cfg.Modules.Paths, "|"); got != "app|vendor/modules" {
		t.Errorf("Modules.Paths: got %q", got)
	}
	if len(cfg.Modules.Disabled) != 1 || cfg.Modules.Disabled[0] != "audit" {
		t.Errorf("Modules.Disabled: got %v", cfg.Modules.Disabled)
	}
	if !cfg.Modules.Verify {
		t.Error("Modules.Verify should be true")
	}
}

func TestLoad_DebugOffDefaultsToInfo(t *testing.T) {
	unsetAll(t)
	t.Setenv("APP_DEBUG", "false")
	cfg := config.Load(missingEnv(t))
	if cfg.App.Debug {
		t.Error("expected App.Debug to be false")
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level: got %q want info", cfg.Log.Level)
	}
}

func TestLoad_ReadsEnvFile(t *testing.T) {
	unsetAll(t)
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("APP_NAME=FromFile\nLOG_LEVEL=WARN\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Load(path)
	if cfg.App.Name != "FromFile" {
		t.Errorf("App.Name: got %q", cfg.App.Name)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level: got %q", cfg.Log.Level)
	}
}

// ── Get / GetInt / GetBool / GetList ─────────────────────────────────────────

func TestGet(t *testing.T) {
	t.Setenv("CUSTOM_KEY", "hello")
	if got := config.Get("CUSTOM_KEY", "default"); got != "hello" {
		t.Errorf("got %q want %q", got, "hello")
	}
	t.Setenv("CUSTOM_KEY", "")
	if got := config.Get("CUSTOM_KEY", "fallback"); got != "fallback" {
		t.Errorf("got %q want %q", got, "fallback")
	}
}

func TestGetInt(t *testing.T) {
	t.Setenv("SOME_INT", "42")
	if got := config.GetInt("SOME_INT", 0); got != 42 {
		t.Errorf("got %d want %d", got, 42)
	}
	t.Setenv("SOME_INT", "notanint")
	if got := config.GetInt("SOME_INT", 99); got != 99 {
		t.Errorf("got %d want %d", got, 99)
	}
}

func TestGetBool(t *testing.T) {
	for _, val := range []string{"true", "1", "True", "TRUE"} {
		t.Setenv("BOOL_KEY", val)
		if !config.GetBool("BOOL_KEY", false) {
			t.Errorf("expected true for %q", val)
		}
	}
	t.Setenv("BOOL_KEY", "notabool")
	if !config.GetBool("BOOL_KEY", true) {
		t.Error("expected fallback true")
	}
}

func TestGetList(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"a,b,c", "a|b|c"},
		{" a , b ", "a|b"},
		{",,", "fallback"},
		{"", "fallback"},
	}
	for _, tt := range tests {
		t.Setenv("LIST_KEY", tt.raw)
		got := strings.Join(config.GetList("LIST_KEY", []string{"fallback"}), "|")
		if got != tt.want {
			t.Errorf("%q: got %q want %q", tt.raw, got, tt.want)
		}
	}
}

// ── Validate ─────────────────────────────────────────────────────────────────

func TestValidate(t *testing.T) {
	unsetAll(t)
	if err := config.Load(missingEnv(t)).Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}

	tests := []struct {
		key, value string
	}{
		{"APP_PORT", "http"},
		{"APP_PORT", "70000"},
		{"LOG_LEVEL", "loud"},
		{"LOG_FORMAT", "xml"},
		{"METRICS_PATH", "metrics"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			unsetAll(t)
			t.Setenv(tt.key, tt.value)
			err := config.Load(missingEnv(t)).Validate()
			var bag *validation.Errors
			if !errors.As(err, &bag) || bag.First(tt.key) == "" {
				t.Errorf("expected an error for %s, got %v", tt.key, err)
			}
		})
	}
}
