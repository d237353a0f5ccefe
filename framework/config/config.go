package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/km-arc/go-kernel/framework/http/validation"
)

// Config is the central typed configuration struct. It is bound into the
// container by the application kernel and can be constructor-injected as
// *config.Config.
type Config struct {
	App     AppConfig
	Log     LogConfig
	Modules ModulesConfig
	Metrics MetricsConfig
}

type AppConfig struct {
	Name  string
	Env   string // local | production | testing
	Debug bool
	URL   string
	Port  string
}

type LogConfig struct {
	Level  string // trace | debug | info | warn | error
	Format string // console | json
}

// ModulesConfig controls module discovery.
type ModulesConfig struct {
	Paths    []string // walked for module manifests
	Disabled []string // module names left out of the load order
	Verify   bool     // statically verify the container before boot
}

type MetricsConfig struct {
	Enabled bool
	Path    string
}

// Load reads the env files (.env by default; missing files are ignored) and
// builds a Config from the environment. Variables already set win over file
// entries.
func Load(envFiles ...string) *Config {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		_ = godotenv.Load(f)
	}

	debug := GetBool("APP_DEBUG", true)
	level := "info"
	if debug {
		level = "debug"
	}

	return &Config{
		App: AppConfig{
			Name:  Get("APP_NAME", "GoKernel"),
			Env:   Get("APP_ENV", "local"),
			Debug: debug,
			URL:   Get("APP_URL", "http://localhost"),
			Port:  Get("APP_PORT", "8000"),
		},
		Log: LogConfig{
			Level:  strings.ToLower(Get("LOG_LEVEL", level)),
			Format: strings.ToLower(Get("LOG_FORMAT", "console")),
		},
		Modules: ModulesConfig{
			Paths:    GetList("MODULE_PATHS", []string{"app"}),
			Disabled: GetList("MODULES_DISABLED", nil),
			Verify:   GetBool("MODULES_VERIFY", false),
		},
		Metrics: MetricsConfig{
			Enabled: GetBool("METRICS_ENABLED", true),
			Path:    Get("METRICS_PATH", "/metrics"),
		},
	}
}

// Validate checks the values a typo would silently break. The returned error
// is a *validation.Errors keyed by env variable.
func (c *Config) Validate() error {
	return validation.Make(map[string]string{
		"APP_ENV":      c.App.Env,
		"APP_PORT":     c.App.Port,
		"LOG_LEVEL":    c.Log.Level,
		"LOG_FORMAT":   c.Log.Format,
		"METRICS_PATH": c.Metrics.Path,
	}, validation.Rules{
		"APP_ENV":      "required|alpha_dash",
		"APP_PORT":     "required|integer|gte:0|lte:65535",
		"LOG_LEVEL":    "in:trace,debug,info,warn,error,fatal,panic,disabled",
		"LOG_FORMAT":   "in:console,json",
		"METRICS_PATH": "regex:^/[A-Za-z0-9/_.-]*$",
	}).Err()
}

// Get returns an env value, or fallback when unset or empty.
func Get(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// GetInt returns an int env value. Malformed values yield fallback.
func GetInt(key string, fallback int) int {
	i, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return i
}

// GetBool returns a bool env value in strconv.ParseBool syntax.
func GetBool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return b
}

// GetList splits a comma separated env value, dropping blank entries.
//
//	MODULE_PATHS=app, vendor/modules  →  []string{"app", "vendor/modules"}
func GetList(key string, fallback []string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
