package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("MODULE_PATHS", "app")
	t.Setenv("MODULES_DISABLED", "")
	t.Setenv("LOG_LEVEL", "error")

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "none.env")))
	err := cmd.Execute()
	return out.String(), err
}

func TestModulesCommand_PrintsLoadOrder(t *testing.T) {
	out, err := run(t, "modules")
	if err != nil {
		t.Fatalf("modules: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected header + 4 modules, got:\n%s", out)
	}
	for i, name := range []string{"http", "audit", "cache", "greeter"} {
		fields := strings.Fields(lines[i+1])
		if fields[1] != name {
			t.Errorf("row %d: got %s want %s", i+1, fields[1], name)
		}
	}
	if !strings.Contains(out, "cache@1.2.0") || !strings.Contains(out, "cache >=1.0.0") {
		t.Errorf("capabilities missing:\n%s", out)
	}
}

func TestValidateCommand(t *testing.T) {
	out, err := run(t, "validate")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !strings.HasPrefix(out, "ok: 4 modules booted") {
		t.Errorf("got %q", out)
	}
}

func TestValidateCommand_FailsOnUnmetDependency(t *testing.T) {
	t.Setenv("MODULES_DISABLED", "cache")
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"validate", "--env-file", filepath.Join(t.TempDir(), "none.env")})
	t.Setenv("MODULE_PATHS", "app")
	t.Setenv("LOG_LEVEL", "error")

	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "greeter requires cache") {
		t.Errorf("got %v", err)
	}
}

func TestRoutesCommand(t *testing.T) {
	out, err := run(t, "routes")
	if err != nil {
		t.Fatalf("routes: %v", err)
	}
	for _, want := range []string{"/greet/{name}", "/audit", "/health", "/_modules"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %s in:\n%s", want, out)
		}
	}
}

func TestCommand_RejectsBadConfig(t *testing.T) {
	t.Setenv("LOG_FORMAT", "xml")
	_, err := run(t, "modules")
	if err == nil || !strings.Contains(err.Error(), "LOG_FORMAT") {
		t.Errorf("expected a LOG_FORMAT config error, got %v", err)
	}
}
