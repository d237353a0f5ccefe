package semver

import (
	"errors"
	"testing"
)

func TestSatisfies(t *testing.T) {
	tests := []struct {
		version    string
		constraint string
		want       bool
	}{
		{"1.2.5", "^1.0.0", true},
		{"2.0.0", "^1.0.0", false},
		{"1.0.3", "~1.0.0", true},
		{"1.1.0", "~1.0.0", false},
		{"0.2.9", "^0.2.3", true},
		{"0.3.0", "^0.2.3", false},
		{"1.2.3", "=1.2.3", true},
		{"1.2.4", "=1.2.3", false},
		{"1.2.3", "1.2.3", true},
		{"1.0.0", ">=1.0.0", true},
		{"0.9.9", ">=1.0.0", false},
		{"2.0.0", "<=2.0.0", true},
		{"2.0.1", "<=2.0.0", false},
		{"1.0.1", ">1.0.0", true},
		{"1.0.0", ">1.0.0", false},
		{"1.9.9", "<2.0.0", true},
		{"2.0.0", "<2.0.0", false},
		{"1.5.0", ">=1.0.0, <2.0.0", true},
		{"2.5.0", ">=1.0.0 <2.0.0", false},
		{"1.5.0", ">= 1.0.0", true},
		{"42.0.0", "*", true},
	}
	for _, tt := range tests {
		t.Run(tt.version+" "+tt.constraint, func(t *testing.T) {
			got, err := Satisfies(tt.version, tt.constraint)
			if err != nil {
				t.Fatalf("Satisfies: %v", err)
			}
			if got != tt.want {
				t.Errorf("Satisfies(%q, %q) = %v, want %v", tt.version, tt.constraint, got, tt.want)
			}
		})
	}
}

func TestParseConstraint_Malformed(t *testing.T) {
	for _, raw := range []string{"", "   ", "1.x", ">>1.0.0", "1.0", "^1", "1.0.0 || 2.0.0", "abc", "1.0.0 - 2.0.0"} {
		t.Run(raw, func(t *testing.T) {
			_, err := ParseConstraint(raw)
			if !errors.Is(err, ErrInvalidConstraint) {
				t.Errorf("ParseConstraint(%q): expected ErrInvalidConstraint, got %v", raw, err)
			}
		})
	}
}

func TestParseVersion_Strict(t *testing.T) {
	for _, raw := range []string{"1.0", "v1.0.0", "1.0.0.0", "one"} {
		if _, err := ParseVersion(raw); !errors.Is(err, ErrInvalidVersion) {
			t.Errorf("ParseVersion(%q): expected ErrInvalidVersion, got %v", raw, err)
		}
	}
	if _, err := Satisfies("1.0", "^1.0.0"); !errors.Is(err, ErrInvalidVersion) {
		t.Errorf("Satisfies should reject malformed versions, got %v", err)
	}
}

func TestConstraint_String(t *testing.T) {
	c := MustParseConstraint(">= 1.0.0")
	if c.String() != ">= 1.0.0" {
		t.Errorf("String() should keep the raw form, got %q", c.String())
	}
}

func TestMaxSatisfying(t *testing.T) {
	c := MustParseConstraint(">=1.0.0 <2.0.0")
	candidates := []Version{
		MustParseVersion("0.9.0"),
		MustParseVersion("1.0.0"),
		MustParseVersion("1.5.0"),
		MustParseVersion("2.0.0"),
	}

	best, ok := MaxSatisfying(c, candidates)
	if !ok {
		t.Fatalf("expected to find a satisfying version")
	}
	if Compare(best, MustParseVersion("1.5.0")) != 0 {
		t.Fatalf("expected best=1.5.0, got %s", best)
	}
}

func TestGoVersion(t *testing.T) {
	tests := map[string]string{
		"go1.23":            "1.23.0",
		"go1.23.4":          "1.23.4",
		"go1.22.1 X:boring": "1.22.1",
		"go1.24rc1":         "1.24.0",
		"go1.25beta2":       "1.25.0",
		"devel go1.24-abc":  "",
		"go1.2.3.4":         "",
		"gox":               "",
	}
	for in, want := range tests {
		if got := goVersion(in); got != want {
			t.Errorf("goVersion(%q) = %q, want %q", in, got, want)
		}
	}
	if v := RuntimeVersion(); v != "" {
		if _, err := ParseVersion(v); err != nil {
			t.Errorf("RuntimeVersion should parse when known: %v", err)
		}
	}
}
