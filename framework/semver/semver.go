// Package semver implements the version and constraint grammar used by
// module manifests.
//
// Versions are strict MAJOR.MINOR.PATCH with optional pre-release and build
// metadata. Constraints follow this grammar:
//
//	constraint := "*" | clause { ( "," | WS ) clause }   ; every clause must hold
//	clause     := [ op ] WS* version
//	op         := "=" | ">=" | "<=" | ">" | "<" | "^" | "~"
//
// A clause without an operator means "=". "^1.2.3" allows >=1.2.3 <2.0.0;
// for a zero major it stays within the minor ("^0.2.3" is <0.3.0), and
// "^0.0.3" pins the patch. "~1.2.3" allows >=1.2.3 <1.3.0.
//
// Pre-release versions only satisfy constraints whose clauses carry a
// pre-release themselves.
//
// Evaluation is delegated to github.com/Masterminds/semver/v3 once the
// input has been checked against the grammar above, so wildcard and range
// forms that library otherwise accepts ("1.x", "1 - 2", "||") are rejected.
package semver

import (
	"errors"
	"fmt"
	"regexp"
	"runtime"
	"strings"

	mm "github.com/Masterminds/semver/v3"
)

var (
	ErrInvalidVersion    = errors.New("invalid version")
	ErrInvalidConstraint = errors.New("invalid constraint")
)

var (
	clauseRE  = regexp.MustCompile(`^(=|>=|<=|>|<|\^|~)?(\d+)\.(\d+)\.(\d+)(-[0-9A-Za-z.-]+)?(\+[0-9A-Za-z.-]+)?$`)
	opSpaceRE = regexp.MustCompile(`(>=|<=|=|>|<|\^|~)\s+`)
	splitRE   = regexp.MustCompile(`[,\s]+`)
)

// Version is a semantic version.
//
// This is a thin wrapper around github.com/Masterminds/semver/v3.
type Version struct {
	v *mm.Version
}

// Constraint is a parsed version constraint.
//
// Examples:
//   - ">=1.2.0 <2.0.0"
//   - "^1.0.0"
//   - "~1.4.0"
type Constraint struct {
	raw string
	c   *mm.Constraints
}

// ParseVersion parses a strict MAJOR.MINOR.PATCH version. Surrounding
// whitespace is ignored; partial versions such as "1.2" are rejected.
func ParseVersion(raw string) (Version, error) {
	v, err := mm.StrictNewVersion(strings.TrimSpace(raw))
	if err != nil {
		return Version{}, fmt.Errorf("semver: parse version %q: %w: %v", raw, ErrInvalidVersion, err)
	}
	return Version{v: v}, nil
}

// MustParseVersion is like ParseVersion but panics if raw does not parse.
func MustParseVersion(raw string) Version {
	v, err := ParseVersion(raw)
	if err != nil {
		panic(err)
	}
	return v
}

// IsZero reports whether v is the zero Version, e.g. an unknown toolchain.
func (v Version) IsZero() bool { return v.v == nil }

func (v Version) String() string {
	if v.v == nil {
		return ""
	}
	return v.v.String()
}

// ParseConstraint checks raw against the grammar and compiles it.
func ParseConstraint(raw string) (Constraint, error) {
	normalized, err := normalize(raw)
	if err != nil {
		return Constraint{}, fmt.Errorf("semver: parse constraint %q: %w: %v", raw, ErrInvalidConstraint, err)
	}
	c, err := mm.NewConstraint(normalized)
	if err != nil {
		return Constraint{}, fmt.Errorf("semver: parse constraint %q: %w: %v", raw, ErrInvalidConstraint, err)
	}
	return Constraint{raw: raw, c: c}, nil
}

// MustParseConstraint is like ParseConstraint but panics if raw does not
// parse. Use it for constraints fixed at compile time.
func MustParseConstraint(raw string) Constraint {
	c, err := ParseConstraint(raw)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Constraint) String() string { return c.raw }

// Check reports whether v satisfies c.
func (c Constraint) Check(v Version) bool {
	if v.v == nil || c.c == nil {
		return false
	}
	return c.c.Check(v.v)
}

// normalize rewrites raw into the comma-separated form Masterminds expects,
// rejecting anything outside the documented grammar.
func normalize(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", errors.New("empty constraint")
	}
	if s == "*" {
		return s, nil
	}
	s = opSpaceRE.ReplaceAllString(s, "$1")
	clauses := splitRE.Split(s, -1)
	out := make([]string, 0, len(clauses))
	for _, clause := range clauses {
		if clause == "" {
			continue
		}
		if !clauseRE.MatchString(clause) {
			return "", fmt.Errorf("malformed clause %q", clause)
		}
		out = append(out, clause)
	}
	if len(out) == 0 {
		return "", errors.New("empty constraint")
	}
	return strings.Join(out, ", "), nil
}

// Satisfies parses both arguments and reports whether version satisfies
// constraint.
func Satisfies(version, constraint string) (bool, error) {
	v, err := ParseVersion(version)
	if err != nil {
		return false, err
	}
	c, err := ParseConstraint(constraint)
	if err != nil {
		return false, err
	}
	return c.Check(v), nil
}

// Compare compares a and b, returning:
// -1 if a < b
//
//	0 if a == b
//	1 if a > b
func Compare(a, b Version) int {
	if a.v == nil && b.v == nil {
		return 0
	}
	if a.v == nil {
		return -1
	}
	if b.v == nil {
		return 1
	}
	return a.v.Compare(b.v)
}

// MaxSatisfying returns the highest version in candidates that satisfies c.
//
// If multiple versions are equal, the first encountered wins.
func MaxSatisfying(c Constraint, candidates []Version) (Version, bool) {
	var best Version
	found := false
	for _, candidate := range candidates {
		if !c.Check(candidate) {
			continue
		}
		if !found || Compare(candidate, best) > 0 {
			best = candidate
			found = true
		}
	}
	return best, found
}

// RuntimeVersion returns the running Go toolchain version as a semantic
// version ("go1.23" becomes "1.23.0"). Release candidates and betas report
// the release they precede ("go1.24rc1" becomes "1.24.0"). Development
// builds report "", meaning unknown.
func RuntimeVersion() string {
	return goVersion(runtime.Version())
}

func goVersion(raw string) string {
	s, ok := strings.CutPrefix(raw, "go")
	if !ok {
		return ""
	}
	if i := strings.IndexAny(s, " -+"); i >= 0 {
		s = s[:i]
	}
	if i := strings.Index(s, "rc"); i > 0 {
		s = s[:i]
	} else if i := strings.Index(s, "beta"); i > 0 {
		s = s[:i]
	}
	parts := strings.Split(s, ".")
	if len(parts) > 3 {
		return ""
	}
	for _, p := range parts {
		if p == "" || strings.Trim(p, "0123456789") != "" {
			return ""
		}
	}
	for len(parts) < 3 {
		parts = append(parts, "0")
	}
	return strings.Join(parts, ".")
}
