package validation

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/km-arc/go-kernel/framework/semver"
)

// ── Types ────────────────────────────────────────────────────────────────────

// Errors holds validation errors, mirroring Laravel's MessageBag.
// JSON output: {"errors": {"field": ["msg1", "msg2"]}}
type Errors struct {
	Bag map[string][]string `json:"errors"`
}

// Add appends msg to field, for checks that span more than one field.
func (e *Errors) Add(field, msg string) {
	if e.Bag == nil {
		e.Bag = make(map[string][]string)
	}
	e.Bag[field] = append(e.Bag[field], msg)
}

// Has returns true if there are any errors.
func (e *Errors) Has() bool { return len(e.Bag) > 0 }

// First returns the first error for a field.
func (e *Errors) First(field string) string {
	if msgs, ok := e.Bag[field]; ok && len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// Fields returns the failing field names, sorted.
func (e *Errors) Fields() []string {
	out := make([]string, 0, len(e.Bag))
	for f := range e.Bag {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Error joins every message, field by field, so a bag can travel as an error.
func (e *Errors) Error() string {
	var msgs []string
	for _, f := range e.Fields() {
		msgs = append(msgs, e.Bag[f]...)
	}
	return strings.Join(msgs, " ")
}

// ── Validator ────────────────────────────────────────────────────────────────

// Rules is a map of field → pipe-separated rule string.
// e.g. Rules{"name": "required|capability", "version": "required|semver"}
type Rules map[string]string

// Validator validates a flat map of input values.
type Validator struct {
	data   map[string]string
	rules  Rules
	errors *Errors
	ran    bool
}

// Make creates a new Validator, mirroring Validator::make($data, $rules).
func Make(data map[string]string, rules Rules) *Validator {
	return &Validator{
		data:   data,
		rules:  rules,
		errors: &Errors{},
	}
}

// Fails runs validation and returns true if any rule fails.
func (v *Validator) Fails() bool {
	if !v.ran {
		v.validate()
		v.ran = true
	}
	return v.errors.Has()
}

// Passes runs validation and returns true if all rules pass.
func (v *Validator) Passes() bool { return !v.Fails() }

// Errors returns the validation error bag.
func (v *Validator) Errors() *Errors { return v.errors }

// Err returns the error bag when validation failed, nil otherwise.
func (v *Validator) Err() error {
	if v.Fails() {
		return v.errors
	}
	return nil
}

// ── Rules ────────────────────────────────────────────────────────────────────

// rule checks one value against its parameter. message is a format taking
// the field name and the parameter.
type rule struct {
	check   func(value, param string) bool
	message string
}

var (
	alphaDashRE  = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	capabilityRE = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]*([._-][A-Za-z0-9]+)*$`)
)

var rules = map[string]rule{
	"required": {
		func(v, _ string) bool { return strings.TrimSpace(v) != "" },
		"The %s field is required.",
	},
	"integer": {
		func(v, _ string) bool { _, err := strconv.Atoi(v); return err == nil },
		"The %s must be an integer.",
	},
	"boolean": {
		func(v, _ string) bool {
			switch strings.ToLower(v) {
			case "true", "false", "1", "0", "yes", "no":
				return true
			}
			return false
		},
		"The %s field must be true or false.",
	},
	"min": {
		func(v, p string) bool { return utf8.RuneCountInString(v) >= atoi(p) },
		"The %s must be at least %s characters.",
	},
	"max": {
		func(v, p string) bool { return utf8.RuneCountInString(v) <= atoi(p) },
		"The %s may not be greater than %s characters.",
	},
	"gte": {
		func(v, p string) bool { return compare(v, p, func(a, b float64) bool { return a >= b }) },
		"The %s must be greater than or equal to %s.",
	},
	"lte": {
		func(v, p string) bool { return compare(v, p, func(a, b float64) bool { return a <= b }) },
		"The %s must be less than or equal to %s.",
	},
	"in": {
		func(v, p string) bool {
			for _, allowed := range strings.Split(p, ",") {
				if strings.TrimSpace(allowed) == v {
					return true
				}
			}
			return false
		},
		"The selected %s is invalid.",
	},
	"alpha_dash": {
		func(v, _ string) bool { return alphaDashRE.MatchString(v) },
		"The %s may only contain letters, numbers, dashes and underscores.",
	},
	"regex": {
		func(v, p string) bool {
			re, err := regexp.Compile(p)
			return err == nil && re.MatchString(v)
		},
		"The %s format is invalid.",
	},
	"capability": {
		func(v, _ string) bool { return capabilityRE.MatchString(v) },
		"The %s must be a capability identifier.",
	},
	"semver": {
		func(v, _ string) bool { _, err := semver.ParseVersion(v); return err == nil },
		"The %s must be a MAJOR.MINOR.PATCH version.",
	},
	"semver_constraint": {
		func(v, _ string) bool { _, err := semver.ParseConstraint(v); return err == nil },
		"The %s must be a valid version constraint.",
	},
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func compare(value, param string, ok func(a, b float64) bool) bool {
	a, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return false
	}
	b, _ := strconv.ParseFloat(param, 64)
	return ok(a, b)
}

// ── Validation loop ──────────────────────────────────────────────────────────

// validate runs each field's rules in order. The first failure ends the
// field. "sometimes" skips absent fields and "nullable" skips empty ones.
// An unknown rule name fails the field.
func (v *Validator) validate() {
	fields := make([]string, 0, len(v.rules))
	for f := range v.rules {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	for _, field := range fields {
		value, present := v.data[field]
		for _, entry := range strings.Split(v.rules[field], "|") {
			name, param, _ := strings.Cut(strings.TrimSpace(entry), ":")
			switch {
			case name == "":
				continue
			case name == "sometimes" && !present, name == "nullable" && value == "":
			case name == "sometimes", name == "nullable":
				continue
			default:
				r, ok := rules[name]
				if !ok {
					v.errors.Add(field, fmt.Sprintf("The %s has an unknown rule %q.", field, name))
				} else if !r.check(value, param) {
					v.errors.Add(field, formatMessage(r.message, field, param))
				} else {
					continue
				}
			}
			break
		}
	}
}

func formatMessage(format, field, param string) string {
	if strings.Count(format, "%s") == 2 {
		return fmt.Sprintf(format, field, param)
	}
	return fmt.Sprintf(format, field)
}
