// Package validation provides Laravel-style rule validation over flat string
// maps. The module loader runs manifest schema checks through it.
//
// # Basic Usage
//
//	v := validation.Make(map[string]string{
//	    "name":    "greeter",
//	    "version": "1.0.0",
//	}, validation.Rules{
//	    "name":    "required|capability|max:64",
//	    "version": "required|semver",
//	})
//
//	if err := v.Err(); err != nil {
//	    // err is *Errors, Bag map[string][]string
//	}
//
// Fields are checked in sorted order and the first failing rule of a field
// stops that field (Laravel's bail behaviour).
//
// # Available Rules
//
//   - required            present and non-blank
//   - min:n, max:n        length bounds in UTF-8 characters
//   - integer, boolean    parseable as int / true,false,1,0,yes,no
//   - gte:n, lte:n        numeric bounds
//   - in:a,b,c            one of the listed values
//   - alpha_dash          letters, numbers, dashes, underscores
//   - regex:pattern       must match the pattern
//   - capability          dotted/dashed identifier ("cache", "http.router", "Cache")
//   - semver              strict MAJOR.MINOR.PATCH version
//   - semver_constraint   constraint in the grammar of package semver
//   - nullable            empty values skip the remaining rules
//   - sometimes           absent keys skip the remaining rules
//
// # Error Bag
//
// Errors serialise to the same JSON structure as Laravel's validation errors:
//
//	{
//	  "errors": {
//	    "version": ["The version must be a MAJOR.MINOR.PATCH version."]
//	  }
//	}
package validation
