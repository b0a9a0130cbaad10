package schema

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/tlipoca9/zodgen/validation"
	"github.com/tlipoca9/zodgen/zod"
)

// scope is where a refinement runs: the whole object, or one item of an
// array iterated with forEach.
type scope struct {
	// prefix is the array field iterated; empty at the top level.
	prefix string
}

const (
	dataRoot = "data"
	itemRoot = "item"
)

// target renders the accessor of the refined field.
func (s scope) target(field string) string {
	if s.prefix == "" {
		return Accessor(dataRoot, field)
	}
	return Accessor(itemRoot, field)
}

// path renders the issue path of the refined field.
func (s scope) path(field string) string {
	if s.prefix == "" {
		return Path(field)
	}
	return Path(field, append(pathParts(s.prefix), "i")...)
}

// ref resolves a referenced field. Fields under the same array prefix are
// read from the current item; plain fields from the root object. Wildcards
// spanning another array context cannot be resolved.
func (s scope) ref(other string) (expr string, absolute bool, ok bool) {
	if !hasWildcard(other) {
		return Accessor(dataRoot, other), true, true
	}
	if prefix, rest, ok := splitWildcard(other); ok && s.prefix != "" && prefix == s.prefix {
		return Accessor(itemRoot, rest), false, true
	}
	return "", false, false
}

func pathParts(field string) []string {
	var parts []string
	for _, seg := range Segments(field) {
		if isIndex(seg) {
			parts = append(parts, seg)
		} else {
			parts = append(parts, zod.Quote(seg))
		}
	}
	return parts
}

// check is one cross-field condition. When guard holds and cond holds, an
// issue is reported at the refined field.
type check struct {
	guard string
	cond  string
	// refs are root-level fields the check reads.
	refs []string
}

// refineFunc builds the check for one rule on target t. It reports false when
// the rule cannot be expressed in this scope.
type refineFunc func(s scope, t, field string, v validation.ResolvedValidation) (check, bool)

var refinements = map[string]refineFunc{
	"required_if":          conditional(true, empty),
	"required_unless":      conditional(false, empty),
	"accepted_if":          conditional(true, notAccepted),
	"declined_if":          conditional(true, notDeclined),
	"prohibited_if":        conditional(true, present),
	"prohibited_unless":    conditional(false, present),
	"required_with":        presence(" || ", false),
	"required_with_all":    presence(" && ", false),
	"required_without":     presence(" || ", true),
	"required_without_all": presence(" && ", true),
	"confirmed":            confirmed,
	"same":                 comparison("!=="),
	"different":            comparison("==="),
	"gt":                   size(">"),
	"gte":                  size(">="),
	"lt":                   size("<"),
	"lte":                  size("<="),
	"after":                date(">"),
	"after_or_equal":       date(">="),
	"before":               date("<"),
	"before_or_equal":      date("<="),
	"date_equals":          date("==="),
}

// IsRefinement reports whether the rule is rendered as a cross-field check.
func IsRefinement(rule string) bool {
	_, ok := refinements[strings.ToLower(rule)]
	return ok
}

// empty renders Laravel's notion of a missing value.
func empty(x string) string {
	return "(" + x + ` == null || (typeof ` + x + ` === "string" && ` + x + `.trim() === "") || (Array.isArray(` + x + `) && ` + x + ".length === 0))"
}

func present(x string) string { return "!" + empty(x) }

func notAccepted(x string) string {
	return `![true, 1, "1", "yes", "on", "true"].includes(` + x + ")"
}

func notDeclined(x string) string {
	return `![false, 0, "0", "no", "off", "false"].includes(` + x + ")"
}

// matches compares the string form of x against values.
func matches(x string, values []string) string {
	if len(values) == 1 {
		return "String(" + x + ") === " + zod.Quote(values[0])
	}
	return zod.QuoteList(values) + ".includes(String(" + x + "))"
}

// conditional handles rule:other,value,... rules guarded by the other field
// holding (or, with want false, not holding) one of the values.
func conditional(want bool, cond func(string) string) refineFunc {
	return func(s scope, t, _ string, v validation.ResolvedValidation) (check, bool) {
		params := v.StringParams()
		if len(params) < 2 {
			return check{}, false
		}
		other, abs, ok := s.ref(params[0])
		if !ok {
			return check{}, false
		}
		guard := matches(other, params[1:])
		if !want {
			guard = "!(" + guard + ")"
		}
		return check{guard: guard, cond: cond(t), refs: absRefs(abs, params[0])}, true
	}
}

// presence handles required_with style rules. With missing set the guard
// looks for empty fields instead of present ones.
func presence(join string, missing bool) refineFunc {
	return func(s scope, t, _ string, v validation.ResolvedValidation) (check, bool) {
		params := v.StringParams()
		if len(params) == 0 {
			return check{}, false
		}
		var terms, refs []string
		for _, p := range params {
			other, abs, ok := s.ref(p)
			if !ok {
				return check{}, false
			}
			if missing {
				terms = append(terms, empty(other))
			} else {
				terms = append(terms, present(other))
			}
			refs = append(refs, absRefs(abs, p)...)
		}
		return check{guard: "(" + strings.Join(terms, join) + ")", cond: empty(t), refs: refs}, true
	}
}

// confirmed compares the field with field_confirmation or the named field. A
// missing confirmation fails too.
func confirmed(s scope, t, field string, v validation.ResolvedValidation) (check, bool) {
	name := v.StringParam(0)
	if name == "" {
		name = s.absolute(field) + "_confirmation"
	}
	other, abs, ok := s.ref(name)
	if !ok {
		return check{}, false
	}
	return check{
		guard: present(t),
		cond:  empty(other) + " || String(" + t + ") !== String(" + other + ")",
		refs:  absRefs(abs, name),
	}, true
}

// absolute turns a scope-relative field back into its full dotted name.
func (s scope) absolute(field string) string {
	if s.prefix == "" {
		return field
	}
	return s.prefix + ".*." + field
}

func comparison(op string) refineFunc {
	return func(s scope, t, _ string, v validation.ResolvedValidation) (check, bool) {
		name := v.StringParam(0)
		if name == "" {
			return check{}, false
		}
		other, abs, ok := s.ref(name)
		if !ok {
			return check{}, false
		}
		return check{
			guard: present(t),
			cond:  "String(" + t + ") " + op + " String(" + other + ")",
			refs:  absRefs(abs, name),
		}, true
	}
}

// size handles gt:field and friends. Numeric parameters stay on the builder
// chain.
func size(op string) refineFunc {
	measure := func(x string) string {
		return `(typeof ` + x + ` === "string" || Array.isArray(` + x + `) ? ` + x + ".length : Number(" + x + "))"
	}
	return func(s scope, t, _ string, v validation.ResolvedValidation) (check, bool) {
		name := v.StringParam(0)
		if _, err := strconv.ParseFloat(name, 64); err == nil || name == "" {
			return check{}, false
		}
		other, abs, ok := s.ref(name)
		if !ok {
			return check{}, false
		}
		return check{
			guard: present(t) + " && " + present(other),
			cond:  "!(" + measure(t) + " " + op + " " + measure(other) + ")",
			refs:  absRefs(abs, name),
		}, true
	}
}

// dateKeywords are relative dates compiled to timestamps at validation time.
var dateKeywords = map[string]string{
	"now":       "Date.now()",
	"today":     "new Date().setHours(0, 0, 0, 0)",
	"tomorrow":  "new Date().setHours(24, 0, 0, 0)",
	"yesterday": "new Date().setHours(-24, 0, 0, 0)",
}

var fieldName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.([A-Za-z0-9_]+|\*))*$`)

// date compares timestamps. A current value that does not parse is reported;
// a reference that does not parse skips the check.
func date(op string) refineFunc {
	return func(s scope, t, _ string, v validation.ResolvedValidation) (check, bool) {
		param := strings.TrimSpace(v.StringParam(0))
		if param == "" {
			return check{}, false
		}
		var ref string
		var refs []string
		if kw, ok := dateKeywords[strings.ToLower(param)]; ok {
			ref = kw
		} else if fieldName.MatchString(param) {
			other, abs, ok := s.ref(param)
			if !ok {
				return check{}, false
			}
			ref = "Date.parse(String(" + other + ` ?? ""))`
			refs = absRefs(abs, param)
		} else {
			ref = "Date.parse(" + zod.Quote(param) + ")"
		}
		cur := "Date.parse(String(" + t + "))"
		return check{
			guard: present(t),
			cond:  "Number.isNaN(" + cur + ") || (!Number.isNaN(" + ref + ") && !(" + cur + " " + op + " " + ref + "))",
			refs:  refs,
		}, true
	}
}

func absRefs(abs bool, field string) []string {
	if !abs {
		return nil
	}
	return []string{field}
}
