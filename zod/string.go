package zod

import (
	"maps"
	"math"
	"strconv"
	"strings"

	"github.com/tlipoca9/zodgen/validation"
)

// Format patterns for string rules. They are emitted through .refine so a
// user regex rule (which replaces .regex) never drops them.
const (
	uuidPattern      = `/^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$/`
	ulidPattern      = `/^[0-7][0-9A-HJKMNP-TV-Za-hjkmnp-tv-z]{25}$/`
	ipv4Pattern      = `/^((25[0-5]|2[0-4]\d|1\d\d|[1-9]?\d)\.){3}(25[0-5]|2[0-4]\d|1\d\d|[1-9]?\d)$/`
	ipv6Pattern      = `/^(([0-9a-fA-F]{1,4}:){7}[0-9a-fA-F]{1,4}|(([0-9a-fA-F]{1,4}:){0,7}[0-9a-fA-F]{1,4})?::(([0-9a-fA-F]{1,4}:){0,7}[0-9a-fA-F]{1,4})?)$/`
	macPattern       = `/^([0-9A-Fa-f]{2}[:-]){5}[0-9A-Fa-f]{2}$/`
	hexColorPattern  = `/^#([0-9a-fA-F]{3}|[0-9a-fA-F]{4}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$/`
	alphaPattern     = `/^[\p{L}\p{M}]+$/u`
	alphaNumPattern  = `/^[\p{L}\p{M}\p{N}]+$/u`
	alphaDashPattern = `/^[\p{L}\p{M}\p{N}_-]+$/u`
	asciiAlpha       = `/^[a-zA-Z]+$/`
	asciiAlphaNum    = `/^[a-zA-Z0-9]+$/`
	asciiAlphaDash   = `/^[a-zA-Z0-9_-]+$/`
	asciiPattern     = `/^[\x00-\x7F]*$/`
)

// StringBuilder builds z.string() chains. Plain strings are always trimmed.
type StringBuilder struct {
	chain
	requiredMsg string
	typeMsg     string
	trim        bool
}

// NewStringBuilder returns a trimming string builder.
func NewStringBuilder() *StringBuilder {
	return &StringBuilder{trim: true}
}

func (b *StringBuilder) Apply(v validation.ResolvedValidation) bool {
	return applyRule(stringRules, b, v)
}

func (b *StringBuilder) Build() string {
	base := "z.string(" + errorOption(missingInput, b.requiredMsg, b.typeMsg) + ")"
	if b.trim {
		base += ".trim()"
	}
	return b.render(base)
}

// requireNonEmpty adds .min(1) unless a min bound already exists.
func (c *chain) requireNonEmpty(msg string) {
	if c.hasKind("min") {
		return
	}
	c.parts = append(c.parts, part{kind: "min", code: call("min", "1", msg)})
}

var stringRules = merge(
	boundRules[*StringBuilder](1, false),
	ruleTable[*StringBuilder]{
		"required": func(b *StringBuilder, v validation.ResolvedValidation) bool {
			b.requiredMsg = v.Message
			b.requireNonEmpty(v.Message)
			return true
		},
		"filled": func(b *StringBuilder, v validation.ResolvedValidation) bool {
			b.requireNonEmpty(v.Message)
			return true
		},
		"string": func(b *StringBuilder, v validation.ResolvedValidation) bool {
			b.typeMsg = v.Message
			return true
		},
		"size":   exactLength[*StringBuilder],
		"length": exactLength[*StringBuilder],
		"alpha": func(b *StringBuilder, v validation.ResolvedValidation) bool {
			return b.test("alpha", pick(v, alphaPattern, asciiAlpha), v.Message)
		},
		"alpha_num": func(b *StringBuilder, v validation.ResolvedValidation) bool {
			return b.test("alpha_num", pick(v, alphaNumPattern, asciiAlphaNum), v.Message)
		},
		"alpha_dash": func(b *StringBuilder, v validation.ResolvedValidation) bool {
			return b.test("alpha_dash", pick(v, alphaDashPattern, asciiAlphaDash), v.Message)
		},
		"ascii":       pattern[*StringBuilder]("ascii", asciiPattern),
		"uuid":        pattern[*StringBuilder]("uuid", uuidPattern),
		"ulid":        pattern[*StringBuilder]("ulid", ulidPattern),
		"ipv4":        pattern[*StringBuilder]("ipv4", ipv4Pattern),
		"ipv6":        pattern[*StringBuilder]("ipv6", ipv6Pattern),
		"mac_address": pattern[*StringBuilder]("mac_address", macPattern),
		"hex_color":   pattern[*StringBuilder]("hex_color", hexColorPattern),
		"ip": func(b *StringBuilder, v validation.ResolvedValidation) bool {
			b.ReplaceRule("ip", refine("(val) => "+ipv4Pattern+".test(val) || "+ipv6Pattern+".test(val)", v.Message))
			return true
		},
		"lowercase": predicate[*StringBuilder]("lowercase", "(val) => val === val.toLowerCase()"),
		"uppercase": predicate[*StringBuilder]("uppercase", "(val) => val === val.toUpperCase()"),
		"json": predicate[*StringBuilder]("json",
			"(val) => { try { JSON.parse(val); return true; } catch { return false; } }"),
		"date": predicate[*StringBuilder]("date", "(val) => !Number.isNaN(Date.parse(val))"),
		"timezone": predicate[*StringBuilder]("timezone",
			"(val) => { try { new Intl.DateTimeFormat(undefined, { timeZone: val }); return true; } catch { return false; } }"),
		"date_format": func(b *StringBuilder, v validation.ResolvedValidation) bool {
			if len(v.Parameters) == 0 {
				return false
			}
			return b.test("date_format", DateFormatRegex(v.StringParams()...), v.Message)
		},
		"regex": func(b *StringBuilder, v validation.ResolvedValidation) bool {
			b.ReplaceRule("regex", call("regex", JSRegex(v.StringParam(0)), v.Message))
			return true
		},
		"not_regex": func(b *StringBuilder, v validation.ResolvedValidation) bool {
			b.ReplaceRule("not_regex", refine("(val) => !"+JSRegex(v.StringParam(0))+".test(val)", v.Message))
			return true
		},
		"starts_with":       affix[*StringBuilder]("starts_with", "startsWith", true),
		"ends_with":         affix[*StringBuilder]("ends_with", "endsWith", true),
		"doesnt_start_with": affix[*StringBuilder]("doesnt_start_with", "startsWith", false),
		"doesnt_end_with":   affix[*StringBuilder]("doesnt_end_with", "endsWith", false),
		"contains":          contains[*StringBuilder],
		"in":                membership[*StringBuilder](true, false),
		"not_in":            membership[*StringBuilder](false, false),
		"email": func(b *StringBuilder, v validation.ResolvedValidation) bool {
			b.ReplaceRule("email", call("email", "", v.Message))
			return true
		},
		"url": func(b *StringBuilder, v validation.ResolvedValidation) bool {
			b.ReplaceRule("url", call("url", "", v.Message))
			return true
		},
	},
)

func (c *chain) test(kind, re, msg string) bool {
	c.ReplaceRule(kind, refine("(val) => "+re+".test(val)", msg))
	return true
}

// pick returns the ascii variant when the rule carries an ascii parameter.
func pick(v validation.ResolvedValidation, unicode, ascii string) string {
	for _, p := range v.StringParams() {
		if strings.EqualFold(p, "ascii") {
			return ascii
		}
	}
	return unicode
}

type chainer interface {
	ReplaceRule(kind, fragment string)
	test(kind, re, msg string) bool
}

func pattern[B chainer](kind, re string) ruleFunc[B] {
	return func(b B, v validation.ResolvedValidation) bool {
		return b.test(kind, re, v.Message)
	}
}

func predicate[B chainer](kind, fn string) ruleFunc[B] {
	return func(b B, v validation.ResolvedValidation) bool {
		b.ReplaceRule(kind, refine(fn, v.Message))
		return true
	}
}

// affix renders starts_with style rules. A single positive value uses the
// native method; lists fall back to a refinement.
func affix[B chainer](kind, method string, want bool) ruleFunc[B] {
	return func(b B, v validation.ResolvedValidation) bool {
		values := v.StringParams()
		if len(values) == 0 {
			return false
		}
		if want && len(values) == 1 {
			b.ReplaceRule(kind, call(method, Quote(values[0]), v.Message))
			return true
		}
		fn := "(val) => " + QuoteList(values) + ".some((p) => val." + method + "(p))"
		if !want {
			fn = "(val) => !" + QuoteList(values) + ".some((p) => val." + method + "(p))"
		}
		b.ReplaceRule(kind, refine(fn, v.Message))
		return true
	}
}

// membership renders in/not_in as an includes check. Numeric builders emit
// number literals.
func membership[B chainer](want, numeric bool) ruleFunc[B] {
	return func(b B, v validation.ResolvedValidation) bool {
		values := v.StringParams()
		if len(values) == 0 {
			return false
		}
		list := QuoteList(values)
		if numeric {
			list = NumberList(values)
		}
		kind, neg := "in", ""
		if !want {
			kind, neg = "not_in", "!"
		}
		b.ReplaceRule(kind, refine("(val) => "+neg+list+".includes(val)", v.Message))
		return true
	}
}

// contains requires every listed value to occur in a string or array.
func contains[B chainer](b B, v validation.ResolvedValidation) bool {
	values := v.StringParams()
	if len(values) == 0 {
		return false
	}
	b.ReplaceRule("contains", refine("(val) => "+QuoteList(values)+".every((p) => val.includes(p))", v.Message))
	return true
}

// NumberList renders values as a JavaScript array, unquoting numeric ones.
func NumberList(values []string) string {
	out := make([]string, len(values))
	for i, s := range values {
		if n, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			out[i] = num(n)
		} else {
			out[i] = Quote(s)
		}
	}
	return "[" + strings.Join(out, ",") + "]"
}

type bounded interface {
	ReplaceRule(kind, fragment string)
}

// boundRules translates min/max/gt/gte/lt/lte/between onto .min and .max.
// gt(n) becomes min(n+1) and lt(n) max(n-1) for integer n. scale converts
// units, e.g. kilobytes to bytes for files. With allowFloat, fractional gt/lt
// keep their native .gt/.lt form; otherwise they round inward.
func boundRules[B bounded](scale float64, allowFloat bool) ruleTable[B] {
	bound := func(method string, offset float64) ruleFunc[B] {
		return func(b B, v validation.ResolvedValidation) bool {
			n, ok := v.NumberParam(0)
			if !ok {
				return false
			}
			n *= scale
			switch {
			case offset == 0:
			case isInt(n):
				n += offset
			case allowFloat:
				native := "gt"
				if offset < 0 {
					native = "lt"
				}
				b.ReplaceRule(native, call(native, num(n), v.Message))
				return true
			case offset > 0:
				n = math.Floor(n) + 1
			default:
				n = math.Ceil(n) - 1
			}
			b.ReplaceRule(method, call(method, num(n), v.Message))
			return true
		}
	}
	return ruleTable[B]{
		"min": bound("min", 0),
		"gte": bound("min", 0),
		"gt":  bound("min", 1),
		"max": bound("max", 0),
		"lte": bound("max", 0),
		"lt":  bound("max", -1),
		"between": func(b B, v validation.ResolvedValidation) bool {
			lo, ok1 := v.NumberParam(0)
			hi, ok2 := v.NumberParam(1)
			if !ok1 || !ok2 {
				return false
			}
			b.ReplaceRule("min", call("min", num(lo*scale), v.Message))
			b.ReplaceRule("max", call("max", num(hi*scale), v.Message))
			return true
		},
	}
}

func exactLength[B bounded](b B, v validation.ResolvedValidation) bool {
	n, ok := v.NumberParam(0)
	if !ok {
		return false
	}
	b.ReplaceRule("length", call("length", num(n), v.Message))
	return true
}

func merge[B any](tables ...ruleTable[B]) ruleTable[B] {
	out := ruleTable[B]{}
	for _, t := range tables {
		maps.Copy(out, t)
	}
	return out
}
