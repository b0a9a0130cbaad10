package zod

import (
	"math"
	"strconv"
	"strings"

	"github.com/tlipoca9/zodgen/validation"
)

// EnumBuilder builds z.enum() expressions. Enums take no refinements beyond
// nullable and optional.
type EnumBuilder struct {
	chain
	values  []string
	ref     string
	message string
}

// NewEnumBuilder returns an enum over values.
func NewEnumBuilder(values []string) *EnumBuilder {
	return &EnumBuilder{values: values}
}

// NewEnumRefBuilder returns an enum over an externally declared value list.
func NewEnumRefBuilder(ref string) *EnumBuilder {
	return &EnumBuilder{ref: ref}
}

func (b *EnumBuilder) Values() []string { return b.values }

func (b *EnumBuilder) Apply(v validation.ResolvedValidation) bool {
	return applyRule(enumRules, b, v)
}

// Build renders z.enum for string members and a literal union once every
// member is numeric, since z.enum only accepts strings.
func (b *EnumBuilder) Build() string {
	opts := ""
	if b.message != "" {
		opts = ", { error: " + Quote(b.message) + " }"
	}
	if b.ref != "" {
		return b.render("z.enum(" + b.ref + opts + ")")
	}
	if numericMembers(b.values) {
		lits := make([]string, len(b.values))
		for i, s := range b.values {
			lits[i] = "z.literal(" + strings.TrimSpace(s) + ")"
		}
		if len(lits) == 1 {
			return b.render(lits[0])
		}
		return b.render("z.union([" + strings.Join(lits, ", ") + "]" + opts + ")")
	}
	return b.render("z.enum(" + QuoteList(b.values) + opts + ")")
}

// numericMembers reports whether every value is a number written in its
// canonical form. "01", "1e3", "inf" and "NaN" are not valid JavaScript
// number literals as written and stay strings.
func numericMembers(values []string) bool {
	if len(values) == 0 {
		return false
	}
	for _, s := range values {
		s = strings.TrimSpace(s)
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) || num(f) != s {
			return false
		}
	}
	return true
}

func enumMessage(b *EnumBuilder, v validation.ResolvedValidation) bool {
	if v.Message != "" {
		b.message = v.Message
	}
	if vals := v.StringParams(); len(vals) > 0 && b.ref == "" {
		b.values = vals
	}
	return true
}

var enumRules = ruleTable[*EnumBuilder]{
	"in":       enumMessage,
	"enum":     enumMessage,
	"required": noop[*EnumBuilder],
	"filled":   noop[*EnumBuilder],
	"string":   noop[*EnumBuilder],
	"integer":  noop[*EnumBuilder],
	"numeric":  noop[*EnumBuilder],
}
