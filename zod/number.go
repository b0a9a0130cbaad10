package zod

import (
	"github.com/tlipoca9/zodgen/validation"
)

// digitsExpr is the digit count of the integer part of val.
const digitsExpr = "Math.floor(Math.abs(val)).toString().length"

// NumberBuilder builds z.number() and z.int() chains.
type NumberBuilder struct {
	chain
	integer     bool
	requiredMsg string
	typeMsg     string
}

// NewNumberBuilder returns a number builder.
func NewNumberBuilder() *NumberBuilder {
	return &NumberBuilder{}
}

func (b *NumberBuilder) Apply(v validation.ResolvedValidation) bool {
	return applyRule(numberRules, b, v)
}

// Build renders z.int() once an integer rule was seen. A captured type message
// only fires for input that is present but wrong.
func (b *NumberBuilder) Build() string {
	base := "z.number("
	if b.integer {
		base = "z.int("
	}
	return b.render(base + errorOption(missingInput, b.requiredMsg, b.typeMsg) + ")")
}

var numberRules = merge(
	boundRules[*NumberBuilder](1, true),
	ruleTable[*NumberBuilder]{
		"required": func(b *NumberBuilder, v validation.ResolvedValidation) bool {
			b.requiredMsg = v.Message
			return true
		},
		"numeric": func(b *NumberBuilder, v validation.ResolvedValidation) bool {
			if b.typeMsg == "" {
				b.typeMsg = v.Message
			}
			return true
		},
		"integer": func(b *NumberBuilder, v validation.ResolvedValidation) bool {
			b.integer = true
			if v.Message != "" {
				b.typeMsg = v.Message
			}
			return true
		},
		"size": func(b *NumberBuilder, v validation.ResolvedValidation) bool {
			n, ok := v.NumberParam(0)
			if !ok {
				return false
			}
			b.ReplaceRule("size", refine("(val) => val === "+num(n), v.Message))
			return true
		},
		"multiple_of": func(b *NumberBuilder, v validation.ResolvedValidation) bool {
			n, ok := v.NumberParam(0)
			if !ok || n == 0 {
				return false
			}
			b.ReplaceRule("multipleOf", call("multipleOf", num(n), v.Message))
			return true
		},
		"decimal": func(b *NumberBuilder, v validation.ResolvedValidation) bool {
			lo, ok := v.NumberParam(0)
			if !ok {
				return false
			}
			cond := "d === " + num(lo)
			if hi, ok := v.NumberParam(1); ok {
				cond = "d >= " + num(lo) + " && d <= " + num(hi)
			}
			b.ReplaceRule("decimal", refine(`(val) => { const d = (String(val).split(".")[1] ?? "").length; return `+cond+`; }`, v.Message))
			return true
		},
		"digits": digits("digits", func(p []float64) string {
			return digitsExpr + " === " + num(p[0])
		}, 1),
		"min_digits": digits("min_digits", func(p []float64) string {
			return digitsExpr + " >= " + num(p[0])
		}, 1),
		"max_digits": digits("max_digits", func(p []float64) string {
			return digitsExpr + " <= " + num(p[0])
		}, 1),
		"digits_between": digits("digits_between", func(p []float64) string {
			return digitsExpr + " >= " + num(p[0]) + " && " + digitsExpr + " <= " + num(p[1])
		}, 2),
		"in":     membership[*NumberBuilder](true, true),
		"not_in": membership[*NumberBuilder](false, true),
	},
)

// digits renders a digit-count refinement over the integer part of the value.
func digits(kind string, cond func(p []float64) string, arity int) ruleFunc[*NumberBuilder] {
	return func(b *NumberBuilder, v validation.ResolvedValidation) bool {
		p := make([]float64, 0, arity)
		for i := range arity {
			n, ok := v.NumberParam(i)
			if !ok {
				return false
			}
			p = append(p, n)
		}
		b.ReplaceRule(kind, refine("(val) => "+cond(p), v.Message))
		return true
	}
}
