package zod

import (
	"github.com/tlipoca9/zodgen/validation"
)

// ArrayBuilder builds z.array(item) chains. The item is either a literal
// expression or a nested Builder rendered at Build time.
type ArrayBuilder struct {
	chain
	itemExpr    string
	item        Builder
	requiredMsg string
	typeMsg     string
}

// NewArrayBuilder returns an array of z.any() items.
func NewArrayBuilder() *ArrayBuilder {
	return &ArrayBuilder{itemExpr: "z.any()"}
}

// SetItem sets a literal item expression such as z.string().
func (b *ArrayBuilder) SetItem(expr string) {
	b.itemExpr, b.item = expr, nil
}

// SetItemBuilder sets a builder rendering each item.
func (b *ArrayBuilder) SetItemBuilder(item Builder) {
	b.item = item
}

// Item returns the item builder, if any.
func (b *ArrayBuilder) Item() Builder { return b.item }

func (b *ArrayBuilder) Apply(v validation.ResolvedValidation) bool {
	return applyRule(arrayRules, b, v)
}

func (b *ArrayBuilder) Build() string {
	item := b.itemExpr
	if b.item != nil {
		item = b.item.Build()
	}
	opts := errorOption(missingInput, b.requiredMsg, b.typeMsg)
	if opts != "" {
		opts = ", " + opts
	}
	return b.render("z.array(" + item + opts + ")")
}

var arrayRules = merge(
	boundRules[*ArrayBuilder](1, false),
	ruleTable[*ArrayBuilder]{
		"required": func(b *ArrayBuilder, v validation.ResolvedValidation) bool {
			b.requiredMsg = v.Message
			b.requireNonEmpty(v.Message)
			return true
		},
		"filled": func(b *ArrayBuilder, v validation.ResolvedValidation) bool {
			b.requireNonEmpty(v.Message)
			return true
		},
		"array": func(b *ArrayBuilder, v validation.ResolvedValidation) bool {
			b.typeMsg = v.Message
			return true
		},
		"list":   noop[*ArrayBuilder],
		"size":   exactLength[*ArrayBuilder],
		"length": exactLength[*ArrayBuilder],
		"distinct": func(b *ArrayBuilder, v validation.ResolvedValidation) bool {
			b.ReplaceRule("distinct", refine("(val) => new Set(val.map((x) => JSON.stringify(x))).size === val.length", v.Message))
			return true
		},
		"contains": contains[*ArrayBuilder],
		"required_array_keys": func(b *ArrayBuilder, v validation.ResolvedValidation) bool {
			keys := v.StringParams()
			if len(keys) == 0 {
				return false
			}
			b.ReplaceRule("required_array_keys", refine("(val) => "+QuoteList(keys)+".every((k) => val.some((x) => x != null && typeof x === \"object\" && k in x))", v.Message))
			return true
		},
	},
)
