package zod

import (
	"github.com/tlipoca9/zodgen/validation"
)

// booleanPreprocess maps form encodings onto booleans before z.boolean runs.
const booleanPreprocess = `(val) => {
    if (typeof val === "string") {
      const s = val.trim().toLowerCase();
      if (["true", "1", "on", "yes"].includes(s)) return true;
      if (["false", "0", "off", "no"].includes(s)) return false;
    }
    if (val === 1) return true;
    if (val === 0) return false;
    return val;
  }`

// BooleanBuilder builds preprocessed z.boolean() chains.
type BooleanBuilder struct {
	chain
	requiredMsg string
	typeMsg     string
}

func NewBooleanBuilder() *BooleanBuilder {
	return &BooleanBuilder{}
}

func (b *BooleanBuilder) Apply(v validation.ResolvedValidation) bool {
	return applyRule(booleanRules, b, v)
}

func (b *BooleanBuilder) Build() string {
	return b.render("z.preprocess(" + booleanPreprocess + ", z.boolean(" +
		errorOption(missingInput, b.requiredMsg, b.typeMsg) + "))")
}

var booleanRules = ruleTable[*BooleanBuilder]{
	"required": func(b *BooleanBuilder, v validation.ResolvedValidation) bool {
		b.requiredMsg = v.Message
		return true
	},
	"filled": noop[*BooleanBuilder],
	"boolean": func(b *BooleanBuilder, v validation.ResolvedValidation) bool {
		b.typeMsg = v.Message
		return true
	},
	"bool": func(b *BooleanBuilder, v validation.ResolvedValidation) bool {
		b.typeMsg = v.Message
		return true
	},
	"accepted": func(b *BooleanBuilder, v validation.ResolvedValidation) bool {
		b.ReplaceRule("accepted", refine("(val) => val === true", v.Message))
		return true
	},
	"declined": func(b *BooleanBuilder, v validation.ResolvedValidation) bool {
		b.ReplaceRule("declined", refine("(val) => val === false", v.Message))
		return true
	},
}
