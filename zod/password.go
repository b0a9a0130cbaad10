package zod

import (
	"strings"

	"github.com/tlipoca9/zodgen/validation"
)

// PasswordBuilder is a string builder that understands the password policy
// rules. Each policy rule appends its own refinement; missing messages
// default to a sentence built from the field name.
type PasswordBuilder struct {
	StringBuilder
}

func NewPasswordBuilder() *PasswordBuilder {
	return &PasswordBuilder{StringBuilder{}}
}

func (b *PasswordBuilder) Apply(v validation.ResolvedValidation) bool {
	if applyRule(passwordRules, b, v) {
		return true
	}
	return b.StringBuilder.Apply(v)
}

// Build does not trim: whitespace is significant in passwords.
func (b *PasswordBuilder) Build() string {
	return b.render("z.string(" + errorOption(missingInput, b.requiredMsg, b.typeMsg) + ")")
}

func (b *PasswordBuilder) defaultMessage(msg, requirement string) string {
	if msg != "" {
		return msg
	}
	name := "password"
	if b.field != "" {
		name = validation.Humanize(b.field)
	}
	return "The " + name + " field must contain " + requirement + "."
}

func policy(kind, re, requirement string) ruleFunc[*PasswordBuilder] {
	return func(b *PasswordBuilder, v validation.ResolvedValidation) bool {
		return b.test(kind, re, b.defaultMessage(v.Message, requirement))
	}
}

var passwordRules = ruleTable[*PasswordBuilder]{
	"password": noop[*PasswordBuilder],
	"password_letters": policy("password_letters", `/\p{L}/u`,
		"at least one letter"),
	"password_mixed": policy("password_mixed", `/(\p{Ll}+.*\p{Lu})|(\p{Lu}+.*\p{Ll})/u`,
		"at least one uppercase and one lowercase letter"),
	"password_numbers": policy("password_numbers", `/\p{N}/u`,
		"at least one number"),
	"password_symbols": policy("password_symbols", `/\p{Z}|\p{S}|\p{P}/u`,
		"at least one symbol"),
}

// IsPasswordRule reports whether rule belongs to the password policy family.
func IsPasswordRule(rule string) bool {
	rule = strings.ToLower(rule)
	return rule == "password" || strings.HasPrefix(rule, "password_")
}
