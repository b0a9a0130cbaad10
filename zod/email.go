package zod

import (
	"strings"

	"github.com/tlipoca9/zodgen/validation"
)

// EmailBuilder builds z.email(). Required and format messages stay distinct:
// missing or blank input reports the required message.
type EmailBuilder struct {
	StringBuilder
	formatMsg string
}

func NewEmailBuilder() *EmailBuilder {
	return &EmailBuilder{}
}

func (b *EmailBuilder) Apply(v validation.ResolvedValidation) bool {
	switch strings.ToLower(v.Rule) {
	case "email":
		b.formatMsg = v.Message
		return true
	case "required":
		b.requiredMsg = v.Message
		return true
	}
	return b.StringBuilder.Apply(v)
}

func (b *EmailBuilder) Build() string {
	return b.render("z.email(" + errorOption(missingOrBlank, b.requiredMsg, b.formatMsg) + ")")
}

// URLBuilder builds z.url(). url:http,https restricts the accepted protocols.
type URLBuilder struct {
	StringBuilder
	formatMsg string
	protocols []string
}

func NewURLBuilder() *URLBuilder {
	return &URLBuilder{}
}

func (b *URLBuilder) Apply(v validation.ResolvedValidation) bool {
	switch strings.ToLower(v.Rule) {
	case "url", "active_url":
		b.formatMsg = v.Message
		if p := v.StringParams(); len(p) > 0 {
			b.protocols = p
		}
		return true
	case "required":
		b.requiredMsg = v.Message
		return true
	}
	return b.StringBuilder.Apply(v)
}

func (b *URLBuilder) Build() string {
	var opts []string
	if len(b.protocols) > 0 {
		escaped := make([]string, len(b.protocols))
		for i, p := range b.protocols {
			escaped[i] = escapeProtocol(strings.ToLower(strings.TrimSpace(p)))
		}
		opts = append(opts, "protocol: /^("+strings.Join(escaped, "|")+")$/")
	}
	if e := errorOption(missingOrBlank, b.requiredMsg, b.formatMsg); e != "" {
		opts = append(opts, strings.TrimSuffix(strings.TrimPrefix(e, "{ "), " }"))
	}
	if len(opts) == 0 {
		return b.render("z.url()")
	}
	return b.render("z.url({ " + strings.Join(opts, ", ") + " })")
}

func escapeProtocol(p string) string {
	var sb strings.Builder
	for i := 0; i < len(p); i++ {
		sb.WriteString(escapeLiteral(p[i]))
	}
	return sb.String()
}
