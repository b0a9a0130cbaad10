package zod

import (
	"strings"

	"github.com/tlipoca9/zodgen/validation"
)

// JSRegex converts a delimited PCRE pattern (/^a+$/i, #x#, {x}) into a
// JavaScript regex literal. Flags JavaScript lacks are dropped, inline (?i)
// groups become flags, \A and \z anchors become ^ and $, and doubled
// delimiters left over from escaping are collapsed.
func JSRegex(pattern string) string {
	pattern = strings.TrimSpace(pattern)
	for len(pattern) > 4 && pattern[0] == pattern[1] && pattern[0] == '/' {
		pattern = pattern[1:]
	}
	body, flags := validation.SplitDelimited(pattern)
	for strings.HasSuffix(body, "/") && !strings.HasSuffix(body, `\/`) && strings.HasPrefix(pattern, "/") && flags == "" {
		body = strings.TrimSuffix(body, "/")
	}

	var js strings.Builder
	addFlag := func(f byte) {
		if !strings.ContainsRune(js.String(), rune(f)) {
			js.WriteByte(f)
		}
	}
	for strings.HasPrefix(body, "(?") {
		end := strings.IndexByte(body, ')')
		if end < 0 {
			break
		}
		inline := body[2:end]
		if strings.Trim(inline, "imsxu") != "" {
			break
		}
		flags += inline
		body = body[end+1:]
	}
	for i := 0; i < len(flags); i++ {
		switch flags[i] {
		case 'i', 'm', 's', 'u':
			addFlag(flags[i])
		}
	}

	return "/" + escapeSlashes(convertAnchors(body)) + "/" + js.String()
}

// escapeSlashes escapes unescaped forward slashes outside character classes.
func escapeSlashes(body string) string {
	var sb strings.Builder
	escaped, inClass := false, false
	for i := 0; i < len(body); i++ {
		c := body[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\':
			escaped = true
		case c == '[':
			inClass = true
		case c == ']':
			inClass = false
		case c == '/' && !inClass:
			sb.WriteByte('\\')
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

func convertAnchors(body string) string {
	var sb strings.Builder
	for i := 0; i < len(body); i++ {
		if body[i] == '\\' && i+1 < len(body) {
			switch body[i+1] {
			case 'A':
				sb.WriteByte('^')
				i++
				continue
			case 'z', 'Z':
				sb.WriteByte('$')
				i++
				continue
			}
			sb.WriteByte(body[i])
			sb.WriteByte(body[i+1])
			i++
			continue
		}
		sb.WriteByte(body[i])
	}
	return sb.String()
}

// phpDateTokens maps PHP date() format characters to regex fragments.
var phpDateTokens = map[byte]string{
	'd': `(0[1-9]|[12]\d|3[01])`,
	'j': `([1-9]|[12]\d|3[01])`,
	'D': `(Mon|Tue|Wed|Thu|Fri|Sat|Sun)`,
	'l': `(Monday|Tuesday|Wednesday|Thursday|Friday|Saturday|Sunday)`,
	'N': `[1-7]`,
	'w': `[0-6]`,
	'z': `\d{1,3}`,
	'S': `(st|nd|rd|th)`,
	'm': `(0[1-9]|1[0-2])`,
	'n': `([1-9]|1[0-2])`,
	'M': `(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)`,
	'F': `(January|February|March|April|May|June|July|August|September|October|November|December)`,
	'Y': `\d{4}`,
	'y': `\d{2}`,
	'a': `(am|pm)`,
	'A': `(AM|PM)`,
	'g': `([1-9]|1[0-2])`,
	'G': `(1?\d|2[0-3])`,
	'h': `(0[1-9]|1[0-2])`,
	'H': `([01]\d|2[0-3])`,
	'i': `[0-5]\d`,
	's': `[0-5]\d`,
	'u': `\d{6}`,
	'v': `\d{3}`,
	'e': `[A-Za-z_]+(\/[A-Za-z_]+)*`,
	'T': `[A-Z]{1,5}`,
	'P': `[+-]\d{2}:\d{2}`,
	'p': `(Z|[+-]\d{2}:\d{2})`,
	'O': `[+-]\d{4}`,
	'U': `-?\d+`,
}

// DateFormatRegex converts PHP date formats into one anchored JavaScript
// regex literal; several formats become alternatives.
func DateFormatRegex(formats ...string) string {
	alts := make([]string, 0, len(formats))
	for _, f := range formats {
		if f = strings.TrimSpace(f); f != "" {
			alts = append(alts, dateFormatBody(f))
		}
	}
	if len(alts) == 1 {
		return "/^" + alts[0] + "$/"
	}
	return "/^(" + strings.Join(alts, "|") + ")$/"
}

func dateFormatBody(format string) string {
	var sb strings.Builder
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c == '\\' && i+1 < len(format) {
			i++
			sb.WriteString(escapeLiteral(format[i]))
			continue
		}
		if tok, ok := phpDateTokens[c]; ok {
			sb.WriteString(tok)
			continue
		}
		sb.WriteString(escapeLiteral(c))
	}
	return sb.String()
}

func escapeLiteral(c byte) string {
	if strings.IndexByte(`\^$.|?*+()[]{}/`, c) >= 0 {
		return `\` + string(c)
	}
	return string(c)
}
