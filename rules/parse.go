package rules

import (
	"encoding/csv"
	"strings"
)

// patternRules take a single regex parameter that may contain commas and pipes.
var patternRules = map[string]bool{
	"regex":     true,
	"not_regex": true,
	"notregex":  true,
}

// IsPatternRule reports whether the rule takes one raw regex parameter.
func IsPatternRule(name string) bool {
	return patternRules[strings.ToLower(name)]
}

// SplitRules splits a pipe-joined rule string into tokens. A regex parameter
// keeps its pipes as long as it is wrapped in matching delimiters.
func SplitRules(s string) []string {
	var tokens []string
	for len(s) > 0 {
		end := tokenEnd(s)
		if tok := strings.TrimSpace(s[:end]); tok != "" {
			tokens = append(tokens, tok)
		}
		if end >= len(s) {
			break
		}
		s = s[end+1:]
	}
	return tokens
}

// tokenEnd returns the index of the pipe that terminates the first token of s.
func tokenEnd(s string) int {
	colon := strings.IndexByte(s, ':')
	pipe := strings.IndexByte(s, '|')
	if colon < 0 || (pipe >= 0 && pipe < colon) || !IsPatternRule(strings.TrimSpace(s[:colon])) {
		if pipe < 0 {
			return len(s)
		}
		return pipe
	}
	param := s[colon+1:]
	if closeAt := patternEnd(param); closeAt >= 0 {
		if next := strings.IndexByte(param[closeAt:], '|'); next >= 0 {
			return colon + 1 + closeAt + next
		}
		return len(s)
	}
	if pipe < 0 {
		return len(s)
	}
	return pipe
}

// patternEnd returns the offset just past the first closing delimiter (and flags)
// that ends a token, or -1 when param does not open with a delimiter.
func patternEnd(param string) int {
	if param == "" {
		return -1
	}
	open := param[0]
	if isAlnum(open) || open == '\\' || open == ' ' {
		return -1
	}
	closer := open
	switch open {
	case '(':
		closer = ')'
	case '{':
		closer = '}'
	case '[':
		closer = ']'
	case '<':
		closer = '>'
	}
	for i := 1; i < len(param); i++ {
		switch param[i] {
		case '\\':
			i++
		case closer:
			j := i + 1
			for j < len(param) && isAlpha(param[j]) {
				j++
			}
			if j == len(param) || param[j] == '|' {
				return j
			}
		}
	}
	return -1
}

// ParseToken splits a canonical rule token into its name and parameters.
// Pattern rules keep their single parameter verbatim; all other parameter lists
// are read as one CSV record so quoted values may contain commas.
func ParseToken(tok string) RawRule {
	tok = strings.TrimSpace(tok)
	name, param, hasParam := strings.Cut(tok, ":")
	rule := RawRule{Name: strings.ToLower(strings.TrimSpace(name))}
	if !hasParam {
		return rule
	}
	if IsPatternRule(rule.Name) {
		rule.Parameters = []string{param}
		return rule
	}
	rule.Parameters = splitParameters(param)
	return rule
}

func splitParameters(param string) []string {
	if param == "" {
		return []string{""}
	}
	r := csv.NewReader(strings.NewReader(param))
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	record, err := r.Read()
	if err != nil {
		return strings.Split(param, ",")
	}
	return record
}

func isAlpha(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }

func isAlnum(c byte) bool { return isAlpha(c) || (c >= '0' && c <= '9') }
