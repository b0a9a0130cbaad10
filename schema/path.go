package schema

import (
	"strconv"
	"strings"

	"github.com/tlipoca9/zodgen/zod"
)

// Segments splits a dotted field name.
func Segments(field string) []string {
	if field == "" {
		return nil
	}
	return strings.Split(field, ".")
}

// Accessor renders a null-safe access of field below root, e.g.
// data.address?.city or data.items?.[0]. Segments that are not identifiers
// use bracket notation.
func Accessor(root, field string) string {
	var sb strings.Builder
	sb.WriteString(root)
	for i, seg := range Segments(field) {
		if i > 0 {
			sb.WriteString("?.")
		}
		switch {
		case isIndex(seg):
			sb.WriteString("[" + seg + "]")
		case zod.IsIdentifier(seg):
			if i == 0 {
				sb.WriteString(".")
			}
			sb.WriteString(seg)
		default:
			sb.WriteString("[" + zod.Quote(seg) + "]")
		}
	}
	return sb.String()
}

// Path renders the issue path of field as a JavaScript array of literal
// segments. Numeric segments become numbers.
func Path(field string, prefix ...string) string {
	parts := append([]string{}, prefix...)
	for _, seg := range Segments(field) {
		if isIndex(seg) {
			parts = append(parts, seg)
		} else {
			parts = append(parts, zod.Quote(seg))
		}
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func isIndex(seg string) bool {
	_, err := strconv.Atoi(seg)
	return err == nil && !strings.HasPrefix(seg, "+") && !strings.HasPrefix(seg, "-")
}

// hasWildcard reports whether field contains a * segment.
func hasWildcard(field string) bool {
	for _, seg := range Segments(field) {
		if seg == "*" {
			return true
		}
	}
	return false
}

// splitWildcard splits items.*.qty into items and qty. It fails unless the
// field has exactly one wildcard segment with something after it.
func splitWildcard(field string) (prefix, rest string, ok bool) {
	prefix, rest, ok = strings.Cut(field, ".*.")
	if !ok || prefix == "" || rest == "" || hasWildcard(prefix) || hasWildcard(rest) {
		return "", "", false
	}
	return prefix, rest, true
}

// topLevel returns the first segment of field.
func topLevel(field string) string {
	first, _, _ := strings.Cut(field, ".")
	return first
}
