package zod

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"k8s.io/apimachinery/pkg/util/sets"
)

// FragmentMode says how a SchemaFragment joins the builder output.
type FragmentMode int

const (
	// ModeAppend adds the fragment to the call chain.
	ModeAppend FragmentMode = iota
	// ModeReplace replaces the base expression.
	ModeReplace
)

func (m FragmentMode) String() string {
	if m == ModeReplace {
		return "replace"
	}
	return "append"
}

// ParseFragmentMode parses "append" or "replace". An empty string is append.
func ParseFragmentMode(s string) (FragmentMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "append":
		return ModeAppend, nil
	case "replace":
		return ModeReplace, nil
	}
	return ModeAppend, fmt.Errorf("invalid fragment mode %q: want append or replace", s)
}

// SchemaFragment is custom output for one rule.
type SchemaFragment struct {
	Mode FragmentMode
	Code string
}

// CustomRule translates rules the builders do not know, or overrides them.
type CustomRule interface {
	Name() string
	Priority() int
	Matches(rule string) bool
	Render(params []string, message string) SchemaFragment
}

// FragmentRule is a CustomRule rendering a code template. The template may
// reference {0}, {1}, ... for single parameters, {params} for all of them
// joined by commas, {values} for them as a quoted array and {message} for
// the quoted message.
//
//	FragmentRule{Rule: "slug", Code: `regex(/^[a-z0-9-]+$/, {message})`}
type FragmentRule struct {
	Rule  string
	Mode  FragmentMode
	Code  string
	Order int
}

func (f FragmentRule) Name() string             { return f.Rule }
func (f FragmentRule) Priority() int            { return f.Order }
func (f FragmentRule) Matches(rule string) bool { return strings.EqualFold(f.Rule, rule) }

func (f FragmentRule) Render(params []string, message string) SchemaFragment {
	pairs := []string{"{params}", strings.Join(params, ","), "{values}", QuoteList(params)}
	if message != "" {
		pairs = append(pairs, "{message}", Quote(message))
	} else {
		pairs = append(pairs, ", {message}", "", "{message}", "undefined")
	}
	for i, p := range params {
		pairs = append(pairs, "{"+strconv.Itoa(i)+"}", p)
	}
	code := strings.NewReplacer(pairs...).Replace(f.Code)
	if f.Mode == ModeAppend && !strings.HasPrefix(code, ".") {
		code = "." + code
	}
	return SchemaFragment{Mode: f.Mode, Code: code}
}

// RuleSupport lists the builders translating one rule.
type RuleSupport struct {
	Rule     string   `json:"rule"`
	Builders []string `json:"builders"`
}

// SupportedRules reports which builders translate each rule. Rules accepted
// everywhere without output are listed with the builder "*".
func SupportedRules() []RuleSupport {
	byRule := map[string]sets.Set[string]{}
	add := func(builder string, rules ...string) {
		for _, r := range rules {
			if byRule[r] == nil {
				byRule[r] = sets.New[string]()
			}
			byRule[r].Insert(builder)
		}
	}
	add("string", stringRules.names()...)
	add("number", numberRules.names()...)
	add("boolean", booleanRules.names()...)
	add("array", arrayRules.names()...)
	add("enum", enumRules.names()...)
	add("file", fileRules.names()...)
	add("password", passwordRules.names()...)
	add("email", "email", "required")
	add("url", "url", "active_url", "required")
	for r := range passthrough {
		add("*", r)
	}

	out := make([]RuleSupport, 0, len(byRule))
	for r, b := range byRule {
		out = append(out, RuleSupport{Rule: r, Builders: sets.List(b)})
	}
	slices.SortFunc(out, func(a, b RuleSupport) int { return strings.Compare(a.Rule, b.Rule) })
	return out
}
