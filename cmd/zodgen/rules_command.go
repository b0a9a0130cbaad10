package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tlipoca9/zodgen/validation"
	"github.com/tlipoca9/zodgen/zod"
)

// RuleInfo describes one rule zodgen translates.
type RuleInfo struct {
	Rule     string   `json:"rule"`
	Arity    string   `json:"arity"`
	Builders []string `json:"builders"`
}

// ListRules returns the translated rules sorted by name. Arity comes from
// the resolver catalog; rules it does not know are reported as "none".
func ListRules() []RuleInfo {
	catalog := validation.DefaultCatalog()
	supported := zod.SupportedRules()
	out := make([]RuleInfo, 0, len(supported))
	for _, s := range supported {
		info := RuleInfo{Rule: s.Rule, Arity: validation.ArityNone.String(), Builders: s.Builders}
		if spec, ok := catalog.Lookup(s.Rule); ok {
			info.Arity = spec.Arity.String()
		}
		out = append(out, info)
	}
	return out
}

func rulesCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List supported validation rules",
		Long: `List the validation rules zodgen translates, how many parameters each
takes and which builders render it. Builder "*" means the rule is accepted
everywhere but produces no output of its own (e.g. bail, sometimes).`,
		Example: `  zodgen rules
  zodgen rules --json | jq '.[] | select(.rule == "min")'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printRules(cmd.OutOrStdout(), ListRules(), o.jsonOutput)
		},
	}
}

func printRules(w io.Writer, infos []RuleInfo, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(infos)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "RULE\tARITY\tBUILDERS")
	for _, info := range infos {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", info.Rule, info.Arity, strings.Join(info.Builders, ", "))
	}
	return tw.Flush()
}
