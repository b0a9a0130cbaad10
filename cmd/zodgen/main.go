// Command zodgen generates Zod schemas from Laravel-style validation rules
// declared on Go structs or in rule manifests.
package main

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/fang"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tlipoca9/zodgen/cmd/zodgen/generator"
	"github.com/tlipoca9/zodgen/genkit"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// previewLimit bounds the file previews of a dry run.
const previewLimit = 500

func main() {
	if err := fang.Execute(context.Background(), rootCmd()); err != nil {
		os.Exit(1)
	}
}

// options are the flags shared by all commands.
type options struct {
	output     string
	mode       string
	namespace  string
	locale     string
	tags       []string
	dryRun     bool
	jsonOutput bool
	noColor    bool
	quiet      bool

	cmd *cobra.Command
}

func (o *options) logger() *genkit.Logger {
	if o.jsonOutput {
		return genkit.NewLoggerWithWriter(io.Discard)
	}
	return genkit.NewLoggerWithWriter(o.cmd.OutOrStdout()).SetNoColor(o.noColor).SetQuiet(o.quiet)
}

// config loads zodgen.toml from dir upwards and applies the flags set on
// the command line over it.
func (o *options) config(dir string, log *genkit.Logger) *genkit.Config {
	cfg, err := genkit.LoadConfig(dir)
	if err != nil {
		log.Warn("Failed to load %v: %v", genkit.ConfigFile, err)
		cfg = genkit.DefaultConfig()
	}
	flags := o.cmd.Flags()
	if flags.Changed("output") {
		cfg.Output = o.output
	}
	if flags.Changed("mode") {
		cfg.Mode = o.mode
	}
	if flags.Changed("namespace") {
		cfg.Namespace = o.namespace
	}
	if flags.Changed("locale") {
		cfg.Locale = o.locale
	}
	if flags.Changed("tags") {
		cfg.Tags = o.tags
	}
	for _, p := range []*string{&cfg.Output, &cfg.LangDir} {
		if abs, err := filepath.Abs(*p); err == nil && *p != "" {
			*p = abs
		}
	}
	return cfg
}

func rootCmd() *cobra.Command {
	o := &options{}

	ver := version
	if ver == commit {
		ver = "dev"
	}
	cmd := &cobra.Command{
		Use:   "zodgen [packages]",
		Short: "Generate Zod schemas from validation rules",
		Long: `zodgen translates Laravel-style validation rules into Zod schemas.

Annotate a struct and declare its rules in struct tags:

  // zodgen:@schema(name=CreateUser)
  type CreateUserRequest struct {
      Email string ` + "`json:\"email\" rules:\"required|email|max:255\"`" + `
      Tags  []string ` + "`json:\"tags\" each:\"string|max:20\"`" + `
  }

Settings are read from zodgen.toml in the package directory or a parent,
then from ZODGEN_* environment variables, then from flags.`,
		Version: fmt.Sprintf("%s (%s) %s", ver, commit, date),
		Example: `  zodgen ./...                       # all packages
  zodgen -o web/src/schemas.ts ./forms
  zodgen --mode split -o web/src/schemas ./...
  zodgen --dry-run --json ./...      # JSON output for IDE integration
  zodgen manifest rules.yaml`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			o.cmd = cmd
			return run(cmd.Context(), o, args)
		},
	}
	cmd.SetVersionTemplate(fmt.Sprintf("zodgen %s (%s) %s\n", ver, commit, date))

	flags := cmd.PersistentFlags()
	flags.StringVarP(&o.output, "output", "o", "", "Output file, or directory in split mode")
	flags.StringVar(&o.mode, "mode", "", "Output mode: single or split")
	flags.StringVar(&o.namespace, "namespace", "", "Wrap single-file output in a TypeScript namespace")
	flags.StringVar(&o.locale, "locale", "", "Message locale, read from <lang_dir>/<locale>.yaml")
	flags.StringSliceVar(&o.tags, "tags", nil, "Build tags used when loading packages")
	flags.BoolVar(&o.dryRun, "dry-run", false, "Validate and preview without writing files")
	flags.BoolVar(&o.jsonOutput, "json", false, "Output in JSON format (for IDE integration)")
	flags.BoolVar(&o.noColor, "no-color", false, "Disable colored output")
	flags.BoolVarP(&o.quiet, "quiet", "q", false, "Only print warnings and errors")

	cmd.AddCommand(manifestCmd(o))
	cmd.AddCommand(configCmd(o))
	cmd.AddCommand(rulesCmd(o))

	return cmd
}

func manifestCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "manifest <file>",
		Short: "Generate schemas from a YAML or JSON rule manifest",
		Long: `Generate schemas declared in a manifest instead of Go types.

YAML keeps the field order of each rules mapping:

  schemas:
    - name: Login
      rules:
        email: required|email
        password: [required, string, "min:8"]
      messages:
        email.required: We need your e-mail address.

JSON lists rules as ordered pairs:

  {"schemas": [{"name": "Login", "rules": [{"field": "email", "rules": "required|email"}]}]}`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o.cmd = cmd
			srcs, err := generator.LoadManifest(args[0])
			if err != nil {
				return err
			}
			return run(cmd.Context(), o, nil,
				generator.WithoutScan(),
				generator.WithSources(srcs...),
			)
		},
	}
}

// searchDir returns the directory zodgen.toml is searched from: the first
// package pattern when it names a directory, else the working directory.
func searchDir(patterns []string) (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}
	if len(patterns) == 0 {
		return wd, nil
	}
	arg := strings.TrimSuffix(strings.TrimSuffix(patterns[0], "/..."), "...")
	if arg == "." || arg == "" {
		return wd, nil
	}
	abs, err := filepath.Abs(arg)
	if err != nil {
		return wd, nil
	}
	if info, err := os.Stat(abs); err == nil && info.IsDir() {
		return abs, nil
	}
	return wd, nil
}

func run(ctx context.Context, o *options, patterns []string, opts ...generator.Option) error {
	log := o.logger()

	dir, err := searchDir(patterns)
	if err != nil {
		return err
	}
	cfg := o.config(dir, log)
	if cfg.Path != "" {
		log.Load("Using config %v", cfg.Path)
	}

	gen := genkit.New(genkit.Options{
		Tags:                 cfg.Tags,
		IgnoreGeneratedFiles: true,
	})
	if len(patterns) > 0 {
		if err := gen.Load(patterns...); err != nil {
			return fmt.Errorf("load: %w", err)
		}
		log.Load("Loaded %v package(s)", len(gen.Packages))
		for _, pkg := range gen.Packages {
			log.Item("%v", pkg.PkgPath)
		}
	}

	tool := generator.New(append([]generator.Option{generator.WithConfig(cfg)}, opts...)...)
	if o.dryRun {
		return runDryRun(ctx, o, gen, tool, log)
	}

	if err := tool.RunContext(ctx, gen, log); err != nil {
		return fmt.Errorf("%s: %w", tool.Name(), err)
	}

	files := gen.DryRun()
	if len(files) == 0 {
		log.Warn("No schemas found")
		return nil
	}
	written, err := gen.Write()
	if err != nil {
		return fmt.Errorf("write: %w", err)
	}
	log.Done("Generated %v schema(s) in %v file(s)", len(tool.Result().Schemas), len(files))
	for _, path := range written {
		log.Write("%v", path)
	}
	if unchanged := len(files) - len(written); unchanged > 0 {
		log.Info("%v file(s) unchanged", unchanged)
	}
	return nil
}

func runDryRun(
	ctx context.Context,
	o *options,
	gen *genkit.Generator,
	tool *generator.Generator,
	log *genkit.Logger,
) error {
	result := &genkit.DryRunResult{
		Success: true,
		Files:   make(map[string]string),
	}
	result.Stats.PackagesLoaded = len(gen.Packages)

	for _, d := range tool.Validate(gen, log) {
		result.AddDiagnostic(d)
	}

	if result.Success {
		if err := tool.RunContext(ctx, gen, log); err != nil {
			result.AddDiagnostic(genkit.Diagnostic{
				Severity: genkit.DiagnosticError,
				Message:  err.Error(),
				Tool:     tool.Name(),
			})
		}
	}
	if res := tool.Result(); res != nil {
		result.Stats.SchemasFound = len(res.Schemas)
		for _, f := range res.Failures {
			result.AddDiagnostic(genkit.Diagnostic{
				Severity: genkit.DiagnosticWarning,
				Message:  f.Error(),
				Tool:     tool.Name(),
			})
		}
	}

	if result.Success {
		for path, content := range gen.DryRun() {
			result.AddPreview(path, content, previewLimit)
		}
	}

	if o.jsonOutput {
		enc := json.NewEncoder(o.cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	return printDryRunResult(result, log)
}

func printDryRunResult(result *genkit.DryRunResult, log *genkit.Logger) error {
	if result.Success {
		log.Done("Dry-run successful")
		log.Item("Packages: %v", result.Stats.PackagesLoaded)
		log.Item("Schemas: %v", result.Stats.SchemasFound)
		log.Item("Files to generate: %v", result.Stats.FilesGenerated)
		for _, path := range slices.Sorted(maps.Keys(result.Files)) {
			log.Item("  %s", path)
		}
	} else {
		log.Warn("Dry-run found issues")
	}

	if result.Stats.ErrorCount > 0 {
		log.Warn("Errors: %v", result.Stats.ErrorCount)
	}
	if result.Stats.WarningCount > 0 {
		log.Warn("Warnings: %v", result.Stats.WarningCount)
	}

	for _, d := range result.Diagnostics {
		loc := d.Location()
		if loc != "" {
			loc += ": "
		}
		if d.Severity == genkit.DiagnosticError {
			log.Error("%s[%s] %s%s", d.Tool, d.Code, loc, d.Message)
		} else {
			log.Warn("%s[%s] %s%s", d.Tool, d.Code, loc, d.Message)
		}
	}

	if !result.Success {
		return fmt.Errorf("dry-run failed with %d error(s)", result.Stats.ErrorCount)
	}
	return nil
}
