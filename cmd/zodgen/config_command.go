package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tlipoca9/zodgen/genkit"
)

func configCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config [dir]",
		Short: "Print the effective configuration",
		Long: `Print the configuration zodgen would use in dir (default: the working
directory), after zodgen.toml, ZODGEN_* environment variables and flags are applied.

Example zodgen.toml:

  output = "web/src/schemas.ts"
  mode = "single"
  locale = "fr"
  lang_dir = "lang"

  [attributes]
  email = "e-mail address"

  [[custom_rules]]
  name = "slug"
  code = "regex(/^[a-z0-9-]+$/, {message})"`,
		Example: `  zodgen config
  zodgen config --json | jq .output
  ZODGEN_MODE=split zodgen config`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o.cmd = cmd
			dir, err := searchDir(args)
			if err != nil {
				return err
			}
			cfg := o.config(dir, genkit.NewLoggerWithWriter(cmd.ErrOrStderr()).SetNoColor(o.noColor))
			return printConfig(cmd.OutOrStdout(), cfg, o.jsonOutput)
		},
	}
	cmd.AddCommand(configInitCmd(o))
	return cmd
}

func printConfig(w io.Writer, cfg *genkit.Config, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	}
	data, err := genkit.EncodeConfig(cfg)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func configInitCmd(o *options) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Write a default zodgen.toml",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o.cmd = cmd
			log := o.logger()
			dir, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("get working directory: %w", err)
			}
			if len(args) > 0 {
				dir = args[0]
			}
			path, err := genkit.WriteConfig(dir, genkit.DefaultConfig(), force)
			if errors.Is(err, genkit.ErrConfigExists) {
				log.Warn("%v already exists, use --force to overwrite", path)
				return err
			}
			if err != nil {
				return err
			}
			log.Write("Created %v", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing zodgen.toml")
	return cmd
}
