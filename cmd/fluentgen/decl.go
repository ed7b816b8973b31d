package main

import (
	"github.com/spf13/cobra"

	"github.com/calumari/fluentgen/internal/generator"
)

var declFlags = struct {
	types *[]string
}{}

func init() {
	cmd := &cobra.Command{
		Use:     "decl <file.yaml>",
		Short:   "Generate from a YAML declaration file",
		Example: `  fluentgen decl automation.yaml --out ./dsl`,
		Args:    cobra.ExactArgs(1),
		RunE:    runDecl,
	}
	declFlags.types = cmd.Flags().StringSlice("type", nil, "generate only these declarations (repeatable)")
	rootCmd.AddCommand(cmd)
}

func runDecl(cmd *cobra.Command, args []string) error {
	cfg := baseConfig()
	cfg.Dir = "."
	cfg.Decl = args[0]
	cfg.Types = *declFlags.types
	cfg.Command = canonicalCommand(cfg)
	return generator.Run(newContext(cmd), cfg)
}
