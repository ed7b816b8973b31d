package main

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/calumari/fluentgen/internal/generator"
	"github.com/calumari/fluentgen/internal/logging"
)

const defaultSuffix = "_fluent.go"

var rootFlags = struct {
	dir         *string
	types       *[]string
	suffix      *string
	out         *string
	dump        *bool
	verbose     *bool
	parallelism *int
}{}

var rootCmd = &cobra.Command{
	Use:   "fluentgen",
	Short: "Generate fluent sentence-builder DSLs",
	Long: `fluentgen reads interfaces tagged +fluent:dsl and structs tagged
+fluent:builder from a Go package and writes one file per declaration with
the interfaces, implementations and delegate of its fluent DSL.`,
	Example:       `  fluentgen --dir ./bdd --type Automation --out ./bdd/dsl`,
	Args:          cobra.NoArgs,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE:          runRoot,
}

func init() {
	pf := rootCmd.PersistentFlags()
	rootFlags.out = pf.String("out", "", "output directory (default the package directory)")
	rootFlags.suffix = pf.String("suffix", defaultSuffix, "suffix of generated file names")
	rootFlags.dump = pf.Bool("dump", false, "print the render model of every declaration")
	rootFlags.verbose = pf.BoolP("verbose", "v", false, "log debug events")
	rootFlags.parallelism = pf.Int("parallelism", 0, "declarations generated concurrently (0 is unbounded)")

	f := rootCmd.Flags()
	rootFlags.dir = f.String("dir", ".", "package directory to read declarations from")
	rootFlags.types = f.StringSlice("type", nil, "generate only these declarations (repeatable)")
}

func Execute() error {
	return rootCmd.Execute()
}

// newContext carries the logger selected by --verbose, writing to the
// command's error stream.
func newContext(cmd *cobra.Command) context.Context {
	return logging.Inject(context.Background(), logging.New(cmd.ErrOrStderr(), *rootFlags.verbose))
}

func runRoot(cmd *cobra.Command, _ []string) error {
	cfg := baseConfig()
	cfg.Dir = *rootFlags.dir
	cfg.Types = *rootFlags.types
	cfg.Command = canonicalCommand(cfg)
	return generator.Run(newContext(cmd), cfg)
}

func baseConfig() generator.Config {
	return generator.Config{
		Suffix:      *rootFlags.suffix,
		OutDir:      *rootFlags.out,
		Dump:        *rootFlags.dump,
		Parallelism: *rootFlags.parallelism,
		Version:     deriveVersion(),
	}
}

// canonicalCommand is a stable rendering of the invocation for generated file
// headers; raw argv may include build cache paths.
func canonicalCommand(cfg generator.Config) string {
	parts := []string{"fluentgen"}
	if cfg.Decl != "" {
		parts = append(parts, "decl", cfg.Decl)
	}
	if cfg.Dir != "" && cfg.Dir != "." {
		parts = append(parts, "--dir="+cfg.Dir)
	}
	types := append([]string(nil), cfg.Types...)
	sort.Strings(types)
	for _, t := range types {
		parts = append(parts, "--type="+t)
	}
	if cfg.Suffix != defaultSuffix {
		parts = append(parts, "--suffix="+cfg.Suffix)
	}
	if cfg.OutDir != "" {
		parts = append(parts, "--out="+cfg.OutDir)
	}
	if cfg.Parallelism > 0 {
		parts = append(parts, "--parallelism="+strconv.Itoa(cfg.Parallelism))
	}
	return strings.Join(parts, " ")
}
