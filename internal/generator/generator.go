// Package generator turns host declarations into fluent DSL source files.
package generator

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/davecgh/go-spew/spew"
	"github.com/go-courier/logr"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/calumari/fluentgen/internal/host"
	"github.com/calumari/fluentgen/internal/naming"
	"github.com/calumari/fluentgen/internal/parser"
	"github.com/calumari/fluentgen/internal/sink"
	"github.com/calumari/fluentgen/internal/source"
)

// Failure is a declaration that produced no file.
type Failure struct {
	Declaration string
	Pos         string
	Err         error
}

func (f Failure) Error() string {
	if f.Pos != "" {
		return fmt.Sprintf("%s: %s: %v", f.Pos, f.Declaration, f.Err)
	}
	return fmt.Sprintf("%s: %v", f.Declaration, f.Err)
}

// FailedError reports every failed declaration of a run. Files of the other
// declarations are written regardless.
type FailedError struct {
	Failures []Failure
}

func (e *FailedError) Error() string {
	if len(e.Failures) == 1 {
		return e.Failures[0].Error()
	}
	lines := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		lines[i] = "\t" + f.Error()
	}
	return fmt.Sprintf("%d declarations failed:\n%s", len(e.Failures), strings.Join(lines, "\n"))
}

// Run loads the declarations described by cfg and writes their files.
func Run(ctx context.Context, cfg Config) error {
	if err := host.Validate(cfg); err != nil {
		return errors.Wrap(err, "invalid config")
	}
	dir, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return err
	}
	outDir := dir
	if cfg.OutDir != "" {
		if outDir, err = filepath.Abs(cfg.OutDir); err != nil {
			return err
		}
	}

	mod := loadModule(outDir)
	opts := source.Options{Types: cfg.Types}
	if outDir != dir && mod != nil {
		rel, err := filepath.Rel(mod.Dir, outDir)
		if err != nil {
			return err
		}
		opts.OutputPath = mod.Path()
		if rel != "." {
			opts.OutputPath += "/" + filepath.ToSlash(rel)
		}
	}

	var pkg *host.Package
	if cfg.Decl != "" {
		pkg, err = loadDecl(dir, cfg.Decl, cfg.Types)
	} else {
		pkg, err = source.Load(ctx, dir, opts)
	}
	if err != nil {
		return err
	}

	genOpts := Options{
		Suffix:      cfg.Suffix,
		Command:     cfg.Command,
		Version:     cfg.Version,
		Parallelism: cfg.Parallelism,
		ModulePath:  mod.Path(),
	}
	if cfg.Dump {
		genOpts.Dump = os.Stdout
	}
	return Generate(ctx, pkg, sink.NewFilesystemSink(outDir), genOpts)
}

func loadDecl(dir, path string, types []string) (*host.Package, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open declaration file")
	}
	defer f.Close()

	pkg, err := host.LoadYAML(f, path)
	if err != nil {
		return nil, err
	}
	if pkg.Dir == "" {
		pkg.Dir = dir
	}
	if len(types) == 0 {
		return pkg, nil
	}
	var (
		keep    []*host.Declaration
		missing []string
	)
	for _, name := range types {
		d, ok := pkg.Lookup(name)
		if !ok {
			missing = append(missing, name)
			continue
		}
		keep = append(keep, d)
	}
	if len(missing) > 0 {
		return nil, errors.Errorf("declarations not found in %s: %s", path, strings.Join(missing, ", "))
	}
	pkg.Declarations = keep
	return pkg, nil
}

// outcome is the result of generating one declaration.
type outcome struct {
	decl     *host.Declaration
	file     string
	requires []*host.Declaration
	err      error
}

// Generate writes one file per declaration of pkg to out. A failing
// declaration does not stop the others; all failures are returned together
// as a *FailedError. Declarations that plugins require are generated after
// the declarations that need them.
func Generate(ctx context.Context, pkg *host.Package, out sink.OutputSink, opts Options) error {
	if err := host.Validate(opts); err != nil {
		return errors.Wrap(err, "invalid options")
	}
	if opts.Plugins == nil {
		opts.Plugins = []parser.Plugin{parser.BuilderPlugin{}}
	}

	ctx, l := logr.FromContext(ctx).Start(ctx, "Generate", "package", pkg.Name)
	defer l.End()

	g := &run{
		pkg:    pkg,
		out:    out,
		opts:   opts,
		parser: parser.New(opts.Plugins...),
		files:  map[string]string{},
		seen:   map[string]bool{},
	}

	var failures []Failure
	wave := pkg.Declarations
	for len(wave) > 0 {
		outcomes := g.wave(ctx, wave)
		wave = nil
		for _, o := range outcomes {
			if o.err != nil {
				failures = append(failures, Failure{Declaration: o.decl.Name, Pos: o.decl.Pos, Err: o.err})
				continue
			}
			for _, req := range o.requires {
				if !g.seen[req.Name] {
					g.seen[req.Name] = true
					wave = append(wave, req)
				}
			}
		}
	}

	if len(failures) > 0 {
		return &FailedError{Failures: failures}
	}
	return nil
}

type run struct {
	pkg    *host.Package
	out    sink.OutputSink
	opts   Options
	parser *parser.Parser

	// files maps file names to the declaration that owns them.
	files map[string]string
	seen  map[string]bool

	dumpMu sync.Mutex
}

// wave generates decls concurrently and returns their outcomes in order.
func (g *run) wave(ctx context.Context, decls []*host.Declaration) []outcome {
	outcomes := make([]outcome, len(decls))
	for i, d := range decls {
		g.seen[d.Name] = true
		outcomes[i] = outcome{decl: d, err: d.Err}
		if d.Err != nil {
			continue
		}
		name := naming.SnakeCase(d.Config.ClassName) + g.opts.Suffix
		if owner, ok := g.files[name]; ok {
			outcomes[i].err = errors.Errorf("file %s is also generated for %s", name, owner)
			continue
		}
		g.files[name] = d.Name
		outcomes[i].file = name
	}

	eg, ctx := errgroup.WithContext(ctx)
	if g.opts.Parallelism > 0 {
		eg.SetLimit(g.opts.Parallelism)
	}
	for i := range outcomes {
		o := &outcomes[i]
		if o.err != nil {
			logr.FromContext(ctx).WithValues("decl", o.decl.Name).Error(o.err)
			continue
		}
		eg.Go(func() error {
			o.requires, o.err = g.declaration(ctx, o.decl, o.file)
			return nil
		})
	}
	_ = eg.Wait()
	return outcomes
}

func (g *run) declaration(ctx context.Context, decl *host.Declaration, file string) ([]*host.Declaration, error) {
	ctx, l := logr.FromContext(ctx).Start(ctx, decl.Name, "file", file)
	defer l.End()

	fail := func(err error) ([]*host.Declaration, error) {
		l.Error(err)
		return nil, err
	}

	res, err := g.parser.Parse(g.pkg, decl)
	if err != nil {
		return fail(err)
	}
	for _, d := range res.Diagnostics {
		l.Warn(d)
	}

	fm := flatten(g.pkg, res)
	fm.Command = g.opts.Command
	fm.Version = g.opts.Version
	l.Debug("rendering %d interfaces", len(fm.Interfaces))

	if g.opts.Dump != nil {
		g.dumpMu.Lock()
		spew.Fdump(g.opts.Dump, fm)
		g.dumpMu.Unlock()
	}

	src, err := render(fm)
	if err != nil {
		return fail(err)
	}
	_, fl := l.Start(ctx, "debug:format")
	formatted, err := formatSource(src, g.opts.ModulePath)
	if err != nil {
		fl.Warn(errors.Wrap(err, "format generated source"))
		formatted = src
	}
	fl.End()
	if err := g.out.WriteFile(ctx, file, formatted); err != nil {
		return fail(errors.Wrapf(err, "write %s", file))
	}
	return res.Requires, nil
}

// render executes the file template.
func render(fm *fileModel) ([]byte, error) {
	if err := ensureTemplates(); err != nil {
		return nil, errors.Wrap(err, "templates")
	}
	var buf bytes.Buffer
	if err := fileTmpl.ExecuteTemplate(&buf, tmplFile, fm); err != nil {
		return nil, errors.Wrap(err, "execute template")
	}
	return buf.Bytes(), nil
}
