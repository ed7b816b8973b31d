// Package source reads host declarations from a Go package: interfaces tagged
// +fluent:dsl, package functions tagged +fluent:static, structs tagged
// +fluent:builder and the annotation types their comments refer to.
package source

import (
	"context"
	"go/ast"
	"go/token"
	"go/types"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/tools/go/packages"

	"github.com/calumari/fluentgen/internal/host"
	"github.com/calumari/fluentgen/internal/model"
)

const (
	tagDSL     = host.TagPrefix + "dsl"
	tagBuilder = host.TagPrefix + "builder"
	tagStatic  = host.TagPrefix + "static"
)

// Options control which declarations are read.
type Options struct {
	// Types restricts the declarations to these type names. Empty reads every
	// tagged declaration.
	Types []string
	// OutputPath is the import path of the package generated code is written
	// to. Defaults to the loaded package.
	OutputPath string
}

// loadDir loads the Go package in a directory.
func loadDir(ctx context.Context, dir string) (*packages.Package, error) {
	cfg := &packages.Config{
		Context: ctx,
		Mode:    packages.NeedName | packages.NeedSyntax | packages.NeedTypes | packages.NeedTypesInfo | packages.NeedFiles | packages.NeedCompiledGoFiles,
		Dir:     dir,
	}
	pkgs, err := packages.Load(cfg, "./")
	if err != nil {
		return nil, err
	}
	if len(pkgs) == 0 {
		return nil, errors.Errorf("no packages found in %s", dir)
	}
	p := pkgs[0]
	if len(p.Errors) > 0 {
		return nil, p.Errors[0]
	}
	return p, nil
}

// Load reads the package in dir.
func Load(ctx context.Context, dir string, opts Options) (*host.Package, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	p, err := loadDir(ctx, absDir)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", absDir)
	}
	if opts.OutputPath == "" {
		opts.OutputPath = p.PkgPath
	}

	l := &loader{
		p:       p,
		opts:    opts,
		pkg:     &host.Package{Name: p.Name, Path: p.PkgPath, Dir: absDir, Catalog: host.NewCatalog()},
		statics: map[string][]*ast.FuncDecl{},
		files:   map[*ast.FuncDecl]*ast.File{},
	}
	l.scan()
	if opts.OutputPath == p.PkgPath {
		l.pkg.Scope = l.scope()
	}
	if err := l.declare(); err != nil {
		return nil, err
	}
	return l.pkg, nil
}

type typeSpec struct {
	file *ast.File
	spec *ast.TypeSpec
	doc  *ast.CommentGroup
}

type loader struct {
	p    *packages.Package
	opts Options
	pkg  *host.Package

	specs   []typeSpec
	funcs   []*ast.FuncDecl
	statics map[string][]*ast.FuncDecl
	files   map[*ast.FuncDecl]*ast.File
}

func (l *loader) pos(p token.Pos) string { return l.p.Fset.Position(p).String() }

// scope lists the package-level names not declared by generated files, so
// regenerating over previous output does not reserve its own names.
func (l *loader) scope() []string {
	generated := map[string]bool{}
	for _, f := range l.p.Syntax {
		if ast.IsGenerated(f) {
			generated[l.p.Fset.Position(f.Package).Filename] = true
		}
	}
	var names []string
	scope := l.p.Types.Scope()
	for _, name := range scope.Names() {
		if generated[l.p.Fset.Position(scope.Lookup(name).Pos()).Filename] {
			continue
		}
		names = append(names, name)
	}
	return names
}

// scan indexes type specs and functions and fills the annotation catalog.
func (l *loader) scan() {
	for _, f := range l.p.Syntax {
		for _, d := range f.Decls {
			switch d := d.(type) {
			case *ast.GenDecl:
				if d.Tok != token.TYPE {
					continue
				}
				for _, s := range d.Specs {
					ts := s.(*ast.TypeSpec)
					doc := ts.Doc
					if doc == nil && len(d.Specs) == 1 {
						doc = d.Doc
					}
					l.specs = append(l.specs, typeSpec{file: f, spec: ts, doc: doc})
					tags, _, _ := host.CommentTags(commentLines(doc))
					l.pkg.Catalog.DefineTags(ts.Name.Name, tags)
				}
			case *ast.FuncDecl:
				if d.Recv != nil {
					continue
				}
				l.funcs = append(l.funcs, d)
				l.files[d] = f
				tags, _, _ := host.CommentTags(commentLines(d.Doc))
				for _, iface := range tags[tagStatic] {
					l.statics[iface] = append(l.statics[iface], d)
				}
			}
		}
	}
}

func (l *loader) wanted(name string) bool {
	if len(l.opts.Types) == 0 {
		return true
	}
	for _, t := range l.opts.Types {
		if t == name {
			return true
		}
	}
	return false
}

func (l *loader) declare() error {
	found := map[string]bool{}
	for _, s := range l.specs {
		name := s.spec.Name.Name
		tags, annotations, _ := host.CommentTags(commentLines(s.doc))

		var build func() *host.Declaration
		if _, ok := s.spec.Type.(*ast.StructType); ok {
			build = sync.OnceValue(func() *host.Declaration { return l.builder(s, tags) })
			l.pkg.DefineStruct(name, func() (*host.Declaration, error) {
				d := build()
				return d, d.Err
			})
		}

		var decl *host.Declaration
		switch {
		case host.Has(tags, tagDSL):
			decl = l.dsl(s, tags, annotations)
		case host.Has(tags, tagBuilder) && build != nil:
			decl = build()
		case host.Has(tags, tagBuilder):
			decl = &host.Declaration{
				Kind: host.KindBuilder,
				Name: name,
				Pos:  l.pos(s.spec.Pos()),
				Err:  errors.Wrapf(model.ErrUnsupported, "%s is not a struct", name),
			}
		default:
			continue
		}
		if !l.wanted(name) {
			continue
		}
		found[name] = true
		l.pkg.Declarations = append(l.pkg.Declarations, decl)
	}

	var missing []string
	for _, t := range l.opts.Types {
		if !found[t] {
			missing = append(missing, t)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return errors.Errorf("tagged declarations not found: %s", strings.Join(missing, ", "))
	}
	return nil
}

// qualifier renders type expressions relative to the output package and
// records the imports they need.
type qualifier struct {
	self    string
	imports map[string]host.Import
}

func newQualifier(self string) *qualifier {
	return &qualifier{self: self, imports: map[string]host.Import{}}
}

func (q *qualifier) qualify(p *types.Package) string {
	if p == nil || p.Path() == q.self {
		return ""
	}
	imp := host.Import{Path: p.Path()}
	if path.Base(p.Path()) != p.Name() {
		imp.Name = p.Name()
	}
	q.imports[p.Path()] = imp
	return p.Name()
}

func (q *qualifier) typeString(t types.Type) string { return types.TypeString(t, q.qualify) }

func (q *qualifier) list() []host.Import {
	out := make([]host.Import, 0, len(q.imports))
	for _, imp := range q.imports {
		out = append(out, imp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func commentLines(g *ast.CommentGroup) []string {
	if g == nil {
		return nil
	}
	return strings.Split(strings.TrimRight(g.Text(), "\n"), "\n")
}

func (l *loader) named(s typeSpec) (*types.Named, error) {
	obj, ok := l.p.TypesInfo.Defs[s.spec.Name].(*types.TypeName)
	if !ok {
		return nil, errors.Errorf("%s has no type information", s.spec.Name.Name)
	}
	named, ok := obj.Type().(*types.Named)
	if !ok {
		return nil, errors.Errorf("%s is an alias", s.spec.Name.Name)
	}
	return named, nil
}
