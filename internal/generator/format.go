package generator

import (
	"bytes"
	"go/ast"
	"go/parser"
	"go/printer"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/mod/modfile"
	"golang.org/x/tools/go/ast/astutil"
	"mvdan.cc/gofumpt/format"
)

// formatSource drops imports the rendered code does not use and formats it
// with gofumpt.
func formatSource(src []byte, modulePath string) ([]byte, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "", src, parser.AllErrors|parser.ParseComments)
	if err != nil {
		return nil, err
	}

	var unused []*ast.ImportSpec
	for _, spec := range file.Imports {
		p, err := strconv.Unquote(spec.Path.Value)
		if err != nil {
			return nil, err
		}
		if !astutil.UsesImport(file, p) {
			unused = append(unused, spec)
		}
	}
	for _, spec := range unused {
		p, _ := strconv.Unquote(spec.Path.Value)
		name := ""
		if spec.Name != nil {
			name = spec.Name.Name
		}
		astutil.DeleteNamedImport(fset, file, name, p)
	}

	var buf bytes.Buffer
	if err := printer.Fprint(&buf, fset, file); err != nil {
		return nil, err
	}
	return format.Source(buf.Bytes(), format.Options{ModulePath: modulePath})
}

// module is the go.mod governing a directory.
type module struct {
	Dir  string
	File *modfile.File
}

// Path is the module path, or "" without a go.mod.
func (m *module) Path() string {
	if m == nil || m.File == nil || m.File.Module == nil {
		return ""
	}
	return m.File.Module.Mod.Path
}

var cachedModuleByDir sync.Map

// loadModule finds the go.mod of dir, which must be absolute, walking up to
// the filesystem root. It returns nil when there is none.
func loadModule(dir string) *module {
	if v, ok := cachedModuleByDir.Load(dir); ok {
		return v.(*module)
	}
	mod := findModule(dir)
	v, _ := cachedModuleByDir.LoadOrStore(dir, mod)
	return v.(*module)
}

func findModule(dir string) *module {
	goModFilename := filepath.Join(dir, "go.mod")
	data, err := os.ReadFile(goModFilename)
	if errors.Is(err, fs.ErrNotExist) {
		parent := filepath.Dir(dir)
		if parent == dir {
			// reached the filesystem root
			return nil
		}
		return loadModule(parent)
	}
	if err != nil {
		return nil
	}
	file, err := modfile.Parse(goModFilename, data, nil)
	if err != nil {
		return nil
	}
	return &module{Dir: dir, File: file}
}
