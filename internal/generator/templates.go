package generator

import (
	"embed"
	"fmt"
	"strings"
	"sync"
	"text/template"
)

const (
	tmplFile      = "file"
	tmplConstant  = "constant"
	tmplFactory   = "factory"
	tmplInterface = "interface"
	tmplDelegate  = "delegate"
	tmplNode      = "node"
)

const (
	templatePattern      = "templates/*.gtpl"
	templateNodesPattern = "templates/nodes/*.gtpl"
)

//go:embed templates/*.gtpl templates/nodes/*.gtpl
var templatesFS embed.FS

var (
	fileTmpl     *template.Template
	tmplInitOnce sync.Once
	tmplInitErr  error
)

var templateFuncs = template.FuncMap{
	"params": renderParams,
	"args":   renderArgs,
	"fields": renderFields,
	"doc":    renderDoc,
}

// renderParams renders a parameter list without parentheses.
func renderParams(ps []paramModel) string {
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = p.Name + " " + p.Type
	}
	return strings.Join(parts, ", ")
}

// renderArgs renders a call's argument list, spreading the last one.
func renderArgs(args []string, spread bool) string {
	s := strings.Join(args, ", ")
	if spread && len(args) > 0 {
		s += "..."
	}
	return s
}

func renderFields(fs []fieldValue) string {
	parts := make([]string, len(fs))
	for i, f := range fs {
		parts[i] = f.Name + ": " + f.Value
	}
	return strings.Join(parts, ", ")
}

func renderDoc(s string) string {
	if s == "" {
		return ""
	}
	return "// " + strings.ReplaceAll(s, "\n", "\n// ") + "\n"
}

// validateTemplates ensures all required templates are defined
func validateTemplates() error {
	requiredTemplates := []string{
		tmplFile,
		tmplConstant,
		tmplFactory,
		tmplInterface,
		tmplDelegate,
		tmplNode,
	}

	for _, name := range requiredTemplates {
		if fileTmpl.Lookup(name) == nil {
			return fmt.Errorf("required template %q not found", name)
		}
	}

	// every node kind needs its node_* template
	requiredNodeKinds := []string{
		nodeKindCall,
		nodeKindNext,
		nodeKindInto,
		nodeKindAssign,
		nodeKindValue,
	}
	for _, kind := range requiredNodeKinds {
		name := "node_" + kind
		if fileTmpl.Lookup(name) == nil {
			return fmt.Errorf("required node template %q for kind %q not found", name, kind)
		}
	}
	return nil
}

// ensureTemplates parses and validates templates exactly once.
func ensureTemplates() error {
	tmplInitOnce.Do(func() {
		var t *template.Template
		t, tmplInitErr = template.New(tmplFile).Funcs(templateFuncs).ParseFS(templatesFS, templatePattern, templateNodesPattern)
		if tmplInitErr != nil {
			return
		}
		fileTmpl = t
		tmplInitErr = validateTemplates()
	})
	return tmplInitErr
}
