package host

import (
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/calumari/fluentgen/internal/naming"
)

// Role is what an annotation means to the sentence.
type Role int

const (
	// RoleKeyword starts a sentence word.
	RoleKeyword Role = iota
	// RoleConstant adds a singleton constant parameter.
	RoleConstant
	// RoleNested hands the next parameter to the generation plugins.
	RoleNested
	// RolePassthrough has no sentence meaning.
	RolePassthrough
)

var roleNames = map[string]Role{
	"keyword":     RoleKeyword,
	"constant":    RoleConstant,
	"nested":      RoleNested,
	"passthrough": RolePassthrough,
}

func (r Role) String() string {
	for n, v := range roleNames {
		if v == r {
			return n
		}
	}
	return "unknown"
}

// ErrInvalidAnnotation is returned for annotations whose definition cannot be
// interpreted.
var ErrInvalidAnnotation = errors.New("invalid annotation definition")

// Meta is the resolved definition of an annotation.
type Meta struct {
	Name    string
	Role    Role
	Aliases []string
	// Count is the number of following parameters a parametrized keyword
	// consumes.
	Count    int
	Declared bool

	err error
}

// Catalog maps annotation names to their resolved definitions. It is built
// once per package and read-only afterwards.
type Catalog struct {
	metas map[string]Meta
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog { return &Catalog{metas: map[string]Meta{}} }

func catalogKey(name string) string { return naming.LowerFirst(name) }

// DefineTags records the annotation declared by a type whose doc comment
// carries tags. It reports false when the tags do not declare an annotation.
func (c *Catalog) DefineTags(name string, tags map[string][]string) bool {
	var roles []string
	for n := range roleNames {
		if Has(tags, TagPrefix+n) {
			roles = append(roles, n)
		}
	}
	if len(roles) == 0 {
		return false
	}
	sort.Strings(roles)

	var aliases []string
	for _, v := range tags[TagPrefix+"alias"] {
		for _, a := range strings.Split(v, ",") {
			if a = strings.TrimSpace(a); a != "" {
				aliases = append(aliases, a)
			}
		}
	}
	count := ""
	if v := tags[TagPrefix+"count"]; len(v) > 0 {
		count = v[len(v)-1]
	}
	c.Define(name, roles, aliases, count)
	return true
}

// Define records an annotation. Contradictory definitions are recorded too and
// fail on Resolve, so only the annotation's uses are affected.
func (c *Catalog) Define(name string, roles []string, aliases []string, count string) {
	m := Meta{Name: name, Aliases: aliases, Declared: true}
	switch {
	case len(roles) != 1:
		m.err = errors.Wrapf(ErrInvalidAnnotation, "%s declares roles %v", name, roles)
	default:
		role, ok := roleNames[roles[0]]
		if !ok {
			m.err = errors.Wrapf(ErrInvalidAnnotation, "%s declares unknown role %q", name, roles[0])
			break
		}
		m.Role = role
	}
	if m.err == nil && count != "" {
		n, err := strconv.Atoi(count)
		switch {
		case err != nil || n < 0:
			m.err = errors.Wrapf(ErrInvalidAnnotation, "%s declares count %q", name, count)
		case n > 0 && m.Role != RoleKeyword:
			m.err = errors.Wrapf(ErrInvalidAnnotation, "%s is a %s and cannot take a count", name, m.Role)
		}
		m.Count = n
	}
	if m.err == nil && len(aliases) > 0 && m.Role != RoleKeyword {
		m.err = errors.Wrapf(ErrInvalidAnnotation, "%s is a %s and cannot have aliases", name, m.Role)
	}
	c.metas[catalogKey(name)] = m
}

// Resolve returns the definition for an annotation use. Undeclared
// annotations are plain keywords.
func (c *Catalog) Resolve(name string) (Meta, error) {
	m, ok := c.metas[catalogKey(name)]
	if !ok {
		return Meta{Name: name, Role: RoleKeyword}, nil
	}
	if m.err != nil {
		return m, m.err
	}
	m.Name = name
	return m, nil
}
