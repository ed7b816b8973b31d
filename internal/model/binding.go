package model

// BindingKind selects how a terminal method reaches its target.
type BindingKind int

const (
	// BindMethod calls a method on the DSL receiver.
	BindMethod BindingKind = iota
	// BindFunc calls a package-level function.
	BindFunc
	// BindField assigns a field of the builder object and returns the builder.
	BindField
	// BindValue returns the builder object.
	BindValue
)

func (k BindingKind) String() string {
	switch k {
	case BindMethod:
		return "method"
	case BindFunc:
		return "func"
	case BindField:
		return "field"
	case BindValue:
		return "value"
	}
	return "unknown"
}

// Binding forwards a terminal keyword to the host.
type Binding struct {
	Kind BindingKind
	// Target is the method, qualified function or field name.
	Target  string
	Results []TypeRef
	// Arity is the number of non-constant parameters the target consumes.
	Arity int
	// Variadic reports that the target's last parameter is variadic, so the
	// forwarded slice is spread.
	Variadic bool
	// Into, when set on a BindFunc binding, makes the call result the object
	// of that builder type instead of the method's return value.
	Into  TypeID
	Deref bool
}

// Same reports whether b and o forward to the same target in the same way.
func (b *Binding) Same(o *Binding) bool {
	if b == nil || o == nil {
		return b == o
	}
	if b.Kind != o.Kind || b.Target != o.Target || b.Into != o.Into || b.Deref != o.Deref || b.Variadic != o.Variadic {
		return false
	}
	if len(b.Results) != len(o.Results) {
		return false
	}
	for i := range b.Results {
		if b.Results[i].Expr != o.Results[i].Expr {
			return false
		}
	}
	return true
}

func (b *Binding) String() string {
	if b == nil {
		return "<unbound>"
	}
	return b.Kind.String() + ":" + b.Target
}
