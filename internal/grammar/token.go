package grammar

import (
	"fmt"

	"github.com/calumari/fluentgen/internal/model"
)

// TokenKind identifies a token of a method's sentence.
type TokenKind int

const (
	TokMethod TokenKind = iota
	TokKeyword
	TokParameter
	TokConstant
	TokAnnotation
	TokBind
)

// Token is one event read from a host method, in declaration order.
type Token struct {
	Kind    TokenKind
	Name    string
	Aliases []string
	// Count is the number of following parameters or keywords a parametrized
	// keyword consumes.
	Count   int
	Param   model.Param
	Binding *model.Binding
}

// Method starts a host method.
func Method(name string) Token { return Token{Kind: TokMethod, Name: name} }

// Keyword introduces a sentence word.
func Keyword(name string, aliases []string, count int) Token {
	return Token{Kind: TokKeyword, Name: name, Aliases: aliases, Count: count}
}

// Parameter passes a host parameter.
func Parameter(p model.Param) Token { return Token{Kind: TokParameter, Param: p} }

// Constant passes a singleton constant in place of a parameter.
func Constant(name string) Token { return Token{Kind: TokConstant, Name: name} }

// Annotation passes an annotation with no sentence meaning.
func Annotation(name string) Token { return Token{Kind: TokAnnotation, Name: name} }

// Bind ends a host method, forwarding to b.
func Bind(b *model.Binding) Token { return Token{Kind: TokBind, Binding: b} }

func (t Token) String() string {
	switch t.Kind {
	case TokMethod:
		return "method(" + t.Name + ")"
	case TokKeyword:
		if t.Count > 0 {
			return fmt.Sprintf("keyword(%s/%d)", t.Name, t.Count)
		}
		return "keyword(" + t.Name + ")"
	case TokParameter:
		return "parameter(" + t.Param.Name + " " + t.Param.Type.Expr + ")"
	case TokConstant:
		return "constant(" + t.Name + ")"
	case TokAnnotation:
		return "annotation(" + t.Name + ")"
	case TokBind:
		return "bind(" + t.Binding.String() + ")"
	}
	return "unknown"
}
