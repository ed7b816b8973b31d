// Package naming derives Go identifiers and file names from sentence keywords.
package naming

import (
	"go/token"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Capitalize upper-cases the first letter of s and leaves the rest untouched,
// so "mustSeeOrderWith" becomes "MustSeeOrderWith".
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || unicode.IsUpper(r) {
		return s
	}
	return cases.Title(language.Und, cases.NoLower).String(string(r)) + s[size:]
}

// LowerFirst lower-cases the first letter of s.
func LowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

// Ident turns s into a usable Go identifier, escaping keywords and predeclared
// names that would shadow something the generated code relies on.
func Ident(s string) string {
	if s == "" || s == "_" {
		return ""
	}
	var b strings.Builder
	for i, r := range s {
		switch {
		case unicode.IsLetter(r) || r == '_':
			b.WriteRune(r)
		case unicode.IsDigit(r):
			if i == 0 {
				b.WriteRune('_')
			}
			b.WriteRune(r)
		}
	}
	id := b.String()
	if token.IsKeyword(id) || reserved[id] {
		return id + "_"
	}
	return id
}

var reserved = map[string]bool{
	"any": true, "error": true, "nil": true, "true": true, "false": true,
	"string": true, "int": true, "bool": true, "len": true, "cap": true,
	"new": true, "make": true, "append": true, "copy": true, "panic": true,
}

// Split splits a camel case word into its words; digits stay attached to the
// word they follow.
func Split(src string) []string {
	if !utf8.ValidString(src) {
		return []string{src}
	}

	const (
		other = iota
		lower
		upper
		digit
	)

	var runes [][]rune
	last := -1
	for _, r := range src {
		var class int
		switch {
		case unicode.IsLower(r):
			class = lower
		case unicode.IsUpper(r):
			class = upper
		case unicode.IsDigit(r):
			class = digit
		default:
			class = other
		}
		if last >= 0 && (class == last || (class == digit && (last == upper || last == lower)) || (class == lower && last == digit)) {
			runes[len(runes)-1] = append(runes[len(runes)-1], r)
			last = class
			continue
		}
		runes = append(runes, []rune{r})
		last = class
	}

	// "PDFL", "oader" -> "PDF", "Loader"
	for i := 0; i < len(runes)-1; i++ {
		if unicode.IsUpper(runes[i][0]) && unicode.IsLower(runes[i+1][0]) {
			runes[i+1] = append([]rune{runes[i][len(runes[i])-1]}, runes[i+1]...)
			runes[i] = runes[i][:len(runes[i])-1]
		}
	}

	words := make([]string, 0, len(runes))
	for _, w := range runes {
		if len(w) == 0 {
			continue
		}
		if len(w) == 1 && !unicode.IsLetter(w[0]) && !unicode.IsDigit(w[0]) {
			continue
		}
		if !unicode.IsLetter(w[0]) && !unicode.IsDigit(w[0]) {
			continue
		}
		words = append(words, string(w))
	}
	return words
}

// LowerCamel lower-cases the first word of a camel case identifier:
// "OrderID" becomes "orderID" and "ID" becomes "id".
func LowerCamel(s string) string {
	words := Split(s)
	if len(words) == 0 {
		return s
	}
	words[0] = strings.ToLower(words[0])
	return strings.Join(words, "")
}

// SnakeCase converts a camel case identifier to lower snake case:
// "OrderDslWith" becomes "order_dsl_with".
func SnakeCase(s string) string {
	words := Split(s)
	for i := range words {
		words[i] = strings.ToLower(words[i])
	}
	return strings.Join(words, "_")
}

// Registry hands out identifiers that are unique within one generated file.
type Registry struct {
	taken map[string]bool
}

// NewRegistry returns a registry with names already reserved.
func NewRegistry(reserved ...string) *Registry {
	r := &Registry{taken: make(map[string]bool)}
	for _, n := range reserved {
		r.taken[n] = true
	}
	return r
}

// Claim reserves want, or the first free "want<N>" when want is taken.
func (r *Registry) Claim(want string) string {
	if !r.taken[want] {
		r.taken[want] = true
		return want
	}
	for i := 2; ; i++ {
		candidate := want + strconv.Itoa(i)
		if !r.taken[candidate] {
			r.taken[candidate] = true
			return candidate
		}
	}
}

// Taken reports whether name has been claimed.
func (r *Registry) Taken(name string) bool { return r.taken[name] }

// Unique makes names pairwise distinct and distinct from reserved, keeping the
// first occurrence and suffixing later ones.
func Unique(names []string, reserved ...string) []string {
	reg := NewRegistry(reserved...)
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = reg.Claim(n)
	}
	return out
}
