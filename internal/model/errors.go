package model

import "github.com/pkg/errors"

var (
	// ErrKeyCollision is returned when two methods reach one structural key
	// with different parameter types.
	ErrKeyCollision = errors.New("structural key collision")
	// ErrBindingConflict is returned when one structural key would forward to
	// two different targets, or be both terminal and non-terminal.
	ErrBindingConflict = errors.New("conflicting bindings for one structural key")
	// ErrArity is returned when a keyword does not receive the parameters it
	// declares, or a binding's target takes a different number of arguments.
	ErrArity = errors.New("parameter count mismatch")
	// ErrUnsupported is returned for declarations that cannot be expressed.
	ErrUnsupported = errors.New("unsupported declaration")
)
