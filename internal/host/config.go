package host

import (
	"go/token"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
	"github.com/pkg/errors"
)

var (
	validate      = newValidator()
	schemaDecoder = schema.NewDecoder()
)

func init() {
	schemaDecoder.IgnoreUnknownKeys(true)
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("goident", func(fl validator.FieldLevel) bool {
		return token.IsIdentifier(fl.Field().String())
	})
	return v
}

// Validate checks a struct against its validate tags.
func Validate(v any) error {
	return validate.Struct(v)
}

// Config holds the per-declaration generation options.
type Config struct {
	// PackageName overrides the package clause of the generated file.
	PackageName string `schema:"packageName" validate:"omitempty,goident"`
	// ClassName is the name of the generated entry interface.
	ClassName string `schema:"className" validate:"required,goident"`
	// ParameterName names the host instance inside generated code.
	ParameterName string `schema:"parameterName" validate:"required,goident"`
	// FactoryMethod names the generated constructor function.
	FactoryMethod string `schema:"factoryMethod" validate:"omitempty,goident"`
	// DelegateMethod names the accessor of the generated delegate.
	DelegateMethod string `schema:"delegateMethod" validate:"required,goident"`
	// UseVarargs renders trailing slice parameters as variadic.
	UseVarargs bool `schema:"useVarargs"`
}

// DefaultConfig returns the options a declaration gets without overrides.
func DefaultConfig(kind Kind, name string) Config {
	cfg := Config{
		ClassName:      name + "Dsl",
		ParameterName:  "impl",
		DelegateMethod: "Delegate",
		UseVarargs:     true,
	}
	if kind == KindBuilder {
		cfg.ClassName = name + "With"
	}
	return cfg
}

// DecodeConfig applies option values over the defaults and validates them.
func DecodeConfig(kind Kind, name string, values map[string][]string) (Config, error) {
	cfg := DefaultConfig(kind, name)
	if len(values) > 0 {
		if err := schemaDecoder.Decode(&cfg, values); err != nil {
			return cfg, errors.Wrapf(err, "options of %s", name)
		}
	}
	if cfg.FactoryMethod == "" {
		cfg.FactoryMethod = "New" + cfg.ClassName
	}
	if err := validate.Struct(cfg); err != nil {
		return cfg, errors.Wrapf(err, "options of %s", name)
	}
	return cfg, nil
}
