package middleware

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"sort"
	"strings"
)

// ValidatorFunc represents a check run against the routed values before the
// router is called. Per-value checks belong on the nodes themselves; use
// this for rules spanning several values or needing external state:
// - Conditional requirements based on business logic
// - File system checks (file/directory existence)
// - Cross-cutting validation that spans multiple arguments
type ValidatorFunc func(ctx Context) error

// Validator creates a middleware running the validators registered with
// WithValidator, in name order.
func Validator(options ...MiddlewareOption) Middleware {
	config := newConfig(options)
	return ValidatorWithCustom(config.CustomValidators)
}

// ValidatorWithCustom composes a middleware that runs the provided named
// validators before the route. The map key is used in error reporting and
// validators run in key order.
func ValidatorWithCustom(validators map[string]ValidatorFunc) Middleware {
	named := make([]NamedValidator, 0, len(validators))
	for name, fn := range validators {
		named = append(named, NamedValidator{Name: name, Fn: fn})
	}
	sort.Slice(named, func(i, j int) bool { return named[i].Name < named[j].Name })
	return Validate(named...)
}

// NamedValidator associates a human-readable name with a ValidatorFunc for
// clearer error reporting and easier composition.
type NamedValidator struct {
	Name string
	Fn   ValidatorFunc
}

// Custom wraps an arbitrary ValidatorFunc with a name for reporting.
func Custom(name string, fn ValidatorFunc) NamedValidator {
	return NamedValidator{Name: name, Fn: fn}
}

// File returns a NamedValidator that ensures the named string arguments
// point to existing files.
func File(names ...string) NamedValidator {
	return NamedValidator{Name: "file_exists", Fn: FileExists(names...)}
}

// Dir returns a NamedValidator that ensures the named string arguments
// point to existing directories.
func Dir(names ...string) NamedValidator {
	return NamedValidator{Name: "directory_exists", Fn: DirectoryExists(names...)}
}

// Validate composes a set of NamedValidators into a single Middleware. They
// run in the given order and the first failure stops the route.
//
// Example:
//
//	argtree.Router(run, middleware.Validate(
//	    middleware.Custom("port_range", checkPort),
//	    middleware.File("config"),
//	))
func Validate(validators ...NamedValidator) Middleware {
	checks := make([]NamedValidator, 0, len(validators))
	for _, v := range validators {
		if v.Name == "" || v.Fn == nil {
			continue
		}
		checks = append(checks, v)
	}

	return func(next RouteFunc) RouteFunc {
		return func(ctx Context) error {
			for _, v := range checks {
				if err := v.Fn(ctx); err != nil {
					validationErr := &ValidationError{}
					if errors.As(err, &validationErr) {
						return validationErr
					}
					return &ValidationError{
						Field:   v.Name,
						Message: "validation failed",
						Cause:   err,
					}
				}
			}
			return next(ctx)
		}
	}
}

// ConditionalRequired creates a validator that makes arguments required
// when condition returns nil. An argument counts as present when its routed
// value is not the zero value.
func ConditionalRequired(condition ValidatorFunc, requiredNames ...string) ValidatorFunc {
	return func(ctx Context) error {
		if err := condition(ctx); err != nil {
			return nil
		}
		var missing []string
		for _, name := range requiredNames {
			if !present(ctx, name) {
				missing = append(missing, name)
			}
		}
		if len(missing) > 0 {
			return &ValidationError{
				Field:   strings.Join(missing, ", "),
				Message: fmt.Sprintf("arguments required when condition is met: %s", strings.Join(missing, ", ")),
			}
		}
		return nil
	}
}

// FileExists creates a validator that ensures the named arguments point to
// existing files. Unset or empty values are skipped.
func FileExists(names ...string) ValidatorFunc {
	return pathCheck("file", validateFileExists, names)
}

// DirectoryExists creates a validator that ensures the named arguments point
// to existing directories. Unset or empty values are skipped.
func DirectoryExists(names ...string) ValidatorFunc {
	return pathCheck("directory", validateDirectoryExists, names)
}

func pathCheck(what string, check func(string) error, names []string) ValidatorFunc {
	return func(ctx Context) error {
		for _, name := range names {
			v, ok := ctx.Lookup(name)
			if !ok {
				continue
			}
			path, _ := v.(string)
			if path == "" {
				continue
			}
			if err := check(path); err != nil {
				return &ValidationError{
					Field:   name,
					Value:   path,
					Message: fmt.Sprintf("%s validation failed for '%s'", what, name),
					Cause:   err,
				}
			}
		}
		return nil
	}
}

// Helper functions

// present reports whether name was routed a non-zero value.
func present(ctx Context, name string) bool {
	v, ok := ctx.Lookup(name)
	if !ok || v == nil {
		return false
	}
	return !reflect.ValueOf(v).IsZero()
}

func validateFileExists(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return nil
}

func validateDirectoryExists(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	return nil
}

// Convenience constructors

// NoopValidator creates a validator that doesn't perform any validation.
// Useful for testing or when you want to disable validation in certain environments.
func NoopValidator() Middleware {
	return func(next RouteFunc) RouteFunc {
		return next
	}
}

// FileSystemValidator creates a validator that checks file and directory existence.
func FileSystemValidator(fileNames, dirNames []string) Middleware {
	var validators []NamedValidator
	if len(fileNames) > 0 {
		validators = append(validators, File(fileNames...))
	}
	if len(dirNames) > 0 {
		validators = append(validators, Dir(dirNames...))
	}
	return Validate(validators...)
}

// WithCustomValidators adds custom validators to the middleware config
func WithCustomValidators(validators map[string]ValidatorFunc) MiddlewareOption {
	return func(config *MiddlewareConfig) {
		if config.CustomValidators == nil {
			config.CustomValidators = make(map[string]ValidatorFunc)
		}
		for name, validator := range validators {
			config.CustomValidators[name] = validator
		}
	}
}
