package argtree

import (
	"errors"
	"reflect"

	"github.com/dzonerzy/go-argtree/middleware"
)

// ExitError is returned by a router to request a specific exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return "exit"
}

func (e *ExitError) Unwrap() error { return e.Err }

// ExitCodeDefaults holds common default codes.
type ExitCodeDefaults struct {
	Success         int // default: 0
	GeneralError    int // default: 1
	MisusageError   int // default: 2
	ValidationError int // default: 3
}

func defaultExitDefaults() ExitCodeDefaults {
	return ExitCodeDefaults{Success: 0, GeneralError: 1, MisusageError: 2, ValidationError: 3}
}

// ExitCodes maps errors returned by Parse to process exit codes.
type ExitCodes struct {
	codesByType map[reflect.Type]int
	codesByKind map[ErrorKind]int
	defaults    ExitCodeDefaults
}

// NewExitCodes returns a mapping with parse errors as misuse, validation
// failures as validation errors and everything else as a general error.
func NewExitCodes() *ExitCodes {
	e := &ExitCodes{
		codesByType: make(map[reflect.Type]int),
		codesByKind: make(map[ErrorKind]int),
	}
	e.Default(defaultExitDefaults())
	return e
}

// Default replaces the default codes and rewires the built-in mappings to
// them.
func (e *ExitCodes) Default(d ExitCodeDefaults) *ExitCodes {
	e.defaults = d
	for _, k := range []ErrorKind{
		KindValidationFailed,
		KindMinimumValueNotReached,
		KindMaximumValueExceeded,
	} {
		e.codesByKind[k] = d.ValidationError
	}
	e.codesByType[reflect.TypeFor[*middleware.ValidationError]()] = d.ValidationError
	e.codesByType[reflect.TypeFor[*middleware.RecoveryError]()] = d.GeneralError
	return e
}

// DefineKind overrides the code used for a parse error kind.
func (e *ExitCodes) DefineKind(kind ErrorKind, code int) *ExitCodes {
	e.codesByKind[kind] = code
	return e
}

// DefineError maps a concrete error value (by its dynamic type) to an exit
// code.
func (e *ExitCodes) DefineError(err error, code int) *ExitCodes {
	if err == nil {
		return e
	}
	e.codesByType[reflect.TypeOf(err)] = code
	return e
}

// Resolve converts an error to an exit code.
// Precedence:
//  1. ExitError (requested code)
//  2. ParseError kind mapping, misuse by default
//  3. Concrete error type mapping (DefineError)
//  4. GeneralError
func (e *ExitCodes) Resolve(err error) int {
	if err == nil {
		return e.defaults.Success
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	if kind, ok := KindOf(err); ok {
		if code, ok := e.codesByKind[kind]; ok {
			return code
		}
		return e.defaults.MisusageError
	}

	for t, code := range e.codesByType {
		if errors.As(err, reflect.New(t).Interface()) {
			return code
		}
	}
	return e.defaults.GeneralError
}
