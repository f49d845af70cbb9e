// Package hxerrors defines the fatal/local error taxonomy shared by every
// pipeline stage. Fatal kinds abort analysis; local kinds are caught by the
// stage that produced them and degrade into a diagnostic.
package hxerrors

import "fmt"

// Kind identifies which taxonomy bucket an error belongs to.
type Kind string

const (
	KindConfiguration Kind = "configuration"
	KindParse         Kind = "parse"
	KindReference     Kind = "reference"
	KindCriterion     Kind = "criterion"
	KindEnricher      Kind = "enricher"
	KindRule          Kind = "rule"
)

// Fatal returns true for kinds that must abort the pipeline rather than
// degrade into a diagnostic warning.
func (k Kind) Fatal() bool {
	switch k {
	case KindConfiguration, KindParse, KindReference:
		return true
	default:
		return false
	}
}

// Error is a typed pipeline error carrying its taxonomy kind and, for local
// errors, the name of the plugin (criterion/enricher/rule) that raised it.
type Error struct {
	Kind   Kind
	Source string // plugin name, empty for fatal kinds
	Err    error
}

func (e *Error) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("%s[%s]: %v", e.Kind, e.Source, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Configuration wraps err as a fatal ConfigurationError.
func Configuration(err error) error { return &Error{Kind: KindConfiguration, Err: err} }

// Parse wraps err as a fatal ParseError.
func Parse(err error) error { return &Error{Kind: KindParse, Err: err} }

// Reference wraps err as a fatal ReferenceError (strict-mode unresolved ref).
func Reference(err error) error { return &Error{Kind: KindReference, Err: err} }

// Criterion wraps err as a local CriterionError attributed to criterion name.
func Criterion(name string, err error) error {
	return &Error{Kind: KindCriterion, Source: name, Err: err}
}

// Enricher wraps err as a local EnricherError attributed to enricher id.
func Enricher(name string, err error) error {
	return &Error{Kind: KindEnricher, Source: name, Err: err}
}

// Rule wraps err as a local RuleError attributed to rule id.
func Rule(name string, err error) error {
	return &Error{Kind: KindRule, Source: name, Err: err}
}

// As reports whether err is an *Error and, if so, returns it.
func As(err error) (*Error, bool) {
	e, ok := err.(*Error)
	return e, ok
}
