package semantic

import (
	"context"
	"iter"
)

// Provider streams an ordered sequence of JavaType values (spec.md §4.A).
// Implementations must:
//   - filter to the configured base package (equal to, or nested under it)
//   - exclude any type annotated with a generator marker unless configured
//     otherwise
//   - emit types in ascending qualified-name order
//
// The real source-language front-end (parsing files into this model) is an
// external collaborator; Provider is the seam. The error returned by Types
// distinguishes a provider failure (spec.md: "the core aborts") from a
// clean end of stream.
type Provider interface {
	Types(ctx context.Context) (iter.Seq[*JavaType], error)
}

// GeneratorMarkers is the well-known set of annotation-type qualified names
// that mark a type as emitted/generated code, excluded by default
// (spec.md §4.A, §6 IncludeGenerated).
var GeneratorMarkers = map[string]bool{
	"javax.annotation.Generated":        true,
	"jakarta.annotation.Generated":      true,
	"org.jmolecules.generator.Emitted":  true,
}

// InScope reports whether qualified is equal to, or dot-nested under,
// basePackage.
func InScope(qualified, basePackage string) bool {
	if basePackage == "" {
		return false
	}
	if qualified == basePackage {
		return true
	}
	return len(qualified) > len(basePackage) &&
		qualified[:len(basePackage)] == basePackage &&
		qualified[len(basePackage)] == '.'
}

// IsGenerated reports whether t carries any of the canonical generator
// markers.
func IsGenerated(t *JavaType) bool {
	for _, a := range t.Annotations {
		if GeneratorMarkers[a.Qualified] {
			return true
		}
	}
	return false
}
