// Package fixture supplies an in-memory semantic.Provider used by tests and
// documenting the shape a real front-end adapter (tree-sitter/javaparser
// backed) would implement: apply base-package scoping, generator-marker
// exclusion, and ascending-qualified-name ordering before handing types to
// the core.
package fixture

import (
	"context"
	"iter"
	"sort"

	"hexaglue/internal/semantic"
)

// Provider is a builder-style, in-memory semantic.Provider.
type Provider struct {
	basePackage      string
	includeGenerated bool
	types            map[string]*semantic.JavaType
}

// New creates an empty fixture scoped to basePackage.
func New(basePackage string) *Provider {
	return &Provider{basePackage: basePackage, types: make(map[string]*semantic.JavaType)}
}

// IncludeGenerated mirrors the Config.IncludeGenerated switch.
func (p *Provider) IncludeGenerated(v bool) *Provider {
	p.includeGenerated = v
	return p
}

// Add registers a type. Later calls with the same Qualified name replace
// the earlier registration.
func (p *Provider) Add(t semantic.JavaType) *Provider {
	cp := t
	p.types[t.Qualified] = &cp
	return p
}

// Types implements semantic.Provider: filters to base package and
// generator markers, then emits in ascending qualified-name order.
func (p *Provider) Types(ctx context.Context) (iter.Seq[*semantic.JavaType], error) {
	names := make([]string, 0, len(p.types))
	for name, t := range p.types {
		if !semantic.InScope(name, p.basePackage) {
			continue
		}
		if !p.includeGenerated && semantic.IsGenerated(t) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	return func(yield func(*semantic.JavaType) bool) {
		for _, name := range names {
			select {
			case <-ctx.Done():
				return
			default:
			}
			if !yield(p.types[name]) {
				return
			}
		}
	}, nil
}
