package enrich

import (
	"fmt"
	"sort"

	"hexaglue/internal/diagnostics"
	"hexaglue/internal/graph"
)

// EnrichmentContext is the read-only handle passed to external enrichers
// (spec.md §4.G): the sealed graph and a classification lookup. It does not
// carry the diagnostics channel; Registry.Run records enricher failures
// itself.
type EnrichmentContext struct {
	Graph          *graph.Graph
	Classification func(qualified string) (kind string, ok bool)
}

// Contribution is what one external enricher returns.
type Contribution struct {
	ID         string
	Labels     map[string]map[Label]bool // qualifiedName -> labels
	Properties map[string]map[string]any // qualifiedName -> key -> value
}

// Enricher is an external, discovered plugin (spec.md §4.G). Implementations
// must be pure and side-effect-free; a panic is treated the same as a
// returned error.
type Enricher interface {
	ID() string
	Enrich(ctx EnrichmentContext) (Contribution, error)
}

// Registry is an explicit, constructor-injected list of enrichers — spec.md
// §9's reshaping of classpath/service-loader plugin discovery into
// explicit registration.
type Registry struct {
	enrichers []Enricher
}

// NewRegistry builds a Registry from an explicit enricher list.
func NewRegistry(enrichers ...Enricher) *Registry {
	return &Registry{enrichers: append([]Enricher(nil), enrichers...)}
}

// EnrichedSnapshot is the immutable output of the enrichment engine.
type EnrichedSnapshot struct {
	Labels     map[string][]string
	Properties map[string]map[string]any
}

// Run executes the built-in enricher followed by every registered external
// enricher, in registration order, merging their contributions: labels by
// set union, properties with later contributions overriding earlier ones
// for the same (qname, key). A failing enricher's contribution is
// discarded and logged as a diagnostic; the pipeline continues.
func (r *Registry) Run(ctx EnrichmentContext, diag *diagnostics.Diagnostics) EnrichedSnapshot {
	labels := map[string]map[Label]bool{}
	properties := map[string]map[string]any{}

	for nodeID, set := range Builtin(ctx.Graph) {
		qname := nodeID.Qualified
		if labels[qname] == nil {
			labels[qname] = map[Label]bool{}
		}
		for l := range set {
			labels[qname][l] = true
		}
	}

	for _, e := range r.enrichers {
		contribution, err := safeEnrich(e, ctx)
		if err != nil {
			if diag != nil {
				diag.Warn(diagnostics.CategoryEnrichment, "enricher %s failed: %v", e.ID(), err)
			}
			continue
		}
		for qname, set := range contribution.Labels {
			if labels[qname] == nil {
				labels[qname] = map[Label]bool{}
			}
			for l := range set {
				labels[qname][l] = true
			}
		}
		for qname, props := range contribution.Properties {
			if properties[qname] == nil {
				properties[qname] = map[string]any{}
			}
			for k, v := range props {
				properties[qname][k] = v
			}
		}
	}

	return EnrichedSnapshot{
		Labels:     flattenLabels(labels),
		Properties: properties,
	}
}

func safeEnrich(e Enricher, ctx EnrichmentContext) (contribution Contribution, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("enricher %s panicked: %v", e.ID(), rec)
		}
	}()
	return e.Enrich(ctx)
}

func flattenLabels(m map[string]map[Label]bool) map[string][]string {
	out := make(map[string][]string, len(m))
	for qname, set := range m {
		list := make([]string, 0, len(set))
		for l := range set {
			list = append(list, string(l))
		}
		sort.Strings(list)
		out[qname] = list
	}
	return out
}
