// Package domaincriteria supplies the domain-classification criteria of
// spec.md §4.F (target: DOMAIN), wired into the generic criteria engine.
// A handful of criteria need information only available after a first
// classification round (which types are aggregate roots, which supertypes
// already carry an explicit classification); Evaluate runs that
// two-round protocol internally and returns one final Decision per type.
package domaincriteria

import (
	"strings"

	"hexaglue/internal/criteria"
	"hexaglue/internal/graph"
	"hexaglue/internal/markers"
	"hexaglue/internal/semantic"
)

// Kind enumerates the domain classification kinds of spec.md §4.F.
type Kind string

const (
	AggregateRoot      Kind = "AGGREGATE_ROOT"
	Entity             Kind = "ENTITY"
	ValueObject        Kind = "VALUE_OBJECT"
	Identifier         Kind = "IDENTIFIER"
	DomainEvent        Kind = "DOMAIN_EVENT"
	ExternalizedEvent  Kind = "EXTERNALIZED_EVENT"
	ApplicationService Kind = "APPLICATION_SERVICE"
	Saga               Kind = "SAGA"
	InboundOnly        Kind = "INBOUND_ONLY"
	OutboundOnly       Kind = "OUTBOUND_ONLY"
)

// Compatibility declares the one compatible domain pair: AGGREGATE_ROOT ↔ ENTITY.
func Compatibility() criteria.CompatibilityPolicy[Kind] {
	return criteria.CompatibilityFunc[Kind](func(a, b Kind) bool {
		pair := func(x, y Kind) bool { return (a == x && b == y) || (a == y && b == x) }
		return pair(AggregateRoot, Entity)
	})
}

// PortContext is the slice of port-classification results domain criteria
// depend on, computed in the prior port-classification pass (spec.md §4.F:
// "a two-pass sequence: (i) port classification, (ii) domain classification
// using port results").
type PortContext struct {
	DrivingPorts  map[graph.NodeID]bool // interfaces classified USE_CASE/COMMAND/QUERY (driving)
	DrivenPorts   map[graph.NodeID]bool // interfaces classified REPOSITORY/GATEWAY/GENERIC (driven)
	RepositoryOf  map[graph.NodeID]bool // subset of DrivenPorts classified specifically REPOSITORY
}

func hasIdentityMarker(t *semantic.JavaType) bool {
	if t.HasAnnotation(markers.Identity) {
		return true
	}
	for _, f := range t.Fields {
		for _, a := range f.Annotations {
			if a.Qualified == markers.Identity {
				return true
			}
		}
	}
	return false
}

func hasIdentityField(t *semantic.JavaType) bool {
	if hasIdentityMarker(t) {
		return true
	}
	for _, f := range t.Fields {
		if strings.EqualFold(f.Name, "id") {
			return true
		}
	}
	return false
}

// dependencyTargets collects the type nodes a subject's fields and
// constructor parameters reference (FIELD_TYPE / PARAMETER_TYPE raw edges).
func dependencyTargets(g *graph.Graph, subject graph.NodeID) map[graph.NodeID]bool {
	out := map[graph.NodeID]bool{}
	fieldType := graph.EdgeFieldType
	for _, f := range g.FieldsOf(subject) {
		for _, e := range g.Outgoing(f, &fieldType) {
			out[e.To] = true
		}
	}
	paramType := graph.EdgeParameterType
	for _, c := range g.ConstructorsOf(subject) {
		for _, e := range g.Outgoing(c, &paramType) {
			out[e.To] = true
		}
	}
	return out
}

func dependsOnAny(g *graph.Graph, subject graph.NodeID, want map[graph.NodeID]bool) bool {
	for target := range dependencyTargets(g, subject) {
		if want[target] {
			return true
		}
	}
	return false
}

func countDistinctDependencies(g *graph.Graph, subject graph.NodeID, want map[graph.NodeID]bool) int {
	count := 0
	for target := range dependencyTargets(g, subject) {
		if want[target] {
			count++
		}
	}
	return count
}

func implementsAny(g *graph.Graph, subject graph.NodeID, want map[graph.NodeID]bool) bool {
	implements := graph.EdgeImplements
	for _, e := range g.Outgoing(subject, &implements) {
		if want[e.To] {
			return true
		}
	}
	return false
}

func hasMutableField(t *semantic.JavaType) bool {
	for _, f := range t.Fields {
		if !f.Modifiers.Has(semantic.ModFinal) {
			return true
		}
	}
	return false
}

// referencedBy reports whether any type in candidates owns a field
// targeting subject, optionally requiring the field be collection-like.
func referencedBy(g *graph.Graph, subject graph.NodeID, candidates []graph.NodeID, collectionOnly bool) bool {
	fieldType := graph.EdgeFieldType
	for _, owner := range candidates {
		for _, fid := range g.FieldsOf(owner) {
			rec, ok := g.Member(fid)
			if !ok || rec.Field == nil {
				continue
			}
			if collectionOnly && !rec.Field.Type.IsCollectionLike() {
				continue
			}
			for _, e := range g.Outgoing(fid, &fieldType) {
				if e.To == subject {
					return true
				}
			}
		}
	}
	return false
}

func typeRefImplementsMarker(t *semantic.JavaType) (Kind, bool) {
	for _, iface := range t.Interfaces {
		if kind, ok := markers.DomainInterfaces[iface.Qualified]; ok {
			return Kind(kind), true
		}
	}
	return "", false
}

func round1Criteria(ports PortContext) []criteria.Criteria[Kind] {
	match := func(fn func(subject graph.NodeID, q *graph.Graph, t *semantic.JavaType) *criteria.MatchResult) func(graph.NodeID, criteria.GraphQuery) (*criteria.MatchResult, error) {
		return func(subject graph.NodeID, q criteria.GraphQuery) (*criteria.MatchResult, error) {
			t, ok := q.Type(subject)
			if !ok {
				return nil, nil
			}
			return fn(subject, q, t), nil
		}
	}

	return []criteria.Criteria[Kind]{
		{
			Name: "explicit-aggregate-root", Priority: 100, TargetKind: AggregateRoot,
			Match: match(func(_ graph.NodeID, _ *graph.Graph, t *semantic.JavaType) *criteria.MatchResult {
				if !t.HasAnnotation(markers.AggregateRoot) {
					return nil
				}
				return &criteria.MatchResult{Confidence: criteria.Explicit, Justification: "annotated with the canonical aggregate-root marker",
					Evidence: []criteria.Evidence{{Type: criteria.EvidenceAnnotation, Description: markers.AggregateRoot}}}
			}),
		},
		{
			Name: "explicit-entity", Priority: 100, TargetKind: Entity,
			Match: match(func(_ graph.NodeID, _ *graph.Graph, t *semantic.JavaType) *criteria.MatchResult {
				if !t.HasAnnotation(markers.Entity) {
					return nil
				}
				return &criteria.MatchResult{Confidence: criteria.Explicit, Justification: "annotated with the canonical entity marker",
					Evidence: []criteria.Evidence{{Type: criteria.EvidenceAnnotation, Description: markers.Entity}}}
			}),
		},
		{
			Name: "explicit-value-object", Priority: 100, TargetKind: ValueObject,
			Match: match(func(_ graph.NodeID, _ *graph.Graph, t *semantic.JavaType) *criteria.MatchResult {
				if !t.HasAnnotation(markers.ValueObject) {
					return nil
				}
				return &criteria.MatchResult{Confidence: criteria.Explicit, Justification: "annotated with the canonical value-object marker",
					Evidence: []criteria.Evidence{{Type: criteria.EvidenceAnnotation, Description: markers.ValueObject}}}
			}),
		},
		{
			Name: "explicit-identifier", Priority: 100, TargetKind: Identifier,
			Match: match(func(_ graph.NodeID, _ *graph.Graph, t *semantic.JavaType) *criteria.MatchResult {
				if !hasIdentityMarker(t) {
					return nil
				}
				return &criteria.MatchResult{Confidence: criteria.Explicit, Justification: "canonical identity marker present on type or field",
					Evidence: []criteria.Evidence{{Type: criteria.EvidenceAnnotation, Description: markers.Identity}}}
			}),
		},
		{
			Name: "explicit-domain-event", Priority: 100, TargetKind: DomainEvent,
			Match: match(func(_ graph.NodeID, _ *graph.Graph, t *semantic.JavaType) *criteria.MatchResult {
				if !t.HasAnnotation(markers.DomainEvent) {
					return nil
				}
				return &criteria.MatchResult{Confidence: criteria.Explicit, Justification: "annotated with the canonical domain-event marker",
					Evidence: []criteria.Evidence{{Type: criteria.EvidenceAnnotation, Description: markers.DomainEvent}}}
			}),
		},
		{
			Name: "explicit-externalized-event", Priority: 100, TargetKind: ExternalizedEvent,
			Match: match(func(_ graph.NodeID, _ *graph.Graph, t *semantic.JavaType) *criteria.MatchResult {
				if !t.HasAnnotation(markers.Externalized) {
					return nil
				}
				return &criteria.MatchResult{Confidence: criteria.Explicit, Justification: "annotated with the canonical externalized-event marker",
					Evidence: []criteria.Evidence{{Type: criteria.EvidenceAnnotation, Description: markers.Externalized}}}
			}),
		},
		{
			// TargetKind is left empty for the "varies" contract: Match reports
			// the implied kind in Metadata["kind"], and resolveVariesKind copies
			// it into the contribution's Kind before the decision is made.
			Name: "implements-jmolecules-interface", Priority: 100, TargetKind: "",
			Match: match(func(_ graph.NodeID, _ *graph.Graph, t *semantic.JavaType) *criteria.MatchResult {
				kind, ok := typeRefImplementsMarker(t)
				if !ok {
					return nil
				}
				return &criteria.MatchResult{Confidence: criteria.Explicit, Justification: "implements a canonical jMolecules domain interface",
					Evidence:  []criteria.Evidence{{Type: criteria.EvidenceInheritance, Description: "implements " + string(kind) + " marker interface"}},
					Metadata:  map[string]any{"kind": string(kind)},
				}
			}),
		},
		{
			Name: "repository-dominant", Priority: 80, TargetKind: AggregateRoot,
			Match: func(subject graph.NodeID, q criteria.GraphQuery) (*criteria.MatchResult, error) {
				t, ok := q.Type(subject)
				if !ok {
					return nil, nil
				}
				if !hasIdentityField(t) {
					return nil, nil
				}
				if !appearsInRepositorySignature(q, subject, ports.RepositoryOf) {
					return nil, nil
				}
				return &criteria.MatchResult{Confidence: criteria.High, Justification: "appears in a repository-interface signature and owns an identity field",
					Evidence: []criteria.Evidence{{Type: criteria.EvidenceDependency, Description: "referenced by a REPOSITORY port signature"}}}, nil
			},
		},
		{
			Name: "record-single-id", Priority: 80, TargetKind: Identifier,
			Match: match(func(_ graph.NodeID, _ *graph.Graph, t *semantic.JavaType) *criteria.MatchResult {
				if t.Form != semantic.FormRecord || len(t.Fields) != 1 || !strings.HasSuffix(t.Simple, "Id") {
					return nil
				}
				return &criteria.MatchResult{Confidence: criteria.High, Justification: "single-component immutable record whose name ends with Id",
					Evidence: []criteria.Evidence{{Type: criteria.EvidenceStructure, Description: "record " + t.Simple + "(" + t.Fields[0].Name + ")"}}}
			}),
		},
		{
			Name: "flexible-application-service", Priority: 74, TargetKind: ApplicationService,
			Match: func(subject graph.NodeID, q criteria.GraphQuery) (*criteria.MatchResult, error) {
				if !implementsAny(q, subject, ports.DrivingPorts) || !dependsOnAny(q, subject, ports.DrivenPorts) {
					return nil, nil
				}
				return &criteria.MatchResult{Confidence: criteria.High, Justification: "implements a driving port and depends on a driven port",
					Evidence: []criteria.Evidence{{Type: criteria.EvidenceDependency, Description: "driving-port implementation with driven-port dependency"}}}, nil
			},
		},
		{
			Name: "domain-enum", Priority: 72, TargetKind: ValueObject,
			Match: match(func(_ graph.NodeID, _ *graph.Graph, t *semantic.JavaType) *criteria.MatchResult {
				if t.Form != semantic.FormEnum {
					return nil
				}
				return &criteria.MatchResult{Confidence: criteria.Medium, Justification: "enum type",
					Evidence: []criteria.Evidence{{Type: criteria.EvidenceStructure, Description: "ENUM form"}}}
			}),
		},
		{
			Name: "flexible-saga", Priority: 72, TargetKind: Saga,
			Match: func(subject graph.NodeID, q criteria.GraphQuery) (*criteria.MatchResult, error) {
				t, ok := q.Type(subject)
				if !ok {
					return nil, nil
				}
				if implementsAny(q, subject, ports.DrivingPorts) {
					return nil, nil
				}
				if countDistinctDependencies(q, subject, ports.DrivenPorts) < 2 {
					return nil, nil
				}
				if !hasMutableField(t) {
					return nil, nil
				}
				return &criteria.MatchResult{Confidence: criteria.Medium, Justification: "depends on ≥2 driven ports, implements no driving port, owns mutable state",
					Evidence: []criteria.Evidence{{Type: criteria.EvidenceDependency, Description: "multi-driven-port orchestration with mutable progress state"}}}, nil
			},
		},
		{
			Name: "flexible-inbound-only", Priority: 70, TargetKind: InboundOnly,
			Match: func(subject graph.NodeID, q criteria.GraphQuery) (*criteria.MatchResult, error) {
				if !implementsAny(q, subject, ports.DrivingPorts) {
					return nil, nil
				}
				if dependsOnAny(q, subject, ports.DrivenPorts) {
					return nil, nil
				}
				return &criteria.MatchResult{Confidence: criteria.Medium, Justification: "implements a driving port with no driven-port dependency",
					Evidence: []criteria.Evidence{{Type: criteria.EvidenceDependency, Description: "driving-port-only implementation"}}}, nil
			},
		},
		{
			Name: "domain-event-naming", Priority: 68, TargetKind: DomainEvent,
			Match: match(func(_ graph.NodeID, _ *graph.Graph, t *semantic.JavaType) *criteria.MatchResult {
				if !strings.HasSuffix(t.Simple, "Event") || t.Simple == "Event" {
					return nil
				}
				return &criteria.MatchResult{Confidence: criteria.Low, Justification: "simple name ends with Event",
					Evidence: []criteria.Evidence{{Type: criteria.EvidenceNaming, Description: t.Simple}}}
			}),
		},
		{
			Name: "flexible-outbound-only", Priority: 68, TargetKind: OutboundOnly,
			Match: func(subject graph.NodeID, q criteria.GraphQuery) (*criteria.MatchResult, error) {
				if implementsAny(q, subject, ports.DrivingPorts) {
					return nil, nil
				}
				if !dependsOnAny(q, subject, ports.DrivenPorts) {
					return nil, nil
				}
				return &criteria.MatchResult{Confidence: criteria.Low, Justification: "depends on driven port(s) and implements no driving port",
					Evidence: []criteria.Evidence{{Type: criteria.EvidenceDependency, Description: "driven-port-only dependency"}}}, nil
			},
		},
	}
}

func appearsInRepositorySignature(g *graph.Graph, subject graph.NodeID, repos map[graph.NodeID]bool) bool {
	returnType := graph.EdgeReturnType
	paramType := graph.EdgeParameterType
	for repo := range repos {
		for _, m := range g.MethodsOf(repo) {
			for _, e := range g.Outgoing(m, &returnType) {
				if e.To == subject {
					return true
				}
			}
			for _, e := range g.Outgoing(m, &paramType) {
				if e.To == subject {
					return true
				}
			}
		}
	}
	return false
}

// round2Criteria depends on round-1 results: which types are aggregate
// roots, and which supertypes already carry an explicit classification.
func round2Criteria(aggregateRoots []graph.NodeID, explicitSupertypes map[graph.NodeID]criteria.Contribution[Kind]) []criteria.Criteria[Kind] {
	return []criteria.Criteria[Kind]{
		{
			Name: "contained-entity", Priority: 70, TargetKind: Entity,
			Match: func(subject graph.NodeID, q criteria.GraphQuery) (*criteria.MatchResult, error) {
				t, ok := q.Type(subject)
				if !ok || !hasIdentityField(t) {
					return nil, nil
				}
				if !referencedBy(q, subject, aggregateRoots, true) {
					return nil, nil
				}
				return &criteria.MatchResult{Confidence: criteria.Medium, Justification: "owns identity and is referenced via a collection-like field of an aggregate root",
					Evidence: []criteria.Evidence{{Type: criteria.EvidenceStructure, Description: "collection-held by an aggregate root"}}}, nil
			},
		},
		{
			Name: "embedded-value-object", Priority: 70, TargetKind: ValueObject,
			Match: func(subject graph.NodeID, q criteria.GraphQuery) (*criteria.MatchResult, error) {
				t, ok := q.Type(subject)
				if !ok || !t.AllFieldsFinal() || hasIdentityField(t) {
					return nil, nil
				}
				if !referencedBy(q, subject, aggregateRoots, false) {
					return nil, nil
				}
				return &criteria.MatchResult{Confidence: criteria.Medium, Justification: "immutable, identity-less, referenced by an aggregate",
					Evidence: []criteria.Evidence{{Type: criteria.EvidenceStructure, Description: "embedded in an aggregate root"}}}, nil
			},
		},
		{
			Name: "domain-record-value-object", Priority: 65, TargetKind: ValueObject,
			Match: func(subject graph.NodeID, q criteria.GraphQuery) (*criteria.MatchResult, error) {
				t, ok := q.Type(subject)
				if !ok || t.Form != semantic.FormRecord || hasIdentityField(t) {
					return nil, nil
				}
				if len(q.Incoming(subject, nil)) == 0 {
					return nil, nil
				}
				return &criteria.MatchResult{Confidence: criteria.Low, Justification: "immutable record without identity referenced by other in-scope types",
					Evidence: []criteria.Evidence{{Type: criteria.EvidenceStructure, Description: "record without identity"}}}, nil
			},
		},
		{
			Name: "inherited-classification", Priority: 75, TargetKind: "",
			Match: func(subject graph.NodeID, q criteria.GraphQuery) (*criteria.MatchResult, error) {
				for _, sup := range q.SupertypesOf(subject) {
					if c, ok := explicitSupertypes[sup]; ok {
						return &criteria.MatchResult{Confidence: criteria.High, Justification: "transitive supertype already classified explicitly",
							Evidence: []criteria.Evidence{{Type: criteria.EvidenceInheritance, Description: sup.Qualified}},
							Metadata: map[string]any{"kind": string(c.Kind)},
						}, nil
					}
				}
				return nil, nil
			},
		},
	}
}

// resolveVariesKind returns the contribution with its Kind overridden from
// Metadata["kind"] for the "varies"-target-kind criteria.
func resolveVariesKind(contributions []criteria.Contribution[Kind]) []criteria.Contribution[Kind] {
	out := make([]criteria.Contribution[Kind], 0, len(contributions))
	for _, c := range contributions {
		if c.Kind == "" {
			if raw, ok := c.Metadata["kind"].(string); ok {
				c.Kind = Kind(raw)
			} else {
				continue
			}
		}
		out = append(out, c)
	}
	return out
}

// Evaluate runs the full two-round domain classification protocol over
// every type node in g and returns the final per-subject decision.
func Evaluate(g *graph.Graph, ports PortContext) (map[graph.NodeID]criteria.Decision[Kind], []error) {
	engine1 := criteria.NewEngine(round1Criteria(ports), Compatibility())

	round1 := map[graph.NodeID][]criteria.Contribution[Kind]{}
	var allErrs []error
	for _, subject := range g.Types() {
		contribs, errs := engine1.Evaluate(subject, g)
		round1[subject] = resolveVariesKind(contribs)
		allErrs = append(allErrs, errs...)
	}

	decide := func(c []criteria.Contribution[Kind]) criteria.Decision[Kind] {
		return criteria.DefaultDecisionPolicy[Kind]{Compat: Compatibility()}.Decide(c)
	}

	interim := map[graph.NodeID]criteria.Decision[Kind]{}
	var aggregateRoots []graph.NodeID
	explicitSupertypes := map[graph.NodeID]criteria.Contribution[Kind]{}
	for _, subject := range g.Types() {
		d := decide(round1[subject])
		interim[subject] = d
		if d.Winner != nil {
			if d.Winner.Kind == AggregateRoot {
				aggregateRoots = append(aggregateRoots, subject)
			}
			if d.Winner.Confidence == criteria.Explicit {
				explicitSupertypes[subject] = *d.Winner
			}
		}
	}

	engine2 := criteria.NewEngine(round2Criteria(aggregateRoots, explicitSupertypes), Compatibility())
	final := map[graph.NodeID]criteria.Decision[Kind]{}
	for _, subject := range g.Types() {
		contribs2, errs := engine2.Evaluate(subject, g)
		allErrs = append(allErrs, errs...)
		merged := append(append([]criteria.Contribution[Kind]{}, round1[subject]...), resolveVariesKind(contribs2)...)
		final[subject] = decide(merged)
	}
	return final, allErrs
}
