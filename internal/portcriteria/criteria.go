// Package portcriteria supplies the port-classification criteria of
// spec.md §4.F (target: PORT), evaluated in the first pass of the
// two-pass domain/port sequence: ports are classified before domain
// criteria run, since several domain criteria consult port results.
package portcriteria

import (
	"strings"

	"hexaglue/internal/criteria"
	"hexaglue/internal/graph"
	"hexaglue/internal/markers"
	"hexaglue/internal/semantic"
)

// Kind enumerates the port classification kinds of spec.md §4.F.
type Kind string

const (
	Repository Kind = "REPOSITORY"
	UseCase    Kind = "USE_CASE"
	Gateway    Kind = "GATEWAY"
	Generic    Kind = "GENERIC"
	Command    Kind = "COMMAND"
	Query      Kind = "QUERY"
)

// Direction tags whether a port kind faces inward (driving) or outward
// (driven); it is derived from the kind via DirectionOf rather than kept as
// a separate criteria-engine dimension, since the decision policy is
// generic over a single K.
type Direction string

const (
	Driving Direction = "DRIVING"
	Driven  Direction = "DRIVEN"
)

var kindDirection = map[Kind]Direction{
	Repository: Driven,
	UseCase:    Driving,
	Gateway:    Driven,
	Generic:    Driven,
	Command:    Driving,
	Query:      Driving,
}

// DirectionOf returns the fixed direction for a port kind.
func DirectionOf(k Kind) Direction { return kindDirection[k] }

// Compatibility declares all port kinds mutually incompatible (spec.md §4.E).
func Compatibility() criteria.CompatibilityPolicy[Kind] {
	return criteria.AllIncompatible[Kind]()
}

// isApplicationServiceCandidate reports whether subject is a plausible
// application service: a class (FormClass) with at least one field or
// constructor parameter whose type is an in-scope type; which kind of type
// it references is not checked. The semantic-driving/semantic-driven criteria below need this
// before domain classification has run, so it is computed structurally
// rather than consulting domain results (spec.md's Open Questions treat the
// two passes as already decoupled this way).
func isApplicationServiceCandidate(g *graph.Graph, subject graph.NodeID) bool {
	t, ok := g.Type(subject)
	if !ok || t.Form != semantic.FormClass {
		return false
	}
	fieldType := graph.EdgeFieldType
	paramType := graph.EdgeParameterType
	for _, f := range g.FieldsOf(subject) {
		if len(g.Outgoing(f, &fieldType)) > 0 {
			return true
		}
	}
	for _, c := range g.ConstructorsOf(subject) {
		if len(g.Outgoing(c, &paramType)) > 0 {
			return true
		}
	}
	return false
}

func implementedBy(g *graph.Graph, iface graph.NodeID, predicate func(graph.NodeID) bool) bool {
	for _, impl := range g.ImplementersOf(iface) {
		if predicate(impl) {
			return true
		}
	}
	return false
}

// usedBy reports whether some application-service candidate depends on
// iface by field or constructor parameter.
func usedBy(g *graph.Graph, iface graph.NodeID) bool {
	incoming := g.Incoming(iface, nil)
	fieldType := graph.EdgeFieldType
	paramType := graph.EdgeParameterType
	for _, e := range incoming {
		if e.Kind != fieldType && e.Kind != paramType {
			continue
		}
		owner, ok := ownerOf(g, e.From)
		if !ok {
			continue
		}
		if isApplicationServiceCandidate(g, owner) {
			return true
		}
	}
	return false
}

func ownerOf(g *graph.Graph, member graph.NodeID) (graph.NodeID, bool) {
	rec, ok := g.Member(member)
	if !ok {
		return graph.NodeID{}, false
	}
	return rec.Owner, true
}

// hasNoInScopeImplementation reports whether iface has zero implementers
// among in-scope types — a signal that its implementation is missing or
// external ("internal" in spec wording).
func hasNoInScopeImplementation(g *graph.Graph, iface graph.NodeID) bool {
	return len(g.ImplementersOf(iface)) == 0
}

func aggregateLike(t *semantic.JavaType) bool {
	// Structural proxy for "aggregate-like": owns an identity-ish field.
	for _, f := range t.Fields {
		if strings.EqualFold(f.Name, "id") {
			return true
		}
	}
	return false
}

func signatureReferencesAggregateLike(g *graph.Graph, iface graph.NodeID) int {
	returnType := graph.EdgeReturnType
	paramType := graph.EdgeParameterType
	seen := map[graph.NodeID]bool{}
	for _, m := range g.MethodsOf(iface) {
		for _, e := range append(g.Outgoing(m, &returnType), g.Outgoing(m, &paramType)...) {
			if seen[e.To] {
				continue
			}
			if target, ok := g.Type(e.To); ok && aggregateLike(target) {
				seen[e.To] = true
			}
		}
	}
	return len(seen)
}

func hasCommandOrQueryMethod(t *semantic.JavaType, methodNames []string, paramSuffix string) bool {
	for _, m := range t.Methods {
		for _, name := range methodNames {
			if m.Name == name && len(m.Parameters) == 1 && strings.HasSuffix(m.Parameters[0].Type.Qualified, paramSuffix) {
				return true
			}
		}
	}
	return false
}

func hasQueryGetterMethod(t *semantic.JavaType) bool {
	for _, m := range t.Methods {
		if m.Name == "query" {
			return true
		}
		if strings.HasPrefix(m.Name, "get") && !m.IsVoid() {
			return true
		}
	}
	return false
}

func injectedAsDependency(g *graph.Graph, iface graph.NodeID) bool {
	incoming := g.Incoming(iface, nil)
	fieldType := graph.EdgeFieldType
	paramType := graph.EdgeParameterType
	for _, e := range incoming {
		if e.Kind == fieldType || e.Kind == paramType {
			return true
		}
	}
	return false
}

func criteriaList() []criteria.Criteria[Kind] {
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
			Name: "explicit-repository", Priority: 100, TargetKind: Repository,
			Match: match(func(_ graph.NodeID, _ *graph.Graph, t *semantic.JavaType) *criteria.MatchResult {
				if t.Form != semantic.FormInterface || !t.HasAnnotation(markers.Repository) {
					return nil
				}
				return &criteria.MatchResult{Confidence: criteria.Explicit, Justification: "annotated with the canonical repository marker",
					Evidence: []criteria.Evidence{{Type: criteria.EvidenceAnnotation, Description: markers.Repository}}}
			}),
		},
		{
			Name: "explicit-primary-port", Priority: 100, TargetKind: UseCase,
			Match: match(func(_ graph.NodeID, _ *graph.Graph, t *semantic.JavaType) *criteria.MatchResult {
				if t.Form != semantic.FormInterface || !t.HasAnnotation(markers.PrimaryPort) {
					return nil
				}
				return &criteria.MatchResult{Confidence: criteria.Explicit, Justification: "annotated with the canonical driving-port marker",
					Evidence: []criteria.Evidence{{Type: criteria.EvidenceAnnotation, Description: markers.PrimaryPort}}}
			}),
		},
		{
			Name: "explicit-secondary-port", Priority: 100, TargetKind: Gateway,
			Match: match(func(_ graph.NodeID, _ *graph.Graph, t *semantic.JavaType) *criteria.MatchResult {
				if t.Form != semantic.FormInterface || !t.HasAnnotation(markers.SecondaryPort) {
					return nil
				}
				return &criteria.MatchResult{Confidence: criteria.Explicit, Justification: "annotated with the canonical driven-port marker",
					Evidence: []criteria.Evidence{{Type: criteria.EvidenceAnnotation, Description: markers.SecondaryPort}}}
			}),
		},
		{
			Name: "semantic-driving", Priority: 85, TargetKind: UseCase,
			Match: func(subject graph.NodeID, q criteria.GraphQuery) (*criteria.MatchResult, error) {
				t, ok := q.Type(subject)
				if !ok || t.Form != semantic.FormInterface {
					return nil, nil
				}
				if !implementedBy(q, subject, func(impl graph.NodeID) bool { return isApplicationServiceCandidate(q, impl) }) {
					return nil, nil
				}
				return &criteria.MatchResult{Confidence: criteria.High, Justification: "implemented by an application-service-class candidate",
					Evidence: []criteria.Evidence{{Type: criteria.EvidenceStructure, Description: "implemented by a dependency-bearing class"}}}, nil
			},
		},
		{
			Name: "semantic-driven", Priority: 85, TargetKind: Generic,
			Match: func(subject graph.NodeID, q criteria.GraphQuery) (*criteria.MatchResult, error) {
				t, ok := q.Type(subject)
				if !ok || t.Form != semantic.FormInterface {
					return nil, nil
				}
				if !usedBy(q, subject) || !hasNoInScopeImplementation(q, subject) {
					return nil, nil
				}
				return &criteria.MatchResult{Confidence: criteria.High, Justification: "used by an application-service candidate with missing/internal implementation",
					Evidence: []criteria.Evidence{{Type: criteria.EvidenceDependency, Description: "no in-scope implementer"}}}, nil
			},
		},
		{
			Name: "command-pattern", Priority: 75, TargetKind: Command,
			Match: match(func(_ graph.NodeID, _ *graph.Graph, t *semantic.JavaType) *criteria.MatchResult {
				if t.Form != semantic.FormInterface || !hasCommandOrQueryMethod(t, []string{"execute", "handle"}, "Command") {
					return nil
				}
				return &criteria.MatchResult{Confidence: criteria.Medium, Justification: "exposes execute(Command)/handle(Command)",
					Evidence: []criteria.Evidence{{Type: criteria.EvidenceStructure, Description: "command-shaped method signature"}}}
			}),
		},
		{
			Name: "query-pattern", Priority: 75, TargetKind: Query,
			Match: match(func(_ graph.NodeID, _ *graph.Graph, t *semantic.JavaType) *criteria.MatchResult {
				if t.Form != semantic.FormInterface || !hasQueryGetterMethod(t) {
					return nil
				}
				return &criteria.MatchResult{Confidence: criteria.Medium, Justification: "exposes query(Query)/get*() returning a projection",
					Evidence: []criteria.Evidence{{Type: criteria.EvidenceStructure, Description: "query-shaped method signature"}}}
			}),
		},
		{
			Name: "injected-as-dependency", Priority: 75, TargetKind: Repository,
			Match: func(subject graph.NodeID, q criteria.GraphQuery) (*criteria.MatchResult, error) {
				t, ok := q.Type(subject)
				if !ok || t.Form != semantic.FormInterface || !injectedAsDependency(q, subject) {
					return nil, nil
				}
				return &criteria.MatchResult{Confidence: criteria.Medium, Justification: "injected as a constructor/field dependency",
					Evidence: []criteria.Evidence{{Type: criteria.EvidenceDependency, Description: "injected dependency"}}}, nil
			},
		},
		{
			Name: "signature-based-gateway", Priority: 72, TargetKind: Gateway,
			Match: func(subject graph.NodeID, q criteria.GraphQuery) (*criteria.MatchResult, error) {
				t, ok := q.Type(subject)
				if !ok || t.Form != semantic.FormInterface {
					return nil, nil
				}
				if signatureReferencesAggregateLike(q, subject) < 2 {
					return nil, nil
				}
				return &criteria.MatchResult{Confidence: criteria.Medium, Justification: "signatures reference ≥2 aggregate-like types",
					Evidence: []criteria.Evidence{{Type: criteria.EvidenceStructure, Description: "multi-aggregate signature"}}}, nil
			},
		},
		{
			Name: "signature-based-driven", Priority: 70, TargetKind: Repository,
			Match: func(subject graph.NodeID, q criteria.GraphQuery) (*criteria.MatchResult, error) {
				t, ok := q.Type(subject)
				if !ok || t.Form != semantic.FormInterface {
					return nil, nil
				}
				if signatureReferencesAggregateLike(q, subject) < 1 {
					return nil, nil
				}
				return &criteria.MatchResult{Confidence: criteria.Low, Justification: "signatures reference an aggregate-like type",
					Evidence: []criteria.Evidence{{Type: criteria.EvidenceStructure, Description: "aggregate-referencing signature"}}}, nil
			},
		},
	}
}

// Evaluate runs every port criterion against every interface node in g.
func Evaluate(g *graph.Graph) (map[graph.NodeID]criteria.Decision[Kind], []error) {
	engine := criteria.NewEngine(criteriaList(), Compatibility())
	result := map[graph.NodeID]criteria.Decision[Kind]{}
	var allErrs []error
	for _, iface := range g.Interfaces() {
		contribs, errs := engine.Evaluate(iface, g)
		allErrs = append(allErrs, errs...)
		result[iface] = engine.Decide(contribs)
	}
	return result, allErrs
}
