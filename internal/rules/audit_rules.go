package rules

import (
	"context"
	"strings"

	"hexaglue/internal/criteria"
	"hexaglue/internal/domaincriteria"
	"hexaglue/internal/enrich"
	"hexaglue/internal/graph"
	"hexaglue/internal/layer"
	"hexaglue/internal/portcriteria"
	"hexaglue/internal/semantic"
)

// PortDecisions maps an interface node to its decided port classification.
type PortDecisions = map[graph.NodeID]criteria.Decision[portcriteria.Kind]

// AuditContext is the read-only handle every AuditRule.Check receives: the
// sealed graph plus every upstream pipeline stage's output, so rules never
// recompute classification or enrichment themselves (spec.md §4.H: rules
// are stateless and operate purely on the already-classified model).
type AuditContext struct {
	Graph      *graph.Graph
	Domain     DomainDecisions
	Ports      PortDecisions
	Layers     map[graph.NodeID]layer.Layer
	Enrichment enrich.EnrichedSnapshot
}

// Violation is one audit finding: spec.md §3's (rule-id, severity,
// message, source-location) tuple.
type Violation struct {
	RuleID   string
	Severity Severity
	Message  string
	Location semantic.SourceLocation
}

// AuditRule is (id, name, defaultSeverity, check), stateless per spec.md §4.H.
type AuditRule struct {
	ID              string
	Name            string
	DefaultSeverity Severity
	Check           func(ctx context.Context, ac AuditContext) ([]Violation, error)
}

func hasLabel(ac AuditContext, id graph.NodeID, label enrich.Label) bool {
	for _, l := range ac.Enrichment.Labels[id.Qualified] {
		if l == string(label) {
			return true
		}
	}
	return false
}

func locationOf(ac AuditContext, id graph.NodeID) semantic.SourceLocation {
	if t, ok := ac.Graph.Type(id); ok {
		return derefLoc(t.Location)
	}
	return semantic.SourceLocation{}
}

// derefLoc reads a JavaType's optional *SourceLocation, defaulting to the
// zero location when the front-end left it unset.
func derefLoc(loc *semantic.SourceLocation) semantic.SourceLocation {
	if loc == nil {
		return semantic.SourceLocation{}
	}
	return *loc
}

func hasIdentityField(t *semantic.JavaType) bool {
	for _, f := range t.Fields {
		if strings.EqualFold(f.Name, "id") {
			return true
		}
	}
	return false
}

// entityIdentityRule: every ENTITY/AGGREGATE_ROOT must expose a non-null
// identity field (spec.md §4.H DDD family).
func entityIdentityRule() AuditRule {
	return AuditRule{
		ID:              "ddd:entity-identity",
		Name:            "entity identity",
		DefaultSeverity: Major,
		Check: func(_ context.Context, ac AuditContext) ([]Violation, error) {
			var out []Violation
			for id, d := range ac.Domain {
				if d.Winner == nil {
					continue
				}
				if d.Winner.Kind != domaincriteria.Entity && d.Winner.Kind != domaincriteria.AggregateRoot {
					continue
				}
				t, ok := ac.Graph.Type(id)
				if !ok || hasIdentityField(t) {
					continue
				}
				out = append(out, Violation{
					RuleID:   "ddd:entity-identity",
					Severity: Major,
					Message:  t.Qualified + " is classified " + string(d.Winner.Kind) + " but exposes no identity field",
					Location: derefLoc(t.Location),
				})
			}
			return out, nil
		},
	}
}

// aggregateRepositoryRule: every AGGREGATE_ROOT must have a corresponding
// driven REPOSITORY port whose managed type refers to it.
func aggregateRepositoryRule() AuditRule {
	return AuditRule{
		ID:              "ddd:aggregate-repository",
		Name:            "aggregate repository",
		DefaultSeverity: Major,
		Check: func(_ context.Context, ac AuditContext) ([]Violation, error) {
			managed := map[graph.NodeID]bool{}
			for iface, d := range ac.Ports {
				if d.Winner != nil && d.Winner.Kind == portcriteria.Repository {
					returnKind := graph.EdgeReturnType
					paramKind := graph.EdgeParameterType
					for _, m := range ac.Graph.MethodsOf(iface) {
						for _, e := range ac.Graph.Outgoing(m, &returnKind) {
							managed[e.To] = true
						}
						for _, e := range ac.Graph.Outgoing(m, &paramKind) {
							managed[e.To] = true
						}
					}
				}
			}

			var out []Violation
			for id, d := range ac.Domain {
				if d.Winner == nil || d.Winner.Kind != domaincriteria.AggregateRoot {
					continue
				}
				if managed[id] {
					continue
				}
				t, ok := ac.Graph.Type(id)
				if !ok {
					continue
				}
				out = append(out, Violation{
					RuleID:   "ddd:aggregate-repository",
					Severity: Major,
					Message:  t.Qualified + " is an AGGREGATE_ROOT with no driven repository port managing it",
					Location: derefLoc(t.Location),
				})
			}
			return out, nil
		},
	}
}

// valueObjectImmutableRule: VALUE_OBJECT must have no setters and no
// mutable fields.
func valueObjectImmutableRule() AuditRule {
	return AuditRule{
		ID:              "ddd:value-object-immutable",
		Name:            "value-object immutability",
		DefaultSeverity: Critical,
		Check: func(_ context.Context, ac AuditContext) ([]Violation, error) {
			var out []Violation
			for id, d := range ac.Domain {
				if d.Winner == nil || d.Winner.Kind != domaincriteria.ValueObject {
					continue
				}
				t, ok := ac.Graph.Type(id)
				if !ok {
					continue
				}
				if t.AllFieldsFinal() && !hasAnySetter(ac, id) {
					continue
				}
				out = append(out, Violation{
					RuleID:   "ddd:value-object-immutable",
					Severity: Critical,
					Message:  t.Qualified + " is classified VALUE_OBJECT but has a mutable field or setter",
					Location: derefLoc(t.Location),
				})
			}
			return out, nil
		},
	}
}

func hasAnySetter(ac AuditContext, owner graph.NodeID) bool {
	for _, m := range ac.Graph.MethodsOf(owner) {
		if hasLabel(ac, m, enrich.Setter) {
			return true
		}
	}
	return false
}

// aggregateConsistencyRule: no direct reference to an aggregate root from
// another aggregate root's fields (must go through its repository).
func aggregateConsistencyRule() AuditRule {
	return AuditRule{
		ID:              "ddd:aggregate-consistency",
		Name:            "aggregate consistency",
		DefaultSeverity: Major,
		Check: func(_ context.Context, ac AuditContext) ([]Violation, error) {
			roots := map[graph.NodeID]bool{}
			for id, d := range ac.Domain {
				if d.Winner != nil && d.Winner.Kind == domaincriteria.AggregateRoot {
					roots[id] = true
				}
			}

			var out []Violation
			fieldKind := graph.EdgeFieldType
			for owner := range roots {
				for _, field := range ac.Graph.FieldsOf(owner) {
					for _, e := range ac.Graph.Outgoing(field, &fieldKind) {
						if e.To == owner || !roots[e.To] {
							continue
						}
						ownerType, _ := ac.Graph.Type(owner)
						targetType, _ := ac.Graph.Type(e.To)
						if ownerType == nil || targetType == nil {
							continue
						}
						out = append(out, Violation{
							RuleID:   "ddd:aggregate-consistency",
							Severity: Major,
							Message:  ownerType.Qualified + " holds a direct field reference to aggregate root " + targetType.Qualified,
							Location: derefLoc(ownerType.Location),
						})
					}
				}
			}
			return out, nil
		},
	}
}

// aggregateCyclesRule: no dependency cycle between aggregate roots,
// evaluated via the embedded Datalog transitive closure.
func aggregateCyclesRule() AuditRule {
	return AuditRule{
		ID:              "ddd:aggregate-cycles",
		Name:            "aggregate cycles",
		DefaultSeverity: Critical,
		Check: func(ctx context.Context, ac AuditContext) ([]Violation, error) {
			cycles, err := aggregateCycles(ctx, ac.Graph, ac.Domain)
			if err != nil {
				return nil, err
			}
			var out []Violation
			for _, qualified := range cycles {
				id := graph.NodeID{Kind: graph.KindType, Qualified: qualified}
				t, ok := ac.Graph.Type(id)
				loc := semantic.SourceLocation{}
				if ok {
					loc = derefLoc(t.Location)
				}
				out = append(out, Violation{
					RuleID:   "ddd:aggregate-cycles",
					Severity: Critical,
					Message:  qualified + " participates in a dependency cycle with another aggregate root",
					Location: loc,
				})
			}
			return out, nil
		},
	}
}

// portsAreInterfacesRule: ports must be interfaces (hexagonal family).
// Structurally guaranteed here because portcriteria.Evaluate only ever
// runs over g.Interfaces(); this rule exists to make that invariant an
// observable, reportable fact rather than a silent assumption, and to
// catch a future port criterion that forgets it.
func portsAreInterfacesRule() AuditRule {
	return AuditRule{
		ID:              "hexagonal:ports-are-interfaces",
		Name:            "ports must be interfaces",
		DefaultSeverity: Critical,
		Check: func(_ context.Context, ac AuditContext) ([]Violation, error) {
			var out []Violation
			for id, d := range ac.Ports {
				if d.Winner == nil {
					continue
				}
				t, ok := ac.Graph.Type(id)
				if !ok || t.Form == semantic.FormInterface {
					continue
				}
				out = append(out, Violation{
					RuleID:   "hexagonal:ports-are-interfaces",
					Severity: Critical,
					Message:  t.Qualified + " is classified as a port but is not an interface",
					Location: derefLoc(t.Location),
				})
			}
			return out, nil
		},
	}
}

// layeringRules builds the three layering rules of spec.md §4.H: each
// walks FIELD_TYPE/RETURN_TYPE/PARAMETER_TYPE/ANNOTATED_BY edges looking
// for a forbidden layer transition.
func layeringRules() []AuditRule {
	forbidden := func(id, from, to string) AuditRule {
		return AuditRule{
			ID:              id,
			Name:            id,
			DefaultSeverity: Major,
			Check: func(_ context.Context, ac AuditContext) ([]Violation, error) {
				var out []Violation
				for _, typeID := range ac.Graph.Types() {
					if string(ac.Layers[typeID]) != from {
						continue
					}
					for _, e := range dependencyEdges(ac.Graph, typeID) {
						if string(ac.Layers[e.To]) != to {
							continue
						}
						src, _ := ac.Graph.Type(typeID)
						dst, _ := ac.Graph.Type(e.To)
						if src == nil || dst == nil {
							continue
						}
						out = append(out, Violation{
							RuleID:   id,
							Severity: Major,
							Message:  src.Qualified + " (" + from + ") depends on " + dst.Qualified + " (" + to + ")",
							Location: derefLoc(src.Location),
						})
					}
				}
				return out, nil
			},
		}
	}

	return []AuditRule{
		forbidden("layering:application-not-presentation", "APPLICATION", "PRESENTATION"),
		forbidden("layering:domain-not-infrastructure", "DOMAIN", "INFRASTRUCTURE"),
		forbidden("layering:presentation-not-depended-on-by-domain", "DOMAIN", "PRESENTATION"),
	}
}

// dependencyDirectionRule: domain -> infrastructure is forbidden
// (hexagonal family's restatement of the layering rule above, scoped to
// DEPENDS_ON/USES edges specifically rather than every structural edge).
func dependencyDirectionRule() AuditRule {
	return AuditRule{
		ID:              "hexagonal:dependency-direction",
		Name:            "dependency direction",
		DefaultSeverity: Critical,
		Check: func(_ context.Context, ac AuditContext) ([]Violation, error) {
			var out []Violation
			usesKind := graph.EdgeUses
			dependsKind := graph.EdgeDependsOn
			for _, typeID := range ac.Graph.Types() {
				if string(ac.Layers[typeID]) != "DOMAIN" {
					continue
				}
				targets := map[graph.NodeID]bool{}
				for _, e := range ac.Graph.Outgoing(typeID, &usesKind) {
					targets[e.To] = true
				}
				for _, e := range ac.Graph.Outgoing(typeID, &dependsKind) {
					targets[e.To] = true
				}
				for to := range targets {
					if string(ac.Layers[to]) != "INFRASTRUCTURE" {
						continue
					}
					src, _ := ac.Graph.Type(typeID)
					dst, _ := ac.Graph.Type(to)
					if src == nil || dst == nil {
						continue
					}
					out = append(out, Violation{
						RuleID:   "hexagonal:dependency-direction",
						Severity: Critical,
						Message:  src.Qualified + " (domain) depends on infrastructure type " + dst.Qualified,
						Location: derefLoc(src.Location),
					})
				}
			}
			return out, nil
		},
	}
}

func dependencyEdges(g *graph.Graph, owner graph.NodeID) []graph.Edge {
	var out []graph.Edge
	for _, field := range g.FieldsOf(owner) {
		fieldKind := graph.EdgeFieldType
		out = append(out, g.Outgoing(field, &fieldKind)...)
	}
	for _, method := range g.MethodsOf(owner) {
		returnKind := graph.EdgeReturnType
		paramKind := graph.EdgeParameterType
		out = append(out, g.Outgoing(method, &returnKind)...)
		out = append(out, g.Outgoing(method, &paramKind)...)
	}
	annotated := graph.EdgeAnnotatedBy
	out = append(out, g.Outgoing(owner, &annotated)...)
	return out
}

// BuiltinRules returns every AuditRule spec.md §4.H names, in a fixed
// registration order (DDD, then hexagonal, then layering). Engine.Run sorts
// violations by rule id first, so this order does not decide report order.
func BuiltinRules() []AuditRule {
	rules := []AuditRule{
		entityIdentityRule(),
		aggregateRepositoryRule(),
		valueObjectImmutableRule(),
		aggregateConsistencyRule(),
		aggregateCyclesRule(),
		portsAreInterfacesRule(),
		dependencyDirectionRule(),
	}
	rules = append(rules, layeringRules()...)
	return rules
}
