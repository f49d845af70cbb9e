package rules

import (
	"context"

	"hexaglue/internal/criteria"
	"hexaglue/internal/domaincriteria"
	"hexaglue/internal/graph"
)

// DomainDecisions maps a type node to its decided domain classification.
type DomainDecisions = map[graph.NodeID]criteria.Decision[domaincriteria.Kind]

// cycleSchema declares the dependency edges between aggregate roots and
// the transitive-closure rule used to detect an aggregate cycle: the
// classic edge/path Datalog idiom (teacher: internal/mangle/engine_test.go's
// TestDerivedFactsGasLimit schema), specialized to aggregate-root nodes.
const cycleSchema = `
Decl aggregate_depends(X, Y) bound [/string, /string].
Decl aggregate_reaches(X, Y) bound [/string, /string].
aggregate_reaches(X, Y) :- aggregate_depends(X, Y).
aggregate_reaches(X, Z) :- aggregate_depends(X, Y), aggregate_reaches(Y, Z).
`

// aggregateDependsFacts derives the aggregate_depends facts: a DEPENDS_ON or
// USES edge (raw or derived) whose endpoints are both winning AGGREGATE_ROOT
// types feeds the closure. Only aggregate-to-aggregate edges are asserted,
// since that is the only direction spec.md's "aggregate cycles" rule cares
// about.
func aggregateDependsFacts(g *graph.Graph, decisions DomainDecisions) []Fact {
	roots := map[graph.NodeID]bool{}
	for id, d := range decisions {
		if d.Winner != nil && d.Winner.Kind == domaincriteria.AggregateRoot {
			roots[id] = true
		}
	}

	seen := map[[2]string]bool{}
	var facts []Fact
	for from := range roots {
		usesKind := graph.EdgeUses
		dependsKind := graph.EdgeDependsOn
		targets := map[graph.NodeID]bool{}
		for _, e := range g.Outgoing(from, &usesKind) {
			targets[e.To] = true
		}
		for _, e := range g.Outgoing(from, &dependsKind) {
			targets[e.To] = true
		}
		for to := range targets {
			if to == from || !roots[to] {
				continue
			}
			key := [2]string{from.Qualified, to.Qualified}
			if seen[key] {
				continue
			}
			seen[key] = true
			facts = append(facts, Fact{Predicate: "aggregate_depends", Args: []interface{}{from.Qualified, to.Qualified}})
		}
	}
	return facts
}

// aggregateCycles runs the transitive closure and returns every aggregate
// root qualified name that reaches itself: a genuine dependency cycle.
func aggregateCycles(ctx context.Context, g *graph.Graph, decisions DomainDecisions) ([]string, error) {
	depends := aggregateDependsFacts(g, decisions)
	if len(depends) == 0 {
		return nil, nil
	}

	engine := NewMangleEngine()
	if err := engine.LoadSchemaString(cycleSchema); err != nil {
		return nil, err
	}
	if err := engine.AddFacts(depends); err != nil {
		return nil, err
	}
	if err := engine.Evaluate(); err != nil {
		return nil, err
	}

	rows, err := engine.Query(ctx, "aggregate_reaches(X, X)")
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var out []string
	for _, row := range rows {
		name := row["X"]
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out, nil
}
