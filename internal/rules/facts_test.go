package rules

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"hexaglue/internal/criteria"
	"hexaglue/internal/domaincriteria"
	"hexaglue/internal/graph"
	"hexaglue/internal/semantic"
)

func aggregateDecision(id graph.NodeID) criteria.Decision[domaincriteria.Kind] {
	return criteria.Decision[domaincriteria.Kind]{
		Winner: &criteria.Contribution[domaincriteria.Kind]{Kind: domaincriteria.AggregateRoot, CriteriaName: "test"},
	}
}

func TestAggregateDependsFactsOnlyBetweenRoots(t *testing.T) {
	b := graph.NewBuilder(graph.Metadata{})
	order := b.AddType(&semantic.JavaType{Qualified: "com.example.Order", Form: semantic.FormClass})
	customer := b.AddType(&semantic.JavaType{Qualified: "com.example.Customer", Form: semantic.FormClass})
	line := b.AddType(&semantic.JavaType{Qualified: "com.example.OrderLine", Form: semantic.FormClass})
	b.AddEdge(order, customer, graph.EdgeUses, graph.OriginRaw)
	b.AddEdge(order, line, graph.EdgeUses, graph.OriginRaw)
	g := b.Seal()

	decisions := DomainDecisions{
		order:    aggregateDecision(order),
		customer: aggregateDecision(customer),
	}

	facts := aggregateDependsFacts(g, decisions)
	if len(facts) != 1 {
		t.Fatalf("aggregateDependsFacts() = %d facts, want 1 (OrderLine is not a winning aggregate root)", len(facts))
	}
	if facts[0].Predicate != "aggregate_depends" {
		t.Fatalf("unexpected predicate %q", facts[0].Predicate)
	}
	if facts[0].Args[0] != "com.example.Order" || facts[0].Args[1] != "com.example.Customer" {
		t.Fatalf("unexpected args %v", facts[0].Args)
	}
}

func TestAggregateCyclesDetectsCycle(t *testing.T) {
	b := graph.NewBuilder(graph.Metadata{})
	order := b.AddType(&semantic.JavaType{Qualified: "com.example.Order", Form: semantic.FormClass})
	customer := b.AddType(&semantic.JavaType{Qualified: "com.example.Customer", Form: semantic.FormClass})
	b.AddEdge(order, customer, graph.EdgeUses, graph.OriginRaw)
	b.AddEdge(customer, order, graph.EdgeDependsOn, graph.OriginRaw)
	g := b.Seal()

	decisions := DomainDecisions{
		order:    aggregateDecision(order),
		customer: aggregateDecision(customer),
	}

	cycles, err := aggregateCycles(context.Background(), g, decisions)
	require.NoError(t, err)
	require.Len(t, cycles, 2, "want both Order and Customer reported cyclic")
}

func TestAggregateCyclesNoDependencies(t *testing.T) {
	b := graph.NewBuilder(graph.Metadata{})
	order := b.AddType(&semantic.JavaType{Qualified: "com.example.Order", Form: semantic.FormClass})
	g := b.Seal()

	decisions := DomainDecisions{order: aggregateDecision(order)}

	cycles, err := aggregateCycles(context.Background(), g, decisions)
	if err != nil {
		t.Fatalf("aggregateCycles() error = %v", err)
	}
	if len(cycles) != 0 {
		t.Fatalf("aggregateCycles() = %v, want none", cycles)
	}
}

func TestAggregateCyclesAcyclicChainReportsNothing(t *testing.T) {
	b := graph.NewBuilder(graph.Metadata{})
	order := b.AddType(&semantic.JavaType{Qualified: "com.example.Order", Form: semantic.FormClass})
	shipment := b.AddType(&semantic.JavaType{Qualified: "com.example.Shipment", Form: semantic.FormClass})
	b.AddEdge(order, shipment, graph.EdgeUses, graph.OriginRaw)
	g := b.Seal()

	decisions := DomainDecisions{
		order:    aggregateDecision(order),
		shipment: aggregateDecision(shipment),
	}

	cycles, err := aggregateCycles(context.Background(), g, decisions)
	if err != nil {
		t.Fatalf("aggregateCycles() error = %v", err)
	}
	if len(cycles) != 0 {
		t.Fatalf("aggregateCycles() = %v, want none for an acyclic chain", cycles)
	}
}
