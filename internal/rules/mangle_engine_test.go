package rules

import (
	"context"
	"testing"
)

func TestMangleEngineLoadSchemaString(t *testing.T) {
	engine := NewMangleEngine()
	if err := engine.LoadSchemaString(`Decl fact(X, Y).`); err != nil {
		t.Fatalf("LoadSchemaString() error = %v", err)
	}
}

func TestMangleEngineAddFactsRejectsUnknownPredicate(t *testing.T) {
	engine := NewMangleEngine()
	if err := engine.LoadSchemaString(`Decl fact(X, Y).`); err != nil {
		t.Fatalf("LoadSchemaString() error = %v", err)
	}
	err := engine.AddFacts([]Fact{{Predicate: "nope", Args: []interface{}{"a", "b"}}})
	if err == nil {
		t.Fatal("AddFacts() with undeclared predicate: want error, got nil")
	}
}

func TestMangleEngineAddFactsRejectsArityMismatch(t *testing.T) {
	engine := NewMangleEngine()
	if err := engine.LoadSchemaString(`Decl fact(X, Y).`); err != nil {
		t.Fatalf("LoadSchemaString() error = %v", err)
	}
	err := engine.AddFacts([]Fact{{Predicate: "fact", Args: []interface{}{"a"}}})
	if err == nil {
		t.Fatal("AddFacts() with wrong arity: want error, got nil")
	}
}

func TestMangleEngineTransitiveClosure(t *testing.T) {
	engine := NewMangleEngine()
	if err := engine.LoadSchemaString(cycleSchema); err != nil {
		t.Fatalf("LoadSchemaString() error = %v", err)
	}

	facts := []Fact{
		{Predicate: "aggregate_depends", Args: []interface{}{"Order", "Customer"}},
		{Predicate: "aggregate_depends", Args: []interface{}{"Customer", "Order"}},
		{Predicate: "aggregate_depends", Args: []interface{}{"Order", "Shipment"}},
	}
	if err := engine.AddFacts(facts); err != nil {
		t.Fatalf("AddFacts() error = %v", err)
	}
	if err := engine.Evaluate(); err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	rows, err := engine.Query(context.Background(), "aggregate_reaches(X, X)")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}

	seen := map[string]bool{}
	for _, row := range rows {
		seen[row["X"]] = true
	}
	if !seen["Order"] || !seen["Customer"] {
		t.Fatalf("Query() self-reaching set = %v, want Order and Customer", seen)
	}
	if seen["Shipment"] {
		t.Fatalf("Query() reported Shipment as cyclic, want absent (no path back to itself)")
	}
}

func TestMangleEngineQueryUndeclaredPredicate(t *testing.T) {
	engine := NewMangleEngine()
	if err := engine.LoadSchemaString(`Decl fact(X, Y).`); err != nil {
		t.Fatalf("LoadSchemaString() error = %v", err)
	}
	if _, err := engine.Query(context.Background(), "nope(X)"); err == nil {
		t.Fatal("Query() on undeclared predicate: want error, got nil")
	}
}

func TestMangleEngineEvaluateWithoutSchema(t *testing.T) {
	engine := NewMangleEngine()
	if err := engine.Evaluate(); err == nil {
		t.Fatal("Evaluate() without LoadSchemaString: want error, got nil")
	}
}
