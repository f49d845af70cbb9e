package hexaglue

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"hexaglue/internal/domaincriteria"
	"hexaglue/internal/enrich"
	"hexaglue/internal/graph"
	"hexaglue/internal/hxconfig"
	"hexaglue/internal/markers"
	"hexaglue/internal/portcriteria"
	"hexaglue/internal/rules"
	"hexaglue/internal/semantic"
	"hexaglue/internal/semantic/fixture"
	"hexaglue/internal/style"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testConfig(t *testing.T, basePackage string) hxconfig.Config {
	t.Helper()
	cfg := hxconfig.Default()
	cfg.BasePackage = basePackage
	cfg.SourceRoots = []string{t.TempDir()}
	return cfg
}

func typeID(qualified string) graph.NodeID {
	return graph.NodeID{Kind: graph.KindType, Qualified: qualified}
}

// --- Scenario 1: explicit aggregate root ---------------------------------

func TestScenarioExplicitAggregateRoot(t *testing.T) {
	p := fixture.New("com.example")
	p.Add(semantic.JavaType{
		Qualified: "com.example.orders.Order", Simple: "Order", Package: "com.example.orders",
		Form:        semantic.FormClass,
		Annotations: []semantic.Annotation{{Qualified: markers.AggregateRoot}},
		Fields: []semantic.Field{
			{Name: "id", Type: semantic.TypeRef{Qualified: "com.example.orders.OrderId"}, Modifiers: semantic.ModFinal},
		},
	})
	p.Add(semantic.JavaType{
		Qualified: "com.example.orders.OrderId", Simple: "OrderId", Package: "com.example.orders",
		Form:        semantic.FormRecord,
		Annotations: []semantic.Annotation{{Qualified: markers.Identity}},
		Fields: []semantic.Field{
			{Name: "value", Type: semantic.TypeRef{Qualified: "java.util.UUID"}, Modifiers: semantic.ModFinal},
		},
	})
	p.Add(semantic.JavaType{
		Qualified: "com.example.orders.Orders", Simple: "Orders", Package: "com.example.orders",
		Form:        semantic.FormInterface,
		Annotations: []semantic.Annotation{{Qualified: markers.Repository}},
		Methods: []semantic.Method{
			{
				Name:       "save",
				ReturnType: semantic.TypeRef{Qualified: "com.example.orders.Order"},
				Parameters: []semantic.Parameter{{Name: "order", Type: semantic.TypeRef{Qualified: "com.example.orders.Order"}}},
			},
		},
	})

	result, err := Analyze(context.Background(), p, testConfig(t, "com.example"))
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	order := result.DomainResults[typeID("com.example.orders.Order")]
	if order.Winner == nil || order.Winner.Kind != domaincriteria.AggregateRoot {
		t.Fatalf("Order decision = %+v, want AGGREGATE_ROOT winner", order)
	}
	if order.Winner.Priority != 100 {
		t.Fatalf("Order priority = %d, want 100", order.Winner.Priority)
	}
	if len(order.Conflicts) != 0 {
		t.Fatalf("Order conflicts = %+v, want none", order.Conflicts)
	}

	orderID := result.DomainResults[typeID("com.example.orders.OrderId")]
	if orderID.Winner == nil || orderID.Winner.Kind != domaincriteria.Identifier || orderID.Winner.Priority != 100 {
		t.Fatalf("OrderId decision = %+v, want IDENTIFIER priority 100", orderID)
	}

	orders := result.PortResults[typeID("com.example.orders.Orders")]
	if orders.Winner == nil || orders.Winner.Kind != portcriteria.Repository {
		t.Fatalf("Orders decision = %+v, want REPOSITORY winner", orders)
	}
	if orders.Winner.Priority < 85 {
		t.Fatalf("Orders priority = %d, want >= 85", orders.Winner.Priority)
	}
	if portcriteria.DirectionOf(orders.Winner.Kind) != portcriteria.Driven {
		t.Fatalf("Orders direction = %s, want DRIVEN", portcriteria.DirectionOf(orders.Winner.Kind))
	}
}

// --- Scenario 2: record-single-id inference -------------------------------

func TestScenarioRecordSingleIDInference(t *testing.T) {
	p := fixture.New("com.example")
	p.Add(semantic.JavaType{
		Qualified: "com.example.customers.CustomerId", Simple: "CustomerId", Package: "com.example.customers",
		Form: semantic.FormRecord,
		Fields: []semantic.Field{
			{Name: "value", Type: semantic.TypeRef{Qualified: "java.util.UUID"}, Modifiers: semantic.ModFinal},
		},
	})

	result, err := Analyze(context.Background(), p, testConfig(t, "com.example"))
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	d := result.DomainResults[typeID("com.example.customers.CustomerId")]
	if d.Winner == nil || d.Winner.Kind != domaincriteria.Identifier {
		t.Fatalf("CustomerId decision = %+v, want IDENTIFIER winner", d)
	}
	if d.Winner.Priority != 80 {
		t.Fatalf("CustomerId priority = %d, want 80", d.Winner.Priority)
	}
	if d.Winner.CriteriaName != "record-single-id" {
		t.Fatalf("CustomerId criterion = %s, want record-single-id", d.Winner.CriteriaName)
	}
}

// --- Scenario 3: tie-break on priorities -> CONFLICT ----------------------

func TestScenarioEntityVsValueObjectConflict(t *testing.T) {
	p := fixture.New("com.example")
	p.Add(semantic.JavaType{
		Qualified: "com.example.catalog.Money", Simple: "Money", Package: "com.example.catalog",
		Form: semantic.FormClass,
		Annotations: []semantic.Annotation{
			{Qualified: markers.Entity},
			{Qualified: markers.ValueObject},
		},
	})

	result, err := Analyze(context.Background(), p, testConfig(t, "com.example"))
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	d := result.DomainResults[typeID("com.example.catalog.Money")]
	if d.Winner != nil {
		t.Fatalf("Money decision winner = %+v, want CONFLICT (nil winner)", d.Winner)
	}
	if !d.IncompatibleFlag {
		t.Fatal("Money decision IncompatibleFlag = false, want true")
	}
	if len(d.Conflicts) == 0 {
		t.Fatal("Money decision conflicts empty, want the losing contribution recorded")
	}
}

// --- Scenario 4: application service vs saga ------------------------------

func sagaFixture(mutableField bool) *fixture.Provider {
	p := fixture.New("com.example")
	p.Add(semantic.JavaType{
		Qualified: "com.example.fulfillment.PaymentGateway", Simple: "PaymentGateway", Package: "com.example.fulfillment",
		Form:        semantic.FormInterface,
		Annotations: []semantic.Annotation{{Qualified: markers.SecondaryPort}},
	})
	p.Add(semantic.JavaType{
		Qualified: "com.example.fulfillment.ShippingGateway", Simple: "ShippingGateway", Package: "com.example.fulfillment",
		Form:        semantic.FormInterface,
		Annotations: []semantic.Annotation{{Qualified: markers.SecondaryPort}},
	})

	fields := []semantic.Field{
		{Name: "payments", Type: semantic.TypeRef{Qualified: "com.example.fulfillment.PaymentGateway"}, Modifiers: semantic.ModFinal},
		{Name: "shipping", Type: semantic.TypeRef{Qualified: "com.example.fulfillment.ShippingGateway"}, Modifiers: semantic.ModFinal},
	}
	if !mutableField {
		fields = append(fields, semantic.Field{Name: "attempts", Type: semantic.TypeRef{Qualified: "int"}, Modifiers: semantic.ModFinal})
	} else {
		fields = append(fields, semantic.Field{Name: "attempts", Type: semantic.TypeRef{Qualified: "int"}})
	}

	p.Add(semantic.JavaType{
		Qualified: "com.example.fulfillment.OrderFulfillment", Simple: "OrderFulfillment", Package: "com.example.fulfillment",
		Form:   semantic.FormClass,
		Fields: fields,
	})
	return p
}

func TestScenarioSagaWithMutableState(t *testing.T) {
	p := sagaFixture(true)
	result, err := Analyze(context.Background(), p, testConfig(t, "com.example"))
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	d := result.DomainResults[typeID("com.example.fulfillment.OrderFulfillment")]
	if d.Winner == nil || d.Winner.Kind != domaincriteria.Saga {
		t.Fatalf("OrderFulfillment decision = %+v, want SAGA winner", d)
	}
	if d.Winner.Priority != 72 {
		t.Fatalf("OrderFulfillment priority = %d, want 72", d.Winner.Priority)
	}
}

func TestScenarioOutboundOnlyWithoutMutableState(t *testing.T) {
	p := sagaFixture(false)
	result, err := Analyze(context.Background(), p, testConfig(t, "com.example"))
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	d := result.DomainResults[typeID("com.example.fulfillment.OrderFulfillment")]
	if d.Winner == nil || d.Winner.Kind != domaincriteria.OutboundOnly {
		t.Fatalf("OrderFulfillment decision = %+v, want OUTBOUND_ONLY winner", d)
	}
	if d.Winner.Priority != 68 {
		t.Fatalf("OrderFulfillment priority = %d, want 68", d.Winner.Priority)
	}
}

// --- Scenario 5: audit violation, value-object immutability ---------------

func TestScenarioValueObjectImmutabilityViolation(t *testing.T) {
	p := fixture.New("com.example")
	p.Add(semantic.JavaType{
		Qualified: "com.example.catalog.Money", Simple: "Money", Package: "com.example.catalog",
		Form:        semantic.FormClass,
		Annotations: []semantic.Annotation{{Qualified: markers.ValueObject}},
		Fields: []semantic.Field{
			{Name: "amount", Type: semantic.TypeRef{Qualified: "java.math.BigDecimal"}, Modifiers: semantic.ModFinal},
		},
		Methods: []semantic.Method{
			{
				Name:       "setAmount",
				ReturnType: semantic.TypeRef{Qualified: "void"},
				Parameters: []semantic.Parameter{{Name: "amount", Type: semantic.TypeRef{Qualified: "java.math.BigDecimal"}}},
			},
		},
	})

	result, err := Analyze(context.Background(), p, testConfig(t, "com.example"))
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if result.Report.Status != rules.Failed {
		t.Fatalf("Report.Status = %s, want FAILED", result.Report.Status)
	}

	found := false
	for _, v := range result.Report.Violations {
		if v.RuleID == "ddd:value-object-immutable" {
			found = true
			if v.Severity != rules.Critical {
				t.Fatalf("violation severity = %s, want CRITICAL", v.Severity)
			}
		}
	}
	if !found {
		t.Fatalf("Report.Violations = %+v, want ddd:value-object-immutable", result.Report.Violations)
	}
}

// --- Scenario 6: package-style detection ----------------------------------

func TestScenarioPackageStyleDetection(t *testing.T) {
	p := fixture.New("com.example")
	for i := 0; i < 10; i++ {
		p.Add(semantic.JavaType{
			Qualified: qualifiedN("com.example.orders.ports.in", "InPort", i),
			Simple:    simpleN("InPort", i), Package: "com.example.orders.ports.in", Form: semantic.FormInterface,
		})
	}
	for i := 0; i < 8; i++ {
		p.Add(semantic.JavaType{
			Qualified: qualifiedN("com.example.orders.ports.out", "OutPort", i),
			Simple:    simpleN("OutPort", i), Package: "com.example.orders.ports.out", Form: semantic.FormInterface,
		})
	}
	for i := 0; i < 2; i++ {
		p.Add(semantic.JavaType{
			Qualified: qualifiedN("com.example.orders.adapter", "Adapter", i),
			Simple:    simpleN("Adapter", i), Package: "com.example.orders.adapter", Form: semantic.FormClass,
		})
	}

	result, err := Analyze(context.Background(), p, testConfig(t, "com.example"))
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	meta := result.Graph.Metadata()
	if meta.Style != string(style.Hexagonal) {
		t.Fatalf("Metadata.Style = %s, want HEXAGONAL", meta.Style)
	}
	if meta.StyleConfidence != string(style.Explicit) {
		t.Fatalf("Metadata.StyleConfidence = %s, want EXPLICIT", meta.StyleConfidence)
	}
}

func qualifiedN(pkg, simple string, i int) string { return pkg + "." + simpleN(simple, i) }
func simpleN(simple string, i int) string         { return simple + string(rune('A'+i)) }

// --- Universal property: determinism ---------------------------------------

func TestPropertyDeterminism(t *testing.T) {
	cfg := testConfig(t, "com.example")
	build := func() *fixture.Provider { return sagaFixture(true) }

	r1, err := Analyze(context.Background(), build(), cfg)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	r2, err := Analyze(context.Background(), build(), cfg)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	j1, err := r1.ReportJSON()
	if err != nil {
		t.Fatalf("ReportJSON() error = %v", err)
	}
	j2, err := r2.ReportJSON()
	if err != nil {
		t.Fatalf("ReportJSON() error = %v", err)
	}
	if string(j1) != string(j2) {
		t.Fatalf("ReportJSON() not deterministic:\n%s\nvs\n%s", j1, j2)
	}

	s1, err := r1.SnapshotJSON()
	if err != nil {
		t.Fatalf("SnapshotJSON() error = %v", err)
	}
	s2, err := r2.SnapshotJSON()
	if err != nil {
		t.Fatalf("SnapshotJSON() error = %v", err)
	}
	if string(s1) != string(s2) {
		t.Fatalf("SnapshotJSON() not deterministic:\n%s\nvs\n%s", s1, s2)
	}
}

// --- Universal property: order independence --------------------------------

func TestPropertyOrderIndependence(t *testing.T) {
	cfg := testConfig(t, "com.example")

	forward := fixture.New("com.example")
	reversed := fixture.New("com.example")
	names := []string{"Aaa", "Mmm", "Zzz"}
	for _, n := range names {
		forward.Add(semantic.JavaType{Qualified: "com.example.pkg." + n, Simple: n, Package: "com.example.pkg", Form: semantic.FormClass})
	}
	for i := len(names) - 1; i >= 0; i-- {
		n := names[i]
		reversed.Add(semantic.JavaType{Qualified: "com.example.pkg." + n, Simple: n, Package: "com.example.pkg", Form: semantic.FormClass})
	}

	r1, err := Analyze(context.Background(), forward, cfg)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	r2, err := Analyze(context.Background(), reversed, cfg)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if diff := cmp.Diff(r1.DomainResults, r2.DomainResults); diff != "" {
		t.Fatalf("DomainResults differ under input reordering (-forward +reversed):\n%s", diff)
	}

	j1, _ := r1.SnapshotJSON()
	j2, _ := r2.SnapshotJSON()
	if string(j1) != string(j2) {
		t.Fatalf("SnapshotJSON() differs under input reordering:\n%s\nvs\n%s", j1, j2)
	}
}

// --- Universal property: scope ----------------------------------------------

func TestPropertyScope(t *testing.T) {
	p := fixture.New("com.example")
	p.Add(semantic.JavaType{Qualified: "com.example.InScope", Simple: "InScope", Package: "com.example", Form: semantic.FormClass})
	p.Add(semantic.JavaType{Qualified: "com.other.OutOfScope", Simple: "OutOfScope", Package: "com.other", Form: semantic.FormClass})
	p.Add(semantic.JavaType{
		Qualified: "com.example.Generated", Simple: "Generated", Package: "com.example", Form: semantic.FormClass,
		Annotations: []semantic.Annotation{{Qualified: "javax.annotation.Generated"}},
	})

	result, err := Analyze(context.Background(), p, testConfig(t, "com.example"))
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if !result.Graph.HasType(typeID("com.example.InScope")) {
		t.Fatal("in-scope type missing from graph")
	}
	if result.Graph.HasType(typeID("com.other.OutOfScope")) {
		t.Fatal("out-of-scope type present in graph")
	}
	if result.Graph.HasType(typeID("com.example.Generated")) {
		t.Fatal("generated type present in graph despite IncludeGenerated=false")
	}
}

// --- Universal property: edge integrity -------------------------------------

func TestPropertyEdgeIntegrity(t *testing.T) {
	result, err := Analyze(context.Background(), sagaFixture(true), testConfig(t, "com.example"))
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	validKinds := map[graph.EdgeKind]bool{
		graph.EdgeExtends: true, graph.EdgeImplements: true, graph.EdgeDeclares: true,
		graph.EdgeFieldType: true, graph.EdgeReturnType: true, graph.EdgeParameterType: true,
		graph.EdgeTypeArgument: true, graph.EdgeAnnotatedBy: true, graph.EdgeUses: true,
		graph.EdgeProduces: true, graph.EdgeConsumes: true, graph.EdgeDependsOn: true,
	}

	nodeExists := func(id graph.NodeID) bool {
		if id.Kind == graph.KindType {
			return result.Graph.HasType(id)
		}
		_, ok := result.Graph.Member(id)
		return ok
	}

	for _, e := range result.Graph.AllEdges() {
		if !validKinds[e.Kind] {
			t.Fatalf("edge %+v has an undefined kind", e)
		}
		if !nodeExists(e.From) {
			t.Fatalf("edge %+v: From endpoint is not a graph node", e)
		}
		if !nodeExists(e.To) {
			t.Fatalf("edge %+v: To endpoint is not a graph node", e)
		}
	}
}

// --- Universal property: tie-break law --------------------------------------

func TestPropertyTieBreakLaw(t *testing.T) {
	p := fixture.New("com.example")
	p.Add(semantic.JavaType{
		Qualified: "com.example.orders.Orders", Simple: "Orders", Package: "com.example.orders",
		Form: semantic.FormInterface,
		Methods: []semantic.Method{
			{Name: "save", ReturnType: semantic.TypeRef{Qualified: "com.example.orders.Order"},
				Parameters: []semantic.Parameter{{Name: "order", Type: semantic.TypeRef{Qualified: "com.example.orders.Order"}}}},
		},
	})
	// Order matches both "explicit-aggregate-root" (priority 100) and
	// "repository-dominant" (priority 80): both target AGGREGATE_ROOT, so the
	// higher-priority contribution must win with no conflict recorded.
	p.Add(semantic.JavaType{
		Qualified: "com.example.orders.Order", Simple: "Order", Package: "com.example.orders",
		Form:        semantic.FormClass,
		Annotations: []semantic.Annotation{{Qualified: markers.AggregateRoot}},
		Fields: []semantic.Field{
			{Name: "id", Type: semantic.TypeRef{Qualified: "java.util.UUID"}, Modifiers: semantic.ModFinal},
		},
	})

	result, err := Analyze(context.Background(), p, testConfig(t, "com.example"))
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	d := result.DomainResults[typeID("com.example.orders.Order")]
	if d.Winner == nil || d.Winner.CriteriaName != "explicit-aggregate-root" {
		t.Fatalf("Order decision = %+v, want explicit-aggregate-root (priority 100) to win over repository-dominant (priority 80)", d)
	}
}

// --- Universal property: compatibility law ----------------------------------

func TestPropertyCompatibilityLaw(t *testing.T) {
	// AGGREGATE_ROOT and ENTITY are the one declared-compatible pair: both
	// markers on the same type must still resolve to a winner, never CONFLICT.
	p := fixture.New("com.example")
	p.Add(semantic.JavaType{
		Qualified: "com.example.orders.Order", Simple: "Order", Package: "com.example.orders",
		Form: semantic.FormClass,
		Annotations: []semantic.Annotation{
			{Qualified: markers.AggregateRoot},
			{Qualified: markers.Entity},
		},
	})

	result, err := Analyze(context.Background(), p, testConfig(t, "com.example"))
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	d := result.DomainResults[typeID("com.example.orders.Order")]
	if d.Winner == nil {
		t.Fatalf("Order decision = %+v, want a winner (AGGREGATE_ROOT/ENTITY are declared compatible)", d)
	}
	if d.IncompatibleFlag {
		t.Fatal("Order decision IncompatibleFlag = true, want false for a compatible pair")
	}
}

// --- Universal property: enrichment monotonicity ----------------------------

type fixedLabelEnricher struct {
	id     string
	target graph.NodeID
	label  enrich.Label
}

func (e fixedLabelEnricher) ID() string { return e.id }

func (e fixedLabelEnricher) Enrich(ctx enrich.EnrichmentContext) (enrich.Contribution, error) {
	return enrich.Contribution{
		ID: e.id,
		Labels: map[string]map[enrich.Label]bool{
			e.target.Qualified: {e.label: true},
		},
	}, nil
}

func TestPropertyEnrichmentMonotonicity(t *testing.T) {
	p := fixture.New("com.example")
	p.Add(semantic.JavaType{Qualified: "com.example.orders.Order", Simple: "Order", Package: "com.example.orders", Form: semantic.FormClass})
	target := typeID("com.example.orders.Order")

	a := fixedLabelEnricher{id: "a", target: target, label: enrich.Label("CUSTOM_A")}
	b := fixedLabelEnricher{id: "b", target: target, label: enrich.Label("CUSTOM_B")}

	r1, err := Analyze(context.Background(), p, testConfig(t, "com.example"), a, b)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	r2, err := Analyze(context.Background(), p, testConfig(t, "com.example"), b, a)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if len(r1.Enriched.Labels["com.example.orders.Order"]) != len(r2.Enriched.Labels["com.example.orders.Order"]) {
		t.Fatalf("label set differs by enricher order: %v vs %v",
			r1.Enriched.Labels["com.example.orders.Order"], r2.Enriched.Labels["com.example.orders.Order"])
	}
	want := map[string]bool{}
	for _, l := range r1.Enriched.Labels["com.example.orders.Order"] {
		want[l] = true
	}
	for _, l := range r2.Enriched.Labels["com.example.orders.Order"] {
		if !want[l] {
			t.Fatalf("label %s present under one enricher order but not the other", l)
		}
	}
}

// --- Universal property: rule purity ----------------------------------------

func TestPropertyRulePurity(t *testing.T) {
	result, err := Analyze(context.Background(), sagaFixture(true), testConfig(t, "com.example"))
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	ac := rules.AuditContext{
		Graph:      result.Graph,
		Domain:     result.DomainResults,
		Ports:      result.PortResults,
		Layers:     result.Layers,
		Enrichment: result.Enriched,
	}

	for _, rule := range rules.BuiltinRules() {
		first, err := rule.Check(context.Background(), ac)
		if err != nil {
			t.Fatalf("rule %s Check() error = %v", rule.ID, err)
		}
		second, err := rule.Check(context.Background(), ac)
		if err != nil {
			t.Fatalf("rule %s Check() error = %v", rule.ID, err)
		}
		if len(first) != len(second) {
			t.Fatalf("rule %s is not pure: %d vs %d violations across identical runs", rule.ID, len(first), len(second))
		}
		for i := range first {
			if first[i] != second[i] {
				t.Fatalf("rule %s is not pure: violation %d differs (%+v vs %+v)", rule.ID, i, first[i], second[i])
			}
		}
	}
}
