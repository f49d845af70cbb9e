package style

import (
	"testing"

	"hexaglue/internal/semantic"
)

func typesIn(pkgs ...string) []*semantic.JavaType {
	var out []*semantic.JavaType
	for i, pkg := range pkgs {
		out = append(out, &semantic.JavaType{
			Qualified: pkg + ".Type" + string(rune('A'+i)),
			Package:   pkg,
		})
	}
	return out
}

func TestHexagonalExplicit(t *testing.T) {
	var pkgs []string
	for i := 0; i < 10; i++ {
		pkgs = append(pkgs, "com.example.ports.in")
	}
	for i := 0; i < 8; i++ {
		pkgs = append(pkgs, "com.example.ports.out")
	}
	for i := 0; i < 2; i++ {
		pkgs = append(pkgs, "com.example.adapter")
	}
	r := Detect(typesIn(pkgs...), "com.example")
	if r.Style != Hexagonal {
		t.Fatalf("expected HEXAGONAL, got %s", r.Style)
	}
	if r.Confidence != Explicit {
		t.Fatalf("expected EXPLICIT, got %s", r.Confidence)
	}
}

func TestFlatWhenSinglePackage(t *testing.T) {
	r := Detect(typesIn("com.example", "com.example", "com.example"), "com.example")
	if r.Style != Flat {
		t.Fatalf("expected FLAT, got %s", r.Style)
	}
}

func TestUnknownWhenNoMarkersAndMultiplePackages(t *testing.T) {
	r := Detect(typesIn("com.example.alpha", "com.example.beta"), "com.example")
	if r.Style != Unknown {
		t.Fatalf("expected UNKNOWN, got %s", r.Style)
	}
	if r.Confidence != Low {
		t.Fatalf("expected LOW, got %s", r.Confidence)
	}
}

func TestByLayerDetected(t *testing.T) {
	var pkgs []string
	for i := 0; i < 4; i++ {
		pkgs = append(pkgs, "com.example.controller")
	}
	for i := 0; i < 3; i++ {
		pkgs = append(pkgs, "com.example.service")
	}
	r := Detect(typesIn(pkgs...), "com.example")
	if r.Style != ByLayer {
		t.Fatalf("expected BY_LAYER, got %s", r.Style)
	}
}

func TestByFeatureRequiresOwnDomainOrApiSubtree(t *testing.T) {
	pkgs := []string{
		"com.example.orders.domain",
		"com.example.orders.api",
		"com.example.billing.domain",
		"com.example.billing.api",
	}
	r := Detect(typesIn(pkgs...), "com.example")
	if r.Style != ByFeature {
		t.Fatalf("expected BY_FEATURE, got %s (%v)", r.Style, r.PatternMatches)
	}
}
