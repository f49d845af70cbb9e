// Package graph implements the immutable, arena-backed application graph
// (spec.md §3, §4.B): a typed node/edge store built once by a single
// builder goroutine and sealed before any other stage reads it. Sealing
// follows the Design Notes' guidance (SPEC_FULL.md §9): cyclic references
// are represented by NodeID rather than owning pointers, so the graph owns
// everything and queries return borrowed views.
package graph

import (
	"sort"
	"sync"
	"time"

	"hexaglue/internal/semantic"
)

// Metadata records the per-run facts spec.md §3 invariant 5 requires.
type Metadata struct {
	BasePackage     string
	LanguageVersion int
	BuildTimestamp  time.Time
	SourceCount     int
	Style           string // package-organization style name, e.g. "HEXAGONAL"
	StyleConfidence string
	PatternMatches  map[string]int
}

// MemberRecord is one field/method/constructor node, tagged by which
// payload is populated.
type MemberRecord struct {
	ID          NodeID
	Owner       NodeID
	Field       *semantic.Field
	Method      *semantic.Method
	Constructor *semantic.Constructor
}

// Graph is the sealed, read-only application graph.
type Graph struct {
	meta Metadata

	typeOrder []NodeID
	typeData  map[NodeID]*semantic.JavaType

	memberOrder map[NodeID][]NodeID // owner type -> member ids, declaration order
	memberData  map[NodeID]*MemberRecord

	edges  []Edge
	outIdx map[NodeID][]int
	inIdx  map[NodeID][]int

	supertypesCache    sync.Map // NodeID -> []NodeID
	implementersCache  sync.Map // NodeID -> []NodeID
}

// Types returns every type node, sorted by NodeID.
func (g *Graph) Types() []NodeID { return append([]NodeID(nil), g.typeOrder...) }

// Interfaces returns every type node whose Form is INTERFACE.
func (g *Graph) Interfaces() []NodeID {
	var out []NodeID
	for _, id := range g.typeOrder {
		if t := g.typeData[id]; t != nil && t.Form == semantic.FormInterface {
			out = append(out, id)
		}
	}
	return out
}

// Type looks up a type's semantic payload.
func (g *Graph) Type(id NodeID) (*semantic.JavaType, bool) {
	t, ok := g.typeData[id]
	return t, ok
}

// HasType reports whether id names a type node in the graph.
func (g *Graph) HasType(id NodeID) bool { _, ok := g.typeData[id]; return ok }

// Member looks up a field/method/constructor node.
func (g *Graph) Member(id NodeID) (*MemberRecord, bool) {
	m, ok := g.memberData[id]
	return m, ok
}

func (g *Graph) membersOf(t NodeID, kind NodeKind) []NodeID {
	var out []NodeID
	for _, id := range g.memberOrder[t] {
		if id.Kind == kind {
			out = append(out, id)
		}
	}
	return out
}

// FieldsOf returns the field nodes declared by t, in declaration order.
func (g *Graph) FieldsOf(t NodeID) []NodeID { return g.membersOf(t, KindField) }

// MethodsOf returns the method nodes declared by t, in declaration order.
func (g *Graph) MethodsOf(t NodeID) []NodeID { return g.membersOf(t, KindMethod) }

// ConstructorsOf returns the constructor nodes declared by t, in
// declaration order.
func (g *Graph) ConstructorsOf(t NodeID) []NodeID { return g.membersOf(t, KindConstructor) }

// Outgoing returns edges leaving n, optionally filtered to one kind. The
// result is ordered per the edge ordering invariant.
func (g *Graph) Outgoing(n NodeID, kind *EdgeKind) []Edge {
	return g.filterEdges(g.outIdx[n], kind)
}

// Incoming returns edges arriving at n, optionally filtered to one kind.
func (g *Graph) Incoming(n NodeID, kind *EdgeKind) []Edge {
	return g.filterEdges(g.inIdx[n], kind)
}

func (g *Graph) filterEdges(idx []int, kind *EdgeKind) []Edge {
	out := make([]Edge, 0, len(idx))
	for _, i := range idx {
		e := g.edges[i]
		if kind == nil || e.Kind == *kind {
			out = append(out, e)
		}
	}
	return out
}

// AllEdges returns every edge in the graph's canonical order.
func (g *Graph) AllEdges() []Edge { return append([]Edge(nil), g.edges...) }

// Metadata returns the graph's build metadata.
func (g *Graph) Metadata() Metadata { return g.meta }

// SupertypesOf returns the transitive closure of EXTENDS/IMPLEMENTS
// ancestors of t, computed lazily and cached. Concurrent callers may both
// compute the closure once each, but since the computation is a pure
// function of the sealed graph both results are equal, so readers never
// observe a partial or divergent cache (spec.md §5).
func (g *Graph) SupertypesOf(t NodeID) []NodeID {
	if cached, ok := g.supertypesCache.Load(t); ok {
		return cached.([]NodeID)
	}
	visited := map[NodeID]bool{}
	var walk func(NodeID)
	walk = func(cur NodeID) {
		extends := EdgeExtends
		implements := EdgeImplements
		for _, e := range g.Outgoing(cur, &extends) {
			if !visited[e.To] {
				visited[e.To] = true
				walk(e.To)
			}
		}
		for _, e := range g.Outgoing(cur, &implements) {
			if !visited[e.To] {
				visited[e.To] = true
				walk(e.To)
			}
		}
	}
	walk(t)
	result := sortedKeys(visited)
	actual, _ := g.supertypesCache.LoadOrStore(t, result)
	return actual.([]NodeID)
}

// ImplementersOf returns every type transitively implementing/extending
// the interface node iface (direct IMPLEMENTS/EXTENDS edges plus anything
// reaching iface through further subtypes), computed lazily and cached.
func (g *Graph) ImplementersOf(iface NodeID) []NodeID {
	if cached, ok := g.implementersCache.Load(iface); ok {
		return cached.([]NodeID)
	}
	result := map[NodeID]bool{}
	for _, candidate := range g.typeOrder {
		for _, anc := range g.SupertypesOf(candidate) {
			if anc == iface {
				result[candidate] = true
				break
			}
		}
	}
	out := sortedKeys(result)
	actual, _ := g.implementersCache.LoadOrStore(iface, out)
	return actual.([]NodeID)
}

func sortedKeys(m map[NodeID]bool) []NodeID {
	out := make([]NodeID, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}
