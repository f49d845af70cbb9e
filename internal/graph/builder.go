package graph

import (
	"fmt"
	"sort"

	"hexaglue/internal/semantic"
)

// Builder is the single-writer, pre-seal mutation surface described in
// spec.md §5: "owned by a single thread... sealed before exposure." Only
// the graph builder package (component C) should construct one.
type Builder struct {
	meta Metadata

	typeData    map[NodeID]*semantic.JavaType
	typeOrderSeen []NodeID

	memberOrder map[NodeID][]NodeID
	memberData  map[NodeID]*MemberRecord

	edgeIndex map[Edge]int // (from,to,kind) ignoring origin -> index into edges, for dedup
	edges     []Edge
}

// NewBuilder creates an empty Builder seeded with meta (BuildTimestamp is
// left to the caller so tests can hold it fixed).
func NewBuilder(meta Metadata) *Builder {
	return &Builder{
		meta:        meta,
		typeData:    make(map[NodeID]*semantic.JavaType),
		memberOrder: make(map[NodeID][]NodeID),
		memberData:  make(map[NodeID]*MemberRecord),
		edgeIndex:   make(map[Edge]int),
	}
}

// NewBuilderFromGraph seeds a Builder with every node and RAW edge already
// in g, preserving NodeIDs exactly. It is how Pass 3 augments a sealed
// graph with derived edges without perturbing the identities Pass 2 and
// the style detector already fixed.
func NewBuilderFromGraph(g *Graph) *Builder {
	b := NewBuilder(g.meta)
	for _, id := range g.typeOrder {
		b.typeData[id] = g.typeData[id]
		b.typeOrderSeen = append(b.typeOrderSeen, id)
	}
	for owner, members := range g.memberOrder {
		for _, id := range members {
			rec := g.memberData[id]
			cp := *rec
			b.memberData[id] = &cp
			b.memberOrder[owner] = append(b.memberOrder[owner], id)
		}
	}
	for _, e := range g.edges {
		b.AddEdge(e.From, e.To, e.Kind, e.Origin)
	}
	return b
}

// AddType registers a type node (Pass 1). Calling it twice for the same
// qualified name is a programmer error (the provider already guarantees
// uniqueness) and panics, matching the teacher's fail-fast posture for
// invariant violations discovered at build time.
func (b *Builder) AddType(t *semantic.JavaType) NodeID {
	id := NodeID{Kind: KindType, Qualified: t.Qualified}
	if _, exists := b.typeData[id]; exists {
		panic(fmt.Sprintf("graph: duplicate type node %s", id))
	}
	b.typeData[id] = t
	b.typeOrderSeen = append(b.typeOrderSeen, id)
	return id
}

func (b *Builder) addMember(owner NodeID, kind NodeKind, name string, index int, rec *MemberRecord) NodeID {
	id := NodeID{Kind: kind, Qualified: fmt.Sprintf("%s#%s#%d", owner.Qualified, name, index)}
	rec.ID = id
	rec.Owner = owner
	b.memberData[id] = rec
	b.memberOrder[owner] = append(b.memberOrder[owner], id)
	return id
}

// AddField registers a field node (Pass 2) at its declaration index within
// the owning type.
func (b *Builder) AddField(owner NodeID, f *semantic.Field, index int) NodeID {
	return b.addMember(owner, KindField, f.Name, index, &MemberRecord{Field: f})
}

// AddMethod registers a method node.
func (b *Builder) AddMethod(owner NodeID, m *semantic.Method, index int) NodeID {
	return b.addMember(owner, KindMethod, m.Name, index, &MemberRecord{Method: m})
}

// AddConstructor registers a constructor node.
func (b *Builder) AddConstructor(owner NodeID, c *semantic.Constructor, index int) NodeID {
	return b.addMember(owner, KindConstructor, "<init>", index, &MemberRecord{Constructor: c})
}

// AddEdge adds (from, to, kind, origin), applying invariant 2: edges are
// deduplicated by (from, to, kind); when a RAW and a DERIVED edge collide,
// RAW wins. The caller is responsible for invariant 1 (only adding edges
// whose endpoints already exist as nodes) — build package passes only ever
// target nodes it has already materialized or explicitly skips.
func (b *Builder) AddEdge(from, to NodeID, kind EdgeKind, origin EdgeOrigin) {
	key := Edge{From: from, To: to, Kind: kind}
	if i, exists := b.edgeIndex[key]; exists {
		if b.edges[i].Origin == OriginDerived && origin == OriginRaw {
			b.edges[i].Origin = OriginRaw
		}
		return
	}
	b.edgeIndex[key] = len(b.edges)
	b.edges = append(b.edges, Edge{From: from, To: to, Kind: kind, Origin: origin})
}

// SetStyleMetadata attaches the Pass 1.5 style-detector output to the
// builder's metadata (spec.md §4.C: "attach the result into metadata").
func (b *Builder) SetStyleMetadata(styleName, confidence string, patternMatches map[string]int) {
	b.meta.Style = styleName
	b.meta.StyleConfidence = confidence
	b.meta.PatternMatches = patternMatches
}

// SetSourceCount records the number of types Pass 1 materialized.
func (b *Builder) SetSourceCount(n int) { b.meta.SourceCount = n }

// Seal finalizes the builder into an immutable Graph: sorts nodes and
// edges into their canonical order and builds the adjacency indexes.
func (b *Builder) Seal() *Graph {
	typeOrder := append([]NodeID(nil), b.typeOrderSeen...)
	sort.Slice(typeOrder, func(i, j int) bool { return typeOrder[i].Less(typeOrder[j]) })

	// memberOrder is left exactly as addMember appended it: declaration
	// order, per owner. NodeID.Less is a node-identity ordering (used for
	// typeOrder/edges, spec.md line 62) and is dominated by the member
	// name, so sorting by it here would alphabetize FieldsOf/MethodsOf/
	// ConstructorsOf instead of preserving the declaration order those
	// accessors promise.

	edges := append([]Edge(nil), b.edges...)
	sort.Slice(edges, func(i, j int) bool { return edgeLess(edges[i], edges[j]) })

	outIdx := make(map[NodeID][]int)
	inIdx := make(map[NodeID][]int)
	for i, e := range edges {
		outIdx[e.From] = append(outIdx[e.From], i)
		inIdx[e.To] = append(inIdx[e.To], i)
	}

	return &Graph{
		meta:        b.meta,
		typeOrder:   typeOrder,
		typeData:    b.typeData,
		memberOrder: b.memberOrder,
		memberData:  b.memberData,
		edges:       edges,
		outIdx:      outIdx,
		inIdx:       inIdx,
	}
}
