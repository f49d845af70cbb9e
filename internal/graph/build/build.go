// Package build implements the Graph Builder (component C): it drains a
// semantic.Provider through Pass 1 (type nodes), Pass 1.5 (style
// detection), Pass 2 (member nodes and raw edges) and Pass 3 (derived
// edges), then seals the result.
package build

import (
	"context"

	"hexaglue/internal/graph"
	"hexaglue/internal/hxerrors"
	"hexaglue/internal/semantic"
	"hexaglue/internal/style"
)

// Options configures one build run (the subset of hxconfig.Config the
// builder needs).
type Options struct {
	BasePackage         string
	LanguageVersion     int
	ComputeDerivedEdges bool
}

// Build runs Passes 1 through 3 over provider and seals the resulting graph.
// A provider failure surfaces as hxerrors.Parse, per spec.md §4.A: "if
// underlying parsing fails, the provider surfaces a fatal error; the core
// aborts."
func Build(ctx context.Context, provider semantic.Provider, opts Options) (*graph.Graph, error) {
	seq, err := provider.Types(ctx)
	if err != nil {
		return nil, hxerrors.Parse(err)
	}

	b := graph.NewBuilder(graph.Metadata{
		BasePackage:     opts.BasePackage,
		LanguageVersion: opts.LanguageVersion,
	})

	typeIndex := map[string]graph.NodeID{}
	var allTypes []*semantic.JavaType

	// Pass 1.
	for t := range seq {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		id := b.AddType(t)
		typeIndex[t.Qualified] = id
		allTypes = append(allTypes, t)
	}
	b.SetSourceCount(len(allTypes))

	// Pass 1.5.
	result := style.Detect(allTypes, opts.BasePackage)
	b.SetStyleMetadata(string(result.Style), string(result.Confidence), result.PatternMatches)

	// Pass 2.
	for _, t := range allTypes {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		owner := typeIndex[t.Qualified]
		populateMembersAndRawEdges(b, owner, t, typeIndex)
	}

	sealed := b.Seal()

	// Pass 3.
	if !opts.ComputeDerivedEdges {
		return sealed, nil
	}
	return addDerivedEdges(sealed), nil
}

func populateMembersAndRawEdges(b *graph.Builder, owner graph.NodeID, t *semantic.JavaType, typeIndex map[string]graph.NodeID) {
	if t.Supertype != nil {
		if target, ok := typeIndex[t.Supertype.Qualified]; ok {
			b.AddEdge(owner, target, graph.EdgeExtends, graph.OriginRaw)
		}
	}
	for _, iface := range t.Interfaces {
		if target, ok := typeIndex[iface.Qualified]; ok {
			b.AddEdge(owner, target, graph.EdgeImplements, graph.OriginRaw)
		}
	}
	for _, ann := range t.Annotations {
		if target, ok := typeIndex[ann.Qualified]; ok {
			b.AddEdge(owner, target, graph.EdgeAnnotatedBy, graph.OriginRaw)
		}
	}

	for i := range t.Fields {
		f := &t.Fields[i]
		id := b.AddField(owner, f, i)
		b.AddEdge(owner, id, graph.EdgeDeclares, graph.OriginRaw)
		if target, ok := typeIndex[f.Type.Qualified]; ok {
			b.AddEdge(id, target, graph.EdgeFieldType, graph.OriginRaw)
		}
		addTypeArgumentEdges(b, id, f.Type, typeIndex)
		addAnnotationEdges(b, id, f.Annotations, typeIndex)
	}

	for i := range t.Methods {
		m := &t.Methods[i]
		id := b.AddMethod(owner, m, i)
		b.AddEdge(owner, id, graph.EdgeDeclares, graph.OriginRaw)
		if !m.IsVoid() {
			if target, ok := typeIndex[m.ReturnType.Qualified]; ok {
				b.AddEdge(id, target, graph.EdgeReturnType, graph.OriginRaw)
			}
			addTypeArgumentEdges(b, id, m.ReturnType, typeIndex)
		}
		for _, p := range m.Parameters {
			if target, ok := typeIndex[p.Type.Qualified]; ok {
				b.AddEdge(id, target, graph.EdgeParameterType, graph.OriginRaw)
			}
			addTypeArgumentEdges(b, id, p.Type, typeIndex)
		}
		addAnnotationEdges(b, id, m.Annotations, typeIndex)
	}

	for i := range t.Constructors {
		c := &t.Constructors[i]
		id := b.AddConstructor(owner, c, i)
		b.AddEdge(owner, id, graph.EdgeDeclares, graph.OriginRaw)
		for _, p := range c.Parameters {
			if target, ok := typeIndex[p.Type.Qualified]; ok {
				b.AddEdge(id, target, graph.EdgeParameterType, graph.OriginRaw)
			}
			addTypeArgumentEdges(b, id, p.Type, typeIndex)
		}
		addAnnotationEdges(b, id, c.Annotations, typeIndex)
	}
}

// addTypeArgumentEdges recursively follows nested generic arguments (e.g.
// Map<String,List<Order>> yields an edge to Order) per spec.md §4.C.
func addTypeArgumentEdges(b *graph.Builder, member graph.NodeID, ref semantic.TypeRef, typeIndex map[string]graph.NodeID) {
	for _, arg := range ref.TypeArguments {
		if target, ok := typeIndex[arg.Qualified]; ok {
			b.AddEdge(member, target, graph.EdgeTypeArgument, graph.OriginRaw)
		}
		addTypeArgumentEdges(b, member, arg, typeIndex)
	}
}

func addAnnotationEdges(b *graph.Builder, subject graph.NodeID, anns []semantic.Annotation, typeIndex map[string]graph.NodeID) {
	for _, ann := range anns {
		if target, ok := typeIndex[ann.Qualified]; ok {
			b.AddEdge(subject, target, graph.EdgeAnnotatedBy, graph.OriginRaw)
		}
	}
}

// addDerivedEdges implements Pass 3: USES aggregates the raw FIELD_TYPE,
// PARAMETER_TYPE, RETURN_TYPE and TYPE_ARGUMENT member edges up to the
// owning type; PRODUCES/CONSUMES narrow to method
// return/parameter types; DEPENDS_ON narrows to field types and
// constructor parameter types (structural injected dependencies).
func addDerivedEdges(g *graph.Graph) *graph.Graph {
	b := graph.NewBuilderFromGraph(g)

	derivedFrom := map[graph.NodeID]map[graph.NodeID]bool{}
	producesFrom := map[graph.NodeID]map[graph.NodeID]bool{}
	consumesFrom := map[graph.NodeID]map[graph.NodeID]bool{}
	dependsFrom := map[graph.NodeID]map[graph.NodeID]bool{}

	addTo := func(m map[graph.NodeID]map[graph.NodeID]bool, owner, target graph.NodeID) {
		if m[owner] == nil {
			m[owner] = map[graph.NodeID]bool{}
		}
		m[owner][target] = true
	}

	for _, e := range g.AllEdges() {
		if e.Kind != graph.EdgeFieldType && e.Kind != graph.EdgeParameterType &&
			e.Kind != graph.EdgeReturnType && e.Kind != graph.EdgeTypeArgument {
			continue
		}
		rec, ok := g.Member(e.From)
		if !ok {
			continue
		}
		owner := rec.Owner
		addTo(derivedFrom, owner, e.To)
		switch e.Kind {
		case graph.EdgeReturnType:
			addTo(producesFrom, owner, e.To)
		case graph.EdgeParameterType:
			addTo(consumesFrom, owner, e.To)
			if rec.Constructor != nil {
				addTo(dependsFrom, owner, e.To)
			}
		case graph.EdgeFieldType:
			addTo(dependsFrom, owner, e.To)
		}
	}

	emit := func(m map[graph.NodeID]map[graph.NodeID]bool, kind graph.EdgeKind) {
		for owner, targets := range m {
			for target := range targets {
				b.AddEdge(owner, target, kind, graph.OriginDerived)
			}
		}
	}
	emit(derivedFrom, graph.EdgeUses)
	emit(producesFrom, graph.EdgeProduces)
	emit(consumesFrom, graph.EdgeConsumes)
	emit(dependsFrom, graph.EdgeDependsOn)

	return b.Seal()
}

