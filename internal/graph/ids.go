package graph

// NodeKind tags what a NodeID identifies. String() returns the kind-tag
// used by the lexicographic node ordering (spec.md §3: "NodeId =
// (kind-tag, qualified-string)").
type NodeKind uint8

const (
	KindType NodeKind = iota
	KindField
	KindMethod
	KindConstructor
)

func (k NodeKind) String() string {
	switch k {
	case KindType:
		return "type"
	case KindField:
		return "field"
	case KindMethod:
		return "method"
	case KindConstructor:
		return "constructor"
	default:
		return "unknown"
	}
}

// NodeID is a stable, comparable identifier: (kind-tag, qualified-string).
type NodeID struct {
	Kind      NodeKind
	Qualified string
}

// Less implements the ordering invariant: lexicographic by kind-tag, then
// by qualified-string.
func (a NodeID) Less(b NodeID) bool {
	ak, bk := a.Kind.String(), b.Kind.String()
	if ak != bk {
		return ak < bk
	}
	return a.Qualified < b.Qualified
}

func (a NodeID) String() string { return a.Kind.String() + ":" + a.Qualified }

// EdgeKind enumerates the edge kinds of spec.md §3.
type EdgeKind uint8

const (
	EdgeExtends EdgeKind = iota
	EdgeImplements
	EdgeDeclares
	EdgeFieldType
	EdgeReturnType
	EdgeParameterType
	EdgeTypeArgument
	EdgeAnnotatedBy
	EdgeUses
	EdgeProduces
	EdgeConsumes
	EdgeDependsOn
)

func (k EdgeKind) String() string {
	switch k {
	case EdgeExtends:
		return "EXTENDS"
	case EdgeImplements:
		return "IMPLEMENTS"
	case EdgeDeclares:
		return "DECLARES"
	case EdgeFieldType:
		return "FIELD_TYPE"
	case EdgeReturnType:
		return "RETURN_TYPE"
	case EdgeParameterType:
		return "PARAMETER_TYPE"
	case EdgeTypeArgument:
		return "TYPE_ARGUMENT"
	case EdgeAnnotatedBy:
		return "ANNOTATED_BY"
	case EdgeUses:
		return "USES"
	case EdgeProduces:
		return "PRODUCES"
	case EdgeConsumes:
		return "CONSUMES"
	case EdgeDependsOn:
		return "DEPENDS_ON"
	default:
		return "UNKNOWN"
	}
}

// DerivedKinds are the edge kinds Pass 3 may produce.
var DerivedKinds = map[EdgeKind]bool{
	EdgeUses:      true,
	EdgeProduces:  true,
	EdgeConsumes:  true,
	EdgeDependsOn: true,
}

// EdgeOrigin distinguishes an edge read directly off the semantic model
// from one computed by Pass 3.
type EdgeOrigin uint8

const (
	OriginRaw EdgeOrigin = iota
	OriginDerived
)

func (o EdgeOrigin) String() string {
	if o == OriginDerived {
		return "DERIVED"
	}
	return "RAW"
}

// Edge is (from, to, kind, origin).
type Edge struct {
	From   NodeID
	To     NodeID
	Kind   EdgeKind
	Origin EdgeOrigin
}

// edgeLess implements "then by edge kind name" from the iteration-order
// invariant: edges are ordered by (From, Kind name, To).
func edgeLess(a, b Edge) bool {
	if a.From != b.From {
		return a.From.Less(b.From)
	}
	if a.Kind != b.Kind {
		return a.Kind.String() < b.Kind.String()
	}
	return a.To.Less(b.To)
}
