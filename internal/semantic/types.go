// Package semantic defines the normalized, read-only view of a compilation
// unit's types that the rest of the pipeline consumes (spec.md §4.A). It is
// deliberately thin: the real source-language front-end (parser, resolver)
// is an external collaborator. This package only states the contract and
// the data it carries.
package semantic

// Form is the declaration form of a type.
type Form string

const (
	FormClass      Form = "CLASS"
	FormInterface  Form = "INTERFACE"
	FormEnum       Form = "ENUM"
	FormRecord     Form = "RECORD"
	FormAnnotation Form = "ANNOTATION"
)

// Modifier is a bitset over the declared modifier set. Types and members
// combine modifiers (e.g. PUBLIC|STATIC|FINAL), so a bitset generalizes the
// teacher's single-value Visibility/ActionType enums.
type Modifier uint16

const (
	ModPublic Modifier = 1 << iota
	ModPrivate
	ModProtected
	ModStatic
	ModFinal
	ModAbstract
	ModSealed
)

// Has reports whether m contains every bit in mask.
func (m Modifier) Has(mask Modifier) bool { return m&mask == mask }

// With returns m with mask's bits set.
func (m Modifier) With(mask Modifier) Modifier { return m | mask }

// SourceLocation pinpoints a declaration for violation reporting.
type SourceLocation struct {
	File   string
	Line   int
	Column int
}

// Annotation is a qualified annotation-type name plus its value map, e.g.
// `@AggregateRoot` with no values, or `@Table(name="orders")`.
type Annotation struct {
	Qualified string
	Values    map[string]any
}

// TypeRef is a raw reference to a (possibly generic, possibly array) type.
type TypeRef struct {
	Qualified     string
	TypeArguments []TypeRef
	IsArray       bool
	ArrayDims     int
}

// well-known raw qualified names for the semantic predicates below. A real
// front-end maps its language's actual library types onto these.
const (
	QualOptional      = "java.util.Optional"
	QualList          = "java.util.List"
	QualSet           = "java.util.Set"
	QualStream        = "java.util.stream.Stream"
	QualQueue         = "java.util.Queue"
	QualMap           = "java.util.Map"
	QualSortedMap     = "java.util.SortedMap"
	QualConcurrentMap = "java.util.concurrent.ConcurrentMap"
)

var collectionLike = map[string]bool{
	QualList: true, QualSet: true, QualStream: true, QualQueue: true,
}

var mapLike = map[string]bool{
	QualMap: true, QualSortedMap: true, QualConcurrentMap: true,
}

// IsOptionalLike reports whether the ref is a single-element optional
// wrapper.
func (t TypeRef) IsOptionalLike() bool { return t.Qualified == QualOptional }

// IsCollectionLike reports whether the ref is a list/set/stream/queue.
func (t TypeRef) IsCollectionLike() bool { return collectionLike[t.Qualified] }

// IsMapLike reports whether the ref is a map/sorted-map/concurrent-map.
func (t TypeRef) IsMapLike() bool { return mapLike[t.Qualified] }

// Unwrap returns the single type argument of an optional-like or
// collection-like ref, and true. For anything else it returns the zero
// value and false.
func (t TypeRef) Unwrap() (TypeRef, bool) {
	if (t.IsOptionalLike() || t.IsCollectionLike()) && len(t.TypeArguments) == 1 {
		return t.TypeArguments[0], true
	}
	return TypeRef{}, false
}

// Parameter is one method/constructor parameter.
type Parameter struct {
	Name        string
	Type        TypeRef
	Annotations []Annotation
}

// Field is a declared field.
type Field struct {
	Name        string
	Type        TypeRef
	Modifiers   Modifier
	Annotations []Annotation
	Location    SourceLocation
}

// Complexity is the cached cyclomatic complexity of a method/constructor
// body. Abstract methods carry no complexity.
type Complexity struct {
	Value int
	Set   bool
}

// Method is a declared method.
type Method struct {
	Name        string
	Parameters  []Parameter
	ReturnType  TypeRef // zero TypeRef with Qualified=="void" for void returns
	Modifiers   Modifier
	Annotations []Annotation
	Complexity  Complexity
	Location    SourceLocation
	Doc         string
}

// IsVoid reports whether the method's return type is void.
func (m Method) IsVoid() bool { return m.ReturnType.Qualified == "void" }

// Constructor is a declared constructor.
type Constructor struct {
	Parameters  []Parameter
	Modifiers   Modifier
	Annotations []Annotation
	Complexity  Complexity
	Location    SourceLocation
}

// JavaType is one declared type or interface, as the semantic model exposes
// it. Instances are immutable once built (spec.md §3).
type JavaType struct {
	Qualified   string
	Simple      string
	Package     string
	Form        Form
	Modifiers   Modifier
	Supertype   *TypeRef
	Interfaces  []TypeRef
	Annotations []Annotation
	Fields      []Field
	Methods     []Method
	Constructors []Constructor
	Location    *SourceLocation
	Doc         string
}

// IsPublic, IsFinal, IsAbstract are small predicates used throughout
// classification and rule checks; they replace the teacher's
// inheritance-chain-of-AST-adapter-classes idiom with plain predicates over
// a tagged-variant bitset (see SPEC_FULL.md §9).
func (t JavaType) IsPublic() bool   { return t.Modifiers.Has(ModPublic) }
func (t JavaType) IsFinal() bool    { return t.Modifiers.Has(ModFinal) }
func (t JavaType) IsAbstract() bool { return t.Modifiers.Has(ModAbstract) }
func (t JavaType) IsSealed() bool   { return t.Modifiers.Has(ModSealed) }

// HasAnnotation reports whether the type carries an annotation with the
// given qualified name.
func (t JavaType) HasAnnotation(qualified string) bool {
	for _, a := range t.Annotations {
		if a.Qualified == qualified {
			return true
		}
	}
	return false
}

// AllFieldsFinal reports whether the type has at least one field and every
// field is final — the immutability predicate several criteria and the
// value-object audit rule rely on.
func (t JavaType) AllFieldsFinal() bool {
	if len(t.Fields) == 0 {
		return false
	}
	for _, f := range t.Fields {
		if !f.Modifiers.Has(ModFinal) {
			return false
		}
	}
	return true
}
