// Package enrich implements the Enrichment Engine (component G): a
// built-in behavioral enricher runs first, then discovered external
// enrichers contribute labels and properties under fixed merge rules.
package enrich

import (
	"strings"

	"hexaglue/internal/graph"
	"hexaglue/internal/markers"
	"hexaglue/internal/semantic"
)

// Label is a behavioral annotation attached to a type or member.
type Label string

const (
	FactoryMethod      Label = "FACTORY_METHOD"
	InvariantValidator Label = "INVARIANT_VALIDATOR"
	CollectionManager  Label = "COLLECTION_MANAGER"
	LifecycleMethod    Label = "LIFECYCLE_METHOD"
	Getter             Label = "GETTER"
	Setter             Label = "SETTER"
	CommandHandler     Label = "COMMAND_HANDLER"
	EventHandler       Label = "EVENT_HANDLER"
	ImmutableType      Label = "IMMUTABLE_TYPE"
	SideEffectFree     Label = "SIDE_EFFECT_FREE"
	EventPublisher     Label = "EVENT_PUBLISHER"
)

var invariantPrefixes = []string{"validate", "check", "ensure", "verify", "assert"}
var collectionPrefixes = []string{"add", "remove", "delete", "clear"}
var lifecycleNames = map[string]bool{
	"activate": true, "deactivate": true, "enable": true, "disable": true,
	"cancel": true, "complete": true, "submit": true, "approve": true, "reject": true,
}

func hasAnyPrefix(name string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

func annotationSuffix(anns []semantic.Annotation, suffix string) bool {
	for _, a := range anns {
		simple := a.Qualified
		if i := strings.LastIndex(simple, "."); i >= 0 {
			simple = simple[i+1:]
		}
		if strings.HasSuffix(simple, suffix) {
			return true
		}
	}
	return false
}

func isVoidOrBoolean(ref semantic.TypeRef) bool {
	return ref.Qualified == "void" || ref.Qualified == "boolean" || ref.Qualified == "java.lang.Boolean"
}

func methodLabels(t *semantic.JavaType, m semantic.Method) map[Label]bool {
	labels := map[Label]bool{}

	if m.Modifiers.Has(semantic.ModStatic) && m.ReturnType.Qualified == t.Qualified {
		labels[FactoryMethod] = true
	}
	if hasAnyPrefix(m.Name, invariantPrefixes) && isVoidOrBoolean(m.ReturnType) {
		labels[InvariantValidator] = true
	}
	if hasAnyPrefix(m.Name, collectionPrefixes) && len(m.Parameters) >= 1 {
		labels[CollectionManager] = true
	}
	if lifecycleNames[m.Name] {
		labels[LifecycleMethod] = true
	}
	if (strings.HasPrefix(m.Name, "get") || strings.HasPrefix(m.Name, "is")) && len(m.Parameters) == 0 && !m.IsVoid() {
		labels[Getter] = true
	}
	if strings.HasPrefix(m.Name, "set") && len(m.Parameters) == 1 && m.IsVoid() {
		labels[Setter] = true
	}
	if annotationSuffix(m.Annotations, markers.CommandHandlerSuffix) || strings.HasPrefix(m.Name, "handle") {
		labels[CommandHandler] = true
	}
	if annotationSuffix(m.Annotations, markers.EventHandlerSuffix) || annotationSuffix(m.Annotations, markers.EventListenerSuffix) {
		labels[EventHandler] = true
	}
	return labels
}

func typeLabels(t *semantic.JavaType) map[Label]bool {
	labels := map[Label]bool{}
	immutable := t.AllFieldsFinal()
	if immutable {
		labels[ImmutableType] = true
	}
	if t.Form == semantic.FormRecord || immutable {
		labels[SideEffectFree] = true
	}
	for _, m := range t.Methods {
		if strings.Contains(m.ReturnType.Qualified, "Event") {
			labels[EventPublisher] = true
			break
		}
	}
	return labels
}

// Builtin runs the single built-in behavioral enricher over every type and
// method in g, keyed by NodeID. Fields and constructors get no labels.
func Builtin(g *graph.Graph) map[graph.NodeID]map[Label]bool {
	out := map[graph.NodeID]map[Label]bool{}
	for _, typeID := range g.Types() {
		t, ok := g.Type(typeID)
		if !ok {
			continue
		}
		if labels := typeLabels(t); len(labels) > 0 {
			out[typeID] = labels
		}
		for _, methodID := range g.MethodsOf(typeID) {
			rec, ok := g.Member(methodID)
			if !ok || rec.Method == nil {
				continue
			}
			if labels := methodLabels(t, *rec.Method); len(labels) > 0 {
				out[methodID] = labels
			}
		}
	}
	return out
}
