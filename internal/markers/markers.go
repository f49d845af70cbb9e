// Package markers lists the canonical annotation-type qualified names the
// domain and port criteria recognize as "explicit" signals (spec.md §4.F:
// "canonical aggregate-root marker", "canonical repository marker", etc).
// They follow the jMolecules DDD/hexagonal annotation library, which the
// criterion named `implements-jmolecules-interface` calls out directly.
package markers

const (
	AggregateRoot = "org.jmolecules.ddd.annotation.AggregateRoot"
	Entity        = "org.jmolecules.ddd.annotation.Entity"
	ValueObject   = "org.jmolecules.ddd.annotation.ValueObject"
	Identity      = "org.jmolecules.ddd.annotation.Identity"
	Factory       = "org.jmolecules.ddd.annotation.Factory"
	Repository    = "org.jmolecules.ddd.annotation.Repository"
	Service       = "org.jmolecules.ddd.annotation.Service"

	DomainEvent  = "org.jmolecules.event.annotation.DomainEvent"
	Externalized = "org.jmolecules.event.annotation.Externalized"

	PrimaryPort   = "org.jmolecules.architecture.hexagonal.PrimaryPort"
	SecondaryPort = "org.jmolecules.architecture.hexagonal.SecondaryPort"
	Port          = "org.jmolecules.architecture.hexagonal.Port"
	Adapter       = "org.jmolecules.architecture.hexagonal.Adapter"
)

// DomainInterfaces maps every jMolecules DDD marker implementable as a Java
// *interface* to the domain kind it implies, for the
// `implements-jmolecules-interface` criterion (spec.md §4.F, priority 100,
// "implements a canonical domain interface").
var DomainInterfaces = map[string]string{
	AggregateRoot: "AGGREGATE_ROOT",
	Entity:        "ENTITY",
	ValueObject:   "VALUE_OBJECT",
	Factory:       "APPLICATION_SERVICE",
}

// CommandHandlerSuffix and EventHandler/Listener suffixes are annotation
// *name* suffixes (matched on the simple name of the annotation type),
// used by the enrichment engine's COMMAND_HANDLER/EVENT_HANDLER labels.
const (
	CommandHandlerSuffix = "CommandHandler"
	EventHandlerSuffix   = "EventHandler"
	EventListenerSuffix  = "EventListener"
)
