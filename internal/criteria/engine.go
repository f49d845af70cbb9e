// Package criteria implements the generic classification engine (component
// E): pluggable criteria evaluate a subject and contribute a candidate
// classification; a decision policy picks a deterministic winner and
// surfaces conflicts.
package criteria

import (
	"fmt"
	"sort"

	"hexaglue/internal/graph"
	"hexaglue/internal/hxerrors"
)

// Confidence is the ordinal enum EXPLICIT > HIGH > MEDIUM > LOW.
type Confidence string

const (
	Explicit Confidence = "EXPLICIT"
	High     Confidence = "HIGH"
	Medium   Confidence = "MEDIUM"
	Low      Confidence = "LOW"
)

// Rank returns confidenceRank(c) per spec §4.E: EXPLICIT=3, HIGH=2, MEDIUM=1, LOW=0.
func (c Confidence) Rank() int {
	switch c {
	case Explicit:
		return 3
	case High:
		return 2
	case Medium:
		return 1
	default:
		return 0
	}
}

// EvidenceType tags the kind of reasoning behind a match.
type EvidenceType string

const (
	EvidenceAnnotation  EvidenceType = "ANNOTATION"
	EvidenceStructure   EvidenceType = "STRUCTURE"
	EvidenceNaming      EvidenceType = "NAMING"
	EvidenceDependency  EvidenceType = "DEPENDENCY"
	EvidenceInheritance EvidenceType = "INHERITANCE"
)

// Evidence documents why a criterion matched. It is informational only —
// never consulted by the decision policy.
type Evidence struct {
	Type        EvidenceType
	Description string
	References  []string
}

// MatchResult is what a criterion returns when it matches.
type MatchResult struct {
	Confidence    Confidence
	Justification string
	Evidence      []Evidence
	Metadata      map[string]any
}

// GraphQuery is the read-only handle criteria receive alongside a subject:
// precomputed graph accessors, never a mutation surface.
type GraphQuery = *graph.Graph

// Criteria is a single classification rule over subject kind K.
type Criteria[K comparable] struct {
	Name       string
	Priority   int
	TargetKind K
	Match      func(subject graph.NodeID, q GraphQuery) (*MatchResult, error)
}

// Contribution is one criterion's vote on a subject.
type Contribution[K comparable] struct {
	CriteriaName  string
	Priority      int
	Kind          K
	Confidence    Confidence
	Justification string
	Evidence      []Evidence
	Metadata      map[string]any
}

// ConflictSeverity mirrors spec §3's Conflict.severity enum.
type ConflictSeverity string

const (
	SeverityWarning ConflictSeverity = "WARNING"
	SeverityError   ConflictSeverity = "ERROR"
)

// Conflict is an also-ran contribution recorded alongside a decision.
type Conflict[K comparable] struct {
	Kind          K
	CriteriaName  string
	Confidence    Confidence
	Priority      int
	Justification string
	Severity      ConflictSeverity
}

// Decision is the engine's output for one subject.
type Decision[K comparable] struct {
	Winner           *Contribution[K]
	Conflicts        []Conflict[K]
	IncompatibleFlag bool
}

// Unclassified reports whether the decision carries no winner and no conflicts.
func (d Decision[K]) Unclassified() bool {
	return d.Winner == nil && len(d.Conflicts) == 0
}

// CompatibilityPolicy answers whether two kinds may coexist as advisory
// (rather than blocking) conflicts.
type CompatibilityPolicy[K comparable] interface {
	AreCompatible(a, b K) bool
}

// CompatibilityFunc adapts a plain function to CompatibilityPolicy.
type CompatibilityFunc[K comparable] func(a, b K) bool

func (f CompatibilityFunc[K]) AreCompatible(a, b K) bool { return f(a, b) }

// AllIncompatible is the port-kind default: every distinct pair is incompatible.
func AllIncompatible[K comparable]() CompatibilityPolicy[K] {
	return CompatibilityFunc[K](func(a, b K) bool { return a == b })
}

// DecisionPolicy consumes the contributions gathered for one subject and
// decides a winner, conflicts and an incompatibility flag. Swapping the
// policy lets a consumer replace the default tie-break without touching
// the engine's evaluation loop.
type DecisionPolicy[K comparable] interface {
	Decide(contributions []Contribution[K]) Decision[K]
}

// DefaultDecisionPolicy implements the deterministic tie-break of spec §4.E.
// The head contribution loses (CONFLICT, no winner) only when a contribution
// of an incompatible kind has equal or higher priority; lower-priority
// contributions of other kinds are kept as advisory conflicts.
type DefaultDecisionPolicy[K comparable] struct {
	Compat CompatibilityPolicy[K]
}

func (p DefaultDecisionPolicy[K]) Decide(contributions []Contribution[K]) Decision[K] {
	return decide(contributions, p.Compat)
}

// Engine evaluates a set of criteria against subjects using a DecisionPolicy.
type Engine[K comparable] struct {
	criteria []Criteria[K]
	policy   DecisionPolicy[K]
}

// NewEngine builds an Engine from criteria (sorted by name for
// deterministic diagnostics ordering) and a compatibility policy, wrapped
// in the DefaultDecisionPolicy. Use NewEngineWithPolicy to plug in a
// different DecisionPolicy.
func NewEngine[K comparable](criteria []Criteria[K], compat CompatibilityPolicy[K]) *Engine[K] {
	return NewEngineWithPolicy(criteria, DefaultDecisionPolicy[K]{Compat: compat})
}

// NewEngineWithPolicy builds an Engine with an explicit DecisionPolicy.
func NewEngineWithPolicy[K comparable](criteria []Criteria[K], policy DecisionPolicy[K]) *Engine[K] {
	cp := append([]Criteria[K](nil), criteria...)
	sort.SliceStable(cp, func(i, j int) bool { return cp[i].Name < cp[j].Name })
	return &Engine[K]{criteria: cp, policy: policy}
}

// Evaluate runs every criterion against subject, collecting contributions.
// A criterion that errors degrades gracefully: its contribution is
// discarded and the error is returned wrapped as hxerrors.Criterion so the
// caller can log it as a diagnostic and continue with the rest.
func (e *Engine[K]) Evaluate(subject graph.NodeID, q GraphQuery) ([]Contribution[K], []error) {
	var contributions []Contribution[K]
	var errs []error
	for _, c := range e.criteria {
		result, err := safeMatch(c, subject, q)
		if err != nil {
			errs = append(errs, hxerrors.Criterion(c.Name, err))
			continue
		}
		if result == nil {
			continue
		}
		contributions = append(contributions, Contribution[K]{
			CriteriaName:  c.Name,
			Priority:      c.Priority,
			Kind:          c.TargetKind,
			Confidence:    result.Confidence,
			Justification: result.Justification,
			Evidence:      result.Evidence,
			Metadata:      result.Metadata,
		})
	}
	return contributions, errs
}

func safeMatch[K comparable](c Criteria[K], subject graph.NodeID, q GraphQuery) (result *MatchResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("criterion %s panicked: %v", c.Name, r)
		}
	}()
	return c.Match(subject, q)
}

// Decide applies the engine's DecisionPolicy to a set of contributions
// already gathered for one subject.
func (e *Engine[K]) Decide(contributions []Contribution[K]) Decision[K] {
	return e.policy.Decide(contributions)
}

func decide[K comparable](contributions []Contribution[K], compat CompatibilityPolicy[K]) Decision[K] {
	if len(contributions) == 0 {
		return Decision[K]{}
	}

	sorted := append([]Contribution[K](nil), contributions...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if a.Confidence.Rank() != b.Confidence.Rank() {
			return a.Confidence.Rank() > b.Confidence.Rank()
		}
		return a.CriteriaName < b.CriteriaName
	})

	head := sorted[0]
	var conflicts []Conflict[K]
	incompatible := false
	for _, c := range sorted[1:] {
		if c.Kind == head.Kind {
			continue
		}
		compatible := compat != nil && compat.AreCompatible(head.Kind, c.Kind)
		if !compatible && c.Priority >= head.Priority {
			incompatible = true
		}
		conflicts = append(conflicts, Conflict[K]{
			Kind:          c.Kind,
			CriteriaName:  c.CriteriaName,
			Confidence:    c.Confidence,
			Priority:      c.Priority,
			Justification: c.Justification,
			Severity:      SeverityWarning,
		})
	}

	if incompatible {
		return Decision[K]{Conflicts: conflicts, IncompatibleFlag: true}
	}

	winner := head
	return Decision[K]{Winner: &winner, Conflicts: conflicts}
}
