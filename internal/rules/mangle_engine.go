// Package rules implements the Rule Engine and Audit Rules (component H):
// a set of stateless AuditRules evaluated over the classified application
// graph. Structural rules (entity identity, value-object immutability,
// ports-must-be-interfaces, dependency direction, layering) are plain Go
// predicates over direct edges; only the aggregate-cycle rule, which needs
// a transitive closure over the dependency graph, is compiled into Datalog
// and evaluated by a small embedded Mangle engine.
package rules

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	_ "github.com/google/mangle/builtin"
	mengine "github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	_ "github.com/google/mangle/packages"
	"github.com/google/mangle/parse"
	"github.com/google/mangle/unionfind"
)

// MangleEngine wraps google/mangle for the one rule family that genuinely
// needs fixpoint evaluation: transitive closures over a fixed snapshot of
// facts. Unlike an incremental file-watch service, one audit run loads a
// schema once, inserts every fact derived from the sealed graph once, and
// evaluates once, so there is no per-file replace/remove bookkeeping and
// no persistence layer here.
type MangleEngine struct {
	mu              sync.RWMutex
	store           factstore.ConcurrentFactStore
	programInfo     *analysis.ProgramInfo
	queryContext    *mengine.QueryContext
	predicateIndex  map[string]ast.PredicateSym
	schemaFragments []parse.SourceUnit
	factCount       int
}

// Fact is one ground atom to assert, e.g. Fact{"depends_on", []interface{}{"a", "b"}}.
type Fact struct {
	Predicate string
	Args      []interface{}
}

// String renders f as a Datalog literal, matching the notation schemas use.
func (f Fact) String() string {
	args := make([]string, len(f.Args))
	for i, a := range f.Args {
		switch v := a.(type) {
		case string:
			if strings.HasPrefix(v, "/") {
				args[i] = v
			} else {
				args[i] = fmt.Sprintf("%q", v)
			}
		default:
			args[i] = fmt.Sprintf("%v", v)
		}
	}
	return fmt.Sprintf("%s(%s).", f.Predicate, strings.Join(args, ", "))
}

// NewMangleEngine returns an empty engine; call LoadSchemaString before
// inserting facts.
func NewMangleEngine() *MangleEngine {
	base := factstore.NewSimpleInMemoryStore()
	return &MangleEngine{
		store:          factstore.NewConcurrentFactStore(base),
		predicateIndex: make(map[string]ast.PredicateSym),
	}
}

// LoadSchemaString parses and merges a Datalog schema fragment (Decls plus
// any rules) into the program.
func (e *MangleEngine) LoadSchemaString(schema string) error {
	unit, err := parse.Unit(strings.NewReader(schema))
	if err != nil {
		return fmt.Errorf("parse schema: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.schemaFragments = append(e.schemaFragments, unit)
	return e.rebuildProgramLocked()
}

func (e *MangleEngine) rebuildProgramLocked() error {
	var clauses []ast.Clause
	var decls []ast.Decl
	for _, fragment := range e.schemaFragments {
		clauses = append(clauses, fragment.Clauses...)
		decls = append(decls, fragment.Decls...)
	}

	unit := parse.SourceUnit{Clauses: clauses, Decls: decls}
	programInfo, err := analysis.AnalyzeOneUnit(unit, nil)
	if err != nil {
		return fmt.Errorf("analyze schema: %w", err)
	}

	predicateIndex := make(map[string]ast.PredicateSym, len(programInfo.Decls))
	predToDecl := make(map[ast.PredicateSym]*ast.Decl, len(programInfo.Decls))
	for sym, decl := range programInfo.Decls {
		predicateIndex[sym.Symbol] = sym
		predToDecl[sym] = decl
	}

	predToRules := make(map[ast.PredicateSym][]ast.Clause)
	for _, clause := range programInfo.Rules {
		predToRules[clause.Head.Predicate] = append(predToRules[clause.Head.Predicate], clause)
	}

	e.programInfo = programInfo
	e.predicateIndex = predicateIndex
	e.queryContext = &mengine.QueryContext{
		PredToRules: predToRules,
		PredToDecl:  predToDecl,
		Store:       e.store,
	}
	return nil
}

// AddFacts inserts ground facts without triggering evaluation; call
// Evaluate once every fact for the run has been inserted.
func (e *MangleEngine) AddFacts(facts []Fact) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.programInfo == nil {
		return fmt.Errorf("no schema loaded; call LoadSchemaString first")
	}
	for _, fact := range facts {
		atom, err := e.factToAtomLocked(fact)
		if err != nil {
			return err
		}
		if e.store.Add(atom) {
			e.factCount++
		}
	}
	return nil
}

func (e *MangleEngine) factToAtomLocked(fact Fact) (ast.Atom, error) {
	sym, ok := e.predicateIndex[fact.Predicate]
	if !ok {
		return ast.Atom{}, fmt.Errorf("predicate %s is not declared in schema", fact.Predicate)
	}
	if len(fact.Args) != sym.Arity {
		return ast.Atom{}, fmt.Errorf("predicate %s expects %d args, got %d", fact.Predicate, sym.Arity, len(fact.Args))
	}

	args := make([]ast.BaseTerm, len(fact.Args))
	for i, raw := range fact.Args {
		term, err := termFor(raw)
		if err != nil {
			return ast.Atom{}, fmt.Errorf("predicate %s arg %d: %w", fact.Predicate, i, err)
		}
		args[i] = term
	}
	return ast.Atom{Predicate: sym, Args: args}, nil
}

func termFor(value interface{}) (ast.BaseTerm, error) {
	switch v := value.(type) {
	case string:
		return ast.String(v), nil
	case int:
		return ast.Number(int64(v)), nil
	case bool:
		if v {
			return ast.TrueConstant, nil
		}
		return ast.FalseConstant, nil
	default:
		return nil, fmt.Errorf("unsupported fact argument type %T", value)
	}
}

// Evaluate runs the Datalog program to a fixpoint over every inserted fact.
func (e *MangleEngine) Evaluate() error {
	e.mu.RLock()
	programInfo, store := e.programInfo, e.store
	e.mu.RUnlock()
	if programInfo == nil {
		return fmt.Errorf("no schema loaded; call LoadSchemaString first")
	}
	_, err := mengine.EvalProgramWithStats(programInfo, store)
	return err
}

// Query evaluates a Datalog query atom (e.g. "cycle(X)") and returns the
// bindings for its variables.
func (e *MangleEngine) Query(ctx context.Context, query string) ([]map[string]string, error) {
	shape, err := parseQueryShape(query)
	if err != nil {
		return nil, err
	}

	e.mu.RLock()
	queryContext := e.queryContext
	if queryContext == nil {
		e.mu.RUnlock()
		return nil, fmt.Errorf("no schema loaded; cannot execute query")
	}
	decl, ok := queryContext.PredToDecl[shape.atom.Predicate]
	if !ok {
		e.mu.RUnlock()
		return nil, fmt.Errorf("predicate %s is not declared", shape.atom.Predicate.Symbol)
	}
	if len(decl.Modes()) == 0 {
		e.mu.RUnlock()
		return nil, fmt.Errorf("predicate %s has no modes declared", shape.atom.Predicate.Symbol)
	}
	mode := decl.Modes()[0]
	e.mu.RUnlock()

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}

	var results []map[string]string
	evalErr := queryContext.EvalQuery(shape.atom, mode, unionfind.New(), func(fact ast.Atom) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		row := make(map[string]string, len(shape.variables))
		for _, binding := range shape.variables {
			if binding.Index >= len(fact.Args) {
				continue
			}
			row[binding.Name] = termToString(fact.Args[binding.Index])
		}
		results = append(results, row)
		return nil
	})
	if evalErr != nil {
		return nil, evalErr
	}
	return results, nil
}

func termToString(term ast.BaseTerm) string {
	if c, ok := term.(ast.Constant); ok {
		return c.Symbol
	}
	return term.String()
}

type queryVariable struct {
	Name  string
	Index int
}

type queryShape struct {
	atom      ast.Atom
	variables []queryVariable
}

func parseQueryShape(query string) (*queryShape, error) {
	clean := strings.TrimSpace(query)
	if clean == "" {
		return nil, fmt.Errorf("empty query")
	}
	clean = strings.TrimPrefix(clean, "?")
	clean = strings.TrimSpace(clean)
	clean = strings.TrimSuffix(clean, ".")

	atom, err := parse.Atom(clean)
	if err != nil {
		return nil, fmt.Errorf("parse query %q: %w", query, err)
	}

	var variables []queryVariable
	for idx, arg := range atom.Args {
		if v, ok := arg.(ast.Variable); ok {
			variables = append(variables, queryVariable{Name: v.Symbol, Index: idx})
		}
	}
	return &queryShape{atom: atom, variables: variables}, nil
}
