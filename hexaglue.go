// Package hexaglue is the single engine entry point (spec.md §6): analyze a
// semantic.Provider's types under a hxconfig.Config and produce the sealed
// application graph, the classified model, the enrichment snapshot, the
// audit report and the diagnostics channel — all in one immutable
// EngineResult.
package hexaglue

import (
	"context"
	"encoding/json"
	"iter"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"hexaglue/internal/diagnostics"
	"hexaglue/internal/domaincriteria"
	"hexaglue/internal/enrich"
	"hexaglue/internal/graph"
	"hexaglue/internal/graph/build"
	"hexaglue/internal/hxconfig"
	"hexaglue/internal/layer"
	"hexaglue/internal/portcriteria"
	"hexaglue/internal/rules"
	"hexaglue/internal/semantic"
)

// EngineResult is spec.md §6's immutable analysis output.
type EngineResult struct {
	Graph          *graph.Graph
	DomainResults  rules.DomainDecisions
	PortResults    rules.PortDecisions
	Layers         map[graph.NodeID]layer.Layer
	Enriched       enrich.EnrichedSnapshot
	Report         rules.Report
	Diagnostics    *diagnostics.Diagnostics
}

// Analyze runs the full pipeline: Graph Builder -> style detection (Pass
// 1.5, inside Build) -> port classification -> domain classification ->
// layer classification -> enrichment -> audit. Stages are strictly
// sequential; independent subjects within the layer-classification stage
// run concurrently (spec.md §5), collected and re-sorted before
// publication.
func Analyze(ctx context.Context, provider semantic.Provider, cfg hxconfig.Config, enrichers ...enrich.Enricher) (EngineResult, error) {
	if err := cfg.Validate(); err != nil {
		return EngineResult{}, err
	}

	diag := diagnostics.NewDiagnostics()
	log := diagnostics.New()
	defer log.Sync()

	filtered := scopedProvider{inner: provider, cfg: cfg}

	g, err := build.Build(ctx, filtered, build.Options{
		BasePackage:         cfg.BasePackage,
		LanguageVersion:     cfg.LanguageVersion,
		ComputeDerivedEdges: cfg.ComputeDerivedEdges,
	})
	if err != nil {
		return EngineResult{}, err
	}

	portDecisions, portErrs := portcriteria.Evaluate(g)
	for _, e := range portErrs {
		diag.Warn(diagnostics.CategoryCriteria, "port criterion error: %v", e)
	}

	domainDecisions, domainErrs := domaincriteria.Evaluate(g, portContextFrom(portDecisions))
	for _, e := range domainErrs {
		diag.Warn(diagnostics.CategoryCriteria, "domain criterion error: %v", e)
	}

	layers, err := classifyLayers(ctx, g)
	if err != nil {
		return EngineResult{}, err
	}

	classification := func(qualified string) (string, bool) {
		id := graph.NodeID{Kind: graph.KindType, Qualified: qualified}
		if d, ok := domainDecisions[id]; ok && d.Winner != nil {
			return string(d.Winner.Kind), true
		}
		if d, ok := portDecisions[id]; ok && d.Winner != nil {
			return string(d.Winner.Kind), true
		}
		return "", false
	}

	registry := enrich.NewRegistry(enrichers...)
	snapshot := registry.Run(enrich.EnrichmentContext{Graph: g, Classification: classification}, diag)

	engine := rules.NewEngine(rules.BuiltinRules())
	report := engine.Run(ctx, rules.AuditContext{
		Graph:      g,
		Domain:     domainDecisions,
		Ports:      portDecisions,
		Layers:     layers,
		Enrichment: snapshot,
	}, cfg, diag)

	log.For(diagnostics.CategoryEngine).Info("analysis complete",
		zap.String("status", string(report.Status)),
		zap.Int("violations", len(report.Violations)))

	return EngineResult{
		Graph:         g,
		DomainResults: domainDecisions,
		PortResults:   portDecisions,
		Layers:        layers,
		Enriched:      snapshot,
		Report:        report,
		Diagnostics:   diag,
	}, nil
}

// scopedProvider narrows an external Provider to the configured base
// package and generated-code policy, per spec.md §4.A's contract.
type scopedProvider struct {
	inner semantic.Provider
	cfg   hxconfig.Config
}

func (s scopedProvider) Types(ctx context.Context) (iter.Seq[*semantic.JavaType], error) {
	seq, err := s.inner.Types(ctx)
	if err != nil {
		return nil, err
	}
	return func(yield func(*semantic.JavaType) bool) {
		for t := range seq {
			if !semantic.InScope(t.Qualified, s.cfg.BasePackage) {
				continue
			}
			if !s.cfg.IncludeGenerated && semantic.IsGenerated(t) {
				continue
			}
			if !yield(t) {
				return
			}
		}
	}, nil
}

func portContextFrom(decisions rules.PortDecisions) domaincriteria.PortContext {
	ctx := domaincriteria.PortContext{
		DrivingPorts: map[graph.NodeID]bool{},
		DrivenPorts:  map[graph.NodeID]bool{},
		RepositoryOf: map[graph.NodeID]bool{},
	}
	for id, d := range decisions {
		if d.Winner == nil {
			continue
		}
		switch d.Winner.Kind {
		case portcriteria.UseCase, portcriteria.Command, portcriteria.Query:
			ctx.DrivingPorts[id] = true
		case portcriteria.Repository, portcriteria.Gateway, portcriteria.Generic:
			ctx.DrivenPorts[id] = true
		}
		if d.Winner.Kind == portcriteria.Repository {
			ctx.RepositoryOf[id] = true
		}
	}
	return ctx
}

// classifyLayers runs layer.Classify over every type concurrently
// (spec.md §5: independent subjects within a stage may run in parallel
// worker threads). Each worker writes its own index of a pre-sized slice,
// which is turned into the returned map after all workers finish, so no
// further re-sorting is needed to be deterministic.
func classifyLayers(ctx context.Context, g *graph.Graph) (map[graph.NodeID]layer.Layer, error) {
	ids := g.Types()
	results := make([]layer.Layer, len(ids))

	eg, _ := errgroup.WithContext(ctx)
	for i, id := range ids {
		i, id := i, id
		eg.Go(func() error {
			t, ok := g.Type(id)
			if !ok {
				return nil
			}
			results[i] = layer.Classify(t)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	out := make(map[graph.NodeID]layer.Layer, len(ids))
	for i, id := range ids {
		out[id] = results[i]
	}
	return out, nil
}

// ReportJSON renders the audit report in the spec.md §6 JSON layout.
func (r EngineResult) ReportJSON() ([]byte, error) {
	type location struct {
		File   string `json:"file"`
		Line   int    `json:"line"`
		Column int    `json:"column"`
	}
	type violation struct {
		ID       string   `json:"id"`
		Severity string   `json:"severity"`
		Message  string   `json:"message"`
		Location location `json:"location"`
	}
	out := struct {
		Status     string      `json:"status"`
		Violations []violation `json:"violations"`
		KPIs       rules.KPIs  `json:"kpis"`
	}{
		Status: string(r.Report.Status),
		KPIs:   r.Report.KPIs,
	}
	for _, v := range r.Report.Violations {
		out.Violations = append(out.Violations, violation{
			ID:       v.RuleID,
			Severity: string(v.Severity),
			Message:  v.Message,
			Location: location{File: v.Location.File, Line: v.Location.Line, Column: v.Location.Column},
		})
	}
	return json.Marshal(out)
}

// SnapshotJSON renders the classification + enrichment snapshot in the
// spec.md §6 JSON layout.
func (r EngineResult) SnapshotJSON() ([]byte, error) {
	type classification struct {
		Qualified string `json:"qualified"`
		Kind      string `json:"kind"`
		Layer     string `json:"layer"`
	}
	var classifications []classification
	for id, d := range r.DomainResults {
		if d.Winner == nil {
			continue
		}
		classifications = append(classifications, classification{
			Qualified: id.Qualified,
			Kind:      string(d.Winner.Kind),
			Layer:     string(r.Layers[id]),
		})
	}
	for id, d := range r.PortResults {
		if d.Winner == nil {
			continue
		}
		classifications = append(classifications, classification{
			Qualified: id.Qualified,
			Kind:      string(d.Winner.Kind),
			Layer:     string(r.Layers[id]),
		})
	}
	sort.Slice(classifications, func(i, j int) bool {
		return classifications[i].Qualified < classifications[j].Qualified
	})

	out := struct {
		Classifications []classification           `json:"classifications"`
		Labels          map[string][]string        `json:"labels"`
		Properties      map[string]map[string]any  `json:"properties"`
	}{
		Classifications: classifications,
		Labels:          r.Enriched.Labels,
		Properties:      r.Enriched.Properties,
	}
	return json.Marshal(out)
}

// ExitCode maps the result to spec.md §6's CLI exit-code convention: 0
// PASSED, 1 FAILED. A fatal error (returned from Analyze itself) maps to 2
// at the caller, since there is no EngineResult to ask.
func (r EngineResult) ExitCode() int {
	if r.Report.Status == rules.Passed {
		return 0
	}
	return 1
}
