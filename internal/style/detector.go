// Package style implements the package-organization-style detector
// (component D): it scans the qualified names of the in-scope type set for
// fixed marker substrings and reports the dominant architectural style with
// a confidence grade.
package style

import (
	"sort"
	"strings"

	"hexaglue/internal/semantic"
)

// Style is the detected package-organization style.
type Style string

const (
	Hexagonal Style = "HEXAGONAL"
	ByLayer   Style = "BY_LAYER"
	ByFeature Style = "BY_FEATURE"
	Flat      Style = "FLAT"
	Unknown   Style = "UNKNOWN"
)

// Confidence grades how decisively the dominant style won.
type Confidence string

const (
	Explicit Confidence = "EXPLICIT"
	High     Confidence = "HIGH"
	Medium   Confidence = "MEDIUM"
	Low      Confidence = "LOW"
)

var hexagonalMarkers = []string{
	".ports.in.", ".ports.out.", ".adapter.", ".adapters.",
	".driving.", ".driven.", ".primary.", ".secondary.", ".hexagonal.",
}

var byLayerMarkers = []string{
	".controller.", ".service.", ".repository.", ".dao.", ".web.", ".persistence.",
}

// Result is the detector's output, attached verbatim into graph metadata.
type Result struct {
	Style          Style
	Confidence     Confidence
	PatternMatches map[string]int // pattern string -> match count, for diagnostics
	BasePackage    string
}

// styleTotals reduces a raw pattern-match tally down to one count per style.
type styleTotals struct {
	hexagonal int
	byLayer   int
	byFeature int
	flat      int
}

// Detect runs the HEXAGONAL and BY_LAYER marker scans plus the FLAT and BY_FEATURE heuristics
// over types, scoped beneath basePackage.
func Detect(types []*semantic.JavaType, basePackage string) Result {
	matches := make(map[string]int)
	totals := styleTotals{}

	packages := make(map[string]bool)
	for _, t := range types {
		bounded := "." + t.Package + "."
		for _, m := range hexagonalMarkers {
			if strings.Contains(bounded, m) {
				matches[m]++
				totals.hexagonal++
			}
		}
		for _, m := range byLayerMarkers {
			if strings.Contains(bounded, m) {
				matches[m]++
				totals.byLayer++
			}
		}
		packages[t.Package] = true
	}

	totals.byFeature = countByFeatureMatches(types, basePackage, matches)

	if len(packages) == 1 {
		totals.flat = len(types)
		matches["<single-package>"] = totals.flat
	}

	style, confidence := decide(totals)
	return Result{Style: style, Confidence: confidence, PatternMatches: matches, BasePackage: basePackage}
}

// countByFeatureMatches counts types living under a second-level module
// segment (relative to basePackage) that itself owns a .domain. or .api.
// subtree — i.e. the segment is used by ≥1 type as a feature slice.
func countByFeatureMatches(types []*semantic.JavaType, basePackage string, matches map[string]int) int {
	prefix := basePackage + "."
	bySegment := make(map[string][]*semantic.JavaType)
	for _, t := range types {
		if !strings.HasPrefix(t.Package+".", prefix) {
			continue
		}
		rest := strings.TrimPrefix(t.Package, prefix)
		if rest == "" {
			continue
		}
		segment := rest
		if i := strings.Index(rest, "."); i >= 0 {
			segment = rest[:i]
		}
		bySegment[segment] = append(bySegment[segment], t)
	}

	total := 0
	for segment, members := range bySegment {
		hasFeatureSubtree := false
		for _, t := range members {
			bounded := "." + t.Package + "."
			if strings.Contains(bounded, ".domain.") || strings.Contains(bounded, ".api.") {
				hasFeatureSubtree = true
				break
			}
		}
		if hasFeatureSubtree && len(members) > 0 {
			matches["feature:"+segment] = len(members)
			total += len(members)
		}
	}
	return total
}

// decide applies the highest-total-wins rule, fixed tie-break order
// HEXAGONAL > BY_FEATURE > BY_LAYER > FLAT, and the ratio-based confidence
// grading of spec §4.D.
func decide(t styleTotals) (Style, Confidence) {
	type candidate struct {
		style Style
		count int
		rank  int // lower wins ties
	}
	candidates := []candidate{
		{Hexagonal, t.hexagonal, 0},
		{ByFeature, t.byFeature, 1},
		{ByLayer, t.byLayer, 2},
		{Flat, t.flat, 3},
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].count != candidates[j].count {
			return candidates[i].count > candidates[j].count
		}
		return candidates[i].rank < candidates[j].rank
	})

	dominant := candidates[0]
	if dominant.count == 0 {
		return Unknown, Low
	}

	runnerUp := 0
	if len(candidates) > 1 {
		runnerUp = candidates[1].count
	}
	if runnerUp == 0 {
		return dominant.style, Explicit
	}

	ratio := float64(dominant.count) / float64(runnerUp)
	switch {
	case ratio >= 3:
		return dominant.style, Explicit
	case ratio >= 2:
		return dominant.style, High
	case ratio >= 1.3:
		return dominant.style, Medium
	default:
		return dominant.style, Low
	}
}
