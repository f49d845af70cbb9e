// Package layer implements the three-pass layer classifier (component I):
// annotation pass, package pass, suffix pass, in that fixed order, each
// itself resolving ties by a fixed category order (presentation →
// application → infrastructure → domain).
package layer

import (
	"strings"

	"hexaglue/internal/semantic"
)

// Layer is the coarse architectural stratum of spec.md §4.I.
type Layer string

const (
	Presentation   Layer = "PRESENTATION"
	Application    Layer = "APPLICATION"
	Domain         Layer = "DOMAIN"
	Infrastructure Layer = "INFRASTRUCTURE"
	Unknown        Layer = "UNKNOWN"
)

// categoryOrder is the fixed tie-break order within a pass.
var categoryOrder = []Layer{Presentation, Application, Infrastructure, Domain}

var annotationMarkers = map[Layer][]string{
	Presentation: {
		"org.springframework.web.bind.annotation.RestController",
		"org.springframework.web.bind.annotation.Controller",
		"org.springframework.stereotype.Controller",
	},
	Application: {
		"org.springframework.stereotype.Service",
		"org.jmolecules.ddd.annotation.Service",
	},
	Infrastructure: {
		"org.springframework.stereotype.Repository",
		"jakarta.persistence.Entity",
		"javax.persistence.Entity",
	},
}

var packageSegments = map[Layer][]string{
	Presentation:   {"web", "controller", "rest", "api", "presentation"},
	Application:    {"application", "service", "usecase", "usecases"},
	Infrastructure: {"infrastructure", "infra", "persistence", "repository", "adapter", "adapters"},
	Domain:         {"domain", "model"},
}

var suffixes = map[Layer][]string{
	Presentation:   {"Controller", "Resolver"},
	Application:    {"Service", "UseCase", "Handler"},
	Infrastructure: {"Repository", "Adapter", "Gateway"},
}

// Classify assigns t's layer using the annotation pass, then the package
// pass, then the suffix pass; the first pass to match wins, and within a
// pass the first matching category (in categoryOrder) wins.
func Classify(t *semantic.JavaType) Layer {
	if l, ok := matchAnnotation(t); ok {
		return l
	}
	if l, ok := matchPackage(t); ok {
		return l
	}
	if l, ok := matchSuffix(t); ok {
		return l
	}
	return Unknown
}

func matchAnnotation(t *semantic.JavaType) (Layer, bool) {
	for _, category := range categoryOrder {
		for _, marker := range annotationMarkers[category] {
			if t.HasAnnotation(marker) {
				return category, true
			}
		}
	}
	return "", false
}

func matchPackage(t *semantic.JavaType) (Layer, bool) {
	bounded := "." + strings.ToLower(t.Package) + "."
	for _, category := range categoryOrder {
		for _, segment := range packageSegments[category] {
			if strings.Contains(bounded, "."+segment+".") {
				return category, true
			}
		}
	}
	return "", false
}

func matchSuffix(t *semantic.JavaType) (Layer, bool) {
	for _, category := range categoryOrder {
		for _, suffix := range suffixes[category] {
			if strings.HasSuffix(t.Simple, suffix) {
				return category, true
			}
		}
	}
	return "", false
}
