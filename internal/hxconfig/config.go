// Package hxconfig defines the engine's configuration surface (spec.md §6).
// Config values are deep-immutable once validated: Analyze never mutates
// the Config it is given.
package hxconfig

import (
	"os"

	"gopkg.in/yaml.v3"

	"hexaglue/internal/hxerrors"
)

// Config enumerates every option spec.md §6 names.
type Config struct {
	// SourceRoots lists directories containing compilation units. Owned by
	// the external semantic-model provider; the core only checks in Validate
	// that each entry is an existing directory.
	SourceRoots []string `yaml:"source_roots"`

	// BasePackage scopes analysis: only types equal to or nested under it
	// are in scope.
	BasePackage string `yaml:"base_package"`

	// LanguageVersion is recorded in graph metadata, uninterpreted by the
	// core.
	LanguageVersion int `yaml:"language_version"`

	// TolerantResolution is carried in the configuration but not read by the
	// core: the graph builder drops every type reference it cannot resolve
	// to an in-scope type, whatever this is set to, and never returns a
	// ReferenceError for it.
	TolerantResolution bool `yaml:"tolerant_resolution"`

	// ClasspathEntries lists directories/archives; recorded for the
	// external provider, not interpreted by the core.
	ClasspathEntries []string `yaml:"classpath_entries"`

	// IncludeGenerated, when false (the default), excludes types annotated
	// with the canonical generator markers.
	IncludeGenerated bool `yaml:"include_generated"`

	// ComputeDerivedEdges toggles graph builder Pass 3.
	ComputeDerivedEdges bool `yaml:"compute_derived_edges"`

	// EnabledRules is a set of rule ids; empty means all built-in rules run.
	EnabledRules map[string]struct{} `yaml:"enabled_rules"`

	// SeverityOverrides remaps a rule's default severity.
	SeverityOverrides map[string]string `yaml:"severity_overrides"`
}

// Default returns the spec.md-mandated defaults: IncludeGenerated=false,
// ComputeDerivedEdges=true, everything else zero-valued.
func Default() Config {
	return Config{
		ComputeDerivedEdges: true,
		EnabledRules:        map[string]struct{}{},
		SeverityOverrides:   map[string]string{},
	}
}

// Load reads and parses a YAML configuration file, overlaying it on
// Default().
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, hxerrors.Configuration(err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, hxerrors.Configuration(err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save writes cfg as YAML to path.
func (c Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate reports the fatal ConfigurationError conditions spec.md §7
// names: an absent base package, or a source root that does not exist.
func (c Config) Validate() error {
	if c.BasePackage == "" {
		return hxerrors.Configuration(errBasePackageRequired)
	}
	if len(c.SourceRoots) == 0 {
		return hxerrors.Configuration(errSourceRootsRequired)
	}
	for _, root := range c.SourceRoots {
		info, err := os.Stat(root)
		if err != nil {
			return hxerrors.Configuration(err)
		}
		if !info.IsDir() {
			return hxerrors.Configuration(&notADirError{root})
		}
	}
	return nil
}

// RuleEnabled reports whether ruleID should run under this configuration:
// the empty EnabledRules set means every rule runs.
func (c Config) RuleEnabled(ruleID string) bool {
	if len(c.EnabledRules) == 0 {
		return true
	}
	_, ok := c.EnabledRules[ruleID]
	return ok
}

type notADirError struct{ path string }

func (e *notADirError) Error() string { return e.path + " is not a directory" }

var (
	errBasePackageRequired = simpleErr("basePackage is required")
	errSourceRootsRequired = simpleErr("at least one sourceRoot is required")
)

type simpleErr string

func (e simpleErr) Error() string { return string(e) }
