// Package core defines the module descriptor model.
package core

import (
	"fmt"

	oerrors "github.com/stackgen/cli/internal/errors"
)

// MergeStrategy declares how a module's contribution to a file path is
// combined with contributions from earlier modules in the same run.
type MergeStrategy string

const (
	// StrategyOverwrite replaces earlier content entirely. Used for files a
	// module owns exclusively.
	StrategyOverwrite MergeStrategy = "overwrite"

	// StrategyMergeStructured deep-merges JSON/YAML documents by key, later
	// module winning on key collision. Used for manifests and config files.
	StrategyMergeStructured MergeStrategy = "merge-structured"

	// StrategyAppendText appends content after a separating boundary. Used for
	// files accumulating independent blocks (ignore patterns and the like).
	StrategyAppendText MergeStrategy = "append-text"

	// StrategyMergeFailOnConflict deep-merges like merge-structured but fails
	// generation when two modules set the same sub-key to different values.
	StrategyMergeFailOnConflict MergeStrategy = "merge-fail-on-conflict"
)

// IsValid reports whether s is a known merge strategy.
func (s MergeStrategy) IsValid() bool {
	switch s {
	case StrategyOverwrite, StrategyMergeStructured, StrategyAppendText, StrategyMergeFailOnConflict:
		return true
	default:
		return false
	}
}

// ValidStrategies returns all valid merge strategy names.
func ValidStrategies() []string {
	return []string{
		string(StrategyOverwrite),
		string(StrategyMergeStructured),
		string(StrategyAppendText),
		string(StrategyMergeFailOnConflict),
	}
}

// FileContribution is one file a module contributes to a generated project.
// Content is template source text; placeholder substitution happens after all
// modules' contributions to a path have been merged.
type FileContribution struct {
	// Path is the file path relative to the generated project root.
	Path string

	// Content is the raw template text of the contribution.
	Content []byte

	// Strategy is the declared merge strategy for this path.
	Strategy MergeStrategy
}

// ManifestFragment is structured data a module merges into the generated
// package manifest.
type ManifestFragment struct {
	// Dependencies maps dependency names to version ranges.
	Dependencies map[string]string

	// DevDependencies maps development dependency names to version ranges.
	DevDependencies map[string]string

	// Scripts maps script names to commands. Two modules setting the same
	// script to different commands is a generation conflict, never last-wins.
	Scripts map[string]string
}

// IsEmpty reports whether the fragment carries no entries.
func (f *ManifestFragment) IsEmpty() bool {
	if f == nil {
		return true
	}
	return len(f.Dependencies) == 0 && len(f.DevDependencies) == 0 && len(f.Scripts) == 0
}

// ModuleMetadata is the identity block of a module descriptor.
type ModuleMetadata struct {
	// Name is the unique module identifier, stable across versions.
	Name string

	// Category groups modules for display (frontend, ui-library, backend,
	// tooling). Not used by resolution logic.
	Category string

	// Description explains the module's purpose.
	Description string
}

// Module is an immutable module descriptor, loaded once at registry startup.
type Module struct {
	// Metadata is the module identity.
	Metadata ModuleMetadata

	// Dependencies are module names that must also be present.
	Dependencies []string

	// Conflicts are module names that must not be present simultaneously.
	Conflicts []string

	// Recommends are module names auto-included unless explicitly excluded.
	Recommends []string

	// Files are the ordered file contributions this module makes.
	Files []FileContribution

	// Manifest is the optional package manifest fragment.
	Manifest *ManifestFragment

	// SourcePath is where the descriptor was loaded from, for error messages.
	SourcePath string
}

// Name returns the module's unique identifier.
func (m *Module) Name() string {
	return m.Metadata.Name
}

// Validate enforces the descriptor's internal invariants: the module never
// references itself in dependencies or conflicts, dependencies and conflicts
// are disjoint, and every file contribution carries a known merge strategy.
func (m *Module) Validate() error {
	if m.Metadata.Name == "" {
		return oerrors.NewConfigurationError(
			"module descriptor has no name", m.SourcePath,
			"Set metadata.name in the module manifest.")
	}

	deps := make(map[string]bool, len(m.Dependencies))
	for _, d := range m.Dependencies {
		if d == m.Metadata.Name {
			return oerrors.NewConfigurationError(
				fmt.Sprintf("module %q lists itself as a dependency", m.Metadata.Name),
				m.SourcePath, "Remove the self-reference from dependencies.")
		}
		deps[d] = true
	}

	for _, c := range m.Conflicts {
		if c == m.Metadata.Name {
			return oerrors.NewConfigurationError(
				fmt.Sprintf("module %q lists itself as a conflict", m.Metadata.Name),
				m.SourcePath, "Remove the self-reference from conflicts.")
		}
		if deps[c] {
			return oerrors.NewConfigurationError(
				fmt.Sprintf("module %q lists %q as both a dependency and a conflict", m.Metadata.Name, c),
				m.SourcePath, "A module name cannot appear in both dependencies and conflicts.")
		}
	}

	for _, f := range m.Files {
		if !f.Strategy.IsValid() {
			return oerrors.NewConfigurationError(
				fmt.Sprintf("module %q declares unknown merge strategy %q for %s", m.Metadata.Name, f.Strategy, f.Path),
				m.SourcePath,
				fmt.Sprintf("Valid strategies: %v.", ValidStrategies()))
		}
	}

	return nil
}
