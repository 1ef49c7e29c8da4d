// Package registry loads and validates module descriptors from a module
// source filesystem.
package registry

import (
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/stackgen/cli/internal/core"
	oerrors "github.com/stackgen/cli/internal/errors"
	"github.com/stackgen/cli/internal/output"
)

// Registry holds all discovered module descriptors. It is an explicit value
// passed into the resolver and generator; there is no ambient shared instance.
type Registry struct {
	source  fs.FS
	modules map[string]*core.Module
	order   []string
}

// New creates a registry over a module source filesystem. Each top-level
// directory containing a module.cue manifest is one module.
func New(source fs.FS) *Registry {
	return &Registry{
		source:  source,
		modules: make(map[string]*core.Module),
	}
}

// Discover loads and validates every module descriptor in the source.
// A malformed source is a fatal configuration error: duplicate names and
// dependency/conflict references to names that do not exist reject the whole
// load, never a partial one.
func (r *Registry) Discover() error {
	entries, err := fs.ReadDir(r.source, ".")
	if err != nil {
		return fmt.Errorf("reading module source: %w", err)
	}

	cuectx := newContext()

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := fs.Stat(r.source, e.Name()+"/"+ManifestFile); err != nil {
			output.Debug("skipping directory without manifest", "dir", e.Name())
			continue
		}

		mod, err := loadModule(cuectx, r.source, e.Name())
		if err != nil {
			return err
		}

		if existing, ok := r.modules[mod.Name()]; ok {
			return oerrors.NewConfigurationError(
				fmt.Sprintf("duplicate module name %q (also declared in %s)", mod.Name(), existing.SourcePath),
				mod.SourcePath,
				"Every module manifest must declare a unique metadata.name.")
		}

		r.modules[mod.Name()] = mod
		r.order = append(r.order, mod.Name())
	}

	if err := r.checkReferences(); err != nil {
		return err
	}

	output.Debug("module source discovered", "modules", len(r.order))
	return nil
}

// checkReferences verifies that every dependency, conflict, and recommends
// entry names a discovered module. A dangling reference is a configuration
// error: it indicates a broken module set, not a bad user selection.
func (r *Registry) checkReferences() error {
	for _, name := range r.order {
		mod := r.modules[name]
		for _, ref := range mod.Dependencies {
			if _, ok := r.modules[ref]; !ok {
				return r.danglingError(mod, "dependencies", ref)
			}
		}
		for _, ref := range mod.Conflicts {
			if _, ok := r.modules[ref]; !ok {
				return r.danglingError(mod, "conflicts", ref)
			}
		}
		for _, ref := range mod.Recommends {
			if _, ok := r.modules[ref]; !ok {
				return r.danglingError(mod, "recommends", ref)
			}
		}
	}
	return nil
}

func (r *Registry) danglingError(mod *core.Module, field, ref string) error {
	return oerrors.NewConfigurationError(
		fmt.Sprintf("module %q references unknown module %q in %s", mod.Name(), ref, field),
		mod.SourcePath,
		fmt.Sprintf("Known modules: %s.", strings.Join(r.order, ", ")))
}

// Get returns a module descriptor by name.
func (r *Registry) Get(name string) (*core.Module, error) {
	mod, ok := r.modules[name]
	if !ok {
		return nil, oerrors.NewNotFoundError(
			fmt.Sprintf("unknown module %q", name), "",
			"Run 'stackgen modules list' to see available modules.")
	}
	return mod, nil
}

// Has reports whether a module with the given name was discovered.
func (r *Registry) Has(name string) bool {
	_, ok := r.modules[name]
	return ok
}

// List returns all discovered modules in discovery order.
func (r *Registry) List() []*core.Module {
	result := make([]*core.Module, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.modules[name])
	}
	return result
}

// ListByCategory returns the modules in a category, in discovery order.
func (r *Registry) ListByCategory(category string) []*core.Module {
	var result []*core.Module
	for _, name := range r.order {
		if r.modules[name].Metadata.Category == category {
			result = append(result, r.modules[name])
		}
	}
	return result
}

// Categories returns the distinct categories of discovered modules, sorted.
func (r *Registry) Categories() []string {
	seen := make(map[string]bool)
	var result []string
	for _, name := range r.order {
		cat := r.modules[name].Metadata.Category
		if cat != "" && !seen[cat] {
			seen[cat] = true
			result = append(result, cat)
		}
	}
	sort.Strings(result)
	return result
}

// Len returns the number of discovered modules.
func (r *Registry) Len() int {
	return len(r.order)
}
