// Package resolver expands, validates, and orders module selections.
package resolver

import (
	"fmt"
	"strings"

	"github.com/stackgen/cli/internal/core"
	oerrors "github.com/stackgen/cli/internal/errors"
	"github.com/stackgen/cli/internal/output"
	"github.com/stackgen/cli/internal/registry"
)

// Options controls resolution behavior.
type Options struct {
	// AutoResolve pulls in missing dependencies (and recommendations)
	// recursively. When off, a missing dependency is an error.
	AutoResolve bool

	// AllowConflicts downgrades declared conflicts from errors to warnings.
	AllowConflicts bool

	// Exclude names modules that must not be auto-included via recommends.
	Exclude []string
}

// ConflictPair names two modules that declare each other incompatible.
type ConflictPair struct {
	A string
	B string
}

// Result is the outcome of a resolution. Either Modules is a complete,
// conflict-free list in valid topological order (every module's dependencies
// at a lower index), or Errors is non-empty and Modules is nil. All problems
// found are reported together, never just the first.
type Result struct {
	// Modules is the resolved list in application order.
	Modules []*core.Module

	// Conflicts lists conflicting pairs that were permitted via AllowConflicts.
	Conflicts []ConflictPair

	// Errors collects every resolution problem found.
	Errors []error
}

// OK reports whether resolution succeeded.
func (r *Result) OK() bool {
	return len(r.Errors) == 0
}

// Names returns the resolved module names in order.
func (r *Result) Names() []string {
	names := make([]string, len(r.Modules))
	for i, m := range r.Modules {
		names[i] = m.Name()
	}
	return names
}

// Resolve turns a requested module name list into a complete, safe, ordered
// module list. Requesting zero modules is a valid resolution producing an
// empty list. Requesting an unknown name is always an error.
func Resolve(reg *registry.Registry, requested []string, opts Options) *Result {
	result := &Result{}

	selected, order := expand(reg, requested, opts, result)
	if !result.OK() {
		result.Modules = nil
		return result
	}

	detectConflicts(selected, order, opts, result)

	ordered := sortTopological(selected, order, result)
	if !result.OK() {
		result.Modules = nil
		return result
	}

	result.Modules = ordered
	output.Debug("resolution complete",
		"requested", len(requested),
		"resolved", len(ordered),
	)
	return result
}

// expand grows the requested set to fixpoint. Modules keep the order they
// were first added: requested modules in caller-given order, then discovered
// dependencies in discovery order. That first-added order is the tie-break
// for the final topological sort, which makes resolution deterministic.
func expand(reg *registry.Registry, requested []string, opts Options, result *Result) (map[string]*core.Module, []string) {
	excluded := make(map[string]bool, len(opts.Exclude))
	for _, name := range opts.Exclude {
		excluded[name] = true
	}

	selected := make(map[string]*core.Module)
	var order []string

	queue := make([]string, 0, len(requested))
	for _, name := range requested {
		mod, err := reg.Get(name)
		if err != nil {
			result.Errors = append(result.Errors,
				oerrors.Wrap(oerrors.ErrResolution, fmt.Sprintf("unknown module %q", name)))
			continue
		}
		if _, ok := selected[name]; ok {
			continue
		}
		selected[name] = mod
		order = append(order, name)
		queue = append(queue, name)
	}

	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		mod := selected[name]

		for _, dep := range mod.Dependencies {
			if _, ok := selected[dep]; ok {
				continue
			}
			if !opts.AutoResolve {
				result.Errors = append(result.Errors,
					oerrors.Wrap(oerrors.ErrResolution,
						fmt.Sprintf("module %q requires %q, which is not selected", name, dep)))
				continue
			}
			depMod, err := reg.Get(dep)
			if err != nil {
				// Registry discovery rejects dangling references, so this
				// only happens with a registry bypassing Discover.
				result.Errors = append(result.Errors,
					oerrors.Wrap(oerrors.ErrResolution, fmt.Sprintf("unknown module %q", dep)))
				continue
			}
			selected[dep] = depMod
			order = append(order, dep)
			queue = append(queue, dep)
			output.Debug("auto-resolved dependency", "module", name, "dependency", dep)
		}

		if !opts.AutoResolve {
			continue
		}
		for _, rec := range mod.Recommends {
			if excluded[rec] {
				output.Debug("skipping excluded recommendation", "module", name, "recommends", rec)
				continue
			}
			if _, ok := selected[rec]; ok {
				continue
			}
			recMod, err := reg.Get(rec)
			if err != nil {
				result.Errors = append(result.Errors,
					oerrors.Wrap(oerrors.ErrResolution, fmt.Sprintf("unknown module %q", rec)))
				continue
			}
			selected[rec] = recMod
			order = append(order, rec)
			queue = append(queue, rec)
			output.Debug("auto-included recommendation", "module", name, "recommends", rec)
		}
	}

	return selected, order
}

// detectConflicts records an error (or, with AllowConflicts, a warning) for
// every pair in the final set where either module declares the other.
func detectConflicts(selected map[string]*core.Module, order []string, opts Options, result *Result) {
	for i, a := range order {
		for _, b := range order[i+1:] {
			if !declaresConflict(selected[a], b) && !declaresConflict(selected[b], a) {
				continue
			}
			if opts.AllowConflicts {
				result.Conflicts = append(result.Conflicts, ConflictPair{A: a, B: b})
				output.Warn("allowing conflicting modules", "a", a, "b", b)
				continue
			}
			result.Errors = append(result.Errors,
				oerrors.Wrap(oerrors.ErrResolution,
					fmt.Sprintf("modules %q and %q conflict with each other", a, b)))
		}
	}
}

func declaresConflict(mod *core.Module, other string) bool {
	for _, c := range mod.Conflicts {
		if c == other {
			return true
		}
	}
	return false
}

// sortTopological orders the selected modules so every module's dependencies
// appear earlier. Kahn's algorithm; among modules with no remaining ordering
// constraint the first-added order wins, so resolution is reproducible. A
// cycle fails resolution naming the cycle's members, never broken silently.
func sortTopological(selected map[string]*core.Module, order []string, result *Result) []*core.Module {
	// Remaining unsatisfied dependency count per module, restricted to the
	// selected set (missing deps were already reported during expansion).
	remaining := make(map[string]int, len(order))
	dependents := make(map[string][]string, len(order))
	for _, name := range order {
		for _, dep := range selected[name].Dependencies {
			if _, ok := selected[dep]; !ok {
				continue
			}
			remaining[name]++
			dependents[dep] = append(dependents[dep], name)
		}
	}

	ordered := make([]*core.Module, 0, len(order))
	placed := make(map[string]bool, len(order))

	for len(ordered) < len(order) {
		// First-added module with no unsatisfied dependencies.
		next := ""
		for _, name := range order {
			if !placed[name] && remaining[name] == 0 {
				next = name
				break
			}
		}
		if next == "" {
			cycle := findCycle(selected, order, placed)
			result.Errors = append(result.Errors,
				oerrors.Wrap(oerrors.ErrResolution,
					fmt.Sprintf("cyclic dependency: %s", strings.Join(cycle, " -> "))))
			return nil
		}

		placed[next] = true
		ordered = append(ordered, selected[next])
		for _, dependent := range dependents[next] {
			remaining[dependent]--
		}
	}

	return ordered
}

// findCycle walks dependency edges among the unplaced modules until a module
// repeats, then returns the cycle's members in walk order, closed on the
// first member.
func findCycle(selected map[string]*core.Module, order []string, placed map[string]bool) []string {
	start := ""
	for _, name := range order {
		if !placed[name] {
			start = name
			break
		}
	}

	visited := make(map[string]int)
	var path []string
	current := start
	for {
		if at, seen := visited[current]; seen {
			cycle := append([]string{}, path[at:]...)
			return append(cycle, current)
		}
		visited[current] = len(path)
		path = append(path, current)

		// Every unplaced module has at least one unsatisfied selected
		// dependency, so the walk always continues until it closes.
		next := ""
		for _, dep := range selected[current].Dependencies {
			if _, ok := selected[dep]; ok && !placed[dep] {
				next = dep
				break
			}
		}
		if next == "" {
			return path
		}
		current = next
	}
}
