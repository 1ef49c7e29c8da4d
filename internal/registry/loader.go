package registry

import (
	"fmt"
	"io/fs"
	"path"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/stackgen/cli/internal/core"
	oerrors "github.com/stackgen/cli/internal/errors"
	"github.com/stackgen/cli/internal/output"
)

// ManifestFile is the manifest filename expected in every module directory.
const ManifestFile = "module.cue"

// filesDir is the subdirectory holding a module's file-contribution tree,
// mirroring the target project's relative paths.
const filesDir = "files"

// loadModule constructs a *core.Module from one module directory in the
// source filesystem. The manifest is compiled as CUE and all fields are
// extracted from the evaluated value via LookupPath; the files/ tree is read
// in lexical walk order so contribution order is stable across runs.
func loadModule(cuectx *cue.Context, source fs.FS, dir string) (*core.Module, error) {
	manifestPath := path.Join(dir, ManifestFile)

	content, err := fs.ReadFile(source, manifestPath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", manifestPath, err)
	}

	v := cuectx.CompileBytes(content, cue.Filename(manifestPath))
	if err := v.Err(); err != nil {
		return nil, oerrors.NewConfigurationError(
			fmt.Sprintf("compiling module manifest: %v", err),
			manifestPath, "Fix the CUE syntax in the module manifest.")
	}

	mod := &core.Module{SourcePath: manifestPath}
	extractMetadata(v, &mod.Metadata)

	mod.Dependencies, err = stringList(v, "dependencies")
	if err != nil {
		return nil, manifestFieldError(manifestPath, "dependencies", err)
	}
	mod.Conflicts, err = stringList(v, "conflicts")
	if err != nil {
		return nil, manifestFieldError(manifestPath, "conflicts", err)
	}
	mod.Recommends, err = stringList(v, "recommends")
	if err != nil {
		return nil, manifestFieldError(manifestPath, "recommends", err)
	}

	strategies, err := stringMap(v, "files")
	if err != nil {
		return nil, manifestFieldError(manifestPath, "files", err)
	}

	mod.Manifest, err = extractManifestFragment(v, manifestPath)
	if err != nil {
		return nil, err
	}

	mod.Files, err = loadContributions(source, dir, strategies)
	if err != nil {
		return nil, err
	}

	if err := mod.Validate(); err != nil {
		return nil, err
	}

	output.Debug("loaded module",
		"name", mod.Metadata.Name,
		"category", mod.Metadata.Category,
		"dependencies", len(mod.Dependencies),
		"files", len(mod.Files),
	)

	return mod, nil
}

// loadContributions reads the module's files/ tree. Every file becomes a
// contribution; its strategy comes from the manifest's files: map, defaulting
// to overwrite for unlisted paths.
func loadContributions(source fs.FS, dir string, strategies map[string]string) ([]core.FileContribution, error) {
	root := path.Join(dir, filesDir)

	if _, err := fs.Stat(source, root); err != nil {
		// A module without file contributions is legal: it may exist purely
		// for its manifest fragment or to group dependencies.
		return nil, nil
	}

	declared := make(map[string]bool, len(strategies))
	for p := range strategies {
		declared[p] = true
	}

	var files []core.FileContribution
	err := fs.WalkDir(source, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel := p[len(root)+1:]

		content, err := fs.ReadFile(source, p)
		if err != nil {
			return fmt.Errorf("reading %s: %w", p, err)
		}

		strategy := core.StrategyOverwrite
		if s, ok := strategies[rel]; ok {
			strategy = core.MergeStrategy(s)
			delete(declared, rel)
		}

		files = append(files, core.FileContribution{
			Path:     rel,
			Content:  content,
			Strategy: strategy,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}

	// A strategy declared for a path that has no file is a broken manifest,
	// not something to ignore silently.
	if len(declared) > 0 {
		missing := make([]string, 0, len(declared))
		for p := range declared {
			missing = append(missing, p)
		}
		sort.Strings(missing)
		return nil, oerrors.NewConfigurationError(
			fmt.Sprintf("files: declares strategies for paths with no contribution: %v", missing),
			path.Join(dir, ManifestFile),
			"Add the files under files/ or remove the stale entries.")
	}

	return files, nil
}

// extractMetadata extracts the scalar metadata fields from the CUE-evaluated
// manifest value into the provided ModuleMetadata struct.
func extractMetadata(v cue.Value, meta *core.ModuleMetadata) {
	if f := v.LookupPath(cue.ParsePath("metadata.name")); f.Exists() {
		if str, err := f.String(); err == nil {
			meta.Name = str
		}
	}

	if f := v.LookupPath(cue.ParsePath("metadata.category")); f.Exists() {
		if str, err := f.String(); err == nil {
			meta.Category = str
		}
	}

	if f := v.LookupPath(cue.ParsePath("metadata.description")); f.Exists() {
		if str, err := f.String(); err == nil {
			meta.Description = str
		}
	}
}

// extractManifestFragment extracts the optional manifest: block.
func extractManifestFragment(v cue.Value, manifestPath string) (*core.ManifestFragment, error) {
	block := v.LookupPath(cue.ParsePath("manifest"))
	if !block.Exists() {
		return nil, nil
	}

	frag := &core.ManifestFragment{}
	var err error

	frag.Dependencies, err = stringMap(block, "dependencies")
	if err != nil {
		return nil, manifestFieldError(manifestPath, "manifest.dependencies", err)
	}
	frag.DevDependencies, err = stringMap(block, "devDependencies")
	if err != nil {
		return nil, manifestFieldError(manifestPath, "manifest.devDependencies", err)
	}
	frag.Scripts, err = stringMap(block, "scripts")
	if err != nil {
		return nil, manifestFieldError(manifestPath, "manifest.scripts", err)
	}

	if frag.IsEmpty() {
		return nil, nil
	}
	return frag, nil
}

// stringList extracts an optional list-of-strings field.
func stringList(v cue.Value, field string) ([]string, error) {
	f := v.LookupPath(cue.ParsePath(field))
	if !f.Exists() {
		return nil, nil
	}

	iter, err := f.List()
	if err != nil {
		return nil, fmt.Errorf("not a list: %w", err)
	}

	var result []string
	for iter.Next() {
		str, err := iter.Value().String()
		if err != nil {
			return nil, fmt.Errorf("not a string element: %w", err)
		}
		result = append(result, str)
	}
	return result, nil
}

// stringMap extracts an optional struct field as a string-to-string map.
func stringMap(v cue.Value, field string) (map[string]string, error) {
	f := v.LookupPath(cue.ParsePath(field))
	if !f.Exists() {
		return nil, nil
	}

	iter, err := f.Fields()
	if err != nil {
		return nil, fmt.Errorf("not a struct: %w", err)
	}

	result := make(map[string]string)
	for iter.Next() {
		str, err := iter.Value().String()
		if err != nil {
			return nil, fmt.Errorf("field %s: not a string value: %w", iter.Selector().Unquoted(), err)
		}
		result[iter.Selector().Unquoted()] = str
	}
	return result, nil
}

func manifestFieldError(manifestPath, field string, err error) error {
	return oerrors.NewConfigurationError(
		fmt.Sprintf("%s: %v", field, err),
		manifestPath, "Fix the field in the module manifest.")
}

// newContext returns a fresh CUE context for manifest compilation.
func newContext() *cue.Context {
	return cuecontext.New()
}
