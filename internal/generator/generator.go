// Package generator materializes a resolved module list into a project tree.
package generator

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	yamlv3 "gopkg.in/yaml.v3"
	sigsyaml "sigs.k8s.io/yaml"

	"github.com/stackgen/cli/internal/core"
	oerrors "github.com/stackgen/cli/internal/errors"
	"github.com/stackgen/cli/internal/output"
)

// DefaultManifestPath is where manifest fragments are merged when the caller
// does not override it.
const DefaultManifestPath = "package.json"

// Options configures project generation.
type Options struct {
	// TargetDir is the directory to generate the project in. The generator
	// assumes exclusive ownership of it for the duration of the call.
	TargetDir string

	// ManifestPath is the package manifest location relative to the project
	// root. Defaults to package.json.
	ManifestPath string

	// Force allows overwriting files that already exist in the target.
	Force bool
}

// GeneratedFile describes one file written to the target tree.
type GeneratedFile struct {
	// Path is the file path relative to the project root.
	Path string

	// Contributors is the number of modules that contributed to the file.
	Contributors int
}

// Result contains the outcome of a successful generation.
type Result struct {
	// Files lists every written file, sorted by path.
	Files []GeneratedFile

	// TargetDir is the directory the project was written to.
	TargetDir string
}

// Generator applies module file contributions in resolution order, merging
// overlapping paths per their declared strategies, then substitutes template
// placeholders on the merged content and writes the tree.
type Generator struct {
	opts Options
}

// New creates a generator with the given options.
func New(opts Options) *Generator {
	if opts.ManifestPath == "" {
		opts.ManifestPath = DefaultManifestPath
	}
	return &Generator{opts: opts}
}

// staged is the in-flight merge state for one target path. A path is either
// structured (doc set) or plain text; strategies may promote text to
// structured and back.
type staged struct {
	doc          map[string]interface{}
	text         []byte
	contributors []string
}

// scriptOrigin records which module first set a manifest script, for conflict
// error messages.
type scriptOrigin struct {
	module  string
	command string
}

// Generate materializes the ordered module list into the target directory.
// Modules must already be in resolution order; the generator trusts the
// resolver's ordering and never reorders. Everything is staged and rendered
// in memory first, so a merge or templating error writes no files; filesystem
// write errors abort mid-flush and cleanup is the caller's responsibility.
func (g *Generator) Generate(modules []*core.Module, tctx Context) (*Result, error) {
	files := make(map[string]*staged)
	scripts := make(map[string]scriptOrigin)

	for _, mod := range modules {
		for _, fc := range mod.Files {
			if err := g.applyContribution(files, mod.Name(), fc); err != nil {
				return nil, err
			}
		}
		if err := g.applyManifestFragment(files, scripts, mod); err != nil {
			return nil, err
		}
	}

	rendered, err := g.renderAll(files, tctx)
	if err != nil {
		return nil, err
	}

	result := &Result{TargetDir: g.opts.TargetDir}
	for _, rf := range rendered {
		if err := g.writeFile(rf.path, rf.content); err != nil {
			return nil, err
		}
		output.Debug("wrote file", "path", rf.path, "contributors", rf.contributors)
		result.Files = append(result.Files, GeneratedFile{
			Path:         rf.path,
			Contributors: rf.contributors,
		})
	}

	return result, nil
}

// applyContribution merges one module's contribution into the staging state
// for its path, honoring the contribution's declared strategy against
// whatever earlier modules left there.
func (g *Generator) applyContribution(files map[string]*staged, module string, fc core.FileContribution) error {
	s, ok := files[fc.Path]
	if !ok {
		s = &staged{}
		files[fc.Path] = s
	}
	s.contributors = append(s.contributors, module)

	switch fc.Strategy {
	case core.StrategyOverwrite:
		s.doc = nil
		s.text = fc.Content
		return nil

	case core.StrategyAppendText:
		if s.doc != nil {
			serialized, err := g.serialize(fc.Path, s.doc)
			if err != nil {
				return generationError(module, fc.Path, err)
			}
			s.doc = nil
			s.text = serialized
		}
		s.text = appendText(s.text, fc.Content)
		return nil

	case core.StrategyMergeStructured, core.StrategyMergeFailOnConflict:
		if err := g.mergeStructured(s, module, fc); err != nil {
			return err
		}
		return nil

	default:
		// Registry validation rejects unknown strategies at load time.
		return generationError(module, fc.Path, fmt.Errorf("unknown merge strategy %q", fc.Strategy))
	}
}

// mergeStructured deep-merges a structured contribution into the staged
// document, promoting staged plain text to a document first if needed.
func (g *Generator) mergeStructured(s *staged, module string, fc core.FileContribution) error {
	if s.doc == nil {
		s.doc = make(map[string]interface{})
		if len(s.text) > 0 {
			doc, err := parseStructured(s.text)
			if err != nil {
				return generationError(module, fc.Path,
					fmt.Errorf("earlier content is not structured: %w", err))
			}
			s.doc = doc
			s.text = nil
		}
	}

	incoming, err := parseStructured(fc.Content)
	if err != nil {
		return generationError(module, fc.Path, fmt.Errorf("parsing contribution: %w", err))
	}

	mode := lastWins
	if fc.Strategy == core.StrategyMergeFailOnConflict {
		mode = failOnConflict
	}

	if err := deepMerge(s.doc, incoming, mode, ""); err != nil {
		var conflict *conflictError
		if errors.As(err, &conflict) {
			return g.conflictDetail(module, fc.Path, s, incoming, conflict)
		}
		return generationError(module, fc.Path, err)
	}
	return nil
}

// conflictDetail builds the user-facing error for a merge-fail-on-conflict
// collision, including a structural diff of the disagreeing documents.
func (g *Generator) conflictDetail(module, filePath string, s *staged, incoming map[string]interface{}, conflict *conflictError) error {
	earlier := strings.Join(s.contributors[:len(s.contributors)-1], ", ")
	msg := fmt.Sprintf("module %q and earlier modules (%s) set %s to different values in %s",
		module, earlier, conflict.KeyPath, filePath)

	detail := &oerrors.DetailError{
		Type:     "merge conflict",
		Message:  msg,
		Location: filePath,
		Hint:     "Pick one of the modules, or change one module's contribution so the values agree.",
		Cause:    oerrors.ErrGeneration,
	}
	if diff := renderConflictDiff(s.doc, incoming); diff != "" {
		detail.Context = map[string]string{"diff": "\n" + diff}
	}
	return detail
}

// applyManifestFragment merges a module's manifest fragment into the staged
// package manifest. Dependency maps union with the later module winning on a
// version-range collision; a script set to two different commands is a
// conflict, reported with both module names.
func (g *Generator) applyManifestFragment(files map[string]*staged, scripts map[string]scriptOrigin, mod *core.Module) error {
	frag := mod.Manifest
	if frag.IsEmpty() {
		return nil
	}

	s, ok := files[g.opts.ManifestPath]
	if !ok {
		s = &staged{}
		files[g.opts.ManifestPath] = s
	}
	if s.doc == nil {
		s.doc = make(map[string]interface{})
		if len(s.text) > 0 {
			doc, err := parseStructured(s.text)
			if err != nil {
				return generationError(mod.Name(), g.opts.ManifestPath,
					fmt.Errorf("manifest contribution is not structured: %w", err))
			}
			s.doc = doc
			s.text = nil
		}
	}
	s.contributors = append(s.contributors, mod.Name())

	mergeDependencyMap(s.doc, "dependencies", frag.Dependencies)
	mergeDependencyMap(s.doc, "devDependencies", frag.DevDependencies)

	if len(frag.Scripts) > 0 {
		names := make([]string, 0, len(frag.Scripts))
		for name := range frag.Scripts {
			names = append(names, name)
		}
		sort.Strings(names)

		section := subMap(s.doc, "scripts")
		for _, name := range names {
			command := frag.Scripts[name]
			if prev, ok := scripts[name]; ok && prev.command != command {
				return &oerrors.DetailError{
					Type:     "merge conflict",
					Message:  fmt.Sprintf("script %q: module %q sets %q but module %q already set %q", name, mod.Name(), command, prev.module, prev.command),
					Location: g.opts.ManifestPath,
					Hint:     "Two modules cannot define the same script with different commands.",
					Cause:    oerrors.ErrGeneration,
				}
			}
			scripts[name] = scriptOrigin{module: mod.Name(), command: command}
			section[name] = command
		}
	}

	return nil
}

// mergeDependencyMap unions fragment entries into the named manifest section,
// later module winning on a key collision.
func mergeDependencyMap(doc map[string]interface{}, section string, entries map[string]string) {
	if len(entries) == 0 {
		return
	}
	target := subMap(doc, section)
	for name, version := range entries {
		target[name] = version
	}
}

// subMap returns the named nested map, creating it if absent. A non-map value
// already at the key is replaced; manifest sections are maps by contract.
func subMap(doc map[string]interface{}, key string) map[string]interface{} {
	if m, ok := doc[key].(map[string]interface{}); ok {
		return m
	}
	m := make(map[string]interface{})
	doc[key] = m
	return m
}

// renderedFile is a fully merged and substituted file ready to write.
type renderedFile struct {
	path         string
	content      []byte
	contributors int
}

// renderAll serializes structured documents and substitutes template
// placeholders on the final merged content of every staged path. Substitution
// happens after merging so every module's contribution sees the same final
// values. Strict: a placeholder with no context value fails the whole run.
func (g *Generator) renderAll(files map[string]*staged, tctx Context) ([]renderedFile, error) {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	result := make([]renderedFile, 0, len(paths))
	for _, p := range paths {
		s := files[p]

		content := s.text
		if s.doc != nil {
			serialized, err := g.serialize(p, s.doc)
			if err != nil {
				return nil, generationError("", p, err)
			}
			content = serialized
		}

		substituted, err := substitute(p, content, tctx)
		if err != nil {
			return nil, &oerrors.DetailError{
				Type:     "templating failed",
				Message:  fmt.Sprintf("rendering %s: %v", p, err),
				Location: p,
				Hint:     "Provide the missing context value or fix the placeholder in the contributing module.",
				Cause:    oerrors.ErrGeneration,
			}
		}

		result = append(result, renderedFile{
			path:         p,
			content:      substituted,
			contributors: len(s.contributors),
		})
	}
	return result, nil
}

// serialize emits a merged structured document in the format its target path
// implies: indented JSON for .json, YAML otherwise.
func (g *Generator) serialize(p string, doc map[string]interface{}) ([]byte, error) {
	yamlBytes, err := yamlv3.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("serializing %s: %w", p, err)
	}

	if path.Ext(p) != ".json" {
		return yamlBytes, nil
	}

	jsonBytes, err := sigsyaml.YAMLToJSON(yamlBytes)
	if err != nil {
		return nil, fmt.Errorf("converting %s to JSON: %w", p, err)
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, jsonBytes, "", "  "); err != nil {
		return nil, fmt.Errorf("formatting %s: %w", p, err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// substitute applies the template context to merged content. missingkey=error
// makes an unresolved placeholder a hard failure rather than "<no value>".
func substitute(name string, content []byte, tctx Context) ([]byte, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("parsing template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, tctx); err != nil {
		return nil, fmt.Errorf("executing template: %w", err)
	}
	return buf.Bytes(), nil
}

// writeFile writes one rendered file under the target directory.
func (g *Generator) writeFile(relPath string, content []byte) error {
	targetPath := filepath.Join(g.opts.TargetDir, filepath.FromSlash(relPath))

	if !g.opts.Force {
		if _, err := os.Stat(targetPath); err == nil {
			return oerrors.NewGenerationError(
				fmt.Sprintf("file %s already exists", targetPath), targetPath,
				"Use --force to overwrite existing files.")
		}
	}

	if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
		return oerrors.NewGenerationError(
			fmt.Sprintf("creating directory: %v", err), targetPath, "")
	}

	if err := os.WriteFile(targetPath, content, 0o644); err != nil {
		return oerrors.NewGenerationError(
			fmt.Sprintf("writing file: %v", err), targetPath, "")
	}
	return nil
}

func generationError(module, filePath string, err error) error {
	msg := err.Error()
	if module != "" {
		msg = fmt.Sprintf("module %q: %s: %v", module, filePath, err)
	}
	return oerrors.NewGenerationError(msg, filePath, "")
}
