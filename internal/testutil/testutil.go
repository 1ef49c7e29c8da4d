// Package testutil provides test helpers for CLI tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteModule writes a module directory (manifest plus file contributions)
// under root and returns the module directory path. The files map is keyed by
// path relative to the module's files/ tree.
func WriteModule(t *testing.T, root, name, manifest string, files map[string]string) string {
	t.Helper()

	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("creating module dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "module.cue"), []byte(manifest), 0o644); err != nil {
		t.Fatalf("writing manifest: %v", err)
	}

	for rel, content := range files {
		path := filepath.Join(dir, "files", filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("creating contribution dir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("writing contribution: %v", err)
		}
	}

	return dir
}

// ReadGenerated reads a file from a generated project tree.
func ReadGenerated(t *testing.T, targetDir, rel string) string {
	t.Helper()

	data, err := os.ReadFile(filepath.Join(targetDir, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatalf("reading generated file %s: %v", rel, err)
	}
	return string(data)
}
