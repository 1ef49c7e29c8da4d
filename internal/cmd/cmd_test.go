package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	oerrors "github.com/stackgen/cli/internal/errors"
	"github.com/stackgen/cli/internal/output"
	"github.com/stackgen/cli/internal/testutil"
)

// setupModuleSource points the command layer at a throwaway module source and
// a config file that does not exist, so tests never see the user's setup.
func setupModuleSource(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	testutil.WriteModule(t, root, "base", `metadata: {
	name:        "base"
	category:    "foundation"
	description: "Project skeleton."
}
manifest: {
	dependencies: {
		"vue": "^3.5.0"
	}
}`, map[string]string{
		"README.md":  "# {{.ProjectName}}\n",
		"AUTHORS":    "{{.Author}}\n",
		".gitignore": "node_modules/\n",
	})
	testutil.WriteModule(t, root, "web", `metadata: {name: "web", category: "frontend"}
dependencies: ["base"]
recommends: ["lint"]
files: {
	".gitignore": "append-text"
}`, map[string]string{
		".gitignore": "dist/\n",
	})
	testutil.WriteModule(t, root, "lint", `metadata: {name: "lint", category: "tooling"}`, nil)
	testutil.WriteModule(t, root, "ui", `metadata: {name: "ui", category: "frontend"}
conflicts: ["alt-ui"]`, nil)
	testutil.WriteModule(t, root, "alt-ui", `metadata: {name: "alt-ui", category: "frontend"}
conflicts: ["ui"]`, nil)

	t.Setenv("STACKGEN_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	SetGlobalFlags("", root, false)
	t.Cleanup(func() { SetGlobalFlags("", "", false) })

	return root
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestNew_GeneratesProject(t *testing.T) {
	setupModuleSource(t)
	target := filepath.Join(t.TempDir(), "my-app")

	_, _, err := execute(t, NewNewCmd(), "my-app", "-m", "web", "-d", target)
	require.NoError(t, err)

	assert.Equal(t, "# my-app\n", testutil.ReadGenerated(t, target, "README.md"))
	assert.Equal(t, "node_modules/\n\ndist/\n", testutil.ReadGenerated(t, target, ".gitignore"))

	// base's manifest fragment lands in package.json.
	pkg := testutil.ReadGenerated(t, target, "package.json")
	assert.Contains(t, pkg, `"vue": "^3.5.0"`)
}

func TestNew_ExcludeRecommendation(t *testing.T) {
	setupModuleSource(t)
	target := filepath.Join(t.TempDir(), "my-app")

	_, _, err := execute(t, NewNewCmd(), "my-app", "-m", "web", "-d", target, "--exclude", "lint")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(target, "README.md"))
}

func TestNew_UnknownModule(t *testing.T) {
	setupModuleSource(t)
	target := filepath.Join(t.TempDir(), "my-app")

	_, stderr, err := execute(t, NewNewCmd(), "my-app", "-m", "ghost", "-d", target)
	require.Error(t, err)
	assert.Contains(t, stderr, `unknown module "ghost"`)

	var exitErr *oerrors.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, oerrors.ExitResolutionError, exitErr.Code)
	assert.True(t, exitErr.Printed)

	_, statErr := os.Stat(target)
	assert.True(t, os.IsNotExist(statErr))
}

func TestNew_ConflictingModules(t *testing.T) {
	setupModuleSource(t)
	target := filepath.Join(t.TempDir(), "my-app")

	_, stderr, err := execute(t, NewNewCmd(), "my-app", "-m", "ui,alt-ui", "-d", target)
	require.Error(t, err)
	assert.Contains(t, stderr, "conflict")
	assert.Equal(t, oerrors.ExitResolutionError, oerrors.ExitCodeFromError(err))
}

func TestNew_AllowConflicts(t *testing.T) {
	setupModuleSource(t)
	target := filepath.Join(t.TempDir(), "my-app")

	_, _, err := execute(t, NewNewCmd(), "my-app", "-m", "ui,alt-ui", "-d", target, "--allow-conflicts")
	require.NoError(t, err)
}

func TestNew_NoDepsFailsOnMissingDependency(t *testing.T) {
	setupModuleSource(t)
	target := filepath.Join(t.TempDir(), "my-app")

	_, stderr, err := execute(t, NewNewCmd(), "my-app", "-m", "web", "-d", target, "--no-deps")
	require.Error(t, err)
	assert.Contains(t, stderr, `"base"`)
}

func TestNew_RequiresProjectName(t *testing.T) {
	setupModuleSource(t)

	_, _, err := execute(t, NewNewCmd())
	require.Error(t, err)
}

func TestNew_EmptySelection(t *testing.T) {
	setupModuleSource(t)
	target := filepath.Join(t.TempDir(), "my-app")

	_, _, err := execute(t, NewNewCmd(), "my-app", "-d", target)
	require.NoError(t, err)

	// No modules means nothing to write, and that is a valid project.
	entries, readErr := os.ReadDir(target)
	if readErr == nil {
		assert.Empty(t, entries)
	}
}

func TestResolve_PrintsOrder(t *testing.T) {
	setupModuleSource(t)

	stdout, _, err := execute(t, NewResolveCmd(), "web")
	require.NoError(t, err)

	assert.Contains(t, stdout, "1. base")
	assert.Contains(t, stdout, "2. web")
	assert.Contains(t, stdout, "(requires base)")
	assert.Contains(t, stdout, "3. lint")
}

func TestResolve_Empty(t *testing.T) {
	setupModuleSource(t)

	stdout, _, err := execute(t, NewResolveCmd())
	require.NoError(t, err)
	assert.Contains(t, stdout, "Nothing to resolve")
}

func TestResolve_ConflictWarningWithAllow(t *testing.T) {
	setupModuleSource(t)

	stdout, _, err := execute(t, NewResolveCmd(), "ui", "alt-ui", "--allow-conflicts")
	require.NoError(t, err)
	assert.Contains(t, stdout, "warning")
	assert.Contains(t, stdout, `"ui"`)
	assert.Contains(t, stdout, `"alt-ui"`)
}

func TestModulesList(t *testing.T) {
	setupModuleSource(t)

	stdout, _, err := execute(t, NewModulesCmd(), "list")
	require.NoError(t, err)
	for _, name := range []string{"base", "web", "lint", "ui", "alt-ui"} {
		assert.Contains(t, stdout, name)
	}
}

func TestModulesList_Category(t *testing.T) {
	setupModuleSource(t)

	stdout, _, err := execute(t, NewModulesCmd(), "list", "--category", "tooling")
	require.NoError(t, err)
	assert.Contains(t, stdout, "lint")
	assert.NotContains(t, stdout, "web")
}

func TestModulesList_UnknownCategory(t *testing.T) {
	setupModuleSource(t)

	_, _, err := execute(t, NewModulesCmd(), "list", "--category", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
}

func TestModulesInfo(t *testing.T) {
	setupModuleSource(t)

	stdout, _, err := execute(t, NewModulesCmd(), "info", "web")
	require.NoError(t, err)
	assert.Contains(t, stdout, "web")
	assert.Contains(t, stdout, "Dependencies: base")
	assert.Contains(t, stdout, "Recommends: lint")
	assert.Contains(t, stdout, ".gitignore")
}

func TestModulesInfo_Unknown(t *testing.T) {
	setupModuleSource(t)

	_, _, err := execute(t, NewModulesCmd(), "info", "ghost")
	require.Error(t, err)
	assert.ErrorIs(t, err, oerrors.ErrNotFound)
}

func TestNew_AuthorFlagOverridesConfig(t *testing.T) {
	setupModuleSource(t)
	t.Setenv("STACKGEN_AUTHOR_NAME", "FromEnv")

	target := filepath.Join(t.TempDir(), "my-app")
	_, _, err := execute(t, NewNewCmd(), "my-app", "-m", "base", "-d", target, "--author", "Dana")
	require.NoError(t, err)
	assert.Equal(t, "Dana\n", testutil.ReadGenerated(t, target, "AUTHORS"))

	// Without the flag the configured author applies.
	target = filepath.Join(t.TempDir(), "my-app")
	_, _, err = execute(t, NewNewCmd(), "my-app", "-m", "base", "-d", target)
	require.NoError(t, err)
	assert.Equal(t, "FromEnv\n", testutil.ReadGenerated(t, target, "AUTHORS"))
}

func TestConfigureOutput_TimestampsFromConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  timestamps: true\n"), 0o644))
	t.Setenv("STACKGEN_CONFIG", path)
	SetGlobalFlags("", "", false)
	t.Cleanup(func() {
		SetGlobalFlags("", "", false)
		output.SetupLogging(false, false)
	})

	require.NoError(t, ConfigureOutput())

	var buf bytes.Buffer
	output.Logger.SetOutput(&buf)
	output.Info("module source discovered")
	assert.Regexp(t, `\d{4}/\d{2}/\d{2}`, buf.String())
}

func TestOpenRegistry_Builtin(t *testing.T) {
	t.Setenv("STACKGEN_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("STACKGEN_MODULES_DIR", "")
	SetGlobalFlags("", "", false)
	t.Cleanup(func() { SetGlobalFlags("", "", false) })

	cfg, err := LoadConfig()
	require.NoError(t, err)

	reg, err := OpenRegistry(cfg)
	require.NoError(t, err)
	assert.True(t, reg.Has("base"))
	assert.True(t, reg.Has("vue"))
}
