package resolver

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	oerrors "github.com/stackgen/cli/internal/errors"
	"github.com/stackgen/cli/internal/registry"
	"github.com/stackgen/cli/internal/testutil"
)

// testRegistry builds a discovered registry from inline manifests.
func testRegistry(t *testing.T, manifests map[string]string) *registry.Registry {
	t.Helper()

	root := t.TempDir()
	for name, manifest := range manifests {
		testutil.WriteModule(t, root, name, manifest, nil)
	}

	reg := registry.New(os.DirFS(root))
	require.NoError(t, reg.Discover())
	return reg
}

func TestResolve_DependencyBeforeDependent(t *testing.T) {
	reg := testRegistry(t, map[string]string{
		"a": `metadata: {name: "a"}
dependencies: ["b"]`,
		"b": `metadata: {name: "b"}`,
	})

	result := Resolve(reg, []string{"a"}, Options{AutoResolve: true})
	require.True(t, result.OK())
	assert.Equal(t, []string{"b", "a"}, result.Names())
}

func TestResolve_TransitiveExpansion(t *testing.T) {
	reg := testRegistry(t, map[string]string{
		"a": `metadata: {name: "a"}
dependencies: ["b"]`,
		"b": `metadata: {name: "b"}
dependencies: ["c"]`,
		"c": `metadata: {name: "c"}`,
	})

	result := Resolve(reg, []string{"a"}, Options{AutoResolve: true})
	require.True(t, result.OK())
	assert.Equal(t, []string{"c", "b", "a"}, result.Names())
}

func TestResolve_Deterministic(t *testing.T) {
	reg := testRegistry(t, map[string]string{
		"a": `metadata: {name: "a"}
dependencies: ["d"]`,
		"b": `metadata: {name: "b"}
dependencies: ["d"]`,
		"c": `metadata: {name: "c"}`,
		"d": `metadata: {name: "d"}`,
	})

	first := Resolve(reg, []string{"a", "c", "b"}, Options{AutoResolve: true})
	require.True(t, first.OK())

	for i := 0; i < 10; i++ {
		again := Resolve(reg, []string{"a", "c", "b"}, Options{AutoResolve: true})
		require.True(t, again.OK())
		assert.Equal(t, first.Names(), again.Names())
	}

	// Requested modules keep caller order among unconstrained peers.
	assert.Equal(t, []string{"c", "d", "a", "b"}, first.Names())
}

func TestResolve_MissingDependencyWithoutAutoResolve(t *testing.T) {
	reg := testRegistry(t, map[string]string{
		"a": `metadata: {name: "a"}
dependencies: ["b"]`,
		"b": `metadata: {name: "b"}`,
	})

	result := Resolve(reg, []string{"a"}, Options{AutoResolve: false})
	require.False(t, result.OK())
	require.Len(t, result.Errors, 1)
	assert.ErrorIs(t, result.Errors[0], oerrors.ErrResolution)
	assert.Contains(t, result.Errors[0].Error(), `"b"`)
	assert.Nil(t, result.Modules)

	// Same request with autoResolve succeeds and includes the dependency.
	resolved := Resolve(reg, []string{"a"}, Options{AutoResolve: true})
	require.True(t, resolved.OK())
	assert.Equal(t, []string{"b", "a"}, resolved.Names())
}

func TestResolve_ExplicitSelectionSatisfiesDependency(t *testing.T) {
	reg := testRegistry(t, map[string]string{
		"a": `metadata: {name: "a"}
dependencies: ["b"]`,
		"b": `metadata: {name: "b"}`,
	})

	result := Resolve(reg, []string{"a", "b"}, Options{AutoResolve: false})
	require.True(t, result.OK())
	assert.Equal(t, []string{"b", "a"}, result.Names())
}

func TestResolve_MutualConflict(t *testing.T) {
	reg := testRegistry(t, map[string]string{
		"a": `metadata: {name: "a"}
conflicts: ["c"]`,
		"c": `metadata: {name: "c"}
conflicts: ["a"]`,
	})

	result := Resolve(reg, []string{"a", "c"}, Options{})
	require.False(t, result.OK())
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Error(), `"a"`)
	assert.Contains(t, result.Errors[0].Error(), `"c"`)
}

func TestResolve_OneSidedConflict(t *testing.T) {
	reg := testRegistry(t, map[string]string{
		"a": `metadata: {name: "a"}
conflicts: ["b"]`,
		"b": `metadata: {name: "b"}`,
	})

	result := Resolve(reg, []string{"b", "a"}, Options{})
	require.False(t, result.OK())
	require.Len(t, result.Errors, 1)
}

func TestResolve_AllowConflicts(t *testing.T) {
	reg := testRegistry(t, map[string]string{
		"a": `metadata: {name: "a"}
conflicts: ["c"]`,
		"c": `metadata: {name: "c"}
conflicts: ["a"]`,
	})

	result := Resolve(reg, []string{"a", "c"}, Options{AllowConflicts: true})
	require.True(t, result.OK())
	assert.Equal(t, []string{"a", "c"}, result.Names())
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, ConflictPair{A: "a", B: "c"}, result.Conflicts[0])
}

func TestResolve_Cycle(t *testing.T) {
	reg := testRegistry(t, map[string]string{
		"a": `metadata: {name: "a"}
dependencies: ["b"]`,
		"b": `metadata: {name: "b"}
dependencies: ["c"]`,
		"c": `metadata: {name: "c"}
dependencies: ["a"]`,
	})

	result := Resolve(reg, []string{"a", "b", "c"}, Options{AutoResolve: true})
	require.False(t, result.OK())
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Error(), "cyclic dependency")
	for _, name := range []string{"a", "b", "c"} {
		assert.Contains(t, result.Errors[0].Error(), name)
	}
	assert.Nil(t, result.Modules)
}

func TestResolve_EmptyRequest(t *testing.T) {
	reg := testRegistry(t, map[string]string{
		"a": `metadata: {name: "a"}`,
	})

	result := Resolve(reg, nil, Options{AutoResolve: true})
	require.True(t, result.OK())
	assert.Empty(t, result.Modules)
}

func TestResolve_UnknownModule(t *testing.T) {
	reg := testRegistry(t, map[string]string{
		"a": `metadata: {name: "a"}`,
	})

	for _, opts := range []Options{{}, {AutoResolve: true}, {AllowConflicts: true}} {
		result := Resolve(reg, []string{"nope"}, opts)
		require.False(t, result.OK())
		require.Len(t, result.Errors, 1)
		assert.Contains(t, result.Errors[0].Error(), `unknown module "nope"`)
	}
}

func TestResolve_AllErrorsReportedTogether(t *testing.T) {
	reg := testRegistry(t, map[string]string{
		"a": `metadata: {name: "a"}`,
	})

	result := Resolve(reg, []string{"a", "nope", "missing"}, Options{})
	require.False(t, result.OK())
	assert.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0].Error(), `"nope"`)
	assert.Contains(t, result.Errors[1].Error(), `"missing"`)
}

func TestResolve_AllConflictsReportedTogether(t *testing.T) {
	reg := testRegistry(t, map[string]string{
		"a": `metadata: {name: "a"}
conflicts: ["b"]`,
		"b": `metadata: {name: "b"}`,
		"c": `metadata: {name: "c"}
conflicts: ["d"]`,
		"d": `metadata: {name: "d"}`,
	})

	result := Resolve(reg, []string{"a", "b", "c", "d"}, Options{})
	require.False(t, result.OK())
	assert.Len(t, result.Errors, 2)
}

func TestResolve_Recommends(t *testing.T) {
	reg := testRegistry(t, map[string]string{
		"vue": `metadata: {name: "vue"}
recommends: ["eslint"]`,
		"eslint": `metadata: {name: "eslint"}`,
	})

	result := Resolve(reg, []string{"vue"}, Options{AutoResolve: true})
	require.True(t, result.OK())
	assert.Equal(t, []string{"vue", "eslint"}, result.Names())
}

func TestResolve_RecommendsExcluded(t *testing.T) {
	reg := testRegistry(t, map[string]string{
		"vue": `metadata: {name: "vue"}
recommends: ["eslint"]`,
		"eslint": `metadata: {name: "eslint"}`,
	})

	result := Resolve(reg, []string{"vue"}, Options{
		AutoResolve: true,
		Exclude:     []string{"eslint"},
	})
	require.True(t, result.OK())
	assert.Equal(t, []string{"vue"}, result.Names())
}

func TestResolve_DiamondDependency(t *testing.T) {
	reg := testRegistry(t, map[string]string{
		"app": `metadata: {name: "app"}
dependencies: ["left", "right"]`,
		"left": `metadata: {name: "left"}
dependencies: ["base"]`,
		"right": `metadata: {name: "right"}
dependencies: ["base"]`,
		"base": `metadata: {name: "base"}`,
	})

	result := Resolve(reg, []string{"app"}, Options{AutoResolve: true})
	require.True(t, result.OK())

	index := make(map[string]int)
	for i, name := range result.Names() {
		index[name] = i
	}
	assert.Less(t, index["base"], index["left"])
	assert.Less(t, index["base"], index["right"])
	assert.Less(t, index["left"], index["app"])
	assert.Less(t, index["right"], index["app"])
	assert.Len(t, result.Modules, 4)
}
