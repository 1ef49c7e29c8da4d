// Package cmd provides CLI command implementations.
package cmd

import (
	"os"

	"github.com/stackgen/cli/internal/config"
	"github.com/stackgen/cli/internal/output"
	"github.com/stackgen/cli/internal/registry"
)

// Global flag values shared across commands; bound by the root command.
var (
	flagConfig     string
	flagModulesDir string
	flagVerbose    bool
)

// SetGlobalFlags records the root command's persistent flag values so
// subcommands can reach them without global cobra state.
func SetGlobalFlags(configFile, modulesDir string, verbose bool) {
	flagConfig = configFile
	flagModulesDir = modulesDir
	flagVerbose = verbose
}

// LoadConfig loads the CLI configuration honoring the --config flag and the
// STACKGEN_CONFIG environment variable.
func LoadConfig() (*config.Config, error) {
	return config.NewLoader().Load(flagConfig)
}

// ConfigureOutput applies logging settings from the --verbose flag and the
// loaded configuration's log options.
func ConfigureOutput() error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	output.SetupLogging(flagVerbose, cfg.Log.Timestamps)
	return nil
}

// OpenRegistry builds and discovers a module registry. The source is the
// --modules-dir flag, the configured modulesDir, or the embedded builtin
// module set, in that order of precedence.
func OpenRegistry(cfg *config.Config) (*registry.Registry, error) {
	dir := flagModulesDir
	if dir == "" && cfg != nil {
		dir = cfg.ModulesDir
	}

	var reg *registry.Registry
	if dir != "" {
		expanded, err := config.ExpandPath(dir)
		if err != nil {
			return nil, err
		}
		output.Debug("using module source directory", "dir", expanded)
		reg = registry.New(os.DirFS(expanded))
	} else {
		output.Debug("using builtin module source")
		reg = registry.New(registry.Builtin())
	}

	if err := reg.Discover(); err != nil {
		return nil, err
	}
	return reg, nil
}
