package main

import (
	"github.com/spf13/cobra"

	"github.com/stackgen/cli/internal/cmd"
	"github.com/stackgen/cli/internal/output"
	"github.com/stackgen/cli/internal/version"
)

var (
	// Global flags
	flagConfig     string
	flagModulesDir string
	flagVerbose    bool
)

// rootCmd is the base command for the stackgen CLI.
var rootCmd = &cobra.Command{
	Use:   "stackgen",
	Short: "Composable project scaffolding",
	Long: `stackgen assembles working project trees from composable modules.

It provides commands to:
  - Generate a project from a module selection
  - Inspect available modules and their relationships
  - Dry-run module resolution without writing files`,
	PersistentPreRunE: initializeGlobals,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "path to config file (env: STACKGEN_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&flagModulesDir, "modules-dir", "", "module source directory (env: STACKGEN_MODULES_DIR)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "increase output verbosity")

	// Add subcommands
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(cmd.NewNewCmd())
	rootCmd.AddCommand(cmd.NewModulesCmd())
	rootCmd.AddCommand(cmd.NewResolveCmd())
}

// initializeGlobals sets up logging and shares global flags with the command
// layer.
func initializeGlobals(_ *cobra.Command, _ []string) error {
	cmd.SetGlobalFlags(flagConfig, flagModulesDir, flagVerbose)
	if err := cmd.ConfigureOutput(); err != nil {
		return err
	}

	info := version.GetInfo()
	output.Debug("stackgen started", "version", info.Version)

	return nil
}
