package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stackgen/cli/internal/resolver"
)

var (
	resolveExclude        []string
	resolveNoDeps         bool
	resolveAllowConflicts bool
)

// NewResolveCmd creates the resolve command: a dry run of module resolution
// without generating anything.
func NewResolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <module-name>...",
		Short: "Resolve a module selection without generating",
		Long: `Expand, validate, and order a module selection, printing the
resolution order or every problem found.

Examples:
  stackgen resolve vue vuetify supabase
  stackgen resolve vue --no-deps`,
		Args: cobra.ArbitraryArgs,
		RunE: runResolve,
	}

	cmd.Flags().StringSliceVar(&resolveExclude, "exclude", nil,
		"Modules that must not be auto-included via recommendations")
	cmd.Flags().BoolVar(&resolveNoDeps, "no-deps", false,
		"Fail on missing dependencies instead of auto-resolving them")
	cmd.Flags().BoolVar(&resolveAllowConflicts, "allow-conflicts", false,
		"Allow modules that declare each other as conflicting")

	return cmd
}

func runResolve(cmd *cobra.Command, args []string) error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}

	reg, err := OpenRegistry(cfg)
	if err != nil {
		return err
	}

	result := resolver.Resolve(reg, args, resolver.Options{
		AutoResolve:    !resolveNoDeps,
		AllowConflicts: resolveAllowConflicts,
		Exclude:        resolveExclude,
	})
	if !result.OK() {
		return reportResolutionErrors(cmd, result.Errors)
	}

	out := cmd.OutOrStdout()
	if len(result.Modules) == 0 {
		fmt.Fprintln(out, "Nothing to resolve: empty module selection.")
		return nil
	}

	for i, mod := range result.Modules {
		line := fmt.Sprintf("%2d. %s", i+1, mod.Name())
		if len(mod.Dependencies) > 0 {
			line += fmt.Sprintf("  (requires %s)", strings.Join(mod.Dependencies, ", "))
		}
		fmt.Fprintln(out, line)
	}

	for _, pair := range result.Conflicts {
		fmt.Fprintf(out, "warning: modules %q and %q conflict (allowed by --allow-conflicts)\n", pair.A, pair.B)
	}

	return nil
}
