package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stackgen/cli/internal/config"
	oerrors "github.com/stackgen/cli/internal/errors"
	"github.com/stackgen/cli/internal/generator"
	"github.com/stackgen/cli/internal/output"
	"github.com/stackgen/cli/internal/resolver"
)

var (
	newModules        []string
	newExclude        []string
	newDir            string
	newNoDeps         bool
	newAllowConflicts bool
	newForce          bool
	newAuthor         string
	newEmail          string
)

// NewNewCmd creates the new command.
func NewNewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "new <project-name>",
		Short: "Generate a project from composable modules",
		Long: `Generate a new project by composing modules.

The requested modules are expanded with their dependencies, checked for
conflicts, ordered, and materialized into a single project tree. Overlapping
files are merged per each module's declared merge strategy.

Examples:
  # A Vue project with Vuetify and a Supabase client
  stackgen new my-app -m vue,vuetify,supabase

  # A blank project (no modules)
  stackgen new my-app

  # Keep a recommended module out of the selection
  stackgen new my-app -m vue --exclude eslint`,
		Args: cobra.ExactArgs(1),
		RunE: runNew,
	}

	cmd.Flags().StringSliceVarP(&newModules, "modules", "m", nil,
		"Modules to compose (comma-separated, can be repeated)")
	cmd.Flags().StringSliceVar(&newExclude, "exclude", nil,
		"Modules that must not be auto-included via recommendations")
	cmd.Flags().StringVarP(&newDir, "dir", "d", "",
		"Directory to create the project in (defaults to project name)")
	cmd.Flags().BoolVar(&newNoDeps, "no-deps", false,
		"Fail on missing dependencies instead of auto-resolving them")
	cmd.Flags().BoolVar(&newAllowConflicts, "allow-conflicts", false,
		"Allow modules that declare each other as conflicting")
	cmd.Flags().BoolVar(&newForce, "force", false,
		"Overwrite existing files in the target directory")
	cmd.Flags().StringVar(&newAuthor, "author", "",
		"Author name for generated files (default: from config)")
	cmd.Flags().StringVar(&newEmail, "email", "",
		"Author email for generated files (default: from config)")

	return cmd
}

func runNew(cmd *cobra.Command, args []string) error {
	projectName := args[0]

	targetDir := newDir
	if targetDir == "" {
		targetDir = projectName
	}

	cfg, err := LoadConfig()
	if err != nil {
		return err
	}

	reg, err := OpenRegistry(cfg)
	if err != nil {
		return err
	}

	result := resolver.Resolve(reg, newModules, resolver.Options{
		AutoResolve:    !newNoDeps,
		AllowConflicts: newAllowConflicts,
		Exclude:        newExclude,
	})
	if !result.OK() {
		return reportResolutionErrors(cmd, result.Errors)
	}

	if len(result.Modules) > 0 {
		output.Info("resolved modules", "order", strings.Join(result.Names(), ", "))
	}

	tctx := buildContext(cfg, projectName)

	gen := generator.New(generator.Options{
		TargetDir: targetDir,
		Force:     newForce,
	})

	var genResult *generator.Result
	genErr := output.RunWithSpinner(cmd.Context(), func() error {
		var err error
		genResult, err = gen.Generate(result.Modules, tctx)
		return err
	}, output.WithTitle(fmt.Sprintf("Generating %s...", projectName)))
	if genErr != nil {
		return genErr
	}

	for _, f := range genResult.Files {
		status := output.StatusCreated
		if f.Contributors > 1 {
			status = output.StatusMerged
		}
		output.Println(output.FormatFileLine(f.Path, status, f.Contributors))
	}
	output.Println(output.FormatCheckmark(fmt.Sprintf(
		"Project %s generated in %s (%d modules, %d files)",
		projectName, targetDir, len(result.Modules), len(genResult.Files))))

	return nil
}

// buildContext assembles the template context: builtin defaults, configured
// author values, then explicit flags, later layers winning.
func buildContext(cfg *config.Config, projectName string) generator.Context {
	overlay := generator.Context{}
	if cfg != nil {
		if cfg.Author.Name != "" {
			overlay["Author"] = cfg.Author.Name
		}
		if cfg.Author.Email != "" {
			overlay["AuthorEmail"] = cfg.Author.Email
		}
	}
	if newAuthor != "" {
		overlay["Author"] = newAuthor
	}
	if newEmail != "" {
		overlay["AuthorEmail"] = newEmail
	}
	return generator.DefaultContext(projectName).Merge(overlay)
}

// reportResolutionErrors prints every collected resolution error so the user
// sees all problems at once, then returns a non-zero exit.
func reportResolutionErrors(cmd *cobra.Command, errs []error) error {
	for _, err := range errs {
		fmt.Fprintln(cmd.ErrOrStderr(), err)
	}
	exitErr := oerrors.NewExitError(
		fmt.Errorf("resolution failed with %d error(s): %w", len(errs), oerrors.ErrResolution),
		oerrors.ExitResolutionError)
	exitErr.Printed = len(errs) > 0
	return exitErr
}
