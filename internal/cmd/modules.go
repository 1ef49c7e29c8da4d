package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stackgen/cli/internal/core"
	"github.com/stackgen/cli/internal/output"
)

var modulesCategory string

// NewModulesCmd creates the modules command group.
func NewModulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "modules",
		Short: "Inspect available modules",
	}

	cmd.AddCommand(newModulesListCmd())
	cmd.AddCommand(newModulesInfoCmd())

	return cmd
}

func newModulesListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List available modules",
		Long: `List the modules available for composition.

Examples:
  # All modules
  stackgen modules list

  # Only UI libraries
  stackgen modules list --category ui-library`,
		Args: cobra.NoArgs,
		RunE: runModulesList,
	}

	cmd.Flags().StringVar(&modulesCategory, "category", "",
		"Only show modules in this category")

	return cmd
}

func runModulesList(cmd *cobra.Command, _ []string) error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}

	reg, err := OpenRegistry(cfg)
	if err != nil {
		return err
	}

	var modules []*core.Module
	if modulesCategory != "" {
		modules = reg.ListByCategory(modulesCategory)
		if len(modules) == 0 {
			return fmt.Errorf("no modules in category %q; known categories: %s",
				modulesCategory, strings.Join(reg.Categories(), ", "))
		}
	} else {
		modules = reg.List()
	}

	rows := make([]output.ModuleRow, 0, len(modules))
	for _, m := range modules {
		rows = append(rows, output.ModuleRow{
			Name:         m.Name(),
			Category:     m.Metadata.Category,
			Description:  m.Metadata.Description,
			Dependencies: strings.Join(m.Dependencies, ", "),
		})
	}

	fmt.Fprintln(cmd.OutOrStdout(), output.RenderModuleTable(rows))
	return nil
}

func newModulesInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <module-name>",
		Short: "Show one module's descriptor details",
		Args:  cobra.ExactArgs(1),
		RunE:  runModulesInfo,
	}
}

func runModulesInfo(cmd *cobra.Command, args []string) error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}

	reg, err := OpenRegistry(cfg)
	if err != nil {
		return err
	}

	mod, err := reg.Get(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (%s)\n", output.StyleNoun.Render(mod.Name()), mod.Metadata.Category)
	if mod.Metadata.Description != "" {
		fmt.Fprintf(out, "  %s\n", mod.Metadata.Description)
	}
	printNameList(out, "Dependencies", mod.Dependencies)
	printNameList(out, "Conflicts", mod.Conflicts)
	printNameList(out, "Recommends", mod.Recommends)

	if len(mod.Files) > 0 {
		fmt.Fprintln(out, "  Files:")
		entries := make([]output.FileEntry, 0, len(mod.Files))
		for _, f := range mod.Files {
			entries = append(entries, output.FileEntry{
				Path:        "    " + f.Path,
				Description: string(f.Strategy),
			})
		}
		fmt.Fprint(out, output.RenderFileTree(entries, 36))
	}

	if !mod.Manifest.IsEmpty() {
		fmt.Fprintf(out, "  Manifest entries: %d dependencies, %d devDependencies, %d scripts\n",
			len(mod.Manifest.Dependencies), len(mod.Manifest.DevDependencies), len(mod.Manifest.Scripts))
	}

	return nil
}

func printNameList(out io.Writer, label string, names []string) {
	if len(names) == 0 {
		return
	}
	fmt.Fprintf(out, "  %s: %s\n", label, strings.Join(names, ", "))
}
