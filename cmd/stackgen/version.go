package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stackgen/cli/internal/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show CLI version information",
		RunE:  runVersion,
	}
}

func runVersion(cmd *cobra.Command, _ []string) error {
	info := version.GetInfo()
	fmt.Fprintln(cmd.OutOrStdout(), info.String())
	return nil
}
