package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run:   runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func runVersion(cmd *cobra.Command, args []string) {
	fmt.Fprintf(cmd.OutOrStdout(), "kickpass version %s\n", Version)
	fmt.Fprintf(cmd.OutOrStdout(), "built %s\n", BuildTime)
	fmt.Fprintf(cmd.OutOrStdout(), "go: %s\n", runtime.Version())
}
