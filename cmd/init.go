package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"kickpass/config"
	"kickpass/prompt"
	"kickpass/workspace"
)

var (
	initOpsLimit uint64
	initMemLimit uint64
)

var initCmd = &cobra.Command{
	Use:   "init [subpath]",
	Short: "Initialize a kickpass workspace",
	Long: `Create the workspace directory (default: $HOME/.kickpass), or a
subpath within it, failing if it already exists, then prompt for the
master passphrase and seal a governing ".config" safe there.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().Uint64Var(&initOpsLimit, "opslimit", 0, "override the KDF opslimit for safes under this workspace")
	initCmd.Flags().Uint64Var(&initMemLimit, "memlimit", 0, "override the KDF memlimit for safes under this workspace")
	initCmd.Flags().MarkHidden("opslimit")
	initCmd.Flags().MarkHidden("memlimit")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	root, err := workspaceRoot()
	if err != nil {
		return err
	}

	target := root
	if len(args) == 1 {
		target = filepath.Join(root, args[0])
	}

	// Prompt before creating anything on disk: workspace.Init must see
	// target absent, and newContext's workspace.Open would otherwise
	// create it out from under a subpath-less init (spec.md §4.3).
	pass, err := prompt.TTY(true, "master")
	if err != nil {
		return err
	}

	if _, err := workspace.Init(target); err != nil {
		for i := range pass {
			pass[i] = 0
		}
		return err
	}

	cfg := config.Default()
	if initOpsLimit > 0 {
		cfg.OpsLimit = initOpsLimit
	}
	if initMemLimit > 0 {
		cfg.MemLimit = initMemLimit
	}

	createErr := config.Create(target, pass, cfg)
	for i := range pass {
		pass[i] = 0
	}
	if createErr != nil {
		return createErr
	}

	fmt.Fprintf(cmd.OutOrStdout(), "initialized %s\n", target)
	return nil
}
