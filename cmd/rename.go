package cmd

import (
	"github.com/spf13/cobra"

	"kickpass/safe"
)

var renameCmd = &cobra.Command{
	Use:   "rename <old> <new>",
	Short: "Rename a safe",
	Args:  cobra.ExactArgs(2),
	RunE:  runRename,
}

func init() {
	rootCmd.AddCommand(renameCmd)
}

func runRename(cmd *cobra.Command, args []string) error {
	oldName, newName := args[0], args[1]

	ctx, err := newContext()
	if err != nil {
		return err
	}
	defer ctx.Close()

	s, err := safe.New(oldName)
	if err != nil {
		return err
	}
	if err := s.Open(ctx, 0); err != nil {
		return err
	}
	defer s.Close()

	return s.Rename(ctx, newName)
}
