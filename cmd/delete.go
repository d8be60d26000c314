package cmd

import (
	"github.com/spf13/cobra"

	"kickpass/safe"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a safe",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
	name := args[0]

	ctx, err := newContext()
	if err != nil {
		return err
	}
	defer ctx.Close()

	s, err := safe.New(name)
	if err != nil {
		return err
	}
	if err := s.Open(ctx, 0); err != nil {
		return err
	}
	defer s.Close()

	return s.Delete(ctx)
}
