package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"kickpass/safe"
)

var openTimeout int

var openCmd = &cobra.Command{
	Use:   "open <name>",
	Short: "Open a safe and cache it in the agent",
	Args:  cobra.ExactArgs(1),
	RunE:  runOpen,
}

func init() {
	openCmd.Flags().IntVarP(&openTimeout, "timeout", "t", 0, "cache the safe in the agent for SEC seconds (0 = never expires)")
	rootCmd.AddCommand(openCmd)
}

func runOpen(cmd *cobra.Command, args []string) error {
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

	return s.Store(ctx, time.Duration(openTimeout)*time.Second)
}
