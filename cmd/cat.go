package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"kickpass/safe"
)

var (
	catPassword bool
	catMetadata bool
)

var catCmd = &cobra.Command{
	Use:   "cat <name>",
	Short: "Print a safe's password and/or metadata",
	Args:  cobra.ExactArgs(1),
	RunE:  runCat,
}

func init() {
	catCmd.Flags().BoolVarP(&catPassword, "password", "p", false, "print only the password")
	catCmd.Flags().BoolVarP(&catMetadata, "metadata", "m", false, "print only the metadata")
	rootCmd.AddCommand(catCmd)
}

func runCat(cmd *cobra.Command, args []string) error {
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

	out := cmd.OutOrStdout()
	switch {
	case catPassword:
		fmt.Fprintln(out, string(s.Password()))
	case catMetadata:
		fmt.Fprint(out, string(s.Metadata()))
	default:
		fmt.Fprintln(out, string(s.Password()))
		fmt.Fprint(out, string(s.Metadata()))
	}
	return nil
}
