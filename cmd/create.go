package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	kperrors "kickpass/errors"
	"kickpass/safe"
)

var (
	createGenerate bool
	createLength   int
	createPrint    bool
	createTimeout  int
)

var createCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new safe",
	Args:  cobra.ExactArgs(1),
	RunE:  runCreate,
}

func init() {
	createCmd.Flags().BoolVarP(&createGenerate, "generate", "g", false, "generate a random password instead of prompting")
	createCmd.Flags().IntVarP(&createLength, "length", "l", 0, "length of the generated password (implies -g)")
	createCmd.Flags().BoolVarP(&createPrint, "print", "o", false, "print the generated password to stdout")
	createCmd.Flags().IntVarP(&createTimeout, "timeout", "t", 0, "cache the new safe in the agent for SEC seconds")
	rootCmd.AddCommand(createCmd)
}

func runCreate(cmd *cobra.Command, args []string) error {
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
	if err := s.Open(ctx, safe.Create); err != nil {
		return err
	}
	defer s.Close()

	var password string
	if createGenerate || createLength > 0 {
		password, err = safe.GeneratePassword(createLength)
		if err != nil {
			return err
		}
	} else {
		pass, err := ctx.Prompt(true, name)
		if err != nil {
			return err
		}
		password = string(pass)
		for i := range pass {
			pass[i] = 0
		}
	}

	if err := s.SetPassword([]byte(password)); err != nil {
		return err
	}
	if err := s.Save(ctx); err != nil {
		return err
	}

	if createPrint {
		fmt.Fprintln(cmd.OutOrStdout(), password)
	}

	if createTimeout > 0 {
		if err := s.Store(ctx, time.Duration(createTimeout)*time.Second); err != nil && !kperrors.IsKind(err, kperrors.EInput) {
			return err
		}
	}

	return nil
}
