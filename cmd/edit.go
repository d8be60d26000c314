package cmd

import (
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	kperrors "kickpass/errors"
	"kickpass/safe"
)

var (
	editPassword bool
	editMetadata bool
	editGenerate bool
	editLength   int
)

var editCmd = &cobra.Command{
	Use:   "edit <name>",
	Short: "Edit a safe's password and/or metadata",
	Args:  cobra.ExactArgs(1),
	RunE:  runEdit,
}

func init() {
	editCmd.Flags().BoolVarP(&editPassword, "password", "p", false, "edit the password in $EDITOR")
	editCmd.Flags().BoolVarP(&editMetadata, "metadata", "m", false, "edit the metadata in $EDITOR")
	editCmd.Flags().BoolVarP(&editGenerate, "generate", "g", false, "replace the password with a freshly generated one instead of invoking $EDITOR")
	editCmd.Flags().IntVarP(&editLength, "length", "l", 0, "length of the generated password (with -g)")
	rootCmd.AddCommand(editCmd)
}

func runEdit(cmd *cobra.Command, args []string) error {
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

	editPwd := editPassword || editGenerate
	editMeta := editMetadata || (!editPwd && !editMetadata)

	if editGenerate {
		password, err := safe.GeneratePassword(editLength)
		if err != nil {
			return err
		}
		if err := s.SetPassword([]byte(password)); err != nil {
			return err
		}
	} else if editPwd {
		edited, err := editInEditor(s.Password())
		if err != nil {
			return err
		}
		if err := s.SetPassword(edited); err != nil {
			return err
		}
	}

	if editMeta {
		edited, err := editInEditor(s.Metadata())
		if err != nil {
			return err
		}
		if err := s.SetMetadata(edited); err != nil {
			return err
		}
	}

	return s.Save(ctx)
}

// editInEditor writes content to a private temp file, opens $EDITOR on
// it (default "vi" per spec.md §6), and returns the edited bytes.
func editInEditor(content []byte) ([]byte, error) {
	f, err := os.CreateTemp("", "kickpass-edit-")
	if err != nil {
		return nil, kperrors.FromErrno(err, "create edit temp file")
	}
	path := f.Name()
	defer os.Remove(path)

	if err := os.Chmod(path, 0600); err != nil {
		f.Close()
		return nil, kperrors.FromErrno(err, "chmod edit temp file")
	}
	if _, err := f.Write(content); err != nil {
		f.Close()
		return nil, kperrors.FromErrno(err, "write edit temp file")
	}
	if err := f.Close(); err != nil {
		return nil, kperrors.FromErrno(err, "close edit temp file")
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}

	c := exec.Command(editor, path)
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	if err := c.Run(); err != nil {
		return nil, kperrors.Wrap(err, kperrors.EInternal, "run editor")
	}

	edited, err := os.ReadFile(path)
	if err != nil {
		return nil, kperrors.FromErrno(err, "read edit temp file")
	}
	return edited, nil
}
