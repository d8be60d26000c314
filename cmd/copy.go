package cmd

import (
	"bytes"
	"os/exec"

	"github.com/spf13/cobra"

	kperrors "kickpass/errors"
	"kickpass/safe"
)

var copyMetadata bool

var copyCmd = &cobra.Command{
	Use:   "copy <name>",
	Short: "Copy a safe's password (or metadata) to the X11 clipboard",
	Args:  cobra.ExactArgs(1),
	RunE:  runCopy,
}

func init() {
	copyCmd.Flags().BoolVarP(&copyMetadata, "metadata", "m", false, "copy metadata instead of the password")
	rootCmd.AddCommand(copyCmd)
}

func runCopy(cmd *cobra.Command, args []string) error {
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

	payload := s.Password()
	if copyMetadata {
		payload = s.Metadata()
	}
	return copyToClipboard(payload)
}

// copyToClipboard shells out to an X11 clipboard helper (xclip,
// falling back to xsel), the external collaborator spec.md §1 names
// as out of the core's scope.
func copyToClipboard(data []byte) error {
	helpers := [][]string{
		{"xclip", "-selection", "clipboard"},
		{"xsel", "--clipboard", "--input"},
	}

	var lastErr error
	for _, h := range helpers {
		path, err := exec.LookPath(h[0])
		if err != nil {
			lastErr = err
			continue
		}
		c := exec.Command(path, h[1:]...)
		c.Stdin = bytes.NewReader(data)
		if err := c.Run(); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return kperrors.Wrap(lastErr, kperrors.EInternal, "no clipboard helper available")
}
