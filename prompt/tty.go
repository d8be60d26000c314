package prompt

import (
	"bytes"
	"fmt"
	"os"

	"golang.org/x/term"

	kperrors "kickpass/errors"
)

// TTY reads a passphrase from the controlling terminal with echo
// disabled, the same raw-mode-adjacent use of golang.org/x/term the
// core's TTY collaborators already rely on. If confirm is true it
// prompts twice and fails EInput on mismatch.
func TTY(confirm bool, purpose string) ([]byte, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, kperrors.New(kperrors.NoPrompt, "tty prompt", "stdin is not a terminal")
	}

	first, err := readOnce(fd, purpose)
	if err != nil {
		return nil, err
	}
	if !confirm {
		return first, nil
	}

	second, err := readOnce(fd, purpose+" (again)")
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(first, second) {
		return nil, kperrors.ErrPromptMismatch
	}
	return first, nil
}

func readOnce(fd int, purpose string) ([]byte, error) {
	fmt.Fprintf(os.Stderr, "passphrase for %s: ", purpose)
	data, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, kperrors.FromErrno(err, "read passphrase")
	}
	return data, nil
}
