// Package prompt defines the password-prompt contract the core calls
// when it needs a master passphrase and the context's buffer is
// empty, plus a default TTY-backed implementation.
package prompt

import kperrors "kickpass/errors"

// Func reads a passphrase and returns it. If confirm is true, it must read
// twice and fail EInput on mismatch. purpose is a short, human-readable
// description of what the passphrase is for (e.g. a safe name),
// included in the prompt text.
type Func func(confirm bool, purpose string) (passphrase []byte, err error)

// None is installed in a context with no prompt callback. Calling it
// always fails NoPrompt, matching spec.md §4.10.
func None(confirm bool, purpose string) ([]byte, error) {
	return nil, kperrors.ErrNoPromptInstalled
}
