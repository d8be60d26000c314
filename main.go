// kickpass is a command-line password manager that stores each
// credential ("safe") as an independently encrypted file, optionally
// served by a long-running agent that caches decrypted safes in
// memory for a bounded time.
package main

import (
	"fmt"
	"os"

	"kickpass/cmd"
	kperrors "kickpass/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "kickpass: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps a returned error to a process exit code equal to its
// *errors.Error Kind, per spec.md §6 ("non-zero mirrors the
// error_kind numeric value for diagnostic purposes"). Errors that
// aren't *errors.Error (e.g. cobra's own usage errors) exit 1.
func exitCode(err error) int {
	kind, ok := kperrors.GetKind(err)
	if !ok {
		return 1
	}
	if kind == kperrors.Exit {
		return 0
	}
	code := int(kind)
	if code == 0 {
		return 1
	}
	return code
}
