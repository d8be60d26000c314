package server

import (
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"

	kperrors "kickpass/errors"
)

// SockEnv mirrors client.SockEnv; duplicated here (rather than
// imported) to avoid a server→client package dependency neither side
// needs otherwise.
const SockEnv = "KP_AGENT_SOCK"

// Listen creates a restrictive-mode temporary directory under
// /tmp/kickpass-XXXXXX, binds a stream socket named agent.<pid> inside
// it, and returns the listener plus the directory's path so the caller
// can clean it up on shutdown (spec.md §6 socket lifecycle).
func Listen() (net.Listener, string, error) {
	dir, err := os.MkdirTemp("", "kickpass-")
	if err != nil {
		return nil, "", kperrors.FromErrno(err, "create agent socket dir")
	}
	if err := os.Chmod(dir, 0700); err != nil {
		os.RemoveAll(dir)
		return nil, "", kperrors.FromErrno(err, "chmod agent socket dir")
	}

	path := filepath.Join(dir, fmt.Sprintf("agent.%d", os.Getpid()))
	l, err := net.Listen("unix", path)
	if err != nil {
		os.RemoveAll(dir)
		return nil, "", kperrors.FromErrno(err, "listen agent socket")
	}
	return l, dir, nil
}

// AnnounceSock writes the one-line KP_AGENT_SOCK=<path> announcement
// to w (standard output in production), consumed by the launching
// process or shell to export the variable for clients.
func AnnounceSock(w io.Writer, sockPath string) error {
	_, err := fmt.Fprintf(w, "%s=%s\n", SockEnv, sockPath)
	if err != nil {
		return kperrors.FromErrno(err, "write agent sock announcement")
	}
	return nil
}

// Cleanup best-effort removes the socket file and its parent
// directory.
func Cleanup(dir string) {
	os.RemoveAll(dir)
}
