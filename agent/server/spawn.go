package server

import (
	"net"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	kperrors "kickpass/errors"
	"kickpass/logging"
)

// detachedEnv marks a re-exec'd child as the actual detached agent
// process, so it knows to inherit the pre-bound listener fd instead of
// binding a fresh one.
const detachedEnv = "KICKPASS_AGENT_DETACHED"

// Detach re-execs the current process in the background with the
// already-bound listener's file descriptor inherited. It returns once
// the background process has started and does not exit the caller
// itself. It must be called before Run.
func Detach(listener net.Listener, sockDir string) error {
	uln, ok := listener.(*net.UnixListener)
	if !ok {
		return kperrors.New(kperrors.EInternal, "detach agent", "listener is not a unix socket")
	}
	lf, err := uln.File()
	if err != nil {
		return kperrors.FromErrno(err, "export listener fd")
	}
	defer lf.Close()

	devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return kperrors.FromErrno(err, "open /dev/null")
	}
	defer devNull.Close()

	cmd := exec.Command(os.Args[0], os.Args[1:]...)
	cmd.Env = append(os.Environ(), detachedEnv+"=1")
	cmd.Stdin = devNull
	cmd.Stdout = devNull
	cmd.Stderr = devNull
	cmd.ExtraFiles = []*os.File{lf}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return kperrors.FromErrno(err, "start detached agent")
	}
	return nil
}

// IsDetachedChild reports whether this process is the re-exec'd
// background agent spawned by Detach.
func IsDetachedChild() bool {
	return os.Getenv(detachedEnv) == "1"
}

// InheritedListener reconstructs the listener passed down by Detach
// via ExtraFiles (always fd 3, the first file after stdin/stdout/stderr).
func InheritedListener() (net.Listener, error) {
	f := os.NewFile(3, "kickpass-agent-listener")
	l, err := net.FileListener(f)
	if err != nil {
		return nil, kperrors.FromErrno(err, "inherit agent listener")
	}
	return l, nil
}

// SpawnSubcommand execs args with sockPath exported as KP_AGENT_SOCK,
// waits for it to exit, and relays its exit status. It calls shutdown
// once the child exits, per spec.md §6 ("exits when the child exits,
// relaying the child's exit status").
func SpawnSubcommand(args []string, sockPath string, shutdown func()) int {
	defer shutdown()

	cmd := exec.Command(args[0], args[1:]...)
	cmd.Env = append(os.Environ(), SockEnv+"="+sockPath)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		logging.Error("agent failed to start subcommand", "error", err)
		return 1
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGCHLD)
	defer signal.Stop(sigCh)
	signal.Ignore(syscall.SIGPIPE)

	err := cmd.Wait()
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if kperrors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	logging.Error("agent subcommand wait failed", "error", err)
	return 1
}
