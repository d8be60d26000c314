package cmd

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"kickpass/agent/server"
)

var agentDetach bool

var agentCmd = &cobra.Command{
	Use:   "agent [-d] [cmd args...]",
	Short: "Run the kickpass agent",
	Long: `Run the kickpass agent, a local process that caches decrypted
safes in memory for a bounded time. With no arguments it runs until
signaled. Given a subcommand, it spawns that subcommand with
KP_AGENT_SOCK exported and exits with its exit status once the child
exits.`,
	Args: cobra.ArbitraryArgs,
	RunE: runAgent,
}

func init() {
	agentCmd.Flags().BoolVarP(&agentDetach, "detach", "d", false, "detach into the background after starting")
	rootCmd.AddCommand(agentCmd)
}

func runAgent(cmd *cobra.Command, args []string) error {
	if server.IsDetachedChild() {
		listener, err := server.InheritedListener()
		if err != nil {
			return err
		}
		return serveAgent(listener, "", nil)
	}

	listener, sockDir, err := server.Listen()
	if err != nil {
		return err
	}
	sockPath := listener.Addr().String()

	if agentDetach {
		if err := server.Detach(listener, sockDir); err != nil {
			listener.Close()
			server.Cleanup(sockDir)
			return err
		}
		listener.Close()
		return server.AnnounceSock(cmd.OutOrStdout(), sockPath)
	}

	if err := server.AnnounceSock(cmd.OutOrStdout(), sockPath); err != nil {
		listener.Close()
		server.Cleanup(sockDir)
		return err
	}

	return serveAgent(listener, sockDir, args)
}

// serveAgent runs the agent's event loop. With args it spawns args[0]
// as a subcommand (KP_AGENT_SOCK exported) and exits once it does,
// relaying its exit status (spec.md §4.8). With no args it runs until
// SIGINT/SIGTERM, per spec.md §5's "SIGCHLD exits the loop when a
// subcommand is attached; SIGPIPE is ignored; no other signal handling
// is required" (a bare agent has no spawned child to watch, so it
// instead exits on the ordinary interrupt signals).
func serveAgent(listener net.Listener, sockDir string, args []string) error {
	srv := server.New(listener)
	sockPath := listener.Addr().String()

	cleanup := func() {
		srv.Shutdown()
		if sockDir != "" {
			server.Cleanup(sockDir)
		}
	}

	if len(args) > 0 {
		go srv.Run()
		code := server.SpawnSubcommand(args, sockPath, cleanup)
		os.Exit(code)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	signal.Ignore(syscall.SIGPIPE)

	go func() {
		<-ctx.Done()
		cleanup()
	}()

	err := srv.Run()
	cleanup()
	return err
}
