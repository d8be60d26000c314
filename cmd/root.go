// Package cmd implements the kickpass CLI commands.
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"kickpass/agent/client"
	"kickpass/logging"
	"kickpass/prompt"
	"kickpass/safe"
	"kickpass/workspace"
)

// Version information set at build time.
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
)

// Global flags.
var (
	globalRoot      string
	globalLog       string
	globalLogFormat string
	globalDebug     bool
)

// rootCmd is the base command for kickpass.
var rootCmd = &cobra.Command{
	Use:   "kickpass",
	Short: "A command-line password manager",
	Long: `kickpass stores each credential ("safe") as an independently
encrypted file under a per-user workspace, optionally served by a
long-running agent that caches decrypted safes in memory for a bounded
time.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging()
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&globalRoot, "root", "", "workspace root directory (default: $HOME/.kickpass)")
	rootCmd.PersistentFlags().StringVar(&globalLog, "log", "", "set the log file path")
	rootCmd.PersistentFlags().StringVar(&globalLogFormat, "log-format", "text", "set the format for log output (text or json)")
	rootCmd.PersistentFlags().BoolVar(&globalDebug, "debug", false, "enable debug logging")
}

func setupLogging() {
	logOutput := os.Stderr
	if globalLog != "" {
		f, err := os.OpenFile(globalLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err == nil {
			logOutput = f
		}
	}

	levelName := "info"
	if globalDebug {
		levelName = "debug"
	}
	logLevel := logging.ParseLevel(levelName)

	if globalLogFormat == "json" || globalLog != "" {
		logger := logging.NewLogger(logging.Config{
			Level:  logLevel,
			Format: globalLogFormat,
			Output: logOutput,
		})
		logging.SetDefault(logger)
	}
}

// workspaceRoot returns the configured workspace root, falling back to
// $HOME/.kickpass.
func workspaceRoot() (string, error) {
	if globalRoot != "" {
		return globalRoot, nil
	}
	return workspace.DefaultDir()
}

// newContext opens the workspace, dials whatever agent KP_AGENT_SOCK
// names (tolerating no agent being present), and installs the
// interactive TTY prompt as the password-prompt callback. Callers must
// defer ctx.Close().
func newContext() (*safe.Context, error) {
	root, err := workspaceRoot()
	if err != nil {
		return nil, err
	}
	ws, err := workspace.Open(root)
	if err != nil {
		return nil, err
	}
	agent := client.DialEnv()
	return safe.NewContext(ws, agent, prompt.TTY)
}
