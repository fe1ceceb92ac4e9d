package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"canopy/internal/auth"
	"canopy/internal/config"
	"canopy/pkg/logging"

	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
// These follow common conventions so scripts can distinguish failure modes.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeAuthRequired indicates authentication is required but not available.
	ExitCodeAuthRequired = 2
	// ExitCodeAuthFailed indicates the browser login flow failed.
	ExitCodeAuthFailed = 3
)

var (
	rootConfigPath string
	rootQuiet      bool
)

// rootCmd represents the base command for the canopy application.
var rootCmd = &cobra.Command{
	Use:   "canopy",
	Short: "Deploy and manage applications on the Canopy platform",
	Long: `canopy is the command-line client for the Canopy application platform.

It authenticates you against the platform with a browser-based login and
stores the resulting session for subsequent commands.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors
	// that are handled by the application.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the
// application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application.
// It installs signal handling so an operator interrupt during the browser
// wait still runs the login flow's cleanup path, then executes the root
// command. This function is called by main.main().
func Execute() {
	logging.InitDefault()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "canopy version %s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
// This provides semantic exit codes for scripting and automation.
func getExitCode(err error) int {
	var alreadyAuthed *auth.AlreadyAuthenticatedError
	if errors.As(err, &alreadyAuthed) {
		return ExitCodeError
	}

	var notLoggedIn *notLoggedInError
	if errors.As(err, &notLoggedIn) {
		return ExitCodeAuthRequired
	}

	// Every terminal failure of the login flow maps to the same code.
	var noPort *auth.NoPortAvailableError
	var listenerStart *auth.ListenerStartError
	var handoffMissing *auth.HandoffMissingError
	var noCode *auth.NoCodeReceivedError
	var exchange *auth.TokenExchangeError
	if errors.As(err, &noPort) || errors.As(err, &listenerStart) ||
		errors.As(err, &handoffMissing) || errors.As(err, &noCode) ||
		errors.As(err, &exchange) {
		return ExitCodeAuthFailed
	}

	return ExitCodeError
}

// notLoggedInError indicates a command that needs a session was run without
// one.
type notLoggedInError struct{}

// Error returns a user-friendly error message with actionable guidance.
func (e *notLoggedInError) Error() string {
	return `Not logged in.

To authenticate, run:
  canopy login`
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootConfigPath, "config-path", config.GetDefaultConfigPathOrPanic(), "Configuration directory")
	rootCmd.PersistentFlags().BoolVarP(&rootQuiet, "quiet", "q", false, "Suppress non-essential output")

	rootCmd.AddCommand(newVersionCmd())
}

// cliPrint prints output only if the --quiet flag is not set.
// Use this for progress messages and non-essential output.
func cliPrint(format string, args ...interface{}) {
	if !rootQuiet {
		fmt.Printf(format, args...)
	}
}

// cliPrintln prints a line only if the --quiet flag is not set.
func cliPrintln(a ...interface{}) {
	if !rootQuiet {
		fmt.Println(a...)
	}
}
