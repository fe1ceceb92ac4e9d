package cmd

import (
	"github.com/spf13/cobra"
)

// logoutCmd represents the logout command
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear the stored Canopy session",
	Long: `Clear the stored Canopy session.

The session is invalidated on the platform (best effort) and removed
locally, requiring you to log in again for subsequent commands.`,
	RunE: runLogout,
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}

func runLogout(cmd *cobra.Command, args []string) error {
	ws, err := buildWorkspace()
	if err != nil {
		return err
	}

	sess := ws.store.Current()
	if sess == nil {
		cliPrintln("Not logged in.")
		return nil
	}

	// Best effort: a dead or unreachable control plane must not keep the
	// local session around.
	if err := ws.clients.Get().InvalidateSession(cmd.Context()); err != nil {
		cliPrint("Warning: could not invalidate the session remotely: %v\n", err)
	}

	ws.identities.Flush()
	if err := ws.store.Clear(); err != nil {
		return err
	}
	ws.clients.Reset()

	cliPrintln("Logged out.")
	return nil
}
