package cmd

import (
	"fmt"
	"strconv"

	"canopy/internal/listener"

	"github.com/spf13/cobra"
)

// authListenerCmd is the hidden child-process entry point of the browser
// login: `canopy login` re-executes this binary with this command so the
// redirect listener runs as an independent process. All configuration
// arrives through environment variables; the only argument is the port.
var authListenerCmd = &cobra.Command{
	Use:    "auth-listener <port>",
	Short:  "Run the local login redirect listener (internal)",
	Hidden: true,
	Args:   cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		port, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid port %q: %w", args[0], err)
		}

		cfg, err := listener.ConfigFromEnv()
		if err != nil {
			return err
		}

		return listener.NewServer(cfg).Run(cmd.Context(), port)
	},
}

func init() {
	rootCmd.AddCommand(authListenerCmd)
}
