package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"canopy/internal/auth"
	"canopy/internal/session"
	"canopy/pkg/browser"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Login-specific flags
var loginForce bool

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate to the Canopy platform",
	Long: `Authenticate to the Canopy platform using your browser.

This command starts a short-lived listener on your machine, opens the
platform's login page in your browser, and captures the resulting
authorization code to establish a CLI session.

Examples:
  canopy login            # Browser-based login
  canopy login --force    # Replace an existing session without asking`,
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().BoolVar(&loginForce, "force", false, "Replace an existing session without confirmation")
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// Pre-flight: a token provided through the environment is a
	// non-interactive credential; browser login must not fight it.
	if os.Getenv(envTokenVar) != "" {
		return &auth.AlreadyAuthenticatedError{Source: "environment"}
	}

	ws, err := buildWorkspace()
	if err != nil {
		return err
	}

	if ws.store.Current().Valid() && !loginForce {
		// Never hang a script on a confirmation prompt.
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return &auth.AlreadyAuthenticatedError{Source: "session"}
		}

		fmt.Print("You are already logged in. Log in again? [y/N]: ")
		reader := bufio.NewReader(os.Stdin)
		response, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "y" && response != "yes" {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	// The invalidator is built before the flow runs so it is bound to the
	// old session's token.
	persister := session.NewPersister(ws.store, ws.clients.Get(), ws.identities, ws.clients)

	flow := &auth.Flow{
		AppName:        "Canopy",
		AuthorizeURL:   ws.cfg.OAuth.AuthorizeURL,
		PortRangeStart: ws.cfg.Login.PortRangeStart,
		PortRangeEnd:   ws.cfg.Login.PortRangeEnd,
		Timeout:        ws.cfg.Login.Timeout,
		Exchanger:      auth.NewExchanger(ws.cfg.OAuth.TokenURL, ws.cfg.OAuth.ClientID, ws.cfg.API.InsecureSkipTLSVerify),
		Sessions:       persister,
		OpenBrowser:    browser.Open,
		Out:            cmd.OutOrStdout(),
		Quiet:          rootQuiet,
	}

	if _, err := flow.Run(ctx); err != nil {
		return err
	}

	user, err := ws.clients.Get().CurrentUser(ctx)
	if err != nil {
		// The session is saved; only the identity lookup failed.
		cliPrint("%s Logged in, but could not fetch your account details: %v\n", text.FgYellow.Sprint("!"), err)
		return nil
	}

	cliPrint("%s Logged in as %s (%s)\n", text.FgGreen.Sprint("✓"), user.Username, user.Email)
	return nil
}
