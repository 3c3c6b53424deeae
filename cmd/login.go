package cmd

import (
	"fmt"
	"time"

	"esiauth/internal/cli"
	"esiauth/internal/sso"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

// Login-specific flags
var (
	loginClientID  string
	loginScopes    []string
	loginNoBrowser bool
)

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authorize a character via the SSO",
	Long: `Authorize an EVE Online character via the SSO.

This command starts a local callback listener, opens the SSO authorization
page in your browser, and stores the resulting token once you approve the
request. The token is validated against the SSO signing keys before it is
persisted.

Examples:
  esiauth login                          # Use the stored credentials
  esiauth login --client-id <id>         # Use a specific application
  esiauth login --scopes publicData      # Request specific scopes
  esiauth login --no-browser             # Print the URL instead of opening it`,
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().StringVar(&loginClientID, "client-id", "", "Application client id to authenticate with")
	loginCmd.Flags().StringSliceVar(&loginScopes, "scopes", nil, "Scopes to request (comma-separated)")
	loginCmd.Flags().BoolVar(&loginNoBrowser, "no-browser", false, "Do not open a browser, only print the authorization URL")

	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	env, err := buildEnv()
	if err != nil {
		return err
	}

	creds, err := env.resolveCredentials(loginClientID)
	if err != nil {
		return err
	}

	scopes := loginScopes
	if len(scopes) == 0 {
		scopes = creds.Scopes
	}
	if len(scopes) == 0 {
		scopes = env.cfg.DefaultScopes
	}

	auth := sso.NewAuthenticator(env.oauthClient, env.validator, env.tokens, sso.Config{
		ClientID:              creds.ClientID,
		Scopes:                scopes,
		AuthorizationEndpoint: env.cfg.SSO.AuthorizationEndpoint,
		TokenEndpoint:         env.cfg.SSO.TokenEndpoint,
		CallbackHost:          env.cfg.Callback.Host,
		CallbackPort:          env.cfg.Callback.Port,
		CallbackTimeout:       env.cfg.CallbackTimeout(),
	})

	flow, err := auth.StartLogin(ctx)
	if err != nil {
		return &cli.AuthFailedError{Reason: err}
	}

	if loginNoBrowser {
		fmt.Printf("Open this URL in your browser:\n  %s\n\n", flow.AuthorizationURL)
	} else {
		uiPrintln("Opening browser for authorization...")
		if err := sso.OpenBrowser(flow.AuthorizationURL); err != nil {
			uiPrintln("Could not open browser automatically.")
			fmt.Printf("\nPlease open this URL in your browser:\n  %s\n\n", flow.AuthorizationURL)
		}
	}

	// Another esiauth process may rotate refresh tokens while we sit in the
	// browser wait; pick those up instead of clobbering them on save.
	stopWatch := env.startTokenWatcher()
	defer stopWatch()

	var s *spinner.Spinner
	if !rootQuiet {
		s = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		s.Suffix = " Waiting for authorization in browser..."
		s.Start()
	}

	t, err := flow.Wait(ctx)

	if s != nil {
		s.Stop()
	}

	if err != nil {
		return &cli.AuthFailedError{Reason: describeConnectionError(err)}
	}

	uiPrint("%s Logged in as %s (%d)\n", text.FgGreen.Sprint("✓"), t.CharacterName, t.CharacterID)
	uiPrint("  Scopes:   %v\n", t.Scopes)
	uiPrint("  Expires:  %s\n", formatExpiryWithDirection(t.ExpiresAt))
	return nil
}
