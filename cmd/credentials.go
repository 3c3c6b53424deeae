package cmd

import (
	"fmt"
	"os"

	"esiauth/internal/store"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// credentialsCmd groups the application credential subcommands.
var credentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "Manage registered application credentials",
	Long: `Manage the ESI application credentials used for login.

Credentials identify a public PKCE client registered at
https://developers.eveonline.com; there is no client secret.

Examples:
  esiauth credentials add --client-id <id> --scopes publicData
  esiauth credentials list
  esiauth credentials remove <client-id>`,
}

// Add-specific flags
var (
	credAddClientID    string
	credAddCallbackURL string
	credAddScopes      []string
	credAddForce       bool
)

var credentialsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Store application credentials",
	RunE:  runCredentialsAdd,
}

var credentialsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored application credentials",
	RunE:  runCredentialsList,
}

var credentialsRemoveCmd = &cobra.Command{
	Use:   "remove <client-id>",
	Short: "Remove stored application credentials",
	Args:  cobra.ExactArgs(1),
	RunE:  runCredentialsRemove,
}

func init() {
	credentialsAddCmd.Flags().StringVar(&credAddClientID, "client-id", "", "Application client id (required)")
	credentialsAddCmd.Flags().StringVar(&credAddCallbackURL, "callback-url", "", "Registered redirect URI (default from config)")
	credentialsAddCmd.Flags().StringSliceVar(&credAddScopes, "scopes", nil, "Scopes the application is registered for")
	credentialsAddCmd.Flags().BoolVar(&credAddForce, "force", false, "Replace existing credentials for the same client id")
	_ = credentialsAddCmd.MarkFlagRequired("client-id")

	credentialsCmd.AddCommand(credentialsAddCmd)
	credentialsCmd.AddCommand(credentialsListCmd)
	credentialsCmd.AddCommand(credentialsRemoveCmd)
	rootCmd.AddCommand(credentialsCmd)
}

func runCredentialsAdd(cmd *cobra.Command, args []string) error {
	env, err := buildEnv()
	if err != nil {
		return err
	}

	callbackURL := credAddCallbackURL
	if callbackURL == "" {
		callbackURL = fmt.Sprintf("http://%s:%d/callback", env.cfg.Callback.Host, env.cfg.Callback.Port)
	}
	scopes := credAddScopes
	if len(scopes) == 0 {
		scopes = env.cfg.DefaultScopes
	}

	c := &store.Credentials{
		ClientID:    credAddClientID,
		CallbackURL: callbackURL,
		Scopes:      scopes,
	}
	if err := env.credentials.Add(c, credAddForce); err != nil {
		return err
	}

	uiPrint("Stored credentials for client %s.\n", c.ClientID)
	return nil
}

func runCredentialsList(cmd *cobra.Command, args []string) error {
	env, err := buildEnv()
	if err != nil {
		return err
	}

	list := env.credentials.List()
	if len(list) == 0 {
		uiPrintln("No credentials stored. Add one with 'esiauth credentials add'.")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"CLIENT ID", "CALLBACK URL", "SCOPES", "ADDED"})

	for _, c := range list {
		t.AppendRow(table.Row{
			c.ClientID,
			c.CallbackURL,
			fmt.Sprintf("%v", c.Scopes),
			c.CreatedAt.Format("2006-01-02"),
		})
	}

	t.Render()
	return nil
}

func runCredentialsRemove(cmd *cobra.Command, args []string) error {
	env, err := buildEnv()
	if err != nil {
		return err
	}

	if err := env.credentials.Remove(args[0]); err != nil {
		return err
	}
	uiPrint("Removed credentials for client %s.\n", args[0])
	return nil
}
