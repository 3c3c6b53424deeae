package cmd

import (
	"os"
	"strings"

	"esiauth/internal/cli"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// Status-specific flags
var (
	statusClientID string
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show stored tokens and their expiry",
	Long: `Show every stored character token, which application it belongs to,
and how long it remains valid.

Tokens inside the configured refresh buffer show as Expiring; run
'esiauth refresh' to renew them.

Examples:
  esiauth status                       # Show all stored tokens
  esiauth status --client-id <id>      # Show tokens of one application`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusClientID, "client-id", "", "Only show tokens of this application")

	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	env, err := buildEnv()
	if err != nil {
		return err
	}

	tokens := env.tokensForClient(statusClientID)
	if len(tokens) == 0 {
		return &cli.AuthRequiredError{}
	}

	buffer := env.cfg.RefreshBuffer()

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"CHARACTER", "ID", "CLIENT", "SCOPES", "STATE", "EXPIRES"})

	for _, tok := range tokens {
		t.AppendRow(table.Row{
			tok.CharacterName,
			tok.CharacterID,
			tok.ClientID,
			strings.Join(tok.Scopes, " "),
			formatTokenState(tok, buffer),
			formatExpiryWithDirection(tok.ExpiresAt),
		})
	}

	t.Render()
	return nil
}
