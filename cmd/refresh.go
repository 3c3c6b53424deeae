package cmd

import (
	"fmt"
	"os"
	"time"

	"esiauth/internal/cli"
	"esiauth/internal/sso"
	"esiauth/internal/token"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

// Refresh-specific flags
var (
	refreshClientID    string
	refreshCharacter   int64
	refreshForce       bool
	refreshBuffer      int
	refreshConcurrency int
)

// refreshCmd represents the refresh command
var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Refresh stored tokens",
	Long: `Refresh stored character tokens against the SSO.

By default only tokens close to expiry are refreshed. Failures are isolated
per character; one revoked refresh token does not stop the others.

Examples:
  esiauth refresh                        # Refresh expiring tokens
  esiauth refresh --force                # Refresh everything
  esiauth refresh --character 91316135   # Refresh one character
  esiauth refresh --buffer 30            # Treat tokens expiring within 30m as stale`,
	RunE: runRefresh,
}

func init() {
	refreshCmd.Flags().StringVar(&refreshClientID, "client-id", "", "Only refresh tokens of this application")
	refreshCmd.Flags().Int64Var(&refreshCharacter, "character", 0, "Only refresh this character id")
	refreshCmd.Flags().BoolVar(&refreshForce, "force", false, "Refresh regardless of remaining lifetime")
	refreshCmd.Flags().IntVar(&refreshBuffer, "buffer", 0, "Refresh tokens expiring within this many minutes (negative disables proactive refresh)")
	refreshCmd.Flags().IntVar(&refreshConcurrency, "concurrency", 0, "Parallel refreshes in a batch")

	rootCmd.AddCommand(refreshCmd)
}

func runRefresh(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	env, err := buildEnv()
	if err != nil {
		return err
	}

	refresher := sso.NewRefresher(env.oauthClient, env.validator, env.cfg.SSO.TokenEndpoint, env.tokens)

	buffer := env.cfg.RefreshBuffer()
	if cmd.Flags().Changed("buffer") {
		buffer = time.Duration(refreshBuffer) * time.Minute
	}
	concurrency := refreshConcurrency
	if concurrency <= 0 {
		concurrency = env.cfg.Refresh.Concurrency
	}

	// Single-character refresh is always forced; the user asked for it.
	if refreshCharacter != 0 {
		t := env.findCharacterToken(refreshCharacter)
		if t == nil {
			return &cli.AuthRequiredError{CharacterID: refreshCharacter}
		}
		if err := refresher.RefreshOne(ctx, t); err != nil {
			if sso.IsPermanentRefreshFailure(err) {
				return &cli.AuthExpiredError{CharacterName: t.CharacterName}
			}
			return fmt.Errorf("failed to refresh %s: %w", t.CharacterName, describeConnectionError(err))
		}
		uiPrint("%s Refreshed %s (%d), expires %s\n",
			text.FgGreen.Sprint("✓"), t.CharacterName, t.CharacterID, formatExpiryWithDirection(t.ExpiresAt))
		return nil
	}

	tokens := env.tokensForClient(refreshClientID)
	if len(tokens) == 0 {
		return &cli.AuthRequiredError{}
	}

	// Pick up rotations written by another esiauth process mid-batch.
	stopWatch := env.startTokenWatcher()
	defer stopWatch()

	outcomes := refresher.RefreshAll(ctx, tokens, sso.RefreshOptions{
		Buffer:      buffer,
		Force:       refreshForce,
		Concurrency: concurrency,
	})

	if !rootQuiet {
		renderRefreshTable(tokens, outcomes)
	}

	failed := sso.Failed(outcomes)
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d tokens failed to refresh", len(failed), len(outcomes))
	}
	return nil
}

// renderRefreshTable prints one row per token with its outcome.
func renderRefreshTable(tokens []*token.CharacterToken, outcomes []sso.RefreshOutcome) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"CHARACTER", "ID", "STATUS", "DETAIL"})

	for i, o := range outcomes {
		detail := ""
		switch o.Status {
		case sso.StatusRefreshed:
			detail = "expires " + formatExpiryWithDirection(tokens[i].ExpiresAt)
		case sso.StatusSkipped:
			detail = "still valid " + formatExpiryWithDirection(tokens[i].ExpiresAt)
		case sso.StatusFailed:
			detail = describeConnectionError(o.Err).Error()
			if sso.IsPermanentRefreshFailure(o.Err) {
				detail = "re-authenticate with 'esiauth login'"
			}
		}
		t.AppendRow(table.Row{o.CharacterName, o.CharacterID, formatRefreshStatus(o.Status), detail})
	}

	t.Render()
}

// formatRefreshStatus renders a refresh outcome status with color.
func formatRefreshStatus(s sso.RefreshStatus) string {
	switch s {
	case sso.StatusRefreshed:
		return text.FgGreen.Sprint("Refreshed")
	case sso.StatusSkipped:
		return text.FgHiBlack.Sprint("Skipped")
	case sso.StatusFailed:
		return text.FgRed.Sprint("Failed")
	default:
		return s.String()
	}
}
