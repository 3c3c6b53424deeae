package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"esiauth/internal/cli"

	"github.com/spf13/cobra"
)

// tokensCmd groups the token management subcommands.
var tokensCmd = &cobra.Command{
	Use:   "tokens",
	Short: "Manage stored character tokens",
	Long: `Inspect and remove stored character tokens.

Examples:
  esiauth tokens show 91316135         # Show details for a character
  esiauth tokens remove 91316135       # Forget a character's token
  esiauth tokens clear                 # Forget every stored token`,
}

var tokensShowCmd = &cobra.Command{
	Use:   "show <character-id>",
	Short: "Show details of a stored token",
	Args:  cobra.ExactArgs(1),
	RunE:  runTokensShow,
}

var tokensRemoveCmd = &cobra.Command{
	Use:   "remove <character-id>",
	Short: "Remove a stored token",
	Args:  cobra.ExactArgs(1),
	RunE:  runTokensRemove,
}

// Clear-specific flags
var tokensClearYes bool

var tokensClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every stored token",
	RunE:  runTokensClear,
}

func init() {
	tokensClearCmd.Flags().BoolVarP(&tokensClearYes, "yes", "y", false, "Skip confirmation prompt")

	tokensCmd.AddCommand(tokensShowCmd)
	tokensCmd.AddCommand(tokensRemoveCmd)
	tokensCmd.AddCommand(tokensClearCmd)
	rootCmd.AddCommand(tokensCmd)
}

func parseCharacterID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid character id %q", arg)
	}
	return id, nil
}

func runTokensShow(cmd *cobra.Command, args []string) error {
	characterID, err := parseCharacterID(args[0])
	if err != nil {
		return err
	}

	env, err := buildEnv()
	if err != nil {
		return err
	}

	t := env.findCharacterToken(characterID)
	if t == nil {
		return &cli.AuthRequiredError{CharacterID: characterID}
	}

	fmt.Printf("Character:  %s (%d)\n", t.CharacterName, t.CharacterID)
	fmt.Printf("Client:     %s\n", t.ClientID)
	fmt.Printf("Scopes:     %s\n", strings.Join(t.Scopes, " "))
	fmt.Printf("Type:       %s\n", t.TokenType)
	fmt.Printf("Expires:    %s (%.1f minutes)\n", formatExpiryWithDirection(t.ExpiresAt), t.MinutesUntilExpiry())
	fmt.Printf("Refresh:    %v\n", t.RefreshToken != "")
	fmt.Printf("Created:    %s\n", t.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Printf("Updated:    %s\n", t.UpdatedAt.Format("2006-01-02 15:04:05 MST"))
	return nil
}

func runTokensRemove(cmd *cobra.Command, args []string) error {
	characterID, err := parseCharacterID(args[0])
	if err != nil {
		return err
	}

	env, err := buildEnv()
	if err != nil {
		return err
	}

	t := env.findCharacterToken(characterID)
	if t == nil {
		uiPrint("No stored token for character %d.\n", characterID)
		return nil
	}

	if err := env.tokens.RemoveToken(t.ClientID, t.CharacterID); err != nil {
		return err
	}
	uiPrint("Removed token for %s (%d).\n", t.CharacterName, t.CharacterID)
	return nil
}

func runTokensClear(cmd *cobra.Command, args []string) error {
	env, err := buildEnv()
	if err != nil {
		return err
	}

	all := env.tokens.ListAllTokens()
	if len(all) == 0 {
		uiPrintln("No stored tokens to clear.")
		return nil
	}

	if !tokensClearYes {
		fmt.Printf("The following %d token(s) will be removed:\n", len(all))
		for _, t := range all {
			fmt.Printf("  - %s (%d)\n", t.CharacterName, t.CharacterID)
		}
		fmt.Print("\nAre you sure? [y/N]: ")

		var response string
		if _, err := fmt.Scanln(&response); err != nil && err.Error() != "unexpected newline" {
			return fmt.Errorf("failed to read response: %w", err)
		}
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "y" && response != "yes" {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	if err := env.tokens.Clear(); err != nil {
		return err
	}
	uiPrint("Cleared %d stored token(s).\n", len(all))
	return nil
}
