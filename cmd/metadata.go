package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// Metadata-specific flags
var (
	metadataIssuer  string
	metadataRefresh bool
)

// metadataCmd represents the metadata command
var metadataCmd = &cobra.Command{
	Use:   "metadata",
	Short: "Show the authorization server metadata",
	Long: `Discover and show the authorization server metadata.

The server is queried via RFC 8414 discovery, falling back to the OpenID
Connect well-known location. This verifies connectivity and shows which
endpoints logins and refreshes will use.

Examples:
  esiauth metadata                     # Discover the configured issuer
  esiauth metadata --issuer <url>      # Discover a different issuer
  esiauth metadata --refresh           # Bypass the cached metadata`,
	RunE: runMetadata,
}

func init() {
	metadataCmd.Flags().StringVar(&metadataIssuer, "issuer", "", "Issuer URL to discover (default from config)")
	metadataCmd.Flags().BoolVar(&metadataRefresh, "refresh", false, "Discard cached metadata and refetch")

	rootCmd.AddCommand(metadataCmd)
}

func runMetadata(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	env, err := buildEnv()
	if err != nil {
		return err
	}

	issuer := metadataIssuer
	if issuer == "" {
		issuer = env.cfg.SSO.MetadataIssuer
	}

	if metadataRefresh {
		env.oauthClient.ClearMetadataCache()
	}

	md, err := env.oauthClient.DiscoverMetadata(ctx, issuer)
	if err != nil {
		return fmt.Errorf("metadata discovery failed for %s: %w", issuer, describeConnectionError(err))
	}

	fmt.Printf("Issuer:          %s\n", md.Issuer)
	fmt.Printf("Authorize:       %s\n", md.AuthorizationEndpoint)
	fmt.Printf("Token:           %s\n", md.TokenEndpoint)
	if md.JwksURI != "" {
		fmt.Printf("JWKS:            %s\n", md.JwksURI)
	}
	if md.RevocationEndpoint != "" {
		fmt.Printf("Revocation:      %s\n", md.RevocationEndpoint)
	}
	fmt.Printf("PKCE (S256):     %v\n", md.SupportsPKCE())
	if len(md.ScopesSupported) > 0 {
		fmt.Printf("Scopes:          %s\n", strings.Join(md.ScopesSupported, " "))
	}
	return nil
}
