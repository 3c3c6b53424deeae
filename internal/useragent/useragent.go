// Package useragent builds the User-Agent string sent with every outbound
// request, following the ESI developer guidelines: identify the
// application, its version, and a way to contact the operator.
package useragent

import (
	"fmt"
	"strings"
)

const (
	// DefaultAppName is used when no application name is configured.
	DefaultAppName = "esiauth"

	// repoURL lets the provider find the source of the traffic.
	repoURL = "https://github.com/esi-tools/esiauth"
)

// Build assembles a User-Agent value. An empty appName falls back to
// DefaultAppName, and an empty contact omits the parenthetical.
//
//	esiauth/1.4.0 (ops@example.com) (+https://github.com/esi-tools/esiauth)
func Build(appName, version, contact string) string {
	if appName == "" {
		appName = DefaultAppName
	}
	if version == "" {
		version = "dev"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s/%s", appName, version)
	if contact != "" {
		fmt.Fprintf(&b, " (%s)", contact)
	}
	fmt.Fprintf(&b, " (+%s)", repoURL)
	return b.String()
}
