// Package logging provides structured logging for esiauth with unified log
// handling and level filtering.
//
// The package is a thin wrapper over Go's standard log/slog. All log entries
// carry a subsystem identifier (Auth, Callback, Store, Refresh, Config,
// Bootstrap) so output can be filtered and categorized.
//
// Initialize once at startup:
//
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//
// then log through the level helpers:
//
//	logging.Info("Auth", "authorization flow %s started", flowID)
//	logging.Error("Store", err, "failed to persist token")
//
// Token material (access tokens, refresh tokens, code verifiers) must never
// be passed to any log call.
package logging
