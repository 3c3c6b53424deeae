// Package cli holds shared helpers for the esiauth command surface:
// error types that carry actionable guidance for the user and the
// classification of transport failures into readable categories.
//
// The error types here map to the process exit codes in package cmd, so
// scripts can distinguish "nothing stored, log in first" from "the login
// itself failed".
package cli
