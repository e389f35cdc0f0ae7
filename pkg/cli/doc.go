// Package cli provides shared helpers for the sentinel command line:
// typed errors with exit-friendly messages, output formatting for text
// and JSON, and signal-aware context setup.
package cli
