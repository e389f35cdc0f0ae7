// Package logging builds the process-wide structured logger on
// log/slog, with JSON or text output and optional redaction of secrets
// and PII in attribute values.
//
// Components receive a *slog.Logger and scope it with With("component",
// name); the redaction happens in the handler, so no call site can
// accidentally bypass it.
package logging
