// Package logging provides opt-in file-based structured logging with
// rotation for the router core. When debug mode is enabled, comprehensive
// logs are written to ~/.foldermind/logs/ for troubleshooting; otherwise
// logging stays minimal and goes to stderr only.
//
// LogRouterError logs a *routererrors.RouterError by its own taxonomy —
// code, category, severity, stage, provider kind — rather than a flattened
// message, and maps RouterError.Severity to the slog level instead of
// leaving that choice to the call site. IncidentWriter mirrors any entry
// logged at Fatal/Error severity into a sibling incidents file so a stage
// failure doesn't get lost in high-volume debug output.
//
// Logging is strictly observational: the core never branches on whether a
// log write succeeded, and the duplicate-detector's non-fatal errors (§7)
// are logged here, not returned to callers.
package logging
