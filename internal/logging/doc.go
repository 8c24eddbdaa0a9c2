// Package logging assembles structured slog loggers for the audioshelf
// daemon and CLI.
//
// It owns the console and JSON handlers, level and output plumbing, and a
// few helpers that keep warning and error lines shaped consistently
// (event_type, error_hint, impact). Request-scoped fields such as the
// request id and user id travel on the context and are attached with
// WithContext. NewNop is provided for tests and wiring that cannot fail.
package logging
