// Package logging is the structured logger shared by the course store
// client. Every call takes the request context so API traffic, session
// changes and cart hydration can be traced with the same key/value fields.
// SlogLogger is the only implementation; Discard silences it in tests.
package logging

import "context"

// Logger is what stores, services and the API client log through. Args are
// key/value pairs:
//
//	log.Info(ctx, "cart hydrated", "user_id", id, "items", n)
type Logger interface {
	// Debug is for per-request detail: method, path, status, request id.
	Debug(ctx context.Context, msg string, args ...any)
	// Info records session and account events.
	Info(ctx context.Context, msg string, args ...any)
	// Warn is for failures the client recovers from, such as a failed
	// background hydrate or a dropped notification.
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a logger that adds args to every record, e.g. the
	// component name or user id.
	With(args ...any) Logger
}
