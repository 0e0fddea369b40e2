package ports

import "context"

// Logger defines the structured logging contract shared by every service
// loop and adapter. Fields are free-form key/value context; implementations
// decide how to render them, which keeps the services free to swap in
// zerolog, zap, or a test capture without code changes.
type Logger interface {
	// Debug logs a message at Debug level.
	Debug(ctx context.Context, msg string, fields ...map[string]interface{})
	// Info logs a message at Info level.
	Info(ctx context.Context, msg string, fields ...map[string]interface{})
	// Warn logs a message at Warning level.
	Warn(ctx context.Context, msg string, fields ...map[string]interface{})
	// Error logs an error message at Error level.
	Error(ctx context.Context, err error, msg string, fields ...map[string]interface{})
}
