package ports

import "errors"

// Standard application-level errors.
// Adapters should wrap underlying infrastructure errors with these standard errors.
var (
	// General Errors
	ErrUnknown            = errors.New("unknown error occurred")
	ErrInvalidRequest     = errors.New("invalid request parameters or format")
	ErrNotFound           = errors.New("resource not found")
	ErrTimeout            = errors.New("operation timed out")
	ErrContextCanceled    = errors.New("operation canceled via context")
	ErrConfigurationError = errors.New("invalid or missing configuration")

	// Quote Source Errors
	ErrQuoteUnavailable = errors.New("no quote data available for symbol")
	ErrConnectionFailed = errors.New("failed to connect to the market data source")

	// Advisory Capability Errors
	ErrRateLimited      = errors.New("API rate limit or quota exceeded")
	ErrModelUnavailable = errors.New("advisory model or endpoint not found")
	ErrEmptyResponse    = errors.New("advisory capability returned an empty response")

	// Database Specific Errors
	ErrDBConnection = errors.New("database connection error")
	ErrQueryFailed  = errors.New("database query failed")
	ErrUpdateFailed = errors.New("database update failed")
)
