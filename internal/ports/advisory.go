package ports

import "context"

// AdvisoryModel defines the interface for one request/response round trip to
// an external judgment capability. The caller supplies the credential and
// model name so it can rotate through a pool of them; the adapter must wrap
// endpoint failures with ErrModelUnavailable (model not found) or
// ErrRateLimited (quota signaled) so the rotation logic can classify them.
type AdvisoryModel interface {
	// Generate sends a free-form prompt and returns the raw response text.
	Generate(ctx context.Context, apiKey, model, prompt string) (string, error)
}
