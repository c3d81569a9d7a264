package ai

import "context"

// Oracle is the external text-generation backend, used as a stateless
// text-in/text-out function. Implementations must be thread-safe for
// concurrent use; the pipeline fans out tens of concurrent invocations.
type Oracle interface {
	// Invoke sends a prompt to the backend and returns the raw response text.
	// Temperature is the sampling temperature. ReasoningBudget constrains
	// the backend's thinking: -1 leaves the backend default, 0 disables
	// thinking, a positive value caps it in tokens.
	//
	// A malformed or empty response is returned as-is; parsing and
	// validation are the caller's responsibility. Transient backend
	// failures are retried with exponential backoff before being surfaced
	// wrapped in ErrTransientBackend.
	Invoke(ctx context.Context, prompt string, temperature float64, reasoningBudget int) (string, error)
}
