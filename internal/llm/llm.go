package llm

import (
	"context"
	"encoding/json"
	"errors"
)

// Client abstracts generative-AI providers for document extraction.
type Client interface {
	ExtractDocument(ctx context.Context, input ExtractInput) (json.RawMessage, error)
}

// ExtractInput captures the inputs for a structured extraction call.
type ExtractInput struct {
	SystemPrompt string
	DocumentText string
}

// ErrRateLimited signals a provider rate-limit or quota-exhaustion response.
// Callers use it to decide whether a retry with backoff is worthwhile.
var ErrRateLimited = errors.New("llm rate limited")

// IsRateLimited reports whether err is (or wraps) a rate-limit error.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}
