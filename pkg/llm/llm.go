// Package llm abstracts the generative model used by the extraction
// orchestrator and the scheduler core behind a single small interface.
package llm

import (
	"context"
	"time"

	appErrors "github.com/brightpath/studyplan-core/pkg/errors"
)

// Usage reports token accounting for a single completion call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	Latency          time.Duration
}

// CompleteResult carries the raw model output alongside its usage.
type CompleteResult struct {
	Content string
	Usage   Usage
}

// GenerativeModel is the only capability surface the core depends on for
// calling out to a language model. Request shaping, prompt-injection
// hardening, and response parsing live around this interface, not inside it.
type GenerativeModel interface {
	// Complete sends a system prompt and a user payload and returns the raw
	// text response. eventID is attached to latency/usage telemetry.
	Complete(ctx context.Context, systemPrompt, userPayload, eventID string) (CompleteResult, error)
}

// Sentinel errors returned by GenerativeModel implementations, reused from
// the shared error taxonomy so handlers don't need a second mapping layer.
var (
	ErrModelRateLimited    = appErrors.ErrRateLimited
	ErrModelInsufficient   = appErrors.ErrCreditsExhausted
	ErrModelUnavailable    = appErrors.ErrInternal
	ErrModelInvalidOutput  = appErrors.ErrInvalidModelOutput
)
