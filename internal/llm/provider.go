// Package llm defines the provider adapter abstraction every LLM backend
// implements, plus the shared request context used to scope per-request
// credentials across concurrent provider calls.
package llm

import (
	"context"
	"time"

	"github.com/sells-group/recommend-consensus/internal/model"
)

// RequestContext is the explicit, per-request credential scope threaded
// through every stage and adapter call by value. It replaces the ambient
// "ask the current async context" storage a managed-runtime implementation
// would use: the orchestrator constructs one per request, and every
// goroutine spawned on behalf of that request captures it by value at
// spawn time, so concurrent requests never observe each other's overrides.
type RequestContext struct {
	userKeys map[string]string
}

// NewRequestContext builds a RequestContext from a request's userApiKeys map.
func NewRequestContext(userKeys map[string]string) RequestContext {
	keys := make(map[string]string, len(userKeys))
	for k, v := range userKeys {
		keys[k] = v
	}
	return RequestContext{userKeys: keys}
}

// KeyFor returns the user-supplied override for providerTag, falling back
// to fallback (typically the process-configured key) when none was supplied.
func (rc RequestContext) KeyFor(providerTag, fallback string) string {
	if v, ok := rc.userKeys[providerTag]; ok && v != "" {
		return v
	}
	return fallback
}

// HasUserKey reports whether the request supplied an override for
// providerTag — this is what lets a user-supplied key activate a provider
// that is otherwise disabled by server configuration.
func (rc RequestContext) HasUserKey(providerTag string) bool {
	v, ok := rc.userKeys[providerTag]
	return ok && v != ""
}

// GenerateRequest is the input to a provider's Generate call.
type GenerateRequest struct {
	RC           RequestContext
	Prompt       string
	MaxResults   int
}

// ValidateRequest is the input to a provider's Validate call: score another
// provider's recommendations.
type ValidateRequest struct {
	RC              RequestContext
	Prompt          string
	SourceRecs      []model.Recommendation
}

// SynthesizeRequest is the input to a provider's Synthesize call: polish a
// ranked candidate list without reordering it.
type SynthesizeRequest struct {
	RC     RequestContext
	Prompt string
	Ranked []model.Recommendation
}

// SynthesizedEntry is one polished entry returned by Synthesize, matched
// back onto the ranked list by case-insensitive name.
type SynthesizedEntry struct {
	Name           string
	Description    string
	Highlights     []string
	WhyRecommended string
}

// Provider is the interface every LLM backend adapter implements. New
// provider = new adapter + registration; no other code changes.
type Provider interface {
	Name() string

	// IsAvailable considers both process configuration and the per-request
	// credential scope: a provider disabled by configuration can still be
	// activated by a user-supplied key.
	IsAvailable(rc RequestContext) bool

	Generate(ctx context.Context, req GenerateRequest) (model.ProviderResult, error)
	Validate(ctx context.Context, req ValidateRequest) (model.CrossValidationResult, error)
	Synthesize(ctx context.Context, req SynthesizeRequest) ([]SynthesizedEntry, error)
}

// GenerateTimeout and SynthesizeTimeout are the default per-call timeouts
// for chat-model adapters. StreamingGenerateTimeout is longer, since a
// streaming aggregator reads its response incrementally.
const (
	GenerateTimeout          = 30 * time.Second
	StreamingGenerateTimeout = 120 * time.Second
	SynthesizeTimeout        = 30 * time.Second
)
