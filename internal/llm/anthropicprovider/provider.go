// Package anthropicprovider adapts the Anthropic Messages API to the
// llm.Provider interface, following the same "own wrapper types decoupled
// from the vendor SDK" shape as pkg/anthropic.
package anthropicprovider

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/recommend-consensus/internal/llm"
	"github.com/sells-group/recommend-consensus/internal/llm/parse"
	"github.com/sells-group/recommend-consensus/internal/model"
	"github.com/sells-group/recommend-consensus/internal/resilience"
	"github.com/sells-group/recommend-consensus/pkg/anthropic"
)

const ProviderTag = "anthropic"

// Config is the process-level configuration for the Anthropic adapter.
type Config struct {
	Enabled   bool
	APIKey    string
	Model     string
	MaxTokens int64
	Timeout   time.Duration

	// Breaker lets the caller share one circuit breaker per provider name
	// (see resilience.ServiceBreakers) instead of each adapter minting its
	// own. Nil means "build one with package defaults".
	Breaker *resilience.CircuitBreaker
	// Retry overrides the backoff schedule applied to message calls. A
	// zero value falls back to resilience.DefaultRetryConfig.
	Retry resilience.RetryConfig
}

// Provider implements llm.Provider over the Anthropic Messages API.
type Provider struct {
	cfg     Config
	client  anthropic.Client
	limiter *rate.Limiter
	breaker *resilience.CircuitBreaker
	retry   resilience.RetryConfig
}

// New constructs an Anthropic provider adapter. newClient lets tests inject
// a fake anthropic.Client.
func New(cfg Config, newClient func(apiKey string) anthropic.Client) *Provider {
	if newClient == nil {
		newClient = anthropic.NewClient
	}
	var client anthropic.Client
	if cfg.APIKey != "" {
		client = newClient(cfg.APIKey)
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2048
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = llm.GenerateTimeout
	}
	breaker := cfg.Breaker
	if breaker == nil {
		breaker = resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig())
	}
	retry := resilience.FromRetryConfig(cfg.Retry.MaxAttempts, int(cfg.Retry.InitialBackoff/time.Millisecond), int(cfg.Retry.MaxBackoff/time.Millisecond), cfg.Retry.Multiplier, cfg.Retry.JitterFraction)
	retry.OnRetry = resilience.RetryLogger(ProviderTag, "create_message")
	return &Provider{
		cfg:     cfg,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(5), 5),
		breaker: breaker,
		retry:   retry,
	}
}

// Name implements llm.Provider.
func (p *Provider) Name() string { return ProviderTag }

// IsAvailable implements llm.Provider: configuration or a user-supplied key.
func (p *Provider) IsAvailable(rc llm.RequestContext) bool {
	return p.cfg.Enabled || rc.HasUserKey(ProviderTag)
}

func (p *Provider) clientFor(rc llm.RequestContext) (anthropic.Client, string, error) {
	key := rc.KeyFor(ProviderTag, p.cfg.APIKey)
	if key == "" {
		return nil, "", eris.New("anthropicprovider: no api key configured or supplied")
	}
	if rc.HasUserKey(ProviderTag) {
		return anthropic.NewClient(key), p.cfg.Model, nil
	}
	return p.client, p.cfg.Model, nil
}

// Generate implements llm.Provider.
func (p *Provider) Generate(ctx context.Context, req llm.GenerateRequest) (model.ProviderResult, error) {
	start := time.Now()
	client, modelName, err := p.clientFor(req.RC)
	if err != nil {
		return model.ProviderResult{ProviderName: ProviderTag, Success: false, ErrorMessage: err.Error()}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	resp, err := p.call(ctx, client, modelName, req.Prompt)
	elapsed := time.Since(start)
	if err != nil {
		return model.ProviderResult{ProviderName: ProviderTag, Success: false, ErrorMessage: err.Error(), Elapsed: elapsed, ElapsedMillis: elapsed.Milliseconds()}, nil
	}

	text := resp.Text()
	recs := parse.Generation(text, model.CategoryAll, ProviderTag)
	resp.Usage.LogCost(modelName, "generate")

	return model.ProviderResult{
		ProviderName:    ProviderTag,
		Success:         len(recs) > 0,
		Recommendations: recs,
		RawResponse:     text,
		Elapsed:         elapsed,
		ElapsedMillis:   elapsed.Milliseconds(),
	}, nil
}

// Validate implements llm.Provider.
func (p *Provider) Validate(ctx context.Context, req llm.ValidateRequest) (model.CrossValidationResult, error) {
	client, modelName, err := p.clientFor(req.RC)
	if err != nil {
		return model.CrossValidationResult{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	resp, err := p.call(ctx, client, modelName, req.Prompt)
	if err != nil {
		return model.CrossValidationResult{}, err
	}

	entries := parse.Validations(resp.Text(), req.SourceRecs)
	return model.CrossValidationResult{ValidatedBy: ProviderTag, Items: entries}, nil
}

// Synthesize implements llm.Provider.
func (p *Provider) Synthesize(ctx context.Context, req llm.SynthesizeRequest) ([]llm.SynthesizedEntry, error) {
	client, modelName, err := p.clientFor(req.RC)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, llm.SynthesizeTimeout)
	defer cancel()

	resp, err := p.call(ctx, client, modelName, req.Prompt)
	if err != nil {
		return nil, err
	}

	parsed := parse.Synthesized(resp.Text())
	out := make([]llm.SynthesizedEntry, len(parsed))
	for i, e := range parsed {
		out[i] = llm.SynthesizedEntry{Name: e.Name, Description: e.Description, Highlights: e.Highlights, WhyRecommended: e.WhyRecommended}
	}
	return out, nil
}

func (p *Provider) call(ctx context.Context, client anthropic.Client, modelName, prompt string) (*anthropic.MessageResponse, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "anthropicprovider: rate limit")
	}

	return resilience.ExecuteVal(ctx, p.breaker, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return resilience.DoVal(ctx, p.retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
			resp, err := client.CreateMessage(ctx, anthropic.MessageRequest{
				Model:     modelName,
				MaxTokens: p.cfg.MaxTokens,
				Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
			})
			if err != nil {
				return nil, eris.Wrap(err, "anthropicprovider: create message")
			}
			return resp, nil
		})
	})
}
