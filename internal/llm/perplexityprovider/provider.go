// Package perplexityprovider adapts pkg/perplexity's chat-completion client
// to the llm.Provider interface.
package perplexityprovider

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/recommend-consensus/internal/llm"
	"github.com/sells-group/recommend-consensus/internal/llm/parse"
	"github.com/sells-group/recommend-consensus/internal/model"
	"github.com/sells-group/recommend-consensus/internal/resilience"
	"github.com/sells-group/recommend-consensus/pkg/perplexity"
)

const ProviderTag = "perplexity"

// Config is the process-level configuration for the Perplexity adapter.
type Config struct {
	Enabled   bool
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration

	// Breaker lets the caller share one circuit breaker per provider name
	// (see resilience.ServiceBreakers) instead of each adapter minting its
	// own. Nil means "build one with package defaults".
	Breaker *resilience.CircuitBreaker
	// Retry overrides the backoff schedule applied to chat-completion
	// calls. A zero value falls back to resilience.DefaultRetryConfig.
	Retry resilience.RetryConfig
}

// Provider implements llm.Provider over the Perplexity chat-completions API.
type Provider struct {
	cfg     Config
	client  perplexity.Client
	breaker *resilience.CircuitBreaker
	retry   resilience.RetryConfig
}

// New constructs a Perplexity provider adapter. newClient lets tests inject
// a fake perplexity.Client.
func New(cfg Config, newClient func(apiKey string, opts ...perplexity.Option) perplexity.Client) *Provider {
	if newClient == nil {
		newClient = perplexity.NewClient
	}
	var client perplexity.Client
	if cfg.APIKey != "" {
		opts := []perplexity.Option{}
		if cfg.Model != "" {
			opts = append(opts, perplexity.WithModel(cfg.Model))
		}
		client = newClient(cfg.APIKey, opts...)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = llm.GenerateTimeout
	}
	breaker := cfg.Breaker
	if breaker == nil {
		breaker = resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig())
	}
	retry := resilience.FromRetryConfig(cfg.Retry.MaxAttempts, int(cfg.Retry.InitialBackoff/time.Millisecond), int(cfg.Retry.MaxBackoff/time.Millisecond), cfg.Retry.Multiplier, cfg.Retry.JitterFraction)
	retry.OnRetry = resilience.RetryLogger(ProviderTag, "chat_completion")
	return &Provider{cfg: cfg, client: client, breaker: breaker, retry: retry}
}

// Name implements llm.Provider.
func (p *Provider) Name() string { return ProviderTag }

// IsAvailable implements llm.Provider.
func (p *Provider) IsAvailable(rc llm.RequestContext) bool {
	return p.cfg.Enabled || rc.HasUserKey(ProviderTag)
}

func (p *Provider) clientFor(rc llm.RequestContext) (perplexity.Client, error) {
	if rc.HasUserKey(ProviderTag) {
		return perplexity.NewClient(rc.KeyFor(ProviderTag, p.cfg.APIKey)), nil
	}
	if p.client == nil {
		return nil, eris.New("perplexityprovider: no api key configured or supplied")
	}
	return p.client, nil
}

// Generate implements llm.Provider.
func (p *Provider) Generate(ctx context.Context, req llm.GenerateRequest) (model.ProviderResult, error) {
	start := time.Now()
	client, err := p.clientFor(req.RC)
	if err != nil {
		return model.ProviderResult{ProviderName: ProviderTag, Success: false, ErrorMessage: err.Error()}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	resp, err := p.call(ctx, client, req.Prompt)
	elapsed := time.Since(start)
	if err != nil {
		return model.ProviderResult{ProviderName: ProviderTag, Success: false, ErrorMessage: err.Error(), Elapsed: elapsed, ElapsedMillis: elapsed.Milliseconds()}, nil
	}

	text := choiceText(resp)
	recs := parse.Generation(text, model.CategoryAll, ProviderTag)

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
	client, err := p.clientFor(req.RC)
	if err != nil {
		return model.CrossValidationResult{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	resp, err := p.call(ctx, client, req.Prompt)
	if err != nil {
		return model.CrossValidationResult{}, err
	}

	entries := parse.Validations(choiceText(resp), req.SourceRecs)
	return model.CrossValidationResult{ValidatedBy: ProviderTag, Items: entries}, nil
}

// Synthesize implements llm.Provider.
func (p *Provider) Synthesize(ctx context.Context, req llm.SynthesizeRequest) ([]llm.SynthesizedEntry, error) {
	client, err := p.clientFor(req.RC)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, llm.SynthesizeTimeout)
	defer cancel()

	resp, err := p.call(ctx, client, req.Prompt)
	if err != nil {
		return nil, err
	}

	parsed := parse.Synthesized(choiceText(resp))
	out := make([]llm.SynthesizedEntry, len(parsed))
	for i, e := range parsed {
		out[i] = llm.SynthesizedEntry{Name: e.Name, Description: e.Description, Highlights: e.Highlights, WhyRecommended: e.WhyRecommended}
	}
	return out, nil
}

func (p *Provider) call(ctx context.Context, client perplexity.Client, prompt string) (*perplexity.ChatCompletionResponse, error) {
	return resilience.ExecuteVal(ctx, p.breaker, func(ctx context.Context) (*perplexity.ChatCompletionResponse, error) {
		return resilience.DoVal(ctx, p.retry, func(ctx context.Context) (*perplexity.ChatCompletionResponse, error) {
			maxTokens := p.cfg.MaxTokens
			resp, err := client.ChatCompletion(ctx, perplexity.ChatCompletionRequest{
				Messages:  []perplexity.Message{{Role: "user", Content: prompt}},
				MaxTokens: nonZeroIntPtr(maxTokens),
			})
			if err != nil {
				return nil, eris.Wrap(err, "perplexityprovider: chat completion")
			}
			return resp, nil
		})
	})
}

func choiceText(resp *perplexity.ChatCompletionResponse) string {
	if resp == nil || len(resp.Choices) == 0 {
		return ""
	}
	return resp.Choices[0].Message.Content
}

func nonZeroIntPtr(v int) *int {
	if v <= 0 {
		return nil
	}
	return &v
}
