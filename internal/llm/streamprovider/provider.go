// Package streamprovider implements the streaming-aggregator variant of the
// LLM provider adapter (spec section on provider adapters): it speaks an
// OpenAI-compatible chat-completions endpoint with stream:true and
// accumulates server-sent-event deltas into one response, falling back to
// the reasoning buffer when the content buffer comes back empty. No
// reference repo in the retrieved pack parses an SSE *client* stream, so
// this follows the teacher's general HTTP client conventions (pooled
// *http.Client, eris-wrapped errors, bufio.Scanner line reading) rather
// than any single grounded file.
package streamprovider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/recommend-consensus/internal/llm"
	"github.com/sells-group/recommend-consensus/internal/llm/parse"
	"github.com/sells-group/recommend-consensus/internal/model"
	"github.com/sells-group/recommend-consensus/internal/resilience"
)

const doneSentinel = "[DONE]"

// Config is the process-level configuration for a streaming provider.
type Config struct {
	Enabled  bool
	Name     string
	APIKey   string
	Model    string
	Endpoint string
	Timeout  time.Duration

	// Breaker lets the caller share one circuit breaker per provider name
	// (see resilience.ServiceBreakers) instead of each adapter minting its
	// own. Nil means "build one with package defaults".
	Breaker *resilience.CircuitBreaker
	// Retry overrides the backoff schedule applied to stream calls. A
	// zero value falls back to resilience.DefaultRetryConfig.
	Retry resilience.RetryConfig
}

// Provider implements llm.Provider by reading an SSE chat-completion stream.
type Provider struct {
	cfg     Config
	http    *http.Client
	breaker *resilience.CircuitBreaker
	retry   resilience.RetryConfig
}

// New constructs a streaming provider adapter.
func New(cfg Config) *Provider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = llm.StreamingGenerateTimeout
	}
	breaker := cfg.Breaker
	if breaker == nil {
		breaker = resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig())
	}
	retry := resilience.FromRetryConfig(cfg.Retry.MaxAttempts, int(cfg.Retry.InitialBackoff/time.Millisecond), int(cfg.Retry.MaxBackoff/time.Millisecond), cfg.Retry.Multiplier, cfg.Retry.JitterFraction)
	retry.OnRetry = resilience.RetryLogger(cfg.Name, "stream")
	return &Provider{
		cfg: cfg,
		http: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		breaker: breaker,
		retry:   retry,
	}
}

// Name implements llm.Provider.
func (p *Provider) Name() string { return p.cfg.Name }

// IsAvailable implements llm.Provider.
func (p *Provider) IsAvailable(rc llm.RequestContext) bool {
	return p.cfg.Enabled || rc.HasUserKey(p.cfg.Name)
}

// Generate implements llm.Provider.
func (p *Provider) Generate(ctx context.Context, req llm.GenerateRequest) (model.ProviderResult, error) {
	start := time.Now()
	key := req.RC.KeyFor(p.cfg.Name, p.cfg.APIKey)
	if key == "" {
		return model.ProviderResult{ProviderName: p.cfg.Name, Success: false, ErrorMessage: "streamprovider: no api key configured or supplied"}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	text, err := p.stream(ctx, key, req.Prompt)
	elapsed := time.Since(start)
	if err != nil {
		return model.ProviderResult{ProviderName: p.cfg.Name, Success: false, ErrorMessage: err.Error(), Elapsed: elapsed, ElapsedMillis: elapsed.Milliseconds()}, nil
	}

	recs := parse.Generation(text, model.CategoryAll, p.cfg.Name)
	return model.ProviderResult{
		ProviderName:    p.cfg.Name,
		Success:         len(recs) > 0,
		Recommendations: recs,
		RawResponse:     text,
		Elapsed:         elapsed,
		ElapsedMillis:   elapsed.Milliseconds(),
	}, nil
}

// Validate implements llm.Provider.
func (p *Provider) Validate(ctx context.Context, req llm.ValidateRequest) (model.CrossValidationResult, error) {
	key := req.RC.KeyFor(p.cfg.Name, p.cfg.APIKey)
	if key == "" {
		return model.CrossValidationResult{}, eris.New("streamprovider: no api key configured or supplied")
	}
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	text, err := p.stream(ctx, key, req.Prompt)
	if err != nil {
		return model.CrossValidationResult{}, err
	}
	return model.CrossValidationResult{ValidatedBy: p.cfg.Name, Items: parse.Validations(text, req.SourceRecs)}, nil
}

// Synthesize implements llm.Provider.
func (p *Provider) Synthesize(ctx context.Context, req llm.SynthesizeRequest) ([]llm.SynthesizedEntry, error) {
	key := req.RC.KeyFor(p.cfg.Name, p.cfg.APIKey)
	if key == "" {
		return nil, eris.New("streamprovider: no api key configured or supplied")
	}
	ctx, cancel := context.WithTimeout(ctx, llm.SynthesizeTimeout)
	defer cancel()

	text, err := p.stream(ctx, key, req.Prompt)
	if err != nil {
		return nil, err
	}
	parsed := parse.Synthesized(text)
	out := make([]llm.SynthesizedEntry, len(parsed))
	for i, e := range parsed {
		out[i] = llm.SynthesizedEntry{Name: e.Name, Description: e.Description, Highlights: e.Highlights, WhyRecommended: e.WhyRecommended}
	}
	return out, nil
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content          string `json:"content"`
			Text             string `json:"text"`
			ReasoningContent string `json:"reasoning_content"`
			Reasoning        string `json:"reasoning"`
		} `json:"delta"`
	} `json:"choices"`
}

// stream issues the streaming chat-completion request and accumulates
// content, text, and reasoning deltas separately, falling back to the
// reasoning buffer when content is empty at stream end.
func (p *Provider) stream(ctx context.Context, apiKey, prompt string) (string, error) {
	return resilience.ExecuteVal(ctx, p.breaker, func(ctx context.Context) (string, error) {
		return resilience.DoVal(ctx, p.retry, func(ctx context.Context) (string, error) {
			return p.doStream(ctx, apiKey, prompt)
		})
	})
}

func (p *Provider) doStream(ctx context.Context, apiKey, prompt string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"model":  p.cfg.Model,
		"stream": true,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	})
	if err != nil {
		return "", eris.Wrap(err, "streamprovider: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", eris.Wrap(err, "streamprovider: build request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := p.http.Do(httpReq)
	if err != nil {
		return "", eris.Wrap(err, "streamprovider: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return "", eris.Errorf("streamprovider: unexpected status %d", resp.StatusCode)
	}

	var content, text, reasoning strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == doneSentinel {
			break
		}
		if data == "" {
			continue
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue // malformed frame, skip and keep reading
		}
		for _, c := range chunk.Choices {
			content.WriteString(c.Delta.Content)
			text.WriteString(c.Delta.Text)
			reasoning.WriteString(c.Delta.ReasoningContent)
			reasoning.WriteString(c.Delta.Reasoning)
		}
	}
	if err := scanner.Err(); err != nil {
		return "", eris.Wrap(err, "streamprovider: read stream")
	}

	if content.Len() > 0 {
		return content.String(), nil
	}
	if text.Len() > 0 {
		return text.String(), nil
	}
	return reasoning.String(), nil
}
