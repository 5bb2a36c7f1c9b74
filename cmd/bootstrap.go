package main

import (
	"context"

	"github.com/sells-group/recommend-consensus/internal/cache"
	"github.com/sells-group/recommend-consensus/internal/config"
	"github.com/sells-group/recommend-consensus/internal/geocode"
	"github.com/sells-group/recommend-consensus/internal/llm"
	"github.com/sells-group/recommend-consensus/internal/llm/anthropicprovider"
	"github.com/sells-group/recommend-consensus/internal/llm/perplexityprovider"
	"github.com/sells-group/recommend-consensus/internal/llm/streamprovider"
	"github.com/sells-group/recommend-consensus/internal/pipeline"
	"github.com/sells-group/recommend-consensus/internal/places"
	"github.com/sells-group/recommend-consensus/internal/resilience"
	"github.com/sells-group/recommend-consensus/internal/store"
)

// environment bundles every long-lived dependency the orchestrator needs,
// closed together on shutdown.
type environment struct {
	Orchestrator *pipeline.Orchestrator
	Store        cache.Store
	Breakers     *resilience.ServiceBreakers
}

func (e *environment) Close() error {
	if e.Store != nil {
		return e.Store.Close()
	}
	return nil
}

// initEnvironment wires the configured providers, geocoder, places
// provider, and cache store into an Orchestrator.
func initEnvironment(c *config.Config) (*environment, error) {
	retry := resilience.FromRetryConfig(
		c.Resilience.RetryMaxAttempts,
		c.Resilience.RetryInitialBackoffMs,
		c.Resilience.RetryMaxBackoffMs,
		c.Resilience.RetryMultiplier,
		c.Resilience.RetryJitterFraction,
	)
	circuitCfg := resilience.FromCircuitConfig(c.Resilience.CircuitFailureThreshold, c.Resilience.CircuitResetTimeoutSecs)
	breakers := resilience.NewServiceBreakers(circuitCfg)

	var providers []llm.Provider

	if c.Anthropic.Enabled {
		providers = append(providers, anthropicprovider.New(anthropicprovider.Config{
			Enabled:   c.Anthropic.Enabled,
			APIKey:    c.Anthropic.Key,
			Model:     c.Anthropic.Model,
			MaxTokens: int64(c.Anthropic.MaxTokens),
			Timeout:   c.Anthropic.Timeout(),
			Breaker:   breakers.Get(anthropicprovider.ProviderTag),
			Retry:     retry,
		}, nil))
	}

	if c.Perplexity.Enabled {
		providers = append(providers, perplexityprovider.New(perplexityprovider.Config{
			Enabled:   c.Perplexity.Enabled,
			APIKey:    c.Perplexity.Key,
			Model:     c.Perplexity.Model,
			MaxTokens: c.Perplexity.MaxTokens,
			Timeout:   c.Perplexity.Timeout(),
			Breaker:   breakers.Get(perplexityprovider.ProviderTag),
			Retry:     retry,
		}, nil))
	}

	for _, sc := range c.Streaming {
		if !sc.Enabled {
			continue
		}
		providers = append(providers, streamprovider.New(streamprovider.Config{
			Enabled:  sc.Enabled,
			Name:     sc.Name,
			APIKey:   sc.Key,
			Model:    sc.Model,
			Endpoint: sc.Endpoint,
			Timeout:  sc.Timeout(),
			Breaker:  breakers.Get(sc.Name),
			Retry:    retry,
		}))
	}

	var geocoder geocode.Geocoder
	if c.Geocode.Key != "" {
		geocoder = geocode.NewGoogleGeocoder(c.Geocode.Key, c.Geocode.RPS)
	}

	var placesProvider places.Provider
	if c.Places.Key != "" {
		placesProvider = places.NewGoogleProvider(c.Places.Key, c.Places.RPS)
	}

	backing, err := store.NewSQLite(c.Cache.DatabaseURL)
	if err != nil {
		return nil, err
	}

	var front cache.Store = backing
	if c.Cache.FrontSize > 0 {
		lru, lruErr := cache.NewLRUFront(backing, c.Cache.FrontSize)
		if lruErr != nil {
			return nil, lruErr
		}
		front = lru
	}

	if c.Cache.PurgeOnStartup {
		_, _ = front.DeleteExpired(context.Background())
	}

	orch := pipeline.NewOrchestrator(providers, geocoder, placesProvider, front, c.Cache.TTL())

	return &environment{Orchestrator: orch, Store: front, Breakers: breakers}, nil
}
