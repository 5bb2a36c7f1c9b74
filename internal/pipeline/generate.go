package pipeline

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/recommend-consensus/internal/llm"
	"github.com/sells-group/recommend-consensus/internal/model"
)

// runParallelGeneration fans out the same prompt to every available
// provider concurrently, over a shared cancellation token. Each provider
// adapter enforces its own per-call timeout internally; failures never
// propagate out of the join.
func runParallelGeneration(ctx context.Context, providers []llm.Provider, s *requestState) {
	prompt := llm.BuildGeneratePrompt(s.request.Categories, s.resolvedAddress, s.lat, s.lng, s.request.RadiusMeters)

	available := make([]llm.Provider, 0, len(providers))
	for _, p := range providers {
		if p.IsAvailable(s.rc) {
			available = append(available, p)
		}
	}

	results := make([]model.ProviderResult, len(available))

	eg, gCtx := errgroup.WithContext(ctx)
	for i, p := range available {
		eg.Go(func() error {
			result, err := p.Generate(gCtx, llm.GenerateRequest{
				RC:         s.rc,
				Prompt:     prompt,
				MaxResults: s.request.MaxResults,
			})
			if err != nil {
				zap.L().Warn("generate: provider adapter error", zap.String("provider", p.Name()), zap.Error(err))
				result = model.ProviderResult{ProviderName: p.Name(), Success: false, ErrorMessage: err.Error()}
			}
			results[i] = result
			return nil //nolint:nilerr // per-provider failures are absorbed, never fail the join
		})
	}
	_ = eg.Wait()

	for _, r := range results {
		if r.Success {
			s.providersUsed = append(s.providersUsed, r.ProviderName)
		} else {
			s.providersFailed = append(s.providersFailed, r.ProviderName)
		}
		s.generationResults = append(s.generationResults, r)
	}
}
