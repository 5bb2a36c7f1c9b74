package pipeline

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/recommend-consensus/internal/llm"
	"github.com/sells-group/recommend-consensus/internal/model"
)

type validationPair struct {
	validator llm.Provider
	source    model.ProviderResult
}

// runCrossValidation builds the set {(v, s) : v available, s successful,
// v.Name() != s.ProviderName, s non-empty} and runs every pair
// concurrently. Per-pair failure is non-fatal and yields an empty result
// naming only the validator and source; results accumulate irrespective of
// order.
func runCrossValidation(ctx context.Context, providers []llm.Provider, s *requestState) {
	successful := 0
	for _, r := range s.generationResults {
		if r.Success && len(r.Recommendations) > 0 {
			successful++
		}
	}
	if successful < 2 {
		return
	}

	available := make([]llm.Provider, 0, len(providers))
	for _, p := range providers {
		if p.IsAvailable(s.rc) {
			available = append(available, p)
		}
	}

	var pairs []validationPair
	for _, v := range available {
		for _, src := range s.generationResults {
			if !src.Success || len(src.Recommendations) == 0 {
				continue
			}
			if v.Name() == src.ProviderName {
				continue
			}
			pairs = append(pairs, validationPair{validator: v, source: src})
		}
	}

	results := make([]model.CrossValidationResult, len(pairs))
	eg, gCtx := errgroup.WithContext(ctx)
	for i, pair := range pairs {
		eg.Go(func() error {
			prompt := llm.BuildValidatePrompt(pair.source.Recommendations)
			result, err := pair.validator.Validate(gCtx, llm.ValidateRequest{
				RC:         s.rc,
				Prompt:     prompt,
				SourceRecs: pair.source.Recommendations,
			})
			if err != nil {
				zap.L().Warn("crossvalidation: pair failed",
					zap.String("validator", pair.validator.Name()),
					zap.String("source", pair.source.ProviderName),
					zap.Error(err))
				results[i] = model.CrossValidationResult{ValidatedBy: pair.validator.Name(), OriginalSource: pair.source.ProviderName}
				return nil //nolint:nilerr // per-pair failures are absorbed
			}
			result.ValidatedBy = pair.validator.Name()
			result.OriginalSource = pair.source.ProviderName
			results[i] = result
			return nil
		})
	}
	_ = eg.Wait()

	s.validationResults = results
}
