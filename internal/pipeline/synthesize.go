package pipeline

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/recommend-consensus/internal/llm"
	"github.com/sells-group/recommend-consensus/internal/model"
)

const consensusSourceName = "Consensus"

// runSynthesis selects the fastest successful provider from stage 3
// (minimum elapsed, ties broken by first occurrence) that is still
// available, and has it polish the ranked list's description/highlights/
// whyRecommended without reordering, adding, or removing entries. On
// failure or an empty ranked list, it records synthesizedBy="Consensus"
// and leaves the list untouched.
func runSynthesis(ctx context.Context, providers []llm.Provider, s *requestState) {
	if len(s.ranked) == 0 {
		s.synthesizedBy = consensusSourceName
		return
	}

	synth := fastestAvailableProvider(providers, s)
	if synth == nil {
		s.synthesizedBy = consensusSourceName
		return
	}

	prompt := llm.BuildSynthesizePrompt(s.ranked)
	entries, err := synth.Synthesize(ctx, llm.SynthesizeRequest{RC: s.rc, Prompt: prompt, Ranked: s.ranked})
	if err != nil || len(entries) == 0 {
		zap.L().Warn("synthesis: provider failed, leaving list untouched", zap.Error(err))
		s.synthesizedBy = consensusSourceName
		return
	}

	byName := make(map[string]llm.SynthesizedEntry, len(entries))
	for _, e := range entries {
		byName[strings.ToLower(strings.TrimSpace(e.Name))] = e
	}

	for i := range s.ranked {
		match, ok := byName[strings.ToLower(strings.TrimSpace(s.ranked[i].Name))]
		if !ok {
			continue
		}
		if match.Description != "" {
			s.ranked[i].Description = match.Description
		}
		if len(match.Highlights) > 0 {
			s.ranked[i].Highlights = match.Highlights
		}
		if match.WhyRecommended != "" {
			s.ranked[i].WhyRecommended = match.WhyRecommended
		}
		s.ranked[i].SourceProvider = consensusSourceName
	}

	s.synthesizedBy = synth.Name()
}

func fastestAvailableProvider(providers []llm.Provider, s *requestState) llm.Provider {
	availableByName := make(map[string]bool, len(providers))
	providerByName := make(map[string]llm.Provider, len(providers))
	for _, p := range providers {
		providerByName[p.Name()] = p
		if p.IsAvailable(s.rc) {
			availableByName[p.Name()] = true
		}
	}

	var fastest *model.ProviderResult
	var fastestProvider llm.Provider
	for i := range s.generationResults {
		r := &s.generationResults[i]
		if !r.Success || !availableByName[r.ProviderName] {
			continue
		}
		if fastest == nil || r.Elapsed < fastest.Elapsed {
			fastest = r
			fastestProvider = providerByName[r.ProviderName]
		}
	}
	return fastestProvider
}
