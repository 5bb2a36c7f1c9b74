// Package pipeline implements the eight-stage Recommendation Consensus
// Pipeline: Geocode, CacheCheck, ParallelGeneration, PlacesEnrichment,
// CrossValidation, ConsensusScoring, Synthesis, CacheWrite.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/sells-group/recommend-consensus/internal/cache"
	"github.com/sells-group/recommend-consensus/internal/geocode"
	"github.com/sells-group/recommend-consensus/internal/llm"
	"github.com/sells-group/recommend-consensus/internal/model"
	"github.com/sells-group/recommend-consensus/internal/places"
)

// Orchestrator wires the eight stages together over a per-request context.
type Orchestrator struct {
	Providers []llm.Provider
	Geocoder  geocode.Geocoder
	Places    places.Provider
	Store     cache.Store

	CacheTTL time.Duration

	// now is injectable for tests, following the teacher's nowFunc convention.
	now func() time.Time
}

// NewOrchestrator constructs an Orchestrator with the default TTL and clock.
func NewOrchestrator(providers []llm.Provider, geocoder geocode.Geocoder, placesProvider places.Provider, store cache.Store, cacheTTL time.Duration) *Orchestrator {
	if cacheTTL <= 0 {
		cacheTTL = 24 * time.Hour
	}
	return &Orchestrator{
		Providers: providers,
		Geocoder:  geocoder,
		Places:    placesProvider,
		Store:     store,
		CacheTTL:  cacheTTL,
		now:       time.Now,
	}
}

// Run executes the full pipeline for a validated request. On cache hit
// after stage 2 it returns immediately with fromCache=true; otherwise it
// runs stages 3-8 and returns the freshly built response.
func (o *Orchestrator) Run(ctx context.Context, req model.Request) (*model.Response, error) {
	if !req.HasCoordinates() && strings.TrimSpace(req.Address) == "" {
		return nil, ErrInputInvalid
	}
	if len(req.Categories) == 0 {
		req.Categories = []model.Category{model.CategoryAll}
	}
	req.Normalize()

	s := newRequestState(req, o.now())

	runGeocode(ctx, o.Geocoder, s)

	runCacheCheck(ctx, o.Store, s)
	if s.cacheHit {
		return s.cachedResponse, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, ErrCancelled
	}

	runParallelGeneration(ctx, o.Providers, s)
	if len(s.providersUsed) == 0 {
		return nil, ErrExhaustedProviders
	}

	if err := ctx.Err(); err != nil {
		return nil, ErrCancelled
	}

	runPlacesEnrichment(ctx, o.Places, s)
	runCrossValidation(ctx, o.Providers, s)
	runConsensusScoring(s)
	runSynthesis(ctx, o.Providers, s)

	resp := buildResponse(s, o.now())

	runCacheWrite(ctx, o.Store, s, resp, o.CacheTTL)

	return resp, nil
}

func buildResponse(s *requestState, generatedAt time.Time) *model.Response {
	elapsed := generatedAt.Sub(s.start)

	return &model.Response{
		Latitude:        s.lat,
		Longitude:       s.lng,
		ResolvedAddress: s.resolvedAddress,
		Category:        s.category(),
		Categories:      s.request.Categories,
		Recommendations: s.ranked,
		Metadata: model.Metadata{
			ProvidersUsed:         dedupe(s.providersUsed),
			ProvidersFailed:       dedupe(s.providersFailed),
			Enriched:              s.enriched,
			TotalCandidatesScored: s.totalCandidatesScored,
			TotalElapsed:          elapsed,
			TotalElapsedMillis:    elapsed.Milliseconds(),
			SynthesizedBy:         s.synthesizedBy,
		},
		FromCache:   false,
		GeneratedAt: generatedAt.UTC(),
	}
}

func dedupe(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
