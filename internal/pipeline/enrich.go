package pipeline

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/recommend-consensus/internal/model"
	"github.com/sells-group/recommend-consensus/internal/places"
)

const wordOverlapThreshold = 0.6

// runPlacesEnrichment fetches up to 20 real places for the first requested
// category and attaches the best-matching real Place to each
// recommendation across all providers. Enrichment failure, or geocoding
// being unavailable, is non-fatal: it simply leaves enriched=false.
func runPlacesEnrichment(ctx context.Context, provider places.Provider, s *requestState) {
	if !s.geocodingAvailable || provider == nil {
		return
	}

	// TODO: this only searches the first category even with multiple
	// requested; replicated from the reference behavior rather than fixed
	// (see design notes on multi-category enrichment).
	firstCategory := s.request.Categories[0]

	nearby, err := provider.Nearby(ctx, places.Query{
		Latitude:     s.lat,
		Longitude:    s.lng,
		Category:     firstCategory,
		RadiusMeters: s.request.RadiusMeters,
		MaxResults:   20,
	})
	if err != nil {
		zap.L().Warn("enrich: places lookup failed", zap.Error(err))
		return
	}
	if len(nearby) == 0 {
		return
	}

	matched := false
	for gi := range s.generationResults {
		recs := s.generationResults[gi].Recommendations
		for ri := range recs {
			if place := bestMatch(recs[ri].Name, nearby); place != nil {
				recs[ri].EnrichedPlace = place
				matched = true
			}
		}
	}
	s.enriched = matched
}

// bestMatch implements the §4.5 matching order: exact normalized equality,
// then substring either direction, then word-overlap >= 0.6. First success
// wins, trying each real place in order.
func bestMatch(name string, candidates []model.Place) *model.Place {
	normName := model.NormalizeName(name)
	if normName == "" {
		return nil
	}

	for i := range candidates {
		if model.NormalizeName(candidates[i].Name) == normName {
			return &candidates[i]
		}
	}
	for i := range candidates {
		normCand := model.NormalizeName(candidates[i].Name)
		if strings.Contains(normCand, normName) || strings.Contains(normName, normCand) {
			return &candidates[i]
		}
	}
	for i := range candidates {
		if wordOverlap(normName, model.NormalizeName(candidates[i].Name)) >= wordOverlapThreshold {
			return &candidates[i]
		}
	}
	return nil
}

// wordOverlap is intersection-over-the-recommendation's-word-count, per
// the spec's exact definition (not a symmetric Jaccard index).
func wordOverlap(recName, candName string) float64 {
	recWords := strings.Fields(recName)
	if len(recWords) == 0 {
		return 0
	}
	candSet := make(map[string]bool)
	for _, w := range strings.Fields(candName) {
		candSet[w] = true
	}

	matches := 0
	for _, w := range recWords {
		if candSet[w] {
			matches++
		}
	}
	return float64(matches) / float64(len(recWords))
}
