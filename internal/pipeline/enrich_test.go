package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/recommend-consensus/internal/model"
)

func TestRunPlacesEnrichment_GeocodingUnavailableSkips(t *testing.T) {
	s := newRequestState(model.Request{Categories: []model.Category{model.CategoryAll}}, time.Now())
	s.geocodingAvailable = false

	runPlacesEnrichment(context.Background(), &fakePlaces{nearby: []model.Place{{Name: "X"}}}, s)
	assert.False(t, s.enriched)
}

func TestRunPlacesEnrichment_NilProviderSkips(t *testing.T) {
	s := newRequestState(model.Request{Categories: []model.Category{model.CategoryAll}}, time.Now())
	s.geocodingAvailable = true

	runPlacesEnrichment(context.Background(), nil, s)
	assert.False(t, s.enriched)
}

func TestRunPlacesEnrichment_ProviderErrorNonFatal(t *testing.T) {
	s := newRequestState(model.Request{Categories: []model.Category{model.CategoryAll}}, time.Now())
	s.geocodingAvailable = true

	runPlacesEnrichment(context.Background(), &fakePlaces{err: errors.New("quota exceeded")}, s)
	assert.False(t, s.enriched)
}

func TestRunPlacesEnrichment_ExactMatchAttachesPlace(t *testing.T) {
	s := newRequestState(model.Request{Categories: []model.Category{model.CategoryCafe}}, time.Now())
	s.geocodingAvailable = true
	s.generationResults = []model.ProviderResult{
		{ProviderName: "p1", Success: true, Recommendations: []model.Recommendation{{Name: "Joe's Coffee"}}},
	}

	provider := &fakePlaces{nearby: []model.Place{{Name: "Joes Coffee", IsVerifiedRealPlace: true}}}
	runPlacesEnrichment(context.Background(), provider, s)

	assert.True(t, s.enriched)
	assert.NotNil(t, s.generationResults[0].Recommendations[0].EnrichedPlace)
}

func TestBestMatch_SubstringMatch(t *testing.T) {
	candidates := []model.Place{{Name: "The Grand Central Oyster Bar"}}
	got := bestMatch("Grand Central Oyster Bar", candidates)
	assert.NotNil(t, got)
}

func TestBestMatch_WordOverlapThreshold(t *testing.T) {
	candidates := []model.Place{{Name: "Central Park Zoo Cafe"}}
	// 3 of 4 words overlap = 0.75 >= 0.6
	got := bestMatch("Central Park Zoo Diner", candidates)
	assert.NotNil(t, got)
}

func TestBestMatch_NoMatchBelowThreshold(t *testing.T) {
	candidates := []model.Place{{Name: "Totally Unrelated Name"}}
	got := bestMatch("Completely Different Place", candidates)
	assert.Nil(t, got)
}

func TestBestMatch_EmptyNameReturnsNil(t *testing.T) {
	candidates := []model.Place{{Name: "Something"}}
	got := bestMatch("", candidates)
	assert.Nil(t, got)
}

func TestWordOverlap(t *testing.T) {
	assert.Equal(t, 1.0, wordOverlap("a b", "a b c"))
	assert.Equal(t, 0.5, wordOverlap("a b", "a"))
	assert.Equal(t, 0.0, wordOverlap("a b", "c d"))
}
