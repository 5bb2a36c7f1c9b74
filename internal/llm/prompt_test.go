package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/recommend-consensus/internal/model"
)

func TestRequestContext_KeyForFallsBackWhenNoOverride(t *testing.T) {
	rc := NewRequestContext(nil)
	assert.Equal(t, "fallback", rc.KeyFor("anthropic", "fallback"))
}

func TestRequestContext_KeyForPrefersUserOverride(t *testing.T) {
	rc := NewRequestContext(map[string]string{"anthropic": "user-key"})
	assert.Equal(t, "user-key", rc.KeyFor("anthropic", "fallback"))
}

func TestRequestContext_HasUserKey(t *testing.T) {
	rc := NewRequestContext(map[string]string{"anthropic": "user-key", "empty": ""})
	assert.True(t, rc.HasUserKey("anthropic"))
	assert.False(t, rc.HasUserKey("empty"))
	assert.False(t, rc.HasUserKey("perplexity"))
}

func TestRequestContext_CopiesInputMap(t *testing.T) {
	src := map[string]string{"anthropic": "k1"}
	rc := NewRequestContext(src)
	src["anthropic"] = "mutated"
	assert.Equal(t, "k1", rc.KeyFor("anthropic", "fallback"))
}

func TestBuildGeneratePrompt_IncludesLocationAndCategories(t *testing.T) {
	prompt := BuildGeneratePrompt([]model.Category{model.CategoryCafe, model.CategoryRestaurant}, "Downtown", 40.7128, -74.006, 1500)
	assert.Contains(t, prompt, "Downtown")
	assert.Contains(t, prompt, "Cafe, Restaurant")
	assert.Contains(t, prompt, "1500 meters")
	assert.Contains(t, prompt, "40.71280")
}

func TestBuildValidatePrompt_ListsEachSourceRecommendation(t *testing.T) {
	lat, lng := 1.0, 2.0
	recs := []model.Recommendation{
		{Name: "Cafe One", Address: "1 Main St", Latitude: &lat, Longitude: &lng, Description: "cozy"},
		{Name: "Cafe Two"},
	}
	prompt := BuildValidatePrompt(recs)
	assert.Contains(t, prompt, "1. Cafe One")
	assert.Contains(t, prompt, "1 Main St")
	assert.Contains(t, prompt, "cozy")
	assert.Contains(t, prompt, "2. Cafe Two")
}

func TestBuildSynthesizePrompt_ListsEachRankedEntry(t *testing.T) {
	recs := []model.Recommendation{
		{Name: "Cafe One", Description: "first"},
		{Name: "Cafe Two", Description: "second"},
	}
	prompt := BuildSynthesizePrompt(recs)
	assert.Contains(t, prompt, "1. Cafe One: first")
	assert.Contains(t, prompt, "2. Cafe Two: second")
	assert.Contains(t, prompt, "Do not reorder")
}
