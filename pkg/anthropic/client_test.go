package anthropic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessageResponse_Text_ConcatenatesBlocks(t *testing.T) {
	r := &MessageResponse{Content: []ContentBlock{{Text: "hello "}, {Text: "world"}}}
	assert.Equal(t, "hello world", r.Text())
}

func TestMessageResponse_Text_EmptyContent(t *testing.T) {
	r := &MessageResponse{}
	assert.Equal(t, "", r.Text())
}

func TestTokenUsage_EstimateCost_KnownModel(t *testing.T) {
	u := TokenUsage{InputTokens: 1_000_000, OutputTokens: 1_000_000}
	cost := u.EstimateCost("claude-sonnet-4-5-20250929")
	assert.InDelta(t, 18.0, cost, 0.0001)
}

func TestTokenUsage_EstimateCost_UnknownModel(t *testing.T) {
	u := TokenUsage{InputTokens: 1_000_000, OutputTokens: 1_000_000}
	assert.Equal(t, 0.0, u.EstimateCost("unknown-model"))
}

func TestTokenUsage_EstimateCost_Proportional(t *testing.T) {
	u := TokenUsage{InputTokens: 500_000, OutputTokens: 0}
	cost := u.EstimateCost("claude-haiku-4-5-20251001")
	assert.InDelta(t, 0.40, cost, 0.0001)
}
