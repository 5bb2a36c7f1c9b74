package anthropicprovider

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/recommend-consensus/internal/llm"
	"github.com/sells-group/recommend-consensus/internal/model"
	"github.com/sells-group/recommend-consensus/pkg/anthropic"
)

type fakeAnthropicClient struct {
	resp *anthropic.MessageResponse
	err  error
}

func (f *fakeAnthropicClient) CreateMessage(_ context.Context, _ anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	return f.resp, f.err
}

func newTestProvider(client anthropic.Client) *Provider {
	return New(Config{Enabled: true, APIKey: "test-key", Model: "claude-sonnet-4-5-20250929"}, func(string) anthropic.Client {
		return client
	})
}

func TestIsAvailable_EnabledByConfig(t *testing.T) {
	p := New(Config{Enabled: true, APIKey: "k"}, nil)
	assert.True(t, p.IsAvailable(llm.NewRequestContext(nil)))
}

func TestIsAvailable_DisabledWithoutUserKey(t *testing.T) {
	p := New(Config{Enabled: false}, nil)
	assert.False(t, p.IsAvailable(llm.NewRequestContext(nil)))
}

func TestIsAvailable_DisabledButUserKeySupplied(t *testing.T) {
	p := New(Config{Enabled: false}, nil)
	rc := llm.NewRequestContext(map[string]string{ProviderTag: "user-key"})
	assert.True(t, p.IsAvailable(rc))
}

func TestGenerate_NoAPIKeyConfiguredYieldsFailureNotError(t *testing.T) {
	p := New(Config{Enabled: true}, func(string) anthropic.Client { return &fakeAnthropicClient{} })
	result, err := p.Generate(context.Background(), llm.GenerateRequest{RC: llm.NewRequestContext(nil)})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.ErrorMessage)
}

func TestGenerate_ParsesRecommendations(t *testing.T) {
	raw := `{"recommendations":[{"name":"Cafe One","confidenceScore":0.8}]}`
	client := &fakeAnthropicClient{resp: &anthropic.MessageResponse{Content: []anthropic.ContentBlock{{Text: raw}}}}
	p := newTestProvider(client)

	result, err := p.Generate(context.Background(), llm.GenerateRequest{RC: llm.NewRequestContext(nil)})
	require.NoError(t, err)
	assert.True(t, result.Success)
	require.Len(t, result.Recommendations, 1)
	assert.Equal(t, "Cafe One", result.Recommendations[0].Name)
	assert.Equal(t, ProviderTag, result.ProviderName)
}

func TestGenerate_ClientErrorYieldsFailureNotError(t *testing.T) {
	client := &fakeAnthropicClient{err: errors.New("api down")}
	p := newTestProvider(client)

	result, err := p.Generate(context.Background(), llm.GenerateRequest{RC: llm.NewRequestContext(nil)})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.ErrorMessage)
}

func TestValidate_NoAPIKeyReturnsError(t *testing.T) {
	p := New(Config{Enabled: true}, func(string) anthropic.Client { return &fakeAnthropicClient{} })
	_, err := p.Validate(context.Background(), llm.ValidateRequest{RC: llm.NewRequestContext(nil)})
	assert.Error(t, err)
}

func TestValidate_ParsesEntriesMatchedBySourceName(t *testing.T) {
	raw := `{"validations":[{"name":"Cafe One","validationScore":0.9}]}`
	client := &fakeAnthropicClient{resp: &anthropic.MessageResponse{Content: []anthropic.ContentBlock{{Text: raw}}}}
	p := newTestProvider(client)

	result, err := p.Validate(context.Background(), llm.ValidateRequest{
		RC:         llm.NewRequestContext(nil),
		SourceRecs: []model.Recommendation{{Name: "Cafe One"}},
	})
	require.NoError(t, err)
	assert.Equal(t, ProviderTag, result.ValidatedBy)
	require.Len(t, result.Items, 1)
	assert.Equal(t, 0.9, result.Items[0].ValidationScore)
}

func TestValidate_ClientErrorPropagates(t *testing.T) {
	client := &fakeAnthropicClient{err: errors.New("api down")}
	p := newTestProvider(client)

	_, err := p.Validate(context.Background(), llm.ValidateRequest{
		RC:         llm.NewRequestContext(nil),
		SourceRecs: []model.Recommendation{{Name: "Cafe One"}},
	})
	assert.Error(t, err)
}

func TestSynthesize_ParsesEntries(t *testing.T) {
	raw := `{"recommendations":[{"name":"A","description":"polished"}]}`
	client := &fakeAnthropicClient{resp: &anthropic.MessageResponse{Content: []anthropic.ContentBlock{{Text: raw}}}}
	p := newTestProvider(client)

	entries, err := p.Synthesize(context.Background(), llm.SynthesizeRequest{RC: llm.NewRequestContext(nil)})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "A", entries[0].Name)
	assert.Equal(t, "polished", entries[0].Description)
}

func TestSynthesize_NoAPIKeyReturnsError(t *testing.T) {
	p := New(Config{Enabled: true}, func(string) anthropic.Client { return &fakeAnthropicClient{} })
	_, err := p.Synthesize(context.Background(), llm.SynthesizeRequest{RC: llm.NewRequestContext(nil)})
	assert.Error(t, err)
}
