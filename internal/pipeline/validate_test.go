package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/recommend-consensus/internal/llm"
	"github.com/sells-group/recommend-consensus/internal/model"
)

func TestRunCrossValidation_SkipsWhenFewerThanTwoSuccessful(t *testing.T) {
	s := newRequestState(model.Request{}, time.Now())
	s.generationResults = []model.ProviderResult{
		{ProviderName: "p1", Success: true, Recommendations: []model.Recommendation{{Name: "A"}}},
	}
	providers := []llm.Provider{&fakeProvider{name: "p1", available: true}}

	runCrossValidation(context.Background(), providers, s)
	assert.Empty(t, s.validationResults)
}

func TestRunCrossValidation_PairsExcludeSelfValidation(t *testing.T) {
	s := newRequestState(model.Request{}, time.Now())
	s.generationResults = []model.ProviderResult{
		{ProviderName: "p1", Success: true, Recommendations: []model.Recommendation{{Name: "A"}}},
		{ProviderName: "p2", Success: true, Recommendations: []model.Recommendation{{Name: "B"}}},
	}
	p1 := &fakeProvider{name: "p1", available: true, validateResult: model.CrossValidationResult{ValidatedBy: "p1"}}
	p2 := &fakeProvider{name: "p2", available: true, validateResult: model.CrossValidationResult{ValidatedBy: "p2"}}
	providers := []llm.Provider{p1, p2}

	runCrossValidation(context.Background(), providers, s)

	require := assert.New(t)
	require.Len(s.validationResults, 2)
	for _, r := range s.validationResults {
		require.NotEqual(r.ValidatedBy, r.OriginalSource)
	}
}

func TestRunCrossValidation_UnavailableProviderExcluded(t *testing.T) {
	s := newRequestState(model.Request{}, time.Now())
	s.generationResults = []model.ProviderResult{
		{ProviderName: "p1", Success: true, Recommendations: []model.Recommendation{{Name: "A"}}},
		{ProviderName: "p2", Success: true, Recommendations: []model.Recommendation{{Name: "B"}}},
	}
	p1 := &fakeProvider{name: "p1", available: true}
	p2 := &fakeProvider{name: "p2", available: false}
	providers := []llm.Provider{p1, p2}

	runCrossValidation(context.Background(), providers, s)

	// Only p1 is available, so it can only validate p2's output (1 pair).
	assert.Len(t, s.validationResults, 1)
	assert.Equal(t, "p1", s.validationResults[0].ValidatedBy)
	assert.Equal(t, "p2", s.validationResults[0].OriginalSource)
}

func TestRunCrossValidation_PairErrorNonFatal(t *testing.T) {
	s := newRequestState(model.Request{}, time.Now())
	s.generationResults = []model.ProviderResult{
		{ProviderName: "p1", Success: true, Recommendations: []model.Recommendation{{Name: "A"}}},
		{ProviderName: "p2", Success: true, Recommendations: []model.Recommendation{{Name: "B"}}},
	}
	p1 := &fakeProvider{name: "p1", available: true, validateErr: errors.New("validate failed")}
	p2 := &fakeProvider{name: "p2", available: true}
	providers := []llm.Provider{p1, p2}

	runCrossValidation(context.Background(), providers, s)
	assert.Len(t, s.validationResults, 2)
}
