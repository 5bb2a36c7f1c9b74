package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/recommend-consensus/internal/model"
)

func TestRunConsensusScoring_GroupsByNormalizedName(t *testing.T) {
	s := newRequestStateForConsensus(model.Request{MaxResults: 10})
	s.generationResults = []model.ProviderResult{
		{Success: true, Recommendations: []model.Recommendation{{Name: "Joe's Diner", BaseConfidence: 0.8}}},
		{Success: true, Recommendations: []model.Recommendation{{Name: "joes diner", BaseConfidence: 0.6}}},
	}

	runConsensusScoring(s)

	require.Len(t, s.ranked, 1)
	assert.Equal(t, 2, s.ranked[0].AgreementCount)
	assert.Equal(t, 2, s.totalCandidatesScored)
}

func TestRunConsensusScoring_RanksByScoreDescending(t *testing.T) {
	s := newRequestStateForConsensus(model.Request{MaxResults: 10})
	s.generationResults = []model.ProviderResult{
		{Success: true, Recommendations: []model.Recommendation{
			{Name: "Low Conf", BaseConfidence: 0.2},
			{Name: "High Conf", BaseConfidence: 0.9},
		}},
	}

	runConsensusScoring(s)

	require.Len(t, s.ranked, 2)
	assert.Equal(t, "High Conf", s.ranked[0].Name)
	assert.Equal(t, "Low Conf", s.ranked[1].Name)
}

func TestRunConsensusScoring_TrimsToMaxResults(t *testing.T) {
	s := newRequestStateForConsensus(model.Request{MaxResults: 1})
	s.generationResults = []model.ProviderResult{
		{Success: true, Recommendations: []model.Recommendation{
			{Name: "A", BaseConfidence: 0.9},
			{Name: "B", BaseConfidence: 0.5},
		}},
	}

	runConsensusScoring(s)
	require.Len(t, s.ranked, 1)
	assert.Equal(t, "A", s.ranked[0].Name)
}

func TestRunConsensusScoring_TrimsToNormalizedDefault(t *testing.T) {
	recs := make([]model.Recommendation, 15)
	for i := range recs {
		recs[i] = model.Recommendation{Name: string(rune('a' + i)), BaseConfidence: 0.5}
	}

	// MaxResults defaulting/clamping is Request.Normalize's job, called once
	// by Orchestrator.Run before the request state is built; runConsensusScoring
	// just trusts s.request.MaxResults is already in range.
	req := model.Request{}
	req.Normalize()
	s := newRequestStateForConsensus(req)
	s.generationResults = []model.ProviderResult{{Success: true, Recommendations: recs}}

	runConsensusScoring(s)
	assert.Len(t, s.ranked, model.DefaultMaxResults)
}

func TestRunConsensusScoring_ValidationPenaltiesLowerScore(t *testing.T) {
	clean := newRequestStateForConsensus(model.Request{MaxResults: 10})
	clean.generationResults = []model.ProviderResult{
		{Success: true, Recommendations: []model.Recommendation{{Name: "Place", BaseConfidence: 0.8}}},
	}
	runConsensusScoring(clean)

	flagged := newRequestStateForConsensus(model.Request{MaxResults: 10})
	flagged.generationResults = []model.ProviderResult{
		{Success: true, Recommendations: []model.Recommendation{{Name: "Place", BaseConfidence: 0.8}}},
	}
	flagged.validationResults = []model.CrossValidationResult{
		{ValidatedBy: "v1", OriginalSource: "p1", Items: []model.ValidationEntry{
			{Original: model.Recommendation{Name: "Place"}, ValidationScore: 0.8, FlaggedInaccurate: true},
		}},
	}
	runConsensusScoring(flagged)

	require.Len(t, clean.ranked, 1)
	require.Len(t, flagged.ranked, 1)
	assert.Less(t, flagged.ranked[0].BaseConfidence, clean.ranked[0].BaseConfidence)
}

func TestRunConsensusScoring_EnrichedRealPlaceBoostsScore(t *testing.T) {
	rating := 4.5
	withPlace := newRequestStateForConsensus(model.Request{MaxResults: 10})
	withPlace.generationResults = []model.ProviderResult{
		{Success: true, Recommendations: []model.Recommendation{
			{Name: "Place", BaseConfidence: 0.6, EnrichedPlace: &model.Place{IsVerifiedRealPlace: true, Rating: &rating}},
		}},
	}
	runConsensusScoring(withPlace)

	withoutPlace := newRequestStateForConsensus(model.Request{MaxResults: 10})
	withoutPlace.generationResults = []model.ProviderResult{
		{Success: true, Recommendations: []model.Recommendation{{Name: "Place", BaseConfidence: 0.6}}},
	}
	runConsensusScoring(withoutPlace)

	assert.Greater(t, withPlace.ranked[0].BaseConfidence, withoutPlace.ranked[0].BaseConfidence)
}

func TestMergeHighlights_DedupesAndCaps(t *testing.T) {
	members := []model.Recommendation{
		{Highlights: []string{"Great view", "GREAT VIEW", "Cozy"}},
		{Highlights: []string{"Friendly staff", "Cheap", "Loud", "Clean"}},
	}
	merged := mergeHighlights(members)
	assert.LessOrEqual(t, len(merged), 5)
	assert.Contains(t, merged, "Great view")
}

func newRequestStateForConsensus(req model.Request) *requestState {
	return newRequestState(req, time.Now())
}
