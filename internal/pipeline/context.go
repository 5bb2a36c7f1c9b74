package pipeline

import (
	"time"

	"github.com/sells-group/recommend-consensus/internal/llm"
	"github.com/sells-group/recommend-consensus/internal/model"
)

// requestState is the mutable per-request context the orchestrator creates
// once and passes to each stage in order. Stages only ever append to or
// set fields on it; nothing reads ahead of where the orchestrator has run.
type requestState struct {
	request model.Request
	rc      llm.RequestContext

	start time.Time

	// Set by Geocode.
	lat                float64
	lng                float64
	resolvedAddress    string
	geocodingAvailable bool

	// Set by CacheCheck.
	cacheKey       string
	cacheHit       bool
	cachedResponse *model.Response

	// Set by ParallelGeneration.
	generationResults []model.ProviderResult

	// Set by PlacesEnrichment.
	enriched bool

	// Set by CrossValidation.
	validationResults []model.CrossValidationResult

	// Set by ConsensusScoring.
	ranked                []model.Recommendation
	totalCandidatesScored int

	// Set by Synthesis.
	synthesizedBy string

	// Bookkeeping for metadata.
	providersUsed   []string
	providersFailed []string
}

func newRequestState(req model.Request, now time.Time) *requestState {
	return &requestState{
		request: req,
		rc:      llm.NewRequestContext(req.UserAPIKeys),
		start:   now,
	}
}

func (s *requestState) category() model.Category {
	if len(s.request.Categories) == 1 {
		return s.request.Categories[0]
	}
	return model.CategoryAll
}
