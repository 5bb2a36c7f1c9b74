package pipeline

import "github.com/rotisserie/eris"

// Sentinel errors for the two fatal conditions plus cancellation, matched
// against with errors.Is at the API boundary to pick an HTTP status.
var (
	// ErrInputInvalid: the request has neither coordinates nor an
	// address. Maps to 400. MaxResults/RadiusMeters are never rejected —
	// model.Request.Normalize defaults and clamps them instead.
	ErrInputInvalid = eris.New("pipeline: input invalid")

	// ErrExhaustedProviders: stage 3 yielded zero successful providers
	// with at least one recommendation, or no provider was configured or
	// supplied a user key at all. Maps to 503.
	ErrExhaustedProviders = eris.New("pipeline: no providers produced recommendations")

	// ErrCancelled: the request's cancellation token tripped, or the
	// overall deadline expired. Maps to 504.
	ErrCancelled = eris.New("pipeline: cancelled")
)
