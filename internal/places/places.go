// Package places defines the external places-provider adapter interface
// the PlacesEnrichment stage depends on, plus a Google Places-backed
// default implementation. The places provider is an external collaborator
// specified only at this interface.
package places

import (
	"context"

	"github.com/sells-group/recommend-consensus/internal/model"
)

// Query is one nearby-search request.
type Query struct {
	Latitude     float64
	Longitude    float64
	Category     model.Category
	RadiusMeters int
	MaxResults   int
}

// Provider fetches real-world places near a point.
type Provider interface {
	Nearby(ctx context.Context, q Query) ([]model.Place, error)
}
