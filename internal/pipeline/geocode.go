package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sells-group/recommend-consensus/internal/geocode"
)

// runGeocode resolves the request to (lat, lng, resolvedAddress,
// geocodingAvailable). A request with neither coordinates nor address is
// the caller's fault and fails fatally before this stage even runs (see
// Orchestrator.Run); this stage only decides between the coordinate and
// address branches.
func runGeocode(ctx context.Context, geocoder geocode.Geocoder, s *requestState) {
	if s.request.HasCoordinates() {
		s.lat = *s.request.Latitude
		s.lng = *s.request.Longitude
		s.geocodingAvailable = true

		if geocoder != nil {
			name, err := geocoder.Reverse(ctx, s.lat, s.lng)
			if err == nil && name != "" {
				s.resolvedAddress = name
				return
			}
			zap.L().Debug("geocode: reverse lookup failed, using coordinate string", zap.Error(err))
		}
		s.resolvedAddress = formatCoordString(s.lat, s.lng)
		return
	}

	if geocoder == nil {
		s.geocodingAvailable = false
		s.resolvedAddress = s.request.Address
		return
	}

	result, err := geocoder.Forward(ctx, s.request.Address)
	if err != nil || result == nil || !result.Matched {
		zap.L().Warn("geocode: forward lookup failed, degrading to address-only mode",
			zap.String("address", s.request.Address), zap.Error(err))
		s.geocodingAvailable = false
		s.lat, s.lng = 0, 0
		s.resolvedAddress = s.request.Address
		return
	}

	s.geocodingAvailable = true
	s.lat = result.Latitude
	s.lng = result.Longitude
	s.resolvedAddress = result.DisplayName
}

func formatCoordString(lat, lng float64) string {
	return fmt.Sprintf("%.5f, %.5f", lat, lng)
}
