package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceMeters_SamePointIsZero(t *testing.T) {
	d := DistanceMeters(40.7128, -73.9932, 40.7128, -73.9932)
	assert.Equal(t, 0.0, d)
}

func TestDistanceMeters_KnownDistance(t *testing.T) {
	// Empire State Building to Times Square, roughly 1km apart.
	d := DistanceMeters(40.748817, -73.985428, 40.758, -73.9855)
	assert.InDelta(t, 1020, d, 150)
}

func TestDistanceMeters_Symmetric(t *testing.T) {
	a := DistanceMeters(10, 20, 30, 40)
	b := DistanceMeters(30, 40, 10, 20)
	assert.InDelta(t, a, b, 0.0001)
}
