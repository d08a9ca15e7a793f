package geo

import (
	"testing"

	"ResourceDirectory/src/types"

	"github.com/stretchr/testify/assert"
)

var london = types.GeoPoint{Lat: 51.5074, Lon: -0.1278}

func TestDestinationPoint_RoundTripsDistance(t *testing.T) {
	for _, bearing := range []float64{0, 45, 90, 180, 270, 333} {
		p := DestinationPoint(london, 4000, bearing)
		assert.InDelta(t, 4000, DistanceBetween(london, p), 1, "bearing %v", bearing)
	}
}

func TestDestinationPoint_Cardinal(t *testing.T) {
	north := DestinationPoint(london, 5000, BearingNorth)
	assert.Greater(t, north.Lat, london.Lat)
	assert.InDelta(t, london.Lon, north.Lon, 1e-9)

	east := DestinationPoint(london, 5000, BearingEast)
	assert.Greater(t, east.Lon, london.Lon)
}

func TestDistanceBetween_SamePoint(t *testing.T) {
	assert.Equal(t, 0.0, DistanceBetween(london, london))
}

func TestBoundingBox(t *testing.T) {
	box := BoundingBox(london, 5000)

	assert.Greater(t, box.North, london.Lat)
	assert.Less(t, box.South, london.Lat)
	assert.Greater(t, box.East, london.Lon)
	assert.Less(t, box.West, london.Lon)

	// roughly 0.045 degrees of latitude per 5 km
	assert.InDelta(t, 0.045, box.North-london.Lat, 0.001)

	assert.True(t, box.ContainsLat(london.Lat))
	assert.True(t, box.ContainsLon(london.Lon))
	assert.False(t, box.ContainsLon(box.East+0.001))
	assert.False(t, box.ContainsLat(box.South-0.001))
}

func TestBoundingBox_ZeroRadius(t *testing.T) {
	box := BoundingBox(london, 0)
	assert.InDelta(t, london.Lat, box.North, 1e-9)
	assert.InDelta(t, london.Lon, box.East, 1e-9)
}
