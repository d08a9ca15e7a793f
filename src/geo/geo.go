// Package geo holds the spherical helpers used by area-scoped queries.
package geo

import (
	"ResourceDirectory/src/types"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
)

const (
	BearingNorth = 0.0
	BearingEast  = 90.0
	BearingSouth = 180.0
	BearingWest  = 270.0
)

// Box is an axis-aligned lat/lon rectangle. West > East means the box
// crosses the antimeridian, which callers do not handle.
type Box struct {
	North float64
	South float64
	East  float64
	West  float64
}

func (b Box) ContainsLon(lon float64) bool {
	return lon >= b.West && lon <= b.East
}

func (b Box) ContainsLat(lat float64) bool {
	return lat >= b.South && lat <= b.North
}

func toOrb(p types.GeoPoint) orb.Point {
	return orb.Point{p.Lon, p.Lat}
}

// DestinationPoint projects center by meters along bearing (degrees clockwise from north).
func DestinationPoint(center types.GeoPoint, meters, bearing float64) types.GeoPoint {
	p := orbgeo.PointAtBearingAndDistance(toOrb(center), bearing, meters)
	return types.GeoPoint{Lat: p.Lat(), Lon: p.Lon()}
}

// DistanceBetween returns the great-circle distance in meters.
func DistanceBetween(a, b types.GeoPoint) float64 {
	return orbgeo.DistanceHaversine(toOrb(a), toOrb(b))
}

// BoundingBox approximates the disc of radius meters around center using
// the four cardinal destination points.
func BoundingBox(center types.GeoPoint, meters float64) Box {
	return Box{
		North: DestinationPoint(center, meters, BearingNorth).Lat,
		South: DestinationPoint(center, meters, BearingSouth).Lat,
		East:  DestinationPoint(center, meters, BearingEast).Lon,
		West:  DestinationPoint(center, meters, BearingWest).Lon,
	}
}
