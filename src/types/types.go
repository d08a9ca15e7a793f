package types

import (
	"context"
	"fmt"
	"math"
	"strings"
)

const (
	ListingsCollection = "resources"
	DetailsCollection  = "details"

	// ListingReferenceField is the back-reference stored in a details document.
	ListingReferenceField = "listing-reference"
	// DetailsReferenceField is the forward reference stored in a listing document.
	DetailsReferenceField = "details-reference"

	// LatitudeField is the nested listing field the area query ranges over.
	LatitudeField = "location.latitude"
)

type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type LocationKind int

const (
	LocationGeopoint LocationKind = iota + 1
	LocationAddress
	LocationBoth
)

func (k LocationKind) String() string {
	switch k {
	case LocationGeopoint:
		return "geopoint"
	case LocationAddress:
		return "address"
	case LocationBoth:
		return "geopoint+address"
	}
	return "invalid"
}

// Location is a geopoint, an address, or both. Distance is only set on
// results of area-scoped queries and is never persisted.
type Location struct {
	GeoPoint *GeoPoint `json:"geopoint,omitempty"`
	Address  string    `json:"address,omitempty"`
	Distance *float64  `json:"distance,omitempty"`
}

func AtPoint(lat, lon float64) Location {
	return Location{GeoPoint: &GeoPoint{Lat: lat, Lon: lon}}
}

func AtAddress(address string) Location {
	return Location{Address: address}
}

// NewLocation builds a Location from optional parts and validates it.
func NewLocation(point *GeoPoint, address string) (Location, error) {
	loc := Location{Address: address}
	if point != nil {
		p := *point
		loc.GeoPoint = &p
	}
	if _, err := loc.Kind(); err != nil {
		return Location{}, err
	}
	return loc, nil
}

func (l Location) Kind() (LocationKind, error) {
	switch {
	case l.GeoPoint != nil && l.Address != "":
		return LocationBoth, nil
	case l.GeoPoint != nil:
		return LocationGeopoint, nil
	case l.Address != "":
		return LocationAddress, nil
	}
	return 0, ErrInvalidLocation
}

// WithDistance returns a copy of l annotated with a distance in meters.
func (l Location) WithDistance(meters float64) Location {
	d := meters
	l.Distance = &d
	return l
}

// AreaSpecifier is a disc of DistanceMeters around a center point.
type AreaSpecifier struct {
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	DistanceMeters float64 `json:"distance"`
}

func (a AreaSpecifier) Center() GeoPoint {
	return GeoPoint{Lat: a.Latitude, Lon: a.Longitude}
}

func (a AreaSpecifier) Validate() error {
	for _, v := range []float64{a.Latitude, a.Longitude, a.DistanceMeters} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite value", ErrInvalidArea)
		}
	}
	if a.DistanceMeters < 0 {
		return fmt.Errorf("%w: negative distance %v", ErrInvalidArea, a.DistanceMeters)
	}
	if a.Latitude < -90 || a.Latitude > 90 {
		return fmt.Errorf("%w: latitude %v out of range", ErrInvalidArea, a.Latitude)
	}
	return nil
}

// ResourceQuery combines optional text, area and tag filters. The zero
// value selects every resource.
type ResourceQuery struct {
	Text string
	Area *AreaSpecifier
	Tags []string
}

// DocRef points at a document in a named collection.
type DocRef struct {
	Collection string
	ID         string
}

func (r DocRef) Path() string {
	return r.Collection + "/" + r.ID
}

func (r DocRef) String() string {
	return r.Path()
}

// MarshalText renders the reference as its path in JSON output.
func (r DocRef) MarshalText() ([]byte, error) {
	return []byte(r.Path()), nil
}

func ParseDocRef(path string) (DocRef, error) {
	path = strings.Trim(path, "/")
	i := strings.LastIndex(path, "/")
	if i <= 0 || i == len(path)-1 {
		return DocRef{}, fmt.Errorf("invalid document path %q", path)
	}
	return DocRef{Collection: path[:i], ID: path[i+1:]}, nil
}

// Document is the freeform shape of a stored document. Nested objects are
// map[string]any, references are DocRef values.
type Document map[string]any

// Clone copies d deeply enough that nested maps and slices are not shared.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Document:
		return t.Clone()
	case map[string]any:
		return map[string]any(Document(t).Clone())
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	}
	return v
}

// Lookup resolves a dotted field path such as "location.latitude".
func (d Document) Lookup(field string) (any, bool) {
	var cur any = map[string]any(d)
	for _, part := range strings.Split(field, ".") {
		var m map[string]any
		switch t := cur.(type) {
		case map[string]any:
			m = t
		case Document:
			m = t
		default:
			return nil, false
		}
		v, ok := m[part]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

// Write is one mutation inside a batch.
type Write struct {
	Ref    DocRef
	Doc    Document
	Delete bool
}

// SearchHit is a flattened listing record returned by the search index.
type SearchHit struct {
	ObjectID         string          `json:"objectID"`
	Name             string          `json:"name"`
	Tags             []string        `json:"tags"`
	Location         *LocationRecord `json:"location,omitempty"`
	DetailsReference string          `json:"details-reference,omitempty"`
}

// LocationRecord is the indexed form of a Location.
type LocationRecord struct {
	GeoPoint *GeoPoint `json:"geopoint,omitempty"`
	Address  string    `json:"address,omitempty"`
}

type DocumentGetter interface {
	// Get returns ErrNotFound (wrapped) when the document does not exist.
	Get(ctx context.Context, ref DocRef) (Document, error)
}

// DataStore is the collection-based document store the engines run against.
type DataStore interface {
	DocumentGetter
	GetAll(ctx context.Context, collection string) (map[string]Document, error)
	// Range returns documents whose numeric field lies in [min, max].
	Range(ctx context.Context, collection, field string, min, max float64) (map[string]Document, error)
	Set(ctx context.Context, ref DocRef, doc Document) error
	Delete(ctx context.Context, ref DocRef) error
	NewRef(collection string) DocRef
}

// Batcher is implemented by stores that can commit several writes atomically.
type Batcher interface {
	Commit(ctx context.Context, writes []Write) error
}
