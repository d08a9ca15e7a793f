// Package resource models a directory listing together with its lazily
// loaded details document.
package resource

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"ResourceDirectory/src/geo"
	"ResourceDirectory/src/types"
)

// Resource is a listing (name, tags, location) plus a reference to a
// separately stored details document.
type Resource struct {
	Name     string
	Tags     []string
	Location *types.Location

	mu         sync.Mutex
	detailsRef *types.DocRef
	getter     types.DocumentGetter
	details    types.Document
	loaded     bool
}

type Option func(*Resource) error

// WithLocation validates loc and attaches it.
func WithLocation(loc types.Location) Option {
	return func(r *Resource) error {
		if _, err := loc.Kind(); err != nil {
			return err
		}
		r.Location = &loc
		return nil
	}
}

// WithDetailsRef links the resource to its details document. getter is
// used to resolve it on the first Details call.
func WithDetailsRef(ref types.DocRef, getter types.DocumentGetter) Option {
	return func(r *Resource) error {
		r.detailsRef = &ref
		r.getter = getter
		return nil
	}
}

func New(name string, tags []string, opts ...Option) (*Resource, error) {
	r := &Resource{
		Name: name,
		Tags: append([]string(nil), tags...),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, fmt.Errorf("resource %q: %w", name, err)
		}
	}
	return r, nil
}

func (r *Resource) DetailsRef() (types.DocRef, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.detailsRef == nil {
		return types.DocRef{}, false
	}
	return *r.detailsRef, true
}

func (r *Resource) SetDetailsRef(ref types.DocRef, getter types.DocumentGetter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.detailsRef = &ref
	if getter != nil {
		r.getter = getter
	}
}

// Details returns the details document, fetching it once. A resource
// without a details reference has no details and returns nil, nil.
func (r *Resource) Details(ctx context.Context) (types.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.loaded {
		return r.details, nil
	}
	if r.detailsRef == nil {
		return nil, nil
	}
	if r.getter == nil {
		return nil, fmt.Errorf("%w: no store bound for %s", types.ErrDetailsFetch, r.detailsRef)
	}

	doc, err := r.getter.Get(ctx, *r.detailsRef)
	if errors.Is(err, types.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", types.ErrDetailsFetch, r.detailsRef)
	}
	if err != nil {
		return nil, err
	}
	if len(doc) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", types.ErrDetailsFetch, r.detailsRef)
	}

	r.details = doc
	r.loaded = true
	return r.details, nil
}

func (r *Resource) ClearDetailsCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.details = nil
	r.loaded = false
}

// SetDetails replaces the cached details. A listing reference held by the
// previous details is kept when doc does not carry one.
func (r *Resource) SetDetails(doc types.Document) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := doc.Clone()
	if next == nil {
		next = types.Document{}
	}
	if _, ok := next[types.ListingReferenceField]; !ok {
		if prev, ok := r.details[types.ListingReferenceField]; ok {
			next[types.ListingReferenceField] = prev
		}
	}
	r.details = next
	r.loaded = true
}

// Serialize returns the listing document. Details are never embedded.
func (r *Resource) Serialize() types.Document {
	doc := types.Document{
		"name": r.Name,
		"tags": append([]string(nil), r.Tags...),
	}
	if r.Location != nil {
		loc := map[string]any{}
		if r.Location.GeoPoint != nil {
			loc["latitude"] = r.Location.GeoPoint.Lat
			loc["longitude"] = r.Location.GeoPoint.Lon
		}
		if r.Location.Address != "" {
			loc["address"] = r.Location.Address
		}
		doc["location"] = loc
	}
	return doc
}

// HasTags reports whether every tag is present on the resource.
func (r *Resource) HasTags(tags []string) bool {
	for _, tag := range tags {
		if !slices.Contains(r.Tags, tag) {
			return false
		}
	}
	return true
}

// DistanceTo returns the meters from p to the resource.
func (r *Resource) DistanceTo(p types.GeoPoint) (float64, error) {
	if r.Location == nil || r.Location.GeoPoint == nil {
		return 0, fmt.Errorf("resource %q: %w", r.Name, types.ErrMissingLocation)
	}
	return geo.DistanceBetween(p, *r.Location.GeoPoint), nil
}

// IsWithin reports whether the resource lies no further than the area's
// radius from its center.
func (r *Resource) IsWithin(area types.AreaSpecifier) (bool, error) {
	d, err := r.DistanceTo(area.Center())
	if err != nil {
		return false, err
	}
	return d <= area.DistanceMeters, nil
}
