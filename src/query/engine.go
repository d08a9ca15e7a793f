// Package query resolves resource queries over the document store and the
// search index and returns them in one shape: identifier -> Resource.
package query

import (
	"context"
	"errors"
	"fmt"

	"ResourceDirectory/src/cache"
	"ResourceDirectory/src/geo"
	"ResourceDirectory/src/metrics"
	"ResourceDirectory/src/resource"
	"ResourceDirectory/src/types"

	"github.com/rs/zerolog"
)

// SearchIndex is the external full-text index over listings.
type SearchIndex interface {
	Search(ctx context.Context, text string) ([]types.SearchHit, error)
}

const (
	pathText = "text"
	pathArea = "area"
	pathAll  = "all"
)

type Engine struct {
	store   types.DataStore
	index   SearchIndex
	cache   *cache.ResourceCache
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

type Option func(*Engine)

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine wires the engine to its collaborators. index may be nil, in
// which case text queries fail.
func NewEngine(store types.DataStore, index SearchIndex, c *cache.ResourceCache, logger zerolog.Logger, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, errors.New("data store cannot be nil")
	}
	if c == nil {
		return nil, errors.New("resource cache cannot be nil")
	}
	e := &Engine{
		store:  store,
		index:  index,
		cache:  c,
		logger: logger.With().Str("component", "QueryEngine").Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Get dispatches q: text search first, then area, then a full scan. Tags
// and area act as post-filters on text results.
func (e *Engine) Get(ctx context.Context, q types.ResourceQuery) (map[string]*resource.Resource, error) {
	if q.Area != nil {
		if err := q.Area.Validate(); err != nil {
			return nil, err
		}
	}

	switch {
	case q.Text != "":
		e.metrics.RecordQuery(pathText)
		return e.searchText(ctx, q)
	case q.Area != nil:
		e.metrics.RecordQuery(pathArea)
		return e.fetchArea(ctx, *q.Area, q.Tags)
	default:
		e.metrics.RecordQuery(pathAll)
		return e.fetchAll(ctx, q.Tags)
	}
}

// GetAllResources returns every resource, or every resource in area, from
// the cache when that shape has already been loaded.
func (e *Engine) GetAllResources(ctx context.Context, area *types.AreaSpecifier) (map[string]*resource.Resource, error) {
	if area != nil {
		if err := area.Validate(); err != nil {
			return nil, err
		}
	}
	key := cache.KeyFor(area)
	m, result, err := e.cache.Get(ctx, key, func(ctx context.Context) (map[string]*resource.Resource, error) {
		if area == nil {
			return e.fetchAll(ctx, nil)
		}
		return e.fetchArea(ctx, *area, nil)
	})
	if err != nil {
		return nil, err
	}
	e.metrics.RecordCache(string(result))
	e.logger.Debug().Str("key", key).Str("result", string(result)).Int("count", len(m)).Msg("Resource cache lookup")
	return m, nil
}

func (e *Engine) ClearResourceCache() {
	e.cache.Clear()
	e.logger.Debug().Msg("Resource cache cleared")
}

// GetResourceByID always reads the store.
func (e *Engine) GetResourceByID(ctx context.Context, id string) (*resource.Resource, error) {
	ref := types.DocRef{Collection: types.ListingsCollection, ID: id}
	doc, err := e.store.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	return resource.FromDocument(id, doc, e.store)
}

func (e *Engine) searchText(ctx context.Context, q types.ResourceQuery) (map[string]*resource.Resource, error) {
	if e.index == nil {
		return nil, errors.New("text query requires a search index")
	}
	hits, err := e.index.Search(ctx, q.Text)
	if err != nil {
		return nil, err
	}

	out := make(map[string]*resource.Resource, len(hits))
	for _, hit := range hits {
		r, err := resource.FromSearchHit(hit, e.store)
		if err != nil {
			e.logger.Warn().Err(err).Str("id", hit.ObjectID).Msg("Skipping malformed search hit")
			continue
		}
		if !r.HasTags(q.Tags) {
			continue
		}
		if q.Area != nil && !e.annotateWithin(r, *q.Area) {
			continue
		}
		out[hit.ObjectID] = r
	}
	return out, nil
}

func (e *Engine) fetchArea(ctx context.Context, area types.AreaSpecifier, tags []string) (map[string]*resource.Resource, error) {
	box := geo.BoundingBox(area.Center(), area.DistanceMeters)
	docs, err := e.store.Range(ctx, types.ListingsCollection, types.LatitudeField, box.South, box.North)
	if err != nil {
		return nil, fmt.Errorf("area query failed: %w", err)
	}

	out := make(map[string]*resource.Resource)
	for id, doc := range docs {
		r, err := resource.FromDocument(id, doc, e.store)
		if err != nil {
			e.logger.Warn().Err(err).Str("id", id).Msg("Skipping malformed listing")
			continue
		}
		// Latitude matched in the store; longitude has to be checked here.
		if r.Location == nil || r.Location.GeoPoint == nil || !box.ContainsLon(r.Location.GeoPoint.Lon) {
			continue
		}
		if !r.HasTags(tags) {
			continue
		}
		if !e.annotateWithin(r, area) {
			continue
		}
		out[id] = r
	}
	e.logger.Debug().Int("candidates", len(docs)).Int("matched", len(out)).Msg("Area query completed")
	return out, nil
}

func (e *Engine) fetchAll(ctx context.Context, tags []string) (map[string]*resource.Resource, error) {
	docs, err := e.store.GetAll(ctx, types.ListingsCollection)
	if err != nil {
		return nil, fmt.Errorf("listing query failed: %w", err)
	}

	out := make(map[string]*resource.Resource, len(docs))
	for id, doc := range docs {
		r, err := resource.FromDocument(id, doc, e.store)
		if err != nil {
			e.logger.Warn().Err(err).Str("id", id).Msg("Skipping malformed listing")
			continue
		}
		if !r.HasTags(tags) {
			continue
		}
		out[id] = r
	}
	return out, nil
}

// annotateWithin reports whether r lies inside area and, if so, records
// its distance from the center on r.Location.
func (e *Engine) annotateWithin(r *resource.Resource, area types.AreaSpecifier) bool {
	d, err := r.DistanceTo(area.Center())
	if err != nil || d > area.DistanceMeters {
		return false
	}
	loc := r.Location.WithDistance(d)
	r.Location = &loc
	return true
}
