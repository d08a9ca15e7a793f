package resource

import (
	"fmt"

	"ResourceDirectory/src/types"
)

// FromDocument decodes a stored listing. getter resolves the details
// reference if the listing carries one.
func FromDocument(id string, doc types.Document, getter types.DocumentGetter) (*Resource, error) {
	name, _ := doc["name"].(string)

	tags, err := stringList(doc["tags"])
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", id, err)
	}

	var opts []Option
	if raw, ok := doc["location"]; ok && raw != nil {
		loc, err := decodeLocation(raw)
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", id, err)
		}
		opts = append(opts, WithLocation(loc))
	}
	if raw, ok := doc[types.DetailsReferenceField]; ok && raw != nil {
		ref, err := AsDocRef(raw)
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", id, err)
		}
		opts = append(opts, WithDetailsRef(ref, getter))
	}
	return New(name, tags, opts...)
}

// FromSearchHit builds a Resource from a search index record.
func FromSearchHit(hit types.SearchHit, getter types.DocumentGetter) (*Resource, error) {
	var opts []Option
	if hit.Location != nil {
		loc, err := types.NewLocation(hit.Location.GeoPoint, hit.Location.Address)
		if err != nil {
			return nil, fmt.Errorf("hit %s: %w", hit.ObjectID, err)
		}
		opts = append(opts, WithLocation(loc))
	}
	if hit.DetailsReference != "" {
		ref, err := types.ParseDocRef(hit.DetailsReference)
		if err != nil {
			return nil, fmt.Errorf("hit %s: %w", hit.ObjectID, err)
		}
		opts = append(opts, WithDetailsRef(ref, getter))
	}
	return New(hit.Name, hit.Tags, opts...)
}

// AsDocRef accepts a DocRef or its path form.
func AsDocRef(v any) (types.DocRef, error) {
	switch t := v.(type) {
	case types.DocRef:
		return t, nil
	case *types.DocRef:
		if t != nil {
			return *t, nil
		}
	case string:
		return types.ParseDocRef(t)
	}
	return types.DocRef{}, fmt.Errorf("unsupported reference value %T", v)
}

func decodeLocation(raw any) (types.Location, error) {
	m, ok := asMap(raw)
	if !ok {
		return types.Location{}, fmt.Errorf("location has type %T", raw)
	}
	address, _ := m["address"].(string)

	var point *types.GeoPoint
	lat, okLat := asFloat(m["latitude"])
	lon, okLon := asFloat(m["longitude"])
	if okLat && okLon {
		point = &types.GeoPoint{Lat: lat, Lon: lon}
	}
	return types.NewLocation(point, address)
}

func asMap(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case types.Document:
		return t, true
	}
	return nil, false
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int64:
		return float64(t), true
	case int:
		return float64(t), true
	}
	return 0, false
}

func stringList(v any) ([]string, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case []string:
		return append([]string(nil), t...), nil
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("tag has type %T", e)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("tags have type %T", v)
}
