package db

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ResourceDirectory/src/resource"
	"ResourceDirectory/src/types"

	"github.com/olivere/elastic/v7"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIndex(t *testing.T, handler http.HandlerFunc) *ElasticIndex {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	idx, err := NewElasticIndex(srv.URL, "resources", zerolog.Nop(), elastic.SetHealthcheck(false))
	require.NoError(t, err)
	t.Cleanup(idx.Stop)
	return idx
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestElasticIndex_Search(t *testing.T) {
	var gotPath, gotBody string
	idx := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		writeJSON(w, http.StatusOK, `{
			"took": 1,
			"hits": {
				"total": {"value": 2, "relation": "eq"},
				"hits": [
					{"_index": "resources", "_id": "L1", "_score": 2.0, "_source": {
						"name": "Food bank",
						"tags": ["food", "free"],
						"location": {"geopoint": {"lat": 51.5, "lon": -0.12}, "address": "1 Road"},
						"details-reference": "details/d1"
					}},
					{"_index": "resources", "_id": "L2", "_score": 1.0, "_source": {
						"name": "Soup kitchen",
						"tags": ["food"]
					}}
				]
			}
		}`)
	})

	hits, err := idx.Search(context.Background(), "food")
	require.NoError(t, err)

	assert.Equal(t, "/resources/_search", gotPath)
	assert.Contains(t, gotBody, "multi_match")
	assert.Contains(t, gotBody, `"food"`)

	require.Len(t, hits, 2)
	assert.Equal(t, "L1", hits[0].ObjectID)
	assert.Equal(t, []string{"food", "free"}, hits[0].Tags)
	require.NotNil(t, hits[0].Location)
	assert.Equal(t, &types.GeoPoint{Lat: 51.5, Lon: -0.12}, hits[0].Location.GeoPoint)
	assert.Equal(t, "details/d1", hits[0].DetailsReference)
	assert.Nil(t, hits[1].Location)
}

func TestElasticIndex_SearchError(t *testing.T) {
	idx := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, `{"error": {"type": "boom", "reason": "down"}, "status": 500}`)
	})

	_, err := idx.Search(context.Background(), "food")
	assert.Error(t, err)
}

func TestElasticIndex_Reindex(t *testing.T) {
	var gotBody string
	idx := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/_bulk", r.URL.Path)
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		writeJSON(w, http.StatusOK, `{
			"took": 3,
			"errors": true,
			"items": [
				{"index": {"_index": "resources", "_id": "a", "status": 201}},
				{"index": {"_index": "resources", "_id": "b", "status": 400,
					"error": {"type": "mapper_parsing_exception", "reason": "bad geopoint"}}}
			]
		}`)
	})

	a, err := resource.New("a", []string{"food"}, resource.WithLocation(types.AtPoint(1, 2)))
	require.NoError(t, err)
	b, err := resource.New("b", nil,
		resource.WithDetailsRef(types.DocRef{Collection: types.DetailsCollection, ID: "db"}, nil))
	require.NoError(t, err)

	indexed, err := idx.Reindex(context.Background(), map[string]*resource.Resource{"a": a, "b": b})
	require.NoError(t, err)
	assert.Equal(t, 1, indexed)
	assert.Contains(t, gotBody, `"details-reference":"details/db"`)
	assert.True(t, strings.Contains(gotBody, `"geopoint":{"lat":1,"lon":2}`), gotBody)

	indexed, err = idx.Reindex(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, indexed)
}

func TestElasticIndex_RemoveResourceIgnoresMissing(t *testing.T) {
	idx := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		writeJSON(w, http.StatusNotFound, `{"_index": "resources", "_id": "gone", "result": "not_found"}`)
	})

	assert.NoError(t, idx.RemoveResource(context.Background(), "gone"))
}
