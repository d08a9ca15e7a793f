package db

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"ResourceDirectory/src/resource"
	"ResourceDirectory/src/types"

	"github.com/olivere/elastic/v7"
	"github.com/rs/zerolog"
)

//go:embed schema.json
var indexMapping string

const defaultSearchSize = 100

// ElasticIndex is the full-text search index over resource listings.
type ElasticIndex struct {
	Client *elastic.Client
	Index  string
	size   int
	logger zerolog.Logger
}

func NewElasticIndex(url, index string, logger zerolog.Logger, opts ...elastic.ClientOptionFunc) (*ElasticIndex, error) {
	options := append([]elastic.ClientOptionFunc{
		elastic.SetURL(url),
		elastic.SetSniff(false),
	}, opts...)
	client, err := elastic.NewClient(options...)
	if err != nil {
		return nil, fmt.Errorf("failed to create elastic client: %w", err)
	}
	return &ElasticIndex{
		Client: client,
		Index:  index,
		size:   defaultSearchSize,
		logger: logger.With().Str("component", "ElasticIndex").Str("index", index).Logger(),
	}, nil
}

type indexRecord struct {
	Name             string                `json:"name"`
	Tags             []string              `json:"tags"`
	Location         *types.LocationRecord `json:"location,omitempty"`
	DetailsReference string                `json:"details-reference,omitempty"`
}

func newIndexRecord(r *resource.Resource) indexRecord {
	rec := indexRecord{Name: r.Name, Tags: r.Tags}
	if r.Location != nil {
		rec.Location = &types.LocationRecord{GeoPoint: r.Location.GeoPoint, Address: r.Location.Address}
	}
	if ref, ok := r.DetailsRef(); ok {
		rec.DetailsReference = ref.Path()
	}
	return rec
}

// Search runs a multi-field text query over name, tags and address.
func (es *ElasticIndex) Search(ctx context.Context, text string) ([]types.SearchHit, error) {
	searchResult, err := es.Client.Search().
		Index(es.Index).
		Query(elastic.NewMultiMatchQuery(text, "name", "tags", "location.address")).
		Size(es.size).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("search %q failed: %w", text, err)
	}

	hits := make([]types.SearchHit, 0, len(searchResult.Hits.Hits))
	for _, hit := range searchResult.Hits.Hits {
		var rec indexRecord
		if err := json.Unmarshal(hit.Source, &rec); err != nil {
			es.logger.Warn().Err(err).Str("id", hit.Id).Msg("Skipping undecodable hit")
			continue
		}
		hits = append(hits, types.SearchHit{
			ObjectID:         hit.Id,
			Name:             rec.Name,
			Tags:             rec.Tags,
			Location:         rec.Location,
			DetailsReference: rec.DetailsReference,
		})
	}
	es.logger.Debug().Str("text", text).Int("hits", len(hits)).Msg("Search completed")
	return hits, nil
}

func (es *ElasticIndex) IndexResource(ctx context.Context, id string, r *resource.Resource) error {
	_, err := es.Client.Index().
		Index(es.Index).
		Id(id).
		BodyJson(newIndexRecord(r)).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to index resource %s: %w", id, err)
	}
	return nil
}

// RemoveResource deletes a listing from the index. Missing entries are ignored.
func (es *ElasticIndex) RemoveResource(ctx context.Context, id string) error {
	_, err := es.Client.Delete().Index(es.Index).Id(id).Do(ctx)
	if err != nil && !elastic.IsNotFound(err) {
		return fmt.Errorf("failed to remove resource %s: %w", id, err)
	}
	return nil
}

// Reindex bulk-indexes resources and returns how many were accepted.
// Per-item failures are logged, not returned.
func (es *ElasticIndex) Reindex(ctx context.Context, resources map[string]*resource.Resource) (int, error) {
	if len(resources) == 0 {
		return 0, nil
	}
	bulkRequest := es.Client.Bulk()
	for id, r := range resources {
		req := elastic.NewBulkIndexRequest().Index(es.Index).Id(id).Doc(newIndexRecord(r))
		bulkRequest = bulkRequest.Add(req)
	}

	bulkResponse, err := bulkRequest.Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("bulk request failed: %w", err)
	}

	indexed := 0
	for _, item := range bulkResponse.Items {
		for _, op := range item {
			if op.Error != nil {
				es.logger.Error().Str("id", op.Id).Str("reason", op.Error.Reason).Msg("Failed to index resource")
				continue
			}
			indexed++
		}
	}
	es.logger.Info().Int("indexed", indexed).Int("total", len(resources)).Msg("Reindex finished")
	return indexed, nil
}

// CreateIndexWithMapping creates the index with the embedded mapping unless
// it already exists.
func (es *ElasticIndex) CreateIndexWithMapping(ctx context.Context) error {
	exists, err := es.Client.IndexExists(es.Index).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to check index existence: %w", err)
	}
	if exists {
		es.logger.Info().Msg("Index already exists.")
		return nil
	}

	createIndex, err := es.Client.CreateIndex(es.Index).BodyString(indexMapping).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	if !createIndex.Acknowledged {
		return errors.New("create index was not acknowledged")
	}
	es.logger.Info().Msg("Index created.")
	return nil
}

func (es *ElasticIndex) Stop() {
	es.Client.Stop()
}
