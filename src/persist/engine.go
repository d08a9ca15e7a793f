// Package persist writes and deletes the two linked documents of a
// resource: its listing and its details.
package persist

import (
	"context"
	"errors"
	"fmt"

	"ResourceDirectory/src/metrics"
	"ResourceDirectory/src/resource"
	"ResourceDirectory/src/types"

	"github.com/rs/zerolog"
)

type Engine struct {
	store      types.DataStore
	metrics    *metrics.Metrics
	logger     zerolog.Logger
	compensate bool
}

type Option func(*Engine)

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithCompensatingDelete removes a newly created details document when the
// listing write that follows it fails. It only applies to stores without
// atomic batches.
func WithCompensatingDelete() Option {
	return func(e *Engine) { e.compensate = true }
}

func NewEngine(store types.DataStore, logger zerolog.Logger, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, errors.New("data store cannot be nil")
	}
	e := &Engine{
		store:  store,
		logger: logger.With().Str("component", "PersistenceEngine").Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// SubmitResource writes the details document and then the listing, and
// returns the listing identifier. The listing identifier is taken from the
// details' listing reference when there is one; the reference's collection
// is ignored.
func (e *Engine) SubmitResource(ctx context.Context, r *resource.Resource) (string, error) {
	details, err := r.Details(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to resolve details of %q: %w", r.Name, err)
	}
	details = details.Clone()
	if details == nil {
		details = types.Document{}
	}

	var listingRef types.DocRef
	if raw, ok := details[types.ListingReferenceField]; ok && raw != nil {
		ref, err := resource.AsDocRef(raw)
		if err != nil {
			return "", fmt.Errorf("details of %q: %w", r.Name, err)
		}
		// Only the identifier is reused; listings always live in their own collection.
		listingRef = types.DocRef{Collection: types.ListingsCollection, ID: ref.ID}
	} else {
		listingRef = e.store.NewRef(types.ListingsCollection)
	}
	details[types.ListingReferenceField] = listingRef

	detailsRef, hadDetails := r.DetailsRef()
	if !hadDetails {
		detailsRef = e.store.NewRef(types.DetailsCollection)
	}

	listing := r.Serialize()
	listing[types.DetailsReferenceField] = detailsRef

	log := e.logger.With().Str("listing", listingRef.ID).Str("details", detailsRef.ID).Logger()

	if batcher, ok := e.store.(types.Batcher); ok {
		err = batcher.Commit(ctx, []types.Write{
			{Ref: detailsRef, Doc: details},
			{Ref: listingRef, Doc: listing},
		})
		e.metrics.RecordWrite("submit", err)
		if err != nil {
			return "", err
		}
	} else if err = e.writeSequential(ctx, log, detailsRef, details, listingRef, listing, !hadDetails); err != nil {
		return "", err
	}

	r.SetDetailsRef(detailsRef, e.store)
	r.SetDetails(details)
	log.Info().Str("name", r.Name).Msg("Resource submitted")
	return listingRef.ID, nil
}

func (e *Engine) writeSequential(ctx context.Context, log zerolog.Logger, detailsRef types.DocRef, details types.Document, listingRef types.DocRef, listing types.Document, freshDetails bool) error {
	err := e.store.Set(ctx, detailsRef, details)
	e.metrics.RecordWrite("details", err)
	if err != nil {
		return fmt.Errorf("failed to write details: %w", err)
	}

	err = e.store.Set(ctx, listingRef, listing)
	e.metrics.RecordWrite("listing", err)
	if err == nil {
		return nil
	}

	if !e.compensate || !freshDetails {
		log.Warn().Err(err).Msg("Listing write failed after details write; details document left in place")
		return fmt.Errorf("failed to write listing: %w", err)
	}
	if delErr := e.store.Delete(ctx, detailsRef); delErr != nil {
		log.Error().Err(delErr).Msg("Compensating delete of details document failed")
		return fmt.Errorf("failed to write listing: %w", errors.Join(err, delErr))
	}
	log.Warn().Err(err).Msg("Listing write failed; details document removed")
	return fmt.Errorf("failed to write listing: %w", err)
}

// DeleteResourceByID removes the details document and then the listing.
func (e *Engine) DeleteResourceByID(ctx context.Context, id string) error {
	listingRef := types.DocRef{Collection: types.ListingsCollection, ID: id}
	doc, err := e.store.Get(ctx, listingRef)
	if err != nil {
		return err
	}

	writes := make([]types.Write, 0, 2)
	if raw, ok := doc[types.DetailsReferenceField]; ok && raw != nil {
		detailsRef, err := resource.AsDocRef(raw)
		if err != nil {
			return fmt.Errorf("listing %s: %w", id, err)
		}
		writes = append(writes, types.Write{Ref: detailsRef, Delete: true})
	}
	writes = append(writes, types.Write{Ref: listingRef, Delete: true})

	if batcher, ok := e.store.(types.Batcher); ok {
		err = batcher.Commit(ctx, writes)
		e.metrics.RecordWrite("delete", err)
		if err != nil {
			return err
		}
	} else {
		for _, w := range writes {
			err := e.store.Delete(ctx, w.Ref)
			e.metrics.RecordWrite("delete", err)
			if err != nil {
				return fmt.Errorf("failed to delete %s: %w", w.Ref, err)
			}
		}
	}
	e.logger.Info().Str("listing", id).Msg("Resource deleted")
	return nil
}
