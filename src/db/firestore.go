package db

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"ResourceDirectory/src/types"

	"cloud.google.com/go/firestore"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Provider lazily creates a single Firestore client. FIRESTORE_EMULATOR_HOST
// is honoured by the client library.
type Provider struct {
	projectID  string
	databaseID string
	opts       []option.ClientOption

	once   sync.Once
	client *firestore.Client
	err    error
}

func NewProvider(projectID, databaseID string, opts ...option.ClientOption) *Provider {
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}
	return &Provider{projectID: projectID, databaseID: databaseID, opts: opts}
}

func (p *Provider) Instance(ctx context.Context) (*firestore.Client, error) {
	p.once.Do(func() {
		p.client, p.err = firestore.NewClientWithDatabase(ctx, p.projectID, p.databaseID, p.opts...)
		if p.err != nil {
			p.err = fmt.Errorf("firestore.NewClientWithDatabase: %w", p.err)
		}
	})
	return p.client, p.err
}

func (p *Provider) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}

// FirestoreStore implements types.DataStore and types.Batcher on Firestore.
type FirestoreStore struct {
	client *firestore.Client
	logger zerolog.Logger
}

func NewFirestoreStore(client *firestore.Client, logger zerolog.Logger) (*FirestoreStore, error) {
	if client == nil {
		return nil, errors.New("firestore client cannot be nil")
	}
	return &FirestoreStore{
		client: client,
		logger: logger.With().Str("component", "FirestoreStore").Logger(),
	}, nil
}

func (s *FirestoreStore) doc(ref types.DocRef) *firestore.DocumentRef {
	return s.client.Collection(ref.Collection).Doc(ref.ID)
}

func (s *FirestoreStore) NewRef(collection string) types.DocRef {
	return types.DocRef{Collection: collection, ID: s.client.Collection(collection).NewDoc().ID}
}

func (s *FirestoreStore) Get(ctx context.Context, ref types.DocRef) (types.Document, error) {
	snap, err := s.doc(ref).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, fmt.Errorf("%s: %w", ref, types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", ref, err)
	}
	return fromNative(snap.Data()), nil
}

func (s *FirestoreStore) GetAll(ctx context.Context, collection string) (map[string]types.Document, error) {
	return s.collect(s.client.Collection(collection).Documents(ctx), collection)
}

func (s *FirestoreStore) Range(ctx context.Context, collection, field string, min, max float64) (map[string]types.Document, error) {
	q := s.client.Collection(collection).
		Where(field, ">=", min).
		Where(field, "<=", max)
	return s.collect(q.Documents(ctx), collection)
}

func (s *FirestoreStore) collect(it *firestore.DocumentIterator, collection string) (map[string]types.Document, error) {
	defer it.Stop()
	out := make(map[string]types.Document)
	for {
		snap, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read collection '%s': %w", collection, err)
		}
		out[snap.Ref.ID] = fromNative(snap.Data())
	}
	s.logger.Debug().Str("collection", collection).Int("count", len(out)).Msg("Read documents")
	return out, nil
}

func (s *FirestoreStore) Set(ctx context.Context, ref types.DocRef, doc types.Document) error {
	if _, err := s.doc(ref).Set(ctx, s.toNative(doc)); err != nil {
		return fmt.Errorf("failed to set %s: %w", ref, err)
	}
	return nil
}

func (s *FirestoreStore) Delete(ctx context.Context, ref types.DocRef) error {
	if _, err := s.doc(ref).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete %s: %w", ref, err)
	}
	return nil
}

// Commit runs all writes in one Firestore transaction.
func (s *FirestoreStore) Commit(ctx context.Context, writes []types.Write) error {
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		for _, w := range writes {
			var err error
			if w.Delete {
				err = tx.Delete(s.doc(w.Ref))
			} else {
				err = tx.Set(s.doc(w.Ref), s.toNative(w.Doc))
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to commit %d writes: %w", len(writes), err)
	}
	return nil
}

// toNative replaces DocRef values with Firestore references.
func (s *FirestoreStore) toNative(doc types.Document) map[string]interface{} {
	out := make(map[string]interface{}, len(doc))
	for k, v := range doc {
		out[k] = s.toNativeValue(v)
	}
	return out
}

func (s *FirestoreStore) toNativeValue(v any) any {
	switch t := v.(type) {
	case types.DocRef:
		return s.doc(t)
	case *types.DocRef:
		if t == nil {
			return nil
		}
		return s.doc(*t)
	case types.Document:
		return s.toNative(t)
	case map[string]any:
		return s.toNative(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = s.toNativeValue(e)
		}
		return out
	}
	return v
}

// fromNative replaces Firestore references with DocRef values.
func fromNative(data map[string]interface{}) types.Document {
	out := make(types.Document, len(data))
	for k, v := range data {
		out[k] = fromNativeValue(v)
	}
	return out
}

func fromNativeValue(v any) any {
	switch t := v.(type) {
	case *firestore.DocumentRef:
		if t == nil || t.Parent == nil {
			return nil
		}
		return types.DocRef{Collection: t.Parent.ID, ID: t.ID}
	case map[string]interface{}:
		return map[string]any(fromNative(t))
	case []interface{}:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = fromNativeValue(e)
		}
		return out
	}
	return v
}
