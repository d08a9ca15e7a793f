package db

import (
	"context"
	"fmt"
	"sync"

	"ResourceDirectory/src/types"

	"github.com/google/uuid"
)

// MemoryStore is an in-process DataStore used for local runs and tests.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]types.Document
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]map[string]types.Document)}
}

func (s *MemoryStore) NewRef(collection string) types.DocRef {
	return types.DocRef{Collection: collection, ID: uuid.NewString()}
}

func (s *MemoryStore) Get(ctx context.Context, ref types.DocRef) (types.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.collections[ref.Collection][ref.ID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", ref, types.ErrNotFound)
	}
	return doc.Clone(), nil
}

func (s *MemoryStore) GetAll(ctx context.Context, collection string) (map[string]types.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]types.Document, len(s.collections[collection]))
	for id, doc := range s.collections[collection] {
		out[id] = doc.Clone()
	}
	return out, nil
}

func (s *MemoryStore) Range(ctx context.Context, collection, field string, min, max float64) (map[string]types.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]types.Document)
	for id, doc := range s.collections[collection] {
		v, ok := doc.Lookup(field)
		if !ok {
			continue
		}
		f, ok := v.(float64)
		if !ok || f < min || f > max {
			continue
		}
		out[id] = doc.Clone()
	}
	return out, nil
}

func (s *MemoryStore) Set(ctx context.Context, ref types.DocRef, doc types.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set(ref, doc)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, ref types.DocRef) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections[ref.Collection], ref.ID)
	return nil
}

// Commit applies all writes under one lock.
func (s *MemoryStore) Commit(ctx context.Context, writes []types.Write) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range writes {
		if w.Delete {
			delete(s.collections[w.Ref.Collection], w.Ref.ID)
			continue
		}
		s.set(w.Ref, w.Doc)
	}
	return nil
}

func (s *MemoryStore) set(ref types.DocRef, doc types.Document) {
	coll, ok := s.collections[ref.Collection]
	if !ok {
		coll = make(map[string]types.Document)
		s.collections[ref.Collection] = coll
	}
	coll[ref.ID] = doc.Clone()
}
