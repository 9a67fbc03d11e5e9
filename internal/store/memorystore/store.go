// Package memorystore implements the document store contract in process
// memory. It backs tests and ephemeral development runs; nothing survives a
// restart.
package memorystore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	apperrors "scene-store/internal/shared/errors"
	"scene-store/internal/shared/logger"
	"scene-store/internal/store"
)

// Store keeps documents and values in maps guarded by a RWMutex. The key
// layout mirrors the local backend: scope:collection:id for documents and
// scope:id for values.
type Store struct {
	mu     sync.RWMutex
	docs   map[string]json.RawMessage
	values map[string]json.RawMessage
	log    logger.Logger
}

// New creates an empty in-memory store.
func New(log logger.Logger) *Store {
	return &Store{
		docs:   make(map[string]json.RawMessage),
		values: make(map[string]json.RawMessage),
		log:    log.WithComponent("memorystore"),
	}
}

// Initialize is a no-op for the in-memory store.
func (s *Store) Initialize(ctx context.Context) error {
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close(ctx context.Context) error {
	return nil
}

func (s *Store) ReadDocuments(ctx context.Context, collection string, opts ...store.Option) ([]json.RawMessage, error) {
	resolved := store.ApplyOptions(opts...)
	prefix := docPrefix(resolved.Scope(), collection)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []json.RawMessage
	for key, raw := range s.docs {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			out = append(out, raw)
		}
	}
	if out == nil {
		if resolved.FailIfCollectionMissing {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("collection %q", collection)).
				WithCause(apperrors.ErrCollectionNotFound)
		}
		out = []json.RawMessage{}
	}
	return out, nil
}

func (s *Store) ReadDocument(ctx context.Context, collection, id string, opts ...store.Option) (json.RawMessage, error) {
	resolved := store.ApplyOptions(opts...)

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.docs[docKey(resolved.Scope(), collection, id)], nil
}

func (s *Store) CreateDocument(ctx context.Context, collection string, doc json.RawMessage, opts ...store.Option) (json.RawMessage, error) {
	resolved := store.ApplyOptions(opts...)

	id, err := store.DocumentID(doc)
	if err != nil {
		s.log.Errorf("create rejected for collection %s: %v", collection, err)
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := docKey(resolved.Scope(), collection, id)
	if _, exists := s.docs[key]; exists {
		s.log.Warnf("document %s already exists in %s, refusing to overwrite", id, collection)
		return nil, nil
	}

	stamped, err := store.WithEtag(doc, store.InitialEtag)
	if err != nil {
		s.log.Errorf("create rejected for %s/%s: %v", collection, id, err)
		return nil, nil
	}
	s.docs[key] = stamped
	return stamped, nil
}

func (s *Store) CreateOrUpdateDocument(ctx context.Context, collection string, doc json.RawMessage, opts ...store.Option) (json.RawMessage, error) {
	resolved := store.ApplyOptions(opts...)

	id, err := store.DocumentID(doc)
	if err != nil {
		s.log.Errorf("upsert rejected for collection %s: %v", collection, err)
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := docKey(resolved.Scope(), collection, id)
	stamped, err := store.AdvanceEtag(s.docs[key], doc)
	if err != nil {
		if apperrors.IsVersionMismatch(err) {
			return nil, apperrors.NewVersionMismatchError(collection, id)
		}
		s.log.Errorf("upsert rejected for %s/%s: %v", collection, id, err)
		return nil, nil
	}
	s.docs[key] = stamped
	return stamped, nil
}

func (s *Store) UpdateDocument(ctx context.Context, collection string, doc json.RawMessage, opts ...store.Option) (json.RawMessage, error) {
	resolved := store.ApplyOptions(opts...)

	id, err := store.DocumentID(doc)
	if err != nil {
		s.log.Errorf("update rejected for collection %s: %v", collection, err)
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := docKey(resolved.Scope(), collection, id)
	existing, exists := s.docs[key]
	if !exists {
		s.log.Warnf("document %s does not exist in %s, update skipped", id, collection)
		return nil, nil
	}

	stamped, err := store.AdvanceEtag(existing, doc)
	if err != nil {
		if apperrors.IsVersionMismatch(err) {
			return nil, apperrors.NewVersionMismatchError(collection, id)
		}
		s.log.Errorf("update rejected for %s/%s: %v", collection, id, err)
		return nil, nil
	}
	s.docs[key] = stamped
	return stamped, nil
}

func (s *Store) DeleteDocument(ctx context.Context, collection, id string, opts ...store.Option) error {
	resolved := store.ApplyOptions(opts...)

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, docKey(resolved.Scope(), collection, id))
	return nil
}

func (s *Store) SetValue(ctx context.Context, key string, value json.RawMessage, opts ...store.Option) error {
	resolved := store.ApplyOptions(opts...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[kvKey(resolved.Scope(), key)] = value
	return nil
}

func (s *Store) GetValue(ctx context.Context, key string, opts ...store.Option) (json.RawMessage, error) {
	resolved := store.ApplyOptions(opts...)

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[kvKey(resolved.Scope(), key)], nil
}

func docPrefix(scope store.Scope, collection string) string {
	return fmt.Sprintf("%s:%s:", scope, collection)
}

func docKey(scope store.Scope, collection, id string) string {
	return docPrefix(scope, collection) + id
}

func kvKey(scope store.Scope, id string) string {
	return fmt.Sprintf("%s:%s", scope, id)
}
