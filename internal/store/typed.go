package store

import (
	"context"
	"encoding/json"
)

// Typed wrappers over the raw-document Store contract. Backends stay
// generic-free behind the interface; callers keep their own document types.

// ReadDocuments reads all documents in a collection into typed values.
func ReadDocuments[T any](ctx context.Context, s Store, collection string, opts ...Option) ([]T, error) {
	raws, err := s.ReadDocuments(ctx, collection, opts...)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(raws))
	for _, raw := range raws {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// ReadDocument reads a single typed document. Returns nil when absent.
func ReadDocument[T any](ctx context.Context, s Store, collection, id string, opts ...Option) (*T, error) {
	raw, err := s.ReadDocument(ctx, collection, id, opts...)
	if err != nil || raw == nil {
		return nil, err
	}
	return decode[T](raw)
}

// CreateDocument stores a new typed document. Returns nil when a document
// with the same id already exists.
func CreateDocument[T any](ctx context.Context, s Store, collection string, doc T, opts ...Option) (*T, error) {
	raw, err := encodeAndCall(ctx, s.CreateDocument, collection, doc, opts...)
	if err != nil || raw == nil {
		return nil, err
	}
	return decode[T](raw)
}

// CreateOrUpdateDocument upserts a typed document, returning the stored
// document with its advanced version token.
func CreateOrUpdateDocument[T any](ctx context.Context, s Store, collection string, doc T, opts ...Option) (*T, error) {
	raw, err := encodeAndCall(ctx, s.CreateOrUpdateDocument, collection, doc, opts...)
	if err != nil || raw == nil {
		return nil, err
	}
	return decode[T](raw)
}

// UpdateDocument updates an existing typed document. Returns nil when the
// document does not exist.
func UpdateDocument[T any](ctx context.Context, s Store, collection string, doc T, opts ...Option) (*T, error) {
	raw, err := encodeAndCall(ctx, s.UpdateDocument, collection, doc, opts...)
	if err != nil || raw == nil {
		return nil, err
	}
	return decode[T](raw)
}

// SetValue stores a typed unversioned value under a key.
func SetValue[T any](ctx context.Context, s Store, key string, value T, opts ...Option) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.SetValue(ctx, key, raw, opts...)
}

// GetValue reads a typed unversioned value. Returns nil when absent.
func GetValue[T any](ctx context.Context, s Store, key string, opts ...Option) (*T, error) {
	raw, err := s.GetValue(ctx, key, opts...)
	if err != nil || raw == nil {
		return nil, err
	}
	return decode[T](raw)
}

type writeFunc func(ctx context.Context, collection string, doc json.RawMessage, opts ...Option) (json.RawMessage, error)

func encodeAndCall[T any](ctx context.Context, write writeFunc, collection string, doc T, opts ...Option) (json.RawMessage, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return write(ctx, collection, raw, opts...)
}

func decode[T any](raw json.RawMessage) (*T, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return &v, nil
}
