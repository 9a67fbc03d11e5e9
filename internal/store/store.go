// Package store defines the document store contract shared by all backends:
// collection-oriented persistence of JSON documents with optimistic
// concurrency control plus unversioned single-key values.
//
// Documents are opaque JSON objects required to carry a unique "id" string
// within their collection and scope. Versioned writes track an integer
// "__etag" token inside the document; a write supplying a stale token fails
// with a version-mismatch error and never overwrites newer data.
//
// Failure policy: a version mismatch is the only failure callers react to
// specifically and is always returned as an error (check with
// apperrors.IsVersionMismatch). "Not found" is an absent result, never an
// error. Other failures (backend unreachable, invalid payload, corrupt
// stored data) are absorbed by the backend: it logs a diagnostic and returns
// an absent/empty result.
package store

import (
	"context"
	"encoding/json"
)

// Scope qualifies document visibility.
type Scope string

const (
	// ScopeAccount is the shared scope, visible to all users of the account.
	ScopeAccount Scope = "account"
	// ScopeUser is the private scope, visible only to the current user.
	ScopeUser Scope = "user"
)

// CallOptions holds per-call options resolved from Option values.
type CallOptions struct {
	// Private selects the user scope instead of the shared account scope.
	Private bool
	// FailIfCollectionMissing makes ReadDocuments return a not-found error
	// for a collection that has never been written, instead of an empty list.
	FailIfCollectionMissing bool
}

// Option configures a single store call.
type Option func(*CallOptions)

// Private scopes the call to the current user.
func Private() Option {
	return func(o *CallOptions) { o.Private = true }
}

// FailIfCollectionMissing opts into the collection-does-not-exist failure.
func FailIfCollectionMissing() Option {
	return func(o *CallOptions) { o.FailIfCollectionMissing = true }
}

// ApplyOptions resolves a set of Option values.
func ApplyOptions(opts ...Option) CallOptions {
	var resolved CallOptions
	for _, opt := range opts {
		opt(&resolved)
	}
	return resolved
}

// Scope returns the scope selected by the options.
func (o CallOptions) Scope() Scope {
	if o.Private {
		return ScopeUser
	}
	return ScopeAccount
}

// Store is the document store contract. Initialize must succeed before any
// other operation is used meaningfully; it is idempotent and safe to call
// from concurrent goroutines, which converge on one underlying attempt.
type Store interface {
	// Initialize establishes connectivity. A no-op once initialized.
	Initialize(ctx context.Context) error

	// ReadDocuments returns all documents in the collection/scope. A
	// collection that has never been written yields an empty list unless
	// FailIfCollectionMissing is set.
	ReadDocuments(ctx context.Context, collection string, opts ...Option) ([]json.RawMessage, error)

	// ReadDocument returns the document or nil when absent.
	ReadDocument(ctx context.Context, collection, id string, opts ...Option) (json.RawMessage, error)

	// CreateDocument stores a new document, establishing its initial version
	// token. Returns nil if a document with the same id already exists.
	CreateDocument(ctx context.Context, collection string, doc json.RawMessage, opts ...Option) (json.RawMessage, error)

	// CreateOrUpdateDocument upserts a document. A new document gets the
	// initial token; an existing one requires the incoming __etag to match
	// the stored token and advances it by one. Returns the stored document
	// with the advanced token, or a version-mismatch error.
	CreateOrUpdateDocument(ctx context.Context, collection string, doc json.RawMessage, opts ...Option) (json.RawMessage, error)

	// UpdateDocument is the existing-document branch of the upsert: returns
	// nil when the document does not exist, and a version-mismatch error
	// under the same token rule.
	UpdateDocument(ctx context.Context, collection string, doc json.RawMessage, opts ...Option) (json.RawMessage, error)

	// DeleteDocument removes a document. Deleting an absent document is not
	// an error.
	DeleteDocument(ctx context.Context, collection, id string, opts ...Option) error

	// SetValue stores an unversioned single-key value, independent of
	// collections.
	SetValue(ctx context.Context, key string, value json.RawMessage, opts ...Option) error

	// GetValue returns an unversioned single-key value, or nil when absent.
	GetValue(ctx context.Context, key string, opts ...Option) (json.RawMessage, error)

	// Close releases backend resources.
	Close(ctx context.Context) error
}
