// Package localstore implements the document store contract over an
// on-device SQLite database. It serves standalone deployments and acts as
// the fallback when no remote backend is reachable.
//
// Collections are modeled as a namespaced key prefix in a single key/value
// table:
//
//	data:doc:{scope}:{collection}:{id}  document payloads
//	data:kv:{scope}:{id}                unversioned values
//
// Version tokens live inside each stored payload's __etag field and are
// checked and advanced in code on every versioned write.
package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	apperrors "scene-store/internal/shared/errors"
	"scene-store/internal/shared/logger"
	"scene-store/internal/store"

	_ "github.com/mattn/go-sqlite3"
)

// Store persists documents in a single SQLite database.
type Store struct {
	path string
	log  logger.Logger

	mu sync.RWMutex
	db *sql.DB
}

// New creates a local store writing to the SQLite database at path. The
// database is opened by Initialize.
func New(path string, log logger.Logger) *Store {
	return &Store{
		path: path,
		log:  log.WithComponent("localstore"),
	}
}

// Initialize opens the database and prepares the schema. Idempotent;
// concurrent callers converge on one open attempt.
func (s *Store) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return apperrors.NewUnavailableError("cannot create local store directory").WithCause(err)
	}

	db, err := sql.Open("sqlite3", s.path)
	if err != nil {
		return apperrors.NewUnavailableError("cannot open local store database").WithCause(err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return apperrors.NewUnavailableError("cannot configure local store database").WithCause(err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return apperrors.NewUnavailableError("cannot prepare local store schema").WithCause(err)
	}

	s.db = db
	s.log.Infof("local store ready at %s", s.path)
	return nil
}

// Close closes the underlying database.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) ReadDocuments(ctx context.Context, collection string, opts ...store.Option) ([]json.RawMessage, error) {
	resolved := store.ApplyOptions(opts...)
	prefix := docPrefix(resolved.Scope(), collection)

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		s.log.Error("read skipped: store not initialized")
		if resolved.FailIfCollectionMissing {
			return nil, apperrors.NewUnavailableError("local store not initialized")
		}
		return []json.RawMessage{}, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM kv WHERE key LIKE ? ESCAPE '\' ORDER BY key`,
		escapeLike(prefix)+"%")
	if err != nil {
		s.log.Errorf("read collection %s failed: %v", collection, err)
		return []json.RawMessage{}, nil
	}
	defer rows.Close()

	out := []json.RawMessage{}
	var corrupt []string
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			s.log.Errorf("read collection %s failed: %v", collection, err)
			return []json.RawMessage{}, nil
		}
		if !json.Valid([]byte(raw)) {
			s.log.Warnf("corrupt payload at %s, purging", key)
			corrupt = append(corrupt, key)
			continue
		}
		out = append(out, json.RawMessage(raw))
	}
	if err := rows.Err(); err != nil {
		s.log.Errorf("read collection %s failed: %v", collection, err)
		return []json.RawMessage{}, nil
	}
	s.purge(ctx, corrupt)

	if len(out) == 0 && resolved.FailIfCollectionMissing {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("collection %q", collection)).
			WithCause(apperrors.ErrCollectionNotFound)
	}
	return out, nil
}

func (s *Store) ReadDocument(ctx context.Context, collection, id string, opts ...store.Option) (json.RawMessage, error) {
	resolved := store.ApplyOptions(opts...)
	return s.get(ctx, docKey(resolved.Scope(), collection, id)), nil
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
	if s.getLocked(ctx, key) != nil {
		s.log.Warnf("document %s already exists in %s, refusing to overwrite", id, collection)
		return nil, nil
	}

	stamped, err := store.WithEtag(doc, store.InitialEtag)
	if err != nil {
		s.log.Errorf("create rejected for %s/%s: %v", collection, id, err)
		return nil, nil
	}
	if err := s.putLocked(ctx, key, stamped); err != nil {
		s.log.Errorf("create failed for %s/%s: %v", collection, id, err)
		return nil, nil
	}
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
	stamped, err := store.AdvanceEtag(s.getLocked(ctx, key), doc)
	if err != nil {
		if apperrors.IsVersionMismatch(err) {
			return nil, apperrors.NewVersionMismatchError(collection, id)
		}
		s.log.Errorf("upsert rejected for %s/%s: %v", collection, id, err)
		return nil, nil
	}
	if err := s.putLocked(ctx, key, stamped); err != nil {
		s.log.Errorf("upsert failed for %s/%s: %v", collection, id, err)
		return nil, nil
	}
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
	existing := s.getLocked(ctx, key)
	if existing == nil {
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
	if err := s.putLocked(ctx, key, stamped); err != nil {
		s.log.Errorf("update failed for %s/%s: %v", collection, id, err)
		return nil, nil
	}
	return stamped, nil
}

func (s *Store) DeleteDocument(ctx context.Context, collection, id string, opts ...store.Option) error {
	resolved := store.ApplyOptions(opts...)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		s.log.Error("delete skipped: store not initialized")
		return nil
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM kv WHERE key = ?",
		docKey(resolved.Scope(), collection, id)); err != nil {
		s.log.Errorf("delete failed for %s/%s: %v", collection, id, err)
	}
	return nil
}

func (s *Store) SetValue(ctx context.Context, key string, value json.RawMessage, opts ...store.Option) error {
	resolved := store.ApplyOptions(opts...)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.putLocked(ctx, kvKey(resolved.Scope(), key), value); err != nil {
		s.log.Errorf("set value %s failed: %v", key, err)
	}
	return nil
}

func (s *Store) GetValue(ctx context.Context, key string, opts ...store.Option) (json.RawMessage, error) {
	resolved := store.ApplyOptions(opts...)
	return s.get(ctx, kvKey(resolved.Scope(), key)), nil
}

// get reads one key, treating corrupt payloads as absent and purging them.
func (s *Store) get(ctx context.Context, key string) json.RawMessage {
	s.mu.RLock()
	raw := s.getLocked(ctx, key)
	s.mu.RUnlock()
	return raw
}

func (s *Store) getLocked(ctx context.Context, key string) json.RawMessage {
	if s.db == nil {
		s.log.Error("read skipped: store not initialized")
		return nil
	}

	var raw string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		s.log.Errorf("read %s failed: %v", key, err)
		return nil
	}
	if !json.Valid([]byte(raw)) {
		s.log.Warnf("corrupt payload at %s, purging", key)
		s.purge(ctx, []string{key})
		return nil
	}
	return json.RawMessage(raw)
}

func (s *Store) putLocked(ctx context.Context, key string, value json.RawMessage) error {
	if s.db == nil {
		return apperrors.ErrStoreNotInitialized
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, string(value))
	return err
}

func (s *Store) purge(ctx context.Context, keys []string) {
	if s.db == nil {
		return
	}
	for _, key := range keys {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key); err != nil {
			s.log.Errorf("purge of %s failed: %v", key, err)
		}
	}
}

func docPrefix(scope store.Scope, collection string) string {
	return fmt.Sprintf("data:doc:%s:%s:", scope, collection)
}

func docKey(scope store.Scope, collection, id string) string {
	return docPrefix(scope, collection) + id
}

func kvKey(scope store.Scope, id string) string {
	return fmt.Sprintf("data:kv:%s:%s", scope, id)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
