// Package mongostore implements the document store contract against a
// remote MongoDB deployment. It is the durable backend: documents from all
// collections live in one namespaced MongoDB collection with a compound
// unique index, and version tokens are enforced server-side through
// conditional writes so the backend stays the single arbiter between racing
// writers.
package mongostore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	apperrors "scene-store/internal/shared/errors"
	"scene-store/internal/shared/logger"
	"scene-store/internal/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	documentsCollection = "documents"
	valuesCollection    = "values"

	connectTimeout = 10 * time.Second
)

// Config holds the connection settings for the remote backend.
type Config struct {
	URI      string
	Database string
}

// Store is the MongoDB-backed document store.
type Store struct {
	cfg Config
	log logger.Logger

	mu     sync.Mutex
	client *mongo.Client
	docs   *mongo.Collection
	values *mongo.Collection
	init   *initAttempt
}

// initAttempt memoizes one in-flight initialization so concurrent callers
// await the same session bootstrap instead of re-triggering it.
type initAttempt struct {
	done chan struct{}
	err  error
}

type documentRecord struct {
	Scope      string    `bson:"scope"`
	Collection string    `bson:"collection"`
	DocID      string    `bson:"docID"`
	Payload    string    `bson:"payload"`
	Etag       int64     `bson:"etag"`
	UpdateTime time.Time `bson:"updateTime"`
}

type valueRecord struct {
	Scope   string `bson:"scope"`
	Key     string `bson:"key"`
	Payload string `bson:"payload"`
}

// New creates a remote store. The connection is established by Initialize.
func New(cfg Config, log logger.Logger) *Store {
	return &Store{
		cfg: cfg,
		log: log.WithComponent("mongostore"),
	}
}

// Initialize connects to MongoDB, verifies the session and prepares indexes.
// Idempotent once successful; a failed attempt may be retried by a later
// call. Concurrent callers converge on one attempt and observe its result.
func (s *Store) Initialize(ctx context.Context) error {
	s.mu.Lock()
	if s.client != nil {
		s.mu.Unlock()
		return nil
	}
	if s.init != nil {
		attempt := s.init
		s.mu.Unlock()
		select {
		case <-attempt.done:
			return attempt.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	attempt := &initAttempt{done: make(chan struct{})}
	s.init = attempt
	s.mu.Unlock()

	err := s.connect(ctx)

	s.mu.Lock()
	attempt.err = err
	if err != nil {
		s.init = nil
	}
	s.mu.Unlock()
	close(attempt.done)

	return err
}

func (s *Store) connect(ctx context.Context) error {
	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(s.cfg.URI))
	if err != nil {
		return apperrors.NewUnavailableError("cannot connect to document backend").WithCause(err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return apperrors.NewUnavailableError("document backend did not answer ping").WithCause(err)
	}

	db := client.Database(s.cfg.Database)
	docs := db.Collection(documentsCollection)
	values := db.Collection(valuesCollection)

	_, err = docs.Indexes().CreateOne(connectCtx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "scope", Value: 1},
			{Key: "collection", Value: 1},
			{Key: "docID", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return apperrors.NewUnavailableError("cannot prepare document index").WithCause(err)
	}
	_, err = values.Indexes().CreateOne(connectCtx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "scope", Value: 1},
			{Key: "key", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return apperrors.NewUnavailableError("cannot prepare value index").WithCause(err)
	}

	s.client = client
	s.docs = docs
	s.values = values
	s.log.Infof("connected to document backend %s/%s", s.cfg.URI, s.cfg.Database)
	return nil
}

// Close disconnects from MongoDB.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		return nil
	}
	err := s.client.Disconnect(ctx)
	s.client = nil
	s.docs = nil
	s.values = nil
	s.init = nil
	return err
}

func (s *Store) collections() (*mongo.Collection, *mongo.Collection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil, nil, false
	}
	return s.docs, s.values, true
}

func (s *Store) ReadDocuments(ctx context.Context, collection string, opts ...store.Option) ([]json.RawMessage, error) {
	resolved := store.ApplyOptions(opts...)

	docs, _, ok := s.collections()
	if !ok {
		s.log.Error("read skipped: store not initialized")
		return []json.RawMessage{}, nil
	}

	cursor, err := docs.Find(ctx, docFilter(resolved.Scope(), collection, ""))
	if err != nil {
		s.log.Errorf("read collection %s failed: %v", collection, translateError(err))
		return []json.RawMessage{}, nil
	}
	defer cursor.Close(ctx)

	out := []json.RawMessage{}
	for cursor.Next(ctx) {
		var record documentRecord
		if err := cursor.Decode(&record); err != nil {
			s.log.Errorf("read collection %s failed: %v", collection, err)
			return []json.RawMessage{}, nil
		}
		out = append(out, json.RawMessage(record.Payload))
	}
	if err := cursor.Err(); err != nil {
		s.log.Errorf("read collection %s failed: %v", collection, translateError(err))
		return []json.RawMessage{}, nil
	}

	if len(out) == 0 && resolved.FailIfCollectionMissing {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("collection %q", collection)).
			WithCause(apperrors.ErrCollectionNotFound)
	}
	return out, nil
}

func (s *Store) ReadDocument(ctx context.Context, collection, id string, opts ...store.Option) (json.RawMessage, error) {
	resolved := store.ApplyOptions(opts...)

	docs, _, ok := s.collections()
	if !ok {
		s.log.Error("read skipped: store not initialized")
		return nil, nil
	}

	var record documentRecord
	err := docs.FindOne(ctx, docFilter(resolved.Scope(), collection, id)).Decode(&record)
	if err != nil {
		if translated := translateError(err); !apperrors.IsNotFound(translated) {
			s.log.Errorf("read %s/%s failed: %v", collection, id, translated)
		}
		return nil, nil
	}
	return json.RawMessage(record.Payload), nil
}

func (s *Store) CreateDocument(ctx context.Context, collection string, doc json.RawMessage, opts ...store.Option) (json.RawMessage, error) {
	resolved := store.ApplyOptions(opts...)

	id, err := store.DocumentID(doc)
	if err != nil {
		s.log.Errorf("create rejected for collection %s: %v", collection, err)
		return nil, nil
	}

	docs, _, ok := s.collections()
	if !ok {
		s.log.Error("create skipped: store not initialized")
		return nil, nil
	}

	stamped, err := store.WithEtag(doc, store.InitialEtag)
	if err != nil {
		s.log.Errorf("create rejected for %s/%s: %v", collection, id, err)
		return nil, nil
	}

	_, err = docs.InsertOne(ctx, documentRecord{
		Scope:      string(resolved.Scope()),
		Collection: collection,
		DocID:      id,
		Payload:    string(stamped),
		Etag:       store.InitialEtag,
		UpdateTime: time.Now().UTC(),
	})
	if err != nil {
		translated := translateError(err)
		if translated.Type == apperrors.ErrorTypeConflict {
			s.log.Warnf("document %s already exists in %s, refusing to overwrite", id, collection)
		} else {
			s.log.Errorf("create failed for %s/%s: %v", collection, id, translated)
		}
		return nil, nil
	}
	return stamped, nil
}

func (s *Store) CreateOrUpdateDocument(ctx context.Context, collection string, doc json.RawMessage, opts ...store.Option) (json.RawMessage, error) {
	return s.versionedWrite(ctx, collection, doc, true, opts...)
}

func (s *Store) UpdateDocument(ctx context.Context, collection string, doc json.RawMessage, opts ...store.Option) (json.RawMessage, error) {
	return s.versionedWrite(ctx, collection, doc, false, opts...)
}

// versionedWrite performs the conditional replace behind upsert and update.
// The etag filter makes MongoDB the arbiter between racing writers: exactly
// one conditional write matches, the loser observes a version mismatch.
func (s *Store) versionedWrite(ctx context.Context, collection string, doc json.RawMessage, createIfMissing bool, opts ...store.Option) (json.RawMessage, error) {
	resolved := store.ApplyOptions(opts...)

	id, err := store.DocumentID(doc)
	if err != nil {
		s.log.Errorf("versioned write rejected for collection %s: %v", collection, err)
		return nil, nil
	}

	docs, _, ok := s.collections()
	if !ok {
		s.log.Error("versioned write skipped: store not initialized")
		return nil, nil
	}

	incoming := store.DocumentEtag(doc)
	stamped, err := store.WithEtag(doc, incoming+1)
	if err != nil {
		s.log.Errorf("versioned write rejected for %s/%s: %v", collection, id, err)
		return nil, nil
	}

	filter := docFilter(resolved.Scope(), collection, id)
	filter = append(filter, bson.E{Key: "etag", Value: incoming})

	res := docs.FindOneAndUpdate(ctx, filter, bson.M{
		"$set": bson.M{
			"payload":    string(stamped),
			"etag":       incoming + 1,
			"updateTime": time.Now().UTC(),
		},
	})
	if res.Err() == nil {
		return stamped, nil
	}
	if translated := translateError(res.Err()); !apperrors.IsNotFound(translated) {
		s.log.Errorf("versioned write failed for %s/%s: %v", collection, id, translated)
		return nil, nil
	}

	// No record matched (scope, collection, id, etag). Either the document
	// does not exist, or it does and the caller's token is stale.
	exists, err := s.documentExists(ctx, docs, resolved.Scope(), collection, id)
	if err != nil {
		s.log.Errorf("versioned write failed for %s/%s: %v", collection, id, err)
		return nil, nil
	}
	if exists {
		return nil, apperrors.NewVersionMismatchError(collection, id)
	}
	if !createIfMissing {
		s.log.Warnf("document %s does not exist in %s, update skipped", id, collection)
		return nil, nil
	}

	initial, err := store.WithEtag(doc, store.InitialEtag)
	if err != nil {
		s.log.Errorf("versioned write rejected for %s/%s: %v", collection, id, err)
		return nil, nil
	}
	_, err = docs.InsertOne(ctx, documentRecord{
		Scope:      string(resolved.Scope()),
		Collection: collection,
		DocID:      id,
		Payload:    string(initial),
		Etag:       store.InitialEtag,
		UpdateTime: time.Now().UTC(),
	})
	if err != nil {
		translated := translateError(err)
		if translated.Type == apperrors.ErrorTypeConflict {
			// Lost the create race: another writer inserted this id between
			// our conditional update and the insert.
			return nil, apperrors.NewVersionMismatchError(collection, id)
		}
		s.log.Errorf("versioned write failed for %s/%s: %v", collection, id, translated)
		return nil, nil
	}
	return initial, nil
}

func (s *Store) documentExists(ctx context.Context, docs *mongo.Collection, scope store.Scope, collection, id string) (bool, error) {
	err := docs.FindOne(ctx, docFilter(scope, collection, id),
		options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if err == nil {
		return true, nil
	}
	translated := translateError(err)
	if apperrors.IsNotFound(translated) {
		return false, nil
	}
	return false, translated
}

func (s *Store) DeleteDocument(ctx context.Context, collection, id string, opts ...store.Option) error {
	resolved := store.ApplyOptions(opts...)

	docs, _, ok := s.collections()
	if !ok {
		s.log.Error("delete skipped: store not initialized")
		return nil
	}

	if _, err := docs.DeleteOne(ctx, docFilter(resolved.Scope(), collection, id)); err != nil {
		s.log.Errorf("delete failed for %s/%s: %v", collection, id, translateError(err))
	}
	return nil
}

func (s *Store) SetValue(ctx context.Context, key string, value json.RawMessage, opts ...store.Option) error {
	resolved := store.ApplyOptions(opts...)

	_, values, ok := s.collections()
	if !ok {
		s.log.Error("set value skipped: store not initialized")
		return nil
	}

	_, err := values.ReplaceOne(ctx,
		bson.D{
			{Key: "scope", Value: string(resolved.Scope())},
			{Key: "key", Value: key},
		},
		valueRecord{
			Scope:   string(resolved.Scope()),
			Key:     key,
			Payload: string(value),
		},
		options.Replace().SetUpsert(true))
	if err != nil {
		s.log.Errorf("set value %s failed: %v", key, translateError(err))
	}
	return nil
}

func (s *Store) GetValue(ctx context.Context, key string, opts ...store.Option) (json.RawMessage, error) {
	resolved := store.ApplyOptions(opts...)

	_, values, ok := s.collections()
	if !ok {
		s.log.Error("get value skipped: store not initialized")
		return nil, nil
	}

	var record valueRecord
	err := values.FindOne(ctx, bson.D{
		{Key: "scope", Value: string(resolved.Scope())},
		{Key: "key", Value: key},
	}).Decode(&record)
	if err != nil {
		if translated := translateError(err); !apperrors.IsNotFound(translated) {
			s.log.Errorf("get value %s failed: %v", key, translated)
		}
		return nil, nil
	}
	return json.RawMessage(record.Payload), nil
}

func docFilter(scope store.Scope, collection, id string) bson.D {
	filter := bson.D{
		{Key: "scope", Value: string(scope)},
		{Key: "collection", Value: collection},
	}
	if id != "" {
		filter = append(filter, bson.E{Key: "docID", Value: id})
	}
	return filter
}
