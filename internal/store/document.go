package store

import (
	"encoding/json"

	apperrors "scene-store/internal/shared/errors"
)

// InitialEtag is the version token established by the first write of a
// document id.
const InitialEtag int64 = 1

const etagField = "__etag"

type documentEnvelope struct {
	ID   string `json:"id"`
	Etag *int64 `json:"__etag"`
}

// DocumentID extracts the required id property from a document payload.
func DocumentID(doc json.RawMessage) (string, error) {
	var env documentEnvelope
	if err := json.Unmarshal(doc, &env); err != nil {
		return "", apperrors.NewCorruptPayloadError("document payload is not a JSON object").WithCause(err)
	}
	if env.ID == "" {
		return "", apperrors.ErrMissingDocumentID
	}
	return env.ID, nil
}

// DocumentEtag extracts the version token from a document payload. A missing
// or unparsable token reads as zero.
func DocumentEtag(doc json.RawMessage) int64 {
	var env documentEnvelope
	if err := json.Unmarshal(doc, &env); err != nil || env.Etag == nil {
		return 0
	}
	return *env.Etag
}

// WithEtag returns a copy of the document payload with __etag set.
func WithEtag(doc json.RawMessage, etag int64) (json.RawMessage, error) {
	var fields map[string]interface{}
	if err := json.Unmarshal(doc, &fields); err != nil {
		return nil, apperrors.NewCorruptPayloadError("document payload is not a JSON object").WithCause(err)
	}
	fields[etagField] = etag
	return json.Marshal(fields)
}

// AdvanceEtag validates an incoming versioned write against the stored
// document and returns the payload to persist. For a new document (existing
// is nil) the incoming token is ignored and the initial token established.
// For an existing document the incoming token must equal the stored one;
// the returned payload carries the stored token advanced by one. A stale
// token yields apperrors.ErrVersionMismatch.
func AdvanceEtag(existing, incoming json.RawMessage) (json.RawMessage, error) {
	if existing == nil {
		return WithEtag(incoming, InitialEtag)
	}

	stored := DocumentEtag(existing)
	if DocumentEtag(incoming) != stored {
		return nil, apperrors.ErrVersionMismatch
	}
	return WithEtag(incoming, stored+1)
}
