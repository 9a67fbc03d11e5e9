package store

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "scene-store/internal/shared/errors"
)

func TestDocumentID(t *testing.T) {
	id, err := DocumentID(json.RawMessage(`{"id":"abc","name":"x"}`))
	require.NoError(t, err)
	assert.Equal(t, "abc", id)
}

func TestDocumentID_Missing(t *testing.T) {
	_, err := DocumentID(json.RawMessage(`{"name":"x"}`))
	assert.ErrorIs(t, err, apperrors.ErrMissingDocumentID)
}

func TestDocumentID_NotAnObject(t *testing.T) {
	_, err := DocumentID(json.RawMessage(`[1,2,3]`))
	require.Error(t, err)
	assert.True(t, apperrors.IsCorruptPayload(err))
}

func TestDocumentEtag(t *testing.T) {
	assert.Equal(t, int64(7), DocumentEtag(json.RawMessage(`{"id":"a","__etag":7}`)))
	assert.Equal(t, int64(0), DocumentEtag(json.RawMessage(`{"id":"a"}`)))
	assert.Equal(t, int64(0), DocumentEtag(json.RawMessage(`not json`)))
}

func TestWithEtag(t *testing.T) {
	stamped, err := WithEtag(json.RawMessage(`{"id":"a","name":"x"}`), 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), DocumentEtag(stamped))

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(stamped, &fields))
	assert.Equal(t, "x", fields["name"])
}

func TestAdvanceEtag_NewDocument(t *testing.T) {
	stamped, err := AdvanceEtag(nil, json.RawMessage(`{"id":"a","__etag":99}`))
	require.NoError(t, err)
	assert.Equal(t, InitialEtag, DocumentEtag(stamped))
}

func TestAdvanceEtag_MatchingToken(t *testing.T) {
	existing := json.RawMessage(`{"id":"a","__etag":4}`)
	stamped, err := AdvanceEtag(existing, json.RawMessage(`{"id":"a","v":2,"__etag":4}`))
	require.NoError(t, err)
	assert.Equal(t, int64(5), DocumentEtag(stamped))
}

func TestAdvanceEtag_StaleToken(t *testing.T) {
	existing := json.RawMessage(`{"id":"a","__etag":4}`)
	_, err := AdvanceEtag(existing, json.RawMessage(`{"id":"a","__etag":3}`))
	assert.True(t, apperrors.IsVersionMismatch(err))
}
