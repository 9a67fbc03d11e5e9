package mongostore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	apperrors "scene-store/internal/shared/errors"
)

func TestTranslateError_Nil(t *testing.T) {
	assert.Nil(t, translateError(nil))
}

func TestTranslateError_NoDocuments(t *testing.T) {
	translated := translateError(mongo.ErrNoDocuments)
	require.NotNil(t, translated)
	assert.True(t, apperrors.IsNotFound(translated))
}

func TestTranslateError_DuplicateKey(t *testing.T) {
	err := mongo.WriteException{WriteErrors: mongo.WriteErrors{
		{Code: 11000, Message: "E11000 duplicate key error collection"},
	}}
	translated := translateError(err)
	require.NotNil(t, translated)
	assert.Equal(t, apperrors.ErrorTypeConflict, translated.Type)
	assert.Equal(t, "DuplicateKey", translated.Code)
}

func TestTranslateError_NamespaceNotFound(t *testing.T) {
	err := mongo.CommandError{Code: 26, Message: "ns not found"}
	translated := translateError(err)
	require.NotNil(t, translated)
	assert.True(t, apperrors.IsNotFound(translated))
	assert.True(t, errors.Is(translated, apperrors.ErrCollectionNotFound))
}

func TestTranslateError_DeadlineExceeded(t *testing.T) {
	translated := translateError(context.DeadlineExceeded)
	require.NotNil(t, translated)
	assert.True(t, apperrors.IsUnavailable(translated))
}

func TestTranslateError_Unknown(t *testing.T) {
	translated := translateError(errors.New("something odd"))
	require.NotNil(t, translated)
	assert.Equal(t, apperrors.ErrorTypeInternal, translated.Type)
}
