package utils

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectID_RoundTrip(t *testing.T) {
	ctx := WithProjectID(context.Background(), "PROJ-1")

	got, err := GetProjectIDFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "PROJ-1", got)
}

func TestProjectID_Missing(t *testing.T) {
	_, err := GetProjectIDFromContext(context.Background())
	assert.ErrorIs(t, err, ErrProjectIDNotFound)
}

func TestUserID_RoundTrip(t *testing.T) {
	ctx := WithUserID(context.Background(), "user-7")

	got, err := GetUserIDFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "user-7", got)
}

func TestUserID_Missing(t *testing.T) {
	_, err := GetUserIDFromContext(context.Background())
	assert.ErrorIs(t, err, ErrUserIDNotFound)
}
