package utils

import (
	"context"
	"errors"

	"scene-store/internal/shared/contextkeys"
)

// Common context errors.
var (
	ErrProjectIDNotFound  = errors.New("projectID not found in context")
	ErrProjectIDNotString = errors.New("projectID in context is not a string")
	ErrUserIDNotFound     = errors.New("userID not found in context")
	ErrUserIDNotString    = errors.New("userID in context is not a string")
)

// WithProjectID returns a context carrying the given project ID.
func WithProjectID(ctx context.Context, projectID string) context.Context {
	return context.WithValue(ctx, contextkeys.ProjectIDKey, projectID)
}

// WithUserID returns a context carrying the given user ID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, contextkeys.UserIDKey, userID)
}

// GetProjectIDFromContext retrieves the project ID from the context.
func GetProjectIDFromContext(ctx context.Context) (string, error) {
	val := ctx.Value(contextkeys.ProjectIDKey)
	if val == nil {
		return "", ErrProjectIDNotFound
	}
	projectID, ok := val.(string)
	if !ok {
		return "", ErrProjectIDNotString
	}
	return projectID, nil
}

// GetUserIDFromContext retrieves the user ID from the context.
func GetUserIDFromContext(ctx context.Context) (string, error) {
	val := ctx.Value(contextkeys.UserIDKey)
	if val == nil {
		return "", ErrUserIDNotFound
	}
	userID, ok := val.(string)
	if !ok {
		return "", ErrUserIDNotString
	}
	return userID, nil
}
