package mongostore

import (
	"context"
	"errors"
	"strings"

	apperrors "scene-store/internal/shared/errors"

	"go.mongodb.org/mongo-driver/mongo"
)

const namespaceNotFoundCode = 26

// translateError maps driver errors onto the store taxonomy. All code and
// message sniffing against the backend's error format is concentrated here:
// the string matches below track MongoDB's error taxonomy and may
// misclassify if the server changes its wording, so they are kept in one
// independently tested unit.
func translateError(err error) *apperrors.AppError {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return apperrors.NewNotFoundError("document")

	case mongo.IsDuplicateKeyError(err) || strings.Contains(err.Error(), "E11000"):
		// A unique-index violation means another writer owns this id: the
		// losing side of a create/upsert race.
		return apperrors.NewAppError(apperrors.ErrorTypeConflict,
			"document already exists", 409).
			WithCode("DuplicateKey").
			WithCause(err)

	case isNamespaceNotFound(err):
		return apperrors.NewNotFoundError("collection").
			WithCause(apperrors.ErrCollectionNotFound)

	case mongo.IsTimeout(err) || mongo.IsNetworkError(err) ||
		errors.Is(err, context.DeadlineExceeded):
		return apperrors.NewUnavailableError("document backend unreachable").WithCause(err)

	default:
		return apperrors.NewInternalError("document backend operation failed").WithCause(err)
	}
}

func isNamespaceNotFound(err error) bool {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Code == namespaceNotFoundCode ||
			strings.Contains(cmdErr.Message, "ns not found")
	}
	return strings.Contains(err.Error(), "ns not found")
}
