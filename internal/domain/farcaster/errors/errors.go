package errors

import (
	pkgerrors "github.com/nooksocial/nook-engine/pkg/errors"
)

var (
	// ErrContentNotFound is returned when content is not found
	ErrContentNotFound = pkgerrors.NewNotFoundError("content not found")

	// ErrEntityNotFound is returned when an entity is not found
	ErrEntityNotFound = pkgerrors.NewNotFoundError("entity not found")

	// ErrEntityAlreadyExists is returned when an entity creation hits the fid unique index
	ErrEntityAlreadyExists = pkgerrors.NewConflictError("entity already exists")

	// ErrContentAlreadyExists is returned when content with the same id exists
	ErrContentAlreadyExists = pkgerrors.NewConflictError("content already exists")

	// ErrActionAlreadyExists is returned when an action with the same event id exists
	ErrActionAlreadyExists = pkgerrors.NewConflictError("action already exists")

	// ErrMalformedEvent is returned when a raw event is missing required fields
	ErrMalformedEvent = pkgerrors.NewValidationError("malformed raw event")

	// ErrUnknownEventType is returned for raw event types the engine does not handle
	ErrUnknownEventType = pkgerrors.NewValidationError("unknown raw event type")

	// ErrInvalidPageSize is returned when a feed request page size is out of range
	ErrInvalidPageSize = pkgerrors.NewValidationError("invalid page size")

	// ErrInvalidUserFilter is returned for unrecognized user filter types
	ErrInvalidUserFilter = pkgerrors.NewValidationError("invalid user filter type")

	// ErrDatabaseOperation is returned when a database operation fails
	ErrDatabaseOperation = pkgerrors.NewDatabaseError("database operation failed")
)
