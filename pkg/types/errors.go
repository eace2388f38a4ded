package types

import "errors"

// Entity errors returned by store operations.
var (
	ErrNotFound        = errors.New("entity not found")
	ErrInvalidID       = errors.New("invalid entity ID")
	ErrInvalidData     = errors.New("invalid entity data")
	ErrInvalidName     = errors.New("invalid name")
	ErrInvalidTitle    = errors.New("title must not be empty")
	ErrInvalidPriority = errors.New("priority must be between 1 and 4")
	ErrInvalidStatus   = errors.New("invalid status value")
	ErrInvalidSchedule = errors.New("invalid habit schedule")
	ErrInvalidDate     = errors.New("invalid calendar date")
	ErrInvalidRange    = errors.New("end must not precede start")
	ErrInvalidContent  = errors.New("content must not be empty")
	ErrUnknownKind     = errors.New("unknown entity kind")
)

// List errors.
var (
	ErrDefaultList   = errors.New("cannot delete the default list")
	ErrNoDefaultList = errors.New("workspace has no default list")
)

// Focus session errors.
var (
	ErrSessionEnded = errors.New("focus session already ended")
)
