package sharing

import "errors"

var (
	// ErrSessionNotFound is returned when a sharing session does not exist
	ErrSessionNotFound = errors.New("sharing session not found")

	// ErrResourceNotFound is returned when a shared resource does not exist or is not owned by the caller
	ErrResourceNotFound = errors.New("resource not found")

	// ErrEmailMismatch is returned when the supplied email does not match the session invitee
	ErrEmailMismatch = errors.New("email does not match session invitee")

	// ErrSessionExpired is returned when a session is no longer usable
	ErrSessionExpired = errors.New("sharing session has expired")

	// ErrSelfShare is returned when an owner attempts to share resources with themselves
	ErrSelfShare = errors.New("cannot share resources with yourself")

	// ErrNotOwner is returned when a caller attempts to manage a session they do not own
	ErrNotOwner = errors.New("caller is not the session owner")

	// ErrInvalidRole is returned when the requested role is not editor or viewer
	ErrInvalidRole = errors.New("invalid role")

	// ErrInvalidDuration is returned when the requested duration is negative
	ErrInvalidDuration = errors.New("duration must be zero or positive")

	// ErrNoResources is returned when a share request names no resources
	ErrNoResources = errors.New("at least one resource is required")
)
