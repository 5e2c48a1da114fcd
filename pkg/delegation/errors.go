package delegation

import "errors"

var (
	// ErrDelegationForbidden is returned when the caller has no usable
	// sharing session from the requested owner
	ErrDelegationForbidden = errors.New("no usable sharing session grants access to this owner")

	// ErrNoPrincipal is returned when no authenticated principal is present
	ErrNoPrincipal = errors.New("no authenticated principal in context")
)
