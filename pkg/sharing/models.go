package sharing

import (
	"time"

	"github.com/google/uuid"
)

// Role represents the access level granted by a sharing session
type Role string

const (
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// Valid reports whether the role is one of the supported roles
func (r Role) Valid() bool {
	return r == RoleEditor || r == RoleViewer
}

// SharingSession represents a time-bounded grant of access to a set of
// resources, from an owner to an invitee identified by email. The invitee
// does not need to be a registered user.
//
// ExpiresAt carries two meanings while nil, disambiguated by Role and
// ActivatedAt: an editor session with nil ExpiresAt never expires until
// revoked, while a viewer session with nil ExpiresAt and nil ActivatedAt has
// simply not been opened yet. Once ExpiresAt is set it is never cleared.
type SharingSession struct {
	ID                 uuid.UUID   `json:"id"`
	OwnerID            uuid.UUID   `json:"owner_id"`
	InviteeEmail       string      `json:"invitee_email"`
	Role               Role        `json:"role"`
	DurationMinutes    int32       `json:"duration_minutes"` // 0 = never expires once activated
	CreatedAt          time.Time   `json:"created_at"`
	ActivatedAt        *time.Time  `json:"activated_at,omitempty"`
	ExpiresAt          *time.Time  `json:"expires_at,omitempty"`
	ResourceIDs        []uuid.UUID `json:"resource_ids"`
	TotalResourceCount int32       `json:"total_resource_count"` // creation-time snapshot, not live
}

// Usable reports whether the session still grants access at the given time.
// A nil ExpiresAt is usable regardless of role or activation state.
func (s *SharingSession) Usable(now time.Time) bool {
	return s.ExpiresAt == nil || s.ExpiresAt.After(now)
}

// Activated reports whether the session's countdown has started
func (s *SharingSession) Activated() bool {
	return s.ActivatedAt != nil
}

// SessionSummary is a simplified session view for owner-facing listings
type SessionSummary struct {
	ID                 uuid.UUID  `json:"id"`
	InviteeEmail       string     `json:"invitee_email"`
	Role               Role       `json:"role"`
	CreatedAt          time.Time  `json:"created_at"`
	ActivatedAt        *time.Time `json:"activated_at,omitempty"`
	ExpiresAt          *time.Time `json:"expires_at,omitempty"`
	TotalResourceCount int32      `json:"total_resource_count"`
	Usable             bool       `json:"usable"`
}

// ShareParams carries the caller-supplied inputs for issuing a session
type ShareParams struct {
	InviteeEmail    string
	ResourceIDs     []uuid.UUID
	Role            Role
	DurationMinutes int32
}
