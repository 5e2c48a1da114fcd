package audit

import (
	"time"

	"github.com/google/uuid"
)

// EventKind identifies what happened to a resource
type EventKind string

const (
	ResourceCreated EventKind = "resource_created"
	ResourceUpdated EventKind = "resource_updated"
	ResourceDeleted EventKind = "resource_deleted"
)

// ChangeRecord is one entry in an owner's change history.
//
// Records are written only for delegated mutations: when someone edits their
// own data no record is appended, but when an editor session lets an invitee
// act as the owner, OnBehalfOfEmail preserves who really made the change.
type ChangeRecord struct {
	ID              uuid.UUID              `json:"id"`
	OwnerID         uuid.UUID              `json:"owner_id"`
	ActorID         uuid.UUID              `json:"actor_id"`
	OnBehalfOfEmail string                 `json:"on_behalf_of_email"`
	EventKind       EventKind              `json:"event_kind"`
	ResourceID      uuid.UUID              `json:"resource_id,omitempty"`
	Before          Snapshot               `json:"before,omitempty"`
	After           Snapshot               `json:"after,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
}
