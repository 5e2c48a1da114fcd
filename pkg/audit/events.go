package audit

import (
	"context"

	"github.com/google/uuid"
)

// Snapshot is a resource's state as a loose JSON object, captured around a
// mutation for the change history.
type Snapshot map[string]interface{}

// SnapshotFunc loads the current state of an owner's resource. The middleware
// calls it before a mutation runs; returning an error skips the capture
// without failing the request.
type SnapshotFunc func(ctx context.Context, ownerID, resourceID uuid.UUID) (Snapshot, error)

// Each event kind carries a fixed set of snapshots:
//
//	resource_created  After only, the state the mutation produced
//	resource_updated  Before and After
//	resource_deleted  Before only, the state that was removed
func applySnapshots(record *ChangeRecord, before, after Snapshot) {
	switch record.EventKind {
	case ResourceCreated:
		record.After = after
	case ResourceUpdated:
		record.Before = before
		record.After = after
	case ResourceDeleted:
		record.Before = before
	}
}
