package audit

import (
	"context"

	"github.com/google/uuid"
)

// ChangeRepository defines the interface for change history storage
type ChangeRepository interface {
	// AppendChange stores a change record. Records are append only and are
	// never updated or deleted.
	AppendChange(ctx context.Context, record ChangeRecord) (ChangeRecord, error)

	// ListChangesByOwner lists an owner's change records, newest first
	ListChangesByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int32) ([]ChangeRecord, int64, error)
}
