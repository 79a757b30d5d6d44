package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fleetwatch/fleetwatch/internal/database"
)

// SnapshotHandler captures a point-in-time copy of the subject server's
// reported data (the context's data blob)
type SnapshotHandler struct {
	db *gorm.DB
}

// NewSnapshotHandler creates the snapshot action handler
func NewSnapshotHandler(db *gorm.DB) *SnapshotHandler {
	return &SnapshotHandler{db: db}
}

// Timeout bounds the snapshot write
func (h *SnapshotHandler) Timeout() time.Duration {
	return 30 * time.Second
}

// Handle stores the snapshot and points loc at it
func (h *SnapshotHandler) Handle(ctx context.Context, a *Action, dc *Context) {
	if dc.Server == "" {
		a.Fail(CodeSnapshotFailed, "no subject server in dispatch context")
		return
	}

	snap := &database.Snapshot{
		UUID:   uuid.New().String(),
		Server: dc.Server,
		Data:   database.JSONB(dc.Data),
	}
	if err := h.db.WithContext(ctx).Create(snap).Error; err != nil {
		a.Fail(CodeSnapshotFailed, fmt.Sprintf("failed to save snapshot for %s: %v", dc.Server, err))
		return
	}

	a.Succeed(fmt.Sprintf("Snapshot saved for server %s", dc.Server))
	a.Loc = "/api/snapshots/" + snap.UUID
}
