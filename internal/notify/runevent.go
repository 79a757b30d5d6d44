package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fleetwatch/fleetwatch/internal/database"
)

// RunEventHandler launches a new job instance from a stored event
// definition, tagging its source with the originating condition
type RunEventHandler struct {
	db *gorm.DB
}

// NewRunEventHandler creates the run_event action handler
func NewRunEventHandler(db *gorm.DB) *RunEventHandler {
	return &RunEventHandler{db: db}
}

// Timeout bounds the launch (a database write, not the job itself)
func (h *RunEventHandler) Timeout() time.Duration {
	return 30 * time.Second
}

// Handle creates the job row and points loc at it
func (h *RunEventHandler) Handle(ctx context.Context, a *Action, dc *Context) {
	def, err := database.GetEventDefByEventID(h.db, a.EventID)
	if err != nil {
		a.Fail(CodeEventNotFound, fmt.Sprintf("event not found: %s", a.EventID))
		return
	}
	if !def.Enabled {
		a.Fail(CodeEventNotFound, fmt.Sprintf("event is disabled: %s", a.EventID))
		return
	}

	job := &database.Job{
		UUID:    uuid.New().String(),
		EventID: def.EventID,
		Source:  dc.Condition,
		Status:  database.JobStatusPending,
		Params:  def.Params,
	}
	if err := h.db.WithContext(ctx).Create(job).Error; err != nil {
		a.Fail(CodeEventFailed, fmt.Sprintf("failed to launch job from event %s: %v", a.EventID, err))
		return
	}

	a.Succeed(fmt.Sprintf("Launched job %s from event '%s'", job.UUID, def.Title))
	a.Loc = "/api/jobs/" + job.UUID
}
