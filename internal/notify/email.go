package notify

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/fleetwatch/fleetwatch/internal/database"
)

// Mailer sends one message and returns the SMTP dialogue transcript as
// markdown (empty when the transport produces none)
type Mailer interface {
	Send(to []string, subject, body string) (transcript string, err error)
}

// EmailHandler resolves recipients from the user directory and sends a
// templated message
type EmailHandler struct {
	db     *gorm.DB
	mailer Mailer
}

// NewEmailHandler creates the email action handler
func NewEmailHandler(db *gorm.DB, mailer Mailer) *EmailHandler {
	return &EmailHandler{db: db, mailer: mailer}
}

// Timeout is the hard deadline for one send
func (h *EmailHandler) Timeout() time.Duration {
	return 60 * time.Second
}

// Handle sends the message to the union of the listed users' addresses
// and the raw address on the action. An empty recipient list is a trivial
// success, not a failure.
func (h *EmailHandler) Handle(ctx context.Context, a *Action, dc *Context) {
	var recipients []string

	users, err := database.GetUsersByUsernames(h.db, a.Users)
	if err != nil {
		a.Fail(CodeEmailFailed, fmt.Sprintf("failed to load users: %v", err))
		return
	}
	for _, u := range users {
		if u.Email != "" {
			recipients = append(recipients, u.Email)
		}
	}
	if a.Email != "" {
		recipients = append(recipients, a.Email)
	}

	if len(recipients) == 0 {
		a.Succeed("No recipients resolved, nothing to send")
		return
	}

	if h.mailer == nil {
		a.Fail(CodeEmailFailed, "no SMTP transport configured")
		return
	}

	subject := fmt.Sprintf("[Fleetwatch] %s: %s", dc.Condition, dc.Title)
	body := dc.Message
	if body == "" {
		body = fmt.Sprintf("Condition '%s' on %s %s (%s).", dc.Condition, dc.RecordKind, dc.RecordID, dc.Title)
	}

	transcript, err := h.mailer.Send(recipients, subject, body)
	if err != nil {
		a.Fail(CodeEmailFailed, err.Error())
		a.Details = transcript
		return
	}

	a.Succeed(fmt.Sprintf("Sent email to %d recipient(s)", len(recipients)))
	a.Details = transcript
}
