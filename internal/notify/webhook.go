package notify

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/fleetwatch/fleetwatch/internal/database"
)

// WebHookFirer invokes a stored webhook definition and reports the result.
// The HTTP mechanics (method, headers, retries, TLS policy) are governed
// entirely by the webhook's own configuration.
type WebHookFirer interface {
	Fire(ctx context.Context, hook *database.WebHook, dc *Context) (code, description, details string)
}

// WebHookHandler looks up the webhook by id and copies the firer's result
// verbatim onto the action
type WebHookHandler struct {
	db    *gorm.DB
	firer WebHookFirer
}

// NewWebHookHandler creates the web_hook action handler
func NewWebHookHandler(db *gorm.DB, firer WebHookFirer) *WebHookHandler {
	return &WebHookHandler{db: db, firer: firer}
}

// Timeout bounds one webhook call including its configured retries
func (h *WebHookHandler) Timeout() time.Duration {
	return 120 * time.Second
}

// Handle fires the webhook identified by the action's web_hook id
func (h *WebHookHandler) Handle(ctx context.Context, a *Action, dc *Context) {
	hook, err := database.GetWebHookByHookID(h.db, a.WebHook)
	if err != nil {
		a.Fail(CodeWebHookFailed, fmt.Sprintf("webhook not found: %s", a.WebHook))
		return
	}
	if !hook.Enabled {
		a.Fail(CodeWebHookFailed, fmt.Sprintf("webhook is disabled: %s", a.WebHook))
		return
	}

	code, description, details := h.firer.Fire(ctx, hook, dc)
	a.Code = code
	a.Description = description
	a.Details = details
}
