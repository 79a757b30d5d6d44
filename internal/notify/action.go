package notify

import "strings"

// Action types. The set is open: unknown types are carried through the
// resolver and skipped by the dispatcher when no handler is registered.
const (
	TypeEmail    = "email"
	TypeWebHook  = "web_hook"
	TypeRunEvent = "run_event"
	TypeChannel  = "channel"
	TypePlugin   = "plugin"
	TypeSnapshot = "snapshot"
	TypeTicket   = "ticket" // reserved, no handler registered
)

// Conditions an action can be bound to
const (
	ConditionAlertNew     = "alert_new"
	ConditionAlertCleared = "alert_cleared"
	ConditionChange       = "change"
)

// CodeOK marks a successful action. Any other non-empty code names a
// failure kind; the source format allowed both numbers and string tags,
// so Code is a string throughout.
const CodeOK = "0"

// Failure code tags
const (
	CodeTimeout         = "timeout"
	CodeEmailFailed     = "email_failed"
	CodeWebHookFailed   = "web_hook_failed"
	CodeEventNotFound   = "event_not_found"
	CodeEventFailed     = "event_failed"
	CodeSnapshotFailed  = "snapshot_failed"
	CodePluginNotFound  = "plugin_not_found"
	CodePluginDisabled  = "plugin_disabled"
	CodePluginBadUser   = "plugin_bad_user"
	CodePluginError     = "plugin_error"
	CodeChannelNotFound = "channel_not_found"
	CodeChannelDisabled = "channel_disabled"
	CodeChannelDeclined = "channel_declined"
)

// Action is both the configuration of one notification step (type,
// condition, target fields) and, after dispatch, its result (date, code,
// elapsed, description, details). Results are appended verbatim to the
// record's action history.
type Action struct {
	Type      string `json:"type"`
	Enabled   bool   `json:"enabled"`
	Condition string `json:"condition"`

	// Type-specific configuration
	Email     string            `json:"email,omitempty"`
	Users     []string          `json:"users,omitempty"`
	WebHook   string            `json:"web_hook,omitempty"`
	EventID   string            `json:"event_id,omitempty"`
	ChannelID string            `json:"channel_id,omitempty"`
	PluginID  string            `json:"plugin_id,omitempty"`
	Params    map[string]string `json:"params,omitempty"`

	// Result fields, filled in by the dispatcher and handlers
	Date        int64  `json:"date,omitempty"`       // epoch seconds at invocation
	ElapsedMs   int64  `json:"elapsed_ms"`
	Code        string `json:"code"`
	Description string `json:"description,omitempty"`
	Details     string `json:"details,omitempty"` // markdown
	Loc         string `json:"loc,omitempty"`     // reference to a created resource
}

// OK reports whether the action succeeded (or has not failed yet)
func (a *Action) OK() bool {
	return a.Code == "" || a.Code == CodeOK
}

// Succeed marks the action successful with a description
func (a *Action) Succeed(description string) {
	a.Code = CodeOK
	a.Description = description
}

// Fail marks the action failed with a code tag and description
func (a *Action) Fail(code, description string) {
	a.Code = code
	a.Description = description
}

// Clone returns a shallow copy suitable for use as a fresh result object
func (a *Action) Clone() *Action {
	cp := *a
	if a.Users != nil {
		cp.Users = append([]string(nil), a.Users...)
	}
	return &cp
}

// DedupKey builds the composite key used to collapse equivalent actions.
// Types without a declared discriminator share one slot per type; this
// matches the historical behavior and is deliberate (at most one snapshot
// or ticket action survives per batch).
func DedupKey(a *Action) string {
	switch a.Type {
	case TypeEmail:
		return a.Type + "-" + a.Email + strings.Join(a.Users, ",")
	case TypeWebHook:
		return a.Type + "-" + a.WebHook
	case TypeRunEvent:
		return a.Type + "-" + a.EventID
	case TypeChannel:
		return a.Type + "-" + a.ChannelID
	case TypePlugin:
		return a.Type + "-" + a.PluginID
	default:
		return a.Type + "-"
	}
}
