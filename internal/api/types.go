package api

// ========== Ticket Types ==========

// CreateTicketRequest is the request body for POST /api/tickets.
type CreateTicketRequest struct {
	Subject  string   `json:"subject" validate:"required,min=1,max=256"`
	Body     string   `json:"body"`
	Type     string   `json:"type" validate:"omitempty,max=64"`
	Category string   `json:"category" validate:"omitempty,max=64"`
	Server   string   `json:"server" validate:"omitempty,max=128"`
	Status   string   `json:"status" validate:"omitempty,oneof=draft open in_progress closed"`
	Assignee string   `json:"assignee"`
	Due      int64    `json:"due"`
	Cc       []string `json:"cc"`
	Notify   []string `json:"notify"`
	Tags     []string `json:"tags"`
}

// UpdateTicketRequest is the request body for PUT /api/tickets/:uuid.
// Nil fields are left untouched.
type UpdateTicketRequest struct {
	Subject  *string   `json:"subject" validate:"omitempty,min=1,max=256"`
	Body     *string   `json:"body"`
	Type     *string   `json:"type"`
	Category *string   `json:"category"`
	Server   *string   `json:"server"`
	Status   *string   `json:"status" validate:"omitempty,oneof=draft open in_progress closed"`
	Assignee *string   `json:"assignee"`
	Due      *int64    `json:"due"`
	Cc       *[]string `json:"cc"`
	Notify   *[]string `json:"notify"`
	Tags     *[]string `json:"tags"`
}

// CommentRequest is the request body for POST /api/tickets/:uuid/comments.
type CommentRequest struct {
	Text string `json:"text" validate:"required,min=1"`
}

// ========== Alert Types ==========

// IngestAlertRequest is the request body for POST /api/alerts/ingest.
// Monitoring sources post alert state here; the server matches on uuid
// when given, otherwise on name+server.
type IngestAlertRequest struct {
	UUID     string          `json:"uuid"`
	Name     string          `json:"name" validate:"required,min=1,max=256"`
	Server   string          `json:"server" validate:"omitempty,max=128"`
	Severity string          `json:"severity" validate:"omitempty,max=32"`
	Message  string          `json:"message"`
	Active   *bool           `json:"active"` // nil means active
	Groups   []string        `json:"groups"`
	Actions  []ActionRequest `json:"actions" validate:"omitempty,dive"`
}

// ActionRequest is one action definition supplied inline with a record
type ActionRequest struct {
	Type      string            `json:"type" validate:"required"`
	Enabled   *bool             `json:"enabled"` // nil means enabled
	Condition string            `json:"condition" validate:"required,oneof=alert_new alert_cleared change"`
	Email     string            `json:"email"`
	Users     []string          `json:"users"`
	WebHook   string            `json:"web_hook"`
	EventID   string            `json:"event_id"`
	ChannelID string            `json:"channel_id"`
	PluginID  string            `json:"plugin_id"`
	Params    map[string]string `json:"params"`
}

// IngestAlertResponse is the response body for POST /api/alerts/ingest.
type IngestAlertResponse struct {
	UUID      string `json:"uuid"`
	Condition string `json:"condition,omitempty"` // dispatch condition fired, if any
}

// ========== Pagination Types ==========

// PaginationMeta contains pagination metadata for list responses.
type PaginationMeta struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// PaginatedResponse wraps a list response with pagination metadata.
type PaginatedResponse struct {
	Data       interface{}    `json:"data"`
	Pagination PaginationMeta `json:"pagination"`
}
