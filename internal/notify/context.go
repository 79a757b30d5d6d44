package notify

// RecordKind distinguishes the two tracked record kinds
type RecordKind string

const (
	RecordKindAlert  RecordKind = "alert"
	RecordKindTicket RecordKind = "ticket"
)

// Context carries everything handlers need about the triggering record
// and its surroundings. It is read-only during a dispatch batch.
type Context struct {
	Condition  string                 `json:"condition"`
	RecordKind RecordKind             `json:"record_kind"`
	RecordID   string                 `json:"record_id"` // record UUID
	Title      string                 `json:"title"`     // ticket subject or alert name
	Message    string                 `json:"message,omitempty"`
	Server     string                 `json:"server,omitempty"`
	Groups     []string               `json:"groups,omitempty"`
	Data       map[string]interface{} `json:"data,omitempty"` // extra metadata (metrics blob, change list, ...)
}
