package changes

// Event types
const (
	EventTypeChange  = "change"
	EventTypeComment = "comment"
)

// Event is one field-level change (or comment) on a tracked record.
// Date is the record's Modified at detection time, not wall-clock time.
type Event struct {
	Type     string      `json:"type"`
	Key      string      `json:"key,omitempty"` // field name, only for "change"
	Value    interface{} `json:"value,omitempty"`
	Username string      `json:"username,omitempty"`
	Date     int64       `json:"date"`
}
