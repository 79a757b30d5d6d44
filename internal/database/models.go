package database

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

// JSONB is a custom type for JSON object columns (jsonb on PostgreSQL,
// serialized text on SQLite)
type JSONB map[string]interface{}

// Scan implements the sql.Scanner interface
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = make(map[string]interface{})
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		s, sok := value.(string)
		if !sok {
			return errors.New("type assertion to []byte failed")
		}
		bytes = []byte(s)
	}
	return json.Unmarshal(bytes, j)
}

// Value implements the driver.Valuer interface
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// StringList stores a JSON array of strings in a single column
type StringList []string

// Scan implements the sql.Scanner interface
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		s, sok := value.(string)
		if !sok {
			return errors.New("type assertion to []byte failed")
		}
		bytes = []byte(s)
	}
	return json.Unmarshal(bytes, l)
}

// Value implements the driver.Valuer interface
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal([]string{})
	}
	return json.Marshal(l)
}

// ActionLog stores the append-only history of action results on a record.
// Entries are opaque JSON objects; the notify package owns their shape.
type ActionLog []json.RawMessage

// Scan implements the sql.Scanner interface
func (a *ActionLog) Scan(value interface{}) error {
	if value == nil {
		*a = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		s, sok := value.(string)
		if !sok {
			return errors.New("type assertion to []byte failed")
		}
		bytes = []byte(s)
	}
	return json.Unmarshal(bytes, a)
}

// Value implements the driver.Valuer interface
func (a ActionLog) Value() (driver.Value, error) {
	if a == nil {
		return json.Marshal([]json.RawMessage{})
	}
	return json.Marshal(a)
}

// TicketStatus represents the workflow state of a ticket
type TicketStatus string

const (
	TicketStatusDraft      TicketStatus = "draft"
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusClosed     TicketStatus = "closed"
)

// IsTerminal returns true for statuses that end the ticket lifecycle
func (s TicketStatus) IsTerminal() bool {
	return s == TicketStatusClosed
}

// Ticket is a tracked workflow record. Actions is its append-only
// notification history; Modified is epoch seconds of the last edit.
type Ticket struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	UUID      string       `gorm:"uniqueIndex;size:36;not null" json:"uuid"`
	Subject   string       `gorm:"size:255" json:"subject"`
	Body      string       `gorm:"type:text" json:"body"`
	Type      string       `gorm:"size:64" json:"type"`
	Category  string       `gorm:"size:64" json:"category"`
	Server    string       `gorm:"size:128;index" json:"server"`
	Status    TicketStatus `gorm:"type:varchar(32);not null;default:'open'" json:"status"`
	Assignee  string       `gorm:"size:128" json:"assignee"`
	Due       int64        `json:"due"`                     // epoch seconds, 0 = no due date
	Cc        StringList   `gorm:"type:text" json:"cc"`     // raw e-mail addresses
	Notify    StringList   `gorm:"type:text" json:"notify"` // usernames notified on change
	Tags      StringList   `gorm:"type:text" json:"tags"`
	CreatedBy string       `gorm:"size:128" json:"created_by"`
	Modified  int64        `gorm:"index" json:"modified"` // epoch seconds of last edit
	Actions   ActionLog    `gorm:"type:text" json:"actions"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func (Ticket) TableName() string {
	return "tickets"
}

// BeforeCreate stamps Modified on new tickets so change events always
// carry a commit time
func (t *Ticket) BeforeCreate(tx *gorm.DB) error {
	if t.Modified == 0 {
		t.Modified = time.Now().Unix()
	}
	return nil
}

// Alert is a tracked alert instance reported against a server
type Alert struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UUID      string     `gorm:"uniqueIndex;size:36;not null" json:"uuid"`
	Name      string     `gorm:"size:255;not null" json:"name"`
	Server    string     `gorm:"size:128;index" json:"server"`
	Severity  string     `gorm:"size:32" json:"severity"`
	Message   string     `gorm:"type:text" json:"message"`
	Active    bool       `gorm:"default:false;index" json:"active"`
	Groups    StringList `gorm:"type:text" json:"groups"` // group memberships, supplied by the evaluator
	Modified  int64      `gorm:"index" json:"modified"`
	Actions   ActionLog  `gorm:"type:text" json:"actions"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (Alert) TableName() string {
	return "alerts"
}

// BeforeCreate stamps Modified on new alerts
func (a *Alert) BeforeCreate(tx *gorm.DB) error {
	if a.Modified == 0 {
		a.Modified = time.Now().Unix()
	}
	return nil
}

// User is an account in the local user directory
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:128;not null" json:"username"`
	FullName     string    `gorm:"size:255" json:"full_name"`
	Email        string    `gorm:"size:255" json:"email"`
	PasswordHash string    `gorm:"type:text" json:"-"`
	Enabled      bool      `json:"enabled"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// NotificationChannel groups delivery targets behind one id so a single
// action can fan out to e-mail, a webhook, an event and user pushes.
// MaxPerDay of 0 means unlimited.
type NotificationChannel struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	ChannelID string     `gorm:"uniqueIndex;size:64;not null" json:"channel_id"`
	Name      string     `gorm:"size:255" json:"name"`
	Enabled   bool       `json:"enabled"`
	Users     StringList `gorm:"type:text" json:"users"`
	Email     string     `gorm:"size:255" json:"email"`
	WebHook   string     `gorm:"size:64" json:"web_hook"`
	RunEvent  string     `gorm:"size:64" json:"run_event"`
	Sound     string     `gorm:"size:64" json:"sound"`
	MaxPerDay int        `gorm:"default:0" json:"max_per_day"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (NotificationChannel) TableName() string {
	return "notification_channels"
}

// WebHook is a stored outbound HTTP call definition
type WebHook struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	HookID          string    `gorm:"uniqueIndex;size:64;not null" json:"hook_id"`
	Name            string    `gorm:"size:255" json:"name"`
	URL             string    `gorm:"type:text;not null" json:"url"`
	Method          string    `gorm:"size:16;default:'POST'" json:"method"`
	Headers         JSONB     `gorm:"type:text" json:"headers"`
	Body            string    `gorm:"type:text" json:"body"` // literal body; empty = JSON-encoded dispatch context
	TimeoutSeconds  int       `gorm:"default:30" json:"timeout_seconds"`
	Retries         int       `gorm:"default:0" json:"retries"`
	FollowRedirects bool      `json:"follow_redirects"`
	InsecureTLS     bool      `gorm:"default:false" json:"insecure_tls"`
	Enabled         bool      `json:"enabled"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (WebHook) TableName() string {
	return "web_hooks"
}

// EventDef is a workflow definition that jobs can be launched from
type EventDef struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	EventID   string    `gorm:"uniqueIndex;size:64;not null" json:"event_id"`
	Title     string    `gorm:"size:255" json:"title"`
	Params    JSONB     `gorm:"type:text" json:"params"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (EventDef) TableName() string {
	return "event_defs"
}

// JobStatus represents the state of a launched job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Job is one launched instance of an EventDef
type Job struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UUID      string    `gorm:"uniqueIndex;size:36;not null" json:"uuid"`
	EventID   string    `gorm:"size:64;index;not null" json:"event_id"`
	Source    string    `gorm:"size:64" json:"source"` // originating condition tag
	Status    JobStatus `gorm:"type:varchar(32);not null;default:'pending'" json:"status"`
	Params    JSONB     `gorm:"type:text" json:"params"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Job) TableName() string {
	return "jobs"
}

// PluginDef is an executable notification plugin
type PluginDef struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	PluginID       string    `gorm:"uniqueIndex;size:64;not null" json:"plugin_id"`
	Name           string    `gorm:"size:255" json:"name"`
	Command        string    `gorm:"type:text;not null" json:"command"`
	Script         string    `gorm:"type:text" json:"script"` // optional script passed as a file argument
	Params         JSONB     `gorm:"type:text" json:"params"` // extra env vars, values may reference $OTHER_VAR
	TimeoutSeconds int       `gorm:"default:60" json:"timeout_seconds"`
	RunAs          string    `gorm:"size:128" json:"run_as"` // username or numeric uid, empty = current user
	Enabled        bool      `json:"enabled"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (PluginDef) TableName() string {
	return "plugin_defs"
}

// PluginSecret is an env var scoped to one plugin (or another scope kind)
type PluginSecret struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ScopeType string    `gorm:"size:32;not null;index:idx_secret_scope" json:"scope_type"`
	ScopeID   string    `gorm:"size:64;not null;index:idx_secret_scope" json:"scope_id"`
	Name      string    `gorm:"size:128;not null" json:"name"`
	Value     string    `gorm:"type:text" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (PluginSecret) TableName() string {
	return "plugin_secrets"
}

// Snapshot is a point-in-time copy of a server's reported data
type Snapshot struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UUID      string    `gorm:"uniqueIndex;size:36;not null" json:"uuid"`
	Server    string    `gorm:"size:128;index;not null" json:"server"`
	Data      JSONB     `gorm:"type:text" json:"data"`
	CreatedAt time.Time `json:"created_at"`
}

func (Snapshot) TableName() string {
	return "snapshots"
}

// DailyStat is a per-day counter (e.g. tickets closed today)
type DailyStat struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	Day   string `gorm:"size:10;not null;uniqueIndex:idx_daily_stat" json:"day"` // YYYY-MM-DD
	Key   string `gorm:"size:64;not null;uniqueIndex:idx_daily_stat" json:"key"`
	Count int64  `gorm:"default:0" json:"count"`
}

func (DailyStat) TableName() string {
	return "daily_stats"
}
