package database

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Functions in this file accept a db parameter (rather than using the global
// DB) to support dependency injection, transaction contexts, and testing.

// GetTicketByUUID retrieves a ticket by UUID
func GetTicketByUUID(db *gorm.DB, uuid string) (*Ticket, error) {
	var t Ticket
	if err := db.Where("uuid = ?", uuid).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// GetAlertByUUID retrieves an alert by UUID
func GetAlertByUUID(db *gorm.DB, uuid string) (*Alert, error) {
	var a Alert
	if err := db.Where("uuid = ?", uuid).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// updateRetries is how many times a read-modify-write is attempted before
// giving up. Two dispatch batches for the same record may race; the row is
// locked for the duration of the transaction (SELECT FOR UPDATE on
// PostgreSQL; the SQLite driver drops the clause and serializes writes)
// and the loop re-reads on error so concurrent appends are preserved.
const updateRetries = 3

// UpdateTicket applies mutate to a freshly loaded ticket and saves it,
// retrying the whole read-modify-write on conflict
func UpdateTicket(db *gorm.DB, uuid string, mutate func(*Ticket) error) error {
	var lastErr error
	for attempt := 0; attempt < updateRetries; attempt++ {
		lastErr = db.Transaction(func(tx *gorm.DB) error {
			var t Ticket
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("uuid = ?", uuid).First(&t).Error; err != nil {
				return err
			}
			if err := mutate(&t); err != nil {
				return err
			}
			return tx.Save(&t).Error
		})
		if lastErr == nil {
			return nil
		}
		if lastErr == gorm.ErrRecordNotFound {
			return lastErr
		}
		time.Sleep(time.Duration(attempt+1) * 50 * time.Millisecond)
	}
	return fmt.Errorf("ticket update failed after %d attempts: %w", updateRetries, lastErr)
}

// UpdateAlert applies mutate to a freshly loaded alert and saves it,
// retrying the whole read-modify-write on conflict
func UpdateAlert(db *gorm.DB, uuid string, mutate func(*Alert) error) error {
	var lastErr error
	for attempt := 0; attempt < updateRetries; attempt++ {
		lastErr = db.Transaction(func(tx *gorm.DB) error {
			var a Alert
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("uuid = ?", uuid).First(&a).Error; err != nil {
				return err
			}
			if err := mutate(&a); err != nil {
				return err
			}
			return tx.Save(&a).Error
		})
		if lastErr == nil {
			return nil
		}
		if lastErr == gorm.ErrRecordNotFound {
			return lastErr
		}
		time.Sleep(time.Duration(attempt+1) * 50 * time.Millisecond)
	}
	return fmt.Errorf("alert update failed after %d attempts: %w", updateRetries, lastErr)
}

// GetUsersByUsernames loads enabled users from the directory, preserving no
// particular order. Unknown usernames are silently absent from the result.
func GetUsersByUsernames(db *gorm.DB, usernames []string) ([]User, error) {
	if len(usernames) == 0 {
		return nil, nil
	}
	var users []User
	if err := db.Where("username IN ? AND enabled = ?", usernames, true).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// GetUserByUsername retrieves a single user by username
func GetUserByUsername(db *gorm.DB, username string) (*User, error) {
	var u User
	if err := db.Where("username = ?", username).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// GetChannelByChannelID retrieves a notification channel by its channel id
func GetChannelByChannelID(db *gorm.DB, channelID string) (*NotificationChannel, error) {
	var ch NotificationChannel
	if err := db.Where("channel_id = ?", channelID).First(&ch).Error; err != nil {
		return nil, err
	}
	return &ch, nil
}

// GetWebHookByHookID retrieves a webhook definition by its hook id
func GetWebHookByHookID(db *gorm.DB, hookID string) (*WebHook, error) {
	var h WebHook
	if err := db.Where("hook_id = ?", hookID).First(&h).Error; err != nil {
		return nil, err
	}
	return &h, nil
}

// GetEventDefByEventID retrieves an event definition by its event id
func GetEventDefByEventID(db *gorm.DB, eventID string) (*EventDef, error) {
	var e EventDef
	if err := db.Where("event_id = ?", eventID).First(&e).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

// GetPluginByPluginID retrieves a plugin definition by its plugin id
func GetPluginByPluginID(db *gorm.DB, pluginID string) (*PluginDef, error) {
	var p PluginDef
	if err := db.Where("plugin_id = ?", pluginID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// IncrementDailyStat bumps the named counter for today
func IncrementDailyStat(db *gorm.DB, key string) error {
	day := time.Now().Format("2006-01-02")
	return db.Transaction(func(tx *gorm.DB) error {
		var stat DailyStat
		err := tx.Where("day = ? AND key = ?", day, key).First(&stat).Error
		if err == gorm.ErrRecordNotFound {
			return tx.Create(&DailyStat{Day: day, Key: key, Count: 1}).Error
		}
		if err != nil {
			return err
		}
		return tx.Model(&stat).Update("count", stat.Count+1).Error
	})
}

// StatRecorder adapts daily stat counting for callers that only need to
// increment counters (the change detector's closed-ticket side effect)
type StatRecorder struct {
	db *gorm.DB
}

// NewStatRecorder creates a StatRecorder bound to db
func NewStatRecorder(db *gorm.DB) *StatRecorder {
	return &StatRecorder{db: db}
}

// IncrDaily increments the named daily counter, logging is left to callers
func (s *StatRecorder) IncrDaily(key string) {
	_ = IncrementDailyStat(s.db, key)
}
