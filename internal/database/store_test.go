package database

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}
	// Each pooled sqlite :memory: connection is a separate database, so pin
	// the pool to one connection for the concurrent update tests.
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}

	err = db.AutoMigrate(
		&Ticket{},
		&Alert{},
		&User{},
		&NotificationChannel{},
		&WebHook{},
		&EventDef{},
		&Job{},
		&PluginDef{},
		&PluginSecret{},
		&Snapshot{},
		&DailyStat{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

func TestUpdateTicket_AppliesMutation(t *testing.T) {
	db := setupTestDB(t)
	db.Create(&Ticket{UUID: "t-1", Subject: "a", Status: TicketStatusOpen})

	err := UpdateTicket(db, "t-1", func(tk *Ticket) error {
		tk.Subject = "b"
		tk.Status = TicketStatusInProgress
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	updated, err := GetTicketByUUID(db, "t-1")
	if err != nil {
		t.Fatalf("failed to reload: %v", err)
	}
	if updated.Subject != "b" || updated.Status != TicketStatusInProgress {
		t.Errorf("mutation not applied: %+v", updated)
	}
}

func TestUpdateTicket_NotFound(t *testing.T) {
	db := setupTestDB(t)
	err := UpdateTicket(db, "missing", func(tk *Ticket) error { return nil })
	if err != gorm.ErrRecordNotFound {
		t.Errorf("err = %v, want gorm.ErrRecordNotFound", err)
	}
}

func TestUpdateTicket_MutateErrorAborts(t *testing.T) {
	db := setupTestDB(t)
	db.Create(&Ticket{UUID: "t-1", Subject: "a", Status: TicketStatusOpen})

	boom := fmt.Errorf("mutate failed")
	err := UpdateTicket(db, "t-1", func(tk *Ticket) error {
		tk.Subject = "should not persist"
		return boom
	})
	if err == nil {
		t.Fatal("expected error")
	}

	reloaded, _ := GetTicketByUUID(db, "t-1")
	if reloaded.Subject != "a" {
		t.Errorf("failed mutation leaked into the database: %+v", reloaded)
	}
}

func TestUpdateAlert_ConcurrentAppendsSurvive(t *testing.T) {
	db := setupTestDB(t)
	db.Create(&Alert{UUID: "al-1", Name: "cpu high"})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = UpdateAlert(db, "al-1", func(a *Alert) error {
				a.Actions = append(a.Actions, []byte(fmt.Sprintf(`{"n":%d}`, n)))
				return nil
			})
		}(i)
	}
	wg.Wait()

	alert, err := GetAlertByUUID(db, "al-1")
	if err != nil {
		t.Fatalf("failed to reload: %v", err)
	}
	// sqlite serializes writers, so with retries all appends should land
	if len(alert.Actions) != 5 {
		t.Errorf("got %d appended actions, want 5", len(alert.Actions))
	}
}

func TestUpdateTicket_ConcurrentAppendsSurvive(t *testing.T) {
	db := setupTestDB(t)
	db.Create(&Ticket{UUID: "t-1", Subject: "a", Status: TicketStatusOpen})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = UpdateTicket(db, "t-1", func(tk *Ticket) error {
				tk.Actions = append(tk.Actions, []byte(fmt.Sprintf(`{"n":%d}`, n)))
				return nil
			})
		}(i)
	}
	wg.Wait()

	ticket, err := GetTicketByUUID(db, "t-1")
	if err != nil {
		t.Fatalf("failed to reload: %v", err)
	}
	if len(ticket.Actions) != 5 {
		t.Errorf("got %d appended actions, want 5", len(ticket.Actions))
	}
}

func TestCreateDisabledRecordStaysDisabled(t *testing.T) {
	db := setupTestDB(t)
	db.Create(&User{Username: "carol", Email: "carol@example.com", Enabled: false})
	db.Create(&PluginDef{PluginID: "pager", Command: "/bin/true", Enabled: false})
	db.Create(&NotificationChannel{ChannelID: "ops", Enabled: false})

	var u User
	if err := db.Where("username = ?", "carol").First(&u).Error; err != nil {
		t.Fatalf("failed to reload user: %v", err)
	}
	if u.Enabled {
		t.Error("user created disabled came back enabled")
	}

	p, err := GetPluginByPluginID(db, "pager")
	if err != nil {
		t.Fatalf("failed to reload plugin: %v", err)
	}
	if p.Enabled {
		t.Error("plugin created disabled came back enabled")
	}

	ch, err := GetChannelByChannelID(db, "ops")
	if err != nil {
		t.Fatalf("failed to reload channel: %v", err)
	}
	if ch.Enabled {
		t.Error("channel created disabled came back enabled")
	}
}

func TestGetUsersByUsernames_FiltersDisabled(t *testing.T) {
	db := setupTestDB(t)
	db.Create(&User{Username: "alice", Email: "alice@example.com", Enabled: true})
	db.Create(&User{Username: "bob", Email: "bob@example.com", Enabled: false})

	users, err := GetUsersByUsernames(db, []string{"alice", "bob", "ghost"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(users) != 1 || users[0].Username != "alice" {
		t.Errorf("users = %+v, want only alice", users)
	}
}

func TestGetUsersByUsernames_EmptyInput(t *testing.T) {
	db := setupTestDB(t)
	users, err := GetUsersByUsernames(db, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if users != nil {
		t.Errorf("expected nil result for empty input, got %v", users)
	}
}

func TestIncrementDailyStat(t *testing.T) {
	db := setupTestDB(t)

	for i := 0; i < 3; i++ {
		if err := IncrementDailyStat(db, "tickets_closed"); err != nil {
			t.Fatalf("increment %d failed: %v", i, err)
		}
	}

	var stat DailyStat
	day := time.Now().Format("2006-01-02")
	if err := db.Where("day = ? AND key = ?", day, "tickets_closed").First(&stat).Error; err != nil {
		t.Fatalf("stat row missing: %v", err)
	}
	if stat.Count != 3 {
		t.Errorf("count = %d, want 3", stat.Count)
	}

	var rows int64
	db.Model(&DailyStat{}).Count(&rows)
	if rows != 1 {
		t.Errorf("expected a single upserted row, got %d", rows)
	}
}

func TestTicketBeforeCreateStampsModified(t *testing.T) {
	db := setupTestDB(t)
	ticket := &Ticket{UUID: "t-1", Subject: "a", Status: TicketStatusOpen}
	db.Create(ticket)

	if ticket.Modified == 0 {
		t.Error("Modified was not stamped on create")
	}
}

func TestStringListRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	db.Create(&Ticket{UUID: "t-1", Subject: "a", Status: TicketStatusOpen, Tags: StringList{"db", "prod"}})

	reloaded, err := GetTicketByUUID(db, "t-1")
	if err != nil {
		t.Fatalf("failed to reload: %v", err)
	}
	if len(reloaded.Tags) != 2 || reloaded.Tags[0] != "db" || reloaded.Tags[1] != "prod" {
		t.Errorf("tags = %v", reloaded.Tags)
	}
}
