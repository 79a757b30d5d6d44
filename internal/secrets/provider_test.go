package secrets

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/fleetwatch/fleetwatch/internal/database"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}
	if err := db.AutoMigrate(&database.PluginSecret{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func TestProvider_EmptyScopeYieldsEmptyMap(t *testing.T) {
	p := NewProvider(setupTestDB(t))

	got, err := p.For("plugin", "pager")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("got %v, want empty map", got)
	}
}

func TestProvider_SetAndFor(t *testing.T) {
	p := NewProvider(setupTestDB(t))

	if err := p.Set("plugin", "pager", "API_TOKEN", "abc"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := p.Set("plugin", "pager", "REGION", "eu"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	// other scope, must not leak
	if err := p.Set("plugin", "other", "API_TOKEN", "xyz"); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	got, err := p.For("plugin", "pager")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got["API_TOKEN"] != "abc" || got["REGION"] != "eu" {
		t.Errorf("got %v", got)
	}
}

func TestProvider_SetReplaces(t *testing.T) {
	p := NewProvider(setupTestDB(t))

	if err := p.Set("plugin", "pager", "API_TOKEN", "old"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := p.Set("plugin", "pager", "API_TOKEN", "new"); err != nil {
		t.Fatalf("replace failed: %v", err)
	}

	got, _ := p.For("plugin", "pager")
	if got["API_TOKEN"] != "new" {
		t.Errorf("API_TOKEN = %q, want new", got["API_TOKEN"])
	}
	if len(got) != 1 {
		t.Errorf("replace created a duplicate row: %v", got)
	}
}

func TestProvider_Delete(t *testing.T) {
	p := NewProvider(setupTestDB(t))

	if err := p.Set("plugin", "pager", "API_TOKEN", "abc"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := p.Delete("plugin", "pager", "API_TOKEN"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	got, _ := p.For("plugin", "pager")
	if len(got) != 0 {
		t.Errorf("secret survived deletion: %v", got)
	}

	// deleting a missing secret is not an error
	if err := p.Delete("plugin", "pager", "API_TOKEN"); err != nil {
		t.Errorf("deleting a missing secret failed: %v", err)
	}
}
