package database

import (
	"fmt"
	"log"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB is the global database instance
var DB *gorm.DB

// Connect establishes a database connection. A postgres:// DSN selects the
// PostgreSQL driver; anything else is treated as a SQLite path.
func Connect(dsn string, logLevel logger.LogLevel) error {
	var err error

	cfg := &gorm.Config{Logger: logger.Default.LogMode(logLevel)}
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		DB, err = gorm.Open(postgres.Open(dsn), cfg)
	} else {
		DB, err = gorm.Open(sqlite.Open(dsn), cfg)
	}
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Println("Database connection established")
	return nil
}

// AutoMigrate runs database migrations
func AutoMigrate() error {
	log.Println("Running database migrations...")

	err := DB.AutoMigrate(
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
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Println("Database migrations completed successfully")
	return nil
}

// InitializeDefaults creates default records if they don't exist
func InitializeDefaults(adminUsername, adminPasswordHash, adminEmail string) error {
	log.Println("Initializing default database records...")

	var count int64
	DB.Model(&User{}).Where("username = ?", adminUsername).Count(&count)
	if count == 0 {
		admin := &User{
			Username:     adminUsername,
			FullName:     "Administrator",
			Email:        adminEmail,
			PasswordHash: adminPasswordHash,
			Enabled:      true,
		}
		if err := DB.Create(admin).Error; err != nil {
			return fmt.Errorf("failed to create admin user: %w", err)
		}
		log.Printf("Created admin user: %s", adminUsername)
	}

	return nil
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}

// Close closes the database connection
func Close() error {
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
