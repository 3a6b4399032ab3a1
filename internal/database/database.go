package database

import (
	"fmt"
	"os"
	"time"

	"github.com/gatherly/backend/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB holds the database connection
var DB *gorm.DB

// Initialize creates and configures the database connection
func Initialize() error {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		// Fallback to individual components
		host := getEnvOrDefault("DB_HOST", "localhost")
		port := getEnvOrDefault("DB_PORT", "5432")
		user := getEnvOrDefault("DB_USER", "postgres")
		password := getEnvOrDefault("DB_PASSWORD", "")
		dbname := getEnvOrDefault("DB_NAME", "gatherly")
		sslmode := getEnvOrDefault("DB_SSLMODE", "disable")

		databaseURL = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			host, port, user, password, dbname, sslmode)
	}

	gormLogger := logger.Default
	if os.Getenv("ENVIRONMENT") == "development" {
		gormLogger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: gormLogger,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	DB = db

	return nil
}

// Migrate runs auto-migration for all models
func Migrate() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	err := DB.AutoMigrate(
		&models.User{},
		&models.Professional{},
		&models.Event{},
		&models.EventParticipant{},
		&models.Comment{},
		&models.Reply{},
		&models.Review{},
		&models.Reaction{},
		&models.Notification{},
		&models.NotificationRecipient{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := createIndexes(); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

// createIndexes creates performance indexes
func createIndexes() error {
	// Account lookups
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_users_email_lower ON users (LOWER(email))")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_users_username_lower ON users (LOWER(username))")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_professionals_email_lower ON professionals (LOWER(email))")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_professionals_username_lower ON professionals (LOWER(username))")

	// Newest-first listings
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_events_created ON events (created_at DESC)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_comments_event_created ON comments (event_id, created_at DESC)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_reviews_event_created ON reviews (event_id, created_at DESC)")

	// Reply tree walks key off the polymorphic parent id
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_replies_parent_created ON replies (parent_id, created_at DESC)")

	// Cascade lookups by authored content
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_comments_author ON comments (author_id)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_replies_author ON replies (author_id)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_reviews_author ON reviews (author_id)")

	// Reaction cleanup by subject and notification cleanup by reference
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_reactions_subject ON reactions (subject_id)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_notifications_reference ON notifications (reference_id)")

	// Inbox queries
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_notification_recipients_account ON notification_recipients (account_id, deleted)")

	return nil
}

// Close closes the database connection
func Close() error {
	if DB == nil {
		return nil
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

// Health checks database connectivity
func Health() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Ping()
}

// getEnvOrDefault returns environment variable or default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
