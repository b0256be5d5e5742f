// Package journal persists the operator audit trail: alert lifecycle
// actions, settings changes, and detection toggles. Recording is
// best-effort; the console never blocks or fails on journal errors.
package journal

import (
	"fmt"
	stdlog "log"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Entry is one recorded operator action.
type Entry struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Action    string    `gorm:"type:varchar(64);not null;index" json:"action"`
	Details   string    `gorm:"type:text" json:"details"`
	CreatedAt time.Time `json:"created_at"`
}

func (Entry) TableName() string {
	return "journal_entries"
}

// Journal wraps the database handle for the audit trail.
type Journal struct {
	db     *gorm.DB
	logger *stdlog.Logger
}

// Open connects to the journal database and runs migrations. A DSN with a
// postgres scheme selects the PostgreSQL driver; anything else is treated
// as a SQLite path, so local setups work with a plain file (or ":memory:").
func Open(dsn string, logLevel logger.LogLevel, log *stdlog.Logger) (*Journal, error) {
	cfg := &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	}

	var (
		db  *gorm.DB
		err error
	)
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		db, err = gorm.Open(postgres.Open(dsn), cfg)
	} else {
		db, err = gorm.Open(sqlite.Open(dsn), cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to journal database: %w", err)
	}

	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("failed to run journal migrations: %w", err)
	}

	return &Journal{db: db, logger: log}, nil
}

// Record writes one entry. Failures are logged and swallowed so a broken
// journal never takes down alert handling.
func (j *Journal) Record(action, details string) {
	entry := Entry{Action: action, Details: details}
	if err := j.db.Create(&entry).Error; err != nil {
		j.logger.Printf("Failed to record journal entry %q: %v", action, err)
	}
}

// Entries returns a page of entries, newest first. A non-empty action
// restricts the page to entries recorded under that action.
func (j *Journal) Entries(action string, offset, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	query := j.db.Order("id desc").Offset(offset).Limit(limit)
	if action != "" {
		query = query.Where("action = ?", action)
	}
	var entries []Entry
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// Count returns the number of entries, optionally restricted to one action.
func (j *Journal) Count(action string) (int64, error) {
	query := j.db.Model(&Entry{})
	if action != "" {
		query = query.Where("action = ?", action)
	}
	var count int64
	err := query.Count(&count).Error
	return count, err
}

// Close closes the underlying database connection.
func (j *Journal) Close() error {
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
