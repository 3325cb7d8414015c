// Package archive persists raw fetched events to SQLite so a download is
// never lost to a later processing bug: the master table can always be
// rebuilt from the archive offline.
package archive

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/bimotal/motordata/internal/model"
)

// RawEvent is one archived telemetry event. Timestamp keeps the original
// ISO-8601 text (the dedup key); EventTime is a parsed copy for range
// queries where the source notation (Z vs +00:00) does not matter.
type RawEvent struct {
	ID            uint      `gorm:"primaryKey;autoIncrement"`
	Timestamp     string    `gorm:"uniqueIndex;not null;size:64"`
	EventTime     time.Time `gorm:"index"`
	SessionID     string    `gorm:"index;size:64"`
	PropertyCount int       `gorm:"not null"`
	Properties    string    `gorm:"type:text;not null"` // JSON property bag
	CreatedAt     time.Time `gorm:"autoCreateTime"`
}

// TableName customizes the table name.
func (RawEvent) TableName() string {
	return "raw_events"
}

// Archive is a SQLite-backed store of fetched events.
type Archive struct {
	db *gorm.DB
}

// Open connects to (or creates) the archive database and migrates its
// schema.
func Open(path string) (*Archive, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("archive: open %s: %w", path, err)
	}
	if err := db.AutoMigrate(&RawEvent{}); err != nil {
		return nil, fmt.Errorf("archive: migrate: %w", err)
	}
	return &Archive{db: db}, nil
}

// Store upserts a batch of events, keyed by the timestamp text. Re-archiving
// an already-seen timestamp replaces the stored payload (last write wins,
// matching the master table's dedup rule).
func (a *Archive) Store(events []model.Event) error {
	if len(events) == 0 {
		return nil
	}
	rows := make([]RawEvent, 0, len(events))
	for _, ev := range events {
		props, err := json.Marshal(ev.Properties)
		if err != nil {
			return fmt.Errorf("archive: marshal properties for %s: %w", ev.Timestamp, err)
		}
		rows = append(rows, RawEvent{
			Timestamp:     ev.Timestamp,
			EventTime:     parseEventTime(ev.Timestamp),
			SessionID:     ev.SessionID(),
			PropertyCount: len(ev.Properties),
			Properties:    string(props),
		})
	}
	err := a.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "timestamp"}},
		UpdateAll: true,
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("archive: store %d events: %w", len(rows), err)
	}
	return nil
}

// Events returns all archived events in insertion order, reconstructing the
// property bags from their JSON payloads.
func (a *Archive) Events() ([]model.Event, error) {
	var rows []RawEvent
	if err := a.db.Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("archive: query: %w", err)
	}
	out := make([]model.Event, 0, len(rows))
	for _, row := range rows {
		var props map[string]any
		if err := json.Unmarshal([]byte(row.Properties), &props); err != nil {
			return nil, fmt.Errorf("archive: unmarshal properties for %s: %w", row.Timestamp, err)
		}
		out = append(out, model.Event{Timestamp: row.Timestamp, Properties: props})
	}
	return out, nil
}

// Count returns the number of archived events.
func (a *Archive) Count() (int64, error) {
	var n int64
	if err := a.db.Model(&RawEvent{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("archive: count: %w", err)
	}
	return n, nil
}

// Close closes the underlying database connection.
func (a *Archive) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return fmt.Errorf("archive: close: %w", err)
	}
	return sqlDB.Close()
}

// parseEventTime parses the timestamp text, tolerating both RFC 3339 zone
// spellings; a zero time marks unparseable input.
func parseEventTime(ts string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, ts); err == nil {
			return t
		}
	}
	return time.Time{}
}
