// Package history persists scan results so the engine can compute score
// deltas against the immediately prior scan.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ancients-collective/vitals/internal/types"
)

// Store is the persistence collaborator the scanner engine depends on.
// LoadLatest returns (nil, nil) when no prior scan exists.
type Store interface {
	LoadLatest() (*types.ScanResult, error)
	Save(result *types.ScanResult) error
	Recent(limit int) ([]Summary, error)
}

// Summary is one row of the scan list, without the full issue payload.
type Summary struct {
	ScanID     string    `json:"scan_id"`
	Timestamp  time.Time `json:"timestamp"`
	DurationMS int64     `json:"duration_ms"`
	Health     int       `json:"health"`
	Speed      int       `json:"speed"`
}

// scanRecord is the database row for one scan. The scores are broken out
// into columns for listing; Data carries the full result JSON.
type scanRecord struct {
	ScanID     string    `gorm:"primaryKey"`
	Timestamp  time.Time `gorm:"index"`
	DurationMS int64
	Health     int
	Speed      int
	Data       string
}

// SQLiteStore stores scan history in a local sqlite file via gorm.
type SQLiteStore struct {
	db *gorm.DB
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open history db %q: %w", path, err)
	}

	if err := db.AutoMigrate(&scanRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate history db: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Save inserts or replaces one scan.
func (s *SQLiteStore) Save(result *types.ScanResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to serialize scan: %w", err)
	}

	record := scanRecord{
		ScanID:     result.ScanID,
		Timestamp:  result.Timestamp,
		DurationMS: result.DurationMS,
		Health:     result.Scores.Health,
		Speed:      result.Scores.Speed,
		Data:       string(data),
	}
	if err := s.db.Save(&record).Error; err != nil {
		return fmt.Errorf("failed to save scan: %w", err)
	}
	return nil
}

// LoadLatest returns the most recent scan, or (nil, nil) when the store
// is empty.
func (s *SQLiteStore) LoadLatest() (*types.ScanResult, error) {
	var record scanRecord
	err := s.db.Order("timestamp desc").First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest scan: %w", err)
	}

	var result types.ScanResult
	if err := json.Unmarshal([]byte(record.Data), &result); err != nil {
		return nil, fmt.Errorf("corrupt scan record %q: %w", record.ScanID, err)
	}
	return &result, nil
}

// Recent lists up to limit scans, newest first.
func (s *SQLiteStore) Recent(limit int) ([]Summary, error) {
	var records []scanRecord
	err := s.db.Order("timestamp desc").Limit(limit).Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list scans: %w", err)
	}

	summaries := make([]Summary, 0, len(records))
	for _, r := range records {
		summaries = append(summaries, Summary{
			ScanID:     r.ScanID,
			Timestamp:  r.Timestamp,
			DurationMS: r.DurationMS,
			Health:     r.Health,
			Speed:      r.Speed,
		})
	}
	return summaries, nil
}
