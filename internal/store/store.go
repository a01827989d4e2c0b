package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// Named slots. These are the only keys the console persists; logout
// clears them together.
const (
	SlotSession      = "session"
	SlotLastConfigID = "last-config-id"
	SlotLastConfig   = "last-config"
)

// slot is one named JSON value in the local store.
type slot struct {
	Name  string `gorm:"primaryKey"`
	Value string `gorm:"not null"`
}

// Store is durable per-user key/value storage backed by a local sqlite
// file. Values are JSON-encoded; a value that no longer decodes is
// treated as absent, never surfaced as an error.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// Open creates or opens the store file and migrates the schema. The
// file holds tokens and the exchange secret, so it is chmod'ed to
// owner-only access.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	if err := db.AutoMigrate(&slot{}); err != nil {
		return nil, fmt.Errorf("failed to migrate store: %w", err)
	}

	if err := os.Chmod(path, 0o600); err != nil {
		return nil, fmt.Errorf("failed to restrict store permissions: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Get decodes the named slot into out. The second return is false when
// the slot is absent or its stored value is malformed; malformed values
// are deleted so the caller always sees a clean "not set".
func (s *Store) Get(name string, out any) (bool, error) {
	var row slot
	if err := s.db.First(&row, "name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read slot %q: %w", name, err)
	}

	if err := json.Unmarshal([]byte(row.Value), out); err != nil {
		s.logger.Warn("Discarding malformed persisted value",
			zap.String("slot", name), zap.Error(err))
		if derr := s.Delete(name); derr != nil {
			return false, derr
		}
		return false, nil
	}

	return true, nil
}

// Put encodes v into the named slot, replacing any previous value.
func (s *Store) Put(name string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode slot %q: %w", name, err)
	}

	row := slot{Name: name, Value: string(raw)}
	err = s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to write slot %q: %w", name, err)
	}
	return nil
}

// Delete removes the named slots. Missing slots are not an error.
func (s *Store) Delete(names ...string) error {
	if len(names) == 0 {
		return nil
	}
	if err := s.db.Delete(&slot{}, "name IN ?", names).Error; err != nil {
		return fmt.Errorf("failed to delete slots: %w", err)
	}
	return nil
}

// Reset clears every slot at once. Used by logout.
func (s *Store) Reset() error {
	if err := s.db.Where("1 = 1").Delete(&slot{}).Error; err != nil {
		return fmt.Errorf("failed to reset store: %w", err)
	}
	return nil
}
