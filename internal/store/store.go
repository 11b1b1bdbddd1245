// Package store persists alerts in SQLite via GORM. It implements the
// consolidation engine's AlertStore contract: a time-window scan over
// unconsolidated alerts plus idempotent upserts by id.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/couchcryptid/alert-consolidation-service/internal/domain"
)

// Store is the SQLite-backed alert repository.
type Store struct {
	db *gorm.DB
}

// Open opens (creating if needed) the alert database and migrates the schema.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open alert database %s: %w", path, err)
	}
	if err := db.AutoMigrate(&alertRecord{}); err != nil {
		return nil, fmt.Errorf("migrate alert schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// FetchUnconsolidated returns alerts created at or after since that have no
// consolidation status yet, oldest first, bounded by limit.
func (s *Store) FetchUnconsolidated(ctx context.Context, since time.Time, limit int) ([]domain.Alert, error) {
	var recs []alertRecord
	err := s.db.WithContext(ctx).
		Where("created_at >= ?", since).
		Where("consolidation_status = ? OR consolidation_status IS NULL", "").
		Order("created_at asc").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("fetch unconsolidated alerts: %w", err)
	}

	alerts := make([]domain.Alert, 0, len(recs))
	for _, rec := range recs {
		a, err := fromRecord(rec)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, nil
}

// SaveAlert upserts a source alert by id. Used by ingestion and fixtures;
// the engine itself only writes PRIMARY records and status transitions.
func (s *Store) SaveAlert(ctx context.Context, a domain.Alert) error {
	rec, err := toRecord(a)
	if err != nil {
		return err
	}
	return s.upsert(ctx, rec)
}

// PutAlert upserts a consolidated alert by id.
func (s *Store) PutAlert(ctx context.Context, c domain.ConsolidatedAlert) error {
	rec, err := toConsolidatedRecord(c)
	if err != nil {
		return err
	}
	return s.upsert(ctx, rec)
}

// UpdateAlertStatus transitions one alert's consolidation state.
func (s *Store) UpdateAlertStatus(ctx context.Context, id string, status domain.ConsolidationStatus, consolidatedInto string) error {
	res := s.db.WithContext(ctx).Model(&alertRecord{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"consolidation_status": string(status),
			"consolidated_into":    consolidatedInto,
			"updated_at":           domain.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("update status of alert %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update status of alert %s: not found", id)
	}
	return nil
}

// GetAlert loads one alert by id.
func (s *Store) GetAlert(ctx context.Context, id string) (domain.Alert, error) {
	var rec alertRecord
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return domain.Alert{}, fmt.Errorf("load alert %s: %w", id, err)
	}
	return fromRecord(rec)
}

// GetConsolidatedAlert loads one PRIMARY record by id, including its member
// list and source summaries.
func (s *Store) GetConsolidatedAlert(ctx context.Context, id string) (domain.ConsolidatedAlert, error) {
	var rec alertRecord
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return domain.ConsolidatedAlert{}, fmt.Errorf("load consolidated alert %s: %w", id, err)
	}
	return fromConsolidatedRecord(rec)
}

func (s *Store) upsert(ctx context.Context, rec alertRecord) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&rec).Error
	if err != nil {
		return fmt.Errorf("upsert alert %s: %w", rec.ID, err)
	}
	return nil
}
