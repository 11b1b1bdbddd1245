package store

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/couchcryptid/alert-consolidation-service/internal/domain"
)

// alertRecord is the storage row for both source alerts and the PRIMARY
// records created by consolidation. Optional structured fields are stored as
// JSON columns; consolidation fields are empty on plain source alerts.
type alertRecord struct {
	ID         string    `gorm:"primaryKey;size:64"`
	SourceID   string    `gorm:"index;size:128"`
	SourceType string    `gorm:"index;size:64"`
	// The engine owns both timestamps; GORM's automatic create/update
	// tracking must not overwrite them.
	CreatedAt time.Time `gorm:"index;autoCreateTime:false"`
	UpdatedAt time.Time `gorm:"autoUpdateTime:false"`

	EventType        string `gorm:"index;size:64"`
	Headline         string `gorm:"type:text"`
	Description      string `gorm:"type:text"`
	AIClassification datatypes.JSON

	Location   datatypes.JSON
	Geospatial datatypes.JSON

	StartTime *time.Time `gorm:"index"`
	EndTime   *time.Time

	Parameters datatypes.JSON

	ConsolidationStatus string `gorm:"index;size:16"`
	ConsolidatedInto    string `gorm:"index;size:64"`

	ConsolidatedFrom    datatypes.JSON
	SourceCount         int
	Sources             datatypes.JSON
	EnhancedDescription string `gorm:"type:text"`
}

func (alertRecord) TableName() string { return "alerts" }

func toRecord(a domain.Alert) (alertRecord, error) {
	rec := alertRecord{
		ID:                  a.ID,
		SourceID:            a.SourceID,
		SourceType:          a.SourceType,
		CreatedAt:           a.CreatedAt,
		UpdatedAt:           a.UpdatedAt,
		EventType:           a.EventType,
		Headline:            a.Headline,
		Description:         a.Description,
		StartTime:           a.StartTime,
		EndTime:             a.EndTime,
		ConsolidationStatus: string(a.ConsolidationStatus),
		ConsolidatedInto:    a.ConsolidatedInto,
	}

	var err error
	if rec.AIClassification, err = marshalJSON(a.AIClassification, a.AIClassification != nil); err != nil {
		return alertRecord{}, fmt.Errorf("encode classification for %s: %w", a.ID, err)
	}
	if rec.Location, err = marshalJSON(a.Location, a.Location != nil); err != nil {
		return alertRecord{}, fmt.Errorf("encode location for %s: %w", a.ID, err)
	}
	if rec.Geospatial, err = marshalJSON(a.Geospatial, a.Geospatial != nil); err != nil {
		return alertRecord{}, fmt.Errorf("encode geospatial data for %s: %w", a.ID, err)
	}
	if rec.Parameters, err = marshalJSON(a.Parameters, len(a.Parameters) > 0); err != nil {
		return alertRecord{}, fmt.Errorf("encode parameters for %s: %w", a.ID, err)
	}

	return rec, nil
}

func toConsolidatedRecord(c domain.ConsolidatedAlert) (alertRecord, error) {
	rec, err := toRecord(c.Alert)
	if err != nil {
		return alertRecord{}, err
	}

	rec.SourceCount = c.SourceCount
	rec.EnhancedDescription = c.EnhancedDescription
	if rec.ConsolidatedFrom, err = marshalJSON(c.ConsolidatedFrom, len(c.ConsolidatedFrom) > 0); err != nil {
		return alertRecord{}, fmt.Errorf("encode member ids for %s: %w", c.ID, err)
	}
	if rec.Sources, err = marshalJSON(c.Sources, len(c.Sources) > 0); err != nil {
		return alertRecord{}, fmt.Errorf("encode source summaries for %s: %w", c.ID, err)
	}

	return rec, nil
}

func fromRecord(rec alertRecord) (domain.Alert, error) {
	a := domain.Alert{
		ID:                  rec.ID,
		SourceID:            rec.SourceID,
		SourceType:          rec.SourceType,
		CreatedAt:           rec.CreatedAt,
		UpdatedAt:           rec.UpdatedAt,
		EventType:           rec.EventType,
		Headline:            rec.Headline,
		Description:         rec.Description,
		StartTime:           rec.StartTime,
		EndTime:             rec.EndTime,
		ConsolidationStatus: domain.ConsolidationStatus(rec.ConsolidationStatus),
		ConsolidatedInto:    rec.ConsolidatedInto,
	}

	if len(rec.AIClassification) > 0 {
		a.AIClassification = &domain.AIClassification{}
		if err := json.Unmarshal(rec.AIClassification, a.AIClassification); err != nil {
			return domain.Alert{}, fmt.Errorf("decode classification for %s: %w", rec.ID, err)
		}
	}
	if len(rec.Location) > 0 {
		a.Location = &domain.Geometry{}
		if err := json.Unmarshal(rec.Location, a.Location); err != nil {
			return domain.Alert{}, fmt.Errorf("decode location for %s: %w", rec.ID, err)
		}
	}
	if len(rec.Geospatial) > 0 {
		a.Geospatial = &domain.GeospatialData{}
		if err := json.Unmarshal(rec.Geospatial, a.Geospatial); err != nil {
			return domain.Alert{}, fmt.Errorf("decode geospatial data for %s: %w", rec.ID, err)
		}
	}
	if len(rec.Parameters) > 0 {
		if err := json.Unmarshal(rec.Parameters, &a.Parameters); err != nil {
			return domain.Alert{}, fmt.Errorf("decode parameters for %s: %w", rec.ID, err)
		}
	}

	return a, nil
}

func fromConsolidatedRecord(rec alertRecord) (domain.ConsolidatedAlert, error) {
	a, err := fromRecord(rec)
	if err != nil {
		return domain.ConsolidatedAlert{}, err
	}

	c := domain.ConsolidatedAlert{
		Alert:               a,
		SourceCount:         rec.SourceCount,
		EnhancedDescription: rec.EnhancedDescription,
	}
	if len(rec.ConsolidatedFrom) > 0 {
		if err := json.Unmarshal(rec.ConsolidatedFrom, &c.ConsolidatedFrom); err != nil {
			return domain.ConsolidatedAlert{}, fmt.Errorf("decode member ids for %s: %w", rec.ID, err)
		}
	}
	if len(rec.Sources) > 0 {
		if err := json.Unmarshal(rec.Sources, &c.Sources); err != nil {
			return domain.ConsolidatedAlert{}, fmt.Errorf("decode source summaries for %s: %w", rec.ID, err)
		}
	}
	return c, nil
}

// marshalJSON encodes v when present is true, otherwise returns a null column.
func marshalJSON(v any, present bool) (datatypes.JSON, error) {
	if !present {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(data), nil
}
