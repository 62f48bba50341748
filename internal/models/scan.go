package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Vegetation health classes derived from NDVI.
const (
	HealthHealthy  = "healthy"
	HealthModerate = "moderate"
	HealthPoor     = "poor"
	HealthCritical = "critical"
)

// HealthStatusFor classifies an NDVI value. The thresholds are fixed; the
// class is always recomputed from the value, never stored independently.
func HealthStatusFor(ndvi float64) string {
	switch {
	case ndvi >= 0.6:
		return HealthHealthy
	case ndvi >= 0.4:
		return HealthModerate
	case ndvi >= 0.2:
		return HealthPoor
	default:
		return HealthCritical
	}
}

// NDVIScan is one immutable observation for a project.
type NDVIScan struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ProjectID    uuid.UUID `gorm:"column:project_id;type:uuid;not null;index" json:"project_id"`
	ScanDate     time.Time `gorm:"column:scan_date;not null;index" json:"scan_date"`
	NDVIValue    float64   `gorm:"column:ndvi_value;not null" json:"ndvi_value"`
	Source       string    `gorm:"column:source;not null;default:satellite" json:"source"`
	HealthStatus string    `gorm:"column:health_status;not null" json:"health_status"`
	CreatedAt    time.Time `gorm:"column:createdAt" json:"createdAt"`
}

func (NDVIScan) TableName() string {
	return "ndvi_scans"
}

func (s *NDVIScan) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
