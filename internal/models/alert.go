package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Alert types emitted by the NDVI monitor.
const (
	AlertNDVIDegradation = "ndvi_degradation"
	AlertNDVIImprovement = "ndvi_improvement"
)

// Alert severities.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// Alert is a derived event. Immutable except for resolution.
type Alert struct {
	ID         uuid.UUID      `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ProjectID  uuid.UUID      `gorm:"column:project_id;type:uuid;not null;index" json:"project_id"`
	Type       string         `gorm:"column:type;not null" json:"type"`
	Severity   string         `gorm:"column:severity;type:varchar(16);not null" json:"severity"`
	Message    string         `gorm:"column:message;not null" json:"message"`
	Details    datatypes.JSON `gorm:"column:details;type:jsonb" json:"details"`
	IsResolved bool           `gorm:"column:is_resolved;not null;default:false" json:"is_resolved"`
	ResolvedAt *time.Time     `gorm:"column:resolved_at" json:"resolved_at,omitempty"`
	ResolvedBy *string        `gorm:"column:resolved_by" json:"resolved_by,omitempty"`
	CreatedAt  time.Time      `gorm:"column:createdAt" json:"createdAt"`
}

func (Alert) TableName() string {
	return "alerts"
}

func (a *Alert) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
