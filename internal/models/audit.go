package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Authentication methods recorded on audit entries.
const (
	MethodWalletSignature = "wallet-signature"
	MethodSharedSecret    = "shared-secret"
)

// AuditLog is append-only: one entry per state-changing action, immutable once
// written. It is the source of truth for who did what when.
type AuditLog struct {
	ID           uuid.UUID      `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Actor        string         `gorm:"column:actor;not null" json:"actor"`
	Action       string         `gorm:"column:action;not null;index" json:"action"`
	ProjectCode  string         `gorm:"column:project_code;index" json:"project_code"`
	BeforeStatus string         `gorm:"column:before_status" json:"before_status"`
	AfterStatus  string         `gorm:"column:after_status" json:"after_status"`
	Signature    string         `gorm:"column:signature" json:"signature"`
	Method       string         `gorm:"column:method" json:"method"`
	Details      datatypes.JSON `gorm:"column:details;type:jsonb" json:"details"`
	CreatedAt    time.Time      `gorm:"column:createdAt" json:"createdAt"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
