package audit

import (
	"encoding/json"

	"bluecarbon-backend/internal/models"

	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Entry describes one state-changing action.
type Entry struct {
	Actor        string
	Action       string
	ProjectCode  string
	BeforeStatus string
	AfterStatus  string
	Signature    string
	Method       string
	Details      map[string]interface{}
}

// Record appends an audit log entry. When called with a transaction handle the
// entry is co-written with the state change: if the append fails the whole
// transaction rolls back, so a transition is never durable without its audit
// trail.
func Record(db *gorm.DB, e Entry) error {
	row := models.AuditLog{
		Actor:        e.Actor,
		Action:       e.Action,
		ProjectCode:  e.ProjectCode,
		BeforeStatus: e.BeforeStatus,
		AfterStatus:  e.AfterStatus,
		Signature:    e.Signature,
		Method:       e.Method,
	}
	if e.Details != nil {
		b, err := json.Marshal(e.Details)
		if err != nil {
			return err
		}
		row.Details = datatypes.JSON(b)
	}
	if err := db.Create(&row).Error; err != nil {
		log.Error().Err(err).Str("action", e.Action).Str("actor", e.Actor).Msg("audit log write failed")
		return err
	}
	return nil
}

// History returns the audit trail for a project, oldest first. The secondary
// id ordering keeps reads byte-identical between calls.
func History(db *gorm.DB, projectCode string) ([]models.AuditLog, error) {
	var rows []models.AuditLog
	err := db.Where("project_code = ?", projectCode).
		Order("\"createdAt\" ASC, id ASC").
		Find(&rows).Error
	return rows, err
}
