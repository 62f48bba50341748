// Package monitor ingests NDVI observations, maintains per-project health
// snapshots and raises alerts on significant vegetation change.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"bluecarbon-backend/internal/metrics"
	"bluecarbon-backend/internal/models"
	"bluecarbon-backend/internal/pkg/apperrors"
	"bluecarbon-backend/internal/pkg/ethsig"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Change thresholds between consecutive scans. Degradation is the louder
// signal on purpose: a mangrove dying back matters more than one greening up.
const (
	degradationDelta = -0.10
	improvementDelta = 0.15
)

// Service owns scan ingestion and alert lifecycle.
type Service struct {
	DB *gorm.DB
}

// IngestResult is what one scan produces: the stored observation and the
// alert it raised, if any.
type IngestResult struct {
	Scan  models.NDVIScan `json:"scan"`
	Alert *models.Alert   `json:"alert,omitempty"`
}

// Ingest records one NDVI observation for a project. The project snapshot
// follows the newest scan by date; a scan backfilled with an older date never
// regresses the snapshot. Alerts compare against the immediately preceding
// scan, so a project's first scan can never alert.
func (s *Service) Ingest(ctx context.Context, projectCode string, ndvi float64, scanDate time.Time, source string) (*IngestResult, error) {
	if ndvi < -1 || ndvi > 1 {
		return nil, apperrors.InvalidArgument("NDVI must be within [-1, 1]")
	}
	if scanDate.IsZero() {
		scanDate = time.Now()
	}
	if source == "" {
		source = "satellite"
	}

	var project models.Project
	if err := s.DB.WithContext(ctx).Where("code = ?", projectCode).First(&project).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NotFound("Project not found")
		}
		return nil, err
	}

	scan := models.NDVIScan{
		ProjectID:    project.ID,
		ScanDate:     scanDate,
		NDVIValue:    ndvi,
		Source:       source,
		HealthStatus: models.HealthStatusFor(ndvi),
	}
	var alert *models.Alert

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Writing the project row first holds its row lock for the rest of the
		// transaction, so concurrent ingests for one project serialize and the
		// predecessor lookup below stays stable.
		if err := tx.Model(&models.Project{}).
			Where("id = ?", project.ID).
			Update("updatedAt", time.Now()).Error; err != nil {
			return err
		}

		var prev models.NDVIScan
		prevErr := tx.Where("project_id = ?", project.ID).
			Order("scan_date DESC, \"createdAt\" DESC").
			First(&prev).Error
		if prevErr != nil && prevErr != gorm.ErrRecordNotFound {
			return prevErr
		}
		hasPrev := prevErr == nil

		if err := tx.Create(&scan).Error; err != nil {
			return err
		}

		if !hasPrev || !scanDate.Before(prev.ScanDate) {
			if err := tx.Model(&models.Project{}).
				Where("id = ?", project.ID).
				Updates(map[string]interface{}{
					"ndvi_value":    ndvi,
					"health_status": scan.HealthStatus,
				}).Error; err != nil {
				return err
			}
		}

		if hasPrev {
			a, err := buildAlert(project, prev, scan)
			if err != nil {
				return err
			}
			if a != nil {
				if err := tx.Create(a).Error; err != nil {
					return err
				}
				alert = a
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.NDVIScansTotal.Inc()
	if alert != nil {
		metrics.AlertsEmittedTotal.WithLabelValues(alert.Type).Inc()
		log.Warn().
			Str("code", project.Code).
			Str("type", alert.Type).
			Str("severity", alert.Severity).
			Msg("ndvi alert emitted")
	}
	return &IngestResult{Scan: scan, Alert: alert}, nil
}

// buildAlert compares consecutive scans and returns the alert the delta
// demands, or nil when the change is within tolerance.
func buildAlert(project models.Project, prev, cur models.NDVIScan) (*models.Alert, error) {
	delta := cur.NDVIValue - prev.NDVIValue

	var alertType, severity, message string
	switch {
	case delta <= degradationDelta:
		alertType = models.AlertNDVIDegradation
		severity = models.SeverityHigh
		message = fmt.Sprintf("NDVI for %s dropped from %.2f to %.2f", project.Code, prev.NDVIValue, cur.NDVIValue)
	case delta >= improvementDelta:
		alertType = models.AlertNDVIImprovement
		severity = models.SeverityLow
		message = fmt.Sprintf("NDVI for %s improved from %.2f to %.2f", project.Code, prev.NDVIValue, cur.NDVIValue)
	default:
		return nil, nil
	}

	details, err := json.Marshal(map[string]interface{}{
		"previous_ndvi": prev.NDVIValue,
		"current_ndvi":  cur.NDVIValue,
		"delta":         delta,
		"scan_date":     cur.ScanDate,
	})
	if err != nil {
		return nil, err
	}
	return &models.Alert{
		ProjectID: project.ID,
		Type:      alertType,
		Severity:  severity,
		Message:   message,
		Details:   datatypes.JSON(details),
	}, nil
}

// Scans returns a project's observation history, oldest first.
func (s *Service) Scans(ctx context.Context, projectCode string) ([]models.NDVIScan, error) {
	var project models.Project
	if err := s.DB.WithContext(ctx).Where("code = ?", projectCode).First(&project).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NotFound("Project not found")
		}
		return nil, err
	}
	var scans []models.NDVIScan
	err := s.DB.WithContext(ctx).
		Where("project_id = ?", project.ID).
		Order("scan_date ASC, \"createdAt\" ASC").
		Find(&scans).Error
	return scans, err
}

// UnresolvedAlerts lists open alerts, newest first. projectCode narrows to one
// project when non-empty.
func (s *Service) UnresolvedAlerts(ctx context.Context, projectCode string) ([]models.Alert, error) {
	q := s.DB.WithContext(ctx).Where("is_resolved = ?", false)
	if projectCode != "" {
		var project models.Project
		if err := s.DB.WithContext(ctx).Where("code = ?", projectCode).First(&project).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, apperrors.NotFound("Project not found")
			}
			return nil, err
		}
		q = q.Where("project_id = ?", project.ID)
	}
	var alerts []models.Alert
	err := q.Order("\"createdAt\" DESC, id DESC").Find(&alerts).Error
	return alerts, err
}

// ResolveAlert marks an alert handled. Communities cannot resolve alerts;
// resolving twice is a conflict, not a silent no-op.
func (s *Service) ResolveAlert(ctx context.Context, alertID uuid.UUID, actorAddress, actorRole string) (*models.Alert, error) {
	if actorRole == models.RoleCommunity {
		return nil, apperrors.Forbidden("Communities cannot resolve alerts")
	}

	var alert models.Alert
	if err := s.DB.WithContext(ctx).Where("id = ?", alertID).First(&alert).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NotFound("Alert not found")
		}
		return nil, err
	}
	if alert.IsResolved {
		return nil, apperrors.Conflict("Alert is already resolved")
	}

	now := time.Now()
	addr := ethsig.Normalize(actorAddress)
	res := s.DB.WithContext(ctx).Model(&models.Alert{}).
		Where("id = ? AND is_resolved = ?", alertID, false).
		Updates(map[string]interface{}{
			"is_resolved": true,
			"resolved_at": now,
			"resolved_by": addr,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.Conflict("Alert is already resolved")
	}

	alert.IsResolved = true
	alert.ResolvedAt = &now
	alert.ResolvedBy = &addr
	return &alert, nil
}
