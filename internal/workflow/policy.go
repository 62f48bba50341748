// Package workflow implements the project verification pipeline: a strict
// forward state machine (submitted, ngo-verified, panchayat-reviewed,
// nccr-approved) with rejection reachable from any non-terminal status.
package workflow

import (
	"strings"

	"bluecarbon-backend/internal/models"
	"bluecarbon-backend/internal/pkg/apperrors"

	"gorm.io/gorm"
)

// stageForStatus gives the one stage that may act on a project in each
// non-terminal status.
var stageForStatus = map[string]string{
	models.StatusSubmitted:         models.StageNGO,
	models.StatusNGOVerified:       models.StagePanchayat,
	models.StatusPanchayatReviewed: models.StageNCCR,
}

// statusAfterStage gives the status a project advances to when a stage
// approves it.
var statusAfterStage = map[string]string{
	models.StageNGO:       models.StatusNGOVerified,
	models.StagePanchayat: models.StatusPanchayatReviewed,
	models.StageNCCR:      models.StatusNCCRApproved,
}

// StageFor returns the pending verification stage for a project, or an
// invalid-transition error when the project is terminal.
func StageFor(project *models.Project) (string, error) {
	stage, ok := stageForStatus[project.Status]
	if !ok {
		return "", apperrors.Ef(apperrors.KindInvalidTransition,
			"Project %s is in terminal status %q and accepts no further decisions", project.Code, project.Status)
	}
	return stage, nil
}

// Authorize decides whether actor may record a decision for the given stage of
// the given project. It checks role, hierarchy and jurisdiction; it does not
// check the project's current status (the caller resolves the stage first).
func Authorize(db *gorm.DB, actor *models.Identity, project *models.Project, stage string) error {
	switch stage {
	case models.StageNGO:
		if actor.Role != models.RoleNGO {
			return apperrors.Forbidden("Stage one verification requires an NGO identity")
		}
		var link models.HierarchyLink
		err := db.Where("ngo_address = ? AND community_wallet = ?", actor.Address, project.CommunityWallet).
			First(&link).Error
		if err == gorm.ErrRecordNotFound {
			return apperrors.Forbidden("NGO has no hierarchy link with the submitting community")
		}
		if err != nil {
			return err
		}
		if link.Status != models.LinkActive {
			return apperrors.Ef(apperrors.KindForbidden, "Hierarchy link is %s, not active", link.Status)
		}
		if !link.CanVerifyData {
			return apperrors.Forbidden("Hierarchy link does not grant data verification")
		}
		return nil

	case models.StagePanchayat:
		if actor.Role != models.RolePanchayat {
			return apperrors.Forbidden("Stage two review requires a panchayat identity")
		}
		if actor.Region == "" || !strings.EqualFold(actor.Region, project.Region) {
			return apperrors.Forbidden("Panchayat jurisdiction does not cover the project region")
		}
		return nil

	case models.StageNCCR:
		if !actor.IsAdmin() {
			return apperrors.Forbidden("Final approval is restricted to NCCR administrators")
		}
		return nil
	}
	return apperrors.Ef(apperrors.KindInvalidArgument, "Unknown verification stage: %s", stage)
}
