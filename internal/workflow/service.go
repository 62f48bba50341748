package workflow

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"regexp"
	"strings"
	"time"

	"bluecarbon-backend/internal/audit"
	"bluecarbon-backend/internal/auth"
	"bluecarbon-backend/internal/metrics"
	"bluecarbon-backend/internal/models"
	"bluecarbon-backend/internal/pkg/apperrors"
	"bluecarbon-backend/internal/pkg/ethsig"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var walletPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// Service owns the verification pipeline. All transitions go through a
// conditional status update inside a transaction, so two concurrent reviewers
// cannot both advance the same project.
type Service struct {
	DB   *gorm.DB
	Auth *auth.Service
}

// SubmitInput is a new project submission.
type SubmitInput struct {
	Name            string  `json:"name"`
	Region          string  `json:"region"`
	State           string  `json:"state"`
	Latitude        float64 `json:"latitude"`
	Longitude       float64 `json:"longitude"`
	AreaHa          float64 `json:"area_ha"`
	CarbonCredits   float64 `json:"carbon_credits"`
	CommunityName   string  `json:"community_name"`
	CommunityWallet string  `json:"community_wallet"`
}

// Decision is one reviewer action against a project.
type Decision struct {
	Actor     string // session wallet address
	Decision  string // approved | rejected
	Notes     string
	Reason    string // required when rejecting
	Signature string // operation signature (hex)
	Message   string // message the operation signature covers
	// FinalCarbonCredits overrides the computed figure at terminal approval.
	FinalCarbonCredits *float64
}

// ListFilter narrows List output. Zero values mean "any".
type ListFilter struct {
	Status          string
	Region          string
	CommunityWallet string
	NDVIMin         *float64
	NDVIMax         *float64
	Limit           int
	Offset          int
}

// ProjectDetail is a project with its verification trail.
type ProjectDetail struct {
	Project       models.Project        `json:"project"`
	Verifications []models.Verification `json:"verifications"`
}

func newProjectCode() (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "BC-" + strings.ToUpper(hex.EncodeToString(buf)), nil
}

// Submit registers a new project in status submitted. Communities submit for
// themselves; admins may submit on a community's behalf.
func (s *Service) Submit(ctx context.Context, actorAddress string, in SubmitInput) (*models.Project, error) {
	actor, err := s.actor(ctx, actorAddress)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleCommunity && !actor.IsAdmin() {
		return nil, apperrors.Forbidden("Only communities or administrators may submit projects")
	}

	if in.Name == "" || in.Region == "" || in.CommunityName == "" {
		return nil, apperrors.InvalidArgument("name, region and community_name are required")
	}
	if in.AreaHa <= 0 {
		return nil, apperrors.InvalidArgument("area_ha must be a positive number of hectares")
	}
	if in.CarbonCredits < 0 {
		return nil, apperrors.InvalidArgument("carbon_credits cannot be negative")
	}
	wallet := ethsig.Normalize(in.CommunityWallet)
	if wallet == "" {
		wallet = actor.Address
	}
	if !walletPattern.MatchString(wallet) {
		return nil, apperrors.InvalidArgument("community_wallet is not a valid address")
	}
	if actor.Role == models.RoleCommunity && wallet != actor.Address {
		return nil, apperrors.Forbidden("Communities may only submit projects for their own wallet")
	}

	code, err := newProjectCode()
	if err != nil {
		return nil, err
	}
	project := models.Project{
		Code:            code,
		Name:            in.Name,
		Status:          models.StatusSubmitted,
		Region:          in.Region,
		State:           in.State,
		Latitude:        in.Latitude,
		Longitude:       in.Longitude,
		AreaHa:          in.AreaHa,
		CarbonCredits:   in.CarbonCredits,
		CommunityName:   in.CommunityName,
		CommunityWallet: wallet,
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&project).Error; err != nil {
			return err
		}
		return audit.Record(tx, audit.Entry{
			Actor:       actor.Address,
			Action:      "submit",
			ProjectCode: project.Code,
			AfterStatus: models.StatusSubmitted,
		})
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("code", project.Code).Str("region", project.Region).Msg("project submitted")
	return &project, nil
}

// Review records a stage decision (NGO or panchayat). An approved decision
// advances the status; a rejected one terminates the project with a reason.
// Terminal NCCR decisions go through Approve and Reject instead.
func (s *Service) Review(ctx context.Context, projectCode string, d Decision) (*models.Project, error) {
	actor, project, stage, err := s.resolve(ctx, d.Actor, projectCode)
	if err != nil {
		return nil, err
	}
	if stage == models.StageNCCR {
		return nil, apperrors.InvalidTransition("Project awaits terminal NCCR approval, not a stage review")
	}
	if err := Authorize(s.DB.WithContext(ctx), actor, project, stage); err != nil {
		return nil, err
	}

	switch d.Decision {
	case models.DecisionApproved:
		return s.transition(ctx, actor, project, stage, statusAfterStage[stage], d, nil)
	case models.DecisionRejected:
		return s.reject(ctx, actor, project, stage, d)
	default:
		return nil, apperrors.InvalidArgument("decision must be approved or rejected")
	}
}

// Approve is the terminal NCCR approval. It demands a fresh operation
// signature from the session wallet: a stolen session token alone is not
// enough to mint credits.
func (s *Service) Approve(ctx context.Context, projectCode string, d Decision) (*models.Project, error) {
	actor, project, stage, err := s.resolve(ctx, d.Actor, projectCode)
	if err != nil {
		return nil, err
	}
	if stage != models.StageNCCR {
		return nil, apperrors.Ef(apperrors.KindInvalidTransition,
			"Project %s is %s; terminal approval requires panchayat-reviewed", project.Code, project.Status)
	}
	if err := Authorize(s.DB.WithContext(ctx), actor, project, stage); err != nil {
		return nil, err
	}
	if err := s.Auth.VerifyOperationSignature(actor.Address, d.Message, d.Signature); err != nil {
		return nil, err
	}

	credits := project.CarbonCredits
	if d.FinalCarbonCredits != nil {
		if *d.FinalCarbonCredits < 0 {
			return nil, apperrors.InvalidArgument("final_carbon_credits cannot be negative")
		}
		credits = *d.FinalCarbonCredits
	}
	now := time.Now()
	extra := map[string]interface{}{
		"approved_by":          actor.Address,
		"approval_date":        now,
		"final_carbon_credits": credits,
	}
	return s.transition(ctx, actor, project, stage, models.StatusNCCRApproved, d, extra)
}

// Reject terminates a project from any non-terminal status. The stage whose
// decision is pending is the one whose reviewer may reject; a reason is
// mandatory. Rejection at the NCCR stage needs an operation signature like
// approval does.
func (s *Service) Reject(ctx context.Context, projectCode string, d Decision) (*models.Project, error) {
	actor, project, stage, err := s.resolve(ctx, d.Actor, projectCode)
	if err != nil {
		return nil, err
	}
	if err := Authorize(s.DB.WithContext(ctx), actor, project, stage); err != nil {
		return nil, err
	}
	if stage == models.StageNCCR {
		if err := s.Auth.VerifyOperationSignature(actor.Address, d.Message, d.Signature); err != nil {
			return nil, err
		}
	}
	return s.reject(ctx, actor, project, stage, d)
}

func (s *Service) reject(ctx context.Context, actor *models.Identity, project *models.Project, stage string, d Decision) (*models.Project, error) {
	if strings.TrimSpace(d.Reason) == "" {
		return nil, apperrors.InvalidArgument("A rejection reason is required")
	}
	now := time.Now()
	extra := map[string]interface{}{
		"rejected_by":      actor.Address,
		"rejection_date":   now,
		"rejection_reason": d.Reason,
	}
	d.Decision = models.DecisionRejected
	return s.transition(ctx, actor, project, stage, models.StatusRejected, d, extra)
}

// transition performs the conditional status flip, writes the verification
// entry and the audit record in one transaction. A concurrent transition of
// the same project surfaces as a conflict, never as a double write.
func (s *Service) transition(ctx context.Context, actor *models.Identity, project *models.Project, stage, toStatus string, d Decision, extra map[string]interface{}) (*models.Project, error) {
	fromStatus := project.Status
	updates := map[string]interface{}{"status": toStatus}
	for k, v := range extra {
		updates[k] = v
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Project{}).
			Where("id = ? AND status = ?", project.ID, fromStatus).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.Conflict("Project status changed while the decision was being recorded")
		}

		verification := models.Verification{
			ProjectID: project.ID,
			Stage:     stage,
			Verifier:  actor.Address,
			Decision:  d.Decision,
			Signature: d.Signature,
			Notes:     d.Notes,
		}
		if err := tx.Create(&verification).Error; err != nil {
			return err
		}

		details := map[string]interface{}{"stage": stage}
		if d.Reason != "" {
			details["reason"] = d.Reason
		}
		// Stage reviews carry no signature; only signed actions record one
		// and its method.
		method := ""
		if d.Signature != "" {
			method = models.MethodWalletSignature
		}
		return audit.Record(tx, audit.Entry{
			Actor:        actor.Address,
			Action:       "transition",
			ProjectCode:  project.Code,
			BeforeStatus: fromStatus,
			AfterStatus:  toStatus,
			Signature:    d.Signature,
			Method:       method,
			Details:      details,
		})
	})
	if err != nil {
		return nil, err
	}

	metrics.ProjectTransitionsTotal.WithLabelValues(toStatus).Inc()
	log.Info().
		Str("code", project.Code).
		Str("from", fromStatus).
		Str("to", toStatus).
		Str("actor", actor.Address).
		Msg("project transition")

	var fresh models.Project
	if err := s.DB.WithContext(ctx).Where("id = ?", project.ID).First(&fresh).Error; err != nil {
		return nil, err
	}
	return &fresh, nil
}

// Get returns a project with its verification trail.
func (s *Service) Get(ctx context.Context, code string) (*ProjectDetail, error) {
	var project models.Project
	if err := s.DB.WithContext(ctx).Where("code = ?", code).First(&project).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NotFound("Project not found")
		}
		return nil, err
	}
	var verifications []models.Verification
	if err := s.DB.WithContext(ctx).
		Where("project_id = ?", project.ID).
		Order("\"createdAt\" ASC, id ASC").
		Find(&verifications).Error; err != nil {
		return nil, err
	}
	return &ProjectDetail{Project: project, Verifications: verifications}, nil
}

// List returns projects matching the filter, newest first, with a stable
// secondary ordering on id.
func (s *Service) List(ctx context.Context, f ListFilter) ([]models.Project, int64, error) {
	q := s.DB.WithContext(ctx).Model(&models.Project{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Region != "" {
		q = q.Where("LOWER(region) = LOWER(?)", f.Region)
	}
	if f.CommunityWallet != "" {
		q = q.Where("community_wallet = ?", ethsig.Normalize(f.CommunityWallet))
	}
	if f.NDVIMin != nil {
		q = q.Where("ndvi_value >= ?", *f.NDVIMin)
	}
	if f.NDVIMax != nil {
		q = q.Where("ndvi_value <= ?", *f.NDVIMax)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var projects []models.Project
	err := q.Order("\"createdAt\" DESC, id DESC").
		Limit(limit).Offset(f.Offset).
		Find(&projects).Error
	return projects, total, err
}

// History returns the full audit trail for a project, oldest first.
func (s *Service) History(ctx context.Context, code string) ([]models.AuditLog, error) {
	var project models.Project
	if err := s.DB.WithContext(ctx).Where("code = ?", code).First(&project).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NotFound("Project not found")
		}
		return nil, err
	}
	return audit.History(s.DB.WithContext(ctx), code)
}

// resolve loads the acting identity, the project and its pending stage.
func (s *Service) resolve(ctx context.Context, actorAddress, projectCode string) (*models.Identity, *models.Project, string, error) {
	actor, err := s.actor(ctx, actorAddress)
	if err != nil {
		return nil, nil, "", err
	}
	var project models.Project
	if err := s.DB.WithContext(ctx).Where("code = ?", projectCode).First(&project).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, "", apperrors.NotFound("Project not found")
		}
		return nil, nil, "", err
	}
	stage, err := StageFor(&project)
	if err != nil {
		return nil, nil, "", err
	}
	return actor, &project, stage, nil
}

func (s *Service) actor(ctx context.Context, address string) (*models.Identity, error) {
	var actor models.Identity
	if err := s.DB.WithContext(ctx).Where("address = ?", ethsig.Normalize(address)).First(&actor).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.Unauthorized("Session identity no longer exists")
		}
		return nil, err
	}
	return &actor, nil
}
