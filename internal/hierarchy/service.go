// Package hierarchy manages NGO-community links. An active link with data
// verification rights is what authorizes an NGO to act on a community's
// submissions.
package hierarchy

import (
	"context"
	"regexp"

	"bluecarbon-backend/internal/audit"
	"bluecarbon-backend/internal/models"
	"bluecarbon-backend/internal/pkg/apperrors"
	"bluecarbon-backend/internal/pkg/ethsig"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var walletPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// Service owns hierarchy link lifecycle.
type Service struct {
	DB *gorm.DB
}

// CreateInput is a new link request.
type CreateInput struct {
	NGOAddress      string `json:"ngo_address"`
	CommunityWallet string `json:"community_wallet"`
	CanVerifyData   *bool  `json:"can_verify_data"`
}

// UpdateInput changes a link's status or permission. Nil fields are left
// untouched.
type UpdateInput struct {
	Status        *string `json:"status"`
	CanVerifyData *bool   `json:"can_verify_data"`
}

// ListFilter narrows List output.
type ListFilter struct {
	NGOAddress      string
	CommunityWallet string
	Status          string
}

var validLinkStatuses = map[string]bool{
	models.LinkActive:     true,
	models.LinkPending:    true,
	models.LinkSuspended:  true,
	models.LinkTerminated: true,
}

// Create registers a link. Admins create links directly in active status;
// NGOs may request a link for themselves, which starts pending until an admin
// activates it.
func (s *Service) Create(ctx context.Context, actorAddress string, in CreateInput) (*models.HierarchyLink, error) {
	actor, err := s.actor(ctx, actorAddress)
	if err != nil {
		return nil, err
	}

	ngo := ethsig.Normalize(in.NGOAddress)
	community := ethsig.Normalize(in.CommunityWallet)
	if !walletPattern.MatchString(ngo) || !walletPattern.MatchString(community) {
		return nil, apperrors.InvalidArgument("ngo_address and community_wallet must be valid addresses")
	}

	status := models.LinkPending
	switch {
	case actor.IsAdmin():
		status = models.LinkActive
	case actor.Role == models.RoleNGO && actor.Address == ngo:
		// NGO requesting its own link.
	default:
		return nil, apperrors.Forbidden("Only administrators or the NGO itself may create a link")
	}

	var ngoIdentity models.Identity
	if err := s.DB.WithContext(ctx).Where("address = ?", ngo).First(&ngoIdentity).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NotFound("NGO identity not found")
		}
		return nil, err
	}
	if ngoIdentity.Role != models.RoleNGO {
		return nil, apperrors.InvalidArgument("ngo_address does not belong to an NGO identity")
	}

	var existing models.HierarchyLink
	err = s.DB.WithContext(ctx).
		Where("ngo_address = ? AND community_wallet = ?", ngo, community).
		First(&existing).Error
	if err == nil {
		return nil, apperrors.Conflict("A link between this NGO and community already exists")
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	canVerify := true
	if in.CanVerifyData != nil {
		canVerify = *in.CanVerifyData
	}
	link := models.HierarchyLink{
		NGOAddress:      ngo,
		CommunityWallet: community,
		Status:          status,
		CanVerifyData:   canVerify,
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&link).Error; err != nil {
			return err
		}
		return audit.Record(tx, audit.Entry{
			Actor:       actor.Address,
			Action:      "hierarchy-create",
			AfterStatus: status,
			Details: map[string]interface{}{
				"ngo_address":      ngo,
				"community_wallet": community,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// Update changes link status or verification permission. Admin only.
func (s *Service) Update(ctx context.Context, actorAddress string, linkID uuid.UUID, in UpdateInput) (*models.HierarchyLink, error) {
	actor, err := s.actor(ctx, actorAddress)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() {
		return nil, apperrors.Forbidden("Only administrators may modify hierarchy links")
	}
	if in.Status == nil && in.CanVerifyData == nil {
		return nil, apperrors.InvalidArgument("Nothing to update")
	}
	if in.Status != nil && !validLinkStatuses[*in.Status] {
		return nil, apperrors.Ef(apperrors.KindInvalidArgument, "Unknown link status: %s", *in.Status)
	}

	var link models.HierarchyLink
	if err := s.DB.WithContext(ctx).Where("id = ?", linkID).First(&link).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NotFound("Hierarchy link not found")
		}
		return nil, err
	}

	updates := map[string]interface{}{}
	before := link.Status
	if in.Status != nil {
		updates["status"] = *in.Status
	}
	if in.CanVerifyData != nil {
		updates["can_verify_data"] = *in.CanVerifyData
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&link).Updates(updates).Error; err != nil {
			return err
		}
		entry := audit.Entry{
			Actor:        actor.Address,
			Action:       "hierarchy-update",
			BeforeStatus: before,
			Details: map[string]interface{}{
				"link_id":          link.ID.String(),
				"ngo_address":      link.NGOAddress,
				"community_wallet": link.CommunityWallet,
			},
		}
		if in.Status != nil {
			entry.AfterStatus = *in.Status
		}
		return audit.Record(tx, entry)
	})
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// List returns links matching the filter, newest first.
func (s *Service) List(ctx context.Context, f ListFilter) ([]models.HierarchyLink, error) {
	q := s.DB.WithContext(ctx).Model(&models.HierarchyLink{})
	if f.NGOAddress != "" {
		q = q.Where("ngo_address = ?", ethsig.Normalize(f.NGOAddress))
	}
	if f.CommunityWallet != "" {
		q = q.Where("community_wallet = ?", ethsig.Normalize(f.CommunityWallet))
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	var links []models.HierarchyLink
	err := q.Order("created_at DESC, id DESC").Find(&links).Error
	return links, err
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
