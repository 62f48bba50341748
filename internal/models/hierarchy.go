package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Hierarchy link statuses. Only an "active" link authorizes an NGO to verify
// a community's submissions.
const (
	LinkActive     = "active"
	LinkPending    = "pending"
	LinkSuspended  = "suspended"
	LinkTerminated = "terminated"
)

// HierarchyLink associates an NGO identity with a community. Unique on the
// (ngo_address, community_wallet) pair.
type HierarchyLink struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	NGOAddress      string    `gorm:"column:ngo_address;not null;uniqueIndex:idx_links_ngo_community" json:"ngo_address"`
	CommunityWallet string    `gorm:"column:community_wallet;not null;uniqueIndex:idx_links_ngo_community" json:"community_wallet"`
	Status          string    `gorm:"column:status;type:varchar(16);not null;default:pending" json:"status"`
	CanVerifyData   bool      `gorm:"column:can_verify_data;not null;default:true" json:"can_verify_data"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func (HierarchyLink) TableName() string {
	return "hierarchy_links"
}

func (l *HierarchyLink) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
