package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Roles recognised by the registry. Communities submit projects, NGOs and
// panchayats verify them, admins act for the national authority (NCCR).
const (
	RoleCommunity  = "community"
	RoleNGO        = "ngo"
	RolePanchayat  = "panchayat"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super-admin"
)

// Identity is a wallet-backed account. Created lazily on the first
// authentication challenge for an address.
type Identity struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Address   string         `gorm:"column:address;not null;uniqueIndex" json:"address"`
	Role      string         `gorm:"column:role;not null;default:community" json:"role"`
	Region    string         `gorm:"column:region" json:"region"`
	Nonce     string         `gorm:"column:nonce;not null" json:"-"`
	LastLogin *time.Time     `gorm:"column:last_login" json:"last_login"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Identity) TableName() string {
	return "identities"
}

func (i *Identity) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// IsAdmin reports whether the identity may act for the NCCR.
func (i *Identity) IsAdmin() bool {
	return i.Role == RoleAdmin || i.Role == RoleSuperAdmin
}
