package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Project lifecycle statuses. Progression is strictly forward; "rejected" is
// reachable from any non-terminal status and is itself terminal.
const (
	StatusSubmitted         = "submitted"
	StatusNGOVerified       = "ngo-verified"
	StatusPanchayatReviewed = "panchayat-reviewed"
	StatusNCCRApproved      = "nccr-approved"
	StatusRejected          = "rejected"
)

// Verification stages, in the fixed order a project moves through them.
const (
	StageNGO       = "ngo"
	StagePanchayat = "panchayat"
	StageNCCR      = "nccr"
)

// Decisions recorded on a verification entry.
const (
	DecisionApproved = "approved"
	DecisionRejected = "rejected"
)

// Project is a blue-carbon restoration project. Projects are never deleted;
// rejection is a terminal status, not a removal.
type Project struct {
	ID     uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Code   string    `gorm:"column:code;not null;uniqueIndex" json:"code"`
	Name   string    `gorm:"column:name;not null" json:"name"`
	Status string    `gorm:"column:status;type:varchar(32);not null;default:submitted" json:"status"`

	Region    string  `gorm:"column:region;not null" json:"region"`
	State     string  `gorm:"column:state" json:"state"`
	Latitude  float64 `gorm:"column:latitude" json:"latitude"`
	Longitude float64 `gorm:"column:longitude" json:"longitude"`

	AreaHa float64 `gorm:"column:area_ha;not null" json:"area_ha"`

	// Snapshot caches, recomputed from the scan history. Never written directly
	// by callers.
	NDVIValue    *float64 `gorm:"column:ndvi_value" json:"ndvi_value"`
	HealthStatus string   `gorm:"column:health_status" json:"health_status"`

	CarbonCredits float64 `gorm:"column:carbon_credits;not null;default:0" json:"carbon_credits"`

	// Owning community; immutable once set.
	CommunityName   string `gorm:"column:community_name;not null" json:"community_name"`
	CommunityWallet string `gorm:"column:community_wallet;not null" json:"community_wallet"`

	// Terminal payloads; mutually exclusive, write-once.
	ApprovedBy         *string    `gorm:"column:approved_by" json:"approved_by,omitempty"`
	ApprovalDate       *time.Time `gorm:"column:approval_date" json:"approval_date,omitempty"`
	FinalCarbonCredits *float64   `gorm:"column:final_carbon_credits" json:"final_carbon_credits,omitempty"`
	RejectedBy         *string    `gorm:"column:rejected_by" json:"rejected_by,omitempty"`
	RejectionDate      *time.Time `gorm:"column:rejection_date" json:"rejection_date,omitempty"`
	RejectionReason    *string    `gorm:"column:rejection_reason" json:"rejection_reason,omitempty"`

	CreatedAt time.Time `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updatedAt" json:"updatedAt"`
}

func (Project) TableName() string {
	return "projects"
}

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Terminal reports whether no further transitions are possible.
func (p *Project) Terminal() bool {
	return p.Status == StatusNCCRApproved || p.Status == StatusRejected
}

// Verification is one append-only entry in a project's verification trail.
// The unique index on (project_id, stage) guarantees at most one entry per
// stage even under concurrent writers.
type Verification struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ProjectID uuid.UUID `gorm:"column:project_id;type:uuid;not null;uniqueIndex:idx_verifications_project_stage" json:"project_id"`
	Stage     string    `gorm:"column:stage;type:varchar(16);not null;uniqueIndex:idx_verifications_project_stage" json:"stage"`
	Verifier  string    `gorm:"column:verifier;not null" json:"verifier"`
	Decision  string    `gorm:"column:decision;type:varchar(16);not null" json:"decision"`
	Signature string    `gorm:"column:signature" json:"signature"`
	Notes     string    `gorm:"column:notes" json:"notes"`
	CreatedAt time.Time `gorm:"column:createdAt" json:"createdAt"`
}

func (Verification) TableName() string {
	return "verifications"
}

func (v *Verification) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}
