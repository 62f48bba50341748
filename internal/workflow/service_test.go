package workflow

import (
	"context"
	"encoding/hex"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"bluecarbon-backend/internal/auth"
	"bluecarbon-backend/internal/models"
	"bluecarbon-backend/internal/pkg/apperrors"
	"bluecarbon-backend/internal/pkg/ethsig"
)

func workflowDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Identity{},
		&models.Project{},
		&models.Verification{},
		&models.HierarchyLink{},
		&models.AuditLog{},
	))
	return db
}

func newService(db *gorm.DB) *Service {
	return &Service{
		DB:   db,
		Auth: &auth.Service{DB: db, Tokens: &auth.TokenIssuer{Secret: []byte("test-secret"), TTL: time.Hour}},
	}
}

// newWallet returns a fresh address and a personal_sign-style signer for it.
func newWallet(t *testing.T) (string, func(string) string) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	addr := strings.ToLower(crypto.PubkeyToAddress(key.PublicKey).Hex())
	sign := func(msg string) string {
		sig, err := crypto.Sign(ethsig.HashMessage(msg), key)
		require.NoError(t, err)
		sig[crypto.RecoveryIDOffset] += 27
		return "0x" + hex.EncodeToString(sig)
	}
	return addr, sign
}

func seedIdentity(t *testing.T, db *gorm.DB, address, role, region string) {
	t.Helper()
	require.NoError(t, db.Create(&models.Identity{
		Address: address,
		Role:    role,
		Region:  region,
		Nonce:   "seed",
	}).Error)
}

func seedLink(t *testing.T, db *gorm.DB, ngo, community string) {
	t.Helper()
	require.NoError(t, db.Create(&models.HierarchyLink{
		NGOAddress:      ngo,
		CommunityWallet: community,
		Status:          models.LinkActive,
		CanVerifyData:   true,
	}).Error)
}

func submitProject(t *testing.T, svc *Service, community string) *models.Project {
	t.Helper()
	project, err := svc.Submit(context.Background(), community, SubmitInput{
		Name:          "Sundarbans mangrove belt",
		Region:        "Sundarbans",
		State:         "West Bengal",
		AreaHa:        12.5,
		CarbonCredits: 84,
		CommunityName: "Gosaba Gram Panchayat",
	})
	require.NoError(t, err)
	return project
}

func TestSubmit_Community(t *testing.T) {
	db := workflowDB(t)
	svc := newService(db)
	community, _ := newWallet(t)
	seedIdentity(t, db, community, models.RoleCommunity, "")

	project := submitProject(t, svc, community)

	assert.Equal(t, models.StatusSubmitted, project.Status)
	assert.True(t, strings.HasPrefix(project.Code, "BC-"))
	// Wallet defaults to the submitting community.
	assert.Equal(t, community, project.CommunityWallet)

	trail, err := svc.History(context.Background(), project.Code)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, "submit", trail[0].Action)
}

func TestSubmit_Validation(t *testing.T) {
	db := workflowDB(t)
	svc := newService(db)
	ctx := context.Background()

	community, _ := newWallet(t)
	other, _ := newWallet(t)
	ngo, _ := newWallet(t)
	seedIdentity(t, db, community, models.RoleCommunity, "")
	seedIdentity(t, db, ngo, models.RoleNGO, "")

	_, err := svc.Submit(ctx, community, SubmitInput{Region: "X", CommunityName: "Y", AreaHa: 1})
	assert.Equal(t, apperrors.KindInvalidArgument, apperrors.KindOf(err))

	_, err = svc.Submit(ctx, community, SubmitInput{Name: "X", Region: "Y", CommunityName: "Z", AreaHa: 0})
	assert.Equal(t, apperrors.KindInvalidArgument, apperrors.KindOf(err))

	// Negative credits would carry through to the terminal approval default.
	_, err = svc.Submit(ctx, community, SubmitInput{
		Name: "X", Region: "Y", CommunityName: "Z", AreaHa: 1, CarbonCredits: -500,
	})
	assert.Equal(t, apperrors.KindInvalidArgument, apperrors.KindOf(err))

	// A community cannot submit for someone else's wallet.
	_, err = svc.Submit(ctx, community, SubmitInput{
		Name: "X", Region: "Y", CommunityName: "Z", AreaHa: 1, CommunityWallet: other,
	})
	assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))

	// NGOs do not submit projects.
	_, err = svc.Submit(ctx, ngo, SubmitInput{Name: "X", Region: "Y", CommunityName: "Z", AreaHa: 1})
	assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))
}

func TestPipeline_FullApproval(t *testing.T) {
	db := workflowDB(t)
	svc := newService(db)
	ctx := context.Background()

	community, _ := newWallet(t)
	ngo, _ := newWallet(t)
	panchayat, _ := newWallet(t)
	admin, adminSign := newWallet(t)
	seedIdentity(t, db, community, models.RoleCommunity, "")
	seedIdentity(t, db, ngo, models.RoleNGO, "")
	seedIdentity(t, db, panchayat, models.RolePanchayat, "Sundarbans")
	seedIdentity(t, db, admin, models.RoleAdmin, "")
	seedLink(t, db, ngo, community)

	project := submitProject(t, svc, community)

	project, err := svc.Review(ctx, project.Code, Decision{
		Actor: ngo, Decision: models.DecisionApproved, Notes: "field visit done",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusNGOVerified, project.Status)

	project, err = svc.Review(ctx, project.Code, Decision{
		Actor: panchayat, Decision: models.DecisionApproved,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPanchayatReviewed, project.Status)

	final := 120.0
	msg := "Approve project " + project.Code
	project, err = svc.Approve(ctx, project.Code, Decision{
		Actor:              admin,
		Message:            msg,
		Signature:          adminSign(msg),
		FinalCarbonCredits: &final,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusNCCRApproved, project.Status)
	require.NotNil(t, project.ApprovedBy)
	assert.Equal(t, admin, *project.ApprovedBy)
	require.NotNil(t, project.FinalCarbonCredits)
	assert.Equal(t, 120.0, *project.FinalCarbonCredits)
	assert.NotNil(t, project.ApprovalDate)

	detail, err := svc.Get(ctx, project.Code)
	require.NoError(t, err)
	require.Len(t, detail.Verifications, 3)
	assert.Equal(t, models.StageNGO, detail.Verifications[0].Stage)
	assert.Equal(t, models.StageNCCR, detail.Verifications[2].Stage)

	trail, err := svc.History(ctx, project.Code)
	require.NoError(t, err)
	require.Len(t, trail, 4) // submit + three transitions

	// Unsigned stage reviews record no method; the signed terminal approval
	// records wallet-signature.
	assert.Empty(t, trail[1].Method)
	assert.Empty(t, trail[2].Method)
	assert.Equal(t, models.MethodWalletSignature, trail[3].Method)
	assert.NotEmpty(t, trail[3].Signature)

	// Terminal: nothing more is accepted.
	_, err = svc.Review(ctx, project.Code, Decision{Actor: ngo, Decision: models.DecisionApproved})
	assert.Equal(t, apperrors.KindInvalidTransition, apperrors.KindOf(err))
	_, err = svc.Reject(ctx, project.Code, Decision{Actor: admin, Reason: "late"})
	assert.Equal(t, apperrors.KindInvalidTransition, apperrors.KindOf(err))
}

func TestReview_StageOrderEnforced(t *testing.T) {
	db := workflowDB(t)
	svc := newService(db)
	ctx := context.Background()

	community, _ := newWallet(t)
	panchayat, _ := newWallet(t)
	seedIdentity(t, db, community, models.RoleCommunity, "")
	seedIdentity(t, db, panchayat, models.RolePanchayat, "Sundarbans")

	project := submitProject(t, svc, community)

	// The pending stage is NGO; a panchayat cannot jump the queue.
	_, err := svc.Review(ctx, project.Code, Decision{Actor: panchayat, Decision: models.DecisionApproved})
	assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))
}

func TestApprove_Guards(t *testing.T) {
	db := workflowDB(t)
	svc := newService(db)
	ctx := context.Background()

	community, _ := newWallet(t)
	admin, adminSign := newWallet(t)
	intruder, intruderSign := newWallet(t)
	seedIdentity(t, db, community, models.RoleCommunity, "")
	seedIdentity(t, db, admin, models.RoleAdmin, "")
	seedIdentity(t, db, intruder, models.RoleAdmin, "")

	project := submitProject(t, svc, community)

	// Not yet panchayat-reviewed.
	msg := "Approve project " + project.Code
	_, err := svc.Approve(ctx, project.Code, Decision{Actor: admin, Message: msg, Signature: adminSign(msg)})
	assert.Equal(t, apperrors.KindInvalidTransition, apperrors.KindOf(err))

	// Move it to the terminal gate.
	require.NoError(t, db.Model(&models.Project{}).
		Where("id = ?", project.ID).
		Update("status", models.StatusPanchayatReviewed).Error)

	// Missing operation signature.
	_, err = svc.Approve(ctx, project.Code, Decision{Actor: admin})
	assert.Equal(t, apperrors.KindInvalidArgument, apperrors.KindOf(err))

	// Signature from a different wallet than the session.
	_, err = svc.Approve(ctx, project.Code, Decision{Actor: admin, Message: msg, Signature: intruderSign(msg)})
	assert.Equal(t, apperrors.KindUnauthorized, apperrors.KindOf(err))

	// Negative override.
	bad := -1.0
	_, err = svc.Approve(ctx, project.Code, Decision{
		Actor: admin, Message: msg, Signature: adminSign(msg), FinalCarbonCredits: &bad,
	})
	assert.Equal(t, apperrors.KindInvalidArgument, apperrors.KindOf(err))
}

func TestReject_FromFirstStage(t *testing.T) {
	db := workflowDB(t)
	svc := newService(db)
	ctx := context.Background()

	community, _ := newWallet(t)
	ngo, _ := newWallet(t)
	seedIdentity(t, db, community, models.RoleCommunity, "")
	seedIdentity(t, db, ngo, models.RoleNGO, "")
	seedLink(t, db, ngo, community)

	project := submitProject(t, svc, community)

	// Reason is mandatory.
	_, err := svc.Reject(ctx, project.Code, Decision{Actor: ngo})
	assert.Equal(t, apperrors.KindInvalidArgument, apperrors.KindOf(err))

	project, err = svc.Reject(ctx, project.Code, Decision{Actor: ngo, Reason: "boundary data falsified"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, project.Status)
	require.NotNil(t, project.RejectedBy)
	assert.Equal(t, ngo, *project.RejectedBy)
	require.NotNil(t, project.RejectionReason)
	assert.Equal(t, "boundary data falsified", *project.RejectionReason)
}

func TestTransition_ConcurrentConflict(t *testing.T) {
	db := workflowDB(t)
	svc := newService(db)
	ctx := context.Background()

	community, _ := newWallet(t)
	ngo, _ := newWallet(t)
	seedIdentity(t, db, community, models.RoleCommunity, "")
	seedIdentity(t, db, ngo, models.RoleNGO, "")
	seedLink(t, db, ngo, community)

	project := submitProject(t, svc, community)

	// Another reviewer wins the race after this one loaded the project.
	var stale models.Project
	require.NoError(t, db.Where("id = ?", project.ID).First(&stale).Error)
	require.NoError(t, db.Model(&models.Project{}).
		Where("id = ?", project.ID).
		Update("status", models.StatusRejected).Error)

	var actor models.Identity
	require.NoError(t, db.Where("address = ?", ngo).First(&actor).Error)
	_, err := svc.transition(ctx, &actor, &stale, models.StageNGO, models.StatusNGOVerified,
		Decision{Actor: ngo, Decision: models.DecisionApproved}, nil)
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))
}

func TestListAndGet(t *testing.T) {
	db := workflowDB(t)
	svc := newService(db)
	ctx := context.Background()

	community, _ := newWallet(t)
	seedIdentity(t, db, community, models.RoleCommunity, "")

	first := submitProject(t, svc, community)
	second, err := svc.Submit(ctx, community, SubmitInput{
		Name: "Pichavaram restoration", Region: "Pichavaram",
		AreaHa: 3, CommunityName: "Killai",
	})
	require.NoError(t, err)

	all, total, err := svc.List(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, all, 2)

	byRegion, total, err := svc.List(ctx, ListFilter{Region: "pichavaram"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, byRegion, 1)
	assert.Equal(t, second.Code, byRegion[0].Code)

	byWallet, _, err := svc.List(ctx, ListFilter{CommunityWallet: community})
	require.NoError(t, err)
	assert.Len(t, byWallet, 2)

	detail, err := svc.Get(ctx, first.Code)
	require.NoError(t, err)
	assert.Equal(t, first.Code, detail.Project.Code)
	assert.Empty(t, detail.Verifications)

	_, err = svc.Get(ctx, "BC-MISSING")
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}
