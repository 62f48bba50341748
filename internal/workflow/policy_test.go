package workflow

import (
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"bluecarbon-backend/internal/models"
	"bluecarbon-backend/internal/pkg/apperrors"
)

func policyDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Identity{}, &models.HierarchyLink{}))
	return db
}

func TestStageFor(t *testing.T) {
	cases := map[string]string{
		models.StatusSubmitted:         models.StageNGO,
		models.StatusNGOVerified:       models.StagePanchayat,
		models.StatusPanchayatReviewed: models.StageNCCR,
	}
	for status, want := range cases {
		stage, err := StageFor(&models.Project{Status: status})
		require.NoError(t, err)
		assert.Equal(t, want, stage)
	}

	for _, status := range []string{models.StatusNCCRApproved, models.StatusRejected} {
		_, err := StageFor(&models.Project{Status: status})
		assert.Equal(t, apperrors.KindInvalidTransition, apperrors.KindOf(err))
	}
}

func TestAuthorize_NGOStage(t *testing.T) {
	db := policyDB(t)
	ngo := &models.Identity{Address: "0x" + strings.Repeat("1", 40), Role: models.RoleNGO}
	project := &models.Project{CommunityWallet: "0x" + strings.Repeat("2", 40)}

	// No link at all.
	err := Authorize(db, ngo, project, models.StageNGO)
	assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))

	// Suspended link.
	link := models.HierarchyLink{
		NGOAddress:      ngo.Address,
		CommunityWallet: project.CommunityWallet,
		Status:          models.LinkSuspended,
		CanVerifyData:   true,
	}
	require.NoError(t, db.Create(&link).Error)
	err = Authorize(db, ngo, project, models.StageNGO)
	assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))

	// Active but without verification rights.
	require.NoError(t, db.Model(&link).Updates(map[string]interface{}{
		"status":          models.LinkActive,
		"can_verify_data": false,
	}).Error)
	err = Authorize(db, ngo, project, models.StageNGO)
	assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))

	// Active with rights.
	require.NoError(t, db.Model(&link).Update("can_verify_data", true).Error)
	assert.NoError(t, Authorize(db, ngo, project, models.StageNGO))

	// Wrong role entirely.
	community := &models.Identity{Address: ngo.Address, Role: models.RoleCommunity}
	err = Authorize(db, community, project, models.StageNGO)
	assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))
}

func TestAuthorize_PanchayatStage(t *testing.T) {
	db := policyDB(t)
	project := &models.Project{Region: "Sundarbans"}

	panchayat := &models.Identity{Address: "0x" + strings.Repeat("3", 40), Role: models.RolePanchayat, Region: "sundarbans"}
	assert.NoError(t, Authorize(db, panchayat, project, models.StagePanchayat))

	elsewhere := &models.Identity{Address: "0x" + strings.Repeat("4", 40), Role: models.RolePanchayat, Region: "Pichavaram"}
	err := Authorize(db, elsewhere, project, models.StagePanchayat)
	assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))

	noRegion := &models.Identity{Address: "0x" + strings.Repeat("5", 40), Role: models.RolePanchayat}
	err = Authorize(db, noRegion, project, models.StagePanchayat)
	assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))

	admin := &models.Identity{Address: "0x" + strings.Repeat("6", 40), Role: models.RoleAdmin, Region: "sundarbans"}
	err = Authorize(db, admin, project, models.StagePanchayat)
	assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))
}

func TestAuthorize_NCCRStage(t *testing.T) {
	db := policyDB(t)
	project := &models.Project{}

	for _, role := range []string{models.RoleAdmin, models.RoleSuperAdmin} {
		actor := &models.Identity{Address: "0x" + strings.Repeat("7", 40), Role: role}
		assert.NoError(t, Authorize(db, actor, project, models.StageNCCR))
	}

	for _, role := range []string{models.RoleCommunity, models.RoleNGO, models.RolePanchayat} {
		actor := &models.Identity{Address: "0x" + strings.Repeat("8", 40), Role: role}
		err := Authorize(db, actor, project, models.StageNCCR)
		assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))
	}
}
