package auth

import (
	"context"

	"bluecarbon-backend/internal/audit"
	"bluecarbon-backend/internal/metrics"
	"bluecarbon-backend/internal/models"
	"bluecarbon-backend/internal/pkg/apperrors"
	"bluecarbon-backend/internal/pkg/ethsig"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SharedSecretAuthenticator is the emergency operator bypass. It implements
// the same authentication contract as the signature protocol but is a wholly
// separate method: it can be disabled by leaving KeyHash unset, and every use
// is audited with method=shared-secret.
type SharedSecretAuthenticator struct {
	DB      *gorm.DB
	KeyHash string // bcrypt hash of the operator key
	Tokens  *TokenIssuer
}

// Enabled reports whether the bypass is configured at all.
func (a *SharedSecretAuthenticator) Enabled() bool {
	return a != nil && a.KeyHash != ""
}

// Authenticate validates the operator key and mints a session for the given
// admin identity.
func (a *SharedSecretAuthenticator) Authenticate(ctx context.Context, address, operatorKey string) (*SessionResult, error) {
	if !a.Enabled() {
		return nil, apperrors.Unauthorized("Shared-secret authentication is disabled")
	}
	if bcrypt.CompareHashAndPassword([]byte(a.KeyHash), []byte(operatorKey)) != nil {
		return nil, apperrors.Unauthorized("Invalid operator key")
	}

	addr := ethsig.Normalize(address)
	var identity models.Identity
	if err := a.DB.WithContext(ctx).Where("address = ?", addr).First(&identity).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NotFound("Unknown wallet address")
		}
		return nil, err
	}
	if !identity.IsAdmin() {
		return nil, apperrors.Forbidden("Shared-secret authentication is restricted to admin identities")
	}

	log.Warn().Str("address", addr).Msg("shared-secret authentication used")
	if err := audit.Record(a.DB.WithContext(ctx), audit.Entry{
		Actor:  addr,
		Action: "login",
		Method: models.MethodSharedSecret,
	}); err != nil {
		return nil, err
	}

	token, err := a.Tokens.Issue(addr, identity.Role)
	if err != nil {
		return nil, err
	}
	metrics.AuthLoginsTotal.WithLabelValues(models.MethodSharedSecret, "success").Inc()
	return &SessionResult{Token: token, Identity: &identity}, nil
}
