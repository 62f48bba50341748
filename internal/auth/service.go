package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"time"

	"bluecarbon-backend/internal/audit"
	"bluecarbon-backend/internal/metrics"
	"bluecarbon-backend/internal/models"
	"bluecarbon-backend/internal/pkg/apperrors"
	"bluecarbon-backend/internal/pkg/ethsig"

	"gorm.io/gorm"
)

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// Service implements the wallet challenge-response protocol: prove control of
// a key pair without transmitting it, then mint a bounded-lifetime session.
type Service struct {
	DB     *gorm.DB
	Tokens *TokenIssuer
}

// Challenge is what the caller must sign to authenticate.
type Challenge struct {
	Message string `json:"message"`
	Nonce   string `json:"nonce"`
	Address string `json:"address"`
}

// SessionResult is returned on successful verification.
type SessionResult struct {
	Token    string           `json:"token"`
	Identity *models.Identity `json:"identity"`
}

func challengeMessage(address, nonce string) string {
	return fmt.Sprintf("Blue Carbon Registry authentication request for %s\nNonce: %s", address, nonce)
}

func newNonce() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// RequestChallenge looks up or lazily creates the identity for address and
// rotates in a fresh nonce, invalidating any previously issued challenge.
func (s *Service) RequestChallenge(ctx context.Context, address string) (*Challenge, error) {
	if !addressPattern.MatchString(ethsig.Normalize(address)) {
		return nil, apperrors.InvalidArgument("Invalid wallet address")
	}
	addr := ethsig.Normalize(address)

	nonce, err := newNonce()
	if err != nil {
		return nil, err
	}

	var identity models.Identity
	err = s.DB.WithContext(ctx).Where("address = ?", addr).First(&identity).Error
	switch {
	case err == gorm.ErrRecordNotFound:
		identity = models.Identity{Address: addr, Role: models.RoleCommunity, Nonce: nonce}
		if err := s.DB.WithContext(ctx).Create(&identity).Error; err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		if err := s.DB.WithContext(ctx).Model(&identity).Update("nonce", nonce).Error; err != nil {
			return nil, err
		}
	}

	metrics.AuthChallengesTotal.Inc()
	return &Challenge{
		Message: challengeMessage(addr, nonce),
		Nonce:   nonce,
		Address: addr,
	}, nil
}

// VerifyChallenge checks that signature recovers to the claimed address over
// the exact challenge string issued for the stored nonce. On success the nonce
// is rotated immediately, so replaying the same signature fails.
func (s *Service) VerifyChallenge(ctx context.Context, address, signature string) (*SessionResult, error) {
	addr := ethsig.Normalize(address)

	var identity models.Identity
	if err := s.DB.WithContext(ctx).Where("address = ?", addr).First(&identity).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NotFound("Unknown wallet address")
		}
		return nil, err
	}

	if !ethsig.Matches(addr, challengeMessage(addr, identity.Nonce), signature) {
		metrics.AuthLoginsTotal.WithLabelValues(models.MethodWalletSignature, "failure").Inc()
		return nil, apperrors.Unauthorized("Signature does not match challenge")
	}

	nonce, err := newNonce()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	if err := s.consumeChallenge(ctx, &identity, nonce, now, signature); err != nil {
		if apperrors.KindOf(err) == apperrors.KindUnauthorized {
			metrics.AuthLoginsTotal.WithLabelValues(models.MethodWalletSignature, "failure").Inc()
		}
		return nil, err
	}
	identity.Nonce = nonce
	identity.LastLogin = &now

	token, err := s.Tokens.Issue(addr, identity.Role)
	if err != nil {
		return nil, err
	}
	metrics.AuthLoginsTotal.WithLabelValues(models.MethodWalletSignature, "success").Inc()
	return &SessionResult{Token: token, Identity: &identity}, nil
}

// consumeChallenge rotates the nonce away from the one identity was loaded
// with and records the login. The update is conditional on that nonce still
// being current, so two verifications racing on the same challenge cannot
// both mint a session.
func (s *Service) consumeChallenge(ctx context.Context, identity *models.Identity, nonce string, now time.Time, signature string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Identity{}).
			Where("id = ? AND nonce = ?", identity.ID, identity.Nonce).
			Updates(map[string]interface{}{
				"nonce":      nonce,
				"last_login": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.Unauthorized("Challenge has already been consumed")
		}
		return audit.Record(tx, audit.Entry{
			Actor:     identity.Address,
			Action:    "login",
			Signature: signature,
			Method:    models.MethodWalletSignature,
		})
	})
}

// VerifyOperationSignature is the second-factor gate for irreversible actions:
// the signer of the caller-supplied message must be the already-authenticated
// session address. A stolen session token alone cannot approve a project.
func (s *Service) VerifyOperationSignature(sessionAddress, message, signature string) error {
	if message == "" || signature == "" {
		return apperrors.InvalidArgument("Operation message and signature are required")
	}
	if !ethsig.Matches(sessionAddress, message, signature) {
		return apperrors.Unauthorized("Operation signature does not match session address")
	}
	return nil
}
