package auth

import (
	"bluecarbon-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// Handlers holds dependencies for auth endpoints.
type Handlers struct {
	Service *Service
	Shared  *SharedSecretAuthenticator
}

// Challenge POST /api/v1/auth/challenge - issue a fresh signing challenge.
func (h *Handlers) Challenge(c *fiber.Ctx) error {
	var body struct {
		Address string `json:"address"`
	}
	if err := c.BodyParser(&body); err != nil || body.Address == "" {
		return response.Error(c, "address is required", fiber.StatusBadRequest, nil)
	}

	challenge, err := h.Service.RequestChallenge(c.Context(), body.Address)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Challenge issued", challenge, nil)
}

// Verify POST /api/v1/auth/verify - verify the signed challenge and mint a
// session token.
func (h *Handlers) Verify(c *fiber.Ctx) error {
	var body struct {
		Address   string `json:"address"`
		Signature string `json:"signature"`
	}
	if err := c.BodyParser(&body); err != nil || body.Address == "" || body.Signature == "" {
		return response.Error(c, "address and signature are required", fiber.StatusBadRequest, nil)
	}

	session, err := h.Service.VerifyChallenge(c.Context(), body.Address, body.Signature)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Authentication successful", session, nil)
}

// Operator POST /api/v1/auth/operator - emergency shared-secret login.
// Returns 401 when the bypass is not configured.
func (h *Handlers) Operator(c *fiber.Ctx) error {
	var body struct {
		Address     string `json:"address"`
		OperatorKey string `json:"operator_key"`
	}
	if err := c.BodyParser(&body); err != nil || body.Address == "" || body.OperatorKey == "" {
		return response.Error(c, "address and operator_key are required", fiber.StatusBadRequest, nil)
	}

	session, err := h.Shared.Authenticate(c.Context(), body.Address, body.OperatorKey)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Authentication successful", session, nil)
}
