package hierarchy

import (
	"bluecarbon-backend/internal/middleware"
	"bluecarbon-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Handlers holds dependencies for hierarchy endpoints.
type Handlers struct {
	Service *Service
}

// Create POST /api/v1/hierarchy/links - register or request a link.
func (h *Handlers) Create(c *fiber.Ctx) error {
	var body CreateInput
	if err := c.BodyParser(&body); err != nil || body.NGOAddress == "" || body.CommunityWallet == "" {
		return response.Error(c, "ngo_address and community_wallet are required", fiber.StatusBadRequest, nil)
	}
	link, err := h.Service.Create(c.Context(), middleware.GetActor(c).Address, body)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Hierarchy link created", link, nil)
}

// Update PATCH /api/v1/hierarchy/links/:id - change status or permission.
func (h *Handlers) Update(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid link id", fiber.StatusBadRequest, nil)
	}
	var body UpdateInput
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	link, err := h.Service.Update(c.Context(), middleware.GetActor(c).Address, id, body)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Hierarchy link updated", link, nil)
}

// List GET /api/v1/hierarchy/links - filterable link listing.
func (h *Handlers) List(c *fiber.Ctx) error {
	links, err := h.Service.List(c.Context(), ListFilter{
		NGOAddress:      c.Query("ngo_address"),
		CommunityWallet: c.Query("community_wallet"),
		Status:          c.Query("status"),
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Hierarchy links", links, nil)
}
