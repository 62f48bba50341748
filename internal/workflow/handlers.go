package workflow

import (
	"strconv"

	"bluecarbon-backend/internal/middleware"
	"bluecarbon-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// Handlers holds dependencies for project endpoints. Every route here sits
// behind RequireAuth; the actor comes from the session token.
type Handlers struct {
	Service *Service
}

type decisionBody struct {
	Decision           string   `json:"decision"`
	Notes              string   `json:"notes"`
	Reason             string   `json:"reason"`
	Message            string   `json:"message"`
	Signature          string   `json:"signature"`
	FinalCarbonCredits *float64 `json:"final_carbon_credits"`
}

func (b decisionBody) toDecision(actor string) Decision {
	return Decision{
		Actor:              actor,
		Decision:           b.Decision,
		Notes:              b.Notes,
		Reason:             b.Reason,
		Message:            b.Message,
		Signature:          b.Signature,
		FinalCarbonCredits: b.FinalCarbonCredits,
	}
}

// Submit POST /api/v1/projects - register a new project.
func (h *Handlers) Submit(c *fiber.Ctx) error {
	var body SubmitInput
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	project, err := h.Service.Submit(c.Context(), middleware.GetActor(c).Address, body)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Project submitted", project, nil)
}

// List GET /api/v1/projects - filterable project listing.
func (h *Handlers) List(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	filter := ListFilter{
		Status:          c.Query("status"),
		Region:          c.Query("region"),
		CommunityWallet: c.Query("community_wallet"),
		Limit:           limit,
		Offset:          offset,
	}
	if v, err := strconv.ParseFloat(c.Query("ndvi_min"), 64); err == nil {
		filter.NDVIMin = &v
	}
	if v, err := strconv.ParseFloat(c.Query("ndvi_max"), 64); err == nil {
		filter.NDVIMax = &v
	}
	projects, total, err := h.Service.List(c.Context(), filter)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Projects", projects, fiber.Map{
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// Get GET /api/v1/projects/:code - project with verification trail.
func (h *Handlers) Get(c *fiber.Ctx) error {
	detail, err := h.Service.Get(c.Context(), c.Params("code"))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Project", detail, nil)
}

// Review POST /api/v1/projects/:code/verify - NGO or panchayat stage decision.
func (h *Handlers) Review(c *fiber.Ctx) error {
	var body decisionBody
	if err := c.BodyParser(&body); err != nil || body.Decision == "" {
		return response.Error(c, "decision is required", fiber.StatusBadRequest, nil)
	}
	project, err := h.Service.Review(c.Context(), c.Params("code"), body.toDecision(middleware.GetActor(c).Address))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Decision recorded", project, nil)
}

// Approve POST /api/v1/projects/:code/approve - terminal NCCR approval.
func (h *Handlers) Approve(c *fiber.Ctx) error {
	var body decisionBody
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	project, err := h.Service.Approve(c.Context(), c.Params("code"), body.toDecision(middleware.GetActor(c).Address))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Project approved", project, nil)
}

// Reject POST /api/v1/projects/:code/reject - terminal rejection with reason.
func (h *Handlers) Reject(c *fiber.Ctx) error {
	var body decisionBody
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	project, err := h.Service.Reject(c.Context(), c.Params("code"), body.toDecision(middleware.GetActor(c).Address))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Project rejected", project, nil)
}

// History GET /api/v1/projects/:code/history - full audit trail.
func (h *Handlers) History(c *fiber.Ctx) error {
	trail, err := h.Service.History(c.Context(), c.Params("code"))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Audit trail", trail, nil)
}
