package calculator

import (
	"bluecarbon-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// Handlers exposes the calculation engine over HTTP. The engine itself is
// pure; handlers only translate requests and envelope the result.
type Handlers struct{}

type estimateRequest struct {
	AreaHa     float64 `json:"area_ha"`
	Species    string  `json:"species"`
	SoilType   string  `json:"soil_type"`
	MaxDepthCm float64 `json:"max_depth_cm"`
}

type estimateResponse struct {
	TotalCarbonCredits   float64      `json:"totalCarbonCredits"`
	Layers               []LayerStock `json:"layers"`
	AverageCarbonPercent float64      `json:"averageCarbonPercent"`
	EstimatedNDVI        float64      `json:"estimatedNDVI"`
	CCNValidation        *Validation  `json:"ccnValidation"`
}

// Estimate POST /api/v1/calculator/estimate - stratified carbon stock
// estimate with benchmark validation. Species is an optional hint used to
// resolve habitat and soil profile when soil_type is not given.
func (h *Handlers) Estimate(c *fiber.Ctx) error {
	var body estimateRequest
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}

	habitat, soilType := DefaultsForSpecies(body.Species)
	if body.SoilType != "" {
		soilType = body.SoilType
	}

	profile, err := ProfileFor(soilType)
	if err != nil {
		return response.FromError(c, err)
	}
	est, err := CalculateCarbonCredits(body.AreaHa, profile, body.MaxDepthCm)
	if err != nil {
		return response.FromError(c, err)
	}
	validation, err := ClassifyCarbon(habitat, est.AverageCarbonPercent)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Success(c, "Estimate computed", estimateResponse{
		TotalCarbonCredits:   est.TotalCarbonCredits,
		Layers:               est.Layers,
		AverageCarbonPercent: est.AverageCarbonPercent,
		EstimatedNDVI:        est.EstimatedNDVI,
		CCNValidation:        validation,
	}, nil)
}
