package monitor

import (
	"time"

	"bluecarbon-backend/internal/middleware"
	"bluecarbon-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Handlers holds dependencies for NDVI endpoints.
type Handlers struct {
	Service *Service
	Rollups *Rollups
}

// Ingest POST /api/v1/ndvi/scans - record one observation, possibly raising
// an alert.
func (h *Handlers) Ingest(c *fiber.Ctx) error {
	var body struct {
		ProjectCode string  `json:"project_code"`
		NDVIValue   float64 `json:"ndvi_value"`
		ScanDate    string  `json:"scan_date"`
		Source      string  `json:"source"`
	}
	if err := c.BodyParser(&body); err != nil || body.ProjectCode == "" {
		return response.Error(c, "project_code is required", fiber.StatusBadRequest, nil)
	}

	var scanDate time.Time
	if body.ScanDate != "" {
		parsed, err := time.Parse(time.RFC3339, body.ScanDate)
		if err != nil {
			return response.Error(c, "scan_date must be RFC3339", fiber.StatusBadRequest, nil)
		}
		scanDate = parsed
	}

	result, err := h.Service.Ingest(c.Context(), body.ProjectCode, body.NDVIValue, scanDate, body.Source)
	if err != nil {
		return response.FromError(c, err)
	}
	h.Rollups.Invalidate(c.Context())
	return response.SuccessCreated(c, "Scan recorded", result, nil)
}

// Scans GET /api/v1/ndvi/projects/:code/scans - observation history.
func (h *Handlers) Scans(c *fiber.Ctx) error {
	scans, err := h.Service.Scans(c.Context(), c.Params("code"))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Scan history", scans, nil)
}

// Alerts GET /api/v1/ndvi/alerts - open alerts, optionally per project.
func (h *Handlers) Alerts(c *fiber.Ctx) error {
	alerts, err := h.Service.UnresolvedAlerts(c.Context(), c.Query("project_code"))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Unresolved alerts", alerts, nil)
}

// Resolve POST /api/v1/ndvi/alerts/:id/resolve - mark an alert handled.
func (h *Handlers) Resolve(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid alert id", fiber.StatusBadRequest, nil)
	}
	actor := middleware.GetActor(c)
	alert, err := h.Service.ResolveAlert(c.Context(), id, actor.Address, actor.Role)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Alert resolved", alert, nil)
}

// National GET /api/v1/ndvi/rollups/national - 30-day weighted rollup.
func (h *Handlers) National(c *fiber.Ctx) error {
	rollup, err := h.Rollups.National(c.Context())
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "National rollup", rollup, nil)
}

// Regional GET /api/v1/ndvi/rollups/regional - latest-scan averages per region.
func (h *Handlers) Regional(c *fiber.Ctx) error {
	rollup, err := h.Rollups.Regional(c.Context())
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Regional rollup", rollup, nil)
}
