package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/lucasgodgig/busca-ponto-saas/internal/config"
	"github.com/lucasgodgig/busca-ponto-saas/internal/database"
	"github.com/lucasgodgig/busca-ponto-saas/internal/middleware"
	"github.com/lucasgodgig/busca-ponto-saas/internal/services"
)

type SpaceHandler struct {
	service *services.SpaceService
}

func NewSpaceHandler(db *database.DB, cfg *config.Config) *SpaceHandler {
	return &SpaceHandler{
		service: services.NewSpaceService(db, cfg),
	}
}

func SetupSpaceRoutes(router fiber.Router, db *database.DB, cfg *config.Config) {
	// Mounted on the /tenants group; SetupTenantRoutes already guards it
	h := NewSpaceHandler(db, cfg)

	router.Post("/:tenantID/space/query", h.QuickQuery)
	router.Get("/:tenantID/space/history", h.History)
}

// QuickQuery godoc
// @Summary Run a demographic quick query
// @Description Executes a point+radius demographic lookup, consuming one unit
// @Description of the tenant's monthly quota.
// @Tags space
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param tenantID path int true "Tenant ID"
// @Param request body services.QuickQueryInput true "Query point"
// @Success 200 {object} services.QuickQueryResponse
// @Failure 403 {object} ErrorResponse
// @Router /tenants/{tenantID}/space/query [post]
func (h *SpaceHandler) QuickQuery(c *fiber.Ctx) error {
	tenantID, err := tenantParam(c)
	if err != nil {
		return err
	}
	var input services.QuickQueryInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	resp, err := h.service.RunQuickQuery(c.UserContext(), middleware.UserID(c), tenantID, input)
	if err != nil {
		return serviceError(c, err)
	}

	middleware.RecordQuickQuery(resp.Cached, resp.Degraded)
	return c.JSON(resp)
}

// History godoc
// @Summary List past quick queries
// @Tags space
// @Produce json
// @Security BearerAuth
// @Param tenantID path int true "Tenant ID"
// @Param limit query int false "Page size (default 20, max 100)"
// @Param offset query int false "Offset"
// @Success 200 {object} map[string]interface{}
// @Router /tenants/{tenantID}/space/history [get]
func (h *SpaceHandler) History(c *fiber.Ctx) error {
	tenantID, err := tenantParam(c)
	if err != nil {
		return err
	}
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))

	queries, total, err := h.service.History(middleware.UserID(c), tenantID, limit, offset)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"total":   total,
		"results": queries,
	})
}
