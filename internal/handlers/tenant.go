package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/lucasgodgig/busca-ponto-saas/internal/config"
	"github.com/lucasgodgig/busca-ponto-saas/internal/database"
	"github.com/lucasgodgig/busca-ponto-saas/internal/middleware"
	"github.com/lucasgodgig/busca-ponto-saas/internal/models"
	"github.com/lucasgodgig/busca-ponto-saas/internal/services"
)

type TenantHandler struct {
	service *services.TenantService
}

func NewTenantHandler(db *database.DB, cfg *config.Config) *TenantHandler {
	return &TenantHandler{
		service: services.NewTenantService(db, cfg),
	}
}

func SetupTenantRoutes(router fiber.Router, db *database.DB, cfg *config.Config) {
	h := NewTenantHandler(db, cfg)

	router.Use(middleware.AuthRequired(cfg))
	router.Post("/", h.Create)
	router.Get("/", h.List)
	router.Get("/:tenantID", h.Get)
	router.Patch("/:tenantID", h.Update)
	router.Patch("/:tenantID/limits", h.UpdateLimits)
	router.Get("/:tenantID/members", h.Members)
	router.Post("/:tenantID/members", h.AddMember)
	router.Get("/:tenantID/usage", h.Usage)
}

// tenantParam parses the :tenantID path parameter.
func tenantParam(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("tenantID"), 10, 32)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid tenant id")
	}
	return uint(id), nil
}

// Create godoc
// @Summary Onboard a tenant
// @Tags tenants
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.CreateTenantInput true "Tenant data"
// @Success 201 {object} models.Tenant
// @Router /tenants [post]
func (h *TenantHandler) Create(c *fiber.Ctx) error {
	var input services.CreateTenantInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if input.Name == "" || input.Slug == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name and slug are required"})
	}

	tenant, err := h.service.Create(middleware.UserID(c), input)
	if err != nil {
		return serviceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(tenant)
}

// List godoc
// @Summary List all tenants
// @Tags tenants
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Tenant
// @Router /tenants [get]
func (h *TenantHandler) List(c *fiber.Ctx) error {
	tenants, err := h.service.List(middleware.UserID(c))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(tenants)
}

// Get godoc
// @Summary Get one tenant
// @Tags tenants
// @Produce json
// @Security BearerAuth
// @Param tenantID path int true "Tenant ID"
// @Success 200 {object} models.Tenant
// @Router /tenants/{tenantID} [get]
func (h *TenantHandler) Get(c *fiber.Ctx) error {
	tenantID, err := tenantParam(c)
	if err != nil {
		return err
	}
	tenant, err := h.service.Get(middleware.UserID(c), tenantID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(tenant)
}

// Update godoc
// @Summary Update tenant branding
// @Tags tenants
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param tenantID path int true "Tenant ID"
// @Param request body services.UpdateTenantInput true "Fields to update"
// @Success 200 {object} models.Tenant
// @Router /tenants/{tenantID} [patch]
func (h *TenantHandler) Update(c *fiber.Ctx) error {
	tenantID, err := tenantParam(c)
	if err != nil {
		return err
	}
	var input services.UpdateTenantInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	tenant, err := h.service.Update(middleware.UserID(c), tenantID, input)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(tenant)
}

type UpdateLimitsRequest struct {
	Plan   string              `json:"plan"`
	Limits models.TenantLimits `json:"limits"`
}

// UpdateLimits godoc
// @Summary Replace a tenant's plan limits
// @Tags tenants
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param tenantID path int true "Tenant ID"
// @Param request body UpdateLimitsRequest true "Plan and limits"
// @Success 200 {object} models.Tenant
// @Router /tenants/{tenantID}/limits [patch]
func (h *TenantHandler) UpdateLimits(c *fiber.Ctx) error {
	tenantID, err := tenantParam(c)
	if err != nil {
		return err
	}
	var req UpdateLimitsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	tenant, err := h.service.UpdateLimits(middleware.UserID(c), tenantID, req.Plan, req.Limits)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(tenant)
}

// Members godoc
// @Summary List tenant members
// @Tags tenants
// @Produce json
// @Security BearerAuth
// @Param tenantID path int true "Tenant ID"
// @Success 200 {array} models.Membership
// @Router /tenants/{tenantID}/members [get]
func (h *TenantHandler) Members(c *fiber.Ctx) error {
	tenantID, err := tenantParam(c)
	if err != nil {
		return err
	}
	members, err := h.service.Members(middleware.UserID(c), tenantID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(members)
}

type AddMemberRequest struct {
	UserID uint   `json:"user_id"`
	Role   string `json:"role"`
}

// AddMember godoc
// @Summary Add a member to a tenant
// @Tags tenants
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param tenantID path int true "Tenant ID"
// @Param request body AddMemberRequest true "User and role"
// @Success 201 {object} models.Membership
// @Router /tenants/{tenantID}/members [post]
func (h *TenantHandler) AddMember(c *fiber.Ctx) error {
	tenantID, err := tenantParam(c)
	if err != nil {
		return err
	}
	var req AddMemberRequest
	if err := c.BodyParser(&req); err != nil || req.UserID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "user_id is required"})
	}

	membership, err := h.service.AddMember(middleware.UserID(c), tenantID, req.UserID, req.Role)
	if err != nil {
		return serviceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(membership)
}

// Usage godoc
// @Summary Current-month plan usage
// @Tags tenants
// @Produce json
// @Security BearerAuth
// @Param tenantID path int true "Tenant ID"
// @Success 200 {object} services.TenantUsage
// @Router /tenants/{tenantID}/usage [get]
func (h *TenantHandler) Usage(c *fiber.Ctx) error {
	tenantID, err := tenantParam(c)
	if err != nil {
		return err
	}
	usage, err := h.service.Usage(middleware.UserID(c), tenantID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(usage)
}
