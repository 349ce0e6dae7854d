package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/lucasgodgig/busca-ponto-saas/internal/config"
	"github.com/lucasgodgig/busca-ponto-saas/internal/database"
	"github.com/lucasgodgig/busca-ponto-saas/internal/middleware"
	"github.com/lucasgodgig/busca-ponto-saas/internal/services"
)

type StudyHandler struct {
	service *services.StudyService
}

func NewStudyHandler(db *database.DB, cfg *config.Config) *StudyHandler {
	tenantService := services.NewTenantService(db, cfg)
	return &StudyHandler{
		service: services.NewStudyService(db, cfg, tenantService),
	}
}

func SetupStudyRoutes(router fiber.Router, db *database.DB, cfg *config.Config) {
	// Mounted on the /tenants group; SetupTenantRoutes already guards it
	h := NewStudyHandler(db, cfg)

	router.Post("/:tenantID/studies", h.Create)
	router.Get("/:tenantID/studies", h.List)
	router.Get("/:tenantID/studies/:studyID", h.Get)
	router.Patch("/:tenantID/studies/:studyID", h.Update)
	router.Put("/:tenantID/studies/:studyID/status", h.SetStatus)
}

func studyParam(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("studyID"), 10, 32)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid study id")
	}
	return uint(id), nil
}

// Create godoc
// @Summary Open a market study request
// @Tags studies
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param tenantID path int true "Tenant ID"
// @Param request body services.CreateStudyInput true "Study request"
// @Success 201 {object} models.Study
// @Failure 403 {object} ErrorResponse
// @Router /tenants/{tenantID}/studies [post]
func (h *StudyHandler) Create(c *fiber.Ctx) error {
	tenantID, err := tenantParam(c)
	if err != nil {
		return err
	}
	var input services.CreateStudyInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if input.Title == "" || input.Segment == "" || input.Address == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "title, segment and address are required",
		})
	}

	study, err := h.service.Create(middleware.UserID(c), tenantID, input)
	if err != nil {
		return serviceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(study)
}

// List godoc
// @Summary List a tenant's studies
// @Tags studies
// @Produce json
// @Security BearerAuth
// @Param tenantID path int true "Tenant ID"
// @Param status query string false "Filter by status"
// @Success 200 {array} models.Study
// @Router /tenants/{tenantID}/studies [get]
func (h *StudyHandler) List(c *fiber.Ctx) error {
	tenantID, err := tenantParam(c)
	if err != nil {
		return err
	}
	studies, err := h.service.List(middleware.UserID(c), tenantID, c.Query("status"))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(studies)
}

// Get godoc
// @Summary Get one study
// @Tags studies
// @Produce json
// @Security BearerAuth
// @Param tenantID path int true "Tenant ID"
// @Param studyID path int true "Study ID"
// @Success 200 {object} models.Study
// @Router /tenants/{tenantID}/studies/{studyID} [get]
func (h *StudyHandler) Get(c *fiber.Ctx) error {
	tenantID, err := tenantParam(c)
	if err != nil {
		return err
	}
	studyID, err := studyParam(c)
	if err != nil {
		return err
	}
	study, err := h.service.Get(middleware.UserID(c), tenantID, studyID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(study)
}

// Update godoc
// @Summary Edit an open study request
// @Tags studies
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param tenantID path int true "Tenant ID"
// @Param studyID path int true "Study ID"
// @Param request body services.UpdateStudyInput true "Fields to update"
// @Success 200 {object} models.Study
// @Router /tenants/{tenantID}/studies/{studyID} [patch]
func (h *StudyHandler) Update(c *fiber.Ctx) error {
	tenantID, err := tenantParam(c)
	if err != nil {
		return err
	}
	studyID, err := studyParam(c)
	if err != nil {
		return err
	}
	var input services.UpdateStudyInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	study, err := h.service.Update(middleware.UserID(c), tenantID, studyID, input)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(study)
}

// SetStatus godoc
// @Summary Move a study through its workflow
// @Description Platform staff only. Concluding a study requires a final report.
// @Tags studies
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param tenantID path int true "Tenant ID"
// @Param studyID path int true "Study ID"
// @Param request body services.SetStudyStatusInput true "New status"
// @Success 200 {object} models.Study
// @Router /tenants/{tenantID}/studies/{studyID}/status [put]
func (h *StudyHandler) SetStatus(c *fiber.Ctx) error {
	tenantID, err := tenantParam(c)
	if err != nil {
		return err
	}
	studyID, err := studyParam(c)
	if err != nil {
		return err
	}
	var input services.SetStudyStatusInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	study, err := h.service.SetStatus(middleware.UserID(c), tenantID, studyID, input)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(study)
}
