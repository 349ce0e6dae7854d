package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/lucasgodgig/busca-ponto-saas/internal/places"
	"github.com/lucasgodgig/busca-ponto-saas/internal/services"
	"github.com/lucasgodgig/busca-ponto-saas/internal/spaceapi"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Limit   int    `json:"limit,omitempty"`
}

// ErrorHandler is the custom error handler for Fiber
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(ErrorResponse{
		Error: message,
	})
}

// serviceError maps service-layer errors onto HTTP responses. Used by every
// handler so a given error always yields the same status.
func serviceError(c *fiber.Ctx, err error) error {
	var quota *services.QuotaExceededError
	if errors.As(err, &quota) {
		return c.Status(fiber.StatusForbidden).JSON(ErrorResponse{
			Error: quota.Error(),
			Limit: quota.Limit,
		})
	}

	var upstream *places.UpstreamError
	if errors.As(err, &upstream) {
		return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{
			Error:   "Upstream provider rejected the request",
			Details: upstream.Error(),
		})
	}

	switch {
	case errors.Is(err, spaceapi.ErrInvalidQuery):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	case errors.Is(err, services.ErrInvalidCredentials):
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{Error: err.Error()})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(ErrorResponse{Error: err.Error()})
	case errors.Is(err, services.ErrTenantNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrStudyNotFound):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: err.Error()})
	case errors.Is(err, services.ErrEmailTaken), errors.Is(err, services.ErrSlugTaken):
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{Error: err.Error()})
	}

	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
		Error: "Internal Server Error",
	})
}
