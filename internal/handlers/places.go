package handlers

import (
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/lucasgodgig/busca-ponto-saas/internal/config"
	"github.com/lucasgodgig/busca-ponto-saas/internal/middleware"
	"github.com/lucasgodgig/busca-ponto-saas/internal/places"
)

// exportMaxPages caps how many provider pages an export pulls. Google serves
// at most three pages of nearby results anyway.
const exportMaxPages = 3

type PlacesHandler struct {
	client *places.Client
}

func NewPlacesHandler(cfg *config.Config) *PlacesHandler {
	return &PlacesHandler{
		client: places.NewClient(cfg),
	}
}

func SetupPlacesRoutes(router fiber.Router, cfg *config.Config) {
	h := NewPlacesHandler(cfg)

	router.Use(middleware.AuthRequired(cfg))
	router.Get("/search-address", h.SearchAddress)
	router.Get("/competitors", h.Competitors)
	router.Get("/competitors/export", h.ExportCompetitors)
}

// SearchAddress godoc
// @Summary Geocode a free-text address
// @Tags places
// @Produce json
// @Security BearerAuth
// @Param q query string true "Address text"
// @Success 200 {array} places.AddressMatch
// @Router /places/search-address [get]
func (h *PlacesHandler) SearchAddress(c *fiber.Ctx) error {
	query := c.Query("q")
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "q parameter is required"})
	}

	matches, err := h.client.SearchAddress(c.UserContext(), query)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(matches)
}

// competitorQuery parses the shared competitor search parameters.
func competitorQuery(c *fiber.Ctx) (places.NearbyQuery, error) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return places.NearbyQuery{}, fiber.NewError(fiber.StatusBadRequest, "valid lat and lng parameters are required")
	}
	radius, err := strconv.Atoi(c.Query("radius", "1500"))
	if err != nil || radius <= 0 || radius > 50000 {
		return places.NearbyQuery{}, fiber.NewError(fiber.StatusBadRequest, "radius must be between 1 and 50000")
	}

	segment := c.Query("segment")
	// A blank segment maps to no provider types; reject it here instead of
	// burning an upstream call on an unfilterable search.
	if len(places.MapSegmentToTypes(segment)) == 0 {
		return places.NearbyQuery{}, fiber.NewError(fiber.StatusBadRequest, "segment not recognized")
	}

	return places.NearbyQuery{
		Lat:       lat,
		Lng:       lng,
		RadiusM:   radius,
		Segment:   segment,
		PageToken: c.Query("page_token"),
	}, nil
}

func sortListings(listings []places.Listing, order string) {
	if order == "rating" {
		places.SortByRating(listings)
		return
	}
	places.SortByDistance(listings)
}

// Competitors godoc
// @Summary Search nearby competitors
// @Description One page of competitor listings. Pass page_token to continue.
// @Tags places
// @Produce json
// @Security BearerAuth
// @Param lat query number true "Latitude"
// @Param lng query number true "Longitude"
// @Param radius query int false "Radius in meters (default 1500)"
// @Param segment query string false "Business segment"
// @Param sort query string false "distance (default) or rating"
// @Param page_token query string false "Continuation token"
// @Success 200 {object} places.NearbyPage
// @Failure 502 {object} ErrorResponse
// @Router /places/competitors [get]
func (h *PlacesHandler) Competitors(c *fiber.Ctx) error {
	q, err := competitorQuery(c)
	if err != nil {
		return err
	}

	page, err := h.client.Nearby(c.UserContext(), q)
	if err != nil {
		return serviceError(c, err)
	}

	page.Listings = places.DedupeListings(page.Listings)
	sortListings(page.Listings, c.Query("sort"))
	return c.JSON(page)
}

// ExportCompetitors godoc
// @Summary Export competitors as CSV
// @Description Aggregates all result pages, deduplicates, and streams a CSV
// @Description attachment.
// @Tags places
// @Produce text/csv
// @Security BearerAuth
// @Param lat query number true "Latitude"
// @Param lng query number true "Longitude"
// @Param radius query int false "Radius in meters (default 1500)"
// @Param segment query string false "Business segment"
// @Param sort query string false "distance (default) or rating"
// @Success 200 {string} string "CSV body"
// @Router /places/competitors/export [get]
func (h *PlacesHandler) ExportCompetitors(c *fiber.Ctx) error {
	q, err := competitorQuery(c)
	if err != nil {
		return err
	}
	q.PageToken = ""

	listings, err := h.client.NearbyAll(c.UserContext(), q, exportMaxPages)
	if err != nil {
		return serviceError(c, err)
	}
	sortListings(listings, c.Query("sort"))

	filename := places.CSVFilename(q.Lat, q.Lng)
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))

	if err := places.WriteCSV(c.Response().BodyWriter(), listings); err != nil {
		return serviceError(c, err)
	}
	return nil
}
