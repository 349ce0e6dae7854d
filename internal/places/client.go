package places

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lucasgodgig/busca-ponto-saas/internal/config"
	"github.com/lucasgodgig/busca-ponto-saas/internal/logger"
)

const (
	nearbySearchURL = "https://maps.googleapis.com/maps/api/place/nearbysearch/json"
	geocodeURL      = "https://maps.googleapis.com/maps/api/geocode/json"

	// A freshly issued next_page_token takes a moment to become valid on
	// Google's side; INVALID_REQUEST on a token request means "try again".
	pageTokenRetries = 3
	pageTokenDelay   = 1500 * time.Millisecond
)

// UpstreamError reports a non-retriable rejection from the Google Places API.
type UpstreamError struct {
	Status  string
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("google places: %s: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("google places: %s", e.Status)
}

// NearbyQuery describes one competitor search page request.
type NearbyQuery struct {
	Lat       float64
	Lng       float64
	RadiusM   int
	Segment   string
	PageToken string
}

// NearbyPage is one page of competitor results. NextPageToken is empty on the
// last page.
type NearbyPage struct {
	Listings      []Listing `json:"listings"`
	NextPageToken string    `json:"next_page_token,omitempty"`
}

// AddressMatch is one geocoding candidate for a free-text address.
type AddressMatch struct {
	FormattedAddress string  `json:"formatted_address"`
	Lat              float64 `json:"lat"`
	Lng              float64 `json:"lng"`
	PlaceID          string  `json:"place_id"`
}

// Client wraps the Google Places and Geocoding web services.
type Client struct {
	apiKey     string
	language   string
	nearbyURL  string
	geocodeURL string
	httpClient *http.Client
	sleep      func(time.Duration)
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		apiKey:     cfg.GooglePlacesAPIKey,
		language:   cfg.PlacesLanguage,
		nearbyURL:  nearbySearchURL,
		geocodeURL: geocodeURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		sleep:      time.Sleep,
	}
}

type nearbyResponse struct {
	Status        string `json:"status"`
	ErrorMessage  string `json:"error_message"`
	NextPageToken string `json:"next_page_token"`
	Results       []struct {
		PlaceID  string `json:"place_id"`
		Name     string `json:"name"`
		Vicinity string `json:"vicinity"`
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
		Rating           *float64 `json:"rating"`
		UserRatingsTotal *int     `json:"user_ratings_total"`
		OpeningHours     *struct {
			OpenNow *bool `json:"open_now"`
		} `json:"opening_hours"`
	} `json:"results"`
}

// Nearby fetches one page of competitor listings around a point. Distances
// are computed from the query point, not taken from the provider.
func (c *Client) Nearby(ctx context.Context, q NearbyQuery) (NearbyPage, error) {
	log := logger.GetLogger("places.client")

	if c.apiKey == "" {
		log.Warn("Places API key not configured, returning synthetic listings")
		return NearbyPage{Listings: syntheticListings(q)}, nil
	}

	params := url.Values{}
	params.Set("key", c.apiKey)
	if c.language != "" {
		params.Set("language", c.language)
	}
	if q.PageToken != "" {
		params.Set("pagetoken", q.PageToken)
	} else {
		params.Set("location", fmt.Sprintf("%f,%f", q.Lat, q.Lng))
		params.Set("radius", fmt.Sprintf("%d", q.RadiusM))
		if types := MapSegmentToTypes(q.Segment); len(types) > 0 {
			params.Set("type", types[0])
			// Secondary synonym types widen the match as keywords
			if len(types) > 1 {
				params.Set("keyword", strings.Join(types[1:], " "))
			}
		}
	}

	var body nearbyResponse
	for attempt := 0; ; attempt++ {
		if err := c.getJSON(ctx, c.nearbyURL, params, &body); err != nil {
			return NearbyPage{}, err
		}

		// Page tokens need a moment to activate after being issued
		if body.Status == "INVALID_REQUEST" && q.PageToken != "" && attempt < pageTokenRetries {
			log.Infof("Page token not ready, retry %d/%d", attempt+1, pageTokenRetries)
			c.sleep(pageTokenDelay)
			continue
		}
		break
	}

	if body.Status != "OK" && body.Status != "ZERO_RESULTS" {
		log.Warnf("Nearby search rejected: status=%s message=%s", body.Status, body.ErrorMessage)
		return NearbyPage{}, &UpstreamError{Status: body.Status, Message: body.ErrorMessage}
	}

	listings := make([]Listing, 0, len(body.Results))
	for _, r := range body.Results {
		listing := Listing{
			PlaceID:   r.PlaceID,
			Name:      r.Name,
			Lat:       r.Geometry.Location.Lat,
			Lng:       r.Geometry.Location.Lng,
			DistanceM: HaversineM(q.Lat, q.Lng, r.Geometry.Location.Lat, r.Geometry.Location.Lng),
			Rating:    r.Rating,
			Address:   r.Vicinity,
		}
		listing.RatingCount = r.UserRatingsTotal
		if r.OpeningHours != nil {
			listing.OpenNow = r.OpeningHours.OpenNow
		}
		if r.PlaceID != "" {
			listing.MapsURL = "https://www.google.com/maps/place/?q=place_id:" + url.QueryEscape(r.PlaceID)
		}
		listings = append(listings, listing)
	}

	return NearbyPage{Listings: listings, NextPageToken: body.NextPageToken}, nil
}

// NearbyAll aggregates up to maxPages of results, deduplicated across pages.
func (c *Client) NearbyAll(ctx context.Context, q NearbyQuery, maxPages int) ([]Listing, error) {
	var all []Listing
	for page := 0; page < maxPages; page++ {
		result, err := c.Nearby(ctx, q)
		if err != nil {
			return nil, err
		}
		all = append(all, result.Listings...)
		if result.NextPageToken == "" {
			break
		}
		q.PageToken = result.NextPageToken
	}
	return DedupeListings(all), nil
}

type geocodeResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		FormattedAddress string `json:"formatted_address"`
		PlaceID          string `json:"place_id"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// SearchAddress geocodes a free-text address into candidate coordinates.
func (c *Client) SearchAddress(ctx context.Context, address string) ([]AddressMatch, error) {
	log := logger.GetLogger("places.client")

	// Without a key there is nothing to geocode against; an empty candidate
	// list lets the caller fall back to manual coordinates.
	if c.apiKey == "" {
		log.Warn("Places API key not configured, skipping geocode")
		return []AddressMatch{}, nil
	}

	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("address", address)
	if c.language != "" {
		params.Set("language", c.language)
	}

	var body geocodeResponse
	if err := c.getJSON(ctx, c.geocodeURL, params, &body); err != nil {
		return nil, err
	}

	if body.Status != "OK" && body.Status != "ZERO_RESULTS" {
		log.Warnf("Geocode rejected: status=%s message=%s", body.Status, body.ErrorMessage)
		return nil, &UpstreamError{Status: body.Status, Message: body.ErrorMessage}
	}

	matches := make([]AddressMatch, 0, len(body.Results))
	for _, r := range body.Results {
		matches = append(matches, AddressMatch{
			FormattedAddress: r.FormattedAddress,
			Lat:              r.Geometry.Location.Lat,
			Lng:              r.Geometry.Location.Lng,
			PlaceID:          r.PlaceID,
		})
	}
	return matches, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("google places request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &UpstreamError{Status: fmt.Sprintf("HTTP_%d", resp.StatusCode)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode google places response: %w", err)
	}
	return nil
}
