package spaceapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/lucasgodgig/busca-ponto-saas/internal/config"
	"github.com/lucasgodgig/busca-ponto-saas/internal/logger"
)

// Degradation reasons reported on Result.Reason
const (
	ReasonNotConfigured = "not_configured"
	ReasonUnreachable   = "unreachable"
	ReasonBadStatus     = "bad_status"
	ReasonBadPayload    = "bad_payload"
)

// Result is the tagged outcome of a demographic fetch. Degraded results carry
// a synthetic payload; callers that need to tell real data from placeholder
// data check Degraded (or the synthetic marker the payload carries).
type Result struct {
	Raw      map[string]interface{}
	Degraded bool
	Reason   string
}

// Client calls the upstream demographic provider. Every failure past
// validation degrades to synthetic demo data; the only errors returned are
// invalid queries and an already-cancelled context.
type Client struct {
	baseURL    string
	apiKey     string
	maxRadiusM int
	httpClient *http.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL:    cfg.SpaceAPIBaseURL,
		apiKey:     cfg.SpaceAPIKey,
		maxRadiusM: cfg.SpaceMaxRadiusM,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.SpaceTimeoutSec) * time.Second,
		},
	}
}

// Fetch returns the raw upstream payload for the query point.
func (c *Client) Fetch(ctx context.Context, q Query) (Result, error) {
	log := logger.GetLogger("spaceapi.client")

	if err := q.Validate(c.maxRadiusM); err != nil {
		return Result{}, err
	}

	if c.baseURL == "" || c.apiKey == "" {
		log.Warn("Space API credentials not configured, returning synthetic data")
		return c.degrade(q, ReasonNotConfigured), nil
	}

	reqURL, err := url.Parse(c.baseURL)
	if err != nil {
		log.Warnf("Invalid Space API base URL: %v", err)
		return c.degrade(q, ReasonNotConfigured), nil
	}
	params := reqURL.Query()
	params.Set("lat", fmt.Sprintf("%f", q.Lat))
	params.Set("lng", fmt.Sprintf("%f", q.Lng))
	params.Set("radius", fmt.Sprintf("%d", q.RadiusM))
	params.Set("key", c.apiKey)
	reqURL.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return Result{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	log.Infof("Space API query: lat=%f lng=%f radius=%dm", q.Lat, q.Lng, q.RadiusM)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// An aborted caller is an error, not a degrade: the cache must not
		// store partial work for a request nobody is waiting on.
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		log.Warnf("Space API request failed: %v", err)
		return c.degrade(q, ReasonUnreachable), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Warnf("Space API returned status %d", resp.StatusCode)
		return c.degrade(q, fmt.Sprintf("%s_%d", ReasonBadStatus, resp.StatusCode)), nil
	}

	var raw map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		log.Warnf("Space API payload decode failed: %v", err)
		return c.degrade(q, ReasonBadPayload), nil
	}

	return Result{Raw: raw}, nil
}

func (c *Client) degrade(q Query, reason string) Result {
	return Result{
		Raw:      SyntheticPayload(q),
		Degraded: true,
		Reason:   reason,
	}
}
