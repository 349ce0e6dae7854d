package spaceapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lucasgodgig/busca-ponto-saas/internal/config"
)

func newTestClient(baseURL, apiKey string) *Client {
	return NewClient(&config.Config{
		SpaceAPIBaseURL: baseURL,
		SpaceAPIKey:     apiKey,
		SpaceMaxRadiusM: 5000,
		SpaceTimeoutSec: 5,
	})
}

func TestFetchSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("key"); got != "secret" {
			t.Errorf("key param = %q, want secret", got)
		}
		if got := r.URL.Query().Get("radius"); got != "2000" {
			t.Errorf("radius param = %q, want 2000", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"muni":"São Paulo","people":40000}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, "secret")
	result, err := client.Fetch(context.Background(), Query{Lat: -23.55, Lng: -46.63, RadiusM: 2000})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if result.Degraded {
		t.Errorf("result degraded with reason %q, want real data", result.Reason)
	}
	if result.Raw["muni"] != "São Paulo" {
		t.Errorf("muni = %v, want São Paulo", result.Raw["muni"])
	}
}

func TestFetchNotConfigured(t *testing.T) {
	client := newTestClient("", "")
	result, err := client.Fetch(context.Background(), Query{Lat: -23.55, Lng: -46.63, RadiusM: 2000})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !result.Degraded || result.Reason != ReasonNotConfigured {
		t.Errorf("result = degraded=%v reason=%q, want degraded not_configured", result.Degraded, result.Reason)
	}
	if synthetic, _ := result.Raw["synthetic"].(bool); !synthetic {
		t.Error("degraded payload should carry the synthetic marker")
	}
}

func TestFetchBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server.URL, "secret")
	result, err := client.Fetch(context.Background(), Query{Lat: -23.55, Lng: -46.63, RadiusM: 2000})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !result.Degraded || !strings.HasPrefix(result.Reason, ReasonBadStatus) {
		t.Errorf("result = degraded=%v reason=%q, want degraded bad_status_500", result.Degraded, result.Reason)
	}
}

func TestFetchBadPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, "secret")
	result, err := client.Fetch(context.Background(), Query{Lat: -23.55, Lng: -46.63, RadiusM: 2000})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !result.Degraded || result.Reason != ReasonBadPayload {
		t.Errorf("result = degraded=%v reason=%q, want degraded bad_payload", result.Degraded, result.Reason)
	}
}

func TestFetchUnreachable(t *testing.T) {
	client := newTestClient("http://127.0.0.1:1", "secret")
	result, err := client.Fetch(context.Background(), Query{Lat: -23.55, Lng: -46.63, RadiusM: 2000})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !result.Degraded || result.Reason != ReasonUnreachable {
		t.Errorf("result = degraded=%v reason=%q, want degraded unreachable", result.Degraded, result.Reason)
	}
}

func TestFetchInvalidQuery(t *testing.T) {
	client := newTestClient("http://example.com", "secret")

	tests := []Query{
		{Lat: 91, Lng: 0, RadiusM: 1000},
		{Lat: 0, Lng: 181, RadiusM: 1000},
		{Lat: 0, Lng: 0, RadiusM: 0},
		{Lat: 0, Lng: 0, RadiusM: 6000}, // over the configured cap
	}
	for _, q := range tests {
		if _, err := client.Fetch(context.Background(), q); !errors.Is(err, ErrInvalidQuery) {
			t.Errorf("Fetch(%+v) err = %v, want ErrInvalidQuery", q, err)
		}
	}
}

func TestFetchCancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := newTestClient(server.URL, "secret")
	_, err := client.Fetch(ctx, Query{Lat: -23.55, Lng: -46.63, RadiusM: 2000})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
