package places

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestNearbyClient(serverURL string) *Client {
	return &Client{
		apiKey:     "test-key",
		language:   "pt-BR",
		nearbyURL:  serverURL,
		geocodeURL: serverURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		sleep:      func(time.Duration) {},
	}
}

func TestNearbyParsesResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("type"); got != "gym" {
			t.Errorf("type param = %q, want gym", got)
		}
		if got := r.URL.Query().Get("keyword"); got != "fitness_center" {
			t.Errorf("keyword param = %q, want fitness_center", got)
		}
		fmt.Fprint(w, `{
			"status": "OK",
			"next_page_token": "token-2",
			"results": [{
				"place_id": "p1",
				"name": "Academia Central",
				"vicinity": "Rua A, 10",
				"geometry": {"location": {"lat": -23.551, "lng": -46.634}},
				"rating": 4.2,
				"user_ratings_total": 88,
				"opening_hours": {"open_now": true}
			}]
		}`)
	}))
	defer server.Close()

	client := newTestNearbyClient(server.URL)
	page, err := client.Nearby(context.Background(), NearbyQuery{
		Lat: -23.55, Lng: -46.63, RadiusM: 1500, Segment: "academia",
	})
	if err != nil {
		t.Fatalf("Nearby: %v", err)
	}
	if page.NextPageToken != "token-2" {
		t.Errorf("NextPageToken = %q, want token-2", page.NextPageToken)
	}
	if len(page.Listings) != 1 {
		t.Fatalf("got %d listings, want 1", len(page.Listings))
	}

	l := page.Listings[0]
	if l.Name != "Academia Central" || l.PlaceID != "p1" {
		t.Errorf("listing = %+v", l)
	}
	if l.DistanceM <= 0 {
		t.Errorf("DistanceM = %v, want computed positive distance", l.DistanceM)
	}
	if l.Rating == nil || *l.Rating != 4.2 {
		t.Errorf("Rating = %v, want 4.2", l.Rating)
	}
	if l.OpenNow == nil || !*l.OpenNow {
		t.Errorf("OpenNow = %v, want true", l.OpenNow)
	}
	if l.MapsURL == "" {
		t.Error("MapsURL should be set when place_id is present")
	}
}

func TestNearbyPageTokenRetry(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if got := r.URL.Query().Get("pagetoken"); got != "tok" {
			t.Errorf("pagetoken param = %q, want tok", got)
		}
		if requests < 3 {
			fmt.Fprint(w, `{"status": "INVALID_REQUEST"}`)
			return
		}
		fmt.Fprint(w, `{"status": "OK", "results": [{"place_id": "p1", "name": "N",
			"geometry": {"location": {"lat": 0, "lng": 0}}}]}`)
	}))
	defer server.Close()

	var slept int
	client := newTestNearbyClient(server.URL)
	client.sleep = func(d time.Duration) {
		slept++
		if d != pageTokenDelay {
			t.Errorf("sleep duration = %v, want %v", d, pageTokenDelay)
		}
	}

	page, err := client.Nearby(context.Background(), NearbyQuery{PageToken: "tok"})
	if err != nil {
		t.Fatalf("Nearby: %v", err)
	}
	if requests != 3 || slept != 2 {
		t.Errorf("requests=%d slept=%d, want 3 requests with 2 retries", requests, slept)
	}
	if len(page.Listings) != 1 {
		t.Errorf("got %d listings, want 1", len(page.Listings))
	}
}

func TestNearbyPageTokenRetriesExhausted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status": "INVALID_REQUEST"}`)
	}))
	defer server.Close()

	client := newTestNearbyClient(server.URL)
	_, err := client.Nearby(context.Background(), NearbyQuery{PageToken: "tok"})

	var upstream *UpstreamError
	if !errors.As(err, &upstream) || upstream.Status != "INVALID_REQUEST" {
		t.Fatalf("err = %v, want UpstreamError INVALID_REQUEST", err)
	}
}

func TestNearbyUpstreamRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status": "REQUEST_DENIED", "error_message": "key expired"}`)
	}))
	defer server.Close()

	client := newTestNearbyClient(server.URL)
	_, err := client.Nearby(context.Background(), NearbyQuery{Lat: 0, Lng: 0, RadiusM: 1000})

	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("err = %v, want UpstreamError", err)
	}
	if upstream.Status != "REQUEST_DENIED" || upstream.Message != "key expired" {
		t.Errorf("UpstreamError = %+v", upstream)
	}
}

func TestNearbyZeroResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status": "ZERO_RESULTS", "results": []}`)
	}))
	defer server.Close()

	client := newTestNearbyClient(server.URL)
	page, err := client.Nearby(context.Background(), NearbyQuery{Lat: 0, Lng: 0, RadiusM: 1000})
	if err != nil {
		t.Fatalf("Nearby: %v", err)
	}
	if len(page.Listings) != 0 || page.NextPageToken != "" {
		t.Errorf("page = %+v, want empty", page)
	}
}

func TestNearbyNotConfiguredReturnsSynthetic(t *testing.T) {
	client := newTestNearbyClient("http://example.invalid")
	client.apiKey = ""

	page, err := client.Nearby(context.Background(), NearbyQuery{
		Lat: -23.55, Lng: -46.63, RadiusM: 1500, Segment: "academia",
	})
	if err != nil {
		t.Fatalf("Nearby: %v", err)
	}
	if len(page.Listings) == 0 {
		t.Fatal("want synthetic listings when the API key is missing, got none")
	}
	if page.NextPageToken != "" {
		t.Errorf("NextPageToken = %q, want empty for synthetic page", page.NextPageToken)
	}
	for i, l := range page.Listings {
		if !l.Synthetic {
			t.Errorf("listing %d not marked synthetic: %+v", i, l)
		}
		if l.DistanceM < 0 {
			t.Errorf("listing %d DistanceM = %v, want >= 0", i, l.DistanceM)
		}
	}
}

func TestSearchAddressNotConfigured(t *testing.T) {
	client := newTestNearbyClient("http://example.invalid")
	client.apiKey = ""

	matches, err := client.SearchAddress(context.Background(), "Av. Paulista, 1000")
	if err != nil {
		t.Fatalf("SearchAddress: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("got %d matches, want none without a configured key", len(matches))
	}
}

func TestNearbyAllDedupesAcrossPages(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests == 1 {
			fmt.Fprint(w, `{"status": "OK", "next_page_token": "tok", "results": [
				{"place_id": "a", "name": "A page1", "geometry": {"location": {"lat": 0, "lng": 0}}},
				{"place_id": "b", "name": "B", "geometry": {"location": {"lat": 0, "lng": 0.001}}}
			]}`)
			return
		}
		fmt.Fprint(w, `{"status": "OK", "results": [
			{"place_id": "a", "name": "A page2", "geometry": {"location": {"lat": 0, "lng": 0}}},
			{"place_id": "c", "name": "C", "geometry": {"location": {"lat": 0, "lng": 0.002}}}
		]}`)
	}))
	defer server.Close()

	client := newTestNearbyClient(server.URL)
	listings, err := client.NearbyAll(context.Background(), NearbyQuery{Lat: 0, Lng: 0, RadiusM: 1000}, 3)
	if err != nil {
		t.Fatalf("NearbyAll: %v", err)
	}
	if requests != 2 {
		t.Errorf("requests = %d, want 2", requests)
	}
	if len(listings) != 3 {
		t.Fatalf("got %d listings, want 3 after dedupe: %+v", len(listings), listings)
	}
	if listings[0].Name != "A page1" {
		t.Errorf("dedupe should keep the first page's entry, got %q", listings[0].Name)
	}
}

func TestNearbyAllStopsAtMaxPages(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		fmt.Fprintf(w, `{"status": "OK", "next_page_token": "tok-%d", "results": [
			{"place_id": "p%d", "name": "P", "geometry": {"location": {"lat": 0, "lng": 0}}}
		]}`, requests, requests)
	}))
	defer server.Close()

	client := newTestNearbyClient(server.URL)
	listings, err := client.NearbyAll(context.Background(), NearbyQuery{Lat: 0, Lng: 0, RadiusM: 1000}, 3)
	if err != nil {
		t.Fatalf("NearbyAll: %v", err)
	}
	if requests != 3 {
		t.Errorf("requests = %d, want the page cap of 3", requests)
	}
	if len(listings) != 3 {
		t.Errorf("got %d listings, want 3", len(listings))
	}
}

func TestSearchAddress(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("address"); got != "Av. Paulista, 1000" {
			t.Errorf("address param = %q", got)
		}
		fmt.Fprint(w, `{"status": "OK", "results": [{
			"formatted_address": "Av. Paulista, 1000 - São Paulo, SP",
			"place_id": "pp",
			"geometry": {"location": {"lat": -23.5629, "lng": -46.6544}}
		}]}`)
	}))
	defer server.Close()

	client := newTestNearbyClient(server.URL)
	matches, err := client.SearchAddress(context.Background(), "Av. Paulista, 1000")
	if err != nil {
		t.Fatalf("SearchAddress: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
	if matches[0].Lat != -23.5629 || matches[0].PlaceID != "pp" {
		t.Errorf("match = %+v", matches[0])
	}
}
