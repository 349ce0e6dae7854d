package places

import (
	"fmt"
	"math/rand"
	"strings"
	"unicode"
)

// syntheticListings builds placeholder competitor listings for demo use when
// no Places API key is configured, the same degrade-to-demo policy the
// demographic provider gets. Listings carry the synthetic marker so callers
// can tell demo data from real results.
func syntheticListings(q NearbyQuery) []Listing {
	label := strings.TrimSpace(q.Segment)
	if label == "" {
		label = "Concorrente"
	} else {
		runes := []rune(strings.ToLower(label))
		runes[0] = unicode.ToUpper(runes[0])
		label = string(runes)
	}

	count := rand.Intn(5) + 6
	listings := make([]Listing, 0, count)
	for i := 0; i < count; i++ {
		// Scatter points inside the radius; ~111,195 m per degree
		maxDeg := float64(q.RadiusM) / 111195
		lat := q.Lat + (rand.Float64()*2-1)*maxDeg
		lng := q.Lng + (rand.Float64()*2-1)*maxDeg

		rating := 3.0 + rand.Float64()*2
		ratingCount := rand.Intn(400) + 10
		open := rand.Float64() < 0.7

		listings = append(listings, Listing{
			Name:        fmt.Sprintf("%s Exemplo %d", label, i+1),
			Lat:         lat,
			Lng:         lng,
			DistanceM:   HaversineM(q.Lat, q.Lng, lat, lng),
			Rating:      &rating,
			RatingCount: &ratingCount,
			OpenNow:     &open,
			Address:     fmt.Sprintf("Rua Exemplo, %d", (i+1)*100),
			Synthetic:   true,
		})
	}
	return listings
}
