package spaceapi

import (
	"math/rand"
	"time"
)

// syntheticMarker is carried through normalization so history rows persisted
// from placeholder data stay identifiable.
const syntheticMarker = "synthetic"

// SyntheticPayload builds a placeholder upstream payload for demo use when
// the real provider is unconfigured or unavailable. It mirrors the upstream
// field names so the normalizer treats it like any other response.
func SyntheticPayload(q Query) map[string]interface{} {
	people := float64(rand.Intn(50000) + 10000)
	income := float64(rand.Intn(5000) + 2000)
	consTotal := float64(rand.Intn(10000000) + 5000000)

	raw := map[string]interface{}{
		"muni":     "Localização de exemplo",
		"people":   people,
		"income":   income,
		"consumer": consTotal,

		"cons_a_total":       consTotal,
		"cons_b_current":     consTotal * 0.8,
		"cons_c_expenditure": consTotal * 0.6,

		syntheticMarker: true,
		"_timestamp":    time.Now().UTC().Format(time.RFC3339),
	}

	// Consumption categories as decreasing shares of the total
	share := 0.22
	for _, cat := range ConsumptionCategories {
		raw[cat.Key] = consTotal * share
		share *= 0.75
	}

	// Social class household counts
	households := people / 3
	classShares := []float64{0.05, 0.10, 0.15, 0.20, 0.30, 0.15, 0.05}
	for i, cls := range SocialClasses {
		raw[cls.Key] = households * classShares[i]
	}

	// Age bands as roughly even population slices
	for _, band := range AgeBands {
		raw[band.Key] = people / float64(len(AgeBands)) * (0.8 + rand.Float64()*0.4)
	}

	return raw
}
