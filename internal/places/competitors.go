package places

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Listing is one competitor business near a query point.
type Listing struct {
	PlaceID     string   `json:"place_id"`
	Name        string   `json:"name"`
	Lat         float64  `json:"lat"`
	Lng         float64  `json:"lng"`
	DistanceM   float64  `json:"distance_m"`
	Rating      *float64 `json:"rating,omitempty"`
	RatingCount *int     `json:"rating_count,omitempty"`
	OpenNow     *bool    `json:"open_now,omitempty"`
	Address     string   `json:"address"`
	MapsURL     string   `json:"maps_url"`
	Synthetic   bool     `json:"synthetic,omitempty"`
}

// dedupeKey identifies a listing across result pages. Google occasionally
// repeats entries between pages, and a handful of records come back without a
// place_id, so the coordinate pair serves as the fallback identity.
func (l Listing) dedupeKey() string {
	if l.PlaceID != "" {
		return l.PlaceID
	}
	return fmt.Sprintf("%f,%f", l.Lat, l.Lng)
}

const earthRadiusM = 6371000

// HaversineM computes the great-circle distance between two points in meters,
// rounded to the nearest meter.
func HaversineM(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return math.Round(earthRadiusM * c)
}

// DedupeListings removes repeated listings, keeping the first occurrence in
// input order.
func DedupeListings(listings []Listing) []Listing {
	seen := make(map[string]bool, len(listings))
	out := make([]Listing, 0, len(listings))
	for _, l := range listings {
		key := l.dedupeKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, l)
	}
	return out
}

// SortByDistance orders listings nearest first. Stable so equidistant entries
// keep their page order.
func SortByDistance(listings []Listing) {
	sort.SliceStable(listings, func(i, j int) bool {
		return listings[i].DistanceM < listings[j].DistanceM
	})
}

// SortByRating orders listings best-rated first. Unrated listings sink to the
// end.
func SortByRating(listings []Listing) {
	sort.SliceStable(listings, func(i, j int) bool {
		ri, rj := -1.0, -1.0
		if listings[i].Rating != nil {
			ri = *listings[i].Rating
		}
		if listings[j].Rating != nil {
			rj = *listings[j].Rating
		}
		return ri > rj
	})
}

var csvHeader = []string{
	"Nome", "Latitude", "Longitude", "Distância (m)",
	"Avaliação", "Nº de Avaliações", "Aberto Agora", "Endereço", "URL",
}

// WriteCSV renders listings as a spreadsheet-friendly CSV. Every field is
// quoted, numbers included, so locales that treat the comma as a decimal
// separator import cleanly.
func WriteCSV(w io.Writer, listings []Listing) error {
	if err := writeCSVRow(w, csvHeader); err != nil {
		return err
	}
	for _, l := range listings {
		rating := ""
		if l.Rating != nil {
			rating = strconv.FormatFloat(*l.Rating, 'f', -1, 64)
		}
		ratingCount := ""
		if l.RatingCount != nil {
			ratingCount = strconv.Itoa(*l.RatingCount)
		}
		openNow := ""
		if l.OpenNow != nil {
			if *l.OpenNow {
				openNow = "Sim"
			} else {
				openNow = "Não"
			}
		}
		row := []string{
			l.Name,
			strconv.FormatFloat(l.Lat, 'f', -1, 64),
			strconv.FormatFloat(l.Lng, 'f', -1, 64),
			strconv.FormatFloat(l.DistanceM, 'f', -1, 64),
			rating,
			ratingCount,
			openNow,
			l.Address,
			l.MapsURL,
		}
		if err := writeCSVRow(w, row); err != nil {
			return err
		}
	}
	return nil
}

func writeCSVRow(w io.Writer, fields []string) error {
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
	}
	_, err := io.WriteString(w, strings.Join(quoted, ",")+"\r\n")
	return err
}

// CSVFilename builds the export attachment name from the query point.
func CSVFilename(lat, lng float64) string {
	return fmt.Sprintf("competitors-%s-%s.csv",
		strconv.FormatFloat(lat, 'f', -1, 64),
		strconv.FormatFloat(lng, 'f', -1, 64))
}
