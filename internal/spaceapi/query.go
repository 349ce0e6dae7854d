package spaceapi

import (
	"errors"
	"fmt"
)

// ErrInvalidQuery marks validation failures rejected before any I/O.
var ErrInvalidQuery = errors.New("invalid query")

// Query is one point+radius demographic lookup request.
type Query struct {
	Lat     float64
	Lng     float64
	RadiusM int
	Segment string
}

// Validate checks coordinate and radius bounds. maxRadiusM <= 0 disables the
// upper radius check.
func (q Query) Validate(maxRadiusM int) error {
	if q.Lat < -90 || q.Lat > 90 {
		return fmt.Errorf("%w: lat %f out of range", ErrInvalidQuery, q.Lat)
	}
	if q.Lng < -180 || q.Lng > 180 {
		return fmt.Errorf("%w: lng %f out of range", ErrInvalidQuery, q.Lng)
	}
	if q.RadiusM <= 0 {
		return fmt.Errorf("%w: radius must be positive", ErrInvalidQuery)
	}
	if maxRadiusM > 0 && q.RadiusM > maxRadiusM {
		return fmt.Errorf("%w: max radius allowed is %dm", ErrInvalidQuery, maxRadiusM)
	}
	return nil
}

// CacheKey rounds coordinates to 5 decimal places (~1.1m) so near-duplicate
// clicks share an entry.
func (q Query) CacheKey() string {
	key := fmt.Sprintf("%.5f,%.5f,%d", q.Lat, q.Lng, q.RadiusM)
	if q.Segment != "" {
		key += "," + q.Segment
	}
	return key
}
