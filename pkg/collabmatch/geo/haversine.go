// Package geo computes great-circle distances between entity coordinates.
package geo

import (
	"math"

	"github.com/himanishpuri/CollabMatch/pkg/models"
)

// EarthRadiusKm is the mean Earth radius used by Distance.
const EarthRadiusKm = 6371.0

// Distance returns the Haversine distance in kilometres between a and b.
// ok is false when either coordinate is missing or not a finite number; callers
// must treat that as "no geospatial information", never as zero distance.
func Distance(a, b *models.Coordinate) (km float64, ok bool) {
	if a == nil || b == nil {
		return 0, false
	}
	if !finite(a.Lat) || !finite(a.Lon) || !finite(b.Lat) || !finite(b.Lon) {
		return 0, false
	}

	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLat := lat2 - lat1
	dLon := radians(b.Lon) - radians(a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusKm * c, true
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
