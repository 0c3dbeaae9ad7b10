// Package geo computes great-circle distances.
package geo

import (
	"math"

	"github.com/okian/werkstatt/internal/domain/model"
)

// EarthRadiusKM is the mean Earth radius (IUGG).
const EarthRadiusKM = 6371.0088

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// Haversine returns the unrounded distance between two points in kilometers.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := toRadians(lat1)
	phi2 := toRadians(lat2)
	dPhi := toRadians(lat2 - lat1)
	dLambda := toRadians(lon2 - lon1)

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*
			math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKM * c
}

// HaversineKM returns the distance between a and b in kilometers rounded to
// two decimals, or nil when either point is missing.
func HaversineKM(a, b *model.Coordinate) *float64 {
	if a == nil || b == nil {
		return nil
	}
	d := Round2(Haversine(a.Lat, a.Lon, b.Lat, b.Lon))
	return &d
}

// Round2 rounds v to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
