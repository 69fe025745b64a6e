package property

import (
	"math"

	"github.com/mmcloughlin/geohash"
)

const (
	// geohash precision stored on properties (~1.2m x 0.6m cell)
	storedPrecision = 12
	// default search precision for nearby properties (~4.9km x 4.9km cell)
	DefaultNearbyPrecision = 5

	earthRadiusKm = 6371.0
)

func encodeGeohash(lat, lng float64) string {
	return geohash.EncodeWithPrecision(lat, lng, storedPrecision)
}

// nearbyPrefixes returns the geohash cell holding (lat, lng) at the given precision plus its 8 neighbours,
// so that points right across a cell border are not missed.
func nearbyPrefixes(lat, lng float64, precision uint) []string {
	center := geohash.EncodeWithPrecision(lat, lng, precision)
	return append([]string{center}, geohash.Neighbors(center)...)
}

// distanceKm is the great-circle distance between 2 points.
func distanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	toRad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}
