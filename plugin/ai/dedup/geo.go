package dedup

import "math"

// earthRadiusKm is the mean Earth radius used for great-circle distance.
const earthRadiusKm = 6371.0

// DistanceKm returns the Haversine great-circle distance between two points
// in kilometers. It returns +Inf when either point is the (0,0) "unknown"
// sentinel or any coordinate is non-finite, so an absent location can never
// be mistaken for distance zero.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	if !validCoordinates(lat1, lon1) || !validCoordinates(lat2, lon2) {
		return math.Inf(1)
	}

	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

func validCoordinates(lat, lon float64) bool {
	if lat == 0 && lon == 0 {
		return false
	}
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lon) || math.IsInf(lon, 0) {
		return false
	}
	return true
}

func toRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}
