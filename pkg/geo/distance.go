package geo

import "math"

// radPerDeg converts degrees to radians
const radPerDeg = math.Pi / 180

// Mean Earth radius in each supported unit
const (
	earthRadiusMiles      = 3956
	earthRadiusKilometers = 6371
	earthRadiusFeet       = 20887680
	earthRadiusMeters     = 6371000
)

// Distance is a great-circle distance expressed in several units
type Distance struct {
	Miles      float64
	Kilometers float64
	Feet       float64
	Meters     float64
}

// Haversine returns the great-circle distance between two points given in
// decimal degrees
func Haversine(lat1, lon1, lat2, lon2 float64) Distance {
	dlat := (lat2 - lat1) * radPerDeg
	dlon := (lon2 - lon1) * radPerDeg

	a := math.Pow(math.Sin(dlat/2), 2) +
		math.Cos(lat1*radPerDeg)*math.Cos(lat2*radPerDeg)*math.Pow(math.Sin(dlon/2), 2)
	c := 2 * math.Asin(math.Sqrt(a))

	return Distance{
		Miles:      earthRadiusMiles * c,
		Kilometers: earthRadiusKilometers * c,
		Feet:       earthRadiusFeet * c,
		Meters:     earthRadiusMeters * c,
	}
}
