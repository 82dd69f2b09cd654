package model

import "math"

// CostFunc returns the non-negative cost of travelling between two stops.
type CostFunc func(from, to Stop) float64

// Euclidean treats X/Y as planar coordinates.
func Euclidean(a, b Stop) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Haversine treats Y as latitude and X as longitude and returns meters.
func Haversine(a, b Stop) float64 {
	const R = 6371000.0
	dLat := (b.Y - a.Y) * math.Pi / 180
	dLon := (b.X - a.X) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(a.Y*math.Pi/180)*math.Cos(b.Y*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return R * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Speed converts a distance function into a travel-time function at a constant speed.
func Speed(distance CostFunc, unitsPerTime float64) CostFunc {
	return func(a, b Stop) float64 { return distance(a, b) / unitsPerTime }
}
