package checkin

import "math"

// mean Earth radius
const earthRadiusMeters = 6371000.0

type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Geofence softly constrains where a redemption may occur. It is a
// convenience check, not a security boundary.
type Geofence struct {
	Center       Coordinate `json:"center"`
	RadiusMeters float64    `json:"radius_meters"`
}

// DistanceMeters returns the great-circle (haversine) distance between two
// coordinates given in degrees. It is non-negative, symmetric and zero for
// equal points.
func DistanceMeters(a, b Coordinate) float64 {
	if a == b {
		return 0
	}

	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLat := radians(b.Lat - a.Lat)
	dLng := radians(b.Lng - a.Lng)

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLng*sinLng
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}

// Contains reports whether p falls within the fence radius.
func (f Geofence) Contains(p Coordinate) bool {
	return DistanceMeters(p, f.Center) <= f.RadiusMeters
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
