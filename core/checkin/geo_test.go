package checkin

import (
	"math"
	"testing"
)

func TestDistanceMeters(t *testing.T) {
	kin := Coordinate{Lat: -4.325, Lng: 15.3222}     // Kinshasa
	lub := Coordinate{Lat: -11.6876, Lng: 27.5026}   // Lubumbashi
	paris := Coordinate{Lat: 48.8566, Lng: 2.3522}   // Paris
	london := Coordinate{Lat: 51.5074, Lng: -0.1278} // London

	tests := []struct {
		name      string
		a, b      Coordinate
		want      float64 // meters
		tolerance float64
	}{
		{name: "same point", a: kin, b: kin, want: 0, tolerance: 0},
		{name: "paris-london", a: paris, b: london, want: 343_500, tolerance: 1_000},
		{name: "kinshasa-lubumbashi", a: kin, b: lub, want: 1_563_000, tolerance: 10_000},
		{name: "small offset", a: Coordinate{Lat: 0, Lng: 0}, b: Coordinate{Lat: 0, Lng: 0.001}, want: 111.32, tolerance: 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceMeters(tt.a, tt.b)
			if math.Abs(got-tt.want) > tt.tolerance {
				t.Errorf("DistanceMeters() = %f; want %f (±%f)", got, tt.want, tt.tolerance)
			}
			// distance is symmetric
			if rev := DistanceMeters(tt.b, tt.a); rev != got {
				t.Errorf("DistanceMeters() not symmetric: %f != %f", got, rev)
			}
		})
	}
}

func TestGeofenceContains(t *testing.T) {
	center := Coordinate{Lat: -4.325, Lng: 15.3222}
	fence := Geofence{Center: center, RadiusMeters: 100}

	// ~0.001° of longitude at this latitude is ~110m
	inside := Coordinate{Lat: center.Lat, Lng: center.Lng + 0.0004}  // ~45m
	outside := Coordinate{Lat: center.Lat, Lng: center.Lng + 0.0014} // ~155m

	if !fence.Contains(center) {
		t.Error("Contains(center) = false; want true")
	}
	if !fence.Contains(inside) {
		t.Errorf("Contains(inside) = false; want true (dist %f)", DistanceMeters(inside, center))
	}
	if fence.Contains(outside) {
		t.Errorf("Contains(outside) = true; want false (dist %f)", DistanceMeters(outside, center))
	}
}
