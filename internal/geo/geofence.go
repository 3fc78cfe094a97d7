package geo

import (
	"fmt"
	"math"
)

// EarthRadiusMeters is the mean Earth radius used by the haversine formula.
const EarthRadiusMeters = 6371000.0

// InvalidCoordinateError reports a latitude/longitude outside its valid range
// or a non-finite value.
type InvalidCoordinateError struct {
	Field string
	Value float64
}

func (e *InvalidCoordinateError) Error() string {
	return fmt.Sprintf("invalid coordinate %s=%v", e.Field, e.Value)
}

// ValidateCoordinate checks lat ∈ [-90,90] and lng ∈ [-180,180], both finite.
func ValidateCoordinate(lat, lng float64) error {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || lat < -90 || lat > 90 {
		return &InvalidCoordinateError{Field: "lat", Value: lat}
	}
	if math.IsNaN(lng) || math.IsInf(lng, 0) || lng < -180 || lng > 180 {
		return &InvalidCoordinateError{Field: "lng", Value: lng}
	}
	return nil
}

// Distance returns the great-circle distance in meters between two points.
func Distance(lat1, lng1, lat2, lng2 float64) (float64, error) {
	if err := ValidateCoordinate(lat1, lng1); err != nil {
		return 0, err
	}
	if err := ValidateCoordinate(lat2, lng2); err != nil {
		return 0, err
	}

	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusMeters * c, nil
}

// InCircle reports whether (lat, lng) lies within radiusMeters of the center.
func InCircle(lat, lng, centerLat, centerLng, radiusMeters float64) (bool, error) {
	if math.IsNaN(radiusMeters) || math.IsInf(radiusMeters, 0) || radiusMeters <= 0 {
		return false, fmt.Errorf("invalid radius %v", radiusMeters)
	}
	d, err := Distance(lat, lng, centerLat, centerLng)
	if err != nil {
		return false, err
	}
	return d <= radiusMeters, nil
}

// Point is a polygon vertex in degrees.
type Point struct {
	Lat float64
	Lng float64
}

// InPolygon reports whether (lat, lng) lies inside the polygon described by
// vertices, edges implicitly closing last to first. The polygon is treated as
// simple but not necessarily convex, using the even-odd ray-casting rule.
// Points exactly on an edge or vertex are classified inside; the on-segment
// test runs before the ray cast so the answer does not depend on
// floating-point tie-breaks in the crossing count.
func InPolygon(lat, lng float64, vertices []Point) (bool, error) {
	if err := ValidateCoordinate(lat, lng); err != nil {
		return false, err
	}
	if len(vertices) < 3 {
		return false, fmt.Errorf("polygon requires at least 3 vertices, got %d", len(vertices))
	}
	for _, v := range vertices {
		if err := ValidateCoordinate(v.Lat, v.Lng); err != nil {
			return false, err
		}
	}

	inside := false
	j := len(vertices) - 1
	for i := 0; i < len(vertices); i, j = i+1, i {
		vi, vj := vertices[i], vertices[j]
		if onSegment(lat, lng, vi, vj) {
			return true, nil
		}
		if (vi.Lat > lat) != (vj.Lat > lat) {
			crossLng := (vj.Lng-vi.Lng)*(lat-vi.Lat)/(vj.Lat-vi.Lat) + vi.Lng
			if lng < crossLng {
				inside = !inside
			}
		}
	}
	return inside, nil
}

const onSegmentEpsilon = 1e-12

func onSegment(lat, lng float64, a, b Point) bool {
	cross := (b.Lat-a.Lat)*(lng-a.Lng) - (b.Lng-a.Lng)*(lat-a.Lat)
	if math.Abs(cross) > onSegmentEpsilon {
		return false
	}
	if lat < math.Min(a.Lat, b.Lat) || lat > math.Max(a.Lat, b.Lat) {
		return false
	}
	if lng < math.Min(a.Lng, b.Lng) || lng > math.Max(a.Lng, b.Lng) {
		return false
	}
	return true
}
