package domain

// GeofenceType enumerates supported region shapes.
type GeofenceType string

const (
	GeofenceTypeCircle  GeofenceType = "circle"
	GeofenceTypePolygon GeofenceType = "polygon"
)

// LatLng is a WGS84 coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Geofence describes the region that corroborates physical presence at an event.
// A circle carries Center and RadiusMeters; a polygon carries Vertices, edges
// implicitly closing last to first.
type Geofence struct {
	Type         GeofenceType `json:"type"`
	Center       *LatLng      `json:"center,omitempty"`
	RadiusMeters float64      `json:"radius_meters,omitempty"`
	Vertices     []LatLng     `json:"vertices,omitempty"`
}
