package models

// GeoJSON represents a GeoJSON geometry for MongoDB.
// For points, Coordinates is [longitude, latitude].
type GeoJSON struct {
	Type        string    `bson:"type" json:"type"`
	Coordinates []float64 `bson:"coordinates" json:"coordinates"`
}

// NewPoint builds a GeoJSON Point from a longitude/latitude pair.
func NewPoint(lon, lat float64) *GeoJSON {
	return &GeoJSON{Type: "Point", Coordinates: []float64{lon, lat}}
}

// Circle is a radius filter around a center point.
type Circle struct {
	Center   GeoJSON `json:"center"`
	RadiusKM float64 `json:"radius_km"`
}

// Polygon is a single closed ring of [lon, lat] vertices. The first and
// last vertex need not repeat; the store closes the ring.
type Polygon struct {
	Ring [][]float64 `json:"ring"`
}

// ClosedRing returns the ring with the first vertex appended when the
// ring is not already closed, as the $geometry operator requires.
func (p Polygon) ClosedRing() [][]float64 {
	n := len(p.Ring)
	if n == 0 {
		return p.Ring
	}
	first, last := p.Ring[0], p.Ring[n-1]
	if len(first) == 2 && len(last) == 2 && first[0] == last[0] && first[1] == last[1] {
		return p.Ring
	}
	closed := make([][]float64, n+1)
	copy(closed, p.Ring)
	closed[n] = first
	return closed
}
