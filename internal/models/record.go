package models

import "encoding/json"

// RawPoint is a polygon vertex as it appears in the source. A coordinate
// that is missing, null or not a number decodes to nil instead of failing
// the whole document.
type RawPoint struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

func (p *RawPoint) UnmarshalJSON(b []byte) error {
	*p = RawPoint{}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		// null, arrays, strings: treated as an empty point
		return nil
	}
	p.Lat = decodeCoord(fields["lat"])
	p.Lng = decodeCoord(fields["lng"])
	return nil
}

func decodeCoord(raw json.RawMessage) *float64 {
	if len(raw) == 0 {
		return nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil
	}
	return &f
}

// Point returns the vertex as a Point when both coordinates are present and
// valid.
func (p RawPoint) Point() (Point, bool) {
	if p.Lat == nil || p.Lng == nil {
		return Point{}, false
	}
	pt := Point{Lat: *p.Lat, Lng: *p.Lng}
	return pt, pt.Valid()
}

// NewRawPoint is a convenience for building sources in code.
func NewRawPoint(lat, lng float64) RawPoint {
	return RawPoint{Lat: &lat, Lng: &lng}
}

type RawRecord struct {
	ID         string
	Name       string
	Polygon    []RawPoint
	HasPolygon bool
}
