package models

import (
	"encoding/json"
	"fmt"
	"math"
)

type EnrichmentState uint8

const (
	StatePending EnrichmentState = iota
	StateLoading
	StateResolved
)

func (s EnrichmentState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateLoading:
		return "loading"
	case StateResolved:
		return "resolved"
	default:
		return fmt.Sprintf("EnrichmentState(%d)", uint8(s))
	}
}

func (s EnrichmentState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *EnrichmentState) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return err
	}
	switch str {
	case "pending":
		*s = StatePending
	case "loading":
		*s = StateLoading
	case "resolved":
		*s = StateResolved
	default:
		return fmt.Errorf("unknown enrichment state %q", str)
	}
	return nil
}

type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether p is a finite WGS84 coordinate.
func (p Point) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lng, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// Polygon is an ordered ring of at least three valid points. It is not
// required to be closed.
type Polygon []Point

type Settlement struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Polygon       Polygon           `json:"polygon"`
	Center        Point             `json:"center"`
	Color         string            `json:"color"`
	DisplayName   string            `json:"display_name"`
	Address       map[string]string `json:"address,omitempty"`
	GeocodeDetail json.RawMessage   `json:"geocode_detail,omitempty"`
	State         EnrichmentState   `json:"state"`
}

// Coordinates formats the center the way the map popups show it.
func (s *Settlement) Coordinates() string {
	return fmt.Sprintf("%.4f, %.4f", s.Center.Lat, s.Center.Lng)
}

// ResetEnrichment drops any geocoded payload and returns s to pending.
func (s *Settlement) ResetEnrichment() {
	s.State = StatePending
	s.DisplayName = s.Name
	s.Address = nil
	s.GeocodeDetail = nil
}

// Apply writes a geocode result onto s and marks it resolved. A nil result
// still resolves s, leaving the source name in place.
func (s *Settlement) Apply(res *GeocodeResult) {
	if res != nil && res.DisplayName != "" {
		s.DisplayName = res.DisplayName
		s.Address = res.Address
		s.GeocodeDetail = res.Raw
	}
	s.State = StateResolved
}

type GeocodeResult struct {
	DisplayName string            `json:"display_name"`
	Address     map[string]string `json:"address,omitempty"`
	Raw         json.RawMessage   `json:"-"`
}
