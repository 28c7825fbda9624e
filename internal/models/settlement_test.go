package models

import (
	"encoding/json"
	"testing"
)

func TestSettlement_Coordinates(t *testing.T) {
	s := Settlement{Center: Point{Lat: 50.45012, Lng: 30.52341}}
	if got := s.Coordinates(); got != "50.4501, 30.5234" {
		t.Errorf("unexpected coordinates %q", got)
	}
}

func TestSettlement_Apply(t *testing.T) {
	s := Settlement{Name: "Kyiv"}
	s.ResetEnrichment()
	if s.State != StatePending || s.DisplayName != "Kyiv" {
		t.Fatalf("unexpected reset state: %+v", s)
	}

	s.Apply(nil)
	if s.State != StateResolved || s.DisplayName != "Kyiv" {
		t.Errorf("expected resolved with source name, got %+v", s)
	}

	s.ResetEnrichment()
	s.Apply(&GeocodeResult{
		DisplayName: "Київ, Україна",
		Address:     map[string]string{"city": "Київ"},
		Raw:         json.RawMessage(`{"display_name":"Київ, Україна"}`),
	})
	if s.DisplayName != "Київ, Україна" || s.Address["city"] != "Київ" || len(s.GeocodeDetail) == 0 {
		t.Errorf("expected payload applied, got %+v", s)
	}

	s.ResetEnrichment()
	if s.Address != nil || s.GeocodeDetail != nil || s.DisplayName != "Kyiv" {
		t.Errorf("expected payload dropped, got %+v", s)
	}
}

func TestEnrichmentState_JSON(t *testing.T) {
	for _, st := range []EnrichmentState{StatePending, StateLoading, StateResolved} {
		b, err := json.Marshal(st)
		if err != nil {
			t.Fatalf("Marshal failed: %v", err)
		}
		var got EnrichmentState
		if err := json.Unmarshal(b, &got); err != nil {
			t.Fatalf("Unmarshal %s failed: %v", b, err)
		}
		if got != st {
			t.Errorf("expected %s, got %s", st, got)
		}
	}

	var st EnrichmentState
	if err := json.Unmarshal([]byte(`"done"`), &st); err == nil {
		t.Error("expected error for unknown state")
	}
}

func TestPoint_Valid(t *testing.T) {
	tests := []struct {
		p    Point
		want bool
	}{
		{Point{Lat: 50, Lng: 30}, true},
		{Point{Lat: -90, Lng: 180}, true},
		{Point{Lat: 91, Lng: 0}, false},
		{Point{Lat: 0, Lng: -181}, false},
	}
	for _, tt := range tests {
		if got := tt.p.Valid(); got != tt.want {
			t.Errorf("%+v: expected %v, got %v", tt.p, tt.want, got)
		}
	}
}

func TestRawPoint_TolerantDecoding(t *testing.T) {
	var pts []RawPoint
	doc := `[{"lat":1,"lng":2}, {"lat":"x","lng":2}, {"lng":2}, null, 5, {"lat":null,"lng":3}]`
	if err := json.Unmarshal([]byte(doc), &pts); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if len(pts) != 6 {
		t.Fatalf("expected 6 points, got %d", len(pts))
	}

	if p, ok := pts[0].Point(); !ok || p.Lat != 1 || p.Lng != 2 {
		t.Errorf("expected (1,2), got %+v %v", p, ok)
	}
	for i, rp := range pts[1:] {
		if _, ok := rp.Point(); ok {
			t.Errorf("point %d: expected invalid", i+1)
		}
	}
}
