package api

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/mr1hm/go-settlements/internal/geometry"
	"github.com/mr1hm/go-settlements/internal/models"
)

// toGeoJSON renders settlements as polygon features. Rings are closed on
// output since GeoJSON requires it.
func toGeoJSON(settlements []models.Settlement) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	for _, s := range settlements {
		f := geojson.NewFeature(orb.Polygon{geometry.Ring(s.Polygon)})
		f.ID = s.ID
		f.Properties = geojson.Properties{
			"id":           s.ID,
			"name":         s.Name,
			"display_name": s.DisplayName,
			"color":        s.Color,
			"state":        s.State.String(),
			"center":       []float64{s.Center.Lng, s.Center.Lat},
			"coordinates":  s.Coordinates(),
		}
		if s.Address != nil {
			f.Properties["address"] = s.Address
		}
		fc.Append(f)
	}

	return fc
}
