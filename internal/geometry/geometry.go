// Package geometry validates settlement boundaries and derives their centers.
package geometry

import (
	"errors"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/mr1hm/go-settlements/internal/models"
)

const minPolygonPoints = 3

// DefaultCenter is returned when a center cannot be computed. It sits in
// central Ukraine, where the settlement data comes from.
var DefaultCenter = models.Point{Lat: 49, Lng: 32}

var (
	ErrTooFewPoints      = errors.New("polygon has fewer than 3 points")
	ErrTooFewValidPoints = errors.New("polygon has fewer than 3 valid points")
)

// ValidateAndFix drops vertices that are missing, non-numeric, NaN or out of
// range and returns the remaining ring. It does not touch winding order or
// self-intersections.
func ValidateAndFix(raw []models.RawPoint) (models.Polygon, error) {
	if len(raw) < minPolygonPoints {
		return nil, ErrTooFewPoints
	}

	poly := make(models.Polygon, 0, len(raw))
	for _, rp := range raw {
		if p, ok := rp.Point(); ok {
			poly = append(poly, p)
		}
	}

	if len(poly) < minPolygonPoints {
		return nil, ErrTooFewValidPoints
	}
	return poly, nil
}

// Centroid returns the area-weighted centroid of p. Degenerate rings fall
// back to the vertex mean, and anything that still is not a finite point
// yields DefaultCenter.
func Centroid(p models.Polygon) (center models.Point) {
	defer func() {
		if r := recover(); r != nil {
			center = DefaultCenter
		}
	}()

	if len(p) == 0 {
		return DefaultCenter
	}

	c, area := planar.CentroidArea(orb.Polygon{Ring(p)})
	center = models.Point{Lat: c.Lat(), Lng: c.Lon()}
	if area == 0 || !center.Valid() {
		return MeanCenter(p)
	}
	return center
}

// MeanCenter is the arithmetic mean of the vertices.
func MeanCenter(p models.Polygon) models.Point {
	if len(p) == 0 {
		return DefaultCenter
	}

	var lat, lng float64
	for _, pt := range p {
		lat += pt.Lat
		lng += pt.Lng
	}
	n := float64(len(p))
	center := models.Point{Lat: lat / n, Lng: lng / n}
	if !center.Valid() {
		return DefaultCenter
	}
	return center
}

// Ring converts p to a closed orb ring in lng/lat order, appending the first
// vertex when p is open. p itself is never modified.
func Ring(p models.Polygon) orb.Ring {
	ring := make(orb.Ring, 0, len(p)+1)
	for _, pt := range p {
		ring = append(ring, orb.Point{pt.Lng, pt.Lat})
	}
	if len(ring) > 0 && !ring.Closed() {
		ring = append(ring, ring[0])
	}
	return ring
}
