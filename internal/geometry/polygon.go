package geometry

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// CircleRing approximates c with CircleSegments vertices in degree space,
// counter-clockwise from due east, closed by repeating the first vertex.
func CircleRing(c Circle) orb.Ring {
	latR := c.RadiusMeters * LatDegreesPerMeter()
	lngR := c.RadiusMeters * LngDegreesPerMeter(c.Center.Lat)

	ring := make(orb.Ring, 0, CircleSegments+1)
	for i := range CircleSegments {
		a := 2 * math.Pi * float64(i) / CircleSegments
		ring = append(ring, orb.Point{
			c.Center.Lng + lngR*math.Cos(a),
			c.Center.Lat + latR*math.Sin(a),
		})
	}
	return append(ring, ring[0])
}

// RectangleRing walks SW, SE, NE, NW and back to SW.
func RectangleRing(r Rectangle) orb.Ring {
	minX, minY := r.Bounds.Min[0], r.Bounds.Min[1]
	maxX, maxY := r.Bounds.Max[0], r.Bounds.Max[1]
	return orb.Ring{
		{minX, minY},
		{maxX, minY},
		{maxX, maxY},
		{minX, maxY},
		{minX, minY},
	}
}

// Polygon returns the export representation of g as a single-ring polygon.
func Polygon(g Geometry) (orb.Polygon, error) {
	switch v := g.(type) {
	case Circle:
		return orb.Polygon{CircleRing(v)}, nil
	case Rectangle:
		return orb.Polygon{RectangleRing(v)}, nil
	default:
		return nil, fmt.Errorf("unknown geometry %T", g)
	}
}
