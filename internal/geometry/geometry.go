// Package geometry turns points and a buffer configuration into buffer
// geometries, and polygonizes them for export.
//
// Offsets use a local planar approximation centred on each point's own
// latitude: one degree of latitude is taken as 111132.954 m and one degree of
// longitude as 111320·cos(lat) m. Longitude offsets diverge as cos(lat)
// approaches zero near the poles.
package geometry

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/geobuffer/internal/core/model"
)

const (
	MetersPerDegreeLat        = 111132.954
	MetersPerDegreeLngEquator = 111320.0

	// CircleSegments is the vertex count of an exported circle, before closing.
	CircleSegments = 32
)

type Style struct {
	Color       string  `json:"color"`
	FillColor   string  `json:"fillColor"`
	FillOpacity float64 `json:"fillOpacity"`
}

var DefaultStyle = Style{Color: "#8B5CF6", FillColor: "#A78BFA", FillOpacity: 0.3}

// Geometry is either a Circle or a Rectangle. The set is closed: switch on
// the concrete type.
type Geometry interface {
	Shape() model.BufferShape
	sealed()
}

// Circle is a true circle primitive; renderers project the metric radius.
type Circle struct {
	Center       model.LatLng
	RadiusMeters float64
	Style        Style
}

func (Circle) Shape() model.BufferShape { return model.ShapeCircle }
func (Circle) sealed()                  {}

func (c Circle) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type        string       `json:"type"`
		Center      model.LatLng `json:"center"`
		Radius      float64      `json:"radius"`
		PathOptions Style        `json:"path_options"`
	}{"circle", c.Center, c.RadiusMeters, c.Style})
}

// Rectangle is axis-aligned in lat/lng space. Bounds uses orb's x=lng, y=lat.
type Rectangle struct {
	Bounds orb.Bound
	Style  Style
}

func (Rectangle) Shape() model.BufferShape { return model.ShapeSquare }
func (Rectangle) sealed()                  {}

func (r Rectangle) SouthWest() model.LatLng {
	return model.LatLng{Lat: r.Bounds.Min.Lat(), Lng: r.Bounds.Min.Lon()}
}

func (r Rectangle) NorthEast() model.LatLng {
	return model.LatLng{Lat: r.Bounds.Max.Lat(), Lng: r.Bounds.Max.Lon()}
}

// MarshalJSON emits bounds as [[swLat,swLng],[neLat,neLng]], the order map
// widgets expect.
func (r Rectangle) MarshalJSON() ([]byte, error) {
	sw, ne := r.SouthWest(), r.NorthEast()
	return json.Marshal(struct {
		Type        string        `json:"type"`
		Bounds      [2][2]float64 `json:"bounds"`
		PathOptions Style         `json:"path_options"`
	}{"rectangle", [2][2]float64{{sw.Lat, sw.Lng}, {ne.Lat, ne.Lng}}, r.Style})
}

func LatDegreesPerMeter() float64 { return 1 / MetersPerDegreeLat }

func LngDegreesPerMeter(lat float64) float64 {
	return 1 / (MetersPerDegreeLngEquator * math.Cos(lat*math.Pi/180))
}

// Buffer builds the geometry for one point. It has no side effects.
func Buffer(p model.Point, cfg model.BufferConfig) (Geometry, error) {
	switch cfg.Shape {
	case model.ShapeCircle:
		return Circle{Center: p.LatLng(), RadiusMeters: cfg.Distance, Style: DefaultStyle}, nil
	case model.ShapeSquare:
		half := cfg.Distance / 2
		dLat := half * LatDegreesPerMeter()
		dLng := half * LngDegreesPerMeter(p.Lat)
		return Rectangle{
			Bounds: orb.Bound{
				Min: orb.Point{p.Lng - dLng, p.Lat - dLat},
				Max: orb.Point{p.Lng + dLng, p.Lat + dLat},
			},
			Style: DefaultStyle,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported buffer shape %q", cfg.Shape)
	}
}

// Derive returns one geometry per point, in point order.
func Derive(points []model.Point, cfg model.BufferConfig) ([]Geometry, error) {
	out := make([]Geometry, 0, len(points))
	for i, p := range points {
		g, err := Buffer(p, cfg)
		if err != nil {
			return nil, fmt.Errorf("point %d (%s): %w", i, p.Name, err)
		}
		out = append(out, g)
	}
	return out, nil
}
