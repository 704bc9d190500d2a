// Package viewport derives map framing from the current point set.
package viewport

import (
	"encoding/json"

	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/geobuffer/internal/core/model"
)

const (
	ContinentalZoom = 4.0
	CloseUpZoom     = 13.0
	// FitZoom tells the renderer to fit itself to Bounds.
	FitZoom = 0.0
)

var DefaultCenter = model.LatLng{Lat: 40.7128, Lng: -74.006}

type Viewport struct {
	Center model.LatLng
	Zoom   float64
	// Bounds is nil for fewer than two points.
	Bounds *orb.Bound
}

// Compute is pure; call it after every store mutation.
func Compute(points []model.Point) Viewport {
	switch len(points) {
	case 0:
		return Viewport{Center: DefaultCenter, Zoom: ContinentalZoom}
	case 1:
		return Viewport{Center: points[0].LatLng(), Zoom: CloseUpZoom}
	}

	b := orb.Bound{
		Min: orb.Point{points[0].Lng, points[0].Lat},
		Max: orb.Point{points[0].Lng, points[0].Lat},
	}
	for _, p := range points[1:] {
		b = b.Extend(orb.Point{p.Lng, p.Lat})
	}
	c := b.Center()
	return Viewport{
		Center: model.LatLng{Lat: c.Lat(), Lng: c.Lon()},
		Zoom:   FitZoom,
		Bounds: &b,
	}
}

func (v Viewport) MarshalJSON() ([]byte, error) {
	type out struct {
		Center model.LatLng   `json:"center"`
		Zoom   float64        `json:"zoom"`
		Bounds *[2][2]float64 `json:"bounds,omitempty"`
	}
	o := out{Center: v.Center, Zoom: v.Zoom}
	if v.Bounds != nil {
		o.Bounds = &[2][2]float64{
			{v.Bounds.Min.Lat(), v.Bounds.Min.Lon()},
			{v.Bounds.Max.Lat(), v.Bounds.Max.Lon()},
		}
	}
	return json.Marshal(o)
}
