// Package composer assembles points and their buffers into one feature
// collection, and negotiates the export format for it.
package composer

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/mohammed-shakir/geobuffer/internal/core/model"
	"github.com/mohammed-shakir/geobuffer/internal/geometry"
)

const (
	PropName  = "name"
	PropType  = "type"
	PropShape = "shape"

	BufferFeatureType = "buffer"
)

// Assemble emits every point feature first, then every buffer polygon, both
// in point order. Exporters split layers on that ordering.
func Assemble(points []model.Point, geoms []geometry.Geometry) (*geojson.FeatureCollection, error) {
	fc := geojson.NewFeatureCollection()
	fc.Features = make([]*geojson.Feature, 0, len(points)+len(geoms))

	for _, p := range points {
		f := geojson.NewFeature(orb.Point{p.Lng, p.Lat})
		f.Properties[PropName] = p.Name
		fc.Append(f)
	}

	for i, g := range geoms {
		poly, err := geometry.Polygon(g)
		if err != nil {
			return nil, fmt.Errorf("buffer %d: %w", i, err)
		}
		f := geojson.NewFeature(poly)
		f.Properties[PropType] = BufferFeatureType
		f.Properties[PropShape] = string(g.Shape())
		fc.Append(f)
	}
	return fc, nil
}

// Split partitions features by geometry kind, preserving order.
func Split(fc *geojson.FeatureCollection) (points, polygons []*geojson.Feature) {
	if fc == nil {
		return nil, nil
	}
	for _, f := range fc.Features {
		switch f.Geometry.(type) {
		case orb.Point:
			points = append(points, f)
		case orb.Polygon:
			polygons = append(polygons, f)
		}
	}
	return points, polygons
}
