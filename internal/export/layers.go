package export

import (
	"fmt"
	"unicode/utf8"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/mohammed-shakir/geobuffer/internal/composer"
)

const (
	defaultFieldWidth = 50
	maxFieldWidth     = 254
)

func writePointLayer(path string, feats []*geojson.Feature) error {
	names := make([]string, len(feats))
	width := defaultFieldWidth
	for i, f := range feats {
		names[i] = f.Properties.MustString(composer.PropName, "")
		width = max(width, min(len(names[i]), maxFieldWidth))
	}

	w, err := shp.Create(path, shp.POINT)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer w.Close()

	if err := w.SetFields([]shp.Field{shp.StringField(composer.PropName, uint8(width))}); err != nil {
		return fmt.Errorf("set point fields: %w", err)
	}
	for i, f := range feats {
		p, ok := f.Geometry.(orb.Point)
		if !ok {
			return fmt.Errorf("point feature %d has %T geometry", i, f.Geometry)
		}
		n := w.Write(&shp.Point{X: p.Lon(), Y: p.Lat()})
		if err := w.WriteAttribute(int(n), 0, truncate(names[i], width)); err != nil {
			return fmt.Errorf("point %d attribute: %w", i, err)
		}
	}
	return nil
}

func writePolygonLayer(path string, feats []*geojson.Feature) error {
	w, err := shp.Create(path, shp.POLYGON)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer w.Close()

	fields := []shp.Field{
		shp.StringField(composer.PropType, defaultFieldWidth),
		shp.StringField(composer.PropShape, defaultFieldWidth),
	}
	if err := w.SetFields(fields); err != nil {
		return fmt.Errorf("set buffer fields: %w", err)
	}
	for i, f := range feats {
		poly, ok := f.Geometry.(orb.Polygon)
		if !ok {
			return fmt.Errorf("buffer feature %d has %T geometry", i, f.Geometry)
		}
		parts := make([][]shp.Point, 0, len(poly))
		for _, ring := range poly {
			cw := clockwise(ring)
			pts := make([]shp.Point, len(cw))
			for j, c := range cw {
				pts[j] = shp.Point{X: c[0], Y: c[1]}
			}
			parts = append(parts, pts)
		}
		pg := shp.Polygon(*shp.NewPolyLine(parts))
		n := w.Write(&pg)

		attrs := []string{
			f.Properties.MustString(composer.PropType, ""),
			f.Properties.MustString(composer.PropShape, ""),
		}
		for field, v := range attrs {
			if err := w.WriteAttribute(int(n), field, truncate(v, defaultFieldWidth)); err != nil {
				return fmt.Errorf("buffer %d attribute %d: %w", i, field, err)
			}
		}
	}
	return nil
}

// truncate cuts s to at most n bytes on a rune boundary; dbf fields are
// fixed width.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
