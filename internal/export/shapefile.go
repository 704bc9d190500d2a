package export

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/mohammed-shakir/geobuffer/internal/composer"
)

const (
	PointsLayer  = "points"
	BuffersLayer = "buffers"

	// WGS84PRJ is written verbatim as every layer's .prj.
	WGS84PRJ = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137,298.257223563]],PRIMEM["Greenwich",0],UNIT["Degree",0.017453292519943295]]`
)

var layerExts = []string{".shp", ".shx", ".dbf"}

// Shapefile writes the point and buffer layers of fc and zips them. A layer
// with no features is left out of the archive. Every fault, panics from the
// shapefile writer included, comes back as *Failure.
func Shapefile(fc *geojson.FeatureCollection) (out []byte, err error) {
	pts, polys := composer.Split(fc)
	if len(pts) == 0 {
		return nil, ErrNoData
	}

	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fail(FormatShapefile, fmt.Errorf("panic: %v", r))
		}
	}()

	dir, err := os.MkdirTemp("", "geobuffer-shp-")
	if err != nil {
		return nil, fail(FormatShapefile, fmt.Errorf("temp dir: %w", err))
	}
	defer func() { _ = os.RemoveAll(dir) }()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	if err := writePointLayer(filepath.Join(dir, PointsLayer+".shp"), pts); err != nil {
		return nil, fail(FormatShapefile, err)
	}
	if err := addLayer(zw, dir, PointsLayer); err != nil {
		return nil, fail(FormatShapefile, err)
	}

	if len(polys) > 0 {
		if err := writePolygonLayer(filepath.Join(dir, BuffersLayer+".shp"), polys); err != nil {
			return nil, fail(FormatShapefile, err)
		}
		if err := addLayer(zw, dir, BuffersLayer); err != nil {
			return nil, fail(FormatShapefile, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fail(FormatShapefile, fmt.Errorf("close zip: %w", err))
	}
	return buf.Bytes(), nil
}

// addLayer copies the three files of one layer into the archive and adds
// the projection file next to them.
func addLayer(zw *zip.Writer, dir, layer string) error {
	for _, ext := range layerExts {
		b, err := os.ReadFile(filepath.Join(dir, layer+ext))
		if err != nil {
			return fmt.Errorf("read %s%s: %w", layer, ext, err)
		}
		if err := writeEntry(zw, layer+ext, b); err != nil {
			return err
		}
	}
	return writeEntry(zw, layer+".prj", []byte(WGS84PRJ))
}

func writeEntry(zw *zip.Writer, name string, b []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("zip create %s: %w", name, err)
	}
	if _, err := w.Write(b); err != nil {
		return fmt.Errorf("zip write %s: %w", name, err)
	}
	return nil
}

// clockwise returns the ring in the winding the Shapefile format uses for
// outer rings, without touching the input.
func clockwise(r orb.Ring) orb.Ring {
	out := r.Clone()
	if out.Orientation() == orb.CCW {
		out.Reverse()
	}
	return out
}
