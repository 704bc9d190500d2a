// Package export serializes an assembled feature collection into the
// downloadable GeoJSON document and the zipped Shapefile archive.
package export

import (
	"errors"
	"fmt"
)

const (
	GeoJSONFilename   = "geobuffer_export.geojson"
	ShapefileFilename = "geobuffer_export.zip"

	NoticeNoData          = "No data to export."
	NoticeShapefileFailed = "Failed to generate Shapefile."
	NoticeGeoJSONFailed   = "Failed to generate GeoJSON."
)

// ErrNoData is returned when there are no points to export. It is a notice,
// not a failure.
var ErrNoData = errors.New("no data to export")

// Failure wraps any fault raised while building an export. Callers surface
// Notice() and log the cause.
type Failure struct {
	Format string
	Err    error
}

func (e *Failure) Error() string {
	return fmt.Sprintf("%s export: %v", e.Format, e.Err)
}

func (e *Failure) Unwrap() error { return e.Err }

func (e *Failure) Notice() string {
	if e.Format == FormatGeoJSON {
		return NoticeGeoJSONFailed
	}
	return NoticeShapefileFailed
}

const (
	FormatGeoJSON   = "geojson"
	FormatShapefile = "shapefile"
)

func fail(format string, err error) error {
	return &Failure{Format: format, Err: err}
}
