package export

import (
	"encoding/json"

	"github.com/paulmach/orb/geojson"

	"github.com/mohammed-shakir/geobuffer/internal/composer"
)

// GeoJSON renders fc as a 2-space indented UTF-8 FeatureCollection.
func GeoJSON(fc *geojson.FeatureCollection) ([]byte, error) {
	if pts, _ := composer.Split(fc); len(pts) == 0 {
		return nil, ErrNoData
	}
	b, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return nil, fail(FormatGeoJSON, err)
	}
	return b, nil
}
