package h3mapper

import (
	"errors"
	"fmt"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	h3 "github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/geobuffer/internal/core/model"
	"github.com/mohammed-shakir/geobuffer/internal/geometry"
)

// DefaultMaxCoverageCells bounds one BufferCoverage call. A 10 km circle
// at res 10 is about 21k cells.
const DefaultMaxCoverageCells = 100_000

// ErrCoverageTooLarge is returned before any polyfill when the buffers
// would cover more than MaxCoverageCells cells.
var ErrCoverageTooLarge = errors.New("buffer coverage exceeds cell budget")

type Mapper struct {
	MaxCoverageCells int
}

func New() *Mapper { return &Mapper{MaxCoverageCells: DefaultMaxCoverageCells} }

type CellCount struct {
	Cell  string `json:"cell"`
	Count int    `json:"count"`
}

// PointCells counts points per H3 cell, sorted by cell.
func (m *Mapper) PointCells(points []model.Point, res int) ([]CellCount, error) {
	if err := validateRes(res); err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(points))
	for _, p := range points {
		c, err := h3.LatLngToCell(h3.LatLng{Lat: p.Lat, Lng: p.Lng}, res)
		if err != nil {
			return nil, fmt.Errorf("h3 cell for %q: %w", p.Name, err)
		}
		counts[c.String()]++
	}

	out := make([]CellCount, 0, len(counts))
	for c, n := range counts {
		out = append(out, CellCount{Cell: c, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cell < out[j].Cell })
	return out, nil
}

// BufferCoverage returns the unique cells whose centers fall inside any
// buffer, sorted. Zero-area buffers cover nothing. The cell count is
// estimated from the buffer areas first and ErrCoverageTooLarge returned
// when it is over budget.
func (m *Mapper) BufferCoverage(geoms []geometry.Geometry, res int) ([]string, error) {
	if err := validateRes(res); err != nil {
		return nil, err
	}
	polys := make([]orb.Polygon, 0, len(geoms))
	for _, g := range geoms {
		poly, err := geometry.Polygon(g)
		if err != nil {
			return nil, err
		}
		if b := poly.Bound(); b.Left() == b.Right() || b.Bottom() == b.Top() {
			continue
		}
		polys = append(polys, poly)
	}

	est, err := EstimateCells(polys, res)
	if err != nil {
		return nil, err
	}
	if limit := m.MaxCoverageCells; limit > 0 && est > float64(limit) {
		return nil, fmt.Errorf("%w: ~%.0f cells at res %d (limit %d)", ErrCoverageTooLarge, est, res, limit)
	}

	seen := make(map[string]struct{})
	var out []string
	for i, poly := range polys {
		cells, err := polyfillOne(toLoop(poly[0]), nil, res)
		if err != nil {
			return nil, fmt.Errorf("buffer %d: %w", i, err)
		}
		for _, c := range cells {
			if _, ok := seen[c]; !ok {
				seen[c] = struct{}{}
				out = append(out, c)
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

// EstimateCells approximates how many res cells the polygons cover, from
// their geodesic area and the average hexagon area. Overlaps count twice.
func EstimateCells(polys []orb.Polygon, res int) (float64, error) {
	if err := validateRes(res); err != nil {
		return 0, err
	}
	cellM2, err := h3.HexagonAreaAvgM2(res)
	if err != nil {
		return 0, fmt.Errorf("h3 hexagon area: %w", err)
	}
	var total float64
	for _, p := range polys {
		total += geo.Area(p)
	}
	return total / cellM2, nil
}

func validateRes(res int) error {
	if res < 0 || res > 15 {
		return fmt.Errorf("invalid H3 resolution %d (must be 0..15)", res)
	}
	return nil
}

// toLoop drops the closing vertex; h3 loops are implicitly closed.
func toLoop(r orb.Ring) h3.GeoLoop {
	loop := make(h3.GeoLoop, 0, len(r))
	for _, p := range r {
		loop = append(loop, h3.LatLng{Lat: p.Lat(), Lng: p.Lon()})
	}
	if len(loop) >= 2 && loop[0] == loop[len(loop)-1] {
		loop = loop[:len(loop)-1]
	}
	return loop
}

func polyfillOne(outer h3.GeoLoop, holes []h3.GeoLoop, res int) ([]string, error) {
	if len(outer) < 3 {
		return nil, errors.New("outer ring has < 3 vertices")
	}
	indexes, err := h3.PolygonToCells(h3.GeoPolygon{GeoLoop: outer, Holes: holes}, res)
	if err != nil {
		return nil, fmt.Errorf("h3 polyfill: %w", err)
	}

	out := make([]string, 0, len(indexes))
	for _, idx := range indexes {
		out = append(out, idx.String())
	}
	sort.Strings(out)
	return out, nil
}
