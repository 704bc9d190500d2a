// Package pointstore holds the ordered collection of named points of one
// session. It is not safe for concurrent use; callers serialize mutations.
package pointstore

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mohammed-shakir/geobuffer/internal/core/model"
)

const (
	minLat = -90
	maxLat = 90
	minLng = -180
	maxLng = 180
)

// Row is an unparsed candidate point, as read from a CSV record.
type Row struct {
	Name string
	Lat  string
	Lng  string
}

type Store struct {
	points  []model.Point
	version uint64
}

func New() *Store { return &Store{} }

// Version increases on every successful mutation.
func (s *Store) Version() uint64 { return s.version }

func (s *Store) Len() int { return len(s.points) }

// Points returns a copy in insertion order.
func (s *Store) Points() []model.Point {
	out := make([]model.Point, len(s.points))
	copy(out, s.points)
	return out
}

// Add appends a point. Duplicate names are allowed.
func (s *Store) Add(name string, lat, lng float64) (model.Point, error) {
	p, err := validate(name, lat, lng)
	if err != nil {
		return model.Point{}, err
	}
	s.points = append(s.points, p)
	s.version++
	return p, nil
}

// AddRaw is the manual-entry path: all three fields arrive as text.
func (s *Store) AddRaw(name, lat, lng string) (model.Point, error) {
	// the name is kept as typed; only the coordinates are trimmed
	lat = strings.TrimSpace(lat)
	lng = strings.TrimSpace(lng)
	if strings.TrimSpace(name) == "" || lat == "" || lng == "" {
		return model.Point{}, errMissingFields
	}
	la, lo, err := parseLatLng(lat, lng)
	if err != nil {
		return model.Point{}, err
	}
	return s.Add(name, la, lo)
}

// AddMany validates each row on its own and appends the valid ones in order.
// Invalid rows are dropped without error.
func (s *Store) AddMany(rows []Row) int {
	added := 0
	for _, r := range rows {
		lat, lng, err := parseLatLng(strings.TrimSpace(r.Lat), strings.TrimSpace(r.Lng))
		if err != nil {
			continue
		}
		p, err := validate(r.Name, lat, lng)
		if err != nil {
			continue
		}
		s.points = append(s.points, p)
		added++
	}
	if added > 0 {
		s.version++
	}
	return added
}

// Remove deletes every point with the given name and reports how many went.
func (s *Store) Remove(name string) int {
	kept := s.points[:0]
	removed := 0
	for _, p := range s.points {
		if p.Name == name {
			removed++
			continue
		}
		kept = append(kept, p)
	}
	// zero the tail so removed points are not retained by the backing array
	for i := len(kept); i < len(s.points); i++ {
		s.points[i] = model.Point{}
	}
	s.points = kept
	if removed > 0 {
		s.version++
	}
	return removed
}

func (s *Store) Clear() {
	s.points = nil
	s.version++
}

// AddFromClick names the point "Point {N+1}" and rounds to 6 decimals.
// Latitude is clamped and longitude wrapped into range, since map widgets
// report coordinates past the antimeridian when the world repeats.
func (s *Store) AddFromClick(lat, lng float64) model.Point {
	p := model.Point{
		Name: fmt.Sprintf("Point %d", len(s.points)+1),
		Lat:  round6(clamp(lat, minLat, maxLat)),
		Lng:  round6(wrapLng(lng)),
	}
	s.points = append(s.points, p)
	s.version++
	return p
}

func validate(name string, lat, lng float64) (model.Point, error) {
	if strings.TrimSpace(name) == "" {
		return model.Point{}, errMissingFields
	}
	// written as negated ranges so NaN is rejected too
	if !(lat >= minLat && lat <= maxLat) {
		return model.Point{}, rangeError("lat", minLat, maxLat)
	}
	if !(lng >= minLng && lng <= maxLng) {
		return model.Point{}, rangeError("lng", minLng, maxLng)
	}
	return model.Point{Name: name, Lat: lat, Lng: lng}, nil
}

func parseLatLng(lat, lng string) (float64, float64, error) {
	la, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return 0, 0, parseError("lat", lat)
	}
	lo, err := strconv.ParseFloat(lng, 64)
	if err != nil {
		return 0, 0, parseError("lng", lng)
	}
	return la, lo, nil
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func wrapLng(v float64) float64 {
	if v >= minLng && v <= maxLng {
		return v
	}
	w := math.Mod(v+180, 360)
	if w < 0 {
		w += 360
	}
	return w - 180
}
