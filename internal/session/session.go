// Package session holds the per-user editing state: the point store, the
// buffer configuration, the last input error and the derived viewport.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/mohammed-shakir/geobuffer/internal/cache/exportcache"
	"github.com/mohammed-shakir/geobuffer/internal/composer"
	"github.com/mohammed-shakir/geobuffer/internal/core/model"
	"github.com/mohammed-shakir/geobuffer/internal/core/observability"
	"github.com/mohammed-shakir/geobuffer/internal/export"
	"github.com/mohammed-shakir/geobuffer/internal/geometry"
	"github.com/mohammed-shakir/geobuffer/internal/pointstore"
	"github.com/mohammed-shakir/geobuffer/internal/sessionevents"
	"github.com/mohammed-shakir/geobuffer/internal/viewport"
)

// ErrInvalidDistance is returned for a distance that is not a finite,
// non-negative number. The configuration is left unchanged.
var ErrInvalidDistance = errors.New("invalid buffer distance")

type derived struct {
	ok      bool
	version uint64
	cfg     model.BufferConfig
	geoms   []geometry.Geometry
}

// Session is safe for concurrent use; every method holds the session lock.
type Session struct {
	id      string
	created time.Time

	mu       sync.Mutex
	store    *pointstore.Store
	cfg      model.BufferConfig
	inputErr string
	view     viewport.Viewport
	cache    derived

	events  sessionevents.Publisher
	exports *exportcache.Cache
	log     *slog.Logger
}

func newSession(id string, cfg model.BufferConfig, events sessionevents.Publisher, exports *exportcache.Cache, log *slog.Logger) *Session {
	if events == nil {
		events = sessionevents.Nop{}
	}
	if log == nil {
		log = slog.Default()
	}
	s := &Session{
		id:      id,
		created: time.Now().UTC(),
		store:   pointstore.New(),
		cfg:     cfg,
		events:  events,
		exports: exports,
		log:     log.With("session_id", id),
	}
	s.view = viewport.Compute(nil)
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) Created() time.Time { return s.created }

// AddPoint is the manual-entry path. Fields arrive as typed text.
func (s *Session) AddPoint(name, lat, lng string) (model.Point, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.store.AddRaw(name, lat, lng)
	if err != nil {
		s.inputErr = err.Error()
		s.log.Debug("add point rejected", "name", name, "lat", lat, "lng", lng, "err", err)
		return model.Point{}, err
	}
	s.inputErr = ""
	s.mutated(sessionevents.OpAdd, 1)
	return p, nil
}

// ImportCSV appends every valid row of data and returns how many were added.
func (s *Session) ImportCSV(data []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := pointstore.ParseCSV(data)
	if err != nil {
		var structural *pointstore.ImportStructureError
		if errors.As(err, &structural) {
			s.inputErr = structural.Error()
		} else {
			s.inputErr = fmt.Sprintf("Failed to process CSV: %v", err)
		}
		s.log.Warn("csv import failed", "err", err)
		return 0, err
	}

	added := s.store.AddMany(rows)
	if skipped := len(rows) - added; skipped > 0 {
		s.log.Debug("csv rows skipped", "skipped", skipped)
	}
	s.inputErr = ""
	s.mutated(sessionevents.OpImport, added)
	return added, nil
}

// Click adds a point at a map location, named after the current count.
func (s *Session) Click(lat, lng float64) model.Point {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.store.AddFromClick(lat, lng)
	s.mutated(sessionevents.OpClick, 1)
	return p
}

// DeletePoint removes every point named name.
func (s *Session) DeletePoint(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.store.Remove(name)
	s.mutated(sessionevents.OpDelete, n)
	return n
}

func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.store.Len()
	s.store.Clear()
	s.inputErr = ""
	s.mutated(sessionevents.OpClear, n)
}

func (s *Session) SetBufferShape(shape string) error {
	sh, err := model.ParseBufferShape(shape)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cfg.Shape = sh
	s.configured()
	return nil
}

// SetBufferDistance parses text as meters. Unparsable, negative or
// non-finite values are logged and ignored.
func (s *Session) SetBufferDistance(text string) error {
	d, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || d < 0 || math.IsNaN(d) || math.IsInf(d, 0) {
		s.log.Warn("invalid buffer distance value", "value", text, "err", err)
		return fmt.Errorf("%w: %q", ErrInvalidDistance, text)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cfg.Distance = d
	s.configured()
	return nil
}

func (s *Session) Points() []model.Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Points()
}

func (s *Session) Config() model.BufferConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// InputError is the message for the last rejected entry, or "".
func (s *Session) InputError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inputErr
}

func (s *Session) Viewport() viewport.Viewport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

func (s *Session) Geometries() ([]geometry.Geometry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.geometries()
}

func (s *Session) Summary() (model.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	geoms, err := s.geometries()
	if err != nil {
		return model.Summary{}, err
	}
	return model.Summary{
		Points:   s.store.Len(),
		Buffers:  len(geoms),
		Shape:    s.cfg.Shape.Label(),
		Distance: model.FormatDistance(s.cfg.Distance),
	}, nil
}

// Snapshot is a consistent view of the session for rendering.
type Snapshot struct {
	Points     []model.Point       `json:"points"`
	Geometries []geometry.Geometry `json:"geometries"`
	Summary    model.Summary       `json:"summary"`
	Viewport   viewport.Viewport   `json:"viewport"`
	Config     model.BufferConfig  `json:"config"`
	InputError string              `json:"input_error"`
}

func (s *Session) Snapshot() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	geoms, err := s.geometries()
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		Points:     s.store.Points(),
		Geometries: geoms,
		Summary: model.Summary{
			Points:   s.store.Len(),
			Buffers:  len(geoms),
			Shape:    s.cfg.Shape.Label(),
			Distance: model.FormatDistance(s.cfg.Distance),
		},
		Viewport:   s.view,
		Config:     s.cfg,
		InputError: s.inputErr,
	}, nil
}

func (s *Session) FeatureCollection() (*geojson.FeatureCollection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	geoms, err := s.geometries()
	if err != nil {
		return nil, err
	}
	return composer.Assemble(s.store.Points(), geoms)
}

// ExportGeoJSON returns the GeoJSON document or export.ErrNoData.
func (s *Session) ExportGeoJSON(ctx context.Context) ([]byte, error) {
	return s.export(ctx, export.FormatGeoJSON, export.GeoJSON)
}

// ExportShapefile returns the zipped Shapefile layers or export.ErrNoData.
func (s *Session) ExportShapefile(ctx context.Context) ([]byte, error) {
	return s.export(ctx, export.FormatShapefile, export.Shapefile)
}

func (s *Session) export(ctx context.Context, format string, render func(*geojson.FeatureCollection) ([]byte, error)) ([]byte, error) {
	s.mu.Lock()
	points := s.store.Points()
	cfg := s.cfg
	geoms, err := s.geometries()
	s.mu.Unlock()

	if err != nil {
		observability.ObserveExport(format, "error", 0)
		return nil, &export.Failure{Format: format, Err: err}
	}
	if len(points) == 0 {
		observability.ObserveExport(format, "empty", 0)
		return nil, export.ErrNoData
	}

	b, err := s.exports.GetOrRender(ctx, format, points, cfg, func() ([]byte, error) {
		fc, err := composer.Assemble(points, geoms)
		if err != nil {
			return nil, &export.Failure{Format: format, Err: err}
		}
		return render(fc)
	})
	if err != nil {
		observability.ObserveExport(format, "error", 0)
		s.log.ErrorContext(ctx, "export failed", "format", format, "err", err)
		return nil, err
	}
	observability.ObserveExport(format, "ok", len(b))
	return b, nil
}

// geometries returns the derived buffers, re-deriving only when the points
// or the configuration changed since the last call. Caller holds mu.
func (s *Session) geometries() ([]geometry.Geometry, error) {
	v := s.store.Version()
	if s.cache.ok && s.cache.version == v && s.cache.cfg == s.cfg {
		return s.cache.geoms, nil
	}
	geoms, err := geometry.Derive(s.store.Points(), s.cfg)
	if err != nil {
		return nil, err
	}
	s.cache = derived{ok: true, version: v, cfg: s.cfg, geoms: geoms}
	return geoms, nil
}

// mutated runs after every point operation. Caller holds mu.
func (s *Session) mutated(op sessionevents.Op, affected int) {
	s.view = viewport.Compute(s.store.Points())
	observability.IncPointOp(string(op), affected)
	s.events.Publish(sessionevents.Event{
		Session:  s.id,
		Op:       op,
		Points:   s.store.Len(),
		Affected: affected,
		Version:  s.store.Version(),
	})
}

// configured runs after a buffer setting changes. Caller holds mu.
func (s *Session) configured() {
	s.events.Publish(sessionevents.Event{
		Session:  s.id,
		Op:       sessionevents.OpConfigure,
		Points:   s.store.Len(),
		Version:  s.store.Version(),
		Shape:    string(s.cfg.Shape),
		Distance: s.cfg.Distance,
	})
}
