// Package router exposes sessions over HTTP.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/geobuffer/internal/logger"
	"github.com/mohammed-shakir/geobuffer/internal/mapper"
	"github.com/mohammed-shakir/geobuffer/internal/session"
)

// MaxUploadBytes bounds CSV uploads and JSON bodies.
const MaxUploadBytes = 10 << 20

// Sessions is the subset of session.Manager the handlers need.
type Sessions interface {
	Create() *session.Session
	Get(id string) (*session.Session, error)
	Delete(id string) error
}

type API struct {
	sessions Sessions
	cells    mapper.Interface
	h3Res    int
	log      *slog.Logger
}

func New(sessions Sessions, cells mapper.Interface, h3Res int, log *slog.Logger) *API {
	if log == nil {
		log = slog.Default()
	}
	return &API{sessions: sessions, cells: cells, h3Res: h3Res, log: log}
}

// Mount registers the session routes on r.
func (a *API) Mount(r chi.Router) {
	r.Post("/sessions", a.createSession)
	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Use(a.withSession)

		r.Get("/", a.getSession)
		r.Delete("/", a.deleteSession)

		r.Post("/points", a.addPoint)
		r.Post("/points/click", a.clickPoint)
		r.Post("/points/csv", a.importCSV)
		r.Delete("/points", a.clearPoints)
		r.Delete("/points/{name}", a.deletePoint)

		r.Put("/buffer", a.setBuffer)

		r.Get("/export", a.export)
		r.Get("/export.geojson", a.exportGeoJSON)
		r.Get("/export.zip", a.exportShapefile)

		r.Get("/cells", a.getCells)
	})
}

type ctxKey struct{}

// withSession resolves {id} once for every session route.
func (a *API) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		s, err := a.sessions.Get(id)
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		ctx := context.WithValue(r.Context(), ctxKey{}, s)
		ctx = logger.WithSession(ctx, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFrom(r *http.Request) *session.Session {
	s, _ := r.Context().Value(ctxKey{}).(*session.Session)
	return s
}

func (a *API) createSession(w http.ResponseWriter, r *http.Request) {
	s := a.sessions.Create()
	a.log.InfoContext(logger.WithSession(r.Context(), s.ID()), "session created")
	w.Header().Set("Location", "/sessions/"+s.ID())
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":     s.ID(),
		"config": s.Config(),
	})
}

func (a *API) getSession(w http.ResponseWriter, r *http.Request) {
	snap, err := sessionFrom(r).Snapshot()
	if err != nil {
		a.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (a *API) deleteSession(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r)
	if err := a.sessions.Delete(s.ID()); err != nil && !errors.Is(err, session.ErrNotFound) {
		a.internalError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) internalError(w http.ResponseWriter, r *http.Request, err error) {
	a.log.ErrorContext(r.Context(), "request failed", "err", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeNotice(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"notice": msg})
}
