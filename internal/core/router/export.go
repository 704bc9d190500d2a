package router

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/mohammed-shakir/geobuffer/internal/composer"
	"github.com/mohammed-shakir/geobuffer/internal/export"
	h3mapper "github.com/mohammed-shakir/geobuffer/internal/mapper/h3"
)

// export picks the format from ?format= or the Accept header.
func (a *API) export(w http.ResponseWriter, r *http.Request) {
	n := composer.NegotiateFormat(composer.NegotiationInput{
		AcceptHeader:  r.Header.Get("Accept"),
		OutputFormat:  r.URL.Query().Get("format"),
		DefaultFormat: composer.FormatGeoJSON,
	})
	if n.Format == composer.FormatShapefile {
		a.exportShapefile(w, r)
		return
	}
	a.exportGeoJSON(w, r)
}

func (a *API) exportGeoJSON(w http.ResponseWriter, r *http.Request) {
	b, err := sessionFrom(r).ExportGeoJSON(r.Context())
	a.writeExport(w, r, export.FormatGeoJSON, composer.ContentTypeGeoJSON, export.GeoJSONFilename, b, err)
}

func (a *API) exportShapefile(w http.ResponseWriter, r *http.Request) {
	b, err := sessionFrom(r).ExportShapefile(r.Context())
	a.writeExport(w, r, export.FormatShapefile, composer.ContentTypeZip, export.ShapefileFilename, b, err)
}

func (a *API) writeExport(w http.ResponseWriter, r *http.Request, format, contentType, filename string, b []byte, err error) {
	var f *export.Failure
	switch {
	case errors.Is(err, export.ErrNoData):
		writeNotice(w, http.StatusNotFound, export.NoticeNoData)
		return
	case errors.As(err, &f):
		writeNotice(w, http.StatusInternalServerError, f.Notice())
		return
	case err != nil:
		notice := export.NoticeShapefileFailed
		if format == export.FormatGeoJSON {
			notice = export.NoticeGeoJSONFailed
		}
		a.log.ErrorContext(r.Context(), "export failed", "format", format, "err", err)
		writeNotice(w, http.StatusInternalServerError, notice)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(b)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

type cellsResponse struct {
	Res      int                  `json:"res"`
	Points   []h3mapper.CellCount `json:"points"`
	Coverage []string             `json:"coverage,omitempty"`
	// CoverageOmitted is set when the buffers exceed the mapper's cell budget.
	CoverageOmitted bool `json:"coverage_omitted,omitempty"`
}

func (a *API) getCells(w http.ResponseWriter, r *http.Request) {
	res := a.h3Res
	if raw := strings.TrimSpace(r.URL.Query().Get("res")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 || v > 15 {
			writeError(w, http.StatusBadRequest, "res must be an integer in [0,15]")
			return
		}
		res = v
	}
	if a.cells == nil {
		writeError(w, http.StatusNotImplemented, "cell index unavailable")
		return
	}

	s := sessionFrom(r)
	counts, err := a.cells.PointCells(s.Points(), res)
	if err != nil {
		a.internalError(w, r, err)
		return
	}
	if counts == nil {
		counts = []h3mapper.CellCount{}
	}
	out := cellsResponse{Res: res, Points: counts}

	geoms, err := s.Geometries()
	if err != nil {
		a.internalError(w, r, err)
		return
	}
	out.Coverage, err = a.cells.BufferCoverage(geoms, res)
	switch {
	case errors.Is(err, h3mapper.ErrCoverageTooLarge):
		out.CoverageOmitted = true
	case err != nil:
		a.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
