package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/geobuffer/internal/pointstore"
)

// textValue accepts a JSON string or a bare number and keeps the raw text,
// so form and JSON bodies share one validation path.
type textValue string

func (v *textValue) UnmarshalJSON(b []byte) error {
	switch {
	case string(b) == "null":
		*v = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = textValue(s)
	default:
		*v = textValue(b)
	}
	return nil
}

type pointInput struct {
	Name textValue `json:"name"`
	Lat  textValue `json:"lat"`
	Lng  textValue `json:"lng"`
}

func isJSON(r *http.Request) bool {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return mt == "application/json"
}

func parsePointInput(r *http.Request) (pointInput, error) {
	var in pointInput
	if isJSON(r) {
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			return pointInput{}, fmt.Errorf("decode body: %w", err)
		}
		return in, nil
	}
	if err := r.ParseForm(); err != nil {
		return pointInput{}, fmt.Errorf("parse form: %w", err)
	}
	in.Name = textValue(r.PostForm.Get("name"))
	in.Lat = textValue(r.PostForm.Get("lat"))
	in.Lng = textValue(r.PostForm.Get("lng"))
	return in, nil
}

func (a *API) addPoint(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	in, err := parsePointInput(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := sessionFrom(r).AddPoint(string(in.Name), string(in.Lat), string(in.Lng))
	var ve *pointstore.ValidationError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusUnprocessableEntity, ve.Error())
	case err != nil:
		a.internalError(w, r, err)
	default:
		writeJSON(w, http.StatusCreated, p)
	}
}

type clickInput struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

func (a *API) clickPoint(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	var in clickInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "decode body: "+err.Error())
		return
	}
	if in.Lat == nil || in.Lng == nil || !finite(*in.Lat) || !finite(*in.Lng) {
		writeError(w, http.StatusBadRequest, "lat and lng are required numbers")
		return
	}
	writeJSON(w, http.StatusCreated, sessionFrom(r).Click(*in.Lat, *in.Lng))
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

// readUpload returns the "file" part of a multipart form, or the raw body.
func readUpload(r *http.Request) ([]byte, error) {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mt != "multipart/form-data" {
		return io.ReadAll(r.Body)
	}
	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		return nil, fmt.Errorf("parse multipart: %w", err)
	}
	f, _, err := r.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("missing file part: %w", err)
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (a *API) importCSV(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	data, err := readUpload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s := sessionFrom(r)
	added, err := s.ImportCSV(data)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, s.InputError())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{
		"added":  added,
		"points": len(s.Points()),
	})
}

func (a *API) deletePoint(w http.ResponseWriter, r *http.Request) {
	// chi matches on RawPath when the request carried escapes like %2F;
	// otherwise the param is already decoded.
	name := chi.URLParam(r, "name")
	if r.URL.RawPath != "" {
		var err error
		if name, err = url.PathUnescape(name); err != nil {
			writeError(w, http.StatusBadRequest, "invalid point name")
			return
		}
	}
	if strings.TrimSpace(name) == "" {
		writeError(w, http.StatusBadRequest, "invalid point name")
		return
	}
	n := sessionFrom(r).DeletePoint(name)
	writeJSON(w, http.StatusOK, map[string]int{"removed": n})
}

func (a *API) clearPoints(w http.ResponseWriter, r *http.Request) {
	sessionFrom(r).Clear()
	w.WriteHeader(http.StatusNoContent)
}

type bufferInput struct {
	Shape    *string    `json:"shape"`
	Distance *textValue `json:"distance"`
}

func (a *API) setBuffer(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	var in bufferInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "decode body: "+err.Error())
		return
	}

	s := sessionFrom(r)
	if in.Shape != nil {
		if err := s.SetBufferShape(*in.Shape); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
	}
	if in.Distance != nil {
		if err := s.SetBufferDistance(string(*in.Distance)); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, s.Config())
}
