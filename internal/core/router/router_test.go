package router

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	h3mapper "github.com/mohammed-shakir/geobuffer/internal/mapper/h3"
	"github.com/mohammed-shakir/geobuffer/internal/session"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	m, err := session.NewManager(session.Options{})
	if err != nil {
		t.Fatal(err)
	}
	r := chi.NewRouter()
	New(m, h3mapper.New(), 8, slog.New(slog.NewTextHandler(io.Discard, nil))).Mount(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, u, contentType string, body io.Reader) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, u, body)
	if err != nil {
		t.Fatal(err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func createSession(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	resp := do(t, http.MethodPost, srv.URL+"/sessions", "", nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status=%d", resp.StatusCode)
	}
	return srv.URL + "/sessions/" + decode[map[string]any](t, resp)["id"].(string)
}

func TestUnknownSession(t *testing.T) {
	srv := newServer(t)
	resp := do(t, http.MethodGet, srv.URL+"/sessions/nope", "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status=%d", resp.StatusCode)
	}
}

func TestAddPoint_JSONAndForm(t *testing.T) {
	srv := newServer(t)
	base := createSession(t, srv)

	resp := do(t, http.MethodPost, base+"/points", "application/json",
		strings.NewReader(`{"name":"HQ","lat":"40.7128","lng":-74.006}`))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("json add status=%d", resp.StatusCode)
	}

	form := url.Values{"name": {"B"}, "lat": {"100"}, "lng": {"0"}}
	resp = do(t, http.MethodPost, base+"/points", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("form add status=%d", resp.StatusCode)
	}
	if got := decode[map[string]string](t, resp)["error"]; got != "Invalid coordinates: Latitude must be between -90 and 90." {
		t.Fatalf("error=%q", got)
	}

	snap := decode[map[string]any](t, do(t, http.MethodGet, base, "", nil))
	if pts := snap["points"].([]any); len(pts) != 1 {
		t.Fatalf("points=%v", pts)
	}
	if snap["input_error"] != "Invalid coordinates: Latitude must be between -90 and 90." {
		t.Fatalf("input_error=%v", snap["input_error"])
	}
	sum := snap["summary"].(map[string]any)
	if sum["shape"] != "Circle" || sum["distance"] != "1000.00 meters" || sum["buffers"] != float64(1) {
		t.Fatalf("summary=%v", sum)
	}
}

func TestCSVUpload_MultipartAndRaw(t *testing.T) {
	srv := newServer(t)
	base := createSession(t, srv)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "points.csv")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write([]byte("name,lat,lng\nA,1,2\nB,3,4\nbad,x,1\n"))
	_ = mw.Close()

	resp := do(t, http.MethodPost, base+"/points/csv", mw.FormDataContentType(), &buf)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	if got := decode[map[string]int](t, resp); got["added"] != 2 || got["points"] != 2 {
		t.Fatalf("resp=%v", got)
	}

	resp = do(t, http.MethodPost, base+"/points/csv", "text/csv", strings.NewReader("x,y\n1,2\n"))
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	if got := decode[map[string]string](t, resp)["error"]; got != "CSV must have 'name', 'lat', and 'lng' columns." {
		t.Fatalf("error=%q", got)
	}
}

func TestClickDeleteClear(t *testing.T) {
	srv := newServer(t)
	base := createSession(t, srv)

	resp := do(t, http.MethodPost, base+"/points/click", "application/json", strings.NewReader(`{"lat":51.5000004,"lng":-0.1}`))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("click status=%d", resp.StatusCode)
	}
	p := decode[map[string]any](t, resp)
	if p["name"] != "Point 1" || p["lat"] != 51.5 {
		t.Fatalf("point=%v", p)
	}

	resp = do(t, http.MethodPost, base+"/points/click", "application/json", strings.NewReader(`{"lat":1}`))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing lng status=%d", resp.StatusCode)
	}

	resp = do(t, http.MethodDelete, base+"/points/"+url.PathEscape("Point 1"), "", nil)
	if got := decode[map[string]int](t, resp)["removed"]; got != 1 {
		t.Fatalf("removed=%d", got)
	}

	do(t, http.MethodPost, base+"/points/click", "application/json", strings.NewReader(`{"lat":1,"lng":2}`))
	resp = do(t, http.MethodDelete, base+"/points", "", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("clear status=%d", resp.StatusCode)
	}
	snap := decode[map[string]any](t, do(t, http.MethodGet, base, "", nil))
	vp := snap["viewport"].(map[string]any)
	if vp["zoom"] != float64(4) {
		t.Fatalf("viewport=%v", vp)
	}
	if _, ok := vp["bounds"]; ok {
		t.Fatalf("bounds present after clear: %v", vp)
	}
}

func TestDeletePoint_EscapedNames(t *testing.T) {
	srv := newServer(t)
	base := createSession(t, srv)

	names := []string{"50%", "a%41", "aA", "a/b", "my point"}
	for _, n := range names {
		body, _ := json.Marshal(map[string]any{"name": n, "lat": 1, "lng": 2})
		if resp := do(t, http.MethodPost, base+"/points", "application/json", bytes.NewReader(body)); resp.StatusCode != http.StatusCreated {
			t.Fatalf("add %q status=%d", n, resp.StatusCode)
		}
	}

	for i, n := range []string{"50%", "a%41", "a/b", "my point"} {
		resp := do(t, http.MethodDelete, base+"/points/"+url.PathEscape(n), "", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("delete %q status=%d", n, resp.StatusCode)
		}
		if got := decode[map[string]int](t, resp)["removed"]; got != 1 {
			t.Fatalf("delete %q removed=%d", n, got)
		}

		snap := decode[map[string]any](t, do(t, http.MethodGet, base, "", nil))
		pts := snap["points"].([]any)
		if want := len(names) - i - 1; len(pts) != want {
			t.Fatalf("after %q: %d points want %d", n, len(pts), want)
		}
		for _, p := range pts {
			if p.(map[string]any)["name"] == n {
				t.Fatalf("%q still present", n)
			}
		}
	}

	snap := decode[map[string]any](t, do(t, http.MethodGet, base, "", nil))
	pts := snap["points"].([]any)
	if len(pts) != 1 || pts[0].(map[string]any)["name"] != "aA" {
		t.Fatalf("remaining=%v want only aA", pts)
	}
}

func TestSetBuffer(t *testing.T) {
	srv := newServer(t)
	base := createSession(t, srv)

	resp := do(t, http.MethodPut, base+"/buffer", "application/json", strings.NewReader(`{"shape":"square","distance":"500"}`))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	if cfg := decode[map[string]any](t, resp); cfg["shape"] != "square" || cfg["distance"] != float64(500) {
		t.Fatalf("cfg=%v", cfg)
	}

	for _, body := range []string{`{"shape":"hexagon"}`, `{"distance":"abc"}`, `{"distance":-1}`} {
		resp = do(t, http.MethodPut, base+"/buffer", "application/json", strings.NewReader(body))
		if resp.StatusCode != http.StatusUnprocessableEntity {
			t.Fatalf("%s: status=%d", body, resp.StatusCode)
		}
	}
}

func TestExports(t *testing.T) {
	srv := newServer(t)
	base := createSession(t, srv)

	for _, path := range []string{"/export.geojson", "/export.zip", "/export?format=shp"} {
		resp := do(t, http.MethodGet, base+path, "", nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("%s empty status=%d", path, resp.StatusCode)
		}
		if got := decode[map[string]string](t, resp)["notice"]; got != "No data to export." {
			t.Fatalf("%s notice=%q", path, got)
		}
	}

	do(t, http.MethodPost, base+"/points/click", "application/json", strings.NewReader(`{"lat":40.7128,"lng":-74.006}`))

	resp := do(t, http.MethodGet, base+"/export.geojson", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("geojson status=%d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/geo+json" {
		t.Fatalf("content-type=%q", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); cd != `attachment; filename="geobuffer_export.geojson"` {
		t.Fatalf("content-disposition=%q", cd)
	}
	fc := decode[map[string]any](t, resp)
	if feats := fc["features"].([]any); len(feats) != 2 {
		t.Fatalf("features=%d", len(feats))
	}

	req, _ := http.NewRequest(http.MethodGet, base+"/export", nil)
	req.Header.Set("Accept", "application/zip")
	zresp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer zresp.Body.Close()
	if zresp.StatusCode != http.StatusOK || zresp.Header.Get("Content-Type") != "application/zip" {
		t.Fatalf("zip status=%d ct=%q", zresp.StatusCode, zresp.Header.Get("Content-Type"))
	}
	b, _ := io.ReadAll(zresp.Body)
	zr, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		t.Fatalf("zip: %v", err)
	}
	names := map[string]bool{}
	for _, f := range zr.File {
		names[f.Name] = true
	}
	for _, want := range []string{"points.shp", "points.prj", "buffers.shp", "buffers.dbf"} {
		if !names[want] {
			t.Fatalf("missing %s in %v", want, names)
		}
	}
}

func TestCells(t *testing.T) {
	srv := newServer(t)
	base := createSession(t, srv)
	do(t, http.MethodPost, base+"/points/click", "application/json", strings.NewReader(`{"lat":59.3293,"lng":18.0686}`))
	do(t, http.MethodPost, base+"/points/click", "application/json", strings.NewReader(`{"lat":59.3293,"lng":18.0686}`))

	resp := do(t, http.MethodGet, base+"/cells?res=9", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	got := decode[cellsResponse](t, resp)
	if got.Res != 9 || len(got.Points) != 1 || got.Points[0].Count != 2 {
		t.Fatalf("cells=%+v", got)
	}
	if len(got.Coverage) == 0 {
		t.Fatal("expected buffer coverage at res 9")
	}

	resp = do(t, http.MethodGet, base+"/cells?res=16", "", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("res=16 status=%d", resp.StatusCode)
	}
}

func TestCells_OverBudgetOmitsCoverage(t *testing.T) {
	srv := newServer(t)
	base := createSession(t, srv)
	do(t, http.MethodPost, base+"/points/click", "application/json", strings.NewReader(`{"lat":59.3293,"lng":18.0686}`))
	if resp := do(t, http.MethodPut, base+"/buffer", "application/json", strings.NewReader(`{"distance":"1000000"}`)); resp.StatusCode != http.StatusOK {
		t.Fatalf("buffer status=%d", resp.StatusCode)
	}

	resp := do(t, http.MethodGet, base+"/cells?res=10", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	got := decode[cellsResponse](t, resp)
	if !got.CoverageOmitted || got.Coverage != nil {
		t.Fatalf("coverage_omitted=%v coverage=%d cells", got.CoverageOmitted, len(got.Coverage))
	}
	if len(got.Points) != 1 {
		t.Fatalf("points=%v", got.Points)
	}
}

func TestDeleteSession(t *testing.T) {
	srv := newServer(t)
	base := createSession(t, srv)
	if resp := do(t, http.MethodDelete, base, "", nil); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status=%d", resp.StatusCode)
	}
	if resp := do(t, http.MethodGet, base, "", nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get after delete status=%d", resp.StatusCode)
	}
}

func TestTextValue(t *testing.T) {
	cases := map[string]string{`"1.5"`: "1.5", `1.5`: "1.5", `null`: "", `"abc"`: "abc"}
	for in, want := range cases {
		var v textValue
		if err := json.Unmarshal([]byte(in), &v); err != nil {
			t.Fatalf("%s: %v", in, err)
		}
		if string(v) != want {
			t.Fatalf("%s: got %q want %q", in, v, want)
		}
	}
}
