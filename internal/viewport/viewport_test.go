package viewport

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/geobuffer/internal/core/model"
)

func TestCompute_Empty(t *testing.T) {
	v := Compute(nil)
	if v.Bounds != nil {
		t.Fatalf("bounds=%v want nil", v.Bounds)
	}
	if v.Center != DefaultCenter || v.Zoom != ContinentalZoom {
		t.Fatalf("v=%+v", v)
	}
}

func TestCompute_SinglePoint(t *testing.T) {
	v := Compute([]model.Point{{Name: "a", Lat: 51.5, Lng: -0.12}})
	if v.Bounds != nil {
		t.Fatalf("bounds should be absent for one point")
	}
	if v.Center != (model.LatLng{Lat: 51.5, Lng: -0.12}) || v.Zoom != CloseUpZoom {
		t.Fatalf("v=%+v", v)
	}
}

func TestCompute_EnclosingBox(t *testing.T) {
	v := Compute([]model.Point{
		{Name: "a", Lat: 10, Lng: -20},
		{Name: "b", Lat: -5, Lng: 30},
		{Name: "c", Lat: 2, Lng: 0},
	})
	if v.Bounds == nil {
		t.Fatal("expected bounds")
	}
	want := orb.Bound{Min: orb.Point{-20, -5}, Max: orb.Point{30, 10}}
	if !v.Bounds.Equal(want) {
		t.Fatalf("bounds=%v want %v", *v.Bounds, want)
	}
	if v.Center != (model.LatLng{Lat: 2.5, Lng: 5}) {
		t.Fatalf("center=%+v", v.Center)
	}
}

func TestMarshalJSON_OmitsBoundsWhenAbsent(t *testing.T) {
	b, err := json.Marshal(Compute(nil))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(b), "bounds") {
		t.Fatalf("unexpected bounds in %s", b)
	}

	b, err = json.Marshal(Compute([]model.Point{{Lat: 1, Lng: 2}, {Lat: 3, Lng: 4}}))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(b), `"bounds":[[1,2],[3,4]]`) {
		t.Fatalf("bounds not lat-first: %s", b)
	}
}
