// Package model defines core domain types shared across the service.
package model

import (
	"fmt"
	"strings"
)

type Point struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (p Point) LatLng() LatLng { return LatLng{Lat: p.Lat, Lng: p.Lng} }

type BufferShape string

const (
	ShapeCircle BufferShape = "circle"
	ShapeSquare BufferShape = "square"
)

// ParseBufferShape accepts the lowercase shape names only
func ParseBufferShape(s string) (BufferShape, error) {
	switch BufferShape(strings.TrimSpace(s)) {
	case ShapeCircle:
		return ShapeCircle, nil
	case ShapeSquare:
		return ShapeSquare, nil
	default:
		return "", fmt.Errorf("unsupported buffer shape %q (want circle|square)", s)
	}
}

// Label is the capitalized shape name shown in summaries
func (s BufferShape) Label() string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

// Unit is fixed; distances are always meters.
const UnitMeters = "meters"

type BufferConfig struct {
	Shape    BufferShape `json:"shape"`
	Distance float64     `json:"distance"`
	Unit     string      `json:"unit"`
}

func DefaultBufferConfig() BufferConfig {
	return BufferConfig{Shape: ShapeCircle, Distance: 1000, Unit: UnitMeters}
}

type Summary struct {
	Points   int    `json:"points"`
	Buffers  int    `json:"buffers"`
	Shape    string `json:"shape"`
	Distance string `json:"distance"`
}

// FormatDistance matches the summary format "<value> meters" with two decimals
func FormatDistance(d float64) string {
	return fmt.Sprintf("%.2f %s", d, UnitMeters)
}
