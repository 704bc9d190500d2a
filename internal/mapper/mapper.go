// Package mapper indexes points and buffers on the H3 grid.
package mapper

import (
	"github.com/mohammed-shakir/geobuffer/internal/core/model"
	"github.com/mohammed-shakir/geobuffer/internal/geometry"
	h3mapper "github.com/mohammed-shakir/geobuffer/internal/mapper/h3"
)

type Interface interface {
	PointCells(points []model.Point, res int) ([]h3mapper.CellCount, error)
	BufferCoverage(geoms []geometry.Geometry, res int) ([]string, error)
}

var _ Interface = (*h3mapper.Mapper)(nil)
