// Package sources loads evacuation start points from shapefiles and maps
// their world coordinates onto raster grid cells.
package sources

import (
	"fmt"
	"math"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/mojanshadkar/volcano-evacuation-analysis/internal/grid"
	"github.com/mojanshadkar/volcano-evacuation-analysis/internal/raster"
)

// Point is one named evacuation start location in world coordinates.
type Point struct {
	Name string
	Geom *geom.Point
}

// X returns the easting of the point.
func (p Point) X() float64 { return p.Geom.X() }

// Y returns the northing of the point.
func (p Point) Y() float64 { return p.Geom.Y() }

// ReadPoints reads every point record from a shapefile. Names come from the
// attribute column nameField when present; records without one are named by
// index. Non-point shapes are skipped with a warning.
func ReadPoints(shpPath, nameField string) ([]Point, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrap(err, "sources: open shapefile")
	}
	defer func() { _ = reader.Close() }()

	nameIdx := fieldIndex(reader, nameField)
	log := zap.L().With(zap.String("component", "sources.loader"))

	var points []Point
	for reader.Next() {
		idx, shape := reader.Shape()
		if shape == nil {
			continue
		}

		var x, y float64
		switch s := shape.(type) {
		case *shp.Point:
			x, y = s.X, s.Y
		case *shp.PointZ:
			x, y = s.X, s.Y
		case *shp.PointM:
			x, y = s.X, s.Y
		default:
			log.Warn("skipping non-point shape", zap.Int("record", idx))
			continue
		}

		name := ""
		if nameIdx >= 0 {
			name = strings.Trim(reader.Attribute(nameIdx), " \x00")
		}
		if name == "" {
			name = fmt.Sprintf("source_%d", idx)
		}

		points = append(points, Point{
			Name: name,
			Geom: geom.NewPointFlat(geom.XY, []float64{x, y}),
		})
	}
	if err := reader.Err(); err != nil {
		return nil, eris.Wrap(err, "sources: read shapefile records")
	}
	if len(points) == 0 {
		return nil, eris.Errorf("sources: no point records in %s", shpPath)
	}

	log.Info("loaded evacuation sources", zap.String("path", shpPath), zap.Int("count", len(points)))
	return points, nil
}

func fieldIndex(reader *shp.Reader, name string) int {
	if name == "" {
		return -1
	}
	for i, f := range reader.Fields() {
		if strings.EqualFold(f.String(), name) {
			return i
		}
	}
	return -1
}

// Transform maps world coordinates onto raster cells. OriginX/OriginY is the
// top-left corner of the raster, not the lower-left corner the file header
// records.
type Transform struct {
	OriginX  float64
	OriginY  float64
	CellSize float64
}

// NewTransform derives the transform from a raster header and its grid.
func NewTransform(meta raster.Meta, g grid.Grid) Transform {
	return Transform{
		OriginX:  meta.XLLCorner,
		OriginY:  meta.YLLCorner + float64(g.Rows)*meta.CellSize,
		CellSize: meta.CellSize,
	}
}

// ToCell converts a world coordinate to the containing cell. The cell may be
// outside the grid; callers check with InBounds.
func (t Transform) ToCell(x, y float64) grid.Cell {
	return grid.Cell{
		Row: int(math.Floor((t.OriginY - y) / t.CellSize)),
		Col: int(math.Floor((x - t.OriginX) / t.CellSize)),
	}
}

// Bounds returns the raster extent as a geometry bounding box.
func (t Transform) Bounds(g grid.Grid) *geom.Bounds {
	return geom.NewBounds(geom.XY).Set(
		t.OriginX,
		t.OriginY-float64(g.Rows)*t.CellSize,
		t.OriginX+float64(g.Cols)*t.CellSize,
		t.OriginY,
	)
}

// Source is a start point resolved to a grid node.
type Source struct {
	Name string
	Cell grid.Cell
	Node int
}

// MapToGrid resolves each point to a grid node. Points outside the raster
// extent are skipped with a warning; an empty result is an error because the
// analysis needs at least one source.
func MapToGrid(points []Point, t Transform, g grid.Grid) ([]Source, error) {
	bounds := t.Bounds(g)
	log := zap.L().With(zap.String("component", "sources.loader"))

	out := make([]Source, 0, len(points))
	for _, p := range points {
		if !bounds.OverlapsPoint(geom.XY, geom.Coord{p.X(), p.Y()}) {
			log.Warn("source outside raster extent, skipping",
				zap.String("name", p.Name),
				zap.Float64("x", p.X()),
				zap.Float64("y", p.Y()),
			)
			continue
		}
		cell := t.ToCell(p.X(), p.Y())
		if !g.InBounds(cell.Row, cell.Col) {
			log.Warn("source maps outside grid, skipping",
				zap.String("name", p.Name),
				zap.Int("row", cell.Row),
				zap.Int("col", cell.Col),
			)
			continue
		}
		out = append(out, Source{Name: p.Name, Cell: cell, Node: g.NodeOf(cell)})
	}
	if len(out) == 0 {
		return nil, eris.New("sources: no source points fall inside the raster extent")
	}
	return out, nil
}
