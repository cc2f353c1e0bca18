// Package raster burns joined soil polygons into per-parameter float
// grids and writes them as ESRI ASCII rasters. Cells outside every
// polygon, and cells under polygons without a parameter row, are
// nodata (NaN).
package raster

import (
	"context"
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/basinworks/greenampt-cli/internal/model"
	"github.com/basinworks/greenampt-cli/internal/vector"
)

// Grid is one rasterized parameter field. Data is row-major with the
// top (north) row first; NaN marks nodata.
type Grid struct {
	Field      string
	MinX, MinY float64 // lower-left corner
	Resolution float64
	Cols, Rows int
	Data       []float32
}

// At returns the cell value at (col, row) with row 0 at the top.
func (g *Grid) At(col, row int) float32 {
	return g.Data[row*g.Cols+col]
}

// Options configures rasterization.
type Options struct {
	Resolution    float64  // cell size in map units
	Fields        []string // parameter fields to burn; nil = all numeric fields
	MaxConcurrent int
}

// Rasterize burns each requested field into its own grid. Polygon
// membership is resolved once per cell (even-odd rule on cell centers)
// and shared across fields; the per-field fills run concurrently.
func Rasterize(ctx context.Context, features []vector.AssignedFeature, opts Options) ([]*Grid, error) {
	if opts.Resolution <= 0 {
		return nil, eris.Errorf("raster: resolution must be positive, got %g", opts.Resolution)
	}
	fields := opts.Fields
	if len(fields) == 0 {
		fields = model.NumericFields()
	}
	maxConcurrent := opts.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}

	plain := make([]vector.Feature, len(features))
	for i, f := range features {
		plain[i] = f.Feature
	}
	minX, minY, maxX, maxY, err := vector.Bounds(plain)
	if err != nil {
		return nil, err
	}

	cols := int(math.Ceil((maxX - minX) / opts.Resolution))
	rows := int(math.Ceil((maxY - minY) / opts.Resolution))
	if cols <= 0 {
		cols = 1
	}
	if rows <= 0 {
		rows = 1
	}

	assignment := assignCells(features, minX, minY, cols, rows, opts.Resolution)

	grids := make([]*Grid, len(fields))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)
	for i, field := range fields {
		g.Go(func() error {
			grid := &Grid{
				Field: field, MinX: minX, MinY: minY,
				Resolution: opts.Resolution, Cols: cols, Rows: rows,
				Data: make([]float32, cols*rows),
			}
			nan := float32(math.NaN())
			for cell, params := range assignment {
				if params == nil {
					grid.Data[cell] = nan
					continue
				}
				v, ok := params.NumericField(field)
				if !ok {
					return eris.Errorf("raster: unknown field %q", field)
				}
				grid.Data[cell] = float32(v)
			}
			grids[i] = grid
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	zap.L().Info("rasterized parameter fields",
		zap.Int("fields", len(fields)),
		zap.Int("cols", cols),
		zap.Int("rows", rows),
	)
	return grids, nil
}

// assignCells maps every cell index to the parameter row of the first
// polygon containing its center, or nil for open cells.
func assignCells(features []vector.AssignedFeature, minX, minY float64, cols, rows int, res float64) []*model.MapunitParameterSet {
	assignment := make([]*model.MapunitParameterSet, cols*rows)
	maxY := minY + float64(rows)*res

	for row := 0; row < rows; row++ {
		// Row 0 is the top of the grid.
		y := maxY - (float64(row)+0.5)*res
		for col := 0; col < cols; col++ {
			x := minX + (float64(col)+0.5)*res
			for _, f := range features {
				if containsPoint(f.Geom, x, y) {
					assignment[row*cols+col] = f.Params
					break
				}
			}
		}
	}
	return assignment
}

// containsPoint tests a multipolygon with the even-odd rule: a point
// is inside when an odd number of rings cross it, which also handles
// holes stored as separate parts.
func containsPoint(mp *geom.MultiPolygon, x, y float64) bool {
	if mp == nil {
		return false
	}
	b := mp.Bounds()
	if x < b.Min(0) || x > b.Max(0) || y < b.Min(1) || y > b.Max(1) {
		return false
	}

	inside := false
	for i := 0; i < mp.NumPolygons(); i++ {
		poly := mp.Polygon(i)
		for r := 0; r < poly.NumLinearRings(); r++ {
			if ringCrosses(poly.LinearRing(r), x, y) {
				inside = !inside
			}
		}
	}
	return inside
}

// ringCrosses reports whether the ray from (x, y) toward +X crosses
// the ring an odd number of times.
func ringCrosses(ring *geom.LinearRing, x, y float64) bool {
	coords := ring.FlatCoords()
	n := len(coords) / 2
	if n < 3 {
		return false
	}

	crossed := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := coords[2*i], coords[2*i+1]
		xj, yj := coords[2*j], coords[2*j+1]
		if (yi > y) != (yj > y) &&
			x < (xj-xi)*(y-yi)/(yj-yi)+xi {
			crossed = !crossed
		}
	}
	return crossed
}
