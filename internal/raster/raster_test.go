package raster

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/basinworks/greenampt-cli/internal/model"
	"github.com/basinworks/greenampt-cli/internal/vector"
)

func square(t *testing.T, minX, minY, size float64) *geom.MultiPolygon {
	t.Helper()
	return multiSquare(t, [][3]float64{{minX, minY, size}})
}

// multiSquare builds one multipolygon from (minX, minY, size) triples,
// each triple one part.
func multiSquare(t *testing.T, parts [][3]float64) *geom.MultiPolygon {
	t.Helper()

	mp := geom.NewMultiPolygon(geom.XY)
	for _, p := range parts {
		x, y, s := p[0], p[1], p[2]
		ring := geom.NewLinearRingFlat(geom.XY, []float64{
			x, y, x + s, y, x + s, y + s, x, y + s, x, y,
		})
		poly := geom.NewPolygon(geom.XY)
		require.NoError(t, poly.Push(ring))
		require.NoError(t, mp.Push(poly))
	}
	return mp
}

func TestRasterizeAssignsParameterValues(t *testing.T) {
	t.Parallel()

	features := []vector.AssignedFeature{
		{
			Feature: vector.Feature{Mukey: "463163", Geom: square(t, 0, 0, 2)},
			Params:  &model.MapunitParameterSet{Mukey: "463163", Ks: 0.13, ThetaS: 0.463},
		},
	}

	grids, err := Rasterize(context.Background(), features, Options{
		Resolution: 1,
		Fields:     []string{"Ks_inhr", "theta_s"},
	})
	require.NoError(t, err)
	require.Len(t, grids, 2)

	ks := grids[0]
	assert.Equal(t, "Ks_inhr", ks.Field)
	assert.Equal(t, 2, ks.Cols)
	assert.Equal(t, 2, ks.Rows)
	for row := 0; row < 2; row++ {
		for col := 0; col < 2; col++ {
			assert.InDelta(t, 0.13, float64(ks.At(col, row)), 1e-6)
		}
	}
	assert.InDelta(t, 0.463, float64(grids[1].At(0, 0)), 1e-6)
}

func TestRasterizeNodataOutsidePolygons(t *testing.T) {
	t.Parallel()

	// Square covers only the lower-left cell of a 2x2 grid.
	features := []vector.AssignedFeature{
		{
			Feature: vector.Feature{Mukey: "463163", Geom: square(t, 0, 0, 1)},
			Params:  &model.MapunitParameterSet{Mukey: "463163", Ks: 0.13},
		},
		// A bare bounding feature to widen the extent.
		{Feature: vector.Feature{Mukey: "463164", Geom: square(t, 1.9, 1.9, 0.1)}},
	}

	grids, err := Rasterize(context.Background(), features, Options{
		Resolution: 1,
		Fields:     []string{"Ks_inhr"},
	})
	require.NoError(t, err)
	g := grids[0]
	require.Equal(t, 2, g.Cols)
	require.Equal(t, 2, g.Rows)

	// Lower-left cell is row 1 (rows count from the top).
	assert.InDelta(t, 0.13, float64(g.At(0, 1)), 1e-6)
	assert.True(t, math.IsNaN(float64(g.At(1, 0))))
	assert.True(t, math.IsNaN(float64(g.At(0, 0))))
}

func TestRasterizeUnjoinedPolygonIsNodata(t *testing.T) {
	t.Parallel()

	features := []vector.AssignedFeature{
		{Feature: vector.Feature{Mukey: "463163", Geom: square(t, 0, 0, 1)}},
	}

	grids, err := Rasterize(context.Background(), features, Options{Resolution: 1, Fields: []string{"Ks_inhr"}})
	require.NoError(t, err)
	assert.True(t, math.IsNaN(float64(grids[0].At(0, 0))))
}

func TestRasterizeEvenOddHole(t *testing.T) {
	t.Parallel()

	// Outer 3x3 square with a 1x1 hole in the middle; the hole cell
	// must come out nodata.
	features := []vector.AssignedFeature{
		{
			Feature: vector.Feature{Mukey: "463163", Geom: multiSquare(t, [][3]float64{
				{0, 0, 3}, {1, 1, 1},
			})},
			Params: &model.MapunitParameterSet{Mukey: "463163", Ks: 0.13},
		},
	}

	grids, err := Rasterize(context.Background(), features, Options{Resolution: 1, Fields: []string{"Ks_inhr"}})
	require.NoError(t, err)
	g := grids[0]

	assert.InDelta(t, 0.13, float64(g.At(0, 0)), 1e-6)
	assert.True(t, math.IsNaN(float64(g.At(1, 1))))
}

func TestRasterizeDefaultsToAllNumericFields(t *testing.T) {
	t.Parallel()

	features := []vector.AssignedFeature{
		{
			Feature: vector.Feature{Mukey: "463163", Geom: square(t, 0, 0, 1)},
			Params:  &model.MapunitParameterSet{Mukey: "463163"},
		},
	}

	grids, err := Rasterize(context.Background(), features, Options{Resolution: 1})
	require.NoError(t, err)
	assert.Len(t, grids, len(model.NumericFields()))
}

func TestRasterizeRejectsUnknownField(t *testing.T) {
	t.Parallel()

	features := []vector.AssignedFeature{
		{
			Feature: vector.Feature{Mukey: "463163", Geom: square(t, 0, 0, 1)},
			Params:  &model.MapunitParameterSet{Mukey: "463163"},
		},
	}

	_, err := Rasterize(context.Background(), features, Options{Resolution: 1, Fields: []string{"texcl"}})
	assert.Error(t, err)

	_, err = Rasterize(context.Background(), features, Options{Resolution: 0})
	assert.Error(t, err)
}

func TestWriteASCII(t *testing.T) {
	t.Parallel()

	g := &Grid{
		Field: "Ks_inhr", MinX: 0, MinY: 0, Resolution: 1,
		Cols: 2, Rows: 2,
		Data: []float32{0.13, float32(math.NaN()), 4.74, 0.01},
	}

	path := filepath.Join(t.TempDir(), "ks.asc")
	require.NoError(t, WriteASCII(g, path))

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	want := "ncols 2\nnrows 2\nxllcorner 0\nyllcorner 0\ncellsize 1\nNODATA_value -9999\n" +
		"0.13 -9999\n4.74 0.01\n"
	assert.Equal(t, want, string(body))
}
