package vector

import (
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basinworks/greenampt-cli/internal/model"
)

// writeMupolygons writes a minimal mupolygon shapefile with one square
// per (mukey, origin) pair.
func writeMupolygons(t *testing.T, squares map[string][2]float64) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "soilmu_a_ia015.shp")
	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)

	require.NoError(t, w.SetFields([]shp.Field{shp.StringField("MUKEY", 30)}))

	row := 0
	for mukey, origin := range squares {
		x, y := origin[0], origin[1]
		ring := []shp.Point{
			{X: x, Y: y}, {X: x + 1, Y: y}, {X: x + 1, Y: y + 1}, {X: x, Y: y + 1}, {X: x, Y: y},
		}
		poly := shp.Polygon(*shp.NewPolyLine([][]shp.Point{ring}))
		w.Write(&poly)
		require.NoError(t, w.WriteAttribute(row, 0, mukey))
		row++
	}
	w.Close()

	return path
}

func TestReadMupolygons(t *testing.T) {
	t.Parallel()

	path := writeMupolygons(t, map[string][2]float64{
		"463163": {0, 0},
		"463164": {10, 10},
	})

	features, err := ReadMupolygons(path)
	require.NoError(t, err)
	require.Len(t, features, 2)

	seen := map[string]bool{}
	for _, f := range features {
		seen[f.Mukey] = true
		require.NotNil(t, f.Geom)
		assert.Equal(t, 1, f.Geom.NumPolygons())
	}
	assert.True(t, seen["463163"])
	assert.True(t, seen["463164"])
}

func TestReadMupolygonsMissingFile(t *testing.T) {
	t.Parallel()

	_, err := ReadMupolygons(filepath.Join(t.TempDir(), "nope.shp"))
	assert.Error(t, err)
}

func TestBounds(t *testing.T) {
	t.Parallel()

	path := writeMupolygons(t, map[string][2]float64{
		"463163": {0, 0},
		"463164": {10, 10},
	})
	features, err := ReadMupolygons(path)
	require.NoError(t, err)

	minX, minY, maxX, maxY, err := Bounds(features)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, minX, 1e-9)
	assert.InDelta(t, 0.0, minY, 1e-9)
	assert.InDelta(t, 11.0, maxX, 1e-9)
	assert.InDelta(t, 11.0, maxY, 1e-9)

	_, _, _, _, err = Bounds(nil)
	assert.Error(t, err)
}

func TestJoin(t *testing.T) {
	t.Parallel()

	features := []Feature{
		{Mukey: "463163"},
		{Mukey: "463164"},
		{Mukey: "463163"}, // map units repeat across polygons
	}
	params := []model.MapunitParameterSet{
		{Mukey: "463163", Ks: 0.13},
	}

	joined := Join(features, params)
	require.Len(t, joined, 3)

	require.NotNil(t, joined[0].Params)
	assert.InDelta(t, 0.13, joined[0].Params.Ks, 1e-12)
	assert.Nil(t, joined[1].Params)
	assert.Same(t, joined[0].Params, joined[2].Params)
}
