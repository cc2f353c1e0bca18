package loader

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basinworks/greenampt-cli/internal/model"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestComponentsCSV(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "component.csv",
		"mukey,cokey,comppct_r,hydgrp,majcompflag\n"+
			"463163,463163:1,85,B,Yes\n"+
			"463163,463163:2,15,C,No\n")

	records, err := Components(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "B", records[0].Hydgrp)
	assert.InDelta(t, 15.0, records[1].CompPct, 1e-12)
}

func TestComponentsPipeDelimited(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "component.txt",
		"mukey|cokey|comppct_r\n"+
			"\"463163\"|\"463163:1\"|\"100\"\n")

	records, err := Components(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "463163:1", records[0].Cokey)
}

func TestComponentsMissingColumn(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "component.csv", "mukey,cokey\n463163,463163:1\n")

	_, err := Components(context.Background(), path)
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrMissingColumn))
	assert.Contains(t, err.Error(), path)
}

func TestComponentsEmptyFile(t *testing.T) {
	t.Parallel()

	_, err := Components(context.Background(), writeFile(t, "component.csv", ""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestHorizonsBackfillsMukey(t *testing.T) {
	t.Parallel()

	components := []model.ComponentRecord{
		{Mukey: "463163", Cokey: "463163:1", CompPct: 100},
	}
	path := writeFile(t, "chorizon.csv",
		"cokey,hzdept_r,hzdepb_r,ksat_r,sandtotal_r,claytotal_r,dbthirdbar_r,texcl\n"+
			"463163:1,0,25,10,40,20,1.35,Loam\n"+
			"999999:9,0,25,,,,,\n")

	records, err := Horizons(context.Background(), path, components)
	require.NoError(t, err)

	// The orphan cokey is dropped.
	require.Len(t, records, 1)
	assert.Equal(t, "463163", records[0].Mukey)
	assert.InDelta(t, 10*model.KsatUmSecToInHr, records[0].Ksat, 1e-12)
}

func TestHorizonsKeepsExplicitMukey(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "chorizon.csv",
		"mukey,cokey,hzdept_r,hzdepb_r\n"+
			"463163,463163:1,0,25\n")

	records, err := Horizons(context.Background(), path, nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "463163", records[0].Mukey)
	assert.True(t, math.IsNaN(records[0].Ksat))
}
