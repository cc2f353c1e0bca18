package aggregate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basinworks/greenampt-cli/internal/model"
)

func TestMapunitsRenormalizesWeights(t *testing.T) {
	t.Parallel()

	params := []model.ComponentParameterSet{
		{Mukey: "100", Cokey: "1", Psi: 2, ThetaS: 0.4, TextureClass: "Sand"},
		{Mukey: "100", Cokey: "2", Psi: 10, ThetaS: 0.5, TextureClass: "Clay"},
	}
	components := []model.ComponentRecord{
		{Mukey: "100", Cokey: "1", CompPct: 30},
		{Mukey: "100", Cokey: "2", CompPct: 70},
	}

	out := Mapunits(params, components)
	require.Len(t, out, 1)
	assert.InDelta(t, 0.3*2+0.7*10, out[0].Psi, 1e-12)
	assert.InDelta(t, 0.3*0.4+0.7*0.5, out[0].ThetaS, 1e-12)
}

func TestMapunitsZeroWeightComponentExcluded(t *testing.T) {
	t.Parallel()

	params := []model.ComponentParameterSet{
		{Mukey: "100", Cokey: "1", Psi: 2},
		{Mukey: "100", Cokey: "2", Psi: 10},
	}
	components := []model.ComponentRecord{
		{Mukey: "100", Cokey: "1", CompPct: 0},
		{Mukey: "100", Cokey: "2", CompPct: 100},
	}

	out := Mapunits(params, components)
	require.Len(t, out, 1)
	// The zero-percent component reduces to a single 100% weight.
	assert.InDelta(t, 10.0, out[0].Psi, 1e-12)
}

func TestMapunitsAllZeroWeightsYieldNoRows(t *testing.T) {
	t.Parallel()

	params := []model.ComponentParameterSet{{Mukey: "100", Cokey: "1", Psi: 2}}
	components := []model.ComponentRecord{
		{Mukey: "100", Cokey: "1", CompPct: 0},
		{Mukey: "100", Cokey: "2", CompPct: math.NaN()},
	}

	out := Mapunits(params, components)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestMapunitsMissingComponentForfeitsShare(t *testing.T) {
	t.Parallel()

	// Component 2 has a weight but no parameter row: its half of the
	// normalized weight is forfeited, not redistributed.
	params := []model.ComponentParameterSet{{Mukey: "100", Cokey: "1", Psi: 4}}
	components := []model.ComponentRecord{
		{Mukey: "100", Cokey: "1", CompPct: 50},
		{Mukey: "100", Cokey: "2", CompPct: 50},
	}

	out := Mapunits(params, components)
	require.Len(t, out, 1)
	assert.InDelta(t, 2.0, out[0].Psi, 1e-12)
}

func TestMapunitsDominantTexture(t *testing.T) {
	t.Parallel()

	params := []model.ComponentParameterSet{
		{Mukey: "100", Cokey: "1", TextureClass: "Sand"},
		{Mukey: "100", Cokey: "2", TextureClass: "Clay"},
	}
	components := []model.ComponentRecord{
		{Mukey: "100", Cokey: "1", CompPct: 20},
		{Mukey: "100", Cokey: "2", CompPct: 80},
	}

	out := Mapunits(params, components)
	require.Len(t, out, 1)
	assert.Equal(t, "Clay", out[0].TextureClass)
}

func TestMapunitsDominantTextureTieFirstWins(t *testing.T) {
	t.Parallel()

	params := []model.ComponentParameterSet{
		{Mukey: "100", Cokey: "1", TextureClass: "Sand"},
		{Mukey: "100", Cokey: "2", TextureClass: "Clay"},
	}
	components := []model.ComponentRecord{
		{Mukey: "100", Cokey: "1", CompPct: 50},
		{Mukey: "100", Cokey: "2", CompPct: 50},
	}

	out := Mapunits(params, components)
	require.Len(t, out, 1)
	assert.Equal(t, "Sand", out[0].TextureClass)
}

func TestMapunitsDerivedMoistureFields(t *testing.T) {
	t.Parallel()

	params := []model.ComponentParameterSet{
		{Mukey: "100", Cokey: "1", ThetaS: 0.463, ThetaFC: 0.232, InitDeficit: 0.347},
	}
	components := []model.ComponentRecord{{Mukey: "100", Cokey: "1", CompPct: 100}}

	out := Mapunits(params, components)
	require.Len(t, out, 1)

	m := out[0]
	assert.InDelta(t, m.ThetaFC, m.ThetaIDesign, 1e-12)
	assert.InDelta(t, m.ThetaS-m.InitDeficit, m.ThetaICont, 1e-12)
	assert.InDelta(t, m.ThetaS-m.ThetaIDesign, m.DThetaDesign, 1e-12)
	assert.InDelta(t, m.ThetaS-m.ThetaICont, m.DThetaCont, 1e-12)
}

func TestMapunitsSkipsNaNValues(t *testing.T) {
	t.Parallel()

	params := []model.ComponentParameterSet{
		{Mukey: "100", Cokey: "1", Ks: math.NaN(), Psi: 4},
		{Mukey: "100", Cokey: "2", Ks: 0.2, Psi: 8},
	}
	components := []model.ComponentRecord{
		{Mukey: "100", Cokey: "1", CompPct: 50},
		{Mukey: "100", Cokey: "2", CompPct: 50},
	}

	out := Mapunits(params, components)
	require.Len(t, out, 1)
	assert.InDelta(t, 0.1, out[0].Ks, 1e-12)
	assert.InDelta(t, 6.0, out[0].Psi, 1e-12)
}

func TestMapunitsEmptyInputs(t *testing.T) {
	t.Parallel()

	assert.Empty(t, Mapunits(nil, nil))
	assert.Empty(t, Mapunits([]model.ComponentParameterSet{{Mukey: "100", Cokey: "1"}}, nil))
}

func TestMeasuredMapunitsWeighted(t *testing.T) {
	t.Parallel()

	surfaces := []MeasuredSurface{
		{Mukey: "100", Cokey: "1", Ksat: 2, SandPct: 40, ClayPct: 10, ThetaS: 0.4},
		{Mukey: "100", Cokey: "2", Ksat: 6, SandPct: 20, ClayPct: 30, ThetaS: 0.5},
	}
	components := []model.ComponentRecord{
		{Mukey: "100", Cokey: "1", CompPct: 25},
		{Mukey: "100", Cokey: "2", CompPct: 75},
	}

	out := MeasuredMapunits(surfaces, components)
	require.Len(t, out, 1)
	assert.InDelta(t, 0.25*2+0.75*6, out[0].Ksat, 1e-12)
	assert.InDelta(t, 0.25*40+0.75*20, out[0].SandPct, 1e-12)
}

func TestMeasuredMapunitsZeroWeightsFallBackToPlainMean(t *testing.T) {
	t.Parallel()

	surfaces := []MeasuredSurface{
		{Mukey: "100", Cokey: "1", Ksat: 2, ThetaS: 0.4},
		{Mukey: "100", Cokey: "2", Ksat: 6, ThetaS: 0.5},
	}
	components := []model.ComponentRecord{
		{Mukey: "100", Cokey: "1", CompPct: 0},
		{Mukey: "100", Cokey: "2", CompPct: 0},
	}

	out := MeasuredMapunits(surfaces, components)
	require.Len(t, out, 1)
	assert.InDelta(t, 4.0, out[0].Ksat, 1e-12)
	assert.InDelta(t, 0.45, out[0].ThetaS, 1e-12)
}
