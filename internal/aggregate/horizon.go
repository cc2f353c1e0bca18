package aggregate

import (
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/basinworks/greenampt-cli/internal/model"
	"github.com/basinworks/greenampt-cli/internal/texture"
)

// Window is the surface depth interval, in centimeters, that horizons
// are clipped to before aggregation.
type Window struct {
	Top    float64
	Bottom float64
}

// DefaultWindow is the 0-10 cm surface layer that governs infiltration.
func DefaultWindow() Window {
	return Window{Top: 0, Bottom: 10}
}

// clipped is one horizon surviving the window clip, with its resolved
// texture constants attached.
type clipped struct {
	top       float64
	thickness float64
	class     string
	params    texture.Params
}

type groupKey struct {
	mukey, cokey string
}

// Horizons aggregates horizon records into one ComponentParameterSet
// per (mukey, cokey) group. Horizons are clipped to the window; those
// with non-positive clipped thickness or no resolvable texture are
// dropped. Conductivity aggregates as the thickness-weighted harmonic
// mean, all other fields as the thickness-weighted arithmetic mean. The
// component texture is that of the shallowest surviving horizon.
//
// An empty result is a valid outcome, not an error; the returned slice
// is always non-nil.
func Horizons(horizons []model.HorizonRecord, window Window) []model.ComponentParameterSet {
	index := make(map[groupKey][]clipped)
	var order []groupKey
	var unresolved int

	for _, h := range horizons {
		top := math.Max(h.TopDepth, window.Top)
		bottom := math.Min(h.BottomDepth, window.Bottom)
		thickness := bottom - top
		if !(thickness > 0) {
			continue
		}

		class := texture.Resolve(h.TextureLabel, h.SandPct, h.ClayPct)
		if class == "" {
			unresolved++
			continue
		}
		params, ok := texture.Lookup(class)
		if !ok {
			unresolved++
			continue
		}

		key := groupKey{h.Mukey, h.Cokey}
		if _, seen := index[key]; !seen {
			order = append(order, key)
		}
		index[key] = append(index[key], clipped{
			top:       top,
			thickness: thickness,
			class:     class,
			params:    params,
		})
	}

	if unresolved > 0 {
		zap.L().Debug("aggregate: dropped horizons with unresolved texture",
			zap.Int("count", unresolved),
		)
	}

	out := make([]model.ComponentParameterSet, 0, len(order))
	for _, key := range order {
		group := index[key]
		weights := make([]float64, len(group))
		ks := make([]float64, len(group))
		psi := make([]float64, len(group))
		thetaS := make([]float64, len(group))
		thetaFC := make([]float64, len(group))
		thetaWP := make([]float64, len(group))
		initDef := make([]float64, len(group))
		for i, c := range group {
			weights[i] = c.thickness
			ks[i] = c.params.Ks
			psi[i] = c.params.Psi
			thetaS[i] = c.params.ThetaS
			thetaFC[i] = c.params.ThetaFC
			thetaWP[i] = c.params.ThetaWP
			initDef[i] = c.params.InitDeficit
		}

		out = append(out, model.ComponentParameterSet{
			Mukey:        key.mukey,
			Cokey:        key.cokey,
			Ks:           HarmonicMean(ks, weights),
			Psi:          ArithmeticMean(psi, weights),
			ThetaS:       ArithmeticMean(thetaS, weights),
			ThetaFC:      ArithmeticMean(thetaFC, weights),
			ThetaWP:      ArithmeticMean(thetaWP, weights),
			InitDeficit:  ArithmeticMean(initDef, weights),
			TextureClass: topTexture(group),
		})
	}
	return out
}

// topTexture returns the texture class of the shallowest horizon in the
// group, by clipped top depth. The sort is stable so input order breaks
// depth ties.
func topTexture(group []clipped) string {
	ordered := append([]clipped(nil), group...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].top < ordered[j].top
	})
	for _, c := range ordered {
		if c.class != "" {
			return c.class
		}
	}
	return ""
}

// MeasuredSurface holds measured (not table-derived) surface-window
// properties for one component, used by the pedotransfer strategy.
type MeasuredSurface struct {
	Mukey   string  `json:"mukey"`
	Cokey   string  `json:"cokey"`
	Ksat    float64 `json:"ksat"`
	SandPct float64 `json:"sand_pct"`
	ClayPct float64 `json:"clay_pct"`
	ThetaS  float64 `json:"theta_s"`
}

// particleDensity is the mineral soil particle density (g/cm3) used to
// derive porosity from bulk density.
const particleDensity = 2.65

// MeasuredHorizons aggregates measured horizon properties per component
// inside the window: thickness-weighted means of ksat, sand, and clay,
// plus porosity derived from bulk density (1 - db/2.65, capped at 0.9,
// negative values treated as missing). Missing depths default the top
// to 0 and the bottom to the top, dropping the horizon.
func MeasuredHorizons(horizons []model.HorizonRecord, window Window) []MeasuredSurface {
	type measured struct {
		thickness, ksat, sand, clay, thetaS float64
	}
	index := make(map[groupKey][]measured)
	var order []groupKey

	for _, h := range horizons {
		top := h.TopDepth
		if math.IsNaN(top) {
			top = 0
		}
		bottom := h.BottomDepth
		if math.IsNaN(bottom) {
			bottom = top
		}
		top = clampDepth(top, window)
		bottom = clampDepth(bottom, window)
		thickness := bottom - top
		if !(thickness > 0) {
			continue
		}

		thetaS := 1 - h.BulkDensity/particleDensity
		if thetaS < 0 {
			thetaS = math.NaN()
		} else if thetaS > 0.9 {
			thetaS = 0.9
		}

		key := groupKey{h.Mukey, h.Cokey}
		if _, seen := index[key]; !seen {
			order = append(order, key)
		}
		index[key] = append(index[key], measured{
			thickness: thickness,
			ksat:      h.Ksat,
			sand:      h.SandPct,
			clay:      h.ClayPct,
			thetaS:    thetaS,
		})
	}

	out := make([]MeasuredSurface, 0, len(order))
	for _, key := range order {
		group := index[key]
		weights := make([]float64, len(group))
		ksat := make([]float64, len(group))
		sand := make([]float64, len(group))
		clay := make([]float64, len(group))
		thetaS := make([]float64, len(group))
		var total float64
		for i, m := range group {
			weights[i] = m.thickness
			total += m.thickness
			ksat[i] = m.ksat
			sand[i] = m.sand
			clay[i] = m.clay
			thetaS[i] = m.thetaS
		}
		if total == 0 {
			continue
		}
		out = append(out, MeasuredSurface{
			Mukey:   key.mukey,
			Cokey:   key.cokey,
			Ksat:    GuardedMean(ksat, weights),
			SandPct: GuardedMean(sand, weights),
			ClayPct: GuardedMean(clay, weights),
			ThetaS:  GuardedMean(thetaS, weights),
		})
	}
	return out
}

func clampDepth(v float64, w Window) float64 {
	if v < w.Top {
		return w.Top
	}
	if v > w.Bottom {
		return w.Bottom
	}
	return v
}
