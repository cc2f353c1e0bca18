package aggregate

import (
	"math"
	"sort"

	"github.com/basinworks/greenampt-cli/internal/model"
)

// Mapunits rolls component parameter sets up to one MapunitParameterSet
// per map unit using composition-percentage weights. Components with
// non-positive composition are excluded; remaining weights are
// renormalized per map unit to sum to 1 before joining, so a component
// without a parameter row simply forfeits its share. Map units whose
// surviving weight total is zero are excluded, not zero-filled.
//
// The dominant texture is the texture of the heaviest joined component
// (stable sort, first occurrence wins). Derived moisture fields follow
// the two fixed regimes: design starts at field capacity, continuous at
// porosity minus the initial deficit.
func Mapunits(params []model.ComponentParameterSet, components []model.ComponentRecord) []model.MapunitParameterSet {
	// Normalized weight per (mukey, cokey).
	totals := make(map[string]float64)
	raw := make(map[groupKey]float64)
	for _, c := range components {
		w := c.CompPct
		if math.IsNaN(w) || w <= 0 {
			continue
		}
		raw[groupKey{c.Mukey, c.Cokey}] = w
		totals[c.Mukey] += w
	}

	index := make(map[string][]joined)
	var order []string
	for _, p := range params {
		w, ok := raw[groupKey{p.Mukey, p.Cokey}]
		if !ok {
			continue
		}
		total := totals[p.Mukey]
		if total <= 0 {
			continue
		}
		if _, seen := index[p.Mukey]; !seen {
			order = append(order, p.Mukey)
		}
		index[p.Mukey] = append(index[p.Mukey], joined{params: p, weight: w / total})
	}

	out := make([]model.MapunitParameterSet, 0, len(order))
	for _, mukey := range order {
		group := index[mukey]

		row := model.MapunitParameterSet{
			Mukey:       mukey,
			Ks:          weightedSum(group, func(p model.ComponentParameterSet) float64 { return p.Ks }),
			Psi:         weightedSum(group, func(p model.ComponentParameterSet) float64 { return p.Psi }),
			ThetaS:      weightedSum(group, func(p model.ComponentParameterSet) float64 { return p.ThetaS }),
			ThetaFC:     weightedSum(group, func(p model.ComponentParameterSet) float64 { return p.ThetaFC }),
			ThetaWP:     weightedSum(group, func(p model.ComponentParameterSet) float64 { return p.ThetaWP }),
			InitDeficit: weightedSum(group, func(p model.ComponentParameterSet) float64 { return p.InitDeficit }),
		}

		ordered := append([]joined(nil), group...)
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].weight > ordered[j].weight
		})
		row.TextureClass = ordered[0].params.TextureClass

		row.ThetaIDesign = row.ThetaFC
		row.ThetaICont = row.ThetaS - row.InitDeficit
		row.DThetaDesign = row.ThetaS - row.ThetaIDesign
		row.DThetaCont = row.ThetaS - row.ThetaICont

		out = append(out, row)
	}
	return out
}

// joined pairs a component parameter set with its normalized
// composition weight inside one map unit.
type joined struct {
	params model.ComponentParameterSet
	weight float64
}

// weightedSum accumulates weight-times-value over a joined group,
// skipping NaN values. NaN only when every value is NaN.
func weightedSum(group []joined, value func(model.ComponentParameterSet) float64) float64 {
	sum := math.NaN()
	for _, j := range group {
		v := value(j.params)
		if math.IsNaN(v) {
			continue
		}
		if math.IsNaN(sum) {
			sum = 0
		}
		sum += j.weight * v
	}
	return sum
}

// MeasuredMapunit holds composition-weighted measured surface
// properties per map unit, feeding the pedotransfer strategy.
type MeasuredMapunit struct {
	Mukey   string  `json:"mukey"`
	Ksat    float64 `json:"ksat"`
	SandPct float64 `json:"sand_pct"`
	ClayPct float64 `json:"clay_pct"`
	ThetaS  float64 `json:"theta_s"`
}

// MeasuredMapunits rolls measured component surfaces up per map unit.
// Negative or missing composition weights count as zero; when a map
// unit has no positive weight the plain mean of available values is
// used instead of dropping the unit.
func MeasuredMapunits(surfaces []MeasuredSurface, components []model.ComponentRecord) []MeasuredMapunit {
	weightOf := make(map[groupKey]float64, len(components))
	for _, c := range components {
		w := c.CompPct
		if math.IsNaN(w) || w < 0 {
			w = 0
		}
		weightOf[groupKey{c.Mukey, c.Cokey}] = w
	}

	index := make(map[string][]MeasuredSurface)
	weights := make(map[string][]float64)
	var order []string
	for _, s := range surfaces {
		if _, seen := index[s.Mukey]; !seen {
			order = append(order, s.Mukey)
		}
		index[s.Mukey] = append(index[s.Mukey], s)
		weights[s.Mukey] = append(weights[s.Mukey], weightOf[groupKey{s.Mukey, s.Cokey}])
	}

	out := make([]MeasuredMapunit, 0, len(order))
	for _, mukey := range order {
		group := index[mukey]
		w := weights[mukey]
		ksat := make([]float64, len(group))
		sand := make([]float64, len(group))
		clay := make([]float64, len(group))
		thetaS := make([]float64, len(group))
		for i, s := range group {
			ksat[i] = s.Ksat
			sand[i] = s.SandPct
			clay[i] = s.ClayPct
			thetaS[i] = s.ThetaS
		}
		out = append(out, MeasuredMapunit{
			Mukey:   mukey,
			Ksat:    GuardedMean(ksat, w),
			SandPct: GuardedMean(sand, w),
			ClayPct: GuardedMean(clay, w),
			ThetaS:  GuardedMean(thetaS, w),
		})
	}
	return out
}
