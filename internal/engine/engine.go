// Package engine orchestrates the Green-Ampt parameter strategies over
// in-memory SSURGO batches: the static texture table, the HSG-adjusted
// table, and the direct pedotransfer function.
package engine

import (
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/basinworks/greenampt-cli/internal/aggregate"
	"github.com/basinworks/greenampt-cli/internal/hsg"
	"github.com/basinworks/greenampt-cli/internal/model"
)

// Strategy selects how map-unit parameters are estimated.
type Strategy string

const (
	// StrategyTexture derives every parameter from the texture table.
	StrategyTexture Strategy = "texture"
	// StrategyHSG derives parameters from the texture table, then
	// overrides conductivity with the HSG representative value.
	StrategyHSG Strategy = "hsg"
	// StrategyPedotransfer bypasses the texture table: measured
	// conductivity and porosity, suction from a pedotransfer function,
	// constant initial moisture.
	StrategyPedotransfer Strategy = "pedotransfer"
)

// ErrEmptyAggregation reports that a strategy produced zero map-unit
// rows from otherwise valid input. Fatal to the caller, never retried.
var ErrEmptyAggregation = eris.New("engine: aggregation produced no map-unit rows")

// SuctionFunc estimates wetting-front suction head (inches) from sand
// and clay percentages.
type SuctionFunc func(sandPct, clayPct float64) float64

// DefaultSuction is a linear blend of the sand and clay fractions.
func DefaultSuction(sandPct, clayPct float64) float64 {
	return 20*clampPct(sandPct)/100 + 10*clampPct(clayPct)/100
}

// Options configures an Engine. Zero values fall back to the 0-10 cm
// surface window, DefaultSuction, and an initial moisture of 0.2.
type Options struct {
	Window          aggregate.Window
	Suction         SuctionFunc
	InitialMoisture float64
}

// Engine runs the three parameter-estimation strategies. It is
// stateless apart from its options and safe for concurrent use.
type Engine struct {
	window  aggregate.Window
	suction SuctionFunc
	thetaI  float64
}

// New creates an Engine, applying defaults for unset options.
func New(opts Options) *Engine {
	e := &Engine{
		window:  opts.Window,
		suction: opts.Suction,
		thetaI:  opts.InitialMoisture,
	}
	if e.window == (aggregate.Window{}) {
		e.window = aggregate.DefaultWindow()
	}
	if e.suction == nil {
		e.suction = DefaultSuction
	}
	if e.thetaI == 0 {
		e.thetaI = 0.2
	}
	return e
}

// Run dispatches to the named strategy.
func (e *Engine) Run(strategy Strategy, components []model.ComponentRecord, horizons []model.HorizonRecord) ([]model.MapunitParameterSet, error) {
	switch strategy {
	case StrategyTexture:
		return e.TextureLookup(components, horizons)
	case StrategyHSG:
		return e.HSGLookup(components, horizons)
	case StrategyPedotransfer:
		return e.Pedotransfer(components, horizons)
	}
	return nil, eris.Errorf("engine: unknown strategy %q", strategy)
}

// TextureLookup aggregates horizons to components and components to map
// units with every parameter sourced from the texture table, then joins
// the dominant hydrologic soil groups (left join; map units without HSG
// data keep empty codes).
func (e *Engine) TextureLookup(components []model.ComponentRecord, horizons []model.HorizonRecord) ([]model.MapunitParameterSet, error) {
	compParams := aggregate.Horizons(horizons, e.window)
	rows := aggregate.Mapunits(compParams, components)
	if len(rows) == 0 {
		return nil, eris.Wrap(ErrEmptyAggregation, "texture strategy")
	}

	joinHSG(rows, components)

	zap.L().Info("engine: texture lookup complete",
		zap.Int("components", len(compParams)),
		zap.Int("mapunits", len(rows)),
	)
	return rows, nil
}

// HSGLookup runs the texture strategy and then overrides conductivity
// with the representative value for each map unit's dominant group.
// Map units whose dominant group has no table entry keep the
// texture-derived conductivity.
func (e *Engine) HSGLookup(components []model.ComponentRecord, horizons []model.HorizonRecord) ([]model.MapunitParameterSet, error) {
	rows, err := e.TextureLookup(components, horizons)
	if err != nil {
		return nil, err
	}

	var overridden int
	for i := range rows {
		if ks, ok := hsg.RepresentativeKsat[rows[i].HSGDominant]; ok {
			rows[i].Ks = ks
			overridden++
		}
	}
	zap.L().Debug("engine: applied HSG conductivity overrides",
		zap.Int("overridden", overridden),
		zap.Int("mapunits", len(rows)),
	)
	return rows, nil
}

// Pedotransfer estimates parameters without the texture table: measured
// ksat and bulk-density-derived porosity aggregate through the same
// thickness and composition weighting, suction comes from the
// pedotransfer function of the aggregated sand/clay percentages, and
// both initial-moisture regimes are pinned to the configured constant.
// Field capacity, wilting point, and initial deficit are not estimated
// by this strategy and come out as NaN.
func (e *Engine) Pedotransfer(components []model.ComponentRecord, horizons []model.HorizonRecord) ([]model.MapunitParameterSet, error) {
	surfaces := aggregate.MeasuredHorizons(horizons, e.window)
	measured := aggregate.MeasuredMapunits(surfaces, components)
	if len(measured) == 0 {
		return nil, eris.Wrap(ErrEmptyAggregation, "pedotransfer strategy")
	}

	rows := make([]model.MapunitParameterSet, 0, len(measured))
	for _, m := range measured {
		ks := m.Ksat
		if math.IsNaN(ks) {
			ks = 0
		}
		thetaS := m.ThetaS
		if math.IsNaN(thetaS) {
			thetaS = 0.45
		}
		thetaS = math.Max(0, math.Min(0.9, thetaS))

		row := model.MapunitParameterSet{
			Mukey:        m.Mukey,
			Ks:           ks,
			Psi:          e.suction(clampPct(m.SandPct), clampPct(m.ClayPct)),
			ThetaS:       thetaS,
			ThetaFC:      math.NaN(),
			ThetaWP:      math.NaN(),
			InitDeficit:  math.NaN(),
			ThetaIDesign: e.thetaI,
			ThetaICont:   e.thetaI,
		}
		row.DThetaDesign = row.ThetaS - row.ThetaIDesign
		row.DThetaCont = row.ThetaS - row.ThetaICont
		rows = append(rows, row)
	}

	joinHSG(rows, components)

	zap.L().Info("engine: pedotransfer complete",
		zap.Int("components", len(surfaces)),
		zap.Int("mapunits", len(rows)),
	)
	return rows, nil
}

// joinHSG attaches resolved hydrologic soil groups by mukey. Rows
// without a matching summary are left untouched.
func joinHSG(rows []model.MapunitParameterSet, components []model.ComponentRecord) {
	byMukey := hsg.Index(hsg.Resolve(components))
	for i := range rows {
		s, ok := byMukey[rows[i].Mukey]
		if !ok {
			continue
		}
		rows[i].HSGDominant = s.Dominant
		rows[i].HSGDry = s.Dry
		rows[i].HSGDrained = s.Drained
		rows[i].HSGComp = s.Comp
	}
}

func clampPct(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(100, v))
}
