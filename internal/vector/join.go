package vector

import (
	"go.uber.org/zap"

	"github.com/basinworks/greenampt-cli/internal/model"
)

// AssignedFeature is a soil polygon joined to its parameter row.
// Params is nil for map units the engine produced no row for; those
// polygons rasterize as nodata.
type AssignedFeature struct {
	Feature
	Params *model.MapunitParameterSet
}

// Join left-joins polygons to parameter rows by mukey. Every input
// polygon appears in the output exactly once.
func Join(features []Feature, params []model.MapunitParameterSet) []AssignedFeature {
	byMukey := make(map[string]*model.MapunitParameterSet, len(params))
	for i := range params {
		byMukey[params[i].Mukey] = &params[i]
	}

	out := make([]AssignedFeature, 0, len(features))
	unmatched := 0
	for _, f := range features {
		p := byMukey[f.Mukey]
		if p == nil {
			unmatched++
		}
		out = append(out, AssignedFeature{Feature: f, Params: p})
	}

	if unmatched > 0 {
		zap.L().Warn("polygons without parameter rows",
			zap.Int("count", unmatched),
			zap.Int("total", len(features)),
		)
	}
	return out
}
