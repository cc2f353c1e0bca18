// Package store persists estimation runs, their parameter rows, and
// the survey-archive ETag cache. Two backends: SQLite for single-user
// CLI use, Postgres for shared deployments.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"math"

	"github.com/rotisserie/eris"

	"github.com/basinworks/greenampt-cli/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status   model.RunStatus `json:"status,omitempty"`
	Strategy string          `json:"strategy,omitempty"`
	Limit    int             `json:"limit,omitempty"`
	Offset   int             `json:"offset,omitempty"`
}

// Store is the persistence interface for the estimation pipeline.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, run model.Run) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, mapunits int) error
	FailRun(ctx context.Context, runID string, message string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Parameter rows
	SaveParameters(ctx context.Context, runID string, rows []model.MapunitParameterSet) error
	Parameters(ctx context.Context, runID string) ([]model.MapunitParameterSet, error)

	// Survey archive ETag cache
	ArchiveETag(ctx context.Context, areaSymbol string) (string, error)
	SetArchiveETag(ctx context.Context, areaSymbol, etag string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// parameterColumns is the column order both backends use for
// parameter rows, after run_id/mukey.
var parameterColumns = []string{
	"ks_inhr", "psi_in", "theta_s", "theta_fc", "theta_wp", "init_def",
	"theta_i_design", "theta_i_cont", "dtheta_design", "dtheta_cont",
	"texcl", "hsg_dom", "hsg_dry", "hsg_drained", "hsg_comp",
}

// parameterValues flattens one parameter set into the parameterColumns
// order. NaN becomes NULL; the HSG composition map becomes JSON.
func parameterValues(m model.MapunitParameterSet) ([]any, error) {
	var comp any
	if m.HSGComp != nil {
		b, err := json.Marshal(m.HSGComp)
		if err != nil {
			return nil, eris.Wrap(err, "store: marshal hsg composition")
		}
		comp = string(b)
	}

	return []any{
		nullFloat(m.Ks), nullFloat(m.Psi), nullFloat(m.ThetaS),
		nullFloat(m.ThetaFC), nullFloat(m.ThetaWP), nullFloat(m.InitDeficit),
		nullFloat(m.ThetaIDesign), nullFloat(m.ThetaICont),
		nullFloat(m.DThetaDesign), nullFloat(m.DThetaCont),
		m.TextureClass, m.HSGDominant, m.HSGDry, m.HSGDrained, comp,
	}, nil
}

// scanParameter rebuilds a parameter set from a row scanned in
// (mukey, parameterColumns...) order.
func scanParameter(row interface{ Scan(dest ...any) error }) (model.MapunitParameterSet, error) {
	var m model.MapunitParameterSet
	var ks, psi, thetaS, thetaFC, thetaWP, initDef sql.NullFloat64
	var thetaID, thetaIC, dThetaD, dThetaC sql.NullFloat64
	var comp sql.NullString

	err := row.Scan(&m.Mukey,
		&ks, &psi, &thetaS, &thetaFC, &thetaWP, &initDef,
		&thetaID, &thetaIC, &dThetaD, &dThetaC,
		&m.TextureClass, &m.HSGDominant, &m.HSGDry, &m.HSGDrained, &comp,
	)
	if err != nil {
		return m, eris.Wrap(err, "store: scan parameter row")
	}

	m.Ks = floatOrNaN(ks)
	m.Psi = floatOrNaN(psi)
	m.ThetaS = floatOrNaN(thetaS)
	m.ThetaFC = floatOrNaN(thetaFC)
	m.ThetaWP = floatOrNaN(thetaWP)
	m.InitDeficit = floatOrNaN(initDef)
	m.ThetaIDesign = floatOrNaN(thetaID)
	m.ThetaICont = floatOrNaN(thetaIC)
	m.DThetaDesign = floatOrNaN(dThetaD)
	m.DThetaCont = floatOrNaN(dThetaC)

	if comp.Valid && comp.String != "" {
		if err := json.Unmarshal([]byte(comp.String), &m.HSGComp); err != nil {
			return m, eris.Wrap(err, "store: unmarshal hsg composition")
		}
	}
	return m, nil
}

// nullFloat maps NaN to NULL so missing parameters round-trip.
func nullFloat(v float64) any {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

func floatOrNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
