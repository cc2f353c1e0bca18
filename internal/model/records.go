// Package model defines the SSURGO input records and the derived
// Green-Ampt parameter sets exchanged between pipeline stages.
package model

import (
	"math"

	"github.com/rotisserie/eris"
)

// HorizonRecord is one chorizon row: a depth interval within a soil
// component. Depths are centimeters; sand/clay are percentages; bulk
// density is g/cm3; ksat is the measured saturated conductivity.
// Missing numeric inputs are represented as NaN.
type HorizonRecord struct {
	Mukey        string  `json:"mukey"`
	Cokey        string  `json:"cokey"`
	TopDepth     float64 `json:"hzdept_r"`
	BottomDepth  float64 `json:"hzdepb_r"`
	Ksat         float64 `json:"ksat_r"`
	SandPct      float64 `json:"sandtotal_r"`
	ClayPct      float64 `json:"claytotal_r"`
	BulkDensity  float64 `json:"dbthirdbar_r"`
	TextureLabel string  `json:"texcl,omitempty"`
}

// ComponentRecord is one component row: a soil type within a map unit
// with its composition percentage and hydrologic soil group code.
type ComponentRecord struct {
	Mukey     string  `json:"mukey"`
	Cokey     string  `json:"cokey"`
	CompPct   float64 `json:"comppct_r"`
	Hydgrp    string  `json:"hydgrp,omitempty"`
	MajorFlag string  `json:"majcompflag,omitempty"`
}

// ComponentParameterSet holds surface-window Green-Ampt parameters for
// one (mukey, cokey) pair, produced by the horizon aggregator.
type ComponentParameterSet struct {
	Mukey        string  `json:"mukey"`
	Cokey        string  `json:"cokey"`
	Ks           float64 `json:"Ks_inhr"`
	Psi          float64 `json:"psi_in"`
	ThetaS       float64 `json:"theta_s"`
	ThetaFC      float64 `json:"theta_fc"`
	ThetaWP      float64 `json:"theta_wp"`
	InitDeficit  float64 `json:"init_def"`
	TextureClass string  `json:"texcl,omitempty"`
}

// MapunitParameterSet is the terminal output of the engine: one row per
// map unit with composition-weighted parameters, both initial-moisture
// regimes, and the resolved hydrologic soil groups.
type MapunitParameterSet struct {
	Mukey        string  `json:"mukey"`
	Ks           float64 `json:"Ks_inhr"`
	Psi          float64 `json:"psi_in"`
	ThetaS       float64 `json:"theta_s"`
	ThetaFC      float64 `json:"theta_fc"`
	ThetaWP      float64 `json:"theta_wp"`
	InitDeficit  float64 `json:"init_def"`
	ThetaIDesign float64 `json:"theta_i_design"`
	ThetaICont   float64 `json:"theta_i_cont"`
	DThetaDesign float64 `json:"dtheta_design"`
	DThetaCont   float64 `json:"dtheta_cont"`
	TextureClass string  `json:"texcl,omitempty"`

	HSGDominant string         `json:"hsg_dom,omitempty"`
	HSGDry      string         `json:"hsg_dry,omitempty"`
	HSGDrained  string         `json:"hsg_drained,omitempty"`
	HSGComp     map[string]int `json:"hsg_comp,omitempty"`
}

// NumericFields lists the MapunitParameterSet field names that can be
// rasterized, in output order.
func NumericFields() []string {
	return []string{
		"Ks_inhr", "psi_in", "theta_s", "theta_fc", "theta_wp", "init_def",
		"theta_i_design", "theta_i_cont", "dtheta_design", "dtheta_cont",
	}
}

// NumericField returns the named numeric field of a MapunitParameterSet.
// Unknown names return NaN and false.
func (m *MapunitParameterSet) NumericField(name string) (float64, bool) {
	switch name {
	case "Ks_inhr":
		return m.Ks, true
	case "psi_in":
		return m.Psi, true
	case "theta_s":
		return m.ThetaS, true
	case "theta_fc":
		return m.ThetaFC, true
	case "theta_wp":
		return m.ThetaWP, true
	case "init_def":
		return m.InitDeficit, true
	case "theta_i_design":
		return m.ThetaIDesign, true
	case "theta_i_cont":
		return m.ThetaICont, true
	case "dtheta_design":
		return m.DThetaDesign, true
	case "dtheta_cont":
		return m.DThetaCont, true
	}
	return math.NaN(), false
}

// Units maps output field names to their units, exposed to downstream
// collaborators and written as an export sidecar.
func Units() map[string]string {
	return map[string]string{
		"Ks_inhr":        "in/hr (saturated hydraulic conductivity)",
		"psi_in":         "in (wetting-front suction head)",
		"theta_s":        "fraction (porosity)",
		"theta_fc":       "fraction (field capacity)",
		"theta_wp":       "fraction (wilting point)",
		"init_def":       "fraction (porosity - long-term initial moisture)",
		"theta_i_design": "fraction (theta_fc)",
		"theta_i_cont":   "fraction (theta_s - init_def)",
		"dtheta_design":  "fraction",
		"dtheta_cont":    "fraction",
		"hsg_dom":        "A/B/C/D/U (dominant, undrained)",
		"hsg_dry":        "first letter of dual code",
		"hsg_drained":    "second letter of dual code",
		"hsg_comp":       "percent by HSG (dry)",
		"texcl":          "USDA texture class (surface window)",
	}
}

// ErrMissingColumn is returned when an input batch lacks a mandatory
// key or field. Wrap with the column and table names.
var ErrMissingColumn = eris.New("model: missing required column")

// RequireColumns checks that every required column name is present in
// header and returns an error wrapping ErrMissingColumn that names the
// first absent one.
func RequireColumns(table string, header []string, required ...string) error {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[h] = true
	}
	for _, col := range required {
		if !present[col] {
			return eris.Wrapf(ErrMissingColumn, "%s: column %q", table, col)
		}
	}
	return nil
}
