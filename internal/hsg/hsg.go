// Package hsg parses NRCS hydrologic soil group codes and resolves one
// dominant group per map unit from its component composition.
package hsg

import (
	"math"
	"sort"
	"strings"

	"github.com/basinworks/greenampt-cli/internal/model"
)

// Unknown is the placeholder group for missing or unparseable codes.
const Unknown = "U"

// KsatRange is the saturated conductivity band for one group, in in/hr.
// Max is +Inf for group A.
type KsatRange struct {
	Min, Max float64
}

// KsatRanges maps each hydrologic soil group to its conductivity band
// from the NRCS National Engineering Handbook, chapter 7. Bands are
// non-overlapping and ordered A > B > C > D by minimum conductivity.
var KsatRanges = map[string]KsatRange{
	"A": {Min: 0.45, Max: math.Inf(1)},
	"B": {Min: 0.15, Max: 0.30},
	"C": {Min: 0.05, Max: 0.15},
	"D": {Min: 0.00, Max: 0.05},
}

// RepresentativeKsat maps each group to a single representative
// conductivity in in/hr: the conservative minimum for A, band midpoints
// for B through D.
var RepresentativeKsat = map[string]float64{
	"A": 0.45,
	"B": 0.22,
	"C": 0.10,
	"D": 0.025,
}

// ParseDual splits a possibly dual hydrologic group code into its dry
// and drained halves. Single codes apply to both; blank or unparseable
// input yields (Unknown, Unknown). Both "/" and "\" separate duals.
func ParseDual(code string) (dry, drained string) {
	text := strings.ToUpper(strings.TrimSpace(code))
	text = strings.ReplaceAll(text, `\`, "/")
	if text == "" {
		return Unknown, Unknown
	}
	if before, after, found := strings.Cut(text, "/"); found {
		dry = strings.TrimSpace(before)
		drained = strings.TrimSpace(after)
		if dry == "" {
			dry = Unknown
		}
		if drained == "" {
			drained = Unknown
		}
		return dry, drained
	}
	return text, text
}

// Summary is the resolved hydrologic grouping for one map unit.
type Summary struct {
	Mukey    string         `json:"mukey"`
	Dominant string         `json:"hsg_dom"`
	Dry      string         `json:"hsg_dry"`
	Drained  string         `json:"hsg_drained"`
	Comp     map[string]int `json:"hsg_comp"`
}

// Resolve summarizes hydrologic soil groups per map unit. The dominant
// component is the one with the highest composition percentage, with a
// flagged major component outranking a non-major one at equal
// percentage; its parsed code supplies the dry/drained pair. Comp holds
// the composition percentage per distinct dry code, rounded to whole
// percent (empty when the total composition is zero).
//
// Map units appear in the result in first-seen input order.
func Resolve(components []model.ComponentRecord) []Summary {
	index := make(map[string][]model.ComponentRecord)
	var order []string
	for _, c := range components {
		if _, seen := index[c.Mukey]; !seen {
			order = append(order, c.Mukey)
		}
		index[c.Mukey] = append(index[c.Mukey], c)
	}

	summaries := make([]Summary, 0, len(order))
	for _, mukey := range order {
		group := append([]model.ComponentRecord(nil), index[mukey]...)
		sort.SliceStable(group, func(i, j int) bool {
			wi, wj := pct(group[i]), pct(group[j])
			if wi != wj {
				return wi > wj
			}
			return isMajor(group[i]) && !isMajor(group[j])
		})

		dry, drained := ParseDual(group[0].Hydgrp)

		var total float64
		byCode := make(map[string]float64)
		for _, c := range group {
			code, _ := ParseDual(c.Hydgrp)
			byCode[code] += pct(c)
			total += pct(c)
		}
		comp := make(map[string]int)
		if total > 0 {
			for code, sum := range byCode {
				comp[code] = int(math.Round(100 * sum / total))
			}
		}

		summaries = append(summaries, Summary{
			Mukey:    mukey,
			Dominant: dry,
			Dry:      dry,
			Drained:  drained,
			Comp:     comp,
		})
	}
	return summaries
}

// Index builds a mukey lookup over resolved summaries.
func Index(summaries []Summary) map[string]Summary {
	m := make(map[string]Summary, len(summaries))
	for _, s := range summaries {
		m[s.Mukey] = s
	}
	return m
}

func pct(c model.ComponentRecord) float64 {
	if math.IsNaN(c.CompPct) {
		return 0
	}
	return c.CompPct
}

func isMajor(c model.ComponentRecord) bool {
	return strings.EqualFold(strings.TrimSpace(c.MajorFlag), "yes")
}
