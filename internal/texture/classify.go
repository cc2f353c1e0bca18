package texture

import "math"

// fractions holds sand/clay/silt percentages renormalized to sum to 100.
type fractions struct {
	sand, clay, silt float64
}

// rule is one step of the ordered USDA decision tree: the first rule
// whose predicate matches resolves the class.
type rule struct {
	match   func(f fractions) bool
	resolve func(f fractions) string
}

func fixed(class string) func(fractions) string {
	return func(fractions) string { return class }
}

// rules is the USDA texture triangle expressed as an ordered chain of
// (predicate, result) pairs, evaluated top to bottom. The trailing
// catch-all makes the chain total.
var rules = []rule{
	{func(f fractions) bool { return f.sand >= 85 && f.clay <= 10 && f.silt <= 15 }, fixed(Sand)},
	{func(f fractions) bool { return f.sand >= 70 && f.sand < 90 && f.clay <= 15 && f.silt <= 30 }, fixed(LoamySand)},
	{func(f fractions) bool { return f.silt >= 80 && f.clay < 12 }, fixed(SiltLoam)},
	{func(f fractions) bool { return f.clay >= 40 }, classifyClay40},
	{func(f fractions) bool { return f.clay >= 35 }, classifyClay35},
	{func(f fractions) bool { return f.clay >= 27 }, classifyClay27},
	{func(f fractions) bool { return f.clay >= 20 }, classifyClay20},
	{func(f fractions) bool { return f.clay >= 7 }, classifyClay7},
	{func(f fractions) bool { return f.sand >= 43 && f.silt < 50 }, fixed(SandyLoam)},
	{func(f fractions) bool { return f.silt >= 50 }, fixed(SiltLoam)},
	{func(f fractions) bool { return f.sand >= 23 && f.sand < 52 && f.silt >= 28 && f.silt < 50 }, fixed(Loam)},
	{func(fractions) bool { return true }, fixed(Loam)},
}

// Clay-band sub-classification. The sandy/silty thresholds differ per
// band, so the bands stay as separate functions.
func classifyClay40(f fractions) string {
	switch {
	case f.silt >= 40:
		return SiltyClay
	case f.sand >= 45:
		return SandyClay
	default:
		return Clay
	}
}

func classifyClay35(f fractions) string {
	switch {
	case f.sand >= 45:
		return SandyClay
	case f.silt >= 40:
		return SiltyClay
	default:
		return Clay
	}
}

func classifyClay27(f fractions) string {
	switch {
	case f.sand >= 45:
		return SandyClayLoam
	case f.silt >= 40:
		return SiltyClayLoam
	default:
		return ClayLoam
	}
}

func classifyClay20(f fractions) string {
	switch {
	case f.sand >= 52:
		return SandyClayLoam
	case f.silt >= 50:
		return SiltyClayLoam
	default:
		return ClayLoam
	}
}

func classifyClay7(f fractions) string {
	switch {
	case f.sand >= 70 && f.clay < 15 && f.silt <= 30:
		return LoamySand
	case f.sand >= 52 && f.silt < 50:
		return SandyLoam
	case f.silt >= 50:
		return SiltLoam
	case f.sand >= 23 && f.sand < 52 && f.silt >= 28 && f.silt < 50:
		return Loam
	default:
		return SandyLoam
	}
}

// FromPercentages derives the USDA texture class from sand and clay
// percentages. Silt is the remainder; all three are clamped to [0, 100]
// and renormalized to sum to 100 before the decision tree runs. NaN
// inputs yield "" (no classification).
func FromPercentages(sandPct, clayPct float64) string {
	if math.IsNaN(sandPct) || math.IsNaN(clayPct) {
		return ""
	}

	sand := clamp(sandPct, 0, 100)
	clay := clamp(clayPct, 0, 100)
	silt := clamp(100-sand-clay, 0, 100)

	total := sand + clay + silt
	if total <= 0 {
		return ""
	}
	f := fractions{
		sand: sand / total * 100,
		clay: clay / total * 100,
		silt: silt / total * 100,
	}

	for _, r := range rules {
		if r.match(f) {
			return r.resolve(f)
		}
	}
	return Loam
}

// Resolve returns the canonical texture class for a horizon: the
// normalized explicit label when one is recognized, otherwise the class
// derived from sand/clay percentages. "" means the horizon cannot be
// classified and must be dropped by the caller.
func Resolve(label string, sandPct, clayPct float64) string {
	if class := Normalize(label); class != "" {
		return class
	}
	return FromPercentages(sandPct, clayPct)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
