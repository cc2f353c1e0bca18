// Package vector reads SSURGO map unit polygon shapefiles and joins
// them to engine output so every polygon carries its parameter row.
package vector

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
)

// Feature is one soil polygon with its map unit key.
type Feature struct {
	Mukey string
	Geom  *geom.MultiPolygon
}

// ReadMupolygons reads a mupolygon (soilmu_a_*) shapefile. Records
// without a MUKEY attribute or with degenerate geometry are skipped.
func ReadMupolygons(path string) ([]Feature, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "vector: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	mukeyIdx := -1
	for i, f := range reader.Fields() {
		name := strings.TrimRight(f.String(), "\x00")
		if strings.EqualFold(name, "mukey") {
			mukeyIdx = i
			break
		}
	}
	if mukeyIdx < 0 {
		return nil, eris.Errorf("vector: %s has no MUKEY attribute", path)
	}

	var features []Feature
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()

		mukey := strings.TrimSpace(strings.TrimRight(reader.Attribute(mukeyIdx), "\x00"))
		if mukey == "" {
			skipped++
			continue
		}

		poly, ok := shape.(*shp.Polygon)
		if !ok {
			skipped++
			continue
		}
		g := polygonToMultiPolygon(poly)
		if g == nil {
			skipped++
			continue
		}

		features = append(features, Feature{Mukey: mukey, Geom: g})
	}

	if skipped > 0 {
		zap.L().Debug("skipped shapefile records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	zap.L().Info("read map unit polygons",
		zap.String("path", path),
		zap.Int("features", len(features)),
	)
	return features, nil
}

// polygonToMultiPolygon converts a shapefile Polygon to a
// geom.MultiPolygon. Each shapefile part becomes one single-ring
// polygon; hole association is left to the even-odd rule downstream.
func polygonToMultiPolygon(p *shp.Polygon) *geom.MultiPolygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}

		ring := geom.NewLinearRingFlat(geom.XY, flat)
		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(ring); err != nil {
			zap.L().Debug("skipping malformed polygon ring", zap.Int32("part", i), zap.Error(err))
			continue
		}
		if err := mp.Push(poly); err != nil {
			zap.L().Debug("skipping malformed polygon part", zap.Int32("part", i), zap.Error(err))
			continue
		}
	}

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

// Bounds returns the envelope of all features as (minX, minY, maxX, maxY).
func Bounds(features []Feature) (float64, float64, float64, float64, error) {
	if len(features) == 0 {
		return 0, 0, 0, 0, eris.New("vector: no features to bound")
	}

	bounds := geom.NewBounds(geom.XY)
	for _, f := range features {
		bounds.Extend(f.Geom)
	}
	return bounds.Min(0), bounds.Min(1), bounds.Max(0), bounds.Max(1), nil
}
