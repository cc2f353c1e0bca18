// Package export writes engine output as CSV and XLSX tables plus a
// YAML sidecar documenting field units.
package export

import (
	"encoding/csv"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/basinworks/greenampt-cli/internal/model"
)

// Header returns the output column order: mukey, the numeric
// parameters, then the categorical columns.
func Header() []string {
	return append(append([]string{"mukey"}, model.NumericFields()...),
		"texcl", "hsg_dom", "hsg_dry", "hsg_drained", "hsg_comp")
}

// CSV writes parameter rows as a comma-separated table. NaN cells are
// left empty.
func CSV(path string, rows []model.MapunitParameterSet) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	if err := w.Write(Header()); err != nil {
		return eris.Wrap(err, "export: write header")
	}
	for _, m := range rows {
		if err := w.Write(record(m)); err != nil {
			return eris.Wrapf(err, "export: write row for mukey %s", m.Mukey)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrapf(err, "export: flush %s", path)
	}

	zap.L().Info("wrote csv export", zap.String("path", path), zap.Int("rows", len(rows)))
	return nil
}

// XLSX writes parameter rows as a single-sheet workbook. Numeric cells
// stay numeric so downstream spreadsheets can compute on them.
func XLSX(path string, rows []model.MapunitParameterSet) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("parameters")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	headerRow := sheet.AddRow()
	for _, name := range Header() {
		headerRow.AddCell().Value = name
	}

	for _, m := range rows {
		row := sheet.AddRow()
		row.AddCell().Value = m.Mukey
		for _, name := range model.NumericFields() {
			cell := row.AddCell()
			v, _ := m.NumericField(name)
			if !math.IsNaN(v) {
				cell.SetFloat(v)
			}
		}
		row.AddCell().Value = m.TextureClass
		row.AddCell().Value = m.HSGDominant
		row.AddCell().Value = m.HSGDry
		row.AddCell().Value = m.HSGDrained
		row.AddCell().Value = formatComp(m.HSGComp)
	}

	if err := file.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	zap.L().Info("wrote xlsx export", zap.String("path", path), zap.Int("rows", len(rows)))
	return nil
}

// UnitsSidecar writes the field-units reference next to the exports.
func UnitsSidecar(path string) error {
	data, err := yaml.Marshal(model.Units())
	if err != nil {
		return eris.Wrap(err, "export: marshal units")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "export: write %s", path)
	}
	return nil
}

// All writes the CSV and XLSX tables plus the units sidecar into dir
// with the given filename prefix, returning the written paths.
func All(dir, prefix string, rows []model.MapunitParameterSet) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "export: create dir %s", dir)
	}

	csvPath := filepath.Join(dir, prefix+".csv")
	if err := CSV(csvPath, rows); err != nil {
		return nil, err
	}
	xlsxPath := filepath.Join(dir, prefix+".xlsx")
	if err := XLSX(xlsxPath, rows); err != nil {
		return nil, err
	}
	unitsPath := filepath.Join(dir, prefix+"_units.yaml")
	if err := UnitsSidecar(unitsPath); err != nil {
		return nil, err
	}

	return []string{csvPath, xlsxPath, unitsPath}, nil
}

func record(m model.MapunitParameterSet) []string {
	out := make([]string, 0, len(model.NumericFields())+6)
	out = append(out, m.Mukey)
	for _, name := range model.NumericFields() {
		v, _ := m.NumericField(name)
		if math.IsNaN(v) {
			out = append(out, "")
			continue
		}
		out = append(out, strconv.FormatFloat(v, 'g', -1, 64))
	}
	return append(out, m.TextureClass, m.HSGDominant, m.HSGDry, m.HSGDrained, formatComp(m.HSGComp))
}

// formatComp renders the HSG composition map as compact JSON.
// encoding/json sorts map keys, so the output is stable.
func formatComp(comp map[string]int) string {
	if len(comp) == 0 {
		return ""
	}
	b, err := json.Marshal(comp)
	if err != nil {
		return ""
	}
	return string(b)
}
