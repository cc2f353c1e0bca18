package model

import (
	"math"
	"strconv"
)

// ParseComponentRows builds ComponentRecords from a tabular result set
// whose first row was the given header. Optional columns that are
// absent parse to their zero value or NaN.
func ParseComponentRows(header []string, rows [][]string) ([]ComponentRecord, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	if err := RequireColumns("component", header, "mukey", "cokey", "comppct_r"); err != nil {
		return nil, err
	}

	col := columnIndex(header)
	records := make([]ComponentRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, ComponentRecord{
			Mukey:     field(row, col, "mukey"),
			Cokey:     field(row, col, "cokey"),
			CompPct:   ParseFloat(field(row, col, "comppct_r")),
			Hydgrp:    field(row, col, "hydgrp"),
			MajorFlag: field(row, col, "majcompflag"),
		})
	}
	return records, nil
}

// ParseHorizonRows builds HorizonRecords from a tabular result set.
// Conductivity converts from SSURGO um/s to in/hr here. The mukey
// column is optional: local extracts often lack it, and the loader
// backfills it from the component table.
func ParseHorizonRows(header []string, rows [][]string) ([]HorizonRecord, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	if err := RequireColumns("chorizon", header, "cokey", "hzdept_r", "hzdepb_r"); err != nil {
		return nil, err
	}

	col := columnIndex(header)
	records := make([]HorizonRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, HorizonRecord{
			Mukey:        field(row, col, "mukey"),
			Cokey:        field(row, col, "cokey"),
			TopDepth:     ParseFloat(field(row, col, "hzdept_r")),
			BottomDepth:  ParseFloat(field(row, col, "hzdepb_r")),
			Ksat:         ParseFloat(field(row, col, "ksat_r")) * KsatUmSecToInHr,
			SandPct:      ParseFloat(field(row, col, "sandtotal_r")),
			ClayPct:      ParseFloat(field(row, col, "claytotal_r")),
			BulkDensity:  ParseFloat(field(row, col, "dbthirdbar_r")),
			TextureLabel: field(row, col, "texcl"),
		})
	}
	return records, nil
}

func columnIndex(header []string) map[string]int {
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	return col
}

func field(row []string, col map[string]int, name string) string {
	i, ok := col[name]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

// ParseFloat maps empty and NULL cells to NaN.
func ParseFloat(s string) float64 {
	if s == "" || s == "NULL" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
