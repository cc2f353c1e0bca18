package raster

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
)

// noDataValue is the sentinel ESRI ASCII rasters use for missing cells.
const noDataValue = -9999

// WriteASCII writes a grid as an ESRI ASCII raster (.asc). NaN cells
// become the NODATA sentinel.
func WriteASCII(g *Grid, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "raster: create %s", path)
	}
	defer f.Close() //nolint:errcheck

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "ncols %d\n", g.Cols)
	fmt.Fprintf(w, "nrows %d\n", g.Rows)
	fmt.Fprintf(w, "xllcorner %s\n", formatFloat(g.MinX))
	fmt.Fprintf(w, "yllcorner %s\n", formatFloat(g.MinY))
	fmt.Fprintf(w, "cellsize %s\n", formatFloat(g.Resolution))
	fmt.Fprintf(w, "NODATA_value %d\n", noDataValue)

	for row := 0; row < g.Rows; row++ {
		for col := 0; col < g.Cols; col++ {
			if col > 0 {
				if err := w.WriteByte(' '); err != nil {
					return eris.Wrap(err, "raster: write cell")
				}
			}
			v := g.At(col, row)
			var cell string
			if math.IsNaN(float64(v)) {
				cell = strconv.Itoa(noDataValue)
			} else {
				cell = strconv.FormatFloat(float64(v), 'g', -1, 32)
			}
			if _, err := w.WriteString(cell); err != nil {
				return eris.Wrap(err, "raster: write cell")
			}
		}
		if err := w.WriteByte('\n'); err != nil {
			return eris.Wrap(err, "raster: write row")
		}
	}

	if err := w.Flush(); err != nil {
		return eris.Wrapf(err, "raster: flush %s", path)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
