package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/basinworks/greenampt-cli/internal/export"
	"github.com/basinworks/greenampt-cli/internal/model"
	"github.com/basinworks/greenampt-cli/internal/raster"
	"github.com/basinworks/greenampt-cli/internal/vector"
)

var (
	exportRunID     string
	exportShapefile string
	exportDir       string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a run's parameters as tables and rasters",
	Long:  "Writes the stored parameter rows of a run as CSV and XLSX tables with a units sidecar. With a mupolygon shapefile, also joins the rows to the polygons and writes one ESRI ASCII raster per parameter field.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		run, err := st.GetRun(ctx, exportRunID)
		if err != nil {
			return eris.Wrapf(err, "load run %s", exportRunID)
		}
		rows, err := st.Parameters(ctx, run.ID)
		if err != nil {
			return eris.Wrap(err, "load parameters")
		}
		if len(rows) == 0 {
			return eris.Errorf("run %s has no parameter rows", run.ID)
		}

		dir := exportDir
		if dir == "" {
			dir = cfg.Output.Dir
		}
		prefix := cfg.Output.Prefix
		if prefix == "" {
			prefix = shortID(run.ID)
		}

		paths, err := export.All(dir, prefix, rows)
		if err != nil {
			return err
		}

		if exportShapefile != "" {
			rasterPaths, err := exportRasters(cmd, dir, prefix, rows, exportShapefile)
			if err != nil {
				return err
			}
			paths = append(paths, rasterPaths...)
		}

		zap.L().Info("export complete",
			zap.String("run_id", run.ID),
			zap.Int("mapunits", len(rows)),
			zap.Int("files", len(paths)),
		)
		for _, p := range paths {
			fmt.Println(p)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportRunID, "run", "", "run ID to export (required)")
	exportCmd.Flags().StringVar(&exportShapefile, "shapefile", "", "mupolygon shapefile for raster output")
	exportCmd.Flags().StringVar(&exportDir, "dir", "", "output directory (default from config)")
	_ = exportCmd.MarkFlagRequired("run")
	rootCmd.AddCommand(exportCmd)
}

// exportRasters joins parameter rows onto the mupolygon shapefile and
// writes one .asc grid per configured field.
func exportRasters(cmd *cobra.Command, dir, prefix string, rows []model.MapunitParameterSet, shapefile string) ([]string, error) {
	features, err := vector.ReadMupolygons(shapefile)
	if err != nil {
		return nil, eris.Wrapf(err, "read shapefile %s", shapefile)
	}
	joined := vector.Join(features, rows)

	grids, err := raster.Rasterize(cmd.Context(), joined, raster.Options{
		Resolution: cfg.Raster.Resolution,
		Fields:     cfg.Raster.Fields,
	})
	if err != nil {
		return nil, eris.Wrap(err, "rasterize")
	}

	paths := make([]string, 0, len(grids))
	for _, g := range grids {
		path := filepath.Join(dir, fmt.Sprintf("%s_%s.asc", prefix, strings.ToLower(g.Field)))
		if err := raster.WriteASCII(g, path); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// shortID returns the first 8 characters of a UUID for compact file
// naming.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
