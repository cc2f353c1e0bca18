package main

import (
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/basinworks/greenampt-cli/internal/aggregate"
	"github.com/basinworks/greenampt-cli/internal/engine"
	"github.com/basinworks/greenampt-cli/internal/loader"
	"github.com/basinworks/greenampt-cli/internal/model"
	"github.com/basinworks/greenampt-cli/internal/resilience"
	"github.com/basinworks/greenampt-cli/internal/sda"
)

var (
	runArea       string
	runComponents string
	runHorizons   string
	runStrategy   string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Estimate Green-Ampt parameters for a survey area",
	Long:  "Loads component and horizon data from Soil Data Access or local tabular files, runs the configured estimation strategy, and stores the per-map-unit parameter rows.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		strategy := cfg.Params.Strategy
		if runStrategy != "" {
			strategy = runStrategy
		}
		source := "local"
		if runArea != "" {
			source = "sda"
		} else if runComponents == "" || runHorizons == "" {
			return eris.New("either --area or both --components and --horizons are required")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		run, err := st.CreateRun(ctx, model.Run{
			Strategy:     strategy,
			Source:       source,
			WindowTop:    cfg.Params.SurfaceTopCm,
			WindowBottom: cfg.Params.SurfaceBottomCm,
		})
		if err != nil {
			return eris.Wrap(err, "create run")
		}

		rows, err := executeRun(cmd, strategy)
		if err != nil {
			if ferr := st.FailRun(ctx, run.ID, err.Error()); ferr != nil {
				zap.L().Error("failed to mark run failed", zap.Error(ferr))
			}
			return err
		}

		if err := st.SaveParameters(ctx, run.ID, rows); err != nil {
			if ferr := st.FailRun(ctx, run.ID, err.Error()); ferr != nil {
				zap.L().Error("failed to mark run failed", zap.Error(ferr))
			}
			return eris.Wrap(err, "save parameters")
		}
		if err := st.CompleteRun(ctx, run.ID, len(rows)); err != nil {
			return eris.Wrap(err, "complete run")
		}

		zap.L().Info("estimation run complete",
			zap.String("run_id", run.ID),
			zap.String("strategy", strategy),
			zap.String("source", source),
			zap.Int("mapunits", len(rows)),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"run_id":   run.ID,
			"strategy": strategy,
			"source":   source,
			"mapunits": len(rows),
		})
	},
}

func init() {
	runCmd.Flags().StringVar(&runArea, "area", "", "survey area symbol to fetch from Soil Data Access, e.g. IA015")
	runCmd.Flags().StringVar(&runComponents, "components", "", "local component table (CSV, or pipe-delimited .txt)")
	runCmd.Flags().StringVar(&runHorizons, "horizons", "", "local horizon table (CSV, or pipe-delimited .txt)")
	runCmd.Flags().StringVar(&runStrategy, "strategy", "", "estimation strategy: texture, hsg, or pedotransfer (default from config)")
	rootCmd.AddCommand(runCmd)
}

// executeRun loads the input tables from the selected source and runs
// the strategy over them.
func executeRun(cmd *cobra.Command, strategy string) ([]model.MapunitParameterSet, error) {
	ctx := cmd.Context()

	var (
		components []model.ComponentRecord
		horizons   []model.HorizonRecord
		err        error
	)
	if runArea != "" {
		components, horizons, err = fetchFromSDA(cmd, strings.ToUpper(runArea))
	} else {
		components, err = loader.Components(ctx, runComponents)
		if err == nil {
			horizons, err = loader.Horizons(ctx, runHorizons, components)
		}
	}
	if err != nil {
		return nil, err
	}

	eng := engine.New(engine.Options{
		Window: aggregate.Window{
			Top:    cfg.Params.SurfaceTopCm,
			Bottom: cfg.Params.SurfaceBottomCm,
		},
		InitialMoisture: cfg.Params.InitialMoisture,
	})
	return eng.Run(engine.Strategy(strategy), components, horizons)
}

func fetchFromSDA(cmd *cobra.Command, area string) ([]model.ComponentRecord, []model.HorizonRecord, error) {
	ctx := cmd.Context()

	retry := resilience.DefaultPolicy()
	if cfg.SDA.MaxRetries > 0 {
		retry.MaxAttempts = cfg.SDA.MaxRetries
	}
	client := sda.New(sda.Options{
		Endpoint:       cfg.SDA.Endpoint,
		Timeout:        time.Duration(cfg.SDA.TimeoutSecs) * time.Second,
		Retry:          retry,
		RatePerSec:     cfg.SDA.RatePerSec,
		ComponentChunk: cfg.SDA.ComponentChunk,
		HorizonChunk:   cfg.SDA.HorizonChunk,
		MaxConcurrent:  cfg.SDA.MaxConcurrent,
	})

	mukeys, err := client.MukeysForArea(ctx, area)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "list map units for %s", area)
	}
	if len(mukeys) == 0 {
		return nil, nil, eris.Errorf("no map units found for survey area %s", area)
	}
	zap.L().Info("resolved survey area", zap.String("area", area), zap.Int("mukeys", len(mukeys)))

	components, err := client.Components(ctx, mukeys)
	if err != nil {
		return nil, nil, eris.Wrap(err, "fetch components")
	}
	horizons, err := client.Horizons(ctx, mukeys)
	if err != nil {
		return nil, nil, eris.Wrap(err, "fetch horizons")
	}
	return components, horizons, nil
}
