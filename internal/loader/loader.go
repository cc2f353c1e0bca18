// Package loader reads SSURGO component and horizon tables from local
// files: either pipe-delimited tabular extracts (.txt) or comma CSV
// exports. Both need a header row naming the SSURGO columns.
package loader

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/basinworks/greenampt-cli/internal/fetcher"
	"github.com/basinworks/greenampt-cli/internal/model"
)

// Components reads a local component table.
func Components(ctx context.Context, path string) ([]model.ComponentRecord, error) {
	header, rows, err := readTable(ctx, path)
	if err != nil {
		return nil, err
	}

	records, err := model.ParseComponentRows(header, rows)
	if err != nil {
		return nil, eris.Wrapf(err, "loader: %s", path)
	}
	zap.L().Info("loaded components", zap.String("path", path), zap.Int("rows", len(records)))
	return records, nil
}

// Horizons reads a local horizon table. Extracts that lack the mukey
// column get it backfilled from the component table's cokey mapping;
// horizons whose cokey is unknown there are dropped.
func Horizons(ctx context.Context, path string, components []model.ComponentRecord) ([]model.HorizonRecord, error) {
	header, rows, err := readTable(ctx, path)
	if err != nil {
		return nil, err
	}

	records, err := model.ParseHorizonRows(header, rows)
	if err != nil {
		return nil, eris.Wrapf(err, "loader: %s", path)
	}

	records = backfillMukeys(records, components)
	zap.L().Info("loaded horizons", zap.String("path", path), zap.Int("rows", len(records)))
	return records, nil
}

func readTable(ctx context.Context, path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, eris.Wrap(err, "loader: open table")
	}
	defer f.Close() //nolint:errcheck

	delimiter := ','
	if filepath.Ext(path) == ".txt" {
		delimiter = '|'
	}

	headerCh := make(chan []string, 1)
	rows, err := fetcher.ReadTable(ctx, f, fetcher.TableOptions{
		Delimiter: delimiter,
		HasHeader: true,
		HeaderCh:  headerCh,
		TrimSpace: true,
	})
	if err != nil {
		return nil, nil, err
	}

	select {
	case header := <-headerCh:
		return header, rows, nil
	default:
		return nil, nil, eris.Errorf("loader: %s is empty", path)
	}
}

func backfillMukeys(horizons []model.HorizonRecord, components []model.ComponentRecord) []model.HorizonRecord {
	byCokey := make(map[string]string, len(components))
	for _, c := range components {
		byCokey[c.Cokey] = c.Mukey
	}

	out := horizons[:0]
	dropped := 0
	for _, h := range horizons {
		if h.Mukey == "" {
			h.Mukey = byCokey[h.Cokey]
		}
		if h.Mukey == "" {
			dropped++
			continue
		}
		out = append(out, h)
	}
	if dropped > 0 {
		zap.L().Warn("dropped horizons without a map unit", zap.Int("count", dropped))
	}
	return out
}
