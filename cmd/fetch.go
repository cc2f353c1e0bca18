package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/basinworks/greenampt-cli/internal/fetcher"
	"github.com/basinworks/greenampt-cli/internal/resilience"
)

// wssArchiveURL is the Web Soil Survey download cache location for a
// survey-area archive.
const wssArchiveURL = "https://websoilsurvey.sc.egov.usda.gov/DSD/Download/Cache/SSA/wss_SSA_%s.zip"

var (
	fetchArea    string
	fetchURL     string
	fetchDest    string
	fetchSpatial bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download and extract a SSURGO survey-area archive",
	Long:  "Downloads the Web Soil Survey archive for a survey area, skipping the transfer when the cached ETag still matches, and extracts the tabular (and optionally spatial) files.",
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

		area := strings.ToUpper(fetchArea)
		url := fetchURL
		if url == "" {
			url = fmt.Sprintf(wssArchiveURL, area)
		}
		dest := fetchDest
		if dest == "" {
			dest = filepath.Join(cfg.Output.Dir, "ssurgo", area)
		}

		etag, err := st.ArchiveETag(ctx, area)
		if err != nil {
			return eris.Wrap(err, "read cached etag")
		}

		f := newFetcher()
		body, newETag, changed, err := f.DownloadIfChanged(ctx, url, etag)
		if err != nil {
			return eris.Wrapf(err, "download %s", url)
		}
		if !changed {
			zap.L().Info("survey archive unchanged, skipping download",
				zap.String("area", area),
				zap.String("etag", etag),
			)
			fmt.Fprintf(os.Stderr, "%s is up to date.\n", area)
			return nil
		}
		defer body.Close() //nolint:errcheck

		zipPath, err := saveArchive(body, area)
		if err != nil {
			return err
		}
		defer os.Remove(zipPath) //nolint:errcheck

		files, err := fetcher.ExtractTabular(zipPath, filepath.Join(dest, "tabular"))
		if err != nil {
			return eris.Wrapf(err, "extract tabular from %s", zipPath)
		}
		if fetchSpatial {
			spatial, err := fetcher.ExtractSpatial(zipPath, filepath.Join(dest, "spatial"))
			if err != nil {
				return eris.Wrapf(err, "extract spatial from %s", zipPath)
			}
			files = append(files, spatial...)
		}

		if newETag != "" {
			if err := st.SetArchiveETag(ctx, area, newETag); err != nil {
				return eris.Wrap(err, "cache etag")
			}
		}

		zap.L().Info("survey archive fetched",
			zap.String("area", area),
			zap.Int("files", len(files)),
			zap.String("dest", dest),
		)
		fmt.Printf("Extracted %d files to %s\n", len(files), dest)
		return nil
	},
}

func init() {
	fetchCmd.Flags().StringVar(&fetchArea, "area", "", "survey area symbol, e.g. IA015 (required)")
	fetchCmd.Flags().StringVar(&fetchURL, "url", "", "override the archive URL")
	fetchCmd.Flags().StringVar(&fetchDest, "dest", "", "extraction directory (default <output.dir>/ssurgo/<area>)")
	fetchCmd.Flags().BoolVar(&fetchSpatial, "spatial", false, "also extract the spatial shapefiles")
	_ = fetchCmd.MarkFlagRequired("area")
	rootCmd.AddCommand(fetchCmd)
}

func newFetcher() fetcher.Fetcher {
	retry := resilience.DefaultPolicy()
	if cfg.SDA.MaxRetries > 0 {
		retry.MaxAttempts = cfg.SDA.MaxRetries
	}
	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		Timeout: time.Duration(cfg.SDA.TimeoutSecs) * time.Second,
		Retry:   retry,
	})
}

// saveArchive spools the downloaded archive to a temp file so the zip
// reader can seek it.
func saveArchive(body io.Reader, area string) (string, error) {
	tmp, err := os.CreateTemp("", "wss_"+area+"_*.zip")
	if err != nil {
		return "", eris.Wrap(err, "create temp archive")
	}
	n, err := io.Copy(tmp, body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name()) //nolint:errcheck
		return "", eris.Wrap(err, "spool archive")
	}
	zap.L().Debug("spooled survey archive", zap.Int64("bytes", n), zap.String("path", tmp.Name()))
	return tmp.Name(), nil
}
