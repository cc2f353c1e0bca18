// Package sda queries the USDA Soil Data Access tabular service for
// the component and horizon records the parameter engine consumes.
// Queries are chunked by map unit key and issued concurrently under a
// shared rate limit.
package sda

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/basinworks/greenampt-cli/internal/model"
	"github.com/basinworks/greenampt-cli/internal/resilience"
)

// DefaultEndpoint is the production SDA tabular POST endpoint.
const DefaultEndpoint = "https://sdmdataaccess.sc.egov.usda.gov/Tabular/post.rest"

// Options configures the SDA client.
type Options struct {
	Endpoint       string
	Timeout        time.Duration
	Retry          resilience.Policy
	RatePerSec     float64
	ComponentChunk int // mukeys per component query
	HorizonChunk   int // mukeys per horizon query
	MaxConcurrent  int // parallel in-flight queries
}

// Client talks to the SDA tabular endpoint.
type Client struct {
	endpoint       string
	http           *http.Client
	limiter        *rate.Limiter
	retry          resilience.Policy
	componentChunk int
	horizonChunk   int
	maxConcurrent  int
}

// New creates an SDA client, applying defaults for zero-value options.
func New(opts Options) *Client {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Minute
	}
	if opts.RatePerSec <= 0 {
		opts.RatePerSec = 5
	}
	if opts.ComponentChunk <= 0 {
		opts.ComponentChunk = 100
	}
	if opts.HorizonChunk <= 0 {
		// Horizon queries join three tables; smaller chunks keep SDA
		// under its per-query row cap.
		opts.HorizonChunk = 50
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 4
	}
	return &Client{
		endpoint:       opts.Endpoint,
		http:           &http.Client{Timeout: opts.Timeout},
		limiter:        rate.NewLimiter(rate.Limit(opts.RatePerSec), 1),
		retry:          opts.Retry,
		componentChunk: opts.ComponentChunk,
		horizonChunk:   opts.HorizonChunk,
		maxConcurrent:  opts.MaxConcurrent,
	}
}

// MukeysForArea returns the map unit keys of one soil survey area,
// e.g. "IA015".
func (c *Client) MukeysForArea(ctx context.Context, areaSymbol string) ([]string, error) {
	q := "SELECT m.mukey FROM legend l " +
		"INNER JOIN mapunit m ON m.lkey = l.lkey " +
		"WHERE l.areasymbol = " + quote(areaSymbol) + " ORDER BY m.mukey"

	header, rows, err := c.query(ctx, q)
	if err != nil {
		return nil, err
	}
	if err := model.RequireColumns("mapunit", header, "mukey"); err != nil {
		return nil, err
	}

	mukeys := make([]string, 0, len(rows))
	for _, row := range rows {
		mukeys = append(mukeys, row[0])
	}
	return mukeys, nil
}

// Components fetches component rows for the given map unit keys,
// preserving mukey order across chunks.
func (c *Client) Components(ctx context.Context, mukeys []string) ([]model.ComponentRecord, error) {
	chunks := chunk(dedupe(mukeys), c.componentChunk)
	results := make([][]model.ComponentRecord, len(chunks))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.maxConcurrent)
	for i, keys := range chunks {
		g.Go(func() error {
			q := "SELECT mukey, cokey, comppct_r, hydgrp, majcompflag " +
				"FROM component WHERE mukey IN (" + quoteList(keys) + ") " +
				"ORDER BY mukey, cokey"
			header, rows, err := c.query(ctx, q)
			if err != nil {
				return err
			}
			records, err := model.ParseComponentRows(header, rows)
			if err != nil {
				return err
			}
			results[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []model.ComponentRecord
	for _, records := range results {
		out = append(out, records...)
	}
	zap.L().Info("fetched components",
		zap.Int("mukeys", len(mukeys)),
		zap.Int("rows", len(out)),
	)
	return out, nil
}

// Horizons fetches horizon rows for the given map unit keys, joined to
// their components for the mukey and to the representative texture
// group for the texture class label.
func (c *Client) Horizons(ctx context.Context, mukeys []string) ([]model.HorizonRecord, error) {
	chunks := chunk(dedupe(mukeys), c.horizonChunk)
	results := make([][]model.HorizonRecord, len(chunks))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.maxConcurrent)
	for i, keys := range chunks {
		g.Go(func() error {
			q := "SELECT c.mukey, h.cokey, h.hzdept_r, h.hzdepb_r, h.ksat_r, " +
				"h.sandtotal_r, h.claytotal_r, h.dbthirdbar_r, t.texcl " +
				"FROM chorizon h " +
				"INNER JOIN component c ON c.cokey = h.cokey " +
				"LEFT JOIN chtexturegrp g ON g.chkey = h.chkey AND g.rvindicator = 'Yes' " +
				"LEFT JOIN chtexture t ON t.chtgkey = g.chtgkey " +
				"WHERE c.mukey IN (" + quoteList(keys) + ") " +
				"ORDER BY c.mukey, h.cokey, h.hzdept_r"
			header, rows, err := c.query(ctx, q)
			if err != nil {
				return err
			}
			records, err := model.ParseHorizonRows(header, rows)
			if err != nil {
				return err
			}
			results[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []model.HorizonRecord
	for _, records := range results {
		out = append(out, records...)
	}
	zap.L().Info("fetched horizons",
		zap.Int("mukeys", len(mukeys)),
		zap.Int("rows", len(out)),
	)
	return out, nil
}

// tabularRequest is the POST body SDA expects.
type tabularRequest struct {
	Query  string `json:"query"`
	Format string `json:"format"`
}

// tabularResponse is the JSON+COLUMNNAME response shape: the first row
// of Table holds column names.
type tabularResponse struct {
	Table [][]string `json:"Table"`
}

// query posts one tabular query and returns (header, data rows). An
// absent Table key means the query matched nothing.
func (c *Client) query(ctx context.Context, q string) ([]string, [][]string, error) {
	body, err := json.Marshal(tabularRequest{Query: q, Format: "JSON+COLUMNNAME"})
	if err != nil {
		return nil, nil, eris.Wrap(err, "sda: marshal request")
	}

	policy := c.retry
	if policy.OnRetry == nil {
		policy.OnRetry = resilience.RetryLogger("tabular query")
	}

	resp, err := resilience.DoVal(ctx, policy, func(ctx context.Context) (tabularResponse, error) {
		var parsed tabularResponse

		if err := c.limiter.Wait(ctx); err != nil {
			return parsed, eris.Wrap(err, "sda: rate limiter wait")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return parsed, eris.Wrap(err, "sda: create request")
		}
		req.Header.Set("Content-Type", "application/json")

		res, err := c.http.Do(req)
		if err != nil {
			return parsed, eris.Wrap(err, "sda: post")
		}
		defer res.Body.Close() //nolint:errcheck

		if resilience.IsTransientHTTPStatus(res.StatusCode) {
			return parsed, resilience.NewTransientError(
				eris.Errorf("sda: http %d", res.StatusCode), res.StatusCode)
		}
		if res.StatusCode != http.StatusOK {
			payload, _ := io.ReadAll(io.LimitReader(res.Body, 2048))
			return parsed, eris.Errorf("sda: http %d: %s", res.StatusCode, strings.TrimSpace(string(payload)))
		}

		if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
			return parsed, eris.Wrap(err, "sda: decode response")
		}
		return parsed, nil
	})
	if err != nil {
		return nil, nil, err
	}

	if len(resp.Table) == 0 {
		return nil, nil, nil
	}
	return resp.Table[0], resp.Table[1:], nil
}

// quote single-quotes a value for a T-SQL literal.
func quote(v string) string {
	return "'" + strings.ReplaceAll(v, "'", "''") + "'"
}

func quoteList(keys []string) string {
	quoted := make([]string, len(keys))
	for i, k := range keys {
		quoted[i] = quote(k)
	}
	return strings.Join(quoted, ",")
}

func chunk(keys []string, size int) [][]string {
	var chunks [][]string
	for len(keys) > 0 {
		n := min(size, len(keys))
		chunks = append(chunks, keys[:n])
		keys = keys[n:]
	}
	return chunks
}

// dedupe removes duplicates preserving first-seen order.
func dedupe(keys []string) []string {
	seen := make(map[string]bool, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}
