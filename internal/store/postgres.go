package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/basinworks/greenampt-cli/internal/db"
	"github.com/basinworks/greenampt-cli/internal/model"
)

// PostgresStore implements Store using pgxpool. Alongside the per-run
// history it maintains mapunit_parameters, a latest-wins table keyed by
// mukey that downstream consumers join against directly.
type PostgresStore struct {
	pool db.Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool. Used by tests.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	strategy      TEXT NOT NULL,
	source        TEXT NOT NULL,
	window_top    DOUBLE PRECISION NOT NULL,
	window_bottom DOUBLE PRECISION NOT NULL,
	status        TEXT NOT NULL DEFAULT 'running',
	message       TEXT NOT NULL DEFAULT '',
	mapunits      INTEGER NOT NULL DEFAULT 0,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS run_parameters (
	seq            BIGSERIAL PRIMARY KEY,
	run_id         TEXT NOT NULL REFERENCES runs(id),
	mukey          TEXT NOT NULL,
	ks_inhr        DOUBLE PRECISION,
	psi_in         DOUBLE PRECISION,
	theta_s        DOUBLE PRECISION,
	theta_fc       DOUBLE PRECISION,
	theta_wp       DOUBLE PRECISION,
	init_def       DOUBLE PRECISION,
	theta_i_design DOUBLE PRECISION,
	theta_i_cont   DOUBLE PRECISION,
	dtheta_design  DOUBLE PRECISION,
	dtheta_cont    DOUBLE PRECISION,
	texcl          TEXT,
	hsg_dom        TEXT,
	hsg_dry        TEXT,
	hsg_drained    TEXT,
	hsg_comp       JSONB,
	UNIQUE (run_id, mukey)
);

CREATE TABLE IF NOT EXISTS mapunit_parameters (
	mukey          TEXT PRIMARY KEY,
	ks_inhr        DOUBLE PRECISION,
	psi_in         DOUBLE PRECISION,
	theta_s        DOUBLE PRECISION,
	theta_fc       DOUBLE PRECISION,
	theta_wp       DOUBLE PRECISION,
	init_def       DOUBLE PRECISION,
	theta_i_design DOUBLE PRECISION,
	theta_i_cont   DOUBLE PRECISION,
	dtheta_design  DOUBLE PRECISION,
	dtheta_cont    DOUBLE PRECISION,
	texcl          TEXT,
	hsg_dom        TEXT,
	hsg_dry        TEXT,
	hsg_drained    TEXT,
	hsg_comp       JSONB
);

CREATE TABLE IF NOT EXISTS archive_etags (
	area_symbol TEXT PRIMARY KEY,
	etag        TEXT NOT NULL,
	fetched_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_strategy ON runs(strategy);
CREATE INDEX IF NOT EXISTS idx_run_parameters_run_id ON run_parameters(run_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) CreateRun(ctx context.Context, run model.Run) (*model.Run, error) {
	run.ID = uuid.New().String()
	run.Status = model.RunStatusRunning
	run.CreatedAt = time.Now().UTC()
	run.UpdatedAt = run.CreatedAt

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, strategy, source, window_top, window_bottom, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		run.ID, run.Strategy, run.Source, run.WindowTop, run.WindowBottom,
		string(run.Status), run.CreatedAt, run.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}
	return &run, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, mapunits int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, mapunits = $2, updated_at = $3 WHERE id = $4`,
		string(model.RunStatusComplete), mapunits, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) FailRun(ctx context.Context, runID string, message string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, message = $2, updated_at = $3 WHERE id = $4`,
		string(model.RunStatusFailed), message, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	var r model.Run
	err := s.pool.QueryRow(ctx,
		`SELECT id, strategy, source, window_top, window_bottom, status, message, mapunits, created_at, updated_at
		 FROM runs WHERE id = $1`,
		runID,
	).Scan(&r.ID, &r.Strategy, &r.Source, &r.WindowTop, &r.WindowBottom,
		&r.Status, &r.Message, &r.Mapunits, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Errorf("run not found: %s", runID)
		}
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	return &r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, strategy, source, window_top, window_bottom, status, message, mapunits, created_at, updated_at
	          FROM runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.Strategy != "" {
		query += fmt.Sprintf(` AND strategy = $%d`, argIdx)
		args = append(args, filter.Strategy)
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		if err := rows.Scan(&r.ID, &r.Strategy, &r.Source, &r.WindowTop, &r.WindowBottom,
			&r.Status, &r.Message, &r.Mapunits, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

// SaveParameters appends the run's rows to run_parameters via COPY and
// refreshes the latest-wins mapunit_parameters table via bulk upsert.
func (s *PostgresStore) SaveParameters(ctx context.Context, runID string, params []model.MapunitParameterSet) error {
	if len(params) == 0 {
		return nil
	}

	historyRows := make([][]any, 0, len(params))
	latestRows := make([][]any, 0, len(params))
	for _, m := range params {
		values, err := parameterValues(m)
		if err != nil {
			return err
		}
		historyRows = append(historyRows, append([]any{runID, m.Mukey}, values...))
		latestRows = append(latestRows, append([]any{m.Mukey}, values...))
	}

	historyColumns := append([]string{"run_id", "mukey"}, parameterColumns...)
	if _, err := db.CopyFrom(ctx, s.pool, "run_parameters", historyColumns, historyRows); err != nil {
		return err
	}

	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "mapunit_parameters",
		Columns:      append([]string{"mukey"}, parameterColumns...),
		ConflictKeys: []string{"mukey"},
	}, latestRows)
	return err
}

func (s *PostgresStore) Parameters(ctx context.Context, runID string) ([]model.MapunitParameterSet, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT mukey, `+strings.Join(parameterColumns, ", ")+
			` FROM run_parameters WHERE run_id = $1 ORDER BY seq`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query parameters")
	}
	defer rows.Close()

	var out []model.MapunitParameterSet
	for rows.Next() {
		m, err := scanParameter(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, eris.Wrap(rows.Err(), "postgres: parameters iterate")
}

func (s *PostgresStore) ArchiveETag(ctx context.Context, areaSymbol string) (string, error) {
	var etag string
	err := s.pool.QueryRow(ctx,
		`SELECT etag FROM archive_etags WHERE area_symbol = $1`, areaSymbol,
	).Scan(&etag)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", eris.Wrap(err, "postgres: get archive etag")
	}
	return etag, nil
}

func (s *PostgresStore) SetArchiveETag(ctx context.Context, areaSymbol, etag string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO archive_etags (area_symbol, etag, fetched_at) VALUES ($1, $2, $3)
		 ON CONFLICT (area_symbol) DO UPDATE SET etag = $2, fetched_at = $3`,
		areaSymbol, etag, time.Now().UTC(),
	)
	return eris.Wrap(err, "postgres: set archive etag")
}
