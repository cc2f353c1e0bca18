package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/basinworks/greenampt-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY,
	strategy      TEXT NOT NULL,
	source        TEXT NOT NULL,
	window_top    REAL NOT NULL,
	window_bottom REAL NOT NULL,
	status        TEXT NOT NULL DEFAULT 'running',
	message       TEXT NOT NULL DEFAULT '',
	mapunits      INTEGER NOT NULL DEFAULT 0,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS run_parameters (
	run_id         TEXT NOT NULL REFERENCES runs(id),
	mukey          TEXT NOT NULL,
	ks_inhr        REAL,
	psi_in         REAL,
	theta_s        REAL,
	theta_fc       REAL,
	theta_wp       REAL,
	init_def       REAL,
	theta_i_design REAL,
	theta_i_cont   REAL,
	dtheta_design  REAL,
	dtheta_cont    REAL,
	texcl          TEXT,
	hsg_dom        TEXT,
	hsg_dry        TEXT,
	hsg_drained    TEXT,
	hsg_comp       TEXT,
	PRIMARY KEY (run_id, mukey)
);

CREATE TABLE IF NOT EXISTS archive_etags (
	area_symbol TEXT PRIMARY KEY,
	etag        TEXT NOT NULL,
	fetched_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_strategy ON runs(strategy);
CREATE INDEX IF NOT EXISTS idx_run_parameters_run_id ON run_parameters(run_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, run model.Run) (*model.Run, error) {
	run.ID = uuid.New().String()
	run.Status = model.RunStatusRunning
	run.CreatedAt = time.Now().UTC()
	run.UpdatedAt = run.CreatedAt

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, strategy, source, window_top, window_bottom, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Strategy, run.Source, run.WindowTop, run.WindowBottom,
		string(run.Status), run.CreatedAt, run.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}
	return &run, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, mapunits int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, mapunits = ?, updated_at = ? WHERE id = ?`,
		string(model.RunStatusComplete), mapunits, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID string, message string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, message = ?, updated_at = ? WHERE id = ?`,
		string(model.RunStatusFailed), message, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, strategy, source, window_top, window_bottom, status, message, mapunits, created_at, updated_at
		 FROM runs WHERE id = ?`,
		runID,
	)

	var r model.Run
	err := row.Scan(&r.ID, &r.Strategy, &r.Source, &r.WindowTop, &r.WindowBottom,
		&r.Status, &r.Message, &r.Mapunits, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("run not found: %s", runID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	return &r, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, strategy, source, window_top, window_bottom, status, message, mapunits, created_at, updated_at
	          FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Strategy != "" {
		query += ` AND strategy = ?`
		args = append(args, filter.Strategy)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		if err := rows.Scan(&r.ID, &r.Strategy, &r.Source, &r.WindowTop, &r.WindowBottom,
			&r.Status, &r.Message, &r.Mapunits, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) SaveParameters(ctx context.Context, runID string, params []model.MapunitParameterSet) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", 2+len(parameterColumns)), ", ")
	insert := `INSERT INTO run_parameters (run_id, mukey, ` + strings.Join(parameterColumns, ", ") +
		`) VALUES (` + placeholders + `)`

	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert")
	}
	defer stmt.Close() //nolint:errcheck

	for _, m := range params {
		values, err := parameterValues(m)
		if err != nil {
			return err
		}
		args := append([]any{runID, m.Mukey}, values...)
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return eris.Wrapf(err, "sqlite: insert parameters for mukey %s", m.Mukey)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit parameters")
}

func (s *SQLiteStore) Parameters(ctx context.Context, runID string) ([]model.MapunitParameterSet, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT mukey, `+strings.Join(parameterColumns, ", ")+
			` FROM run_parameters WHERE run_id = ? ORDER BY rowid`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query parameters")
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
	return out, eris.Wrap(rows.Err(), "sqlite: parameters iterate")
}

func (s *SQLiteStore) ArchiveETag(ctx context.Context, areaSymbol string) (string, error) {
	var etag string
	err := s.db.QueryRowContext(ctx,
		`SELECT etag FROM archive_etags WHERE area_symbol = ?`, areaSymbol,
	).Scan(&etag)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", eris.Wrap(err, "sqlite: get archive etag")
	}
	return etag, nil
}

func (s *SQLiteStore) SetArchiveETag(ctx context.Context, areaSymbol, etag string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO archive_etags (area_symbol, etag, fetched_at) VALUES (?, ?, ?)
		 ON CONFLICT (area_symbol) DO UPDATE SET etag = excluded.etag, fetched_at = excluded.fetched_at`,
		areaSymbol, etag, time.Now().UTC(),
	)
	return eris.Wrap(err, "sqlite: set archive etag")
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}
