package recorder

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists run history to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log zerolog.Logger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{
		db:  db,
		log: log.With().Str("component", "recorder").Logger(),
	}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id         TEXT PRIMARY KEY,
			started_at INTEGER NOT NULL,
			portfolio  TEXT,
			warnings   TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS run_series (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id            TEXT NOT NULL,
			symbol            TEXT NOT NULL,
			source            TEXT,
			points            INTEGER,
			removed_invalid   INTEGER,
			removed_duplicate INTEGER,
			removed_outlier   INTEGER,
			mean_return       REAL,
			volatility        REAL,
			latest_close      REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_series_run ON run_series(run_id)`,

		`CREATE TABLE IF NOT EXISTS run_simulations (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id        TEXT NOT NULL,
			target        TEXT NOT NULL,
			kind          TEXT,
			simulations   INTEGER,
			days          INTEGER,
			initial_value REAL,
			mean_final    REAL,
			std_final     REAL,
			p5            REAL,
			p50           REAL,
			p95           REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sims_run ON run_simulations(run_id)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordRun writes a full run summary in one transaction.
func (r *SQLiteRecorder) RecordRun(run *RunSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO runs (id, started_at, portfolio, warnings) VALUES (?,?,?,?)`,
		run.ID, run.StartedAt.Unix(), run.Portfolio, strings.Join(run.Warnings, "\n"))
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, s := range run.Series {
		_, err = tx.Exec(`INSERT INTO run_series
			(run_id, symbol, source, points, removed_invalid, removed_duplicate, removed_outlier,
			 mean_return, volatility, latest_close)
			VALUES (?,?,?,?,?,?,?,?,?,?)`,
			run.ID, s.Symbol, s.Source, s.Points,
			s.RemovedInvalid, s.RemovedDuplicate, s.RemovedOutlier,
			s.MeanReturn, s.Volatility, s.LatestClose,
		)
		if err != nil {
			return fmt.Errorf("insert series %s: %w", s.Symbol, err)
		}
	}

	for _, sim := range run.Simulations {
		_, err = tx.Exec(`INSERT INTO run_simulations
			(run_id, target, kind, simulations, days, initial_value,
			 mean_final, std_final, p5, p50, p95)
			VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
			run.ID, sim.Target, sim.Kind, sim.Simulations, sim.Days, sim.InitialValue,
			sim.MeanFinal, sim.StdFinal, sim.P5, sim.P50, sim.P95,
		)
		if err != nil {
			return fmt.Errorf("insert simulation %s: %w", sim.Target, err)
		}
	}

	return tx.Commit()
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
