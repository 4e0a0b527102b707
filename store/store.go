// Package store keeps run history in SQLite: one row per run, per
// generation and per reported phenotype.
package store

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/pthm-cable/evolve/telemetry"
)

// Store wraps a SQLite connection.
type Store struct {
	conn *sqlx.DB
}

// Run is one simulation run.
type Run struct {
	ID          string `db:"id"`
	StartedAt   int64  `db:"started_at"` // unix seconds
	Seed        string `db:"seed"`       // decimal uint64
	Config      string `db:"config"`
	Generations int    `db:"generations"`
	Outcome     string `db:"outcome"`
}

// Generation is a stored generation outcome.
type Generation struct {
	RunID         string  `db:"run_id"`
	Generation    int     `db:"generation"`
	Population    int     `db:"population"`
	Survivors     int     `db:"survivors"`
	SurvivalRatio float64 `db:"survival_ratio"`
	Moves         int     `db:"moves"`
	Kills         int     `db:"kills"`
	Bullied       int     `db:"bullied"`
	GenesMean     float64 `db:"genes_mean"`
	Phenotypes    int     `db:"phenotypes"`
}

// Phenotype is a stored census row.
type Phenotype struct {
	RunID       string `db:"run_id"`
	Generation  int    `db:"generation"`
	Rank        int    `db:"rank"`
	Fingerprint int64  `db:"fingerprint"`
	Count       int    `db:"count"`
	Description string `db:"description"`
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*Store, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &Store{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at INTEGER NOT NULL,
		seed TEXT NOT NULL,
		config TEXT NOT NULL,
		generations INTEGER NOT NULL DEFAULT 0,
		outcome TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS generations (
		run_id TEXT NOT NULL REFERENCES runs(id),
		generation INTEGER NOT NULL,
		population INTEGER NOT NULL,
		survivors INTEGER NOT NULL,
		survival_ratio REAL NOT NULL,
		moves INTEGER NOT NULL,
		kills INTEGER NOT NULL,
		bullied INTEGER NOT NULL,
		genes_mean REAL NOT NULL,
		phenotypes INTEGER NOT NULL,
		PRIMARY KEY (run_id, generation)
	);

	CREATE TABLE IF NOT EXISTS phenotypes (
		run_id TEXT NOT NULL REFERENCES runs(id),
		generation INTEGER NOT NULL,
		rank INTEGER NOT NULL,
		fingerprint INTEGER NOT NULL,
		count INTEGER NOT NULL,
		description TEXT NOT NULL,
		PRIMARY KEY (run_id, generation, rank)
	);

	CREATE INDEX IF NOT EXISTS idx_phenotypes_fingerprint ON phenotypes(fingerprint);
	`
	_, err := s.conn.Exec(schema)
	return err
}

// StartRun records a new run and returns its ID.
func (s *Store) StartRun(seed uint64, configYAML string) (string, error) {
	id := uuid.NewString()
	_, err := s.conn.Exec(
		"INSERT INTO runs (id, started_at, seed, config) VALUES (?, ?, ?, ?)",
		id, time.Now().Unix(), strconv.FormatUint(seed, 10), configYAML,
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

// FinishRun records how a run ended.
func (s *Store) FinishRun(runID string, generations int, outcome string) error {
	_, err := s.conn.Exec(
		"UPDATE runs SET generations = ?, outcome = ? WHERE id = ?",
		generations, outcome, runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// SaveGeneration stores one generation outcome.
func (s *Store) SaveGeneration(runID string, st telemetry.GenerationStats) error {
	_, err := s.conn.Exec(`INSERT OR REPLACE INTO generations
		(run_id, generation, population, survivors, survival_ratio, moves, kills, bullied, genes_mean, phenotypes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, st.Generation, st.Population, st.Survivors, st.SurvivalRatio,
		st.Moves, st.Kills, st.Bullied, st.GenesMean, st.Phenotypes,
	)
	if err != nil {
		return fmt.Errorf("insert generation %d: %w", st.Generation, err)
	}
	return nil
}

// SavePhenotypes stores a census report.
func (s *Store) SavePhenotypes(runID string, groups []telemetry.Phenotype) error {
	if len(groups) == 0 {
		return nil
	}
	tx, err := s.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex(`INSERT OR REPLACE INTO phenotypes
		(run_id, generation, rank, fingerprint, count, description)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, g := range groups {
		if _, err := stmt.Exec(runID, g.Generation, g.Rank, int64(g.Fingerprint), g.Count, g.Description); err != nil {
			return fmt.Errorf("insert phenotype: %w", err)
		}
	}
	return tx.Commit()
}

// Runs lists stored runs, newest first.
func (s *Store) Runs() ([]Run, error) {
	var runs []Run
	err := s.conn.Select(&runs, "SELECT id, started_at, seed, config, generations, outcome FROM runs ORDER BY started_at DESC, id")
	return runs, err
}

// Run loads one run.
func (s *Store) Run(runID string) (Run, error) {
	var r Run
	err := s.conn.Get(&r, "SELECT id, started_at, seed, config, generations, outcome FROM runs WHERE id = ?", runID)
	return r, err
}

// Generations returns a run's generations in order.
func (s *Store) Generations(runID string) ([]Generation, error) {
	var gens []Generation
	err := s.conn.Select(&gens, `SELECT run_id, generation, population, survivors, survival_ratio,
		moves, kills, bullied, genes_mean, phenotypes
		FROM generations WHERE run_id = ? ORDER BY generation`, runID)
	return gens, err
}

// Phenotypes returns the census rows of one generation, by rank.
func (s *Store) Phenotypes(runID string, generation int) ([]Phenotype, error) {
	var rows []Phenotype
	err := s.conn.Select(&rows, `SELECT run_id, generation, rank, fingerprint, count, description
		FROM phenotypes WHERE run_id = ? AND generation = ? ORDER BY rank`, runID, generation)
	return rows, err
}
