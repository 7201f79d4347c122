package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver
)

// Catalog is a small SQLite side-table recording one row per run: the
// dataset it was built over, the mode it ran in, and the statistics /
// ground-truth files it produced. It exists purely for bookkeeping
// around --statistics-file and --write-ground-truth (spec §6); the
// engine's actual query path never reads from it. Grounded on
// pkg/core/store_init.go's DSN and table-creation pattern.
type Catalog struct {
	db *sql.DB
}

// OpenCatalog opens (creating if absent) a catalog.db at path, with the
// same WAL/busy-timeout pragmas the teacher's store_init.go uses.
func OpenCatalog(path string) (*Catalog, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("dataset: opening catalog: %w", err)
	}

	const createTableSQL = `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		mode TEXT NOT NULL,
		num_records INTEGER NOT NULL,
		dim INTEGER NOT NULL,
		num_queries INTEGER NOT NULL,
		statistics_file TEXT,
		ground_truth_file TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`
	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("dataset: creating catalog table: %w", err)
	}
	return &Catalog{db: db}, nil
}

// RecordRun inserts one row describing a completed run and returns the
// generated run id, a UUID the same way the teacher mints session and
// document ids.
func (c *Catalog) RecordRun(ctx context.Context, mode string, ds *Dataset, numQueries int, statisticsFile, groundTruthFile string) (string, error) {
	runID := uuid.New().String()
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO runs (id, mode, num_records, dim, num_queries, statistics_file, ground_truth_file, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, mode, ds.N(), ds.Dim, numQueries, nullIfEmpty(statisticsFile), nullIfEmpty(groundTruthFile), time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("dataset: recording run: %w", err)
	}
	return runID, nil
}

// Close releases the underlying database handle.
func (c *Catalog) Close() error { return c.db.Close() }

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
