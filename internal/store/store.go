package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/KaramelBytes/pavecheck-cli/internal/detect"
	"github.com/KaramelBytes/pavecheck-cli/internal/table"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// ErrRunNotFound is returned when a run id is not in the history.
var ErrRunNotFound = errors.New("run not found")

// fixed-width UTC timestamps sort lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id                TEXT PRIMARY KEY,
	project           TEXT NOT NULL DEFAULT '',
	dataset           TEXT NOT NULL DEFAULT '',
	created_at        TEXT NOT NULL,
	total_sections    INTEGER NOT NULL,
	anomalies_count   INTEGER NOT NULL,
	flagged_sections  INTEGER NOT NULL,
	review_percentage REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_project_created ON runs(project, created_at);
CREATE TABLE IF NOT EXISTS run_anomalies (
	run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	seq         INTEGER NOT NULL,
	section_id  TEXT NOT NULL,
	rule        TEXT NOT NULL,
	review_type TEXT NOT NULL,
	confidence  TEXT NOT NULL,
	reason      TEXT NOT NULL,
	pci         REAL,
	PRIMARY KEY (run_id, seq)
);
`

// Run is one recorded analysis.
type Run struct {
	ID               string    `json:"id"`
	Project          string    `json:"project,omitempty"`
	Dataset          string    `json:"dataset"`
	CreatedAt        time.Time `json:"created_at"`
	TotalSections    int       `json:"total_sections"`
	AnomaliesCount   int       `json:"anomalies_count"`
	FlaggedSections  int       `json:"flagged_sections"`
	ReviewPercentage float64   `json:"review_percentage"`
}

// NewRun describes a finished report as a run with a fresh id.
func NewRun(project string, rep *detect.Report) Run {
	return Run{
		ID:               uuid.NewString(),
		Project:          project,
		Dataset:          rep.Name,
		CreatedAt:        rep.GeneratedAt,
		TotalSections:    rep.Summary.TotalSections,
		AnomaliesCount:   rep.Summary.AnomaliesCount,
		FlaggedSections:  rep.Summary.FlaggedSections,
		ReviewPercentage: rep.Summary.ReviewPercentage,
	}
}

// Store is the SQLite run history.
type Store struct {
	conn *sql.DB
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*Store, error) {
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}
	conn, err := sql.Open("sqlite3", path+dsnParams(path))
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	// a single connection keeps :memory: databases intact and avoids SQLITE_BUSY
	conn.SetMaxOpenConns(1)
	if err := migrate(conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("migrate history db: %w", err)
	}
	return &Store{conn: conn}, nil
}

// addedColumns are columns introduced after a table's first release.
var addedColumns = []struct{ table, column, decl string }{
	{"run_anomalies", "pci", "REAL"},
}

func migrate(conn *sql.DB) error {
	if _, err := conn.Exec(schema); err != nil {
		return err
	}
	for _, c := range addedColumns {
		has, err := hasColumn(conn, c.table, c.column)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := conn.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", c.table, c.column, c.decl)); err != nil {
			return fmt.Errorf("add %s.%s: %w", c.table, c.column, err)
		}
	}
	return nil
}

func hasColumn(conn *sql.DB, tbl, col string) (bool, error) {
	rows, err := conn.Query(fmt.Sprintf("PRAGMA table_info(%s)", tbl))
	if err != nil {
		return false, fmt.Errorf("table info %s: %w", tbl, err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			cid        int
			name, typ  string
			notNull    int
			dflt       sql.NullString
			primaryKey int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &primaryKey); err != nil {
			return false, fmt.Errorf("scan table info: %w", err)
		}
		if name == col {
			return true, nil
		}
	}
	return false, rows.Err()
}

func dsnParams(path string) string {
	if strings.Contains(path, "?") {
		return "&_foreign_keys=on"
	}
	return "?_foreign_keys=on"
}

// Close releases the database.
func (s *Store) Close() error { return s.conn.Close() }

// SaveRun stores a run and its anomalies in one transaction.
func (s *Store) SaveRun(ctx context.Context, run Run, anomalies []detect.Anomaly) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, project, dataset, created_at, total_sections, anomalies_count, flagged_sections, review_percentage)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Project, run.Dataset, run.CreatedAt.UTC().Format(timeLayout),
		run.TotalSections, run.AnomaliesCount, run.FlaggedSections, run.ReviewPercentage)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_anomalies (run_id, seq, section_id, rule, review_type, confidence, reason, pci)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare anomaly insert: %w", err)
	}
	defer stmt.Close()
	for i, a := range anomalies {
		var pci sql.NullFloat64
		pci.Float64, pci.Valid = a.PCI.Float()
		if _, err := stmt.ExecContext(ctx, run.ID, i, a.SectionID.String(), a.Rule, string(a.ReviewType), string(a.Confidence), a.Reason, pci); err != nil {
			return fmt.Errorf("insert anomaly %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ListRuns returns runs newest first. An empty project lists every
// project; limit <= 0 means no limit.
func (s *Store) ListRuns(ctx context.Context, project string, limit int) ([]Run, error) {
	query := `
		SELECT id, project, dataset, created_at, total_sections, anomalies_count, flagged_sections, review_percentage
		FROM runs`
	var args []interface{}
	if project != "" {
		query += " WHERE project = ?"
		args = append(args, project)
	}
	query += " ORDER BY created_at DESC, rowid DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var created string
		if err := rows.Scan(&r.ID, &r.Project, &r.Dataset, &created, &r.TotalSections, &r.AnomaliesCount, &r.FlaggedSections, &r.ReviewPercentage); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if r.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, fmt.Errorf("run %s: bad created_at %q: %w", r.ID, created, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RunAnomalies returns the anomalies of one run in the order they were saved.
func (s *Store) RunAnomalies(ctx context.Context, runID string) ([]detect.Anomaly, error) {
	var exists int
	err := s.conn.QueryRowContext(ctx, `SELECT 1 FROM runs WHERE id = ?`, runID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup run: %w", err)
	}

	rows, err := s.conn.QueryContext(ctx, `
		SELECT section_id, rule, review_type, confidence, reason, pci
		FROM run_anomalies WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("list anomalies: %w", err)
	}
	defer rows.Close()

	var out []detect.Anomaly
	for rows.Next() {
		var a detect.Anomaly
		var section, review, conf string
		var pci sql.NullFloat64
		if err := rows.Scan(&section, &a.Rule, &review, &conf, &a.Reason, &pci); err != nil {
			return nil, fmt.Errorf("scan anomaly: %w", err)
		}
		a.SectionID = table.Infer(section, table.NumberFormat{})
		a.ReviewType = detect.ReviewType(review)
		a.Confidence = detect.Confidence(conf)
		if pci.Valid {
			a.PCI = table.Number(pci.Float64)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
