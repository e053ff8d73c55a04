// Package runs records pipeline invocations in a SQLite registry so
// encoded datasets and scored outputs can be traced back to the data
// directory, split, and commit that produced them.
package runs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver
)

// Run kinds recorded by the pipeline commands.
const (
	KindEncode  = "encode"
	KindBatches = "batches"
	KindScore   = "score"
	KindStats   = "stats"
)

// Run is one recorded pipeline invocation.
type Run struct {
	ID        string             `json:"id"`
	Kind      string             `json:"kind"`
	DataDir   string             `json:"data_dir,omitempty"`
	Split     string             `json:"split,omitempty"`
	Mode      string             `json:"mode,omitempty"`
	Examples  int                `json:"examples"`
	GitSHA    string             `json:"git_sha,omitempty"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
}

// ListFilter narrows List results. Zero fields match everything.
type ListFilter struct {
	Kind  string
	Split string
	Limit int
}

// Registry stores runs in SQL.
type Registry struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewRegistry wraps an existing database handle. The schema must already
// exist; Open creates it.
func NewRegistry(db *sql.DB, logger *slog.Logger) (*Registry, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{db: db, logger: logger}, nil
}

// Open opens the registry database at path, creating the schema when
// missing. An empty path opens an in-memory registry.
func Open(path string, logger *slog.Logger) (*Registry, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open run registry: %w", err)
	}
	// An in-memory database exists per connection; a second pooled
	// connection would see empty tables.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	r, err := NewRegistry(db, logger)
	if err != nil {
		db.Close() //nolint:errcheck
		return nil, err
	}
	if err := r.ensureSchema(context.Background()); err != nil {
		db.Close() //nolint:errcheck
		return nil, err
	}
	return r, nil
}

// Close closes the underlying database connection.
func (r *Registry) Close() error {
	return r.db.Close()
}

// Create records a run. A missing ID is assigned and a missing creation
// time is set to now.
func (r *Registry) Create(ctx context.Context, run *Run) error {
	if run == nil {
		return fmt.Errorf("run is required")
	}
	if run.Kind == "" {
		return fmt.Errorf("run kind is required")
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	metrics, err := marshalMetrics(run.Metrics)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO runs (id, kind, data_dir, split, mode, examples, git_sha, metrics, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.Kind,
		nullString(run.DataDir),
		nullString(run.Split),
		nullString(run.Mode),
		run.Examples,
		nullString(run.GitSHA),
		metrics,
		run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	r.logger.Info("run recorded", "id", run.ID, "kind", run.Kind, "split", run.Split)
	return nil
}

// Get retrieves a run by ID.
func (r *Registry) Get(ctx context.Context, id string) (*Run, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, kind, data_dir, split, mode, examples, git_sha, metrics, created_at
		FROM runs WHERE id = ?
	`, id)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("run not found: %s", id)
		}
		return nil, err
	}
	return run, nil
}

// List finds runs matching the filter, newest first.
func (r *Registry) List(ctx context.Context, filter ListFilter) ([]*Run, error) {
	var where []string
	var args []any
	if filter.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, filter.Kind)
	}
	if filter.Split != "" {
		where = append(where, "split = ?")
		args = append(args, filter.Split)
	}

	query := `SELECT id, kind, data_dir, split, mode, examples, git_sha, metrics, created_at
		FROM runs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var results []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return results, nil
}

// RecordMetrics attaches scored metrics to an existing run.
func (r *Registry) RecordMetrics(ctx context.Context, id string, metrics map[string]float64) error {
	payload, err := marshalMetrics(metrics)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `UPDATE runs SET metrics = ? WHERE id = ?`, payload, id)
	if err != nil {
		return fmt.Errorf("update run metrics: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update run metrics: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("run not found: %s", id)
	}

	r.logger.Info("run metrics recorded", "id", id, "metrics", len(metrics))
	return nil
}

// Delete removes a run; deleting a missing run is not an error.
func (r *Registry) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	return nil
}

// PruneOlderThan deletes runs recorded before now minus age and returns
// how many were removed.
func (r *Registry) PruneOlderThan(ctx context.Context, age time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-age)
	res, err := r.db.ExecContext(ctx, `DELETE FROM runs WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	if affected > 0 {
		r.logger.Info("runs pruned", "count", affected, "cutoff", cutoff)
	}
	return int(affected), nil
}

func (r *Registry) ensureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			data_dir TEXT,
			split TEXT,
			mode TEXT,
			examples INTEGER NOT NULL DEFAULT 0,
			git_sha TEXT,
			metrics TEXT,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_kind ON runs (kind)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs (created_at)`,
	}
	for _, stmt := range statements {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure runs schema: %w", err)
		}
	}
	return nil
}

type runScanner interface {
	Scan(dest ...any) error
}

func scanRun(row runScanner) (*Run, error) {
	var run Run
	var dataDir sql.NullString
	var split sql.NullString
	var mode sql.NullString
	var gitSHA sql.NullString
	var metrics sql.NullString
	if err := row.Scan(
		&run.ID,
		&run.Kind,
		&dataDir,
		&split,
		&mode,
		&run.Examples,
		&gitSHA,
		&metrics,
		&run.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}
	if dataDir.Valid {
		run.DataDir = dataDir.String
	}
	if split.Valid {
		run.Split = split.String
	}
	if mode.Valid {
		run.Mode = mode.String
	}
	if gitSHA.Valid {
		run.GitSHA = gitSHA.String
	}
	if metrics.Valid && metrics.String != "" {
		if err := json.Unmarshal([]byte(metrics.String), &run.Metrics); err != nil {
			return nil, fmt.Errorf("decode run metrics: %w", err)
		}
	}
	return &run, nil
}

func marshalMetrics(metrics map[string]float64) (sql.NullString, error) {
	if len(metrics) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(metrics)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encode run metrics: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func nullString(value string) sql.NullString {
	if strings.TrimSpace(value) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}
