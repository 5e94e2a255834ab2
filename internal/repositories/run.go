package repositories

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/setsum/internal/models"
	"github.com/desertthunder/setsum/internal/shared"
)

// RunRepository implements [models.Repository] for [models.Run] persistence.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new [RunRepository] with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a new run into the database with a generated ID
func (r *RunRepository) Create(run *models.Run) error {
	id := shared.GenerateID()
	run.SetID(id)

	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO runs (id, kind, target, rows_in, rows_out, total_count, status, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		id,
		run.Kind(),
		run.Target(),
		run.RowsIn(),
		run.RowsOut(),
		run.TotalCount(),
		run.Status(),
		nullable(run.Error()),
		run.StartedAt(),
		nullableTime(run.FinishedAt()),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	return nil
}

// Get retrieves a run by ID
func (r *RunRepository) Get(id string) (*models.Run, error) {
	query := `
		SELECT id, kind, target, rows_in, rows_out, total_count, status, error, started_at, finished_at
		FROM runs
		WHERE id = ?
	`
	run, err := scanRun(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	return run, nil
}

// Update modifies an existing run in the database
func (r *RunRepository) Update(run *models.Run) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		UPDATE runs
		SET rows_in = ?, rows_out = ?, total_count = ?, status = ?, error = ?, finished_at = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query,
		run.RowsIn(),
		run.RowsOut(),
		run.TotalCount(),
		run.Status(),
		nullable(run.Error()),
		nullableTime(run.FinishedAt()),
		run.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("run not found: %s", run.ID())
	}

	return nil
}

// List retrieves runs matching the given criteria (supported keys: kind,
// target, status), newest first.
func (r *RunRepository) List(criteria map[string]any) ([]*models.Run, error) {
	query := `
		SELECT id, kind, target, rows_in, rows_out, total_count, status, error, started_at, finished_at
		FROM runs
	`

	var clauses []string
	var args []any
	for _, key := range []string{"kind", "target", "status"} {
		if v, ok := criteria[key]; ok {
			clauses = append(clauses, key+" = ?")
			args = append(args, v)
		}
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY started_at DESC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}

	return runs, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*models.Run, error) {
	var (
		id, kind, target, status string
		rowsIn, rowsOut, total   int
		errMsg                   sql.NullString
		startedAt                time.Time
		finishedAt               sql.NullTime
	)

	if err := s.Scan(&id, &kind, &target, &rowsIn, &rowsOut, &total, &status, &errMsg, &startedAt, &finishedAt); err != nil {
		return nil, err
	}

	run := models.NewRun(kind, target)
	run.SetID(id)
	run.SetStartedAt(startedAt)
	run.SetCounts(rowsIn, rowsOut, total)
	run.SetStatus(status)
	if errMsg.Valid {
		run.SetError(errMsg.String)
	}
	if finishedAt.Valid {
		run.SetFinishedAt(&finishedAt.Time)
	}
	return run, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
