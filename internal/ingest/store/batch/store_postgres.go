package batch

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"stagehand/internal/ingest/models"
	"stagehand/pkg/platform/sentinel"
	txcontext "stagehand/pkg/platform/tx"
)

const uniqueViolation = "23505"

const batchColumns = `id, kind, source_system, status, total_records, processed_records,
	failed_records, skipped_records, created_at, started_at, completed_at, last_error`

// PostgresStore persists batch runs in PostgreSQL. Status transitions are
// conditional UPDATEs so concurrent callers cannot both win.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, b models.BatchRun) error {
	query := `
		INSERT INTO batch_runs (id, kind, source_system, status, total_records, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, query,
		b.ID, string(b.Kind), b.SourceSystem, string(b.Status), b.TotalRecords, b.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return fmt.Errorf("create batch run %s: %w", b.ID, sentinel.ErrConflict)
		}
		return fmt.Errorf("create batch run %s: %w", b.ID, err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*models.BatchRun, error) {
	query := `SELECT ` + batchColumns + ` FROM batch_runs WHERE id = $1`
	b, err := scanBatch(txcontext.Exec(ctx, s.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get batch run %s: %w", id, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("get batch run %s: %w", id, err)
	}
	return b, nil
}

func (s *PostgresStore) List(ctx context.Context, limit int) ([]models.BatchRun, error) {
	query := `SELECT ` + batchColumns + ` FROM batch_runs ORDER BY created_at DESC, id DESC LIMIT $1`
	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx, query, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list batch runs: %w", err)
	}
	return collect(rows, "list batch runs")
}

func (s *PostgresStore) IncrementTotal(ctx context.Context, id string, n int) (*models.BatchRun, error) {
	query := `
		UPDATE batch_runs SET total_records = total_records + $2
		WHERE id = $1 AND status <> 'running'
		RETURNING ` + batchColumns
	b, err := scanBatch(txcontext.Exec(ctx, s.db).QueryRowContext(ctx, query, id, n))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.transitionMiss(ctx, "increment total of", id)
		}
		return nil, fmt.Errorf("increment batch run %s total: %w", id, err)
	}
	return b, nil
}

func (s *PostgresStore) MarkRunning(ctx context.Context, id string, now time.Time) (*models.BatchRun, error) {
	query := `
		UPDATE batch_runs
		SET status = 'running', started_at = $2, completed_at = NULL, last_error = ''
		WHERE id = $1 AND status <> 'running'
		RETURNING ` + batchColumns
	b, err := scanBatch(txcontext.Exec(ctx, s.db).QueryRowContext(ctx, query, id, now))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.transitionMiss(ctx, "start", id)
		}
		return nil, fmt.Errorf("start batch run %s: %w", id, err)
	}
	return b, nil
}

func (s *PostgresStore) AddCounts(ctx context.Context, id string, delta models.Counts) error {
	query := `
		UPDATE batch_runs
		SET processed_records = processed_records + $2,
		    failed_records = failed_records + $3,
		    skipped_records = skipped_records + $4
		WHERE id = $1 AND status = 'running'
		  AND processed_records + failed_records + skipped_records + $2 + $3 + $4 <= total_records
	`
	res, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, query, id, delta.Processed, delta.Failed, delta.Skipped)
	if err != nil {
		return fmt.Errorf("add batch run %s counts: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("add batch run %s counts: %w", id, err)
	}
	if n == 0 {
		return s.transitionMiss(ctx, "add counts to", id)
	}
	return nil
}

func (s *PostgresStore) Finish(ctx context.Context, id string, status models.BatchStatus, lastError string, now time.Time) (*models.BatchRun, error) {
	if !status.IsTerminal() {
		return nil, fmt.Errorf("finish batch run %s with non-terminal status %s", id, status)
	}
	query := `
		UPDATE batch_runs SET status = $2, completed_at = $3, last_error = $4
		WHERE id = $1 AND status = 'running'
		RETURNING ` + batchColumns
	b, err := scanBatch(txcontext.Exec(ctx, s.db).QueryRowContext(ctx, query, id, string(status), now, lastError))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.transitionMiss(ctx, "finish", id)
		}
		return nil, fmt.Errorf("finish batch run %s: %w", id, err)
	}
	return b, nil
}

func (s *PostgresStore) AbandonStale(ctx context.Context, startedBefore time.Time, reason string, now time.Time) ([]models.BatchRun, error) {
	query := `
		UPDATE batch_runs SET status = 'failed', completed_at = $2, last_error = $3
		WHERE status = 'running' AND started_at < $1
		RETURNING ` + batchColumns
	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx, query, startedBefore, now, reason)
	if err != nil {
		return nil, fmt.Errorf("abandon stale batch runs: %w", err)
	}
	return collect(rows, "abandon stale batch runs")
}

func (s *PostgresStore) DeleteTerminalOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM batch_runs b
		WHERE b.status IN ('completed', 'failed', 'cancelled')
		  AND b.started_at < $1
		  AND NOT EXISTS (SELECT 1 FROM staging_records r WHERE r.batch_id = b.id)
	`
	res, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete terminal batch runs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete terminal batch runs: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) transitionMiss(ctx context.Context, op, id string) error {
	var status string
	err := txcontext.Exec(ctx, s.db).QueryRowContext(ctx,
		`SELECT status FROM batch_runs WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s batch run %s: %w", op, id, sentinel.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("%s batch run %s: %w", op, id, err)
	}
	return fmt.Errorf("%s batch run %s in status %s: %w", op, id, status, sentinel.ErrInvalidState)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBatch(row scanner) (*models.BatchRun, error) {
	var (
		b      models.BatchRun
		kind   string
		status string
	)
	err := row.Scan(
		&b.ID,
		&kind,
		&b.SourceSystem,
		&status,
		&b.TotalRecords,
		&b.ProcessedRecords,
		&b.FailedRecords,
		&b.SkippedRecords,
		&b.CreatedAt,
		&b.StartedAt,
		&b.CompletedAt,
		&b.LastError,
	)
	if err != nil {
		return nil, err
	}
	b.Kind = models.BatchKind(kind)
	b.Status = models.BatchStatus(status)
	return &b, nil
}

func collect(rows *sql.Rows, op string) ([]models.BatchRun, error) {
	defer rows.Close()

	var out []models.BatchRun
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}
