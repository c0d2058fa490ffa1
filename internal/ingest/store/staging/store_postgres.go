package staging

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/lib/pq"

	"stagehand/internal/ingest/models"
	"stagehand/pkg/platform/sentinel"
	txcontext "stagehand/pkg/platform/tx"
)

const recordColumns = `id, batch_id, kind, raw_fields, raw_blob, status, created_at,
	claimed_at, processed_at, error_kind, error_message, target_entity_id`

// PostgresStore persists staging records in PostgreSQL.
// This store is pure I/O; transition rules live in the service.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Insert bulk-loads records as pending in one statement. Ids are returned in input order.
func (s *PostgresStore) Insert(ctx context.Context, batchID string, recs []models.NewRecord, now time.Time) ([]int64, error) {
	if len(recs) == 0 {
		return nil, nil
	}
	kinds := make([]string, len(recs))
	fields := make([]string, len(recs))
	blobs := make([][]byte, len(recs))
	for i, r := range recs {
		raw, err := json.Marshal(r.RawFields)
		if err != nil {
			return nil, fmt.Errorf("marshal raw fields: %w", err)
		}
		kinds[i] = string(r.Kind)
		fields[i] = string(raw)
		blobs[i] = r.RawBlob
	}

	query := `
		INSERT INTO staging_records (batch_id, kind, raw_fields, raw_blob, status, created_at)
		SELECT $1, t.kind, t.fields::jsonb, t.blob, 'pending', $5
		FROM unnest($2::text[], $3::text[], $4::bytea[]) WITH ORDINALITY AS t(kind, fields, blob, ord)
		ORDER BY t.ord
		RETURNING id
	`
	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx, query,
		batchID, pq.Array(kinds), pq.Array(fields), pq.Array(blobs), now)
	if err != nil {
		return nil, fmt.Errorf("insert staging records: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0, len(recs))
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan staging record id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate staging record ids: %w", err)
	}
	slices.Sort(ids)
	return ids, nil
}

func (s *PostgresStore) Get(ctx context.Context, id int64) (*models.StagingRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM staging_records WHERE id = $1`
	rec, err := scanRecord(txcontext.Exec(ctx, s.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get staging record %d: %w", id, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("get staging record %d: %w", id, err)
	}
	return rec, nil
}

func (s *PostgresStore) ListPending(ctx context.Context, batchID string, afterID int64, limit int) ([]models.StagingRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM staging_records
		WHERE batch_id = $1 AND status = 'pending' AND id > $2
		ORDER BY id
		LIMIT $3
	`
	return s.list(ctx, "list pending staging records", query, batchID, afterID, limit)
}

func (s *PostgresStore) ListByBatch(ctx context.Context, batchID string) ([]models.StagingRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM staging_records WHERE batch_id = $1 ORDER BY id`
	return s.list(ctx, "list staging records", query, batchID)
}

func (s *PostgresStore) list(ctx context.Context, op, query string, args ...any) ([]models.StagingRecord, error) {
	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []models.StagingRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// Claim atomically moves a pending record to processing.
func (s *PostgresStore) Claim(ctx context.Context, id int64, now time.Time) (*models.StagingRecord, error) {
	query := `
		UPDATE staging_records
		SET status = 'processing', claimed_at = $2
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + recordColumns
	rec, err := scanRecord(txcontext.Exec(ctx, s.db).QueryRowContext(ctx, query, id, now))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.transitionMiss(ctx, "claim", id)
		}
		return nil, fmt.Errorf("claim staging record %d: %w", id, err)
	}
	return rec, nil
}

// Finish writes the terminal status of a processing record.
func (s *PostgresStore) Finish(ctx context.Context, outcome models.RecordOutcome, now time.Time) (*models.StagingRecord, error) {
	status, kind, msg, err := terminalColumns(outcome)
	if err != nil {
		return nil, err
	}
	query := `
		UPDATE staging_records
		SET status = $2, processed_at = $3, error_kind = $4, error_message = $5, target_entity_id = $6
		WHERE id = $1 AND status = 'processing'
		RETURNING ` + recordColumns
	rec, err := scanRecord(txcontext.Exec(ctx, s.db).QueryRowContext(ctx, query,
		outcome.RecordID, string(status), now, string(kind), msg, outcome.TargetEntityID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.transitionMiss(ctx, "finish", outcome.RecordID)
		}
		return nil, fmt.Errorf("finish staging record %d: %w", outcome.RecordID, err)
	}
	return rec, nil
}

// transitionMiss distinguishes a missing row from one in the wrong status after a
// conditional update matched nothing.
func (s *PostgresStore) transitionMiss(ctx context.Context, op string, id int64) error {
	var status string
	err := txcontext.Exec(ctx, s.db).QueryRowContext(ctx,
		`SELECT status FROM staging_records WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s staging record %d: %w", op, id, sentinel.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("%s staging record %d: %w", op, id, err)
	}
	return fmt.Errorf("%s staging record %d in status %s: %w", op, id, status, sentinel.ErrInvalidState)
}

func (s *PostgresStore) ListFailed(ctx context.Context, filter models.FailedRecordFilter) ([]models.FailedRecord, error) {
	kinds := make([]string, len(filter.Kinds))
	for i, k := range filter.Kinds {
		kinds[i] = string(k)
	}
	query := `
		SELECT ` + recordColumns + `
		FROM staging_records
		WHERE status = 'failed'
		  AND ($1 = '' OR batch_id = $1)
		  AND (cardinality($2::text[]) = 0 OR kind = ANY($2::text[]))
		ORDER BY processed_at DESC, id DESC
		LIMIT $3
	`
	recs, err := s.list(ctx, "list failed staging records", query,
		filter.BatchID, pq.Array(kinds), normalizeLimit(filter.Limit))
	if err != nil {
		return nil, err
	}
	out := make([]models.FailedRecord, len(recs))
	for i := range recs {
		out[i] = failedRow(&recs[i])
	}
	return out, nil
}

func (s *PostgresStore) DeleteTerminalOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := txcontext.Exec(ctx, s.db).ExecContext(ctx,
		`DELETE FROM staging_records WHERE status IN ('completed', 'failed') AND created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete terminal staging records: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete terminal staging records: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) ResetStaleProcessing(ctx context.Context, claimedBefore time.Time) ([]int64, error) {
	query := `
		UPDATE staging_records
		SET status = 'pending', claimed_at = NULL
		WHERE status = 'processing' AND (claimed_at IS NULL OR claimed_at < $1)
		RETURNING id
	`
	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx, query, claimedBefore)
	if err != nil {
		return nil, fmt.Errorf("reset stale staging records: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan reset staging record: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reset stale staging records: %w", err)
	}
	slices.Sort(ids)
	return ids, nil
}

func (s *PostgresStore) CountByBatch(ctx context.Context, batchID string) (int, error) {
	var n int
	err := txcontext.Exec(ctx, s.db).QueryRowContext(ctx,
		`SELECT count(*) FROM staging_records WHERE batch_id = $1`, batchID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count staging records: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*models.StagingRecord, error) {
	var (
		rec       models.StagingRecord
		kind      string
		status    string
		errorKind string
		rawFields []byte
	)
	err := row.Scan(
		&rec.ID,
		&rec.BatchID,
		&kind,
		&rawFields,
		&rec.RawBlob,
		&status,
		&rec.CreatedAt,
		&rec.ClaimedAt,
		&rec.ProcessedAt,
		&errorKind,
		&rec.ErrorMessage,
		&rec.TargetEntityID,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(rawFields, &rec.RawFields); err != nil {
		return nil, fmt.Errorf("decode raw fields of record %d: %w", rec.ID, err)
	}
	rec.Kind = models.RecordKind(kind)
	rec.Status = models.RecordStatus(status)
	rec.ErrorKind = models.ErrorKind(errorKind)
	return &rec, nil
}
