package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marcioluisms/hotelly2-sub000/internal/domain"
)

// dedupe backs both idempotency mechanisms: the (token, operation) result
// ledger for caller-facing operations and the processed-task table that
// collapses exact queue redeliveries. Both are written inside the same
// transaction as the mutation they protect.
type dedupe struct {
	pool *pgxpool.Pool
}

// GetResult returns the stored response for a token+operation, or nil when
// the pair has not been applied yet.
func (d dedupe) GetResult(ctx context.Context, token, operation string) ([]byte, error) {
	const query = `SELECT result FROM idempotency_keys WHERE token = $1 AND operation = $2`

	var result []byte
	err := queryerFor(ctx, d.pool).QueryRow(ctx, query, token, operation).Scan(&result)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get idempotency result: %w", err)
	}
	return result, nil
}

// PutResult records the response for a token+operation. The table is
// append-only; a replayed token reads the row instead of rewriting it. A
// concurrent call that committed the same key first surfaces as
// ErrIdempotencyConflict so the caller can re-read the winner's response
// after its own transaction rolls back.
func (d dedupe) PutResult(ctx context.Context, token, operation string, result []byte, now time.Time) error {
	const stmt = `
INSERT INTO idempotency_keys (token, operation, result, created_at)
VALUES ($1, $2, $3, $4)`

	if _, err := queryerFor(ctx, d.pool).Exec(ctx, stmt, token, operation, result, now); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrIdempotencyConflict
		}
		return fmt.Errorf("put idempotency result: %w", err)
	}
	return nil
}

// MarkTaskProcessed records a deterministic task id and reports whether it
// was new. A false return means an exact redelivery already applied.
func (d dedupe) MarkTaskProcessed(ctx context.Context, taskID string, now time.Time) (bool, error) {
	const stmt = `
INSERT INTO processed_tasks (task_id, processed_at)
VALUES ($1, $2)
ON CONFLICT (task_id) DO NOTHING`

	tag, err := queryerFor(ctx, d.pool).Exec(ctx, stmt, taskID, now)
	if err != nil {
		return false, fmt.Errorf("mark task processed: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
