package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marcioluisms/hotelly2-sub000/internal/domain"
)

// outbox appends event records in the caller's transaction. The dispatcher
// that drains the table lives outside this service.
type outbox struct {
	pool *pgxpool.Pool
}

func (o outbox) AppendEvent(ctx context.Context, ev domain.Event) error {
	const stmt = `
INSERT INTO events (id, type, aggregate_type, aggregate_id, correlation_id, payload, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := queryerFor(ctx, o.pool).Exec(ctx, stmt,
		ev.ID, ev.Type, ev.AggregateType, ev.AggregateID, ev.CorrelationID, ev.Payload, ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}
