package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marcioluisms/hotelly2-sub000/internal/app"
	"github.com/marcioluisms/hotelly2-sub000/internal/domain"
	"github.com/marcioluisms/hotelly2-sub000/internal/storage/postgres"
)

// PostgresQuoter prices a stay from the room_rates table. It joins the
// caller's transaction, so the total it computes is consistent with the
// rows the orchestration has locked.
type PostgresQuoter struct {
	pool *pgxpool.Pool
}

func NewPostgresQuoter(pool *pgxpool.Pool) *PostgresQuoter {
	return &PostgresQuoter{pool: pool}
}

// Quote sums the nightly rates over the half-open stay range. A missing
// rate for any night is domain.ErrNoRate; mixed currencies across the
// range are treated the same way, since no single total exists.
func (q *PostgresQuoter) Quote(ctx context.Context, propertyID, roomTypeID string, checkin, checkout time.Time, guests int) (app.Quote, error) {
	nights := domain.Nights(checkin, checkout)
	if len(nights) == 0 {
		return app.Quote{}, domain.ErrInvalidRange
	}

	const query = `
SELECT COUNT(*), COALESCE(SUM(amount_minor), 0), COALESCE(MIN(currency), ''), COALESCE(MAX(currency), '')
FROM room_rates
WHERE property_id = $1 AND room_type_id = $2 AND date >= $3 AND date < $4`

	var (
		priced           int
		total            int64
		minCurr, maxCurr string
	)
	err := postgres.QuerierFor(ctx, q.pool).
		QueryRow(ctx, query, propertyID, roomTypeID, domain.Night(checkin), domain.Night(checkout)).
		Scan(&priced, &total, &minCurr, &maxCurr)
	if err != nil {
		return app.Quote{}, fmt.Errorf("quote stay: %w", err)
	}
	if priced != len(nights) || minCurr != maxCurr || minCurr == "" {
		return app.Quote{}, domain.ErrNoRate
	}

	return app.Quote{Total: total, Currency: minCurr}, nil
}
