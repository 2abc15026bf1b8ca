package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marcioluisms/hotelly2-sub000/internal/domain"
)

// HoldRepository persists holds and their night rows and carries the ledger,
// outbox and dedupe statements the hold lifecycle needs in one transaction.
type HoldRepository struct {
	ledger
	outbox
	dedupe
	pool *pgxpool.Pool
}

func NewHoldRepository(pool *pgxpool.Pool) *HoldRepository {
	return &HoldRepository{
		ledger: ledger{pool: pool},
		outbox: outbox{pool: pool},
		dedupe: dedupe{pool: pool},
		pool:   pool,
	}
}

func (r *HoldRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

const holdColumns = `id, property_id, room_type_id, checkin, checkout, guests,
total_amount, currency, status, expires_at, create_token, created_at`

func (r *HoldRepository) FindHoldByCreateToken(ctx context.Context, propertyID, token string) (*domain.Hold, error) {
	query := `SELECT ` + holdColumns + ` FROM holds WHERE property_id = $1 AND create_token = $2`

	h, err := scanHold(queryerFor(ctx, r.pool).QueryRow(ctx, query, propertyID, token))
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find hold by create token: %w", err)
	}
	return &h, nil
}

func (r *HoldRepository) GetHoldForUpdate(ctx context.Context, holdID string) (domain.Hold, error) {
	query := `SELECT ` + holdColumns + ` FROM holds WHERE id = $1 FOR UPDATE`

	h, err := scanHold(queryerFor(ctx, r.pool).QueryRow(ctx, query, holdID))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Hold{}, domain.ErrInvalidID
		}
		if isNoRows(err) {
			return domain.Hold{}, domain.ErrHoldNotFound
		}
		return domain.Hold{}, fmt.Errorf("get hold: %w", err)
	}
	return h, nil
}

func (r *HoldRepository) HoldNights(ctx context.Context, holdID string) ([]domain.HoldNight, error) {
	const query = `
SELECT hold_id, room_type_id, date, qty
FROM hold_nights
WHERE hold_id = $1
ORDER BY date`

	rows, err := queryerFor(ctx, r.pool).Query(ctx, query, holdID)
	if err != nil {
		return nil, fmt.Errorf("hold nights: %w", err)
	}
	defer rows.Close()

	var nights []domain.HoldNight
	for rows.Next() {
		var n domain.HoldNight
		if err := rows.Scan(&n.HoldID, &n.RoomTypeID, &n.Date, &n.Qty); err != nil {
			return nil, fmt.Errorf("scan hold night: %w", err)
		}
		nights = append(nights, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("hold nights: %w", err)
	}
	return nights, nil
}

func (r *HoldRepository) CreateHold(ctx context.Context, hold domain.Hold, nights []domain.HoldNight) error {
	const stmt = `
INSERT INTO holds (id, property_id, room_type_id, checkin, checkout, guests,
	total_amount, currency, status, expires_at, create_token, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	q := queryerFor(ctx, r.pool)
	_, err := q.Exec(ctx, stmt,
		hold.ID, hold.PropertyID, hold.RoomTypeID, hold.Checkin, hold.Checkout, hold.Guests,
		hold.TotalAmount, hold.Currency, hold.Status, hold.ExpiresAt, hold.CreateToken, hold.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrIdempotencyConflict
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create hold: %w", err)
	}

	const nightStmt = `INSERT INTO hold_nights (hold_id, room_type_id, date, qty) VALUES ($1, $2, $3, $4)`
	for _, n := range nights {
		if _, err := q.Exec(ctx, nightStmt, n.HoldID, n.RoomTypeID, n.Date, n.Qty); err != nil {
			return fmt.Errorf("create hold night: %w", err)
		}
	}
	return nil
}

// UpdateHoldStatus flips a hold from one status to another; zero rows means
// the expected status no longer holds (a concurrent transition won).
func (r *HoldRepository) UpdateHoldStatus(ctx context.Context, holdID string, from, to domain.HoldStatus) error {
	const stmt = `UPDATE holds SET status = $3 WHERE id = $1 AND status = $2`

	tag, err := queryerFor(ctx, r.pool).Exec(ctx, stmt, holdID, from, to)
	if err != nil {
		return fmt.Errorf("update hold status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrHoldNotActive
	}
	return nil
}

func (r *HoldRepository) CreateReservation(ctx context.Context, res domain.Reservation) error {
	return insertReservation(ctx, queryerFor(ctx, r.pool), res)
}

// ListExpiryDue returns active holds whose deadline has passed, for the
// sweeper that re-enqueues lost expiry tasks. Only ID and ExpiresAt are
// populated; the expiry path re-reads the hold under its own lock.
func (r *HoldRepository) ListExpiryDue(ctx context.Context, now time.Time, limit int) ([]domain.Hold, error) {
	const query = `
SELECT id, expires_at FROM holds
WHERE status = 'active' AND expires_at <= $1
ORDER BY expires_at
LIMIT $2`

	rows, err := queryerFor(ctx, r.pool).Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list expiry due: %w", err)
	}
	defer rows.Close()

	var due []domain.Hold
	for rows.Next() {
		var h domain.Hold
		if err := rows.Scan(&h.ID, &h.ExpiresAt); err != nil {
			return nil, fmt.Errorf("scan due hold: %w", err)
		}
		due = append(due, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list expiry due: %w", err)
	}
	return due, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHold(row rowScanner) (domain.Hold, error) {
	var h domain.Hold
	err := row.Scan(
		&h.ID, &h.PropertyID, &h.RoomTypeID, &h.Checkin, &h.Checkout, &h.Guests,
		&h.TotalAmount, &h.Currency, &h.Status, &h.ExpiresAt, &h.CreateToken, &h.CreatedAt,
	)
	return h, err
}
