package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marcioluisms/hotelly2-sub000/internal/domain"
)

// CatalogRepository manages properties, room types, rooms and the seeding
// of ledger and rate rows.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

func (r *CatalogRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *CatalogRepository) CreateProperty(ctx context.Context, p domain.Property) error {
	const stmt = `
INSERT INTO properties (id, name, timezone, policy_type, free_until_days, penalty_percent, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := queryerFor(ctx, r.pool).Exec(ctx, stmt,
		p.ID, p.Name, p.Timezone, p.Policy.Type, p.Policy.FreeUntilDays, p.Policy.PenaltyPercent, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("create property: %w", err)
	}
	return nil
}

func (r *CatalogRepository) CreateRoomType(ctx context.Context, rt domain.RoomType) error {
	const stmt = `INSERT INTO room_types (id, property_id, name, created_at) VALUES ($1, $2, $3, $4)`

	_, err := queryerFor(ctx, r.pool).Exec(ctx, stmt, rt.ID, rt.PropertyID, rt.Name, rt.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create room type: %w", err)
	}
	return nil
}

func (r *CatalogRepository) GetRoomType(ctx context.Context, propertyID, roomTypeID string) (domain.RoomType, error) {
	const query = `SELECT id, property_id, name, created_at FROM room_types WHERE id = $1 AND property_id = $2`

	var rt domain.RoomType
	err := queryerFor(ctx, r.pool).QueryRow(ctx, query, roomTypeID, propertyID).
		Scan(&rt.ID, &rt.PropertyID, &rt.Name, &rt.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.RoomType{}, domain.ErrInvalidID
		}
		if isNoRows(err) {
			return domain.RoomType{}, domain.ErrRoomTypeNotFound
		}
		return domain.RoomType{}, fmt.Errorf("get room type: %w", err)
	}
	return rt, nil
}

func (r *CatalogRepository) CreateRoom(ctx context.Context, room domain.Room) error {
	const stmt = `INSERT INTO rooms (id, property_id, room_type_id, number, created_at) VALUES ($1, $2, $3, $4, $5)`

	_, err := queryerFor(ctx, r.pool).Exec(ctx, stmt,
		room.ID, room.PropertyID, room.RoomTypeID, room.Number, room.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create room: %w", err)
	}
	return nil
}

// SetCapacity upserts ledger rows for every night in [from, to), keeping
// existing booked/held counters. Lowering capacity below booked+held is
// rejected by the table CHECK and reported as a business error.
func (r *CatalogRepository) SetCapacity(ctx context.Context, propertyID, roomTypeID string, from, to time.Time, capacity int) error {
	const stmt = `
INSERT INTO nightly_inventory (property_id, room_type_id, date, capacity, booked, held)
VALUES ($1, $2, $3, $4, 0, 0)
ON CONFLICT (property_id, room_type_id, date) DO UPDATE SET capacity = EXCLUDED.capacity`

	q := queryerFor(ctx, r.pool)
	for _, night := range domain.Nights(from, to) {
		if _, err := q.Exec(ctx, stmt, propertyID, roomTypeID, night, capacity); err != nil {
			if isCheckViolation(err) {
				return domain.ErrNoCapacity
			}
			if isInvalidUUID(err) {
				return domain.ErrInvalidID
			}
			return fmt.Errorf("set capacity: %w", err)
		}
	}
	return nil
}

// SetRate upserts nightly rates for every night in [from, to).
func (r *CatalogRepository) SetRate(ctx context.Context, propertyID, roomTypeID string, from, to time.Time, amountMinor int64, currency string) error {
	const stmt = `
INSERT INTO room_rates (property_id, room_type_id, date, amount_minor, currency)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (property_id, room_type_id, date) DO UPDATE
SET amount_minor = EXCLUDED.amount_minor, currency = EXCLUDED.currency`

	q := queryerFor(ctx, r.pool)
	for _, night := range domain.Nights(from, to) {
		if _, err := q.Exec(ctx, stmt, propertyID, roomTypeID, night, amountMinor, currency); err != nil {
			if isInvalidUUID(err) {
				return domain.ErrInvalidID
			}
			return fmt.Errorf("set rate: %w", err)
		}
	}
	return nil
}
