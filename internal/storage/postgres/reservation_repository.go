package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marcioluisms/hotelly2-sub000/internal/domain"
)

// ReservationRepository persists reservations and carries the ledger,
// outbox and dedupe statements the modify/cancel/assign flows need.
type ReservationRepository struct {
	ledger
	outbox
	dedupe
	pool *pgxpool.Pool
}

func NewReservationRepository(pool *pgxpool.Pool) *ReservationRepository {
	return &ReservationRepository{
		ledger: ledger{pool: pool},
		outbox: outbox{pool: pool},
		dedupe: dedupe{pool: pool},
		pool:   pool,
	}
}

func (r *ReservationRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

const reservationColumns = `id, property_id, hold_id, room_type_id, room_id, checkin, checkout,
guests, total_amount, currency, status, created_at`

func (r *ReservationRepository) GetReservationForUpdate(ctx context.Context, id string) (domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1 FOR UPDATE`

	res, err := scanReservation(queryerFor(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Reservation{}, domain.ErrInvalidID
		}
		if isNoRows(err) {
			return domain.Reservation{}, domain.ErrReservationNotFound
		}
		return domain.Reservation{}, fmt.Errorf("get reservation: %w", err)
	}
	return res, nil
}

// FindOverlapping runs the application layer of the conflict guard: other
// reservations in operational statuses on the same room whose half-open
// interval intersects the given one. With lock set the matches are taken
// FOR UPDATE, closing the window between check and write. excludeID keeps a
// reservation from conflicting with itself during modification.
func (r *ReservationRepository) FindOverlapping(ctx context.Context, roomID string, checkin, checkout time.Time, excludeID string, lock bool) ([]domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + `
FROM reservations
WHERE room_id = $1
  AND status IN ('confirmed', 'in_house', 'checked_out')
  AND id <> $4
  AND checkin < $3 AND checkout > $2
ORDER BY checkin`
	if lock {
		query += `
FOR UPDATE`
	}

	rows, err := queryerFor(ctx, r.pool).Query(ctx, query, roomID, checkin, checkout, excludeID)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("find overlapping: %w", err)
	}
	defer rows.Close()

	var out []domain.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find overlapping: %w", err)
	}
	return out, nil
}

// UpdateStay rewrites the stay range and total after a modification. The
// room-overlap EXCLUDE constraint re-checks the new range at write time.
func (r *ReservationRepository) UpdateStay(ctx context.Context, id string, checkin, checkout time.Time, totalAmount int64) error {
	const stmt = `UPDATE reservations SET checkin = $2, checkout = $3, total_amount = $4 WHERE id = $1`

	tag, err := queryerFor(ctx, r.pool).Exec(ctx, stmt, id, checkin, checkout, totalAmount)
	if err != nil {
		if isExclusionViolation(err) {
			return domain.ErrRoomConflict
		}
		return fmt.Errorf("update stay: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrReservationNotFound
	}
	return nil
}

// UpdateRoom assigns or reassigns the physical room. The EXCLUDE constraint
// rejects an overlapping assignment even if the application check was
// bypassed or raced.
func (r *ReservationRepository) UpdateRoom(ctx context.Context, id, roomID string) error {
	const stmt = `UPDATE reservations SET room_id = $2 WHERE id = $1`

	tag, err := queryerFor(ctx, r.pool).Exec(ctx, stmt, id, roomID)
	if err != nil {
		if isExclusionViolation(err) {
			return domain.ErrRoomConflict
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("update room: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrReservationNotFound
	}
	return nil
}

// UpdateStatus flips a reservation between statuses; zero rows means the
// expected status no longer holds.
func (r *ReservationRepository) UpdateStatus(ctx context.Context, id string, from, to domain.ReservationStatus) error {
	const stmt = `UPDATE reservations SET status = $3 WHERE id = $1 AND status = $2`

	tag, err := queryerFor(ctx, r.pool).Exec(ctx, stmt, id, from, to)
	if err != nil {
		return fmt.Errorf("update reservation status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInvalidTransition
	}
	return nil
}

func (r *ReservationRepository) GetRoom(ctx context.Context, roomID string) (domain.Room, error) {
	const query = `SELECT id, property_id, room_type_id, number, created_at FROM rooms WHERE id = $1`

	var room domain.Room
	err := queryerFor(ctx, r.pool).QueryRow(ctx, query, roomID).
		Scan(&room.ID, &room.PropertyID, &room.RoomTypeID, &room.Number, &room.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Room{}, domain.ErrInvalidID
		}
		if isNoRows(err) {
			return domain.Room{}, domain.ErrRoomNotFound
		}
		return domain.Room{}, fmt.Errorf("get room: %w", err)
	}
	return room, nil
}

func (r *ReservationRepository) GetProperty(ctx context.Context, propertyID string) (domain.Property, error) {
	const query = `
SELECT id, name, timezone, policy_type, free_until_days, penalty_percent, created_at
FROM properties
WHERE id = $1`

	var p domain.Property
	err := queryerFor(ctx, r.pool).QueryRow(ctx, query, propertyID).
		Scan(&p.ID, &p.Name, &p.Timezone, &p.Policy.Type, &p.Policy.FreeUntilDays, &p.Policy.PenaltyPercent, &p.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Property{}, domain.ErrInvalidID
		}
		if isNoRows(err) {
			return domain.Property{}, domain.ErrPropertyNotFound
		}
		return domain.Property{}, fmt.Errorf("get property: %w", err)
	}
	return p, nil
}

func insertReservation(ctx context.Context, q querier, res domain.Reservation) error {
	const stmt = `
INSERT INTO reservations (id, property_id, hold_id, room_type_id, room_id, checkin, checkout,
	guests, total_amount, currency, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := q.Exec(ctx, stmt,
		res.ID, res.PropertyID, nullable(res.HoldID), res.RoomTypeID, nullable(res.RoomID),
		res.Checkin, res.Checkout, res.Guests, res.TotalAmount, res.Currency, res.Status, res.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			// reservations.hold_id is unique: a concurrent convert won.
			return domain.ErrHoldNotActive
		}
		if isExclusionViolation(err) {
			return domain.ErrRoomConflict
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create reservation: %w", err)
	}
	return nil
}

func scanReservation(row rowScanner) (domain.Reservation, error) {
	var res domain.Reservation
	var holdID, roomID *string
	err := row.Scan(
		&res.ID, &res.PropertyID, &holdID, &res.RoomTypeID, &roomID, &res.Checkin, &res.Checkout,
		&res.Guests, &res.TotalAmount, &res.Currency, &res.Status, &res.CreatedAt,
	)
	if err != nil {
		return domain.Reservation{}, err
	}
	if holdID != nil {
		res.HoldID = *holdID
	}
	if roomID != nil {
		res.RoomID = *roomID
	}
	return res, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
