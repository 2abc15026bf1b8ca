package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/marcioluisms/hotelly2-sub000/internal/clock"
	"github.com/marcioluisms/hotelly2-sub000/internal/domain"
)

type CatalogStore interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	CreateProperty(ctx context.Context, p domain.Property) error
	CreateRoomType(ctx context.Context, rt domain.RoomType) error
	GetRoomType(ctx context.Context, propertyID, roomTypeID string) (domain.RoomType, error)
	CreateRoom(ctx context.Context, room domain.Room) error
	SetCapacity(ctx context.Context, propertyID, roomTypeID string, from, to time.Time, capacity int) error
	SetRate(ctx context.Context, propertyID, roomTypeID string, from, to time.Time, amountMinor int64, currency string) error
}

// CatalogService administers properties, room types, rooms and the seeding
// of capacity and rate rows.
type CatalogService struct {
	store CatalogStore
	clock clock.Clock
}

func NewCatalogService(store CatalogStore, clk clock.Clock) *CatalogService {
	return &CatalogService{store: store, clock: clk}
}

type CreatePropertyInput struct {
	Name           string
	Timezone       string
	PolicyType     domain.PolicyType
	FreeUntilDays  int
	PenaltyPercent int
}

func (s *CatalogService) CreateProperty(ctx context.Context, in CreatePropertyInput) (domain.Property, error) {
	if in.Name == "" {
		return domain.Property{}, domain.ErrInvalidID
	}
	if in.Timezone == "" {
		in.Timezone = "UTC"
	}
	if in.PolicyType == "" {
		in.PolicyType = domain.PolicyFree
	}

	p := domain.Property{
		ID:       uuid.NewString(),
		Name:     in.Name,
		Timezone: in.Timezone,
		Policy: domain.CancellationPolicy{
			Type:           in.PolicyType,
			FreeUntilDays:  in.FreeUntilDays,
			PenaltyPercent: in.PenaltyPercent,
		},
		CreatedAt: s.clock.Now(),
	}
	if err := s.store.CreateProperty(ctx, p); err != nil {
		return domain.Property{}, err
	}
	return p, nil
}

type CreateRoomTypeInput struct {
	PropertyID string
	Name       string
}

func (s *CatalogService) CreateRoomType(ctx context.Context, in CreateRoomTypeInput) (domain.RoomType, error) {
	if in.PropertyID == "" || in.Name == "" {
		return domain.RoomType{}, domain.ErrInvalidID
	}

	rt := domain.RoomType{
		ID:         uuid.NewString(),
		PropertyID: in.PropertyID,
		Name:       in.Name,
		CreatedAt:  s.clock.Now(),
	}
	if err := s.store.CreateRoomType(ctx, rt); err != nil {
		return domain.RoomType{}, err
	}
	return rt, nil
}

type CreateRoomInput struct {
	PropertyID string
	RoomTypeID string
	Number     string
}

func (s *CatalogService) CreateRoom(ctx context.Context, in CreateRoomInput) (domain.Room, error) {
	if in.PropertyID == "" || in.RoomTypeID == "" || in.Number == "" {
		return domain.Room{}, domain.ErrInvalidID
	}
	if _, err := s.store.GetRoomType(ctx, in.PropertyID, in.RoomTypeID); err != nil {
		return domain.Room{}, err
	}

	room := domain.Room{
		ID:         uuid.NewString(),
		PropertyID: in.PropertyID,
		RoomTypeID: in.RoomTypeID,
		Number:     in.Number,
		CreatedAt:  s.clock.Now(),
	}
	if err := s.store.CreateRoom(ctx, room); err != nil {
		return domain.Room{}, err
	}
	return room, nil
}

type SetCapacityInput struct {
	PropertyID string
	RoomTypeID string
	From       time.Time
	To         time.Time
	Capacity   int
}

func (s *CatalogService) SetCapacity(ctx context.Context, in SetCapacityInput) error {
	if in.Capacity < 0 {
		return domain.ErrNoCapacity
	}
	if len(domain.Nights(in.From, in.To)) == 0 {
		return domain.ErrInvalidRange
	}
	if _, err := s.store.GetRoomType(ctx, in.PropertyID, in.RoomTypeID); err != nil {
		return err
	}
	return s.store.WithTx(ctx, func(txCtx context.Context) error {
		return s.store.SetCapacity(txCtx, in.PropertyID, in.RoomTypeID, in.From, in.To, in.Capacity)
	})
}

type SetRateInput struct {
	PropertyID  string
	RoomTypeID  string
	From        time.Time
	To          time.Time
	AmountMinor int64
	Currency    string
}

func (s *CatalogService) SetRate(ctx context.Context, in SetRateInput) error {
	if in.AmountMinor < 0 || in.Currency == "" {
		return domain.ErrNoRate
	}
	if len(domain.Nights(in.From, in.To)) == 0 {
		return domain.ErrInvalidRange
	}
	if _, err := s.store.GetRoomType(ctx, in.PropertyID, in.RoomTypeID); err != nil {
		return err
	}
	return s.store.WithTx(ctx, func(txCtx context.Context) error {
		return s.store.SetRate(txCtx, in.PropertyID, in.RoomTypeID, in.From, in.To, in.AmountMinor, in.Currency)
	})
}
