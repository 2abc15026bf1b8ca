package app

import (
	"context"
	"time"
)

// Quote is a priced stay in minor currency units.
type Quote struct {
	Total    int64
	Currency string
}

// Quoter is the pricing collaborator contract: a pure call made inside the
// core's transaction. No rate for any required night is domain.ErrNoRate.
type Quoter interface {
	Quote(ctx context.Context, propertyID, roomTypeID string, checkin, checkout time.Time, guests int) (Quote, error)
}
