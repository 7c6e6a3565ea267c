// Package store defines storage interfaces for persisting and
// retrieving order and position records, with a SQLite implementation.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/paaliaq/tradingapi/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("store: not found")

// Order lifecycle states as persisted. A stored order is open until it
// fills or is cancelled.
const (
	OrderStatusOpen      = "open"
	OrderStatusFilled    = "filled"
	OrderStatusCancelled = "cancelled"
)

// OrderRecord is a persisted order plus the lifecycle state the domain
// entity itself does not carry.
type OrderRecord struct {
	domain.Order
	Status    string
	CreatedAt time.Time
}

// OrderStore persists and retrieves order records.
type OrderStore interface {
	// SaveOrder inserts a new order record.
	SaveOrder(ctx context.Context, rec *OrderRecord) error

	// GetOrder retrieves a single order by its ID.
	GetOrder(ctx context.Context, id string) (*OrderRecord, error)

	// ListOrders returns orders with the given status, newest first.
	// An empty status matches all orders; limit <= 0 means no limit.
	ListOrders(ctx context.Context, status string, limit int) ([]OrderRecord, error)

	// UpdateOrderStatus moves an order to a new lifecycle state.
	UpdateOrderStatus(ctx context.Context, id, status string) error
}

// BalanceStore persists a single cash balance, so realized gains and
// losses carry across fills and restarts.
type BalanceStore interface {
	// InitCash seeds the balance if none exists; an existing balance
	// is left untouched.
	InitCash(ctx context.Context, amount float64) error

	// GetCash returns the current cash balance.
	GetCash(ctx context.Context) (float64, error)

	// AdjustCash applies a signed delta to the cash balance.
	AdjustCash(ctx context.Context, delta float64) error
}

// PositionStore persists and retrieves position records.
type PositionStore interface {
	// UpsertPosition inserts or replaces the position for a symbol.
	UpsertPosition(ctx context.Context, pos *domain.Position) error

	// GetPosition retrieves the position for a symbol.
	GetPosition(ctx context.Context, symbol string) (*domain.Position, error)

	// ListPositions returns all positions, ordered by symbol.
	ListPositions(ctx context.Context) ([]domain.Position, error)

	// DeletePosition removes the position for a symbol.
	DeletePosition(ctx context.Context, symbol string) error
}
