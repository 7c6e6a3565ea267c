// Package broker defines the capability set every brokerage adapter
// must implement and the request/filter types shared across vendors.
// Adapters return only domain entities to callers, never vendor-native
// types.
package broker

import (
	"context"
	"time"

	"github.com/paaliaq/tradingapi/internal/domain"
)

// Broker abstracts one brokerage behind the full account, order, and
// position lifecycle. Implementations are thin bindings over a vendor
// SDK or HTTP surface; every blocking vendor call is offloaded so the
// caller suspends on ctx rather than stalling. Vendor and transport
// errors propagate unchanged; operations a vendor cannot serve return a
// NotSupportedError rather than an empty result.
type Broker interface {
	// Name returns the broker identifier (e.g. "alpaca", "ibgw", "sim").
	Name() string

	// GetAccount returns a snapshot of the trading account.
	GetAccount(ctx context.Context) (*domain.Account, error)

	// GetClock returns the current market-session snapshot.
	GetClock(ctx context.Context) (*domain.Clock, error)

	// GetTradingDays returns the trading sessions between start and end.
	GetTradingDays(ctx context.Context, start, end time.Time) ([]domain.TradingDay, error)

	// SubmitOrder validates req and sends it to the venue.
	SubmitOrder(ctx context.Context, req OrderRequest) (*domain.Order, error)

	// ListOrders returns orders matching the filter. Zero matches is a
	// legitimate empty answer, not an error.
	ListOrders(ctx context.Context, filter ListOrdersFilter) ([]domain.Order, error)

	// GetOrder returns the order with the given venue-assigned ID.
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)

	// CancelOrder requests cancellation of an open order.
	CancelOrder(ctx context.Context, orderID string) error

	// CancelAllOrders requests cancellation of every open order.
	CancelAllOrders(ctx context.Context) error

	// ListPositions returns all open positions.
	ListPositions(ctx context.Context) ([]domain.Position, error)

	// GetPosition returns the open position for a symbol.
	GetPosition(ctx context.Context, symbol string) (*domain.Position, error)

	// ClosePosition liquidates the position for a symbol at market
	// price and returns the liquidating order.
	ClosePosition(ctx context.Context, symbol string) (*domain.Order, error)

	// CloseAllPositions liquidates every open position and reports the
	// per-symbol outcome, success or failure.
	CloseAllPositions(ctx context.Context) ([]domain.ClosedPosition, error)
}

// ListOrdersFilter narrows a ListOrders call. Zero values mean "no
// constraint" except Status, which defaults to open.
type ListOrdersFilter struct {
	Status    string // "open", "closed", or "all"; defaults to "open"
	Limit     int
	After     time.Time
	Until     time.Time
	Direction string // "asc" or "desc"; defaults to "desc" (newest first)
}
