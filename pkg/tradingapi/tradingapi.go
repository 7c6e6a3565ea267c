// Package tradingapi is the public surface of the module: the broker
// contract, the domain entities, and a factory that builds a broker by
// name. Consumers import only this package; the adapters and mappers
// live in internal packages.
package tradingapi

import (
	"fmt"

	"github.com/paaliaq/tradingapi/internal/broker"
	"github.com/paaliaq/tradingapi/internal/broker/alpaca"
	"github.com/paaliaq/tradingapi/internal/broker/ibgw"
	"github.com/paaliaq/tradingapi/internal/broker/sim"
	"github.com/paaliaq/tradingapi/internal/domain"
)

// Broker is the capability set every brokerage adapter implements.
type Broker = broker.Broker

// Settings are the flat string settings a broker is constructed from.
type Settings = broker.Settings

// OrderRequest is a full order specification for SubmitOrder.
type OrderRequest = broker.OrderRequest

// ListOrdersFilter narrows a ListOrders call.
type ListOrdersFilter = broker.ListOrdersFilter

// NotSupportedError reports an operation a broker cannot serve.
type NotSupportedError = broker.NotSupportedError

// ErrNotSupported matches any NotSupportedError with errors.Is.
var ErrNotSupported = broker.ErrNotSupported

// Domain entities.
type (
	Account        = domain.Account
	Order          = domain.Order
	Position       = domain.Position
	Clock          = domain.Clock
	TradingDay     = domain.TradingDay
	ClosedPosition = domain.ClosedPosition
	TakeProfit     = domain.TakeProfit
	StopLoss       = domain.StopLoss
)

// Domain enums.
type (
	AccountStatus = domain.AccountStatus
	OrderSide     = domain.OrderSide
	OrderType     = domain.OrderType
	TimeInForce   = domain.TimeInForce
	OrderClass    = domain.OrderClass
	PositionSide  = domain.PositionSide
	Exchange      = domain.Exchange
	AssetClass    = domain.AssetClass
)

// New builds a broker by name. Supported names: "alpaca", "ibgw", and
// "sim"; see each adapter's settings documentation for the keys it
// requires.
func New(name string, settings Settings) (Broker, error) {
	switch name {
	case "alpaca":
		return alpaca.New(settings)
	case "ibgw":
		return ibgw.New(settings)
	case "sim":
		return sim.New(settings)
	default:
		return nil, fmt.Errorf("tradingapi: unknown broker %q (want alpaca, ibgw, or sim)", name)
	}
}
