package broker

import (
	"fmt"

	"github.com/paaliaq/tradingapi/internal/domain"
)

// OrderRequest is a full order specification. Exactly one pricing mode
// is meaningful per type; Validate enforces that before any vendor
// call so a malformed request never leaves the process.
type OrderRequest struct {
	Symbol      string
	Qty         float64
	Notional    *float64
	Side        domain.OrderSide
	Type        domain.OrderType
	TimeInForce domain.TimeInForce
	Class       domain.OrderClass

	LimitPrice    *float64
	StopPrice     *float64
	TrailPrice    *float64
	TrailPercent  *float64
	ExtendedHours bool

	TakeProfit *domain.TakeProfit
	StopLoss   *domain.StopLoss
}

// Validate checks the request against the pricing-mode invariant:
// market orders carry no prices, limit orders require a limit price,
// stop orders a stop price, stop_limit both, and trailing_stop exactly
// one of trail price or trail percent.
func (r *OrderRequest) Validate() error {
	if r.Symbol == "" {
		return fmt.Errorf("order request: symbol is required")
	}
	if r.Qty <= 0 && r.Notional == nil {
		return fmt.Errorf("order request: either qty or notional is required")
	}
	if _, err := domain.ParseOrderSide(string(r.Side)); err != nil {
		return fmt.Errorf("order request: %w", err)
	}
	if _, err := domain.ParseTimeInForce(string(r.TimeInForce)); err != nil {
		return fmt.Errorf("order request: %w", err)
	}

	switch r.Type {
	case domain.OrderTypeMarket:
		if r.LimitPrice != nil || r.StopPrice != nil {
			return fmt.Errorf("order request: market orders carry no limit or stop price")
		}
	case domain.OrderTypeLimit:
		if r.LimitPrice == nil {
			return fmt.Errorf("order request: limit orders require a limit price")
		}
		if r.StopPrice != nil {
			return fmt.Errorf("order request: limit orders carry no stop price")
		}
	case domain.OrderTypeStop:
		if r.StopPrice == nil {
			return fmt.Errorf("order request: stop orders require a stop price")
		}
		if r.LimitPrice != nil {
			return fmt.Errorf("order request: stop orders carry no limit price")
		}
	case domain.OrderTypeStopLimit:
		if r.LimitPrice == nil || r.StopPrice == nil {
			return fmt.Errorf("order request: stop_limit orders require both limit and stop prices")
		}
	case domain.OrderTypeTrailingStop:
		if (r.TrailPrice == nil) == (r.TrailPercent == nil) {
			return fmt.Errorf("order request: trailing_stop orders require exactly one of trail price or trail percent")
		}
	default:
		return fmt.Errorf("order request: unknown order type %q", r.Type)
	}

	if r.Type != domain.OrderTypeTrailingStop && (r.TrailPrice != nil || r.TrailPercent != nil) {
		return fmt.Errorf("order request: trail parameters are only valid on trailing_stop orders")
	}
	return nil
}
