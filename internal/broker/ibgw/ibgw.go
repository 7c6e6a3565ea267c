// Package ibgw implements the broker contract over the Interactive
// Brokers Client Portal gateway. The gateway is a locally running
// process that fronts an authenticated brokerage session with a REST
// surface, so the adapter is plain HTTP: no vendor SDK, wire records
// decoded leniently and coerced by mappers. The gateway has no market
// clock or trading-calendar endpoints; those operations report
// NotSupportedError.
package ibgw

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/paaliaq/tradingapi/internal/async"
	"github.com/paaliaq/tradingapi/internal/broker"
	"github.com/paaliaq/tradingapi/internal/domain"
	"github.com/paaliaq/tradingapi/internal/mapper"
)

const defaultGatewayURL = "https://localhost:5000/v1/api"

// Compile-time interface check.
var _ broker.Broker = (*Broker)(nil)

// Domain enums translated back to the gateway's vocabulary for order
// submission.
var (
	wireSides = map[domain.OrderSide]string{
		domain.OrderSideBuy:  "BUY",
		domain.OrderSideSell: "SELL",
	}
	wireTypes = map[domain.OrderType]string{
		domain.OrderTypeMarket:       "MKT",
		domain.OrderTypeLimit:        "LMT",
		domain.OrderTypeStop:         "STP",
		domain.OrderTypeStopLimit:    "STP LMT",
		domain.OrderTypeTrailingStop: "TRAIL",
	}
	wireTIFs = map[domain.TimeInForce]string{
		domain.TimeInForceDay: "DAY",
		domain.TimeInForceGTC: "GTC",
		domain.TimeInForceOPG: "OPG",
		domain.TimeInForceIOC: "IOC",
		domain.TimeInForceFOK: "FOK",
	}
)

// Broker is the IB Client Portal implementation of the broker contract.
type Broker struct {
	client    *Client
	accountID string
	log       *slog.Logger

	accounts  AccountMapper
	orders    OrderMapper
	positions PositionMapper
}

// New creates an IB gateway broker from flat string settings. Required
// key: "account_id". Optional: "gateway_url" (defaults to the local
// gateway) and "insecure_skip_verify" ("true" accepts the gateway's
// self-signed certificate).
func New(settings broker.Settings) (*Broker, error) {
	if err := settings.Require("account_id"); err != nil {
		return nil, fmt.Errorf("ibgw: %w", err)
	}

	gatewayURL := settings["gateway_url"]
	if gatewayURL == "" {
		gatewayURL = defaultGatewayURL
	}
	insecure := settings["insecure_skip_verify"] == "true"

	accountID := settings["account_id"]
	return &Broker{
		client:    NewClient(gatewayURL, insecure),
		accountID: accountID,
		log:       slog.Default().With("broker", "ibgw"),
		accounts:  AccountMapper{AccountID: accountID},
	}, nil
}

// Name returns "ibgw".
func (b *Broker) Name() string { return "ibgw" }

// GetAccount fetches the portfolio summary and maps it.
func (b *Broker) GetAccount(ctx context.Context) (*domain.Account, error) {
	summary, err := async.Call(ctx, func() (map[string]summaryValue, error) {
		return b.client.accountSummary(ctx, b.accountID)
	})
	if err != nil {
		return nil, err
	}
	return b.accounts.Map(summary)
}

// GetClock is not served by the gateway.
func (b *Broker) GetClock(ctx context.Context) (*domain.Clock, error) {
	return nil, &broker.NotSupportedError{Broker: "ibgw", Op: "GetClock"}
}

// GetTradingDays is not served by the gateway.
func (b *Broker) GetTradingDays(ctx context.Context, start, end time.Time) ([]domain.TradingDay, error) {
	return nil, &broker.NotSupportedError{Broker: "ibgw", Op: "GetTradingDays"}
}

// SubmitOrder validates req, resolves the contract, and submits. The
// returned order reflects the request with the gateway-assigned ID; the
// gateway acknowledgement does not echo the full order back.
func (b *Broker) SubmitOrder(ctx context.Context, req broker.OrderRequest) (*domain.Order, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	payload, err := b.buildPayload(req)
	if err != nil {
		return nil, err
	}

	return async.Call(ctx, func() (*domain.Order, error) {
		conid, err := b.client.searchContract(ctx, req.Symbol)
		if err != nil {
			return nil, err
		}
		payload.ConID = conid

		reply, err := b.client.placeOrder(ctx, b.accountID, *payload)
		if err != nil {
			return nil, err
		}

		out := &domain.Order{
			ID:            reply.OrderID,
			Symbol:        req.Symbol,
			Qty:           req.Qty,
			Side:          req.Side,
			Type:          req.Type,
			TimeInForce:   req.TimeInForce,
			Class:         domain.OrderClassSimple,
			LimitPrice:    req.LimitPrice,
			StopPrice:     req.StopPrice,
			TrailPrice:    req.TrailPrice,
			TrailPercent:  req.TrailPercent,
			ExtendedHours: req.ExtendedHours,
		}
		return out, nil
	})
}

func (b *Broker) buildPayload(req broker.OrderRequest) (*orderPayload, error) {
	if req.Class != domain.OrderClassSimple {
		return nil, &broker.NotSupportedError{Broker: "ibgw", Op: "composite orders"}
	}
	if req.Notional != nil {
		return nil, &broker.NotSupportedError{Broker: "ibgw", Op: "notional orders"}
	}

	tif, ok := wireTIFs[req.TimeInForce]
	if !ok {
		return nil, &broker.NotSupportedError{
			Broker: "ibgw",
			Op:     fmt.Sprintf("time in force %q", req.TimeInForce),
		}
	}

	payload := &orderPayload{
		AcctID:     b.accountID,
		OrderType:  wireTypes[req.Type],
		Side:       wireSides[req.Side],
		TIF:        tif,
		Quantity:   req.Qty,
		Price:      req.LimitPrice,
		AuxPrice:   req.StopPrice,
		OutsideRTH: req.ExtendedHours,
	}
	if req.Type == domain.OrderTypeTrailingStop {
		if req.TrailPrice != nil {
			payload.TrailAmt = req.TrailPrice
			payload.TrailType = "amt"
		} else {
			payload.TrailAmt = req.TrailPercent
			payload.TrailType = "%"
		}
	}
	return payload, nil
}

// openStatuses are the gateway order states that count as open for
// list filtering.
var openStatuses = map[string]bool{
	"PendingSubmit": true,
	"PreSubmitted":  true,
	"Submitted":     true,
}

// ListOrders fetches live orders and filters and sorts client-side;
// the gateway has no server-side order filtering.
func (b *Broker) ListOrders(ctx context.Context, filter broker.ListOrdersFilter) ([]domain.Order, error) {
	records, err := async.Call(ctx, func() ([]orderRecord, error) {
		return b.client.liveOrders(ctx)
	})
	if err != nil {
		return nil, err
	}

	status := filter.Status
	if status == "" {
		status = "open"
	}

	// Gateway order IDs increase with submission, so they stand in
	// for a submission timestamp; newest first unless asked otherwise.
	sort.Slice(records, func(i, j int) bool {
		a, _ := records[i].OrderID.Int64()
		b, _ := records[j].OrderID.Int64()
		if filter.Direction == "asc" {
			return a < b
		}
		return a > b
	})

	var orders []domain.Order
	for i := range records {
		rec := &records[i]

		switch status {
		case "open":
			if !openStatuses[rec.Status] {
				continue
			}
		case "closed":
			if openStatuses[rec.Status] {
				continue
			}
		}

		if !filter.After.IsZero() || !filter.Until.IsZero() {
			ts, err := mapper.ParseTimestamp("order", "lastExecutionTime_r", rec.LastExecutionTime.String())
			if err != nil {
				return nil, err
			}
			if !filter.After.IsZero() && !ts.After(filter.After) {
				continue
			}
			if !filter.Until.IsZero() && !ts.Before(filter.Until) {
				continue
			}
		}

		order, err := b.orders.Map(rec)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)

		if filter.Limit > 0 && len(orders) == filter.Limit {
			break
		}
	}
	return orders, nil
}

// GetOrder fetches one order by its gateway-assigned ID.
func (b *Broker) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	rec, err := async.Call(ctx, func() (*orderRecord, error) {
		return b.client.orderStatus(ctx, orderID)
	})
	if err != nil {
		return nil, err
	}
	return b.orders.Map(rec)
}

// CancelOrder requests cancellation of one open order.
func (b *Broker) CancelOrder(ctx context.Context, orderID string) error {
	_, err := async.Call(ctx, func() (struct{}, error) {
		return struct{}{}, b.client.cancelOrder(ctx, b.accountID, orderID)
	})
	return err
}

// CancelAllOrders cancels every open order individually; the gateway
// has no bulk cancel. Failures are collected, not short-circuited.
func (b *Broker) CancelAllOrders(ctx context.Context) error {
	_, err := async.Call(ctx, func() (struct{}, error) {
		records, err := b.client.liveOrders(ctx)
		if err != nil {
			return struct{}{}, err
		}

		var errs []error
		for i := range records {
			rec := &records[i]
			if !openStatuses[rec.Status] {
				continue
			}
			if err := b.client.cancelOrder(ctx, b.accountID, rec.OrderID.String()); err != nil {
				errs = append(errs, fmt.Errorf("cancel order %s: %w", rec.OrderID, err))
			}
		}
		return struct{}{}, errors.Join(errs...)
	})
	return err
}

// ListPositions fetches and maps all open positions.
func (b *Broker) ListPositions(ctx context.Context) ([]domain.Position, error) {
	records, err := async.Call(ctx, func() ([]positionRecord, error) {
		return b.client.positions(ctx, b.accountID)
	})
	if err != nil {
		return nil, err
	}

	positions := make([]domain.Position, 0, len(records))
	for _, rec := range records {
		pos, err := b.positions.Map(rec)
		if err != nil {
			return nil, err
		}
		positions = append(positions, *pos)
	}
	return positions, nil
}

// GetPosition returns the open position for symbol.
func (b *Broker) GetPosition(ctx context.Context, symbol string) (*domain.Position, error) {
	positions, err := b.ListPositions(ctx)
	if err != nil {
		return nil, err
	}
	for i := range positions {
		if positions[i].Symbol == symbol {
			return &positions[i], nil
		}
	}
	return nil, fmt.Errorf("ibgw: no open position for %q", symbol)
}

// ClosePosition liquidates one position with an offsetting market
// order.
func (b *Broker) ClosePosition(ctx context.Context, symbol string) (*domain.Order, error) {
	pos, err := b.GetPosition(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return b.SubmitOrder(ctx, closingRequest(pos))
}

// CloseAllPositions liquidates every open position with offsetting
// market orders and reports the per-symbol outcome. A failed close
// becomes an error entry rather than aborting the sweep.
func (b *Broker) CloseAllPositions(ctx context.Context) ([]domain.ClosedPosition, error) {
	positions, err := b.ListPositions(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]domain.ClosedPosition, 0, len(positions))
	for i := range positions {
		pos := &positions[i]

		order, err := b.SubmitOrder(ctx, closingRequest(pos))
		if err != nil {
			status := 0
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				status = apiErr.StatusCode
			}
			b.log.Warn("close position failed", "symbol", pos.Symbol, "error", err)
			results = append(results, domain.ClosedPosition{
				Symbol:         pos.Symbol,
				HTTPStatusCode: status,
				Error: &domain.ClosedPositionError{
					Symbol:      pos.Symbol,
					Message:     err.Error(),
					ExistingQty: pos.Qty,
				},
			})
			continue
		}

		results = append(results, domain.ClosedPosition{
			Symbol:         pos.Symbol,
			HTTPStatusCode: 200,
			Order:          order,
		})
	}
	return results, nil
}

// closingRequest builds the market order that offsets pos.
func closingRequest(pos *domain.Position) broker.OrderRequest {
	side := domain.OrderSideSell
	if pos.Side == domain.PositionSideShort {
		side = domain.OrderSideBuy
	}
	return broker.OrderRequest{
		Symbol:      pos.Symbol,
		Qty:         pos.Qty,
		Side:        side,
		Type:        domain.OrderTypeMarket,
		TimeInForce: domain.TimeInForceDay,
	}
}
