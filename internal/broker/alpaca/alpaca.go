// Package alpaca implements the broker contract for the Alpaca cloud
// equity API. The binding is thin: the vendor SDK does the transport
// and retry work, each blocking call is offloaded so the caller
// suspends on its context, and every response goes through a mapper
// before it reaches the caller.
package alpaca

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	alpacaapi "github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/shopspring/decimal"

	"github.com/paaliaq/tradingapi/internal/async"
	"github.com/paaliaq/tradingapi/internal/broker"
	"github.com/paaliaq/tradingapi/internal/domain"
)

// defaultBaseURL matches the SDK's default trading endpoint.
const defaultBaseURL = "https://api.alpaca.markets"

// Compile-time interface check.
var _ broker.Broker = (*Broker)(nil)

// Broker is the Alpaca implementation of the broker contract.
type Broker struct {
	client     *alpacaapi.Client
	httpClient *http.Client
	baseURL    string
	apiKey     string
	apiSecret  string
	log        *slog.Logger

	accounts  AccountMapper
	orders    OrderMapper
	positions PositionMapper
	clocks    ClockMapper
	days      *TradingDayMapper
	closed    ClosedPositionMapper
}

// New creates an Alpaca broker from flat string settings. Required
// keys: "api_key", "api_secret". Optional: "base_url" (defaults to the
// live trading endpoint; use the paper endpoint for paper accounts)
// and "retry_limit" (integer, passed to the SDK client).
func New(settings broker.Settings) (*Broker, error) {
	if err := settings.Require("api_key", "api_secret"); err != nil {
		return nil, fmt.Errorf("alpaca: %w", err)
	}

	baseURL := settings["base_url"]
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	opts := alpacaapi.ClientOpts{
		APIKey:    settings["api_key"],
		APISecret: settings["api_secret"],
		BaseURL:   baseURL,
	}
	if v := settings["retry_limit"]; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("alpaca: settings: retry_limit %q is not an integer", v)
		}
		opts.RetryLimit = n
	}

	days, err := NewTradingDayMapper()
	if err != nil {
		return nil, fmt.Errorf("alpaca: %w", err)
	}

	return &Broker{
		client:     alpacaapi.NewClient(opts),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		apiKey:     settings["api_key"],
		apiSecret:  settings["api_secret"],
		log:        slog.Default().With("broker", "alpaca"),
		days:       days,
	}, nil
}

// Name returns "alpaca".
func (b *Broker) Name() string { return "alpaca" }

// GetAccount fetches and maps the trading account.
func (b *Broker) GetAccount(ctx context.Context) (*domain.Account, error) {
	acct, err := async.Call(ctx, b.client.GetAccount)
	if err != nil {
		return nil, err
	}
	return b.accounts.Map(acct)
}

// GetClock fetches and maps the market-session snapshot.
func (b *Broker) GetClock(ctx context.Context) (*domain.Clock, error) {
	clock, err := async.Call(ctx, b.client.GetClock)
	if err != nil {
		return nil, err
	}
	return b.clocks.Map(clock)
}

// GetTradingDays fetches the trading calendar between start and end.
func (b *Broker) GetTradingDays(ctx context.Context, start, end time.Time) ([]domain.TradingDay, error) {
	calendar, err := async.Call(ctx, func() ([]alpacaapi.CalendarDay, error) {
		return b.client.GetCalendar(alpacaapi.GetCalendarRequest{Start: start, End: end})
	})
	if err != nil {
		return nil, err
	}

	days := make([]domain.TradingDay, 0, len(calendar))
	for _, c := range calendar {
		day, err := b.days.Map(c)
		if err != nil {
			return nil, err
		}
		days = append(days, day)
	}
	return days, nil
}

// SubmitOrder validates req and places it with the venue.
func (b *Broker) SubmitOrder(ctx context.Context, req broker.OrderRequest) (*domain.Order, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	placeReq := placeOrderRequest(req)
	order, err := async.Call(ctx, func() (*alpacaapi.Order, error) {
		return b.client.PlaceOrder(placeReq)
	})
	if err != nil {
		return nil, err
	}
	return b.orders.Map(order)
}

// ListOrders returns orders matching the filter. The vendor defaults
// apply: open orders, at most 50.
func (b *Broker) ListOrders(ctx context.Context, filter broker.ListOrdersFilter) ([]domain.Order, error) {
	status := filter.Status
	if status == "" {
		status = "open"
	}
	limit := filter.Limit
	if limit == 0 {
		limit = 50
	}

	vendorOrders, err := async.Call(ctx, func() ([]alpacaapi.Order, error) {
		return b.client.GetOrders(alpacaapi.GetOrdersRequest{
			Status:    status,
			Limit:     limit,
			After:     filter.After,
			Until:     filter.Until,
			Direction: filter.Direction,
		})
	})
	if err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(vendorOrders))
	for i := range vendorOrders {
		order, err := b.orders.Map(&vendorOrders[i])
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	return orders, nil
}

// GetOrder fetches one order by its venue-assigned ID.
func (b *Broker) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := async.Call(ctx, func() (*alpacaapi.Order, error) {
		return b.client.GetOrder(orderID)
	})
	if err != nil {
		return nil, err
	}
	return b.orders.Map(order)
}

// CancelOrder requests cancellation of one open order.
func (b *Broker) CancelOrder(ctx context.Context, orderID string) error {
	_, err := async.Call(ctx, func() (struct{}, error) {
		return struct{}{}, b.client.CancelOrder(orderID)
	})
	return err
}

// CancelAllOrders requests cancellation of every open order.
func (b *Broker) CancelAllOrders(ctx context.Context) error {
	_, err := async.Call(ctx, func() (struct{}, error) {
		return struct{}{}, b.client.CancelAllOrders()
	})
	return err
}

// ListPositions returns all open positions.
func (b *Broker) ListPositions(ctx context.Context) ([]domain.Position, error) {
	vendorPositions, err := async.Call(ctx, b.client.GetPositions)
	if err != nil {
		return nil, err
	}

	positions := make([]domain.Position, 0, len(vendorPositions))
	for i := range vendorPositions {
		pos, err := b.positions.Map(&vendorPositions[i])
		if err != nil {
			return nil, err
		}
		positions = append(positions, *pos)
	}
	return positions, nil
}

// GetPosition returns the open position for a symbol.
func (b *Broker) GetPosition(ctx context.Context, symbol string) (*domain.Position, error) {
	pos, err := async.Call(ctx, func() (*alpacaapi.Position, error) {
		return b.client.GetPosition(symbol)
	})
	if err != nil {
		return nil, err
	}
	return b.positions.Map(pos)
}

// ClosePosition liquidates the position for a symbol at market price.
func (b *Broker) ClosePosition(ctx context.Context, symbol string) (*domain.Order, error) {
	order, err := async.Call(ctx, func() (*alpacaapi.Order, error) {
		return b.client.ClosePosition(symbol, alpacaapi.ClosePositionRequest{})
	})
	if err != nil {
		return nil, err
	}
	return b.orders.Map(order)
}

// CloseAllPositions liquidates every open position and maps each
// per-symbol outcome. Vendor entries whose body is neither an order nor
// an error payload (or both) are passed through and logged, not
// silently resolved.
func (b *Broker) CloseAllPositions(ctx context.Context) ([]domain.ClosedPosition, error) {
	results, err := async.Call(ctx, func() ([]closePositionResult, error) {
		return b.closeAllPositionsRaw(ctx)
	})
	if err != nil {
		return nil, err
	}

	closed := make([]domain.ClosedPosition, 0, len(results))
	for _, res := range results {
		cp, err := b.closed.Map(res)
		if err != nil {
			return nil, err
		}
		if !cp.Consistent() {
			b.log.Warn("inconsistent liquidation result",
				"symbol", cp.Symbol,
				"status", cp.HTTPStatusCode,
				"has_order", cp.Order != nil,
				"has_error", cp.Error != nil,
			)
		}
		closed = append(closed, *cp)
	}
	return closed, nil
}

// placeOrderRequest translates the request into the vendor shape. The
// domain enum values are the vendor wire values, so the conversions are
// direct.
func placeOrderRequest(req broker.OrderRequest) alpacaapi.PlaceOrderRequest {
	out := alpacaapi.PlaceOrderRequest{
		Symbol:        req.Symbol,
		Side:          alpacaapi.Side(req.Side),
		Type:          alpacaapi.OrderType(req.Type),
		TimeInForce:   alpacaapi.TimeInForce(req.TimeInForce),
		ExtendedHours: req.ExtendedHours,
		LimitPrice:    decPtr(req.LimitPrice),
		StopPrice:     decPtr(req.StopPrice),
		TrailPrice:    decPtr(req.TrailPrice),
		TrailPercent:  decPtr(req.TrailPercent),
		Notional:      decPtr(req.Notional),
	}
	if req.Qty > 0 {
		qty := decimal.NewFromFloat(req.Qty)
		out.Qty = &qty
	}
	if req.Class != "" && req.Class != domain.OrderClassSimple {
		out.OrderClass = alpacaapi.OrderClass(req.Class)
	}
	if req.TakeProfit != nil {
		out.TakeProfit = &alpacaapi.TakeProfit{LimitPrice: decPtr(req.TakeProfit.LimitPrice)}
	}
	if req.StopLoss != nil {
		out.StopLoss = &alpacaapi.StopLoss{
			LimitPrice: decPtr(req.StopLoss.LimitPrice),
			StopPrice:  decPtr(req.StopLoss.StopPrice),
		}
	}
	return out
}

func decPtr(v *float64) *decimal.Decimal {
	if v == nil {
		return nil
	}
	d := decimal.NewFromFloat(*v)
	return &d
}
