// Package sim implements the broker contract against local state only:
// no venue, no network. Market and limit orders fill immediately,
// stop-family orders rest open until cancelled, and positions and the
// cash balance persist in SQLite so a simulated account survives
// restarts. The market clock
// and calendar are synthetic regular sessions, weekdays 9:30-16:00
// Eastern, with no holiday awareness.
package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/paaliaq/tradingapi/internal/broker"
	"github.com/paaliaq/tradingapi/internal/domain"
	"github.com/paaliaq/tradingapi/internal/store"
)

const defaultStartingCash = 100_000

// Compile-time interface check.
var _ broker.Broker = (*Broker)(nil)

// Broker is the simulated implementation of the broker contract.
type Broker struct {
	store *store.SQLiteStore
	loc   *time.Location
	log   *slog.Logger

	// now is replaceable for tests.
	now func() time.Time
}

// New creates a simulated broker from flat string settings. Required
// key: "db_path". Optional: "starting_cash" (defaults to 100000),
// which seeds a fresh database; an existing database keeps its
// balance.
func New(settings broker.Settings) (*Broker, error) {
	if err := settings.Require("db_path"); err != nil {
		return nil, fmt.Errorf("sim: %w", err)
	}

	cash := float64(defaultStartingCash)
	if v := settings["starting_cash"]; v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("sim: settings: starting_cash %q is not a number", v)
		}
		cash = f
	}

	st, err := store.NewSQLiteStore(settings["db_path"])
	if err != nil {
		return nil, fmt.Errorf("sim: opening store: %w", err)
	}
	if err := st.InitCash(context.Background(), cash); err != nil {
		st.Close()
		return nil, fmt.Errorf("sim: seeding cash balance: %w", err)
	}
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("sim: loading market timezone: %w", err)
	}

	return &Broker{
		store: st,
		loc:   loc,
		log:   slog.Default().With("broker", "sim"),
		now:   time.Now,
	}, nil
}

// Close releases the underlying store.
func (b *Broker) Close() error {
	return b.store.Close()
}

// Name returns "sim".
func (b *Broker) Name() string { return "sim" }

// GetAccount derives the account snapshot from the persisted cash
// balance and the open positions.
func (b *Broker) GetAccount(ctx context.Context) (*domain.Account, error) {
	cash, err := b.store.GetCash(ctx)
	if err != nil {
		return nil, err
	}
	positions, err := b.store.ListPositions(ctx)
	if err != nil {
		return nil, err
	}

	var long, short float64
	for _, pos := range positions {
		var market float64
		if pos.MarketValue != nil {
			market = *pos.MarketValue
		} else if pos.CostBasis != nil {
			market = *pos.CostBasis
		}
		if pos.Side == domain.PositionSideShort {
			short += market
		} else {
			long += market
		}
	}

	equity := cash + long - short
	return &domain.Account{
		ID:               "sim",
		AccountNumber:    "sim",
		Status:           domain.AccountActive,
		Currency:         "USD",
		Cash:             cash,
		Equity:           equity,
		PortfolioValue:   equity,
		BuyingPower:      cash,
		LongMarketValue:  long,
		ShortMarketValue: short,
		ShortingEnabled:  true,
	}, nil
}

// GetClock reports the synthetic session state at the current time.
func (b *Broker) GetClock(ctx context.Context) (*domain.Clock, error) {
	now := b.now().In(b.loc)
	open, close_ := sessionBounds(now)

	isOpen := isWeekday(now) && !now.Before(open) && now.Before(close_)

	nextOpen := open
	if !now.Before(open) || !isWeekday(now) {
		d := now.AddDate(0, 0, 1)
		for !isWeekday(d) {
			d = d.AddDate(0, 0, 1)
		}
		nextOpen, _ = sessionBounds(d)
	}
	nextClose := close_
	if !now.Before(close_) || !isWeekday(now) {
		_, nextClose = sessionBounds(nextOpen)
	}

	return &domain.Clock{
		Timestamp: now,
		IsOpen:    isOpen,
		NextOpen:  nextOpen,
		NextClose: nextClose,
	}, nil
}

// GetTradingDays enumerates the synthetic weekday sessions between
// start and end inclusive.
func (b *Broker) GetTradingDays(ctx context.Context, start, end time.Time) ([]domain.TradingDay, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("sim: calendar range end %s before start %s",
			end.Format("2006-01-02"), start.Format("2006-01-02"))
	}

	var days []domain.TradingDay
	for d := start.In(b.loc); !d.After(end.In(b.loc)); d = d.AddDate(0, 0, 1) {
		if !isWeekday(d) {
			continue
		}
		open, close_ := sessionBounds(d)
		days = append(days, domain.TradingDay{Open: open, Close: close_})
	}
	return days, nil
}

func isWeekday(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

func sessionBounds(d time.Time) (open, close_ time.Time) {
	open = time.Date(d.Year(), d.Month(), d.Day(), 9, 30, 0, 0, d.Location())
	close_ = time.Date(d.Year(), d.Month(), d.Day(), 16, 0, 0, 0, d.Location())
	return open, close_
}

// SubmitOrder accepts the order locally. Market orders fill
// immediately at the reference price and limit orders at their limit
// price; stop-family orders rest open, since the simulator has no
// price feed to trigger them.
func (b *Broker) SubmitOrder(ctx context.Context, req broker.OrderRequest) (*domain.Order, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Notional != nil {
		return nil, &broker.NotSupportedError{Broker: "sim", Op: "notional orders"}
	}

	order := &domain.Order{
		ID:            uuid.NewString(),
		Symbol:        req.Symbol,
		Qty:           req.Qty,
		Side:          req.Side,
		Type:          req.Type,
		TimeInForce:   req.TimeInForce,
		Class:         req.Class,
		LimitPrice:    req.LimitPrice,
		StopPrice:     req.StopPrice,
		TrailPrice:    req.TrailPrice,
		TrailPercent:  req.TrailPercent,
		ExtendedHours: req.ExtendedHours,
		TakeProfit:    req.TakeProfit,
		StopLoss:      req.StopLoss,
	}

	status := store.OrderStatusOpen
	switch req.Type {
	case domain.OrderTypeMarket:
		price, err := b.referencePrice(ctx, order)
		if err != nil {
			return nil, err
		}
		if err := b.applyFill(ctx, order, price); err != nil {
			return nil, err
		}
		status = store.OrderStatusFilled
	case domain.OrderTypeLimit:
		if err := b.applyFill(ctx, order, *order.LimitPrice); err != nil {
			return nil, err
		}
		status = store.OrderStatusFilled
	}

	rec := &store.OrderRecord{
		Order:     *order,
		Status:    status,
		CreatedAt: b.now().UTC(),
	}
	if err := b.store.SaveOrder(ctx, rec); err != nil {
		return nil, err
	}
	b.log.Info("order accepted", "id", order.ID, "symbol", order.Symbol, "status", status)
	return order, nil
}

// referencePrice is what a market order fills at: the last price the
// simulator has seen for the symbol.
func (b *Broker) referencePrice(ctx context.Context, order *domain.Order) (float64, error) {
	pos, err := b.store.GetPosition(ctx, order.Symbol)
	if err == nil && pos.CurrentPrice != nil {
		return *pos.CurrentPrice, nil
	}
	if err == nil && pos.AvgEntryPrice != nil {
		return *pos.AvgEntryPrice, nil
	}
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return 0, err
	}
	return 0, fmt.Errorf("sim: no reference price for %q; open the position with a priced order first", order.Symbol)
}

// applyFill merges a fill into the position book and settles its cash
// leg, so realized gains and losses land on the account.
func (b *Broker) applyFill(ctx context.Context, order *domain.Order, price float64) error {
	signed := order.Qty
	if order.Side == domain.OrderSideSell {
		signed = -signed
	}

	// A buy consumes cash; a sell raises it.
	if err := b.store.AdjustCash(ctx, -signed*price); err != nil {
		return err
	}

	current := 0.0
	avg := price
	pos, err := b.store.GetPosition(ctx, order.Symbol)
	switch {
	case err == nil:
		if pos.Side == domain.PositionSideLong {
			current = pos.Qty
		} else {
			current = -pos.Qty
		}
		if pos.AvgEntryPrice != nil {
			avg = *pos.AvgEntryPrice
		}
	case errors.Is(err, store.ErrNotFound):
		// opening fill
	default:
		return err
	}

	next := current + signed
	if next == 0 {
		if err := b.store.DeletePosition(ctx, order.Symbol); err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		return nil
	}

	// Adding to a position moves the average entry, reducing keeps
	// it, and flipping through flat re-anchors at the fill price.
	newAvg := price
	if current != 0 && (current > 0) == (next > 0) {
		if abs(next) > abs(current) {
			newAvg = (avg*abs(current) + price*abs(signed)) / abs(next)
		} else {
			newAvg = avg
		}
	}

	side := domain.PositionSideLong
	if next < 0 {
		side = domain.PositionSideShort
	}
	qty := abs(next)

	return b.store.UpsertPosition(ctx, &domain.Position{
		Symbol:        order.Symbol,
		Qty:           qty,
		Side:          side,
		Exchange:      domain.ExchangeUnknown,
		AssetClass:    domain.AssetClassUSEquity,
		AvgEntryPrice: &newAvg,
		CostBasis:     ptr(newAvg * qty),
		CurrentPrice:  &price,
		MarketValue:   ptr(price * qty),
	})
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func ptr(v float64) *float64 { return &v }

// ListOrders returns stored orders matching the filter.
func (b *Broker) ListOrders(ctx context.Context, filter broker.ListOrdersFilter) ([]domain.Order, error) {
	status := filter.Status
	if status == "" {
		status = "open"
	}

	var records []store.OrderRecord
	var err error
	switch status {
	case "open":
		records, err = b.store.ListOrders(ctx, store.OrderStatusOpen, 0)
	case "all":
		records, err = b.store.ListOrders(ctx, "", 0)
	case "closed":
		var filled, cancelled []store.OrderRecord
		if filled, err = b.store.ListOrders(ctx, store.OrderStatusFilled, 0); err == nil {
			if cancelled, err = b.store.ListOrders(ctx, store.OrderStatusCancelled, 0); err == nil {
				records = append(filled, cancelled...)
			}
		}
	default:
		return nil, fmt.Errorf("sim: unknown order status filter %q", status)
	}
	if err != nil {
		return nil, err
	}

	// The closed branch concatenates two queries, so sort explicitly
	// by the requested direction; newest first unless asked otherwise.
	asc := filter.Direction == "asc"
	sort.Slice(records, func(i, j int) bool {
		if asc {
			return records[i].CreatedAt.Before(records[j].CreatedAt)
		}
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})

	var orders []domain.Order
	for _, rec := range records {
		if !filter.After.IsZero() && !rec.CreatedAt.After(filter.After) {
			continue
		}
		if !filter.Until.IsZero() && !rec.CreatedAt.Before(filter.Until) {
			continue
		}
		orders = append(orders, rec.Order)
		if filter.Limit > 0 && len(orders) == filter.Limit {
			break
		}
	}
	return orders, nil
}

// GetOrder returns one stored order by ID.
func (b *Broker) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	rec, err := b.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &rec.Order, nil
}

// CancelOrder cancels a resting order. Filled orders cannot be
// cancelled.
func (b *Broker) CancelOrder(ctx context.Context, orderID string) error {
	rec, err := b.store.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if rec.Status != store.OrderStatusOpen {
		return fmt.Errorf("sim: order %s is %s, not open", orderID, rec.Status)
	}
	return b.store.UpdateOrderStatus(ctx, orderID, store.OrderStatusCancelled)
}

// CancelAllOrders cancels every resting order.
func (b *Broker) CancelAllOrders(ctx context.Context) error {
	records, err := b.store.ListOrders(ctx, store.OrderStatusOpen, 0)
	if err != nil {
		return err
	}
	var errs []error
	for _, rec := range records {
		if err := b.store.UpdateOrderStatus(ctx, rec.ID, store.OrderStatusCancelled); err != nil {
			errs = append(errs, fmt.Errorf("cancel order %s: %w", rec.ID, err))
		}
	}
	return errors.Join(errs...)
}

// ListPositions returns all open positions.
func (b *Broker) ListPositions(ctx context.Context) ([]domain.Position, error) {
	return b.store.ListPositions(ctx)
}

// GetPosition returns the open position for symbol.
func (b *Broker) GetPosition(ctx context.Context, symbol string) (*domain.Position, error) {
	pos, err := b.store.GetPosition(ctx, symbol)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("sim: no open position for %q", symbol)
	}
	return pos, err
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

// CloseAllPositions liquidates every open position and reports the
// per-symbol outcome.
func (b *Broker) CloseAllPositions(ctx context.Context) ([]domain.ClosedPosition, error) {
	positions, err := b.store.ListPositions(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]domain.ClosedPosition, 0, len(positions))
	for i := range positions {
		pos := &positions[i]

		order, err := b.SubmitOrder(ctx, closingRequest(pos))
		if err != nil {
			b.log.Warn("close position failed", "symbol", pos.Symbol, "error", err)
			results = append(results, domain.ClosedPosition{
				Symbol:         pos.Symbol,
				HTTPStatusCode: 422,
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
