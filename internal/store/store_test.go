package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/paaliaq/tradingapi/internal/domain"
)

func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "trading.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func fp(v float64) *float64 { return &v }

func TestOrderRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	rec := &OrderRecord{
		Order: domain.Order{
			ID:          "ord-1",
			Symbol:      "AAPL",
			Qty:         10,
			Side:        domain.OrderSideBuy,
			Type:        domain.OrderTypeLimit,
			TimeInForce: domain.TimeInForceGTC,
			Class:       domain.OrderClassBracket,
			LimitPrice:  fp(185.50),
			TakeProfit:  &domain.TakeProfit{LimitPrice: fp(200.00)},
			StopLoss:    &domain.StopLoss{StopPrice: fp(170.00)},
		},
		Status:    OrderStatusOpen,
		CreatedAt: time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC),
	}
	if err := s.SaveOrder(ctx, rec); err != nil {
		t.Fatalf("SaveOrder: %v", err)
	}

	got, err := s.GetOrder(ctx, "ord-1")
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if got.Symbol != "AAPL" || got.Qty != 10 || got.Side != domain.OrderSideBuy {
		t.Errorf("order = %+v", got.Order)
	}
	if got.LimitPrice == nil || *got.LimitPrice != 185.50 {
		t.Errorf("LimitPrice = %v, want 185.50", got.LimitPrice)
	}
	if got.StopPrice != nil {
		t.Error("StopPrice should survive as nil")
	}
	if got.TakeProfit == nil || got.TakeProfit.LimitPrice == nil || *got.TakeProfit.LimitPrice != 200.00 {
		t.Errorf("TakeProfit = %+v", got.TakeProfit)
	}
	if got.StopLoss == nil || got.StopLoss.StopPrice == nil || *got.StopLoss.StopPrice != 170.00 {
		t.Errorf("StopLoss = %+v", got.StopLoss)
	}
	if got.StopLoss.LimitPrice != nil {
		t.Error("StopLoss.LimitPrice should survive as nil")
	}
	if got.Status != OrderStatusOpen {
		t.Errorf("Status = %q, want open", got.Status)
	}
	if !got.CreatedAt.Equal(rec.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, rec.CreatedAt)
	}
}

func TestGetOrderNotFound(t *testing.T) {
	s := testStore(t)

	_, err := s.GetOrder(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestListOrdersByStatus(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	base := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	for i, st := range []string{OrderStatusOpen, OrderStatusOpen, OrderStatusFilled} {
		rec := &OrderRecord{
			Order: domain.Order{
				ID:          "ord-" + string(rune('a'+i)),
				Symbol:      "AAPL",
				Qty:         1,
				Side:        domain.OrderSideBuy,
				Type:        domain.OrderTypeMarket,
				TimeInForce: domain.TimeInForceDay,
				Class:       domain.OrderClassSimple,
			},
			Status:    st,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := s.SaveOrder(ctx, rec); err != nil {
			t.Fatalf("SaveOrder: %v", err)
		}
	}

	open, err := s.ListOrders(ctx, OrderStatusOpen, 0)
	if err != nil {
		t.Fatalf("ListOrders(open): %v", err)
	}
	if len(open) != 2 {
		t.Errorf("open orders = %d, want 2", len(open))
	}
	// Newest first.
	if len(open) == 2 && open[0].CreatedAt.Before(open[1].CreatedAt) {
		t.Error("orders should be ordered newest first")
	}

	all, err := s.ListOrders(ctx, "", 0)
	if err != nil {
		t.Fatalf("ListOrders(all): %v", err)
	}
	if len(all) != 3 {
		t.Errorf("all orders = %d, want 3", len(all))
	}

	limited, err := s.ListOrders(ctx, "", 1)
	if err != nil {
		t.Fatalf("ListOrders(limit): %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("limited orders = %d, want 1", len(limited))
	}
}

func TestUpdateOrderStatus(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	rec := &OrderRecord{
		Order: domain.Order{
			ID: "ord-1", Symbol: "AAPL", Qty: 1,
			Side: domain.OrderSideBuy, Type: domain.OrderTypeMarket,
			TimeInForce: domain.TimeInForceDay, Class: domain.OrderClassSimple,
		},
		Status:    OrderStatusOpen,
		CreatedAt: time.Now(),
	}
	if err := s.SaveOrder(ctx, rec); err != nil {
		t.Fatalf("SaveOrder: %v", err)
	}

	if err := s.UpdateOrderStatus(ctx, "ord-1", OrderStatusCancelled); err != nil {
		t.Fatalf("UpdateOrderStatus: %v", err)
	}
	got, err := s.GetOrder(ctx, "ord-1")
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if got.Status != OrderStatusCancelled {
		t.Errorf("Status = %q, want cancelled", got.Status)
	}

	if err := s.UpdateOrderStatus(ctx, "missing", OrderStatusFilled); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestPositionRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	pos := &domain.Position{
		Symbol:        "AAPL",
		Qty:           5,
		Side:          domain.PositionSideLong,
		Exchange:      domain.ExchangeNASDAQ,
		AssetClass:    domain.AssetClassUSEquity,
		AvgEntryPrice: fp(100.00),
		CostBasis:     fp(500.00),
		CurrentPrice:  fp(120.00),
	}
	if err := s.UpsertPosition(ctx, pos); err != nil {
		t.Fatalf("UpsertPosition: %v", err)
	}

	got, err := s.GetPosition(ctx, "AAPL")
	if err != nil {
		t.Fatalf("GetPosition: %v", err)
	}
	if got.Qty != 5 || got.Side != domain.PositionSideLong {
		t.Errorf("position = %+v", got)
	}
	if got.AvgEntryPrice == nil || *got.AvgEntryPrice != 100.00 {
		t.Errorf("AvgEntryPrice = %v, want 100.00", got.AvgEntryPrice)
	}
	if got.MarketValue != nil {
		t.Error("unset MarketValue should survive as nil")
	}

	// Upsert replaces in place.
	pos.Qty = 8
	if err := s.UpsertPosition(ctx, pos); err != nil {
		t.Fatalf("UpsertPosition(update): %v", err)
	}
	got, err = s.GetPosition(ctx, "AAPL")
	if err != nil {
		t.Fatalf("GetPosition: %v", err)
	}
	if got.Qty != 8 {
		t.Errorf("Qty after upsert = %v, want 8", got.Qty)
	}

	list, err := s.ListPositions(ctx)
	if err != nil {
		t.Fatalf("ListPositions: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("positions = %d, want 1", len(list))
	}

	if err := s.DeletePosition(ctx, "AAPL"); err != nil {
		t.Fatalf("DeletePosition: %v", err)
	}
	if _, err := s.GetPosition(ctx, "AAPL"); !errors.Is(err, ErrNotFound) {
		t.Errorf("error after delete = %v, want ErrNotFound", err)
	}
	if err := s.DeletePosition(ctx, "AAPL"); !errors.Is(err, ErrNotFound) {
		t.Errorf("double delete error = %v, want ErrNotFound", err)
	}
}

func TestCashBalance(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if _, err := s.GetCash(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetCash before seed: err = %v, want ErrNotFound", err)
	}
	if err := s.AdjustCash(ctx, 100); !errors.Is(err, ErrNotFound) {
		t.Errorf("AdjustCash before seed: err = %v, want ErrNotFound", err)
	}

	if err := s.InitCash(ctx, 50_000); err != nil {
		t.Fatalf("InitCash: %v", err)
	}
	if err := s.AdjustCash(ctx, -1250.50); err != nil {
		t.Fatalf("AdjustCash: %v", err)
	}
	cash, err := s.GetCash(ctx)
	if err != nil {
		t.Fatalf("GetCash: %v", err)
	}
	if cash != 48_749.50 {
		t.Errorf("cash = %v, want 48749.50", cash)
	}

	// Re-seeding must not clobber an existing balance.
	if err := s.InitCash(ctx, 999_999); err != nil {
		t.Fatalf("second InitCash: %v", err)
	}
	if cash, _ = s.GetCash(ctx); cash != 48_749.50 {
		t.Errorf("cash after re-seed = %v, want 48749.50", cash)
	}
}
