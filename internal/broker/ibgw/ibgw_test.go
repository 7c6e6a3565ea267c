package ibgw

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/paaliaq/tradingapi/internal/broker"
	"github.com/paaliaq/tradingapi/internal/domain"
)

// fakeGateway serves a minimal Client Portal surface for one account
// with one open order and one position.
func fakeGateway(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/portfolio/DU1234567/summary", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"netliquidation": {"amount": 103750.05, "currency": "USD"},
			"totalcashvalue": {"amount": 25000.50, "currency": "USD"},
			"buyingpower":    {"amount": 207500.10, "currency": "USD"}
		}`))
	})
	mux.HandleFunc("/iserver/account/orders", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"orders": [
			{"orderId": 1387033876, "ticker": "AAPL", "side": "BUY", "orderType": "LMT",
			 "timeInForce": "GTC", "status": "Submitted", "totalSize": 10, "price": 185.50},
			{"orderId": 1387033877, "ticker": "MSFT", "side": "SELL", "orderType": "MKT",
			 "timeInForce": "DAY", "status": "Filled", "totalSize": 3}
		]}`))
	})
	mux.HandleFunc("/portfolio/DU1234567/positions/0", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"conid": 265598, "ticker": "AAPL", "position": 5, "avgCost": 100.0,
			 "mktPrice": 120.0, "mktValue": 600.0, "unrealizedPnl": 100.0,
			 "assetClass": "STK", "listingExchange": "NASDAQ", "currency": "USD"}
		]`))
	})
	mux.HandleFunc("/iserver/secdef/search", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("symbol") == "AAPL" {
			w.Write([]byte(`[{"conid": 265598, "symbol": "AAPL"}]`))
			return
		}
		w.Write([]byte(`[]`))
	})
	mux.HandleFunc("/iserver/account/DU1234567/orders", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"order_id": "1387033900", "order_status": "Submitted"}]`))
	})
	mux.HandleFunc("/iserver/account/DU1234567/order/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func testBroker(t *testing.T) *Broker {
	t.Helper()
	ts := fakeGateway(t)
	b, err := New(broker.Settings{
		"account_id":  "DU1234567",
		"gateway_url": ts.URL,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return b
}

func TestNewRequiresAccountID(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Error("New(nil) should fail")
	}
	if _, err := New(broker.Settings{"gateway_url": "https://localhost:5000/v1/api"}); err == nil {
		t.Error("New without account_id should fail")
	}
}

func TestGetAccount(t *testing.T) {
	b := testBroker(t)

	acct, err := b.GetAccount(context.Background())
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if acct.ID != "DU1234567" || acct.Equity != 103750.05 {
		t.Errorf("account = %q/%v", acct.ID, acct.Equity)
	}
}

func TestClockAndCalendarNotSupported(t *testing.T) {
	b := testBroker(t)
	ctx := context.Background()

	if _, err := b.GetClock(ctx); !errors.Is(err, broker.ErrNotSupported) {
		t.Errorf("GetClock error = %v, want ErrNotSupported", err)
	}
	if _, err := b.GetTradingDays(ctx, time.Time{}, time.Time{}); !errors.Is(err, broker.ErrNotSupported) {
		t.Errorf("GetTradingDays error = %v, want ErrNotSupported", err)
	}
}

func TestListOrdersStatusFilter(t *testing.T) {
	b := testBroker(t)
	ctx := context.Background()

	open, err := b.ListOrders(ctx, broker.ListOrdersFilter{})
	if err != nil {
		t.Fatalf("ListOrders(open): %v", err)
	}
	if len(open) != 1 || open[0].Symbol != "AAPL" {
		t.Errorf("open orders = %+v, want just AAPL", open)
	}

	closed, err := b.ListOrders(ctx, broker.ListOrdersFilter{Status: "closed"})
	if err != nil {
		t.Fatalf("ListOrders(closed): %v", err)
	}
	if len(closed) != 1 || closed[0].Symbol != "MSFT" {
		t.Errorf("closed orders = %+v, want just MSFT", closed)
	}

	all, err := b.ListOrders(ctx, broker.ListOrdersFilter{Status: "all"})
	if err != nil {
		t.Fatalf("ListOrders(all): %v", err)
	}
	if len(all) != 2 {
		t.Errorf("all orders = %d, want 2", len(all))
	}
}

func TestListOrdersDirection(t *testing.T) {
	b := testBroker(t)
	ctx := context.Background()

	// AAPL has the lower (earlier) gateway order ID.
	asc, err := b.ListOrders(ctx, broker.ListOrdersFilter{Status: "all", Direction: "asc"})
	if err != nil {
		t.Fatalf("ListOrders(asc): %v", err)
	}
	if len(asc) != 2 || asc[0].Symbol != "AAPL" || asc[1].Symbol != "MSFT" {
		t.Errorf("ascending orders = %+v, want AAPL then MSFT", asc)
	}

	desc, err := b.ListOrders(ctx, broker.ListOrdersFilter{Status: "all"})
	if err != nil {
		t.Fatalf("ListOrders(desc): %v", err)
	}
	if len(desc) != 2 || desc[0].Symbol != "MSFT" {
		t.Errorf("default orders = %+v, want newest (MSFT) first", desc)
	}
}

func TestSubmitOrder(t *testing.T) {
	b := testBroker(t)

	order, err := b.SubmitOrder(context.Background(), broker.OrderRequest{
		Symbol:      "AAPL",
		Qty:         1,
		Side:        domain.OrderSideBuy,
		Type:        domain.OrderTypeMarket,
		TimeInForce: domain.TimeInForceDay,
	})
	if err != nil {
		t.Fatalf("SubmitOrder: %v", err)
	}
	if order.ID != "1387033900" {
		t.Errorf("ID = %q, want gateway-assigned 1387033900", order.ID)
	}
	if order.Symbol != "AAPL" || order.Qty != 1 || order.Type != domain.OrderTypeMarket {
		t.Errorf("order = %+v", order)
	}
}

func TestSubmitOrderRejectsUnsupported(t *testing.T) {
	b := testBroker(t)
	ctx := context.Background()

	base := broker.OrderRequest{
		Symbol:      "AAPL",
		Qty:         1,
		Side:        domain.OrderSideBuy,
		Type:        domain.OrderTypeMarket,
		TimeInForce: domain.TimeInForceDay,
	}

	req := base
	req.Class = domain.OrderClassBracket
	if _, err := b.SubmitOrder(ctx, req); !errors.Is(err, broker.ErrNotSupported) {
		t.Errorf("bracket order error = %v, want ErrNotSupported", err)
	}

	req = base
	req.Qty = 0
	notional := 100.0
	req.Notional = &notional
	if _, err := b.SubmitOrder(ctx, req); !errors.Is(err, broker.ErrNotSupported) {
		t.Errorf("notional order error = %v, want ErrNotSupported", err)
	}

	// Validation failures surface before any gateway call.
	req = base
	req.Symbol = ""
	if _, err := b.SubmitOrder(ctx, req); err == nil {
		t.Error("invalid request should fail validation")
	}
}

func TestGetOrderGatewayError(t *testing.T) {
	b := testBroker(t)

	// The fake gateway has no order-status route, so the client error
	// must surface as a typed APIError without retrying.
	_, err := b.GetOrder(context.Background(), "999")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", apiErr.StatusCode)
	}
}

func TestGetPosition(t *testing.T) {
	b := testBroker(t)
	ctx := context.Background()

	pos, err := b.GetPosition(ctx, "AAPL")
	if err != nil {
		t.Fatalf("GetPosition: %v", err)
	}
	if pos.Qty != 5 || pos.Side != domain.PositionSideLong {
		t.Errorf("position = %+v", pos)
	}

	if _, err := b.GetPosition(ctx, "TSLA"); err == nil {
		t.Error("GetPosition for an unheld symbol should fail")
	}
}

func TestCloseAllPositions(t *testing.T) {
	b := testBroker(t)

	results, err := b.CloseAllPositions(context.Background())
	if err != nil {
		t.Fatalf("CloseAllPositions: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}

	cp := results[0]
	if cp.Symbol != "AAPL" || cp.HTTPStatusCode != 200 {
		t.Errorf("result = %q/%d", cp.Symbol, cp.HTTPStatusCode)
	}
	if !cp.Consistent() {
		t.Error("successful close should be consistent")
	}
	if cp.Order == nil || cp.Order.Side != domain.OrderSideSell || cp.Order.Qty != 5 {
		t.Errorf("closing order = %+v, want sell 5", cp.Order)
	}
}
