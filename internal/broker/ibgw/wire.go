package ibgw

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// The gateway's JSON is loosely typed: quantities and prices arrive as
// numbers on some endpoints and strings on others, and several fields
// are simply absent depending on order state. Wire records therefore
// carry json.Number for every numeric field and leave all coercion to
// the mappers.

// summaryValue is one tag of the portfolio summary, e.g.
// "netliquidation" or "totalcashvalue".
type summaryValue struct {
	Amount   json.Number `json:"amount"`
	Currency string      `json:"currency"`
}

// orderRecord is one live-orders entry. LastExecutionTime is epoch
// milliseconds.
type orderRecord struct {
	OrderID           json.Number `json:"orderId"`
	Ticker            string      `json:"ticker"`
	Side              string      `json:"side"`      // BUY / SELL
	OrderType         string      `json:"orderType"` // MKT / LMT / STP / STP LMT / TRAIL
	TimeInForce       string      `json:"timeInForce"`
	Status            string      `json:"status"`
	TotalSize         json.Number `json:"totalSize"`
	Price             json.Number `json:"price"`    // limit price when set
	AuxPrice          json.Number `json:"auxPrice"` // stop / trailing amount when set
	OutsideRTH        bool        `json:"outsideRTH"`
	LastExecutionTime json.Number `json:"lastExecutionTime_r"`
}

// positionRecord is one portfolio position.
type positionRecord struct {
	ConID           json.Number `json:"conid"`
	Ticker          string      `json:"ticker"`
	Position        json.Number `json:"position"`
	AvgCost         json.Number `json:"avgCost"`
	MktPrice        json.Number `json:"mktPrice"`
	MktValue        json.Number `json:"mktValue"`
	UnrealizedPnL   json.Number `json:"unrealizedPnl"`
	AssetClass      string      `json:"assetClass"` // STK / OPT / CRYPTO
	ListingExchange string      `json:"listingExchange"`
	Currency        string      `json:"currency"`
}

// orderReply is the gateway's acknowledgement of an order submission.
type orderReply struct {
	OrderID     string `json:"order_id"`
	OrderStatus string `json:"order_status"`
}

// contractMatch is one security-definition search hit.
type contractMatch struct {
	ConID       json.Number `json:"conid"`
	Symbol      string      `json:"symbol"`
	Description string      `json:"description"`
}

// orderPayload is the submission body for one order.
type orderPayload struct {
	AcctID      string   `json:"acctId"`
	ConID       int64    `json:"conid"`
	OrderType   string   `json:"orderType"`
	Side        string   `json:"side"`
	TIF         string   `json:"tif"`
	Quantity    float64  `json:"quantity"`
	Price       *float64 `json:"price,omitempty"`    // limit price
	AuxPrice    *float64 `json:"auxPrice,omitempty"` // stop price
	TrailAmt    *float64 `json:"trailingAmt,omitempty"`
	TrailType   string   `json:"trailingType,omitempty"` // "amt" or "%"
	OutsideRTH  bool     `json:"outsideRth"`
	IsSingleGrp bool     `json:"isSingleGroup,omitempty"`
}

func (c *Client) accountSummary(ctx context.Context, accountID string) (map[string]summaryValue, error) {
	var out map[string]summaryValue
	err := c.get(ctx, "/portfolio/"+accountID+"/summary", nil, &out)
	return out, err
}

func (c *Client) liveOrders(ctx context.Context) ([]orderRecord, error) {
	var out struct {
		Orders []orderRecord `json:"orders"`
	}
	err := c.get(ctx, "/iserver/account/orders", nil, &out)
	return out.Orders, err
}

func (c *Client) orderStatus(ctx context.Context, orderID string) (*orderRecord, error) {
	var out orderRecord
	if err := c.get(ctx, "/iserver/account/order/status/"+orderID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) positions(ctx context.Context, accountID string) ([]positionRecord, error) {
	var out []positionRecord
	// Page 0 is the first 100 positions, which covers the accounts this
	// adapter targets.
	err := c.get(ctx, "/portfolio/"+accountID+"/positions/0", nil, &out)
	return out, err
}

func (c *Client) searchContract(ctx context.Context, symbol string) (int64, error) {
	var matches []contractMatch
	q := url.Values{"symbol": []string{symbol}, "secType": []string{"STK"}}
	if err := c.get(ctx, "/iserver/secdef/search", q, &matches); err != nil {
		return 0, err
	}
	if len(matches) == 0 {
		return 0, fmt.Errorf("ibgw: no contract found for symbol %q", symbol)
	}
	conid, err := matches[0].ConID.Int64()
	if err != nil {
		return 0, fmt.Errorf("ibgw: contract for %q has bad conid %q", symbol, matches[0].ConID)
	}
	return conid, nil
}

func (c *Client) placeOrder(ctx context.Context, accountID string, payload orderPayload) (*orderReply, error) {
	var replies []orderReply
	body := map[string][]orderPayload{"orders": {payload}}
	if err := c.post(ctx, "/iserver/account/"+accountID+"/orders", body, &replies); err != nil {
		return nil, err
	}
	if len(replies) == 0 {
		return nil, fmt.Errorf("ibgw: order submission returned no reply")
	}
	return &replies[0], nil
}

func (c *Client) cancelOrder(ctx context.Context, accountID, orderID string) error {
	return c.delete(ctx, "/iserver/account/"+accountID+"/order/"+orderID)
}
