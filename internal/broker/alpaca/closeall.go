package alpaca

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	alpacaapi "github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"

	"github.com/paaliaq/tradingapi/internal/domain"
	"github.com/paaliaq/tradingapi/internal/mapper"
)

// closePositionResult is one per-symbol entry of the multi-status
// response to DELETE /v2/positions. The SDK's close-all helper folds
// the per-symbol failures into a single error, which loses the
// order-or-error union the ClosedPosition entity carries, so this one
// endpoint is consumed at the wire level.
type closePositionResult struct {
	Symbol string          `json:"symbol"`
	Status *int            `json:"status"`
	Body   json.RawMessage `json:"body"`
}

// closeErrorBody is the rejection payload a liquidation attempt can
// carry instead of an order. Quantities arrive as strings like every
// other Alpaca decimal.
type closeErrorBody struct {
	Available     string `json:"available"`
	Code          *int   `json:"code"`
	ExistingQty   string `json:"existing_qty"`
	HeldForOrders string `json:"held_for_orders"`
	Message       string `json:"message"`
	Symbol        string `json:"symbol"`
}

var _ mapper.Mapper[closePositionResult, *domain.ClosedPosition] = (*ClosedPositionMapper)(nil)

// ClosedPositionMapper translates one liquidation result into a
// ClosedPosition. Symbol and status are unconditional; the body is then
// interpreted independently as an order and as an error payload, each
// attempt failing soft to nil. The mapper does not force the union to
// be exclusive — the adapter reports inconsistent vendor payloads.
type ClosedPositionMapper struct {
	orders OrderMapper
}

// Map converts one per-symbol liquidation result.
func (m ClosedPositionMapper) Map(src closePositionResult) (*domain.ClosedPosition, error) {
	if src.Symbol == "" {
		return nil, mapper.Missing("closed_position", "symbol")
	}
	if src.Status == nil {
		return nil, mapper.Missing("closed_position", "http_status_code")
	}

	out := &domain.ClosedPosition{
		Symbol:         src.Symbol,
		HTTPStatusCode: *src.Status,
	}

	// Order branch: the body is an order when it decodes as one and
	// carries a venue-assigned ID.
	var vendorOrder alpacaapi.Order
	if err := json.Unmarshal(src.Body, &vendorOrder); err == nil && vendorOrder.ID != "" {
		if order, err := m.orders.Map(&vendorOrder); err == nil {
			out.Order = order
		}
	}

	// Error branch, attempted independently: the body is a rejection
	// when it carries an error code and message.
	var rejection closeErrorBody
	if err := json.Unmarshal(src.Body, &rejection); err == nil &&
		rejection.Code != nil && rejection.Message != "" {
		cpErr := &domain.ClosedPositionError{
			Code:    *rejection.Code,
			Message: rejection.Message,
			Symbol:  rejection.Symbol,
		}
		if cpErr.Symbol == "" {
			cpErr.Symbol = src.Symbol
		}
		if v := mapper.OptParseFloat(rejection.Available); v != nil {
			cpErr.AvailableQty = *v
		}
		if v := mapper.OptParseFloat(rejection.ExistingQty); v != nil {
			cpErr.ExistingQty = *v
		}
		if v := mapper.OptParseFloat(rejection.HeldForOrders); v != nil {
			cpErr.HeldForOrders = *v
		}
		out.Error = cpErr
	}

	return out, nil
}

// closeAllPositionsRaw calls DELETE /v2/positions directly and returns
// the decoded multi-status entries.
func (b *Broker) closeAllPositionsRaw(ctx context.Context) ([]closePositionResult, error) {
	u, err := url.Parse(b.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	u.Path = "/v2/positions"
	u.RawQuery = url.Values{"cancel_orders": []string{"true"}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("APCA-API-KEY-ID", b.apiKey)
	req.Header.Set("APCA-API-SECRET-KEY", b.apiSecret)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusMultiStatus {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return nil, fmt.Errorf("close all positions: http %d: %s", resp.StatusCode, body)
	}

	var results []closePositionResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decoding close-all response: %w", err)
	}
	return results, nil
}
