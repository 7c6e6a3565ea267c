package ibgw

import (
	"encoding/json"
	"math"

	"github.com/paaliaq/tradingapi/internal/domain"
	"github.com/paaliaq/tradingapi/internal/mapper"
)

// Compile-time mapper contract checks.
var _ mapper.Mapper[map[string]summaryValue, *domain.Account] = (*AccountMapper)(nil)
var _ mapper.Mapper[*orderRecord, *domain.Order] = (*OrderMapper)(nil)
var _ mapper.Mapper[positionRecord, *domain.Position] = (*PositionMapper)(nil)

// Gateway enum vocabularies, translated to domain members. Unlisted
// values are fatal for sides, types, and time-in-force; exchanges fall
// back to UNKNOWN because IB lists far more venues than the domain
// enumerates.
var (
	orderSides = map[string]domain.OrderSide{
		"BUY":  domain.OrderSideBuy,
		"SELL": domain.OrderSideSell,
	}
	orderTypes = map[string]domain.OrderType{
		"MKT":     domain.OrderTypeMarket,
		"LMT":     domain.OrderTypeLimit,
		"STP":     domain.OrderTypeStop,
		"STP LMT": domain.OrderTypeStopLimit,
		"TRAIL":   domain.OrderTypeTrailingStop,
	}
	timesInForce = map[string]domain.TimeInForce{
		"DAY": domain.TimeInForceDay,
		"GTC": domain.TimeInForceGTC,
		"OPG": domain.TimeInForceOPG,
		"IOC": domain.TimeInForceIOC,
		"FOK": domain.TimeInForceFOK,
	}
	assetClasses = map[string]domain.AssetClass{
		"STK":    domain.AssetClassUSEquity,
		"OPT":    domain.AssetClassUSOption,
		"CRYPTO": domain.AssetClassCrypto,
	}
	exchanges = map[string]domain.Exchange{
		"NYSE":   domain.ExchangeNYSE,
		"NASDAQ": domain.ExchangeNASDAQ,
		"ISLAND": domain.ExchangeNASDAQ,
		"AMEX":   domain.ExchangeAMEX,
		"ARCA":   domain.ExchangeARCA,
		"BATS":   domain.ExchangeBATS,
		"PINK":   domain.ExchangeOTC,
		"OTC":    domain.ExchangeOTC,
	}
)

// optNumber converts an optional wire number. The gateway omits the
// field entirely when unset, which json.Number decodes as "".
func optNumber(n json.Number) *float64 {
	return mapper.OptParseFloat(n.String())
}

// ---------------------------------------------------------------------------
// AccountMapper
// ---------------------------------------------------------------------------

// AccountMapper builds the domain Account from the portfolio summary's
// tag map. The gateway only answers on an authenticated brokerage
// session, so a summary that arrives at all describes an active
// account. Required tags must parse; optional tags are zero when the
// gateway omits them but fatal when present and unparseable.
type AccountMapper struct {
	AccountID string
}

func (m AccountMapper) amount(src map[string]summaryValue, tag string, required bool) (float64, error) {
	v, ok := src[tag]
	if !ok || v.Amount.String() == "" {
		if required {
			return 0, mapper.Missing("account", tag)
		}
		return 0, nil
	}
	return mapper.ParseFloat("account", tag, v.Amount.String())
}

// Map converts one portfolio summary.
func (m AccountMapper) Map(src map[string]summaryValue) (*domain.Account, error) {
	if len(src) == 0 {
		return nil, mapper.Missing("account", "summary")
	}

	out := &domain.Account{
		ID:            m.AccountID,
		AccountNumber: m.AccountID,
		Status:        domain.AccountActive,
	}
	if v, ok := src["netliquidation"]; ok {
		out.Currency = v.Currency
	}

	for _, f := range []struct {
		tag      string
		dst      *float64
		required bool
	}{
		{"netliquidation", &out.Equity, true},
		{"totalcashvalue", &out.Cash, true},
		{"buyingpower", &out.BuyingPower, true},
		{"previousdayequitywithloanvalue", &out.LastEquity, false},
		{"initmarginreq", &out.InitialMargin, false},
		{"maintmarginreq", &out.MaintenanceMargin, false},
		{"grosspositionvalue", &out.LongMarketValue, false},
	} {
		v, err := m.amount(src, f.tag, f.required)
		if err != nil {
			return nil, err
		}
		*f.dst = v
	}
	out.PortfolioValue = out.Equity

	return out, nil
}

// ---------------------------------------------------------------------------
// OrderMapper
// ---------------------------------------------------------------------------

// OrderMapper translates a live-orders record. The gateway reports the
// limit price in "price" and overloads "auxPrice" with the stop price
// or the trailing amount depending on the order type.
type OrderMapper struct{}

// Map converts one gateway order record.
func (OrderMapper) Map(src *orderRecord) (*domain.Order, error) {
	if src == nil {
		return nil, mapper.Missing("order", "order")
	}
	if src.Ticker == "" {
		return nil, mapper.Missing("order", "ticker")
	}
	if src.OrderID.String() == "" {
		return nil, mapper.Missing("order", "orderId")
	}

	side, ok := orderSides[src.Side]
	if !ok {
		return nil, mapper.Errorf("order", "side", "unrecognized value %q", src.Side)
	}
	typ, ok := orderTypes[src.OrderType]
	if !ok {
		return nil, mapper.Errorf("order", "orderType", "unrecognized value %q", src.OrderType)
	}
	tif, ok := timesInForce[src.TimeInForce]
	if !ok {
		return nil, mapper.Errorf("order", "timeInForce", "unrecognized value %q", src.TimeInForce)
	}

	qty, err := mapper.ParseFloat("order", "totalSize", src.TotalSize.String())
	if err != nil {
		return nil, err
	}

	out := &domain.Order{
		ID:            src.OrderID.String(),
		Symbol:        src.Ticker,
		Qty:           qty,
		Side:          side,
		Type:          typ,
		TimeInForce:   tif,
		Class:         domain.OrderClassSimple,
		ExtendedHours: src.OutsideRTH,
	}

	switch typ {
	case domain.OrderTypeLimit:
		out.LimitPrice = optNumber(src.Price)
	case domain.OrderTypeStop:
		out.StopPrice = optNumber(src.AuxPrice)
	case domain.OrderTypeStopLimit:
		out.LimitPrice = optNumber(src.Price)
		out.StopPrice = optNumber(src.AuxPrice)
	case domain.OrderTypeTrailingStop:
		out.TrailPrice = optNumber(src.AuxPrice)
	}

	return out, nil
}

// ---------------------------------------------------------------------------
// PositionMapper
// ---------------------------------------------------------------------------

// PositionMapper translates a portfolio position record. The gateway
// reports a signed position size; the sign becomes the domain side and
// the magnitude the quantity. Cost basis is derived from average cost,
// and per-day fields the gateway does not report stay nil.
type PositionMapper struct{}

// Map converts one gateway position record.
func (PositionMapper) Map(src positionRecord) (*domain.Position, error) {
	if src.Ticker == "" {
		return nil, mapper.Missing("position", "ticker")
	}

	signed, err := mapper.ParseFloat("position", "position", src.Position.String())
	if err != nil {
		return nil, err
	}
	if signed == 0 {
		return nil, mapper.Errorf("position", "position", "flat position for %s", src.Ticker)
	}

	side := domain.PositionSideLong
	if signed < 0 {
		side = domain.PositionSideShort
	}

	assetClass, ok := assetClasses[src.AssetClass]
	if !ok {
		return nil, mapper.Errorf("position", "assetClass", "unrecognized value %q", src.AssetClass)
	}
	exchange, ok := exchanges[src.ListingExchange]
	if !ok {
		exchange = domain.ExchangeUnknown
	}

	qty := math.Abs(signed)
	out := &domain.Position{
		Symbol:     src.Ticker,
		Qty:        qty,
		Side:       side,
		AssetID:    src.ConID.String(),
		Exchange:   exchange,
		AssetClass: assetClass,

		AvgEntryPrice: optNumber(src.AvgCost),
		CurrentPrice:  optNumber(src.MktPrice),
		MarketValue:   optNumber(src.MktValue),
		UnrealizedPL:  optNumber(src.UnrealizedPnL),
	}
	if out.AvgEntryPrice != nil {
		out.CostBasis = mapper.Ptr(*out.AvgEntryPrice * qty)
	}

	return out, nil
}
