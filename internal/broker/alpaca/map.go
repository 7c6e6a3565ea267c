package alpaca

import (
	"fmt"
	"time"

	alpacaapi "github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"

	"github.com/paaliaq/tradingapi/internal/domain"
	"github.com/paaliaq/tradingapi/internal/mapper"
)

// Compile-time mapper contract checks.
var _ mapper.Mapper[*alpacaapi.Account, *domain.Account] = (*AccountMapper)(nil)
var _ mapper.Mapper[*alpacaapi.Order, *domain.Order] = (*OrderMapper)(nil)
var _ mapper.Mapper[*alpacaapi.Position, *domain.Position] = (*PositionMapper)(nil)
var _ mapper.Mapper[*alpacaapi.Clock, *domain.Clock] = (*ClockMapper)(nil)
var _ mapper.Mapper[alpacaapi.CalendarDay, domain.TradingDay] = (*TradingDayMapper)(nil)

// ---------------------------------------------------------------------------
// AccountMapper
// ---------------------------------------------------------------------------

// AccountMapper translates an Alpaca account record into the domain
// Account. Monetary decimals are coerced to float64, boolean flags pass
// through untouched, and the vendor status must match a declared
// AccountStatus member exactly — an unknown status fails the mapping.
type AccountMapper struct{}

// Map converts one vendor account snapshot.
func (AccountMapper) Map(src *alpacaapi.Account) (*domain.Account, error) {
	if src == nil {
		return nil, mapper.Missing("account", "account")
	}

	status, err := domain.ParseAccountStatus(string(src.Status))
	if err != nil {
		return nil, mapper.Errorf("account", "status", "%v", err)
	}

	return &domain.Account{
		ID:            string(src.ID),
		AccountNumber: src.AccountNumber,
		Status:        status,
		Currency:      src.Currency,
		CreatedAt:     src.CreatedAt,

		Cash:                  mapper.Float(src.Cash),
		Equity:                mapper.Float(src.Equity),
		LastEquity:            mapper.Float(src.LastEquity),
		BuyingPower:           mapper.Float(src.BuyingPower),
		RegTBuyingPower:       mapper.Float(src.RegTBuyingPower),
		DaytradingBuyingPower: mapper.Float(src.DaytradingBuyingPower),
		InitialMargin:         mapper.Float(src.InitialMargin),
		MaintenanceMargin:     mapper.Float(src.MaintenanceMargin),
		LastMaintenanceMargin: mapper.Float(src.LastMaintenanceMargin),
		LongMarketValue:       mapper.Float(src.LongMarketValue),
		ShortMarketValue:      mapper.Float(src.ShortMarketValue),
		PortfolioValue:        mapper.Float(src.PortfolioValue),
		Multiplier:            mapper.Float(src.Multiplier),
		SMA:                   mapper.Float(src.SMA),
		DaytradeCount:         int(src.DaytradeCount),

		PatternDayTrader: src.PatternDayTrader,
		// Boolean pass-through; never coerced numerically.
		ShortingEnabled:      src.ShortingEnabled,
		AccountBlocked:       src.AccountBlocked,
		TradingBlocked:       src.TradingBlocked,
		TransfersBlocked:     src.TransfersBlocked,
		TradeSuspendedByUser: src.TradeSuspendedByUser,
	}, nil
}

// ---------------------------------------------------------------------------
// OrderMapper
// ---------------------------------------------------------------------------

// OrderMapper translates an Alpaca order record into the domain Order.
// Side, type, and time-in-force are looked up by value and fail when
// unrecognized; the bracket legs are optional, and their absence yields
// nil nested orders rather than an error.
type OrderMapper struct{}

// Map converts one vendor order.
func (m OrderMapper) Map(src *alpacaapi.Order) (*domain.Order, error) {
	if src == nil {
		return nil, mapper.Missing("order", "order")
	}
	if src.Symbol == "" {
		return nil, mapper.Missing("order", "symbol")
	}

	side, err := domain.ParseOrderSide(string(src.Side))
	if err != nil {
		return nil, mapper.Errorf("order", "side", "%v", err)
	}
	typ, err := domain.ParseOrderType(string(src.Type))
	if err != nil {
		return nil, mapper.Errorf("order", "type", "%v", err)
	}
	tif, err := domain.ParseTimeInForce(string(src.TimeInForce))
	if err != nil {
		return nil, mapper.Errorf("order", "time_in_force", "%v", err)
	}
	class, err := domain.ParseOrderClass(string(src.OrderClass))
	if err != nil {
		return nil, mapper.Errorf("order", "order_class", "%v", err)
	}

	out := &domain.Order{
		ID:          src.ID,
		Symbol:      src.Symbol,
		Side:        side,
		Type:        typ,
		TimeInForce: tif,
		Class:       class,

		LimitPrice:    mapper.OptFloat(src.LimitPrice),
		StopPrice:     mapper.OptFloat(src.StopPrice),
		TrailPrice:    mapper.OptFloat(src.TrailPrice),
		TrailPercent:  mapper.OptFloat(src.TrailPercent),
		Notional:      mapper.OptFloat(src.Notional),
		ExtendedHours: src.ExtendedHours,
	}
	if src.Qty != nil {
		out.Qty = mapper.Float(*src.Qty)
	}

	// Composite orders carry their children as legs. A leg set is
	// optional vendor data: absent legs mean no nested orders, and any
	// nil leg price is carried through as nil, never defaulted.
	for i := range src.Legs {
		leg := &src.Legs[i]
		switch leg.Type {
		case alpacaapi.Limit:
			out.TakeProfit = &domain.TakeProfit{
				LimitPrice: mapper.OptFloat(leg.LimitPrice),
			}
		case alpacaapi.Stop, alpacaapi.StopLimit:
			out.StopLoss = &domain.StopLoss{
				StopPrice:  mapper.OptFloat(leg.StopPrice),
				LimitPrice: mapper.OptFloat(leg.LimitPrice),
			}
		}
	}

	return out, nil
}

// ---------------------------------------------------------------------------
// PositionMapper
// ---------------------------------------------------------------------------

// PositionMapper translates an Alpaca position record into the domain
// Position. Asset class and side are required lookups; exchange
// metadata is optional and defaults to UNKNOWN when the vendor omits
// it; every valuation field follows the one copy-if-present rule.
type PositionMapper struct{}

// Map converts one vendor position.
func (PositionMapper) Map(src *alpacaapi.Position) (*domain.Position, error) {
	if src == nil {
		return nil, mapper.Missing("position", "position")
	}
	if src.Symbol == "" {
		return nil, mapper.Missing("position", "symbol")
	}

	assetClass, err := domain.ParseAssetClass(string(src.AssetClass))
	if err != nil {
		return nil, mapper.Errorf("position", "asset_class", "%v", err)
	}
	side, err := domain.ParsePositionSide(string(src.Side))
	if err != nil {
		return nil, mapper.Errorf("position", "side", "%v", err)
	}

	// Exchange metadata is not guaranteed across account types: absent
	// means UNKNOWN, but a present unrecognized value is still fatal.
	exchange := domain.ExchangeUnknown
	if src.Exchange != "" {
		exchange, err = domain.ParseExchange(src.Exchange)
		if err != nil {
			return nil, mapper.Errorf("position", "exchange", "%v", err)
		}
	}

	return &domain.Position{
		Symbol:     src.Symbol,
		Qty:        mapper.Float(src.Qty),
		Side:       side,
		AssetID:    src.AssetID,
		Exchange:   exchange,
		AssetClass: assetClass,

		AssetMarginable: mapper.Ptr(src.AssetMarginable),

		AvgEntryPrice:          mapper.Ptr(mapper.Float(src.AvgEntryPrice)),
		MarketValue:            mapper.OptFloat(src.MarketValue),
		CostBasis:              mapper.Ptr(mapper.Float(src.CostBasis)),
		UnrealizedPL:           mapper.OptFloat(src.UnrealizedPL),
		UnrealizedPLPC:         mapper.OptFloat(src.UnrealizedPLPC),
		UnrealizedIntradayPL:   mapper.OptFloat(src.UnrealizedIntradayPL),
		UnrealizedIntradayPLPC: mapper.OptFloat(src.UnrealizedIntradayPLPC),
		CurrentPrice:           mapper.OptFloat(src.CurrentPrice),
		LastdayPrice:           mapper.OptFloat(src.LastdayPrice),
		ChangeToday:            mapper.OptFloat(src.ChangeToday),
	}, nil
}

// ---------------------------------------------------------------------------
// ClockMapper / TradingDayMapper
// ---------------------------------------------------------------------------

// ClockMapper is a field-for-field copy of the vendor clock snapshot.
type ClockMapper struct{}

// Map converts one vendor clock.
func (ClockMapper) Map(src *alpacaapi.Clock) (*domain.Clock, error) {
	if src == nil {
		return nil, mapper.Missing("clock", "clock")
	}
	return &domain.Clock{
		Timestamp: src.Timestamp,
		IsOpen:    src.IsOpen,
		NextOpen:  src.NextOpen,
		NextClose: src.NextClose,
	}, nil
}

// TradingDayMapper combines a calendar day's date with its open and
// close wall times into full timestamps in market time.
type TradingDayMapper struct {
	loc *time.Location
}

// NewTradingDayMapper loads the market timezone once for all mappings.
func NewTradingDayMapper() (*TradingDayMapper, error) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return nil, fmt.Errorf("loading market timezone: %w", err)
	}
	return &TradingDayMapper{loc: loc}, nil
}

// Map converts one vendor calendar day.
func (m *TradingDayMapper) Map(src alpacaapi.CalendarDay) (domain.TradingDay, error) {
	open, err := mapper.CombineDateTime("trading_day", "open", src.Date, src.Open, m.loc)
	if err != nil {
		return domain.TradingDay{}, err
	}
	close_, err := mapper.CombineDateTime("trading_day", "close", src.Date, src.Close, m.loc)
	if err != nil {
		return domain.TradingDay{}, err
	}
	return domain.TradingDay{Open: open, Close: close_}, nil
}
