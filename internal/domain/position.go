package domain

import "fmt"

// PositionSide is the direction of an open position.
type PositionSide string

const (
	PositionSideLong  PositionSide = "long"
	PositionSideShort PositionSide = "short"
)

// ParsePositionSide looks up a position side by value.
func ParsePositionSide(s string) (PositionSide, error) {
	switch v := PositionSide(s); v {
	case PositionSideLong, PositionSideShort:
		return v, nil
	}
	return "", fmt.Errorf("unknown position side %q", s)
}

// Exchange identifies the listing exchange of a position's asset.
// ExchangeUnknown is the explicit value for vendors (or account types)
// that do not surface exchange metadata.
type Exchange string

const (
	ExchangeNYSE    Exchange = "NYSE"
	ExchangeNASDAQ  Exchange = "NASDAQ"
	ExchangeAMEX    Exchange = "AMEX"
	ExchangeARCA    Exchange = "ARCA"
	ExchangeBATS    Exchange = "BATS"
	ExchangeOTC     Exchange = "OTC"
	ExchangeUnknown Exchange = "UNKNOWN"
)

// ParseExchange looks up an exchange by value. Absence of exchange
// metadata is handled by the mappers (defaulting to ExchangeUnknown);
// a present but unrecognized value is still an error.
func ParseExchange(s string) (Exchange, error) {
	switch v := Exchange(s); v {
	case ExchangeNYSE, ExchangeNASDAQ, ExchangeAMEX, ExchangeARCA,
		ExchangeBATS, ExchangeOTC, ExchangeUnknown:
		return v, nil
	}
	return "", fmt.Errorf("unknown exchange %q", s)
}

// AssetClass identifies the asset category of a position.
type AssetClass string

const (
	AssetClassUSEquity AssetClass = "us_equity"
	AssetClassUSOption AssetClass = "us_option"
	AssetClassCrypto   AssetClass = "crypto"
)

// ParseAssetClass looks up an asset class by value.
func ParseAssetClass(s string) (AssetClass, error) {
	switch v := AssetClass(s); v {
	case AssetClassUSEquity, AssetClassUSOption, AssetClassCrypto:
		return v, nil
	}
	return "", fmt.Errorf("unknown asset class %q", s)
}

// Position is an open position. Symbol, Qty, and Side are always set;
// the valuation and P&L fields are pointers because not every broker or
// account type surfaces them, and absence must be distinguishable from
// zero.
type Position struct {
	Symbol     string
	Qty        float64
	Side       PositionSide
	AssetID    string
	Exchange   Exchange
	AssetClass AssetClass

	AssetMarginable *bool

	AvgEntryPrice          *float64
	MarketValue            *float64
	CostBasis              *float64
	UnrealizedPL           *float64
	UnrealizedPLPC         *float64
	UnrealizedIntradayPL   *float64
	UnrealizedIntradayPLPC *float64
	CurrentPrice           *float64
	LastdayPrice           *float64
	ChangeToday            *float64
}
