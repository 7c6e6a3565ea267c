package domain

import "fmt"

// OrderSide is the direction of an order.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// ParseOrderSide looks up an order side by value.
func ParseOrderSide(s string) (OrderSide, error) {
	switch v := OrderSide(s); v {
	case OrderSideBuy, OrderSideSell:
		return v, nil
	}
	return "", fmt.Errorf("unknown order side %q", s)
}

// OrderType is the execution type of an order.
type OrderType string

const (
	OrderTypeMarket       OrderType = "market"
	OrderTypeLimit        OrderType = "limit"
	OrderTypeStop         OrderType = "stop"
	OrderTypeStopLimit    OrderType = "stop_limit"
	OrderTypeTrailingStop OrderType = "trailing_stop"
)

// ParseOrderType looks up an order type by value.
func ParseOrderType(s string) (OrderType, error) {
	switch v := OrderType(s); v {
	case OrderTypeMarket, OrderTypeLimit, OrderTypeStop,
		OrderTypeStopLimit, OrderTypeTrailingStop:
		return v, nil
	}
	return "", fmt.Errorf("unknown order type %q", s)
}

// TimeInForce is the lifetime policy of an order.
type TimeInForce string

const (
	TimeInForceDay TimeInForce = "day"
	TimeInForceGTC TimeInForce = "gtc" // good till cancelled
	TimeInForceOPG TimeInForce = "opg" // market on open
	TimeInForceCLS TimeInForce = "cls" // market on close
	TimeInForceIOC TimeInForce = "ioc" // immediate or cancel
	TimeInForceFOK TimeInForce = "fok" // fill or kill
)

// ParseTimeInForce looks up a time-in-force by value.
func ParseTimeInForce(s string) (TimeInForce, error) {
	switch v := TimeInForce(s); v {
	case TimeInForceDay, TimeInForceGTC, TimeInForceOPG,
		TimeInForceCLS, TimeInForceIOC, TimeInForceFOK:
		return v, nil
	}
	return "", fmt.Errorf("unknown time in force %q", s)
}

// OrderClass distinguishes simple orders from composite (bracket/OCO/OTO)
// orders that link a primary order to conditional child orders.
type OrderClass string

const (
	OrderClassSimple  OrderClass = "simple"
	OrderClassBracket OrderClass = "bracket"
	OrderClassOCO     OrderClass = "oco"
	OrderClassOTO     OrderClass = "oto"
)

// ParseOrderClass looks up an order class by value. The empty string is
// accepted as simple: vendors omit the class on plain orders.
func ParseOrderClass(s string) (OrderClass, error) {
	if s == "" {
		return OrderClassSimple, nil
	}
	switch v := OrderClass(s); v {
	case OrderClassSimple, OrderClassBracket, OrderClassOCO, OrderClassOTO:
		return v, nil
	}
	return "", fmt.Errorf("unknown order class %q", s)
}

// TakeProfit is the optional take-profit child of a composite order.
type TakeProfit struct {
	LimitPrice *float64
}

// StopLoss is the optional stop-loss child of a composite order.
type StopLoss struct {
	StopPrice  *float64
	LimitPrice *float64
}

// Order is a normalized order. ID is empty until the venue has accepted
// the order and assigned one. Price fields are pointers: exactly one
// pricing mode is meaningful per type (see OrderRequest validation in
// the broker package), and absent prices stay nil rather than zero.
type Order struct {
	ID          string
	Symbol      string
	Qty         float64
	Side        OrderSide
	Type        OrderType
	TimeInForce TimeInForce
	Class       OrderClass

	LimitPrice    *float64
	StopPrice     *float64
	TrailPrice    *float64
	TrailPercent  *float64
	Notional      *float64
	ExtendedHours bool

	TakeProfit *TakeProfit
	StopLoss   *StopLoss
}
