package domain

// ClosedPositionError is the per-symbol failure payload a broker returns
// when a liquidation attempt is rejected.
type ClosedPositionError struct {
	Symbol        string
	Code          int
	Message       string
	AvailableQty  float64
	ExistingQty   float64
	HeldForOrders float64
}

// ClosedPosition is the outcome of one liquidation attempt. Symbol and
// HTTPStatusCode are always populated; a well-formed vendor response
// yields exactly one of Order or Error, but vendors have been observed
// to violate that, so the union is not forced — see Consistent.
type ClosedPosition struct {
	Symbol         string
	HTTPStatusCode int
	Order          *Order
	Error          *ClosedPositionError
}

// Consistent reports whether exactly one of Order and Error is
// populated. Adapters surface inconsistent vendor responses to their
// logs instead of resolving them silently.
func (cp *ClosedPosition) Consistent() bool {
	return (cp.Order != nil) != (cp.Error != nil)
}
