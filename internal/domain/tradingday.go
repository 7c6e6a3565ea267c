package domain

import "time"

// TradingDay is one trading session, described by its full open and
// close timestamps.
type TradingDay struct {
	Open  time.Time
	Close time.Time
}

// Date returns the calendar date of the session, taken from the open
// timestamp. The zero time is returned when the session is unset.
func (d TradingDay) Date() time.Time {
	if d.Open.IsZero() {
		return time.Time{}
	}
	y, m, day := d.Open.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, d.Open.Location())
}
