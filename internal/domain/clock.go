package domain

import "time"

// Clock is a snapshot of the market session at one point in time.
// Callers without a successful fetch hold a nil *Clock rather than a
// zero-valued one.
type Clock struct {
	Timestamp time.Time
	IsOpen    bool
	NextOpen  time.Time
	NextClose time.Time
}
