// Package domain defines the normalized, vendor-agnostic entities that
// broker adapters return to callers. Every entity is a fresh snapshot
// built by a mapper from one vendor response; none persist or mutate
// after construction.
package domain

import (
	"fmt"
	"time"
)

// AccountStatus is the lifecycle state of a brokerage account.
type AccountStatus string

const (
	AccountOnboarding       AccountStatus = "ONBOARDING"
	AccountSubmissionFailed AccountStatus = "SUBMISSION_FAILED"
	AccountSubmitted        AccountStatus = "SUBMITTED"
	AccountUpdated          AccountStatus = "ACCOUNT_UPDATED"
	AccountApprovalPending  AccountStatus = "APPROVAL_PENDING"
	AccountActive           AccountStatus = "ACTIVE"
	AccountRejected         AccountStatus = "REJECTED"
)

// ParseAccountStatus looks up an account status by its exact vendor
// name. An unrecognized status is an error, never a default: a new
// vendor state must fail the mapping rather than slip through.
func ParseAccountStatus(s string) (AccountStatus, error) {
	switch st := AccountStatus(s); st {
	case AccountOnboarding, AccountSubmissionFailed, AccountSubmitted,
		AccountUpdated, AccountApprovalPending, AccountActive, AccountRejected:
		return st, nil
	}
	return "", fmt.Errorf("unknown account status %q", s)
}

// Account is a snapshot of a brokerage account's identity, permissions,
// and balances. Monetary amounts are float64; fields that only some
// vendors (or account types) surface are pointers and stay nil when the
// vendor does not provide them.
type Account struct {
	ID            string
	AccountNumber string
	Status        AccountStatus
	Currency      string
	CreatedAt     time.Time

	Cash                  float64
	Equity                float64
	LastEquity            float64
	BuyingPower           float64
	RegTBuyingPower       float64
	DaytradingBuyingPower float64
	InitialMargin         float64
	MaintenanceMargin     float64
	LastMaintenanceMargin float64
	LongMarketValue       float64
	ShortMarketValue      float64
	PortfolioValue        float64
	Multiplier            float64
	SMA                   float64
	DaytradeCount         int

	// Not every broker surfaces these.
	AccruedFees              *float64
	NonMarginableBuyingPower *float64
	PendingTransferIn        *float64

	PatternDayTrader     bool
	ShortingEnabled      bool
	AccountBlocked       bool
	TradingBlocked       bool
	TransfersBlocked     bool
	TradeSuspendedByUser bool
}
