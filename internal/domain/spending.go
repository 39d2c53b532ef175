package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Timeframe is the recurring window over which a spending limit's accumulator
// is measured before resetting.
type Timeframe string

const (
	TimeframeDaily   Timeframe = "DAILY"
	TimeframeWeekly  Timeframe = "WEEKLY"
	TimeframeMonthly Timeframe = "MONTHLY"
	TimeframeYearly  Timeframe = "YEARLY"
)

// Valid reports whether t is one of the known timeframes.
func (t Timeframe) Valid() bool {
	switch t {
	case TimeframeDaily, TimeframeWeekly, TimeframeMonthly, TimeframeYearly:
		return true
	}
	return false
}

// SpendingLimit caps debits over a recurring period. CurrentSpending resets to
// zero and PeriodStart advances whenever "now" has crossed into a new period.
type SpendingLimit struct {
	Limit           decimal.Decimal `json:"limit"`
	Timeframe       Timeframe       `json:"timeframe"`
	CurrentSpending decimal.Decimal `json:"current_spending"`
	PeriodStart     time.Time       `json:"period_start"`
}

// Validate checks SpendingLimit field constraints.
func (s *SpendingLimit) Validate() error {
	if s.Limit.IsNegative() {
		return &ErrValidation{Field: "limit", Message: "must not be negative"}
	}
	if !s.Timeframe.Valid() {
		return &ErrValidation{Field: "timeframe", Message: "must be one of DAILY, WEEKLY, MONTHLY, YEARLY"}
	}
	return nil
}

// nextBoundary returns the end of the period starting at t. Daily and weekly
// windows are fixed-length; monthly and yearly follow the calendar.
func (s *SpendingLimit) nextBoundary(t time.Time) time.Time {
	switch s.Timeframe {
	case TimeframeDaily:
		return t.AddDate(0, 0, 1)
	case TimeframeWeekly:
		return t.AddDate(0, 0, 7)
	case TimeframeMonthly:
		return t.AddDate(0, 1, 0)
	default: // yearly
		return t.AddDate(1, 0, 0)
	}
}

// Normalize rolls the period window forward until it contains now. The window
// advances in whole timeframe steps, keeping its original phase, and the
// accumulator resets on the first step. Returns true if a rollover happened.
func (s *SpendingLimit) Normalize(now time.Time) bool {
	rolled := false
	for boundary := s.nextBoundary(s.PeriodStart); !now.Before(boundary); boundary = s.nextBoundary(s.PeriodStart) {
		s.PeriodStart = boundary
		s.CurrentSpending = decimal.Zero
		rolled = true
	}
	return rolled
}

// SpendingDecision is the outcome of evaluating a prospective debit.
type SpendingDecision struct {
	Admitted bool
	// Updated carries the post-decision component state: normalized period,
	// and, when admitted, the accumulator bumped by the debit amount. Nil when
	// the account has no spending limit.
	Updated *SpendingLimit
}

// EvaluateSpending decides whether a prospective debit of amount is admitted
// under limit at the given instant. A nil limit means no cap: every debit is
// admitted without tracking. The caller owns making the returned component
// state durable atomically with the balance debit; evaluation itself never
// touches balances.
func EvaluateSpending(limit *SpendingLimit, amount decimal.Decimal, now time.Time) SpendingDecision {
	if limit == nil {
		return SpendingDecision{Admitted: true}
	}

	updated := *limit
	updated.Normalize(now)

	next := updated.CurrentSpending.Add(amount)
	if next.GreaterThan(updated.Limit) {
		return SpendingDecision{Admitted: false, Updated: &updated}
	}

	updated.CurrentSpending = next
	return SpendingDecision{Admitted: true, Updated: &updated}
}
