package domain

import "time"

// Portfolio is the single live paper account record.
// Invariants: Balance >= 0 and PositionQty >= 0 at all times; only the
// execution engine mutates it.
type Portfolio struct {
	Balance        float64   // Available cash
	PositionQty    int64     // Whole units held (no short selling)
	LastSignalTime time.Time // Timestamp of the signal that produced the last trade (zero if none)
}

// HasTraded reports whether any signal has ever been acted on.
func (p *Portfolio) HasTraded() bool {
	return !p.LastSignalTime.IsZero()
}

// Equity returns the marked-to-market account value at the given price.
func (p *Portfolio) Equity(price float64) float64 {
	return p.Balance + float64(p.PositionQty)*price
}
