package domain

import "time"

// TradeLogEntry is one row of the append-only audit trail written by the
// execution engine after a successful paper trade. The risk advisor reads the
// most recent entries as its evaluation window.
type TradeLogEntry struct {
	ID        int64     // Unique identifier (assigned by the store)
	Timestamp time.Time // Execution time
	Action    OrderSide // BUY or SELL
	Price     float64   // Fill price
	Quantity  int64     // Whole units traded
	Balance   float64   // Cash balance after the trade
}
