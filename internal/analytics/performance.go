package analytics

import (
	"sort"
	"time"

	"paperQuantBot/internal/domain"
)

// PerformanceMetrics summarises the realized outcome of the trade log. The
// strategy is all-in/all-out, so every SELL closes the position opened by the
// preceding BUY and each such pair is one round trip.
type PerformanceMetrics struct {
	TotalTrades   int     // Individual BUY/SELL entries
	RoundTrips    int     // Completed BUY->SELL pairs
	WinningTrips  int
	LosingTrips   int
	WinRate       float64 // Fraction of round trips with positive PnL
	RealizedPnL   float64
	AverageWin    float64
	AverageLoss   float64
	LargestWin    float64
	LargestLoss   float64
	OpenPosition  bool    // A BUY without a matching SELL
	LastTradeTime time.Time
}

// AnalyzeTrades computes realized performance from the trade audit trail.
// Entries may arrive in any order; they are sorted by execution time first.
func AnalyzeTrades(entries []*domain.TradeLogEntry) *PerformanceMetrics {
	metrics := &PerformanceMetrics{}
	if len(entries) == 0 {
		return metrics
	}

	sorted := make([]*domain.TradeLogEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	var openBuy *domain.TradeLogEntry
	for _, entry := range sorted {
		metrics.TotalTrades++
		metrics.LastTradeTime = entry.Timestamp

		switch entry.Action {
		case domain.Buy:
			openBuy = entry
		case domain.Sell:
			if openBuy == nil {
				continue // Orphan SELL, nothing to pair it with
			}
			pnl := (entry.Price - openBuy.Price) * float64(openBuy.Quantity)
			metrics.RoundTrips++
			metrics.RealizedPnL += pnl
			if pnl > 0 {
				metrics.WinningTrips++
				metrics.AverageWin = (metrics.AverageWin*float64(metrics.WinningTrips-1) + pnl) / float64(metrics.WinningTrips)
				if pnl > metrics.LargestWin {
					metrics.LargestWin = pnl
				}
			} else {
				metrics.LosingTrips++
				metrics.AverageLoss = (metrics.AverageLoss*float64(metrics.LosingTrips-1) + pnl) / float64(metrics.LosingTrips)
				if pnl < metrics.LargestLoss {
					metrics.LargestLoss = pnl
				}
			}
			openBuy = nil
		}
	}

	metrics.OpenPosition = openBuy != nil
	if metrics.RoundTrips > 0 {
		metrics.WinRate = float64(metrics.WinningTrips) / float64(metrics.RoundTrips)
	}
	return metrics
}

// CountSince returns how many entries were executed at or after the cutoff.
// The risk advisor uses this to report trading frequency over a trailing
// window.
func CountSince(entries []*domain.TradeLogEntry, cutoff time.Time) int {
	count := 0
	for _, entry := range entries {
		if !entry.Timestamp.Before(cutoff) {
			count++
		}
	}
	return count
}
