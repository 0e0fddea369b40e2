package indicators

import (
	"fmt"
	"math"
)

// RSI implements the Relative Strength Index momentum oscillator using
// Wilder's smoothing: a running average gain and running average loss, each
// updated with the (period-1)/period recurrence. Output is bounded [0, 100].
type RSI struct {
	period int
}

// NewRSI creates a new RSI indicator instance.
func NewRSI(period int) (*RSI, error) {
	if period <= 0 {
		return nil, fmt.Errorf("RSI period must be positive, got %d", period)
	}
	return &RSI{period: period}, nil
}

// Name returns the name of the indicator.
func (r *RSI) Name() string { return "RSI" }

// RequiredDataPoints returns the minimum number of rows before the first
// non-NaN value appears.
func (r *RSI) RequiredDataPoints() int { return r.period + 1 }

// Series computes the RSI value for every row. The first period rows have no
// value and carry NaN.
func (r *RSI) Series(closes []float64) []float64 {
	out := make([]float64, len(closes))
	for i := range out {
		out[i] = math.NaN()
	}
	if len(closes) <= r.period {
		return out
	}

	// Initial averages over the first 'period' changes
	var avgGain, avgLoss float64
	for i := 1; i <= r.period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(r.period)
	avgLoss /= float64(r.period)
	out[r.period] = rsiValue(avgGain, avgLoss)

	// Wilder's smoothing for the remaining rows
	for i := r.period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain = (avgGain*float64(r.period-1) + change) / float64(r.period)
			avgLoss = (avgLoss * float64(r.period-1)) / float64(r.period)
		} else {
			avgGain = (avgGain * float64(r.period-1)) / float64(r.period)
			avgLoss = (avgLoss*float64(r.period-1) - change) / float64(r.period)
		}
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

// rsiValue converts smoothed averages into a bounded RSI value.
func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50 // Neutral if no change
		}
		return 100 // Max RSI if only gains
	}

	rs := avgGain / avgLoss
	rsi := 100 - (100 / (1 + rs))

	// Ensure RSI is within bounds
	if rsi > 100 {
		rsi = 100
	} else if rsi < 0 {
		rsi = 0
	}
	return rsi
}
