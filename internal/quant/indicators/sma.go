package indicators

import (
	"fmt"
	"math"
)

// SMA implements the simple moving average trend indicator: the arithmetic
// mean of the last 'period' close prices.
type SMA struct {
	period int
}

// NewSMA creates a new simple moving average indicator instance.
func NewSMA(period int) (*SMA, error) {
	if period <= 0 {
		return nil, fmt.Errorf("SMA period must be positive, got %d", period)
	}
	return &SMA{period: period}, nil
}

// Name returns the name of the indicator.
func (m *SMA) Name() string { return "SMA" }

// RequiredDataPoints returns the minimum number of rows before the first
// non-NaN value appears.
func (m *SMA) RequiredDataPoints() int { return m.period }

// Series computes the moving average for every row using a rolling sum.
// The first period-1 rows have no value and carry NaN.
func (m *SMA) Series(closes []float64) []float64 {
	out := make([]float64, len(closes))
	for i := range out {
		out[i] = math.NaN()
	}
	if len(closes) < m.period {
		return out
	}

	var sum float64
	for i, c := range closes {
		sum += c
		if i >= m.period {
			sum -= closes[i-m.period]
		}
		if i >= m.period-1 {
			out[i] = sum / float64(m.period)
		}
	}
	return out
}
