package indicators

import "math"

// SeriesIndicator represents a technical indicator computed per row over a
// close-price series. Rows with insufficient history carry NaN; callers drop
// those rows before feature engineering.
type SeriesIndicator interface {
	// Series computes the indicator value for every row of the input.
	// The returned slice has the same length as closes.
	Series(closes []float64) []float64

	// RequiredDataPoints returns the minimum number of rows needed before
	// the first non-NaN value appears.
	RequiredDataPoints() int

	// Name returns the name of the indicator.
	Name() string
}

// IsWarm reports whether the value at a row is usable (not a warm-up NaN).
func IsWarm(v float64) bool {
	return !math.IsNaN(v)
}
