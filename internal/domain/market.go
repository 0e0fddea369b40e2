package domain

import "time"

// PriceSample is a single observed market price for a symbol.
// Samples are append-only; the feeder writes them and the quant engine reads
// the most recent window as a time series.
type PriceSample struct {
	ID        int64     // Unique identifier (assigned by the store)
	Timestamp time.Time // Observation time
	Symbol    string    // Trading symbol (e.g., "TATASTEEL.NS")
	Price     float64   // Last traded price
	Volume    float64   // Traded volume at observation
}

// Bar represents one OHLCV candle of price history.
// Live samples carry a single composited price, so a bar built from a sample
// has Open = High = Low = Close; bars from a historical backfill carry the
// real range.
type Bar struct {
	Timestamp time.Time // Start time of the bar
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// BarFromSample converts a live price sample into a flat bar.
func BarFromSample(s *PriceSample) *Bar {
	return &Bar{
		Timestamp: s.Timestamp,
		Open:      s.Price,
		High:      s.Price,
		Low:       s.Price,
		Close:     s.Price,
		Volume:    s.Volume,
	}
}
