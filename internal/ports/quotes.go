package ports

import (
	"context"
	"time"

	"paperQuantBot/internal/domain"
)

// QuoteSource defines the interface for retrieving market prices.
// This abstraction allows swapping the data vendor (Yahoo Finance for
// equities, Binance for crypto symbols) without touching the services.
type QuoteSource interface {
	// LatestQuote retrieves the most recent traded price and volume for a
	// symbol. Returns ErrQuoteUnavailable (wrapped) when the vendor has no
	// data for the symbol.
	LatestQuote(ctx context.Context, symbol string) (*domain.PriceSample, error)

	// HistoricalBars retrieves OHLCV history for a symbol between start and
	// end, ordered oldest to newest. Used to warm up the quant engine when
	// the live price history is too short.
	HistoricalBars(ctx context.Context, symbol string, start, end time.Time) ([]*domain.Bar, error)
}
