package yahoo

import (
	"context"
	"fmt"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/quote"

	"paperQuantBot/internal/domain"
	"paperQuantBot/internal/ports"
)

// Client implements the ports.QuoteSource interface using Yahoo Finance.
// Yahoo serves the equity symbols the bot targets (e.g., NSE tickers like
// "TATASTEEL.NS") without credentials.
type Client struct {
	logger ports.Logger
}

// Config holds configuration specific to the Yahoo quote source.
type Config struct {
	Logger ports.Logger
}

// New creates a new Yahoo Finance quote source.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Yahoo client")
	}
	return &Client{logger: cfg.Logger}, nil
}

// LatestQuote retrieves the most recent traded price and volume for a symbol.
func (c *Client) LatestQuote(ctx context.Context, symbol string) (*domain.PriceSample, error) {
	op := "LatestQuote"
	q, err := quote.Get(symbol)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to fetch quote for %s: %w", op, symbol, err)
	}
	if q == nil || q.RegularMarketPrice <= 0 {
		return nil, fmt.Errorf("%s: symbol %s: %w", op, symbol, ports.ErrQuoteUnavailable)
	}

	sample := &domain.PriceSample{
		Timestamp: time.Now().UTC(),
		Symbol:    symbol,
		Price:     q.RegularMarketPrice,
		Volume:    float64(q.RegularMarketVolume),
	}
	c.logger.Debug(ctx, "Fetched quote", map[string]interface{}{"symbol": symbol, "price": sample.Price})
	return sample, nil
}

// HistoricalBars retrieves minute bars for a symbol between start and end,
// oldest to newest. Yahoo caps minute granularity at roughly seven days of
// history, which matches the quant engine's warm-up horizon.
func (c *Client) HistoricalBars(ctx context.Context, symbol string, start, end time.Time) ([]*domain.Bar, error) {
	op := "HistoricalBars"
	params := &chart.Params{
		Symbol:   symbol,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneMin,
	}

	iter := chart.Get(params)
	bars := make([]*domain.Bar, 0)
	for iter.Next() {
		b := iter.Bar()
		bars = append(bars, &domain.Bar{
			Timestamp: time.Unix(int64(b.Timestamp), 0).UTC(),
			Open:      b.Open.InexactFloat64(),
			High:      b.High.InexactFloat64(),
			Low:       b.Low.InexactFloat64(),
			Close:     b.Close.InexactFloat64(),
			Volume:    float64(b.Volume),
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("%s: failed to fetch history for %s: %w", op, symbol, err)
	}

	c.logger.Debug(ctx, "Fetched historical bars", map[string]interface{}{"symbol": symbol, "count": len(bars)})
	return bars, nil
}
