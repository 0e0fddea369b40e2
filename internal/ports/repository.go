package ports

import (
	"context"
	"time"

	"paperQuantBot/internal/domain"
)

// MarketDataRepository defines the interface for the append-only price history.
type MarketDataRepository interface {
	// AppendPriceSample stores a new observed price for a symbol.
	AppendPriceSample(ctx context.Context, sample *domain.PriceSample) error
	// PriceHistory retrieves the most recent samples for a symbol,
	// ordered oldest to newest, up to a limit.
	PriceHistory(ctx context.Context, symbol string, limit int) ([]*domain.PriceSample, error)
	// LatestPrice retrieves the single most recent sample for a symbol.
	// Returns nil, nil when no samples exist yet.
	LatestPrice(ctx context.Context, symbol string) (*domain.PriceSample, error)
}

// PortfolioRepository defines the interface for the single live portfolio record.
type PortfolioRepository interface {
	// Portfolio retrieves the current portfolio state.
	Portfolio(ctx context.Context) (*domain.Portfolio, error)
	// UpdatePortfolio overwrites the portfolio record.
	UpdatePortfolio(ctx context.Context, p *domain.Portfolio) error
}

// TradeLogRepository defines the interface for the append-only trade audit trail.
type TradeLogRepository interface {
	// AppendTrade stores a new trade log entry and returns its assigned ID.
	AppendTrade(ctx context.Context, entry *domain.TradeLogEntry) (int64, error)
	// RecentTrades retrieves the most recent entries, ordered oldest to newest,
	// up to a limit.
	RecentTrades(ctx context.Context, limit int) ([]*domain.TradeLogEntry, error)
	// CountTradesSince counts trades executed at or after the given time.
	CountTradesSince(ctx context.Context, since time.Time) (int, error)
}

// GateRepository defines the interface for the single risk gate record.
type GateRepository interface {
	// Gate retrieves the current manager gate.
	Gate(ctx context.Context) (*domain.ManagerGate, error)
	// UpdateGate overwrites the gate record.
	UpdateGate(ctx context.Context, gate *domain.ManagerGate) error
}

// TradeExecutionRepository commits a completed paper trade: the trade log
// append and the portfolio update happen together so a crash cannot leave a
// logged trade without its portfolio mutation.
type TradeExecutionRepository interface {
	// CommitTrade appends the trade log entry and overwrites the portfolio
	// in a single transaction.
	CommitTrade(ctx context.Context, entry *domain.TradeLogEntry, p *domain.Portfolio) error
}
