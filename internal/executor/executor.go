// Package executor turns the current signal into paper trades against the
// portfolio. Each cycle re-derives its state from a fresh snapshot of
// {portfolio, signal, gate, price}; nothing is persisted between cycles
// except what the trade itself writes.
package executor

import (
	"context"
	"fmt"
	"math"
	"time"

	"paperQuantBot/internal/domain"
	"paperQuantBot/internal/ports"
)

// State is the outcome classification of one execution cycle.
type State string

const (
	// StateIdle means no signal or no price was available.
	StateIdle State = "IDLE"
	// StateStaleSignal means the signal's bar timestamp already produced a
	// trade. This is the anti-replay guard.
	StateStaleSignal State = "STALE_SIGNAL"
	// StateGated means the risk manager gate is PAUSE.
	StateGated State = "GATED"
	// StateActing means a trade was sized and should be committed.
	StateActing State = "ACTING"
	// StateSkipped means the signal was actionable but the portfolio could
	// not support it (insufficient balance for a BUY, no position for a
	// SELL). A no-op, not an error.
	StateSkipped State = "SKIPPED"
)

// Snapshot is the consistent view of shared state one cycle operates on.
type Snapshot struct {
	Portfolio *domain.Portfolio
	Signal    *domain.Signal
	Gate      *domain.ManagerGate
	Price     float64
	Now       time.Time
}

// Outcome is the decision of one cycle. Entry and Portfolio are populated
// only for StateActing: Entry is the trade to append and Portfolio the
// post-trade record to write alongside it.
type Outcome struct {
	State     State
	Entry     *domain.TradeLogEntry
	Portfolio *domain.Portfolio
}

// DecideCycle applies the execution state machine to a snapshot. It is a
// pure function: it never touches storage, so the invariants (balance and
// position never negative, one trade per signal timestamp) are testable
// without any infrastructure.
func DecideCycle(s Snapshot) Outcome {
	if s.Signal == nil || s.Price <= 0 {
		return Outcome{State: StateIdle}
	}
	if s.Signal.Timestamp.Equal(s.Portfolio.LastSignalTime) {
		return Outcome{State: StateStaleSignal}
	}
	if !s.Gate.Allows() {
		return Outcome{State: StateGated}
	}

	switch s.Signal.Decision {
	case domain.Buy:
		if s.Portfolio.Balance <= s.Price {
			return Outcome{State: StateSkipped}
		}
		qty := int64(math.Floor(s.Portfolio.Balance / s.Price))
		cost := float64(qty) * s.Price
		newBalance := s.Portfolio.Balance - cost
		return Outcome{
			State: StateActing,
			Entry: &domain.TradeLogEntry{
				Timestamp: s.Now,
				Action:    domain.Buy,
				Price:     s.Price,
				Quantity:  qty,
				Balance:   newBalance,
			},
			Portfolio: &domain.Portfolio{
				Balance:        newBalance,
				PositionQty:    s.Portfolio.PositionQty + qty,
				LastSignalTime: s.Signal.Timestamp,
			},
		}
	case domain.Sell:
		if s.Portfolio.PositionQty <= 0 {
			return Outcome{State: StateSkipped}
		}
		revenue := float64(s.Portfolio.PositionQty) * s.Price
		newBalance := s.Portfolio.Balance + revenue
		return Outcome{
			State: StateActing,
			Entry: &domain.TradeLogEntry{
				Timestamp: s.Now,
				Action:    domain.Sell,
				Price:     s.Price,
				Quantity:  s.Portfolio.PositionQty,
				Balance:   newBalance,
			},
			Portfolio: &domain.Portfolio{
				Balance:        newBalance,
				PositionQty:    0,
				LastSignalTime: s.Signal.Timestamp,
			},
		}
	default:
		return Outcome{State: StateSkipped}
	}
}

// Config holds the execution engine parameters.
type Config struct {
	Symbol string
}

// Engine runs the execution state machine against the shared stores.
type Engine struct {
	cfg       Config
	logger    ports.Logger
	market    ports.MarketDataRepository
	signals   ports.SignalStore
	portfolio ports.PortfolioRepository
	gate      ports.GateRepository
	exec      ports.TradeExecutionRepository

	now func() time.Time
}

// New creates an execution engine instance.
func New(cfg Config, logger ports.Logger, market ports.MarketDataRepository, signals ports.SignalStore, portfolio ports.PortfolioRepository, gate ports.GateRepository, exec ports.TradeExecutionRepository) (*Engine, error) {
	if logger == nil || market == nil || signals == nil || portfolio == nil || gate == nil || exec == nil {
		return nil, fmt.Errorf("missing required dependencies for execution engine")
	}
	if cfg.Symbol == "" {
		return nil, fmt.Errorf("symbol is required: %w", ports.ErrConfigurationError)
	}
	return &Engine{
		cfg:       cfg,
		logger:    logger,
		market:    market,
		signals:   signals,
		portfolio: portfolio,
		gate:      gate,
		exec:      exec,
		now:       time.Now,
	}, nil
}

// Cycle reads a snapshot, decides, and commits the trade if one was sized.
// The trade log append and the portfolio update are committed together; a
// commit failure leaves the cycle to be retried on the next tick.
func (e *Engine) Cycle(ctx context.Context) error {
	portfolio, err := e.portfolio.Portfolio(ctx)
	if err != nil {
		return fmt.Errorf("failed to load portfolio: %w", err)
	}
	signal, err := e.signals.Read(ctx)
	if err != nil {
		return fmt.Errorf("failed to read signal: %w", err)
	}
	gate, err := e.gate.Gate(ctx)
	if err != nil {
		return fmt.Errorf("failed to read gate: %w", err)
	}

	var price float64
	sample, err := e.market.LatestPrice(ctx, e.cfg.Symbol)
	if err != nil {
		return fmt.Errorf("failed to load latest price: %w", err)
	}
	if sample != nil {
		price = sample.Price
	}

	outcome := DecideCycle(Snapshot{
		Portfolio: portfolio,
		Signal:    signal,
		Gate:      gate,
		Price:     price,
		Now:       e.now().UTC(),
	})

	switch outcome.State {
	case StateIdle:
		e.logger.Debug(ctx, "Execution idle", map[string]interface{}{"hasSignal": signal != nil, "price": price})
	case StateStaleSignal:
		e.logger.Debug(ctx, "Signal already traded", map[string]interface{}{
			"signalTime": signal.Timestamp, "decision": signal.Decision,
		})
	case StateGated:
		e.logger.Info(ctx, "Trading paused by risk gate", map[string]interface{}{"reason": gate.Reason})
	case StateSkipped:
		e.logger.Info(ctx, "Signal skipped", map[string]interface{}{
			"decision": signal.Decision, "balance": portfolio.Balance, "position": portfolio.PositionQty,
		})
	case StateActing:
		if err := e.exec.CommitTrade(ctx, outcome.Entry, outcome.Portfolio); err != nil {
			return fmt.Errorf("failed to commit trade: %w", err)
		}
		e.logger.Info(ctx, "Trade executed", map[string]interface{}{
			"action":   outcome.Entry.Action,
			"quantity": outcome.Entry.Quantity,
			"price":    outcome.Entry.Price,
			"balance":  outcome.Portfolio.Balance,
			"position": outcome.Portfolio.PositionQty,
			"equity":   outcome.Portfolio.Equity(price),
		})
	}
	return nil
}
