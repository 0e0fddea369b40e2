package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"paperQuantBot/config"
	"paperQuantBot/internal/advisor"
	"paperQuantBot/internal/executor"
	"paperQuantBot/internal/ports"
	"paperQuantBot/internal/quant"
)

// Service orchestrates the four trading loops: the market feeder, the quant
// engine, the risk advisor, and the execution engine. Each runs on its own
// ticker and coordinates with the others only through the shared stores, so
// a failing cycle in one loop never disturbs the rest.
type Service struct {
	cfg      *config.Config
	logger   ports.Logger
	quotes   ports.QuoteSource
	market   ports.MarketDataRepository
	quant    *quant.Engine
	advisor  *advisor.Advisor
	executor *executor.Engine
}

// NewService creates the application service instance.
func NewService(
	cfg *config.Config,
	logger ports.Logger,
	quotes ports.QuoteSource,
	market ports.MarketDataRepository,
	quantEngine *quant.Engine,
	riskAdvisor *advisor.Advisor,
	execEngine *executor.Engine,
) (*Service, error) {
	if cfg == nil || logger == nil || quotes == nil || market == nil || quantEngine == nil || riskAdvisor == nil || execEngine == nil {
		return nil, fmt.Errorf("missing required dependencies for Service")
	}
	return &Service{
		cfg:      cfg,
		logger:   logger,
		quotes:   quotes,
		market:   market,
		quant:    quantEngine,
		advisor:  riskAdvisor,
		executor: execEngine,
	}, nil
}

// Start runs all loops until the context is canceled or a termination signal
// arrives. It blocks until every loop has drained.
func (s *Service) Start(ctx context.Context) error {
	s.logger.Info(ctx, "Starting paper trading service", s.cfg.Summary())

	// Create a context that can be canceled by signals
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			s.logger.Info(ctx, "Received shutdown signal", map[string]interface{}{"signal": sig.String()})
			cancel()
		case <-ctx.Done():
		}
	}()

	var wg sync.WaitGroup
	s.runLoop(ctx, &wg, "market feeder", s.cfg.FeederInterval, s.feedCycle)
	s.runLoop(ctx, &wg, "quant engine", s.cfg.QuantInterval, s.quant.Cycle)
	s.runLoop(ctx, &wg, "risk advisor", s.cfg.AdvisorInterval, s.advisor.Cycle)
	s.runLoop(ctx, &wg, "execution engine", s.cfg.ExecutorInterval, s.executor.Cycle)

	wg.Wait()
	s.logger.Info(context.Background(), "All service loops stopped")
	return nil
}

// runLoop starts one polling loop. The first cycle runs immediately so a
// fresh deployment does not sit idle for a full interval; every error is
// confined to its cycle and the loop keeps running.
func (s *Service) runLoop(ctx context.Context, wg *sync.WaitGroup, name string, interval time.Duration, cycle func(context.Context) error) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.logger.Info(ctx, "Service loop started", map[string]interface{}{
			"service": name, "interval": interval.String(),
		})

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		s.runCycle(ctx, name, cycle)
		for {
			select {
			case <-ctx.Done():
				s.logger.Info(context.Background(), "Service loop stopping", map[string]interface{}{"service": name})
				return
			case <-ticker.C:
				s.runCycle(ctx, name, cycle)
			}
		}
	}()
}

func (s *Service) runCycle(ctx context.Context, name string, cycle func(context.Context) error) {
	if ctx.Err() != nil {
		return
	}
	if err := cycle(ctx); err != nil {
		s.logger.Error(ctx, err, "Cycle failed", map[string]interface{}{"service": name})
	}
}

// feedCycle fetches the latest quote and appends it to the price history.
// A vendor reporting no data for the symbol is routine (market closed, thin
// symbol) and is not treated as a cycle failure.
func (s *Service) feedCycle(ctx context.Context) error {
	sample, err := s.quotes.LatestQuote(ctx, s.cfg.Symbol)
	if err != nil {
		if errors.Is(err, ports.ErrQuoteUnavailable) {
			s.logger.Debug(ctx, "No quote available", map[string]interface{}{"symbol": s.cfg.Symbol})
			return nil
		}
		return fmt.Errorf("failed to fetch quote: %w", err)
	}

	if err := s.market.AppendPriceSample(ctx, sample); err != nil {
		return fmt.Errorf("failed to store price sample: %w", err)
	}
	s.logger.Debug(ctx, "Price sample stored", map[string]interface{}{
		"symbol": sample.Symbol, "price": sample.Price, "volume": sample.Volume,
	})
	return nil
}
