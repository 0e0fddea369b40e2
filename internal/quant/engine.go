// Package quant turns stored price history into a forward-looking trade
// signal: indicator features over the close series, binary next-bar-up
// labels, and a gradient-boosted tree classifier retrained from scratch
// each cycle.
package quant

import (
	"context"
	"fmt"
	"sort"
	"time"

	"paperQuantBot/internal/domain"
	"paperQuantBot/internal/ports"
	"paperQuantBot/internal/quant/gbdt"
	"paperQuantBot/internal/quant/indicators"
)

// minLabeledRows is the training guard: a model is never fit on fewer
// labeled rows than this.
const minLabeledRows = 50

// Config holds the quant engine parameters.
type Config struct {
	Symbol          string
	RSIWindow       int
	SMAWindow       int
	HistoryRows     int           // Live samples loaded per cycle
	MinTrainingRows int           // Below this, historical warm-up kicks in
	BoostRounds     int
	TreeMaxDepth    int
	LearningRate    float64
	WarmupPeriod    time.Duration // Horizon of the historical backfill
}

// Engine produces trade signals from price history.
type Engine struct {
	cfg     Config
	logger  ports.Logger
	market  ports.MarketDataRepository
	quotes  ports.QuoteSource
	signals ports.SignalStore
	rsi     *indicators.RSI
	sma     *indicators.SMA
}

// New creates a quant engine instance.
func New(cfg Config, logger ports.Logger, market ports.MarketDataRepository, quotes ports.QuoteSource, signals ports.SignalStore) (*Engine, error) {
	if logger == nil || market == nil || quotes == nil || signals == nil {
		return nil, fmt.Errorf("missing required dependencies for quant engine")
	}
	if cfg.Symbol == "" {
		return nil, fmt.Errorf("symbol is required: %w", ports.ErrConfigurationError)
	}
	if cfg.HistoryRows <= 0 {
		cfg.HistoryRows = 500
	}
	if cfg.WarmupPeriod <= 0 {
		cfg.WarmupPeriod = 7 * 24 * time.Hour
	}

	rsi, err := indicators.NewRSI(cfg.RSIWindow)
	if err != nil {
		return nil, fmt.Errorf("invalid RSI window: %w", err)
	}
	sma, err := indicators.NewSMA(cfg.SMAWindow)
	if err != nil {
		return nil, fmt.Errorf("invalid SMA window: %w", err)
	}

	return &Engine{
		cfg:     cfg,
		logger:  logger,
		market:  market,
		quotes:  quotes,
		signals: signals,
		rsi:     rsi,
		sma:     sma,
	}, nil
}

// Cycle runs one full signal production pass: load live history, produce a
// signal, and overwrite the signal record. A nil signal (insufficient data)
// leaves the previous record in place and is not an error.
func (e *Engine) Cycle(ctx context.Context) error {
	samples, err := e.market.PriceHistory(ctx, e.cfg.Symbol, e.cfg.HistoryRows)
	if err != nil {
		return fmt.Errorf("failed to load price history: %w", err)
	}

	signal, err := e.ProduceSignal(ctx, samples)
	if err != nil {
		return err
	}
	if signal == nil {
		e.logger.Info(ctx, "No signal this cycle", map[string]interface{}{"liveSamples": len(samples)})
		return nil
	}

	if err := e.signals.Write(ctx, signal); err != nil {
		return fmt.Errorf("failed to write signal: %w", err)
	}
	e.logger.Info(ctx, "Signal emitted", map[string]interface{}{
		"decision":   signal.Decision,
		"confidence": signal.Confidence,
		"rsi":        signal.RSI,
		"barTime":    signal.Timestamp,
	})
	return nil
}

// ProduceSignal converts an ordered live price series into a trade signal.
// Returns nil, nil when the data is insufficient for a trustworthy model,
// which is distinct from an error.
func (e *Engine) ProduceSignal(ctx context.Context, samples []*domain.PriceSample) (*domain.Signal, error) {
	bars := barsFromSamples(samples)
	bars = e.warmup(ctx, bars)
	if len(bars) == 0 {
		return nil, nil
	}

	rows := e.buildFeatureRows(bars)
	// The final row has no "next" close, so it is the inference row and the
	// rest are the training set.
	labeled := len(rows) - 1
	if labeled < minLabeledRows {
		e.logger.Debug(ctx, "Insufficient labeled rows for training", map[string]interface{}{
			"labeled": labeled, "required": minLabeledRows,
		})
		return nil, nil
	}

	features := make([][]float64, labeled)
	labels := make([]int, labeled)
	for i := 0; i < labeled; i++ {
		features[i] = rows[i].features
		labels[i] = rows[i].label
	}

	model, err := gbdt.Train(features, labels, gbdt.Config{
		Rounds:       e.cfg.BoostRounds,
		MaxDepth:     e.cfg.TreeMaxDepth,
		LearningRate: e.cfg.LearningRate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to train classifier: %w", err)
	}

	latest := rows[len(rows)-1]
	probUp := model.PredictProba(latest.features)

	decision := domain.Sell
	confidence := 1 - probUp
	if probUp >= 0.5 {
		decision = domain.Buy
		confidence = probUp
	}

	return &domain.Signal{
		Symbol:     e.cfg.Symbol,
		Timestamp:  latest.timestamp,
		Decision:   decision,
		Confidence: confidence,
		RSI:        latest.rsi,
	}, nil
}

// featureRow is one engineered row: the model's feature vector plus the bar
// metadata the signal carries.
type featureRow struct {
	timestamp time.Time
	rsi       float64
	features  []float64 // [RSI, SMA, Close, High, Low, Volume]
	label     int       // 1 if the next close is strictly greater
}

// buildFeatureRows computes the indicator series and drops rows lacking the
// history either indicator needs.
func (e *Engine) buildFeatureRows(bars []*domain.Bar) []featureRow {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	rsiSeries := e.rsi.Series(closes)
	smaSeries := e.sma.Series(closes)

	rows := make([]featureRow, 0, len(bars))
	for i, b := range bars {
		if !indicators.IsWarm(rsiSeries[i]) || !indicators.IsWarm(smaSeries[i]) {
			continue
		}
		row := featureRow{
			timestamp: b.Timestamp,
			rsi:       rsiSeries[i],
			features:  []float64{rsiSeries[i], smaSeries[i], b.Close, b.High, b.Low, b.Volume},
		}
		if i+1 < len(bars) && bars[i+1].Close > b.Close {
			row.label = 1
		}
		rows = append(rows, row)
	}
	return rows
}

// warmup backfills the series from the historical source when the live
// history is too short. Backfill failures are tolerated: the live series is
// returned unchanged and the training guard decides downstream.
func (e *Engine) warmup(ctx context.Context, live []*domain.Bar) []*domain.Bar {
	if len(live) >= e.cfg.MinTrainingRows {
		return live
	}

	end := time.Now().UTC()
	start := end.Add(-e.cfg.WarmupPeriod)
	e.logger.Info(ctx, "Warming up from historical source", map[string]interface{}{
		"liveBars": len(live), "required": e.cfg.MinTrainingRows,
	})

	hist, err := e.quotes.HistoricalBars(ctx, e.cfg.Symbol, start, end)
	if err != nil {
		e.logger.Warn(ctx, "Historical warm-up failed, continuing with live data", map[string]interface{}{"error": err.Error()})
		return live
	}
	if len(hist) == 0 {
		return live
	}
	return mergeBars(hist, live)
}

// barsFromSamples deduplicates by timestamp (latest occurrence wins), sorts
// ascending, and converts samples to flat bars.
func barsFromSamples(samples []*domain.PriceSample) []*domain.Bar {
	byTime := make(map[int64]*domain.PriceSample, len(samples))
	for _, s := range samples {
		byTime[s.Timestamp.UnixNano()] = s // Later occurrence overwrites
	}
	bars := make([]*domain.Bar, 0, len(byTime))
	for _, s := range byTime {
		bars = append(bars, domain.BarFromSample(s))
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Timestamp.Before(bars[j].Timestamp) })
	return bars
}

// mergeBars combines historical and live bars by timestamp; the live value
// wins on conflict.
func mergeBars(hist, live []*domain.Bar) []*domain.Bar {
	byTime := make(map[int64]*domain.Bar, len(hist)+len(live))
	for _, b := range hist {
		byTime[b.Timestamp.UnixNano()] = b
	}
	for _, b := range live {
		byTime[b.Timestamp.UnixNano()] = b
	}
	merged := make([]*domain.Bar, 0, len(byTime))
	for _, b := range byTime {
		merged = append(merged, b)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Timestamp.Before(merged[j].Timestamp) })
	return merged
}
