package quant

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperQuantBot/internal/domain"
)

// Mock implementations
type mockLogger struct {
	debugMsgs []string
	infoMsgs  []string
	warnMsgs  []string
	errorMsgs []string
}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.debugMsgs = append(m.debugMsgs, msg)
}

func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.infoMsgs = append(m.infoMsgs, msg)
}

func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.warnMsgs = append(m.warnMsgs, msg)
}

func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	m.errorMsgs = append(m.errorMsgs, msg)
}

type mockMarketRepo struct {
	samples []*domain.PriceSample
	err     error
}

func (m *mockMarketRepo) AppendPriceSample(ctx context.Context, s *domain.PriceSample) error {
	return nil
}

func (m *mockMarketRepo) PriceHistory(ctx context.Context, symbol string, limit int) ([]*domain.PriceSample, error) {
	return m.samples, m.err
}

func (m *mockMarketRepo) LatestPrice(ctx context.Context, symbol string) (*domain.PriceSample, error) {
	if len(m.samples) == 0 {
		return nil, nil
	}
	return m.samples[len(m.samples)-1], nil
}

type mockQuoteSource struct {
	bars   []*domain.Bar
	err    error
	called bool
}

func (m *mockQuoteSource) LatestQuote(ctx context.Context, symbol string) (*domain.PriceSample, error) {
	return nil, errors.New("not implemented")
}

func (m *mockQuoteSource) HistoricalBars(ctx context.Context, symbol string, start, end time.Time) ([]*domain.Bar, error) {
	m.called = true
	return m.bars, m.err
}

type mockSignalStore struct {
	written  *domain.Signal
	writeErr error
}

func (m *mockSignalStore) Write(ctx context.Context, s *domain.Signal) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.written = s
	return nil
}

func (m *mockSignalStore) Read(ctx context.Context) (*domain.Signal, error) {
	return m.written, nil
}

func testConfig() Config {
	return Config{
		Symbol:          "TATASTEEL.NS",
		RSIWindow:       14,
		SMAWindow:       20,
		HistoryRows:     500,
		MinTrainingRows: 0, // Disable warm-up unless a test enables it
		BoostRounds:     20,
		TreeMaxDepth:    3,
		LearningRate:    0.1,
		WarmupPeriod:    7 * 24 * time.Hour,
	}
}

func newTestEngine(t *testing.T, cfg Config, market *mockMarketRepo, quotes *mockQuoteSource, store *mockSignalStore) *Engine {
	t.Helper()
	e, err := New(cfg, &mockLogger{}, market, quotes, store)
	require.NoError(t, err)
	return e
}

// trendSamples builds a deterministic price series with enough movement in
// both directions to give the classifier labels of each class.
func trendSamples(n int, start time.Time) []*domain.PriceSample {
	samples := make([]*domain.PriceSample, n)
	for i := 0; i < n; i++ {
		price := 100 + 0.05*float64(i) + 2*math.Sin(float64(i)*0.7)
		samples[i] = &domain.PriceSample{
			ID:        int64(i + 1),
			Timestamp: start.Add(time.Duration(i) * time.Minute),
			Symbol:    "TATASTEEL.NS",
			Price:     price,
			Volume:    1000 + float64(i),
		}
	}
	return samples
}

func TestNew_Validation(t *testing.T) {
	market := &mockMarketRepo{}
	quotes := &mockQuoteSource{}
	store := &mockSignalStore{}

	_, err := New(testConfig(), nil, market, quotes, store)
	assert.Error(t, err, "nil logger")

	cfg := testConfig()
	cfg.Symbol = ""
	_, err = New(cfg, &mockLogger{}, market, quotes, store)
	assert.Error(t, err, "empty symbol")

	cfg = testConfig()
	cfg.RSIWindow = 0
	_, err = New(cfg, &mockLogger{}, market, quotes, store)
	assert.Error(t, err, "invalid RSI window")
}

func TestProduceSignal_EmitsOnSufficientData(t *testing.T) {
	start := time.Date(2025, 6, 2, 9, 15, 0, 0, time.UTC)
	samples := trendSamples(300, start)
	e := newTestEngine(t, testConfig(), &mockMarketRepo{}, &mockQuoteSource{}, &mockSignalStore{})

	signal, err := e.ProduceSignal(context.Background(), samples)
	require.NoError(t, err)
	require.NotNil(t, signal)

	assert.Equal(t, "TATASTEEL.NS", signal.Symbol)
	assert.Equal(t, samples[len(samples)-1].Timestamp, signal.Timestamp,
		"signal carries the timestamp of the last bar")
	assert.Contains(t, []domain.OrderSide{domain.Buy, domain.Sell}, signal.Decision)
	assert.GreaterOrEqual(t, signal.Confidence, 0.5, "confidence is for the predicted class")
	assert.LessOrEqual(t, signal.Confidence, 1.0)
	assert.GreaterOrEqual(t, signal.RSI, 0.0)
	assert.LessOrEqual(t, signal.RSI, 100.0)
}

func TestProduceSignal_TooFewLabeledRows(t *testing.T) {
	start := time.Date(2025, 6, 2, 9, 15, 0, 0, time.UTC)
	// 60 bars lose the first 19 to indicator warm-up and one to labeling,
	// leaving 40 labeled rows, below the training guard.
	samples := trendSamples(60, start)
	e := newTestEngine(t, testConfig(), &mockMarketRepo{}, &mockQuoteSource{}, &mockSignalStore{})

	signal, err := e.ProduceSignal(context.Background(), samples)
	require.NoError(t, err, "insufficient data is not an error")
	assert.Nil(t, signal)
}

func TestProduceSignal_NoData(t *testing.T) {
	e := newTestEngine(t, testConfig(), &mockMarketRepo{}, &mockQuoteSource{}, &mockSignalStore{})

	signal, err := e.ProduceSignal(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, signal)
}

func TestProduceSignal_WarmupBackfillsHistory(t *testing.T) {
	start := time.Date(2025, 6, 2, 9, 15, 0, 0, time.UTC)
	hist := make([]*domain.Bar, 0, 300)
	for _, s := range trendSamples(300, start) {
		hist = append(hist, domain.BarFromSample(s))
	}
	quotes := &mockQuoteSource{bars: hist}

	cfg := testConfig()
	cfg.MinTrainingRows = 200
	e := newTestEngine(t, cfg, &mockMarketRepo{}, quotes, &mockSignalStore{})

	// Only a handful of live samples, well below the warm-up threshold.
	live := trendSamples(5, start.Add(299*time.Minute))
	signal, err := e.ProduceSignal(context.Background(), live)
	require.NoError(t, err)

	assert.True(t, quotes.called, "short live history must trigger the backfill")
	require.NotNil(t, signal, "merged series is long enough to train on")
}

func TestProduceSignal_WarmupFailureIsTolerated(t *testing.T) {
	quotes := &mockQuoteSource{err: errors.New("upstream down")}

	cfg := testConfig()
	cfg.MinTrainingRows = 200
	e := newTestEngine(t, cfg, &mockMarketRepo{}, quotes, &mockSignalStore{})

	live := trendSamples(5, time.Date(2025, 6, 2, 9, 15, 0, 0, time.UTC))
	signal, err := e.ProduceSignal(context.Background(), live)
	require.NoError(t, err, "backfill failure must not fail the cycle")
	assert.Nil(t, signal)
	assert.True(t, quotes.called)
}

func TestCycle_WritesSignal(t *testing.T) {
	start := time.Date(2025, 6, 2, 9, 15, 0, 0, time.UTC)
	market := &mockMarketRepo{samples: trendSamples(300, start)}
	store := &mockSignalStore{}
	e := newTestEngine(t, testConfig(), market, &mockQuoteSource{}, store)

	require.NoError(t, e.Cycle(context.Background()))
	require.NotNil(t, store.written)
	assert.Equal(t, market.samples[len(market.samples)-1].Timestamp, store.written.Timestamp)
}

func TestCycle_NoSignalLeavesStoreUntouched(t *testing.T) {
	market := &mockMarketRepo{samples: trendSamples(10, time.Date(2025, 6, 2, 9, 15, 0, 0, time.UTC))}
	store := &mockSignalStore{}
	e := newTestEngine(t, testConfig(), market, &mockQuoteSource{}, store)

	require.NoError(t, e.Cycle(context.Background()))
	assert.Nil(t, store.written)
}

func TestCycle_HistoryErrorPropagates(t *testing.T) {
	market := &mockMarketRepo{err: errors.New("db locked")}
	e := newTestEngine(t, testConfig(), market, &mockQuoteSource{}, &mockSignalStore{})

	err := e.Cycle(context.Background())
	assert.Error(t, err)
}

func TestBarsFromSamples_DeduplicatesAndSorts(t *testing.T) {
	base := time.Date(2025, 6, 2, 9, 15, 0, 0, time.UTC)
	samples := []*domain.PriceSample{
		{Timestamp: base.Add(2 * time.Minute), Price: 103},
		{Timestamp: base, Price: 100},
		{Timestamp: base.Add(time.Minute), Price: 101},
		{Timestamp: base.Add(time.Minute), Price: 102}, // Duplicate timestamp, later wins
	}

	bars := barsFromSamples(samples)
	require.Len(t, bars, 3)
	assert.Equal(t, 100.0, bars[0].Close)
	assert.Equal(t, 102.0, bars[1].Close, "latest duplicate must win")
	assert.Equal(t, 103.0, bars[2].Close)
	assert.True(t, bars[0].Timestamp.Before(bars[1].Timestamp))
	assert.True(t, bars[1].Timestamp.Before(bars[2].Timestamp))
}

func TestMergeBars_LiveWinsOnConflict(t *testing.T) {
	base := time.Date(2025, 6, 2, 9, 15, 0, 0, time.UTC)
	hist := []*domain.Bar{
		{Timestamp: base, Close: 100},
		{Timestamp: base.Add(time.Minute), Close: 101},
	}
	live := []*domain.Bar{
		{Timestamp: base.Add(time.Minute), Close: 999},
		{Timestamp: base.Add(2 * time.Minute), Close: 102},
	}

	merged := mergeBars(hist, live)
	require.Len(t, merged, 3)
	assert.Equal(t, 100.0, merged[0].Close)
	assert.Equal(t, 999.0, merged[1].Close, "live bar must shadow the historical one")
	assert.Equal(t, 102.0, merged[2].Close)
}
