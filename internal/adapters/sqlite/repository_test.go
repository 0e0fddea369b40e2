package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"paperQuantBot/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

// setupTestDB creates a temporary database for testing
func setupTestDB(t *testing.T) (*Repository, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "paper-quant-bot-test-*")
	require.NoError(t, err)

	dbPath := filepath.Join(tmpDir, "test.db")
	repo, err := NewRepository(Config{
		DBPath:         dbPath,
		InitialBalance: 100000,
		Logger:         &mockLogger{},
	})
	require.NoError(t, err)

	cleanup := func() {
		repo.Close()
		os.RemoveAll(tmpDir)
	}

	return repo, cleanup
}

func TestRepository_SeedsPortfolioAndGate(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	p, err := repo.Portfolio(ctx)
	require.NoError(t, err)
	assert.Equal(t, 100000.0, p.Balance)
	assert.Equal(t, int64(0), p.PositionQty)
	assert.False(t, p.HasTraded())

	g, err := repo.Gate(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.GateContinue, g.Action)
}

func TestRepository_PriceHistoryOrderingAndLimit(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	base := time.Date(2025, 6, 2, 9, 15, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		err := repo.AppendPriceSample(ctx, &domain.PriceSample{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Symbol:    "TATASTEEL.NS",
			Price:     100 + float64(i),
			Volume:    1000,
		})
		require.NoError(t, err)
	}
	// A different symbol must not leak into the history
	require.NoError(t, repo.AppendPriceSample(ctx, &domain.PriceSample{
		Timestamp: base, Symbol: "INFY.NS", Price: 1500, Volume: 10,
	}))

	history, err := repo.PriceHistory(ctx, "TATASTEEL.NS", 3)
	require.NoError(t, err)
	require.Len(t, history, 3)
	// Oldest to newest, and only the 3 most recent samples
	assert.Equal(t, 102.0, history[0].Price)
	assert.Equal(t, 104.0, history[2].Price)
	assert.True(t, history[0].Timestamp.Before(history[2].Timestamp))

	latest, err := repo.LatestPrice(ctx, "TATASTEEL.NS")
	require.NoError(t, err)
	assert.Equal(t, 104.0, latest.Price)
}

func TestRepository_LatestPriceNoData(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	latest, err := repo.LatestPrice(context.Background(), "TATASTEEL.NS")
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestRepository_PortfolioRoundTrip(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	sigTime := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	err := repo.UpdatePortfolio(ctx, &domain.Portfolio{
		Balance:        0,
		PositionQty:    1000,
		LastSignalTime: sigTime,
	})
	require.NoError(t, err)

	p, err := repo.Portfolio(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.0, p.Balance)
	assert.Equal(t, int64(1000), p.PositionQty)
	assert.True(t, p.LastSignalTime.Equal(sigTime))
}

func TestRepository_TradeLog(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 4; i++ {
		id, err := repo.AppendTrade(ctx, &domain.TradeLogEntry{
			Timestamp: now.Add(time.Duration(i) * time.Minute),
			Action:    domain.Buy,
			Price:     100,
			Quantity:  10,
			Balance:   99000 - float64(i)*1000,
		})
		require.NoError(t, err)
		assert.Positive(t, id)
	}

	trades, err := repo.RecentTrades(ctx, 2)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	// Oldest to newest within the window
	assert.True(t, trades[0].Timestamp.Before(trades[1].Timestamp))
	assert.Equal(t, domain.Buy, trades[0].Action)

	count, err := repo.CountTradesSince(ctx, now.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestRepository_GateRoundTrip(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	err := repo.UpdateGate(ctx, &domain.ManagerGate{
		Action:    domain.GatePause,
		Reason:    "High Risk",
		Timestamp: time.Now().UTC(),
	})
	require.NoError(t, err)

	g, err := repo.Gate(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.GatePause, g.Action)
	assert.Equal(t, "High Risk", g.Reason)
	assert.False(t, g.Allows())
}

func TestRepository_CommitTradeIsAtomic(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	sigTime := time.Date(2025, 6, 2, 10, 30, 0, 0, time.UTC)
	entry := &domain.TradeLogEntry{
		Timestamp: time.Now().UTC(),
		Action:    domain.Buy,
		Price:     100,
		Quantity:  1000,
		Balance:   0,
	}
	err := repo.CommitTrade(ctx, entry, &domain.Portfolio{
		Balance:        0,
		PositionQty:    1000,
		LastSignalTime: sigTime,
	})
	require.NoError(t, err)
	assert.Positive(t, entry.ID)

	p, err := repo.Portfolio(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), p.PositionQty)
	assert.True(t, p.LastSignalTime.Equal(sigTime))

	trades, err := repo.RecentTrades(ctx, 10)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, int64(1000), trades[0].Quantity)
}

func TestRepository_Reset(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, repo.AppendPriceSample(ctx, &domain.PriceSample{
		Timestamp: time.Now().UTC(), Symbol: "TATASTEEL.NS", Price: 100, Volume: 1,
	}))
	require.NoError(t, repo.UpdatePortfolio(ctx, &domain.Portfolio{Balance: 5, PositionQty: 7}))

	require.NoError(t, repo.Reset(ctx, 250000))

	p, err := repo.Portfolio(ctx)
	require.NoError(t, err)
	assert.Equal(t, 250000.0, p.Balance)
	assert.Equal(t, int64(0), p.PositionQty)

	history, err := repo.PriceHistory(ctx, "TATASTEEL.NS", 10)
	require.NoError(t, err)
	assert.Empty(t, history)
}
