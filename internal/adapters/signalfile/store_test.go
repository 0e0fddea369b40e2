package signalfile

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

type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(Config{
		Path:   filepath.Join(t.TempDir(), "trade_signal.json"),
		Logger: &mockLogger{},
	})
	require.NoError(t, err)
	return store
}

func TestStore_ReadBeforeFirstWrite(t *testing.T) {
	store := newTestStore(t)

	signal, err := store.Read(context.Background())
	require.NoError(t, err)
	assert.Nil(t, signal)
}

func TestStore_WriteReadRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	barTime := time.Date(2025, 6, 2, 10, 15, 0, 0, time.UTC)
	written := &domain.Signal{
		Symbol:     "TATASTEEL.NS",
		Timestamp:  barTime,
		Decision:   domain.Buy,
		Confidence: 0.8421,
		RSI:        63.17,
	}
	require.NoError(t, store.Write(ctx, written))

	got, err := store.Read(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.Buy, got.Decision)
	assert.True(t, got.Timestamp.Equal(barTime))
	assert.InDelta(t, 0.8421, got.Confidence, 1e-9)
	assert.InDelta(t, 63.17, got.RSI, 1e-9)
}

func TestStore_OverwriteKeepsLatest(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := &domain.Signal{Decision: domain.Buy, Timestamp: time.Now().UTC()}
	second := &domain.Signal{Decision: domain.Sell, Timestamp: time.Now().UTC().Add(time.Minute)}
	require.NoError(t, store.Write(ctx, first))
	require.NoError(t, store.Write(ctx, second))

	got, err := store.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Sell, got.Decision)
}

func TestStore_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(Config{Path: filepath.Join(dir, "trade_signal.json"), Logger: &mockLogger{}})
	require.NoError(t, err)

	require.NoError(t, store.Write(context.Background(), &domain.Signal{Decision: domain.Buy}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "trade_signal.json", entries[0].Name())
}
