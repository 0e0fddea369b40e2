package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"paperQuantBot/internal/domain"
	"paperQuantBot/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Repository implements the shared state store contracts (market data,
// portfolio, trade log, manager gate) using SQLite.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath         string
	InitialBalance float64
	Logger         ports.Logger
}

// NewRepository creates a new SQLite repository instance and initializes the
// schema, seeding the single-row portfolio and gate records when absent.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/paper_trading.db" // Default path
	}
	if cfg.InitialBalance <= 0 {
		cfg.InitialBalance = 100000
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// Open database connection
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000") // WAL mode for better concurrency
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close() // Close the connection if ping fails
		err = fmt.Errorf("failed to ping database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// Set connection pool settings (important for SQLite)
	db.SetMaxOpenConns(1) // SQLite handles concurrency internally, but Go driver benefits from limiting connections
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cfg.Logger.Info(context.Background(), "SQLite database connection established", map[string]interface{}{"path": dbPath})

	repo := &Repository{db: db, logger: cfg.Logger}

	if err := repo.initializeSchema(context.Background(), cfg.InitialBalance); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	cfg.Logger.Info(context.Background(), "Database schema initialized/verified")

	return repo, nil
}

// initializeSchema creates tables if they don't exist and seeds the
// single-row portfolio and manager gate records.
func (r *Repository) initializeSchema(ctx context.Context, initialBalance float64) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS market_data (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TIMESTAMP NOT NULL,
		symbol TEXT NOT NULL,
		price REAL NOT NULL,
		volume REAL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS trade_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TIMESTAMP NOT NULL,
		action TEXT NOT NULL,
		price REAL NOT NULL,
		quantity INTEGER NOT NULL,
		balance REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS portfolio (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		balance REAL NOT NULL,
		positions INTEGER NOT NULL DEFAULT 0,
		last_signal_time TIMESTAMP DEFAULT NULL
	);

	CREATE TABLE IF NOT EXISTS manager_gate (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		action TEXT NOT NULL DEFAULT 'CONTINUE',
		reason TEXT,
		timestamp TIMESTAMP
	);
	-- Indexes for the hot read paths
	CREATE INDEX IF NOT EXISTS idx_market_data_symbol_id ON market_data (symbol, id);
	CREATE INDEX IF NOT EXISTS idx_trade_logs_timestamp ON trade_logs (timestamp);
	`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}

	// Seed the single-row records only when missing; restarts must not reset state.
	const seedPortfolio = `INSERT OR IGNORE INTO portfolio (id, balance, positions) VALUES (1, ?, 0)`
	if _, err := r.db.ExecContext(ctx, seedPortfolio, initialBalance); err != nil {
		return fmt.Errorf("failed to seed portfolio record: %w", err)
	}
	const seedGate = `INSERT OR IGNORE INTO manager_gate (id, action, timestamp) VALUES (1, 'CONTINUE', ?)`
	if _, err := r.db.ExecContext(ctx, seedGate, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to seed manager gate record: %w", err)
	}
	return nil
}

// Reset drops all rows and re-seeds the portfolio and gate records.
// Used by the resetdb command; the running services never call it.
func (r *Repository) Reset(ctx context.Context, initialBalance float64) error {
	const wipe = `
	DELETE FROM market_data;
	DELETE FROM trade_logs;
	DELETE FROM portfolio;
	DELETE FROM manager_gate;
	`
	if _, err := r.db.ExecContext(ctx, wipe); err != nil {
		return fmt.Errorf("failed to wipe tables: %w", err)
	}
	return r.initializeSchema(ctx, initialBalance)
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Info(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

// --- MarketDataRepository Implementation ---

// AppendPriceSample stores a new observed price for a symbol.
func (r *Repository) AppendPriceSample(ctx context.Context, sample *domain.PriceSample) error {
	const query = `INSERT INTO market_data (timestamp, symbol, price, volume) VALUES (?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query, sample.Timestamp, sample.Symbol, sample.Price, sample.Volume)
	if err != nil {
		return fmt.Errorf("failed to insert price sample for symbol %s: %w", sample.Symbol, err)
	}
	if id, err := result.LastInsertId(); err == nil {
		sample.ID = id
	}
	r.logger.Debug(ctx, "Price sample appended", map[string]interface{}{"symbol": sample.Symbol, "price": sample.Price})
	return nil
}

// PriceHistory retrieves the most recent samples for a symbol, oldest to newest.
func (r *Repository) PriceHistory(ctx context.Context, symbol string, limit int) ([]*domain.PriceSample, error) {
	// Newest-first for the LIMIT, re-ordered oldest-first for the caller.
	const query = `
	SELECT id, timestamp, symbol, price, volume FROM (
		SELECT id, timestamp, symbol, price, volume
		FROM market_data WHERE symbol = ? ORDER BY id DESC LIMIT ?
	) ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query price history for symbol %s: %w", symbol, err)
	}
	defer rows.Close()

	samples := make([]*domain.PriceSample, 0)
	for rows.Next() {
		s := &domain.PriceSample{}
		if err := rows.Scan(&s.ID, &s.Timestamp, &s.Symbol, &s.Price, &s.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan price sample: %w", err)
		}
		samples = append(samples, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating price sample rows: %w", err)
	}
	return samples, nil
}

// LatestPrice retrieves the single most recent sample for a symbol.
func (r *Repository) LatestPrice(ctx context.Context, symbol string) (*domain.PriceSample, error) {
	const query = `
	SELECT id, timestamp, symbol, price, volume
	FROM market_data WHERE symbol = ? ORDER BY id DESC LIMIT 1`

	s := &domain.PriceSample{}
	err := r.db.QueryRowContext(ctx, query, symbol).Scan(&s.ID, &s.Timestamp, &s.Symbol, &s.Price, &s.Volume)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // No data yet, not an error
		}
		return nil, fmt.Errorf("failed to query latest price for symbol %s: %w", symbol, err)
	}
	return s, nil
}

// --- PortfolioRepository Implementation ---

// Portfolio retrieves the single live portfolio record.
func (r *Repository) Portfolio(ctx context.Context) (*domain.Portfolio, error) {
	const query = `SELECT balance, positions, last_signal_time FROM portfolio WHERE id = 1`

	p := &domain.Portfolio{}
	var lastSignal sql.NullTime
	err := r.db.QueryRowContext(ctx, query).Scan(&p.Balance, &p.PositionQty, &lastSignal)
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolio: %w", err)
	}
	if lastSignal.Valid {
		p.LastSignalTime = lastSignal.Time
	}
	return p, nil
}

// UpdatePortfolio overwrites the portfolio record.
func (r *Repository) UpdatePortfolio(ctx context.Context, p *domain.Portfolio) error {
	const query = `UPDATE portfolio SET balance = ?, positions = ?, last_signal_time = ? WHERE id = 1`

	result, err := r.db.ExecContext(ctx, query, p.Balance, p.PositionQty, nullableTime(p.LastSignalTime))
	if err != nil {
		return fmt.Errorf("failed to update portfolio: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for portfolio update: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("portfolio record missing: %w", ports.ErrNotFound)
	}
	r.logger.Debug(ctx, "Portfolio updated", map[string]interface{}{"balance": p.Balance, "positions": p.PositionQty})
	return nil
}

// --- TradeLogRepository Implementation ---

// AppendTrade stores a new trade log entry and returns its assigned ID.
func (r *Repository) AppendTrade(ctx context.Context, entry *domain.TradeLogEntry) (int64, error) {
	const query = `INSERT INTO trade_logs (timestamp, action, price, quantity, balance) VALUES (?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query, entry.Timestamp, entry.Action, entry.Price, entry.Quantity, entry.Balance)
	if err != nil {
		return 0, fmt.Errorf("failed to insert trade log entry: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for trade log entry: %w", err)
	}
	entry.ID = id
	r.logger.Debug(ctx, "Trade log entry appended", map[string]interface{}{"tradeID": id, "action": entry.Action})
	return id, nil
}

// RecentTrades retrieves the most recent entries, oldest to newest.
func (r *Repository) RecentTrades(ctx context.Context, limit int) ([]*domain.TradeLogEntry, error) {
	const query = `
	SELECT id, timestamp, action, price, quantity, balance FROM (
		SELECT id, timestamp, action, price, quantity, balance
		FROM trade_logs ORDER BY id DESC LIMIT ?
	) ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent trades: %w", err)
	}
	defer rows.Close()

	trades := make([]*domain.TradeLogEntry, 0)
	for rows.Next() {
		entry := &domain.TradeLogEntry{}
		var action string
		if err := rows.Scan(&entry.ID, &entry.Timestamp, &action, &entry.Price, &entry.Quantity, &entry.Balance); err != nil {
			return nil, fmt.Errorf("failed to scan trade log entry: %w", err)
		}
		entry.Action = domain.OrderSide(action)
		trades = append(trades, entry)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trade log rows: %w", err)
	}
	return trades, nil
}

// CountTradesSince counts trades executed at or after the given time.
func (r *Repository) CountTradesSince(ctx context.Context, since time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM trade_logs WHERE timestamp >= ?`
	var count int
	if err := r.db.QueryRowContext(ctx, query, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count trades since %s: %w", since, err)
	}
	return count, nil
}

// --- GateRepository Implementation ---

// Gate retrieves the current manager gate record.
func (r *Repository) Gate(ctx context.Context) (*domain.ManagerGate, error) {
	const query = `SELECT action, reason, timestamp FROM manager_gate WHERE id = 1`

	g := &domain.ManagerGate{}
	var action string
	var reason sql.NullString
	var ts sql.NullTime
	err := r.db.QueryRowContext(ctx, query).Scan(&action, &reason, &ts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Missing gate record never blocks trading.
			return &domain.ManagerGate{Action: domain.GateContinue}, nil
		}
		return nil, fmt.Errorf("failed to query manager gate: %w", err)
	}
	g.Action = domain.GateAction(action)
	if reason.Valid {
		g.Reason = reason.String
	}
	if ts.Valid {
		g.Timestamp = ts.Time
	}
	return g, nil
}

// UpdateGate overwrites the gate record.
func (r *Repository) UpdateGate(ctx context.Context, gate *domain.ManagerGate) error {
	const query = `UPDATE manager_gate SET action = ?, reason = ?, timestamp = ? WHERE id = 1`

	result, err := r.db.ExecContext(ctx, query, gate.Action, gate.Reason, gate.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to update manager gate: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for gate update: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("manager gate record missing: %w", ports.ErrNotFound)
	}
	r.logger.Debug(ctx, "Manager gate updated", map[string]interface{}{"action": gate.Action, "reason": gate.Reason})
	return nil
}

// --- TradeExecutionRepository Implementation ---

// CommitTrade appends the trade log entry and overwrites the portfolio in a
// single transaction, so a crash cannot leave a logged trade without its
// portfolio mutation.
func (r *Repository) CommitTrade(ctx context.Context, entry *domain.TradeLogEntry, p *domain.Portfolio) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin trade transaction: %w", err)
	}
	defer tx.Rollback() // No-op after a successful commit

	const insertTrade = `INSERT INTO trade_logs (timestamp, action, price, quantity, balance) VALUES (?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, insertTrade, entry.Timestamp, entry.Action, entry.Price, entry.Quantity, entry.Balance)
	if err != nil {
		return fmt.Errorf("failed to insert trade log entry in transaction: %w", err)
	}
	if id, err := result.LastInsertId(); err == nil {
		entry.ID = id
	}

	const updatePortfolio = `UPDATE portfolio SET balance = ?, positions = ?, last_signal_time = ? WHERE id = 1`
	if _, err := tx.ExecContext(ctx, updatePortfolio, p.Balance, p.PositionQty, nullableTime(p.LastSignalTime)); err != nil {
		return fmt.Errorf("failed to update portfolio in transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit trade transaction: %w", err)
	}
	r.logger.Debug(ctx, "Trade committed", map[string]interface{}{
		"tradeID": entry.ID, "action": entry.Action, "quantity": entry.Quantity, "balance": p.Balance,
	})
	return nil
}

// nullableTime converts a zero time into a SQL NULL.
func nullableTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
