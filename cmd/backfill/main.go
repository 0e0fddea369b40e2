// Command backfill bulk-loads historical bars into the price history so the
// quant engine has enough rows to train on before the live feeder has been
// running for long.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"paperQuantBot/config"
	"paperQuantBot/internal/adapters/binanceclient"
	"paperQuantBot/internal/adapters/logger"
	"paperQuantBot/internal/adapters/sqlite"
	"paperQuantBot/internal/adapters/yahoo"
	"paperQuantBot/internal/domain"
	"paperQuantBot/internal/ports"
)

func main() {
	days := flag.Int("days", 7, "how many days of history to load")
	flag.Parse()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	// 2. Initialize Logger
	appLogger := logger.NewStdLogger(cfg.LogLevel)

	// 3. Initialize Repository
	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath:         cfg.DBPath,
		InitialBalance: cfg.InitialBalance,
		Logger:         appLogger,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize database repository: %v", err)
	}
	defer repo.Close()

	// 4. Initialize Quote Source
	var quotes ports.QuoteSource
	switch cfg.QuoteSource {
	case "binance":
		quotes, err = binanceclient.New(binanceclient.Config{
			APIKey:     cfg.BinanceAPIKey,
			SecretKey:  cfg.BinanceSecretKey,
			UseTestnet: cfg.BinanceTestnet,
			Logger:     appLogger,
		})
	default:
		quotes, err = yahoo.New(yahoo.Config{Logger: appLogger})
	}
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize quote source: %v", err)
	}

	ctx := context.Background()
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -*days)

	appLogger.Info(ctx, "Fetching historical bars", map[string]interface{}{
		"symbol": cfg.Symbol, "start": start, "end": end,
	})
	bars, err := quotes.HistoricalBars(ctx, cfg.Symbol, start, end)
	if err != nil {
		appLogger.Error(ctx, err, "Error fetching historical bars")
		log.Fatalf("Error fetching historical bars: %v", err)
	}
	appLogger.Info(ctx, "Fetched historical bars", map[string]interface{}{"count": len(bars)})

	stored := 0
	for _, bar := range bars {
		sample := &domain.PriceSample{
			Timestamp: bar.Timestamp,
			Symbol:    cfg.Symbol,
			Price:     bar.Close,
			Volume:    bar.Volume,
		}
		if err := repo.AppendPriceSample(ctx, sample); err != nil {
			appLogger.Error(ctx, err, "Error storing price sample", map[string]interface{}{"timestamp": bar.Timestamp})
			log.Fatalf("Error storing price sample: %v", err)
		}
		stored++
	}
	appLogger.Info(ctx, "Backfill complete", map[string]interface{}{"stored": stored})
}
