package main

import (
	"context"
	"log" // Use standard log only for initial fatal errors before logger is set up

	"paperQuantBot/config"
	"paperQuantBot/internal/adapters/binanceclient"
	"paperQuantBot/internal/adapters/gemini"
	"paperQuantBot/internal/adapters/logger"
	"paperQuantBot/internal/adapters/signalfile"
	"paperQuantBot/internal/adapters/sqlite"
	"paperQuantBot/internal/adapters/yahoo"
	"paperQuantBot/internal/advisor"
	"paperQuantBot/internal/app"
	"paperQuantBot/internal/executor"
	"paperQuantBot/internal/ports"
	"paperQuantBot/internal/quant"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger := logger.NewStdLogger(cfg.LogLevel)
	appLogger.Info(context.Background(), "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})

	// 3. Initialize Repository (Database Adapter)
	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath:         cfg.DBPath,
		InitialBalance: cfg.InitialBalance,
		Logger:         appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize database repository")
		log.Fatalf("FATAL: Failed to initialize database repository: %v", err) // Also log to stderr
	}
	defer func() {
		if err := repo.Close(); err != nil {
			appLogger.Error(context.Background(), err, "Error closing database repository")
		}
	}()
	appLogger.Info(context.Background(), "Database repository initialized")

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
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize quote source")
		log.Fatalf("FATAL: Failed to initialize quote source: %v", err)
	}
	appLogger.Info(context.Background(), "Quote source initialized", map[string]interface{}{"source": cfg.QuoteSource})

	// 5. Initialize Signal Store
	signalStore, err := signalfile.NewStore(signalfile.Config{
		Path:   cfg.SignalPath,
		Logger: appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize signal store")
		log.Fatalf("FATAL: Failed to initialize signal store: %v", err)
	}

	// 6. Initialize Advisory Model Client
	advisoryModel, err := gemini.New(gemini.Config{
		Timeout: cfg.RequestTimeout,
		Logger:  appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize advisory client")
		log.Fatalf("FATAL: Failed to initialize advisory client: %v", err)
	}

	// 7. Initialize the Quant Engine
	quantEngine, err := quant.New(quant.Config{
		Symbol:          cfg.Symbol,
		RSIWindow:       cfg.RSIWindow,
		SMAWindow:       cfg.SMAWindow,
		HistoryRows:     cfg.PriceHistoryRows,
		MinTrainingRows: cfg.MinTrainingRows,
		BoostRounds:     cfg.BoostRounds,
		TreeMaxDepth:    cfg.TreeMaxDepth,
		LearningRate:    cfg.LearningRate,
		WarmupPeriod:    cfg.WarmupPeriod,
	}, appLogger, repo, quotes, signalStore)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize quant engine")
		log.Fatalf("FATAL: Failed to initialize quant engine: %v", err)
	}
	appLogger.Info(context.Background(), "Quant engine initialized")

	// 8. Initialize the Risk Advisor
	riskAdvisor, err := advisor.New(advisor.Config{
		APIKeys:               cfg.GeminiAPIKeys,
		Models:                cfg.GeminiModels,
		MaxCapitalLossPercent: cfg.MaxCapitalLossPercent,
		MaxTradesPerWindow:    cfg.MaxTradesPer10Min,
		RecentTradeLimit:      cfg.AdvisorTradeWindow,
		InitialBalance:        cfg.InitialBalance,
	}, appLogger, advisoryModel, repo, repo, repo)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize risk advisor")
		log.Fatalf("FATAL: Failed to initialize risk advisor: %v", err)
	}
	appLogger.Info(context.Background(), "Risk advisor initialized")

	// 9. Initialize the Execution Engine
	execEngine, err := executor.New(executor.Config{Symbol: cfg.Symbol}, appLogger, repo, signalStore, repo, repo, repo)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize execution engine")
		log.Fatalf("FATAL: Failed to initialize execution engine: %v", err)
	}
	appLogger.Info(context.Background(), "Execution engine initialized")

	// 10. Initialize and Start the Application Service
	svc, err := app.NewService(cfg, appLogger, quotes, repo, quantEngine, riskAdvisor, execEngine)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize service")
		log.Fatalf("FATAL: Failed to initialize service: %v", err)
	}

	if err := svc.Start(context.Background()); err != nil {
		appLogger.Error(context.Background(), err, "Service exited with error")
		log.Fatalf("FATAL: Service exited with error: %v", err)
	}

	appLogger.Info(context.Background(), "Application finished gracefully.")
}
