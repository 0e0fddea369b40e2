// Command resetdb wipes the paper trading store back to its initial state:
// market data, trade logs, portfolio, and gate. Requires typed confirmation
// unless -force is given.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"paperQuantBot/config"
	"paperQuantBot/internal/adapters/logger"
	"paperQuantBot/internal/adapters/sqlite"
)

func main() {
	force := flag.Bool("force", false, "skip the confirmation prompt")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	appLogger := logger.NewStdLogger(cfg.LogLevel)

	fmt.Println("WARNING: this deletes all market data, trade logs, portfolio state, and the risk gate.")
	if !*force {
		fmt.Print("Type 'RESET' to confirm: ")
		line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		if strings.TrimSpace(line) != "RESET" {
			fmt.Println("Reset aborted.")
			return
		}
	}

	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath:         cfg.DBPath,
		InitialBalance: cfg.InitialBalance,
		Logger:         appLogger,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to open database: %v", err)
	}
	defer repo.Close()

	ctx := context.Background()
	if err := repo.Reset(ctx, cfg.InitialBalance); err != nil {
		appLogger.Error(ctx, err, "Database reset failed")
		log.Fatalf("FATAL: Database reset failed: %v", err)
	}

	// Drop the signal record too so the executor cannot act on a decision
	// computed from the old history.
	if err := os.Remove(cfg.SignalPath); err != nil && !os.IsNotExist(err) {
		appLogger.Warn(ctx, "Could not remove signal file", map[string]interface{}{
			"path": cfg.SignalPath, "error": err.Error(),
		})
	}

	portfolio, err := repo.Portfolio(ctx)
	if err != nil {
		log.Fatalf("FATAL: Failed to verify reset: %v", err)
	}
	fmt.Printf("Database reset. Balance: %.2f | Positions: %d\n", portfolio.Balance, portfolio.PositionQty)
}
