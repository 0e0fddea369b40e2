// Package advisor asks an external language model for a CONTINUE/PAUSE risk
// verdict over the recent trade history and publishes it as the manager gate.
// The remote endpoint is treated as unreliable and rate limited, so the
// advisor owns a rotation pool of (credential, model) pairs and fails open to
// CONTINUE when the pool is exhausted.
package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"paperQuantBot/internal/analytics"
	"paperQuantBot/internal/domain"
	"paperQuantBot/internal/ports"
)

// jsonObjectPattern extracts the first flat JSON object from a free-form
// model response. Tolerant of surrounding prose and code fences.
var jsonObjectPattern = regexp.MustCompile(`\{[^}]+\}`)

// Config holds the risk advisor parameters.
type Config struct {
	APIKeys               []string
	Models                []string
	MaxCapitalLossPercent float64       // Threshold communicated to the model
	MaxTradesPerWindow    int           // Threshold communicated to the model
	TradeWindow           time.Duration // Trailing window for the frequency threshold
	RecentTradeLimit      int           // Trade log entries included in the prompt
	InitialBalance        float64
}

// Advisor evaluates trading risk through a remote model and writes the gate.
// The rotation indices live on the struct so separate instances never
// interfere with each other's pool position.
type Advisor struct {
	cfg       Config
	logger    ports.Logger
	model     ports.AdvisoryModel
	trades    ports.TradeLogRepository
	portfolio ports.PortfolioRepository
	gate      ports.GateRepository

	keyIdx   int
	modelIdx int

	now func() time.Time
}

// New creates a risk advisor instance.
func New(cfg Config, logger ports.Logger, model ports.AdvisoryModel, trades ports.TradeLogRepository, portfolio ports.PortfolioRepository, gate ports.GateRepository) (*Advisor, error) {
	if logger == nil || model == nil || trades == nil || portfolio == nil || gate == nil {
		return nil, fmt.Errorf("missing required dependencies for advisor")
	}
	if len(cfg.APIKeys) == 0 {
		return nil, fmt.Errorf("at least one API key is required: %w", ports.ErrConfigurationError)
	}
	if len(cfg.Models) == 0 {
		return nil, fmt.Errorf("at least one model is required: %w", ports.ErrConfigurationError)
	}
	if cfg.TradeWindow <= 0 {
		cfg.TradeWindow = 10 * time.Minute
	}
	if cfg.RecentTradeLimit <= 0 {
		cfg.RecentTradeLimit = 10
	}

	return &Advisor{
		cfg:       cfg,
		logger:    logger,
		model:     model,
		trades:    trades,
		portfolio: portfolio,
		gate:      gate,
		now:       time.Now,
	}, nil
}

// Cycle runs one full advisory pass: load recent trades and portfolio,
// evaluate, and overwrite the gate record.
func (a *Advisor) Cycle(ctx context.Context) error {
	trades, err := a.trades.RecentTrades(ctx, a.cfg.RecentTradeLimit)
	if err != nil {
		return fmt.Errorf("failed to load recent trades: %w", err)
	}
	portfolio, err := a.portfolio.Portfolio(ctx)
	if err != nil {
		return fmt.Errorf("failed to load portfolio: %w", err)
	}

	action, reason := a.Evaluate(ctx, trades, portfolio)

	gate := &domain.ManagerGate{Action: action, Reason: reason, Timestamp: a.now().UTC()}
	if err := a.gate.UpdateGate(ctx, gate); err != nil {
		return fmt.Errorf("failed to write gate: %w", err)
	}
	a.logger.Info(ctx, "Gate updated", map[string]interface{}{"action": action, "reason": reason})
	return nil
}

// Evaluate asks the advisory model for a verdict over the recent trades.
// It always terminates with a defined (action, reason) pair: endpoint
// failures rotate through the pool, a full sweep without a successful call
// fails open to CONTINUE, and a malformed response falls back to CONTINUE
// without a retry.
func (a *Advisor) Evaluate(ctx context.Context, trades []*domain.TradeLogEntry, portfolio *domain.Portfolio) (domain.GateAction, string) {
	if len(trades) == 0 {
		return domain.GateContinue, "no trades"
	}

	prompt := a.buildPrompt(trades, portfolio)
	attempts := len(a.cfg.APIKeys) * len(a.cfg.Models)

	for i := 0; i < attempts; i++ {
		apiKey := a.cfg.APIKeys[a.keyIdx]
		model := a.cfg.Models[a.modelIdx]

		text, err := a.model.Generate(ctx, apiKey, model, prompt)
		if err == nil {
			return parseVerdict(text)
		}

		switch {
		case errors.Is(err, ports.ErrModelUnavailable):
			a.logger.Warn(ctx, "Advisory model unavailable, rotating model", map[string]interface{}{
				"model": model, "error": err.Error(),
			})
			a.nextModel()
		case errors.Is(err, ports.ErrRateLimited):
			a.logger.Warn(ctx, "Advisory endpoint rate limited", map[string]interface{}{
				"model": model, "keyIndex": a.keyIdx, "error": err.Error(),
			})
			if a.modelIdx < len(a.cfg.Models)-1 {
				a.nextModel()
			} else if a.keyIdx < len(a.cfg.APIKeys)-1 {
				a.nextKey()
			} else {
				return domain.GateContinue, "all endpoints exhausted"
			}
		default:
			a.logger.Warn(ctx, "Advisory call failed, rotating model", map[string]interface{}{
				"model": model, "error": err.Error(),
			})
			a.nextModel()
		}
	}

	return domain.GateContinue, "all endpoints exhausted"
}

// nextModel advances to the next model under the current credential.
func (a *Advisor) nextModel() {
	a.modelIdx = (a.modelIdx + 1) % len(a.cfg.Models)
}

// nextKey advances to the next credential and restarts the model list.
func (a *Advisor) nextKey() {
	a.keyIdx = (a.keyIdx + 1) % len(a.cfg.APIKeys)
	a.modelIdx = 0
}

// buildPrompt renders the evaluation request: raw trade lines, portfolio
// state, the policy thresholds the model is asked to enforce, and a realized
// performance summary for context.
func (a *Advisor) buildPrompt(trades []*domain.TradeLogEntry, portfolio *domain.Portfolio) string {
	var sb strings.Builder
	sb.WriteString("You are a Risk Manager. Review these trades:\n\n")
	for _, t := range trades {
		fmt.Fprintf(&sb, "%s - %s %d @ %.2f\n", t.Timestamp.Format(time.RFC3339), t.Action, t.Quantity, t.Price)
	}

	metrics := analytics.AnalyzeTrades(trades)
	recent := analytics.CountSince(trades, a.now().Add(-a.cfg.TradeWindow))

	fmt.Fprintf(&sb, "\nBalance: %.2f | Positions: %d\n", portfolio.Balance, portfolio.PositionQty)
	fmt.Fprintf(&sb, "Realized PnL: %.2f over %d round trips (win rate %.0f%%)\n",
		metrics.RealizedPnL, metrics.RoundTrips, metrics.WinRate*100)
	fmt.Fprintf(&sb, "Trades in last %s: %d\n", a.cfg.TradeWindow, recent)

	fmt.Fprintf(&sb, "\nRULES:\n")
	fmt.Fprintf(&sb, "- If lost more than %.1f%% of the initial %.2f capital OR more than %d trades in %s: PAUSE\n",
		a.cfg.MaxCapitalLossPercent, a.cfg.InitialBalance, a.cfg.MaxTradesPerWindow, a.cfg.TradeWindow)
	sb.WriteString("- Otherwise: CONTINUE\n")
	sb.WriteString("- Return JSON only\n\n")
	sb.WriteString("Examples:\n")
	sb.WriteString(`{"action": "CONTINUE"}` + "\n")
	sb.WriteString(`{"action": "PAUSE", "reason": "High Risk"}` + "\n\n")
	sb.WriteString("Response:")
	return sb.String()
}

// parseVerdict extracts {action, reason} from free-form model output.
// Single quotes are rewritten to double quotes before decoding since models
// frequently emit Python-style dicts. Anything unparseable resolves to
// CONTINUE so a malformed response never causes a retry storm.
func parseVerdict(text string) (domain.GateAction, string) {
	match := jsonObjectPattern.FindString(text)
	if match == "" {
		return domain.GateContinue, "parse fallback"
	}

	var payload struct {
		Action string `json:"action"`
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal([]byte(strings.ReplaceAll(match, "'", `"`)), &payload); err != nil {
		return domain.GateContinue, "parse fallback"
	}

	action := domain.GateAction(strings.ToUpper(payload.Action))
	if !action.IsValid() {
		return domain.GateContinue, "parse fallback"
	}
	return action, payload.Reason
}
