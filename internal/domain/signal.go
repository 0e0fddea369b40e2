package domain

import "time"

// Signal is the single current trade recommendation produced by the quant
// engine. Timestamp identifies the price bar the decision was computed from,
// not the wall-clock emission time; the execution engine compares it against
// the portfolio's last traded signal time to avoid acting on the same
// decision twice.
type Signal struct {
	Symbol     string    `json:"symbol"`
	Timestamp  time.Time `json:"timestamp"`
	Decision   OrderSide `json:"signal"`
	Confidence float64   `json:"confidence"` // Probability of the predicted class, in [0,1]
	RSI        float64   `json:"rsi"`        // Oscillator value at the decision bar
}
