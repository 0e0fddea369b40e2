package domain

import "time"

// ManagerGate is the single current risk verdict written by the advisor.
// PAUSE suppresses all trade mutation regardless of signal; the reason is
// free-form text from the advisory capability.
type ManagerGate struct {
	Action    GateAction
	Reason    string
	Timestamp time.Time
}

// Allows reports whether the gate permits trading. An unknown or empty
// action is treated as CONTINUE so a missing gate record never blocks the
// execution engine.
func (g *ManagerGate) Allows() bool {
	return g == nil || g.Action != GatePause
}
