package domain

// OrderSide represents the side of a paper order (BUY or SELL).
type OrderSide string

const (
	Buy  OrderSide = "BUY"
	Sell OrderSide = "SELL"
)

// IsValid reports whether the side is one of the known order sides.
func (s OrderSide) IsValid() bool {
	return s == Buy || s == Sell
}

// GateAction represents the risk manager's verdict on further trading.
type GateAction string

const (
	GateContinue GateAction = "CONTINUE"
	GatePause    GateAction = "PAUSE"
)

// IsValid reports whether the action is one of the known gate actions.
func (a GateAction) IsValid() bool {
	return a == GateContinue || a == GatePause
}
