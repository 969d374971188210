package api

import (
	"time"
)

// DashboardEvent is the wrapper for every event pushed to connected
// dashboard clients over the WebSocket.
type DashboardEvent struct {
	Type      string      `json:"type"` // "snapshot", "fill", "rejected", "settled", "kill"
	Timestamp time.Time   `json:"timestamp"`
	Coin      string      `json:"coin,omitempty"`
	Data      interface{} `json:"data"`
}

// FillEvent reports a successful order fill from either executor.
type FillEvent struct {
	OrderID string  `json:"order_id"`
	Coin    string  `json:"coin"`
	Side    string  `json:"side"` // "yes" or "no"
	Price   float64 `json:"price"`
	Size    float64 `json:"size"`
	Stake   float64 `json:"stake"`
	Source  string  `json:"source"` // "directional" or "cross_market"
}

// RejectedEvent reports an order the venue refused.
type RejectedEvent struct {
	Coin   string `json:"coin"`
	Source string `json:"source"`
	Reason string `json:"reason"`
}

// SettledEvent reports a trade's settlement outcome.
type SettledEvent struct {
	TradeID string  `json:"trade_id"`
	Coin    string  `json:"coin"`
	Outcome string  `json:"outcome"` // "win", "loss", "push"
	PnL     float64 `json:"pnl"`
}

// KillEvent is emitted when the risk manager's kill switch activates.
type KillEvent struct {
	Reason string    `json:"reason"`
	Until  time.Time `json:"until"`
}

// NewFillEvent creates a fill event.
func NewFillEvent(orderID, coin, side string, price, size, stake float64, source string) FillEvent {
	return FillEvent{
		OrderID: orderID,
		Coin:    coin,
		Side:    side,
		Price:   price,
		Size:    size,
		Stake:   stake,
		Source:  source,
	}
}

// NewSettledEvent creates a settlement event.
func NewSettledEvent(tradeID, coin, outcome string, pnl float64) SettledEvent {
	return SettledEvent{TradeID: tradeID, Coin: coin, Outcome: outcome, PnL: pnl}
}

// NewKillEvent creates a kill-switch event.
func NewKillEvent(reason string, until time.Time) KillEvent {
	return KillEvent{Reason: reason, Until: until}
}
