// Package exec implements the uniform order-submission contract shared by
// the paper and live backends.
package exec

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"algotrade/pkg/types"
)

// ErrOrderNotFound is returned by CancelOrder when orderID does not
// correspond to any known open order.
var ErrOrderNotFound = errors.New("exec: order not found")

// ErrRejected is returned by PlaceOrder when the venue (or the paper fill
// simulator) refuses the order outright rather than filling any of it.
var ErrRejected = errors.New("exec: order rejected")

// OrderResult is the outcome of a successfully submitted order. A non-nil
// error from PlaceOrder means no OrderResult was produced; a returned
// OrderResult may still report FilledSize less than the requested size for
// FAK orders.
type OrderResult struct {
	OrderID     string
	TokenID     string
	Side        types.Side
	OrderType   types.OrderType
	FilledSize  decimal.Decimal
	AvgPrice    decimal.Decimal
	Fees        decimal.Decimal
	SubmittedAt time.Time
}

// Executor is the contract both the paper and live backends satisfy. The
// auto-executor depends only on this interface so arbitrage-leg submission
// is identical whether the fills are simulated or real.
type Executor interface {
	PlaceOrder(ctx context.Context, tokenID string, side types.Side, size, limitPrice decimal.Decimal, orderType types.OrderType) (*OrderResult, error)
	CancelOrder(ctx context.Context, orderID string) error
	GetBalance(ctx context.Context) (decimal.Decimal, error)
	GetPositions(ctx context.Context) (map[string]decimal.Decimal, error)
}
