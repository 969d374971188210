package exec

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"algotrade/internal/exchange"
	"algotrade/pkg/types"
)

// LiveExecutor submits real orders to the venue through the signed REST
// client, mapping the venue's batch-order and cancel shapes onto the
// single-order Executor contract.
type LiveExecutor struct {
	client  *exchange.Client
	negRisk bool
	tick    types.TickSize
}

// NewLiveExecutor creates a live executor over an already-authenticated
// exchange client.
func NewLiveExecutor(client *exchange.Client, negRisk bool, tick types.TickSize) *LiveExecutor {
	return &LiveExecutor{client: client, negRisk: negRisk, tick: tick}
}

// PlaceOrder submits a single order. Expiration is set 60s out for FOK/FAK
// (the venue executes or kills these immediately) and 0 (no expiry) for GTC.
func (e *LiveExecutor) PlaceOrder(ctx context.Context, tokenID string, side types.Side, size, limitPrice decimal.Decimal, orderType types.OrderType) (*OrderResult, error) {
	var expiration int64
	if orderType != types.OrderTypeGTC {
		expiration = time.Now().Add(60 * time.Second).Unix()
	}

	order := types.UserOrder{
		TokenID:    tokenID,
		Price:      limitPrice,
		Size:       size,
		Side:       side,
		OrderType:  orderType,
		TickSize:   e.tick,
		Expiration: expiration,
	}

	results, err := e.client.PostOrders(ctx, []types.UserOrder{order}, e.negRisk)
	if err != nil {
		return nil, fmt.Errorf("place order for %s: %w", tokenID, err)
	}
	if len(results) != 1 {
		return nil, fmt.Errorf("place order for %s: expected 1 result, got %d", tokenID, len(results))
	}

	resp := results[0]
	if !resp.Success {
		return nil, fmt.Errorf("place order for %s: %s: %w", tokenID, resp.ErrorMsg, ErrRejected)
	}

	filled, err := decimal.NewFromString(resp.FilledSize)
	if err != nil {
		filled = decimal.Zero
	}
	avgPrice, err := decimal.NewFromString(resp.AvgPrice)
	if err != nil {
		avgPrice = limitPrice
	}

	return &OrderResult{
		OrderID:     resp.OrderID,
		TokenID:     tokenID,
		Side:        side,
		OrderType:   orderType,
		FilledSize:  filled,
		AvgPrice:    avgPrice,
		SubmittedAt: time.Now(),
	}, nil
}

// CancelOrder cancels a single resting order by ID.
func (e *LiveExecutor) CancelOrder(ctx context.Context, orderID string) error {
	result, err := e.client.CancelOrders(ctx, []string{orderID})
	if err != nil {
		return fmt.Errorf("cancel order %s: %w", orderID, err)
	}
	for _, id := range result.Canceled {
		if id == orderID {
			return nil
		}
	}
	return ErrOrderNotFound
}

// GetBalance is not exposed by the venue's order-management endpoints in
// this client; the live executor tracks no independent balance and instead
// relies on the auto-executor's own exposure accounting (risk manager) as
// the source of truth for how much capital remains committable.
func (e *LiveExecutor) GetBalance(ctx context.Context) (decimal.Decimal, error) {
	return decimal.Zero, fmt.Errorf("live executor: balance query not supported by venue order-management API")
}

// GetPositions is likewise not exposed here; open positions are tracked by
// the persistence layer from fill confirmations, not queried from the venue.
func (e *LiveExecutor) GetPositions(ctx context.Context) (map[string]decimal.Decimal, error) {
	return nil, fmt.Errorf("live executor: position query not supported by venue order-management API")
}
