// Package kelly sizes binary bets with fractional Kelly Criterion staking.
package kelly

import "github.com/shopspring/decimal"

// BetReason explains why a Sizer did or did not recommend a stake.
type BetReason string

const (
	ReasonPositiveEdge      BetReason = "positive_edge"
	ReasonInsufficientEdge  BetReason = "insufficient_edge"
	ReasonNoEdge            BetReason = "no_edge"
	ReasonNegativeEV        BetReason = "negative_ev"
	ReasonInvalidInputs     BetReason = "invalid_inputs"
)

// BetDecision is the result of sizing one candidate bet.
type BetDecision struct {
	ShouldBet         bool
	Stake             decimal.Decimal
	FullKellyFraction decimal.Decimal
	ExpectedValue     decimal.Decimal
	Reason            BetReason
}

// Sizer computes fractional-Kelly stakes for binary-outcome bets.
type Sizer struct {
	Fraction decimal.Decimal // fraction of full Kelly to take, e.g. 0.25 for quarter Kelly
	MaxBet   decimal.Decimal // absolute stake cap
	MinEdge  decimal.Decimal // minimum (winProb - price) required to bet at all
}

// DefaultSizer is quarter-Kelly with a $1000 cap and a 1% minimum edge.
func DefaultSizer() Sizer {
	return Sizer{
		Fraction: decimal.NewFromFloat(0.25),
		MaxBet:   decimal.NewFromInt(1000),
		MinEdge:  decimal.NewFromFloat(0.01),
	}
}

// New creates a Sizer with explicit parameters.
func New(fraction, maxBet, minEdge decimal.Decimal) Sizer {
	return Sizer{Fraction: fraction, MaxBet: maxBet, MinEdge: minEdge}
}

// Size computes the recommended stake for a bet at price (cost per share,
// also the market's implied probability) given an estimated win probability
// and the current bankroll to size against.
//
// f* = (p - c) / (1 - c), scaled by Fraction, capped at MaxBet, gated by
// MinEdge on the simple edge measure (p - c).
func (s Sizer) Size(winProb, price, bankroll decimal.Decimal) BetDecision {
	zero := decimal.Zero
	one := decimal.NewFromInt(1)

	if winProb.LessThan(zero) || winProb.GreaterThan(one) ||
		price.LessThanOrEqual(zero) || price.GreaterThanOrEqual(one) ||
		bankroll.LessThanOrEqual(zero) {
		return BetDecision{Reason: ReasonInvalidInputs}
	}

	winPayout := one.Sub(price)
	loseCost := price
	ev := winProb.Mul(winPayout).Sub(one.Sub(winProb).Mul(loseCost))

	if winProb.Equal(price) {
		return BetDecision{Reason: ReasonNoEdge}
	}
	if ev.LessThanOrEqual(zero) {
		return BetDecision{ExpectedValue: ev, Reason: ReasonNegativeEV}
	}

	edge := winProb.Sub(price)
	if edge.LessThan(s.MinEdge) {
		return BetDecision{ExpectedValue: ev, Reason: ReasonInsufficientEdge}
	}

	fullKelly := winProb.Sub(price).Div(one.Sub(price))
	fractionalKelly := fullKelly.Mul(s.Fraction)

	stake := bankroll.Mul(fractionalKelly)
	if stake.GreaterThan(s.MaxBet) {
		stake = s.MaxBet
	}
	if stake.LessThan(zero) {
		stake = zero
	}

	return BetDecision{
		ShouldBet:         stake.GreaterThan(zero),
		Stake:             stake,
		FullKellyFraction: fullKelly,
		ExpectedValue:     ev,
		Reason:            ReasonPositiveEdge,
	}
}

// ExpectedValue computes EV per dollar wagered without sizing a stake.
func ExpectedValue(winProb, price decimal.Decimal) decimal.Decimal {
	zero := decimal.Zero
	one := decimal.NewFromInt(1)
	if price.LessThanOrEqual(zero) || price.GreaterThanOrEqual(one) {
		return zero
	}
	return winProb.Mul(one.Sub(price)).Sub(one.Sub(winProb).Mul(price))
}
