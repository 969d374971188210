// Package types defines shared data structures used across all packages.
//
// This package is the common vocabulary for the bot — venue wire formats,
// order book snapshots, and the domain model for coins, markets, signals,
// opportunities, and trades. It has no dependencies on internal packages,
// so it can be imported by any layer.
package types

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// ————————————————————————————————————————————————————————————————————————
// Core enums
// ————————————————————————————————————————————————————————————————————————

// Side represents the direction of an order: BUY or SELL.
type Side string

const (
	BUY  Side = "BUY"
	SELL Side = "SELL"
)

// OrderType enumerates the supported order lifecycles.
type OrderType string

const (
	OrderTypeGTC OrderType = "GTC" // Good-Til-Cancelled: stays on book until filled or cancelled
	OrderTypeFOK OrderType = "FOK" // Fill-or-Kill: must fill completely immediately or be rejected
	OrderTypeFAK OrderType = "FAK" // Fill-and-Kill: fills what it can immediately, cancels the rest
)

// SignatureType identifies the signing scheme for the CTF exchange contract.
type SignatureType int

const (
	SigEOA        SignatureType = 0 // externally-owned account (standard wallet)
	SigProxy      SignatureType = 1 // Polymarket proxy / Magic wallet
	SigGnosisSafe SignatureType = 2 // Gnosis Safe multisig
)

// TickSize represents the price granularity for a market.
type TickSize string

const (
	Tick01    TickSize = "0.1"
	Tick001   TickSize = "0.01"
	Tick0001  TickSize = "0.001"
	Tick00001 TickSize = "0.0001"
)

// Decimals returns the number of decimal places for a tick size.
func (t TickSize) Decimals() int {
	switch t {
	case Tick01:
		return 1
	case Tick001:
		return 2
	case Tick0001:
		return 3
	case Tick00001:
		return 4
	default:
		return 2
	}
}

// AmountDecimals returns the rounding precision for USDC amounts at this
// tick size.
func (t TickSize) AmountDecimals() int {
	switch t {
	case Tick01:
		return 3
	case Tick001:
		return 4
	case Tick0001:
		return 5
	case Tick00001:
		return 6
	default:
		return 4
	}
}

// Coin enumerates the crypto assets tradable through 15-minute binary
// contracts.
type Coin string

const (
	BTC Coin = "BTC"
	ETH Coin = "ETH"
	SOL Coin = "SOL"
	XRP Coin = "XRP"
)

// Direction is the outcome side of a binary window: price finished at or
// above the reference (Up) or strictly below it (Down).
type Direction string

const (
	Up      Direction = "up"
	Down    Direction = "down"
	Neutral Direction = "neutral"
)

// TradeSide names the outcome token a trade was taken on, matching the
// venue's "yes"/"no" outcome labels rather than Up/Down directly — a "yes"
// trade wins when the window resolves Up, a "no" trade wins when it
// resolves Down. Kept distinct from Direction because a cross-market
// position can hold both legs at once.
type TradeSide string

const (
	TradeYes TradeSide = "yes"
	TradeNo  TradeSide = "no"
)

// TradeStatus is the lifecycle of a persisted trade record.
type TradeStatus string

const (
	StatusPending   TradeStatus = "pending"
	StatusSettled   TradeStatus = "settled"
	StatusCancelled TradeStatus = "cancelled"
)

// TradeOutcome is the settled result of a trade.
type TradeOutcome string

const (
	OutcomeWin  TradeOutcome = "win"
	OutcomeLoss TradeOutcome = "loss"
	OutcomePush TradeOutcome = "push"
)

// PositionStatus is the lifecycle of a paired arbitrage position.
type PositionStatus string

const (
	PositionBuilding PositionStatus = "building"
	PositionComplete PositionStatus = "complete"
	PositionSettling PositionStatus = "settling"
	PositionSettled  PositionStatus = "settled"
)

// ReferenceSource names where a window reference price was captured from.
type ReferenceSource string

const (
	SourcePolymarketAPI  ReferenceSource = "polymarket_api"
	SourceBinanceFirst   ReferenceSource = "binance_first_trade"
	SourceBinanceVWAP    ReferenceSource = "binance_vwap"
	SourceInterpolated   ReferenceSource = "interpolated"
	SourceManual         ReferenceSource = "manual"
)

// DefaultConfidence is the confidence grade a source carries absent any
// capture-delay downgrade.
func (s ReferenceSource) DefaultConfidence() ReferenceConfidence {
	switch s {
	case SourcePolymarketAPI, SourceBinanceFirst:
		return ConfidenceHigh
	case SourceBinanceVWAP:
		return ConfidenceMedium
	case SourceInterpolated, SourceManual:
		return ConfidenceLow
	default:
		return ConfidenceLow
	}
}

// ReferenceConfidence grades how trustworthy a captured window reference is.
type ReferenceConfidence int

const (
	ConfidenceLow ReferenceConfidence = iota
	ConfidenceMedium
	ConfidenceHigh
)

func (c ReferenceConfidence) String() string {
	switch c {
	case ConfidenceHigh:
		return "high"
	case ConfidenceMedium:
		return "medium"
	default:
		return "low"
	}
}

// ValidationRecommendation is the outcome of a signal's hypothesis test.
type ValidationRecommendation string

const (
	RecApproved            ValidationRecommendation = "approved"
	RecConditionalApproval ValidationRecommendation = "conditional_approval"
	RecNeedsMoreData       ValidationRecommendation = "needs_more_data"
	RecRejected            ValidationRecommendation = "rejected"
)

// ————————————————————————————————————————————————————————————————————————
// Venue wire formats (orders, CTF exchange signing, REST/WS payloads)
// ————————————————————————————————————————————————————————————————————————

// UserOrder is the high-level order representation produced by the executor.
// The exchange client converts it to a SignedOrder for the CLOB API.
type UserOrder struct {
	TokenID    string
	Price      decimal.Decimal // 0 to 1 for binary outcome tokens
	Size       decimal.Decimal
	Side       Side
	OrderType  OrderType
	TickSize   TickSize
	Expiration int64
	FeeRateBps int
}

// SignedOrder is the on-chain order format the CLOB API expects.
// MakerAmount and TakerAmount are in 6-decimal USDC units (1e6 = $1).
type SignedOrder struct {
	Salt          string        `json:"salt"`
	Maker         string        `json:"maker"`
	Signer        string        `json:"signer"`
	Taker         string        `json:"taker"`
	TokenID       string        `json:"tokenId"`
	MakerAmount   *big.Int      `json:"makerAmount"`
	TakerAmount   *big.Int      `json:"takerAmount"`
	Side          Side          `json:"side"`
	Expiration    string        `json:"expiration"`
	Nonce         string        `json:"nonce"`
	FeeRateBps    string        `json:"feeRateBps"`
	SignatureType SignatureType `json:"signatureType"`
	Signature     string        `json:"signature"`
}

// OrderPayload is the REST API request body for POST /orders (batch).
type OrderPayload struct {
	Order     SignedOrder `json:"order"`
	Owner     string      `json:"owner"`
	OrderType OrderType   `json:"orderType"`
}

// OrderResponse is the REST API response for each order in a batch POST.
type OrderResponse struct {
	Success     bool   `json:"success"`
	ErrorMsg    string `json:"errorMsg"`
	OrderID     string `json:"orderID"`
	Status      string `json:"status"`
	FilledSize  string `json:"filledSize"`
	AvgPrice    string `json:"avgPrice"`
}

// CancelResponse is returned by DELETE /orders, /cancel-all.
type CancelResponse struct {
	Canceled []string `json:"canceled"`
}

// PriceLevel is a single bid or ask level in the order book. Price and Size
// are strings because the CLOB API returns them as strings to preserve
// decimal precision.
type PriceLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// BookResponse is the REST response from GET /book for a single token.
type BookResponse struct {
	Market    string       `json:"market"`
	AssetID   string       `json:"asset_id"`
	Bids      []PriceLevel `json:"bids"`
	Asks      []PriceLevel `json:"asks"`
	Hash      string       `json:"hash"`
	Timestamp string       `json:"timestamp"`
}

// WSBookEvent is a full order book snapshot from the market WS channel.
type WSBookEvent struct {
	EventType string       `json:"event_type"`
	AssetID   string       `json:"asset_id"`
	Market    string       `json:"market"`
	Timestamp string       `json:"timestamp"`
	Hash      string       `json:"hash"`
	Buys      []PriceLevel `json:"buys"`
	Sells     []PriceLevel `json:"sells"`
}

// WSPriceChange is a single price level update within a price_change event.
type WSPriceChange struct {
	AssetID string `json:"asset_id"`
	Price   string `json:"price"`
	Size    string `json:"size"`
	Side    string `json:"side"`
	Hash    string `json:"hash"`
}

// WSPriceChangeEvent is an incremental order book update from the market WS.
type WSPriceChangeEvent struct {
	EventType    string          `json:"event_type"`
	Market       string          `json:"market"`
	Timestamp    string          `json:"timestamp"`
	PriceChanges []WSPriceChange `json:"price_changes"`
}

// WSTradeEvent is a trade print from the spot market's public trade stream.
type WSTradeEvent struct {
	EventType string `json:"event_type"`
	Symbol    string `json:"symbol"`
	Price     string `json:"price"`
	Size      string `json:"size"`
	Timestamp string `json:"timestamp"`
}

// WSSubscribeMsg is the initial subscription message sent when connecting to
// a WebSocket channel.
type WSSubscribeMsg struct {
	Auth     *WSAuth  `json:"auth,omitempty"`
	Type     string   `json:"type"`
	AssetIDs []string `json:"assets_ids,omitempty"`
	Symbols  []string `json:"symbols,omitempty"`
}

// WSAuth contains the L2 API credentials for authenticating a WS channel.
type WSAuth struct {
	ApiKey     string `json:"apiKey"`
	Secret     string `json:"secret"`
	Passphrase string `json:"passphrase"`
}

// WSUpdateMsg is sent to dynamically subscribe or unsubscribe from channels
// after the initial connection is established.
type WSUpdateMsg struct {
	AssetIDs  []string `json:"assets_ids,omitempty"`
	Symbols   []string `json:"symbols,omitempty"`
	Operation string   `json:"operation"`
}

// ————————————————————————————————————————————————————————————————————————
// Markets
// ————————————————————————————————————————————————————————————————————————

// OutcomeToken is one side of a binary market.
type OutcomeToken struct {
	TokenID    string
	Outcome    string // "Up" / "Down" or "Yes" / "No"
	LastPrice  decimal.Decimal
	IsWinner   bool
}

// Market is a single 15-minute binary contract.
type Market struct {
	ConditionID string
	Question    string
	Coin        Coin
	WindowStart time.Time
	WindowEnd   time.Time
	Tokens      [2]OutcomeToken // [0]=Up/Yes, [1]=Down/No
	Active      bool
	Volume24h   decimal.Decimal
	Liquidity   decimal.Decimal
}

// UpToken returns the Up/Yes outcome token.
func (m Market) UpToken() OutcomeToken { return m.Tokens[0] }

// DownToken returns the Down/No outcome token.
func (m Market) DownToken() OutcomeToken { return m.Tokens[1] }

// CoinMarketSnapshot is a point-in-time capture of one coin's current
// 15-minute market, used by the cross-market detector to compare coins.
type CoinMarketSnapshot struct {
	Coin         Coin
	ConditionID  string
	UpTokenID    string
	DownTokenID  string
	UpAsk        decimal.Decimal
	DownAsk      decimal.Decimal
	UpBidDepth   decimal.Decimal
	DownBidDepth decimal.Decimal
	SpreadBps    decimal.Decimal
	CapturedAt   time.Time
}

// ————————————————————————————————————————————————————————————————————————
// Window reference
// ————————————————————————————————————————————————————————————————————————

// WindowReference is the captured opening ("price to beat") spot price for
// a 15-minute window.
type WindowReference struct {
	Coin            Coin
	WindowStartMs   int64
	WindowEndMs     int64
	ReferencePrice  float64
	Source          ReferenceSource
	Confidence      ReferenceConfidence
	CapturedAtMs    int64
	CaptureDelayMs  int64
}

// IsActive reports whether nowMs falls within [WindowStartMs, WindowEndMs).
func (r WindowReference) IsActive(nowMs int64) bool {
	return nowMs >= r.WindowStartMs && nowMs < r.WindowEndMs
}

// TimeRemainingMs returns how many milliseconds remain until WindowEndMs,
// floored at zero.
func (r WindowReference) TimeRemainingMs(nowMs int64) int64 {
	remaining := r.WindowEndMs - nowMs
	if remaining < 0 {
		return 0
	}
	return remaining
}

// PriceChangeRatio returns (price - reference) / reference.
func (r WindowReference) PriceChangeRatio(price float64) float64 {
	if r.ReferencePrice == 0 {
		return 0
	}
	return (price - r.ReferencePrice) / r.ReferencePrice
}

// IsAboveReference reports whether price is at or above the reference.
func (r WindowReference) IsAboveReference(price float64) bool {
	return price >= r.ReferencePrice
}

// ————————————————————————————————————————————————————————————————————————
// Signals
// ————————————————————————————————————————————————————————————————————————

// SignalValue is the typed output of a single signal generator.
type SignalValue struct {
	Direction  Direction
	Strength   float64 // 0..1
	Confidence float64 // 0..1
	Metadata   map[string]string
}

// Clamp returns a copy of v with Strength and Confidence clamped to [0,1],
// and Strength forced to 0 for a Neutral direction.
func (v SignalValue) Clamp() SignalValue {
	clamp := func(f float64) float64 {
		if f < 0 {
			return 0
		}
		if f > 1 {
			return 1
		}
		return f
	}
	v.Strength = clamp(v.Strength)
	v.Confidence = clamp(v.Confidence)
	if v.Direction == Neutral {
		v.Strength = 0
	}
	return v
}

// HistoricalFundingRate is one historical sample used for z-score/percentile
// context around the current funding rate.
type HistoricalFundingRate struct {
	Rate       float64
	ZScore     float64
	Percentile float64
	Timestamp  time.Time
}

// LiquidationAggregate summarizes liquidation flow over a lookback window.
type LiquidationAggregate struct {
	LongVolumeUSD  float64
	ShortVolumeUSD float64
	NetDeltaUSD    float64
	CountLong      int
	CountShort     int
}

// NewsEvent is a single piece of news used by the sentiment signal.
type NewsEvent struct {
	Source    string
	Title     string
	Sentiment float64 // -1..1
	Urgency   float64 // 0..1
	Currencies []string
	Timestamp time.Time
}

// ————————————————————————————————————————————————————————————————————————
// Opportunities
// ————————————————————————————————————————————————————————————————————————

// DirectionalOpportunity is a single-leg directional signal.
type DirectionalOpportunity struct {
	Coin               Coin
	Direction          Direction
	EntryTokenID       string
	EntryPrice         decimal.Decimal
	SpotPrice          float64
	ReferencePrice     float64
	DeltaPct           float64
	Confidence         float64
	WinProbability      float64
	EstimatedEdge      float64
	TimeRemainingSecs  int64
	Timestamp          time.Time
}

// CrossMarketCombination names which legs a cross-market opportunity pairs.
type CrossMarketCombination string

const (
	ComboCoin1UpCoin2Down CrossMarketCombination = "coin1_up_coin2_down"
	ComboCoin1DownCoin2Up CrossMarketCombination = "coin1_down_coin2_up"
	ComboBothUp           CrossMarketCombination = "both_up"
	ComboBothDown         CrossMarketCombination = "both_down"
)

// CrossMarketOpportunity is a two-leg correlation trade across two coins.
type CrossMarketOpportunity struct {
	Coin1, Coin2       Coin
	Combination        CrossMarketCombination
	Leg1TokenID        string
	Leg2TokenID        string
	Leg1Price          decimal.Decimal
	Leg2Price          decimal.Decimal
	TotalCost          decimal.Decimal
	Spread             decimal.Decimal
	WinProbability     float64
	ExpectedValue      decimal.Decimal
	Timestamp          time.Time
}

// LatencyOpportunity is a single-leg signal fired when spot has moved but the
// venue's quote has not yet caught up.
type LatencyOpportunity struct {
	Coin              Coin
	Direction         Direction
	EntryTokenID      string
	EntryPrice        decimal.Decimal
	DeltaPct          float64
	TimeRemainingSecs int64
	Timestamp         time.Time
}

// GabagoolSignalKind names the three hybrid-detector signal kinds.
type GabagoolSignalKind string

const (
	GabagoolEntry   GabagoolSignalKind = "entry"
	GabagoolHedge   GabagoolSignalKind = "hedge"
	GabagoolScratch GabagoolSignalKind = "scratch"
)

// GabagoolSignal is emitted by the hybrid entry/hedge/scratch detector.
type GabagoolSignal struct {
	Coin      Coin
	Kind      GabagoolSignalKind
	TokenID   string
	Price     decimal.Decimal
	Timestamp time.Time
}

// ————————————————————————————————————————————————————————————————————————
// Positions and trades
// ————————————————————————————————————————————————————————————————————————

// ArbitragePosition is a paired YES+NO holding built up over one or more
// fills. Referenced by ID rather than pointer so positions can be stored
// flat without cyclic ownership.
type ArbitragePosition struct {
	ID            string
	ConditionID   string
	YesShares     decimal.Decimal
	YesCost       decimal.Decimal
	NoShares      decimal.Decimal
	NoCost        decimal.Decimal
	Status        PositionStatus
	OpenedAt      time.Time
}

// PairCost is the combined average cost of one Yes share and one No share.
func (p ArbitragePosition) PairCost() decimal.Decimal {
	if p.YesShares.IsZero() || p.NoShares.IsZero() {
		return decimal.Zero
	}
	yesAvg := p.YesCost.Div(p.YesShares)
	noAvg := p.NoCost.Div(p.NoShares)
	return yesAvg.Add(noAvg)
}

// GuaranteedPayout is the minimum of the two share counts — the payout the
// position is guaranteed to realize regardless of outcome.
func (p ArbitragePosition) GuaranteedPayout() decimal.Decimal {
	if p.YesShares.LessThan(p.NoShares) {
		return p.YesShares
	}
	return p.NoShares
}

// Imbalance is YesShares minus NoShares.
func (p ArbitragePosition) Imbalance() decimal.Decimal {
	return p.YesShares.Sub(p.NoShares)
}

// FloorPnL is the guaranteed payout minus total cost — the worst-case
// profit of a complete paired position.
func (p ArbitragePosition) FloorPnL() decimal.Decimal {
	return p.GuaranteedPayout().Sub(p.YesCost).Sub(p.NoCost)
}

// Trade is a persisted single-leg or paired directional bet.
type Trade struct {
	ID               string
	SessionID        string
	Timestamp        time.Time
	ConditionID      string
	Question         string
	Side             TradeSide
	Shares           decimal.Decimal
	EntryPrice       decimal.Decimal
	Stake            decimal.Decimal
	EstimatedProb    float64
	ExpectedValue    decimal.Decimal
	KellyFraction    float64
	SignalStrength   float64
	SignalSnapshot   string // JSON blob of signal values at decision time
	Status           TradeStatus
	Outcome          TradeOutcome
	PnL              decimal.Decimal
	Fees             decimal.Decimal
	WindowStart      time.Time
	WindowEnd        time.Time
	StartPrice       decimal.Decimal
	EndPrice         decimal.Decimal
	SettledAt        time.Time
	Live             bool // false = paper trade
}

// CrossMarketRecord is the persisted form of a filled CrossMarketOpportunity.
type CrossMarketRecord struct {
	ID            string
	SessionID     string
	Timestamp     time.Time
	Coin1, Coin2  Coin
	Combination   CrossMarketCombination
	TotalCost     decimal.Decimal
	Status        string // "open" | "settled"
	TradeResult   string // "WIN" | "DOUBLE_WIN" | "LOSE"
}

// ————————————————————————————————————————————————————————————————————————
// Validation
// ————————————————————————————————————————————————————————————————————————

// HypothesisResult is one signal's statistical test outcome.
type HypothesisResult struct {
	SignalName       string
	SampleSize       int
	BinomialPValue   float64
	WilsonLowerBound float64
	WilsonUpperBound float64
	TTestPValue      float64
	MeanForwardReturn float64
	Recommendation   ValidationRecommendation
}

// ValidationReport aggregates per-signal hypothesis results.
type ValidationReport struct {
	Results   []HypothesisResult
	GeneratedAt time.Time
	GoNoGo    string // "GO" | "PENDING" | "NO-GO"
}
