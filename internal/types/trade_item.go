package types

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-settlement/pkg/errors"
)

// Fill is a dated price at which a leg executed or was attempted.
type Fill struct {
	Date  time.Time `json:"date"`
	Price float64   `json:"price"`
}

// FailToSell is a limit-down day on which a held position could not be sold.
type FailToSell struct {
	Date           time.Time `json:"date"`
	AttemptedPrice float64   `json:"attempted_price"`
	PriorClose     float64   `json:"prior_close"`
}

// ExitReason is the clause that closed a position.
type ExitReason string

const (
	ExitReasonNone       ExitReason = ""
	ExitReasonProfit     ExitReason = "profit"
	ExitReasonStopLoss   ExitReason = "stop_loss"
	ExitReasonMaxHolding ExitReason = "max_holding"
)

// TradeOutcome tags how a trade item ended.
type TradeOutcome string

const (
	// TradeOutcomePending means there is no bar after the indicating date yet.
	TradeOutcomePending TradeOutcome = "pending"
	// TradeOutcomeFailToBuy means the next open was at or above the limit-up threshold.
	TradeOutcomeFailToBuy TradeOutcome = "fail_to_buy"
	// TradeOutcomeSold means the position was closed by one of the exit clauses.
	TradeOutcomeSold TradeOutcome = "sold"
	// TradeOutcomeUnresolved means the price data ended while the position was still open.
	TradeOutcomeUnresolved TradeOutcome = "unresolved"
)

// TradeItem is one attempted round trip produced from a single signal.
type TradeItem struct {
	Symbol          string                `json:"symbol"`
	IndicatingDate  time.Time             `json:"indicating_date"`
	IndicatingPrice float64               `json:"indicating_price"`
	Buy             optional.Option[Fill] `json:"buy,omitempty"`
	FailToBuy       optional.Option[Fill] `json:"fail_to_buy,omitempty"`
	FailToSells     []FailToSell          `json:"fail_to_sells,omitempty"`
	Sell            optional.Option[Fill] `json:"sell,omitempty"`
	ExitReason      ExitReason            `json:"exit_reason,omitempty"`
	Outcome         TradeOutcome          `json:"outcome"`
}

// IsRealized reports whether the item contributes a realized return.
func (t TradeItem) IsRealized() bool {
	return t.Outcome == TradeOutcomeSold
}

// Validate checks the structural invariants of a trade item.
func (t TradeItem) Validate() error {
	if t.Buy.IsSome() && t.FailToBuy.IsSome() {
		return errors.Newf(errors.ErrCodeInvalidTradeItem, "trade item %s %s has both buy and fail_to_buy", t.Symbol, t.IndicatingDate.Format(DateLayout))
	}

	if t.Buy.IsNone() && (t.Sell.IsSome() || len(t.FailToSells) > 0) {
		return errors.Newf(errors.ErrCodeInvalidTradeItem, "trade item %s %s has a sell leg without a buy", t.Symbol, t.IndicatingDate.Format(DateLayout))
	}

	switch t.Outcome {
	case TradeOutcomePending:
		if t.Buy.IsSome() || t.FailToBuy.IsSome() {
			return errors.Newf(errors.ErrCodeInvalidTradeItem, "pending trade item %s %s has a buy attempt", t.Symbol, t.IndicatingDate.Format(DateLayout))
		}
	case TradeOutcomeFailToBuy:
		if t.FailToBuy.IsNone() {
			return errors.Newf(errors.ErrCodeInvalidTradeItem, "trade item %s %s is tagged fail_to_buy without a fail_to_buy leg", t.Symbol, t.IndicatingDate.Format(DateLayout))
		}
	case TradeOutcomeSold:
		if t.Sell.IsNone() || t.ExitReason == ExitReasonNone {
			return errors.Newf(errors.ErrCodeInvalidTradeItem, "trade item %s %s is tagged sold without a sell leg", t.Symbol, t.IndicatingDate.Format(DateLayout))
		}
	case TradeOutcomeUnresolved:
		if t.Buy.IsNone() || t.Sell.IsSome() {
			return errors.Newf(errors.ErrCodeInvalidTradeItem, "trade item %s %s is tagged unresolved but is not an open position", t.Symbol, t.IndicatingDate.Format(DateLayout))
		}
	default:
		return errors.Newf(errors.ErrCodeInvalidTradeItem, "trade item %s %s has unknown outcome %q", t.Symbol, t.IndicatingDate.Format(DateLayout), t.Outcome)
	}

	return nil
}
