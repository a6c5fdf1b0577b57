package types

import (
	"fmt"
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
)

// TradeType is the kind of action the ledger recorded.
type TradeType string

const (
	TradeTypeIndicating         TradeType = "indicating"
	TradeTypeFailToBuy          TradeType = "fail_to_buy"
	TradeTypeBuy                TradeType = "buy"
	TradeTypeNotSufficientToBuy TradeType = "not_sufficient_to_buy"
	TradeTypeFailToSell         TradeType = "fail_to_sell"
	TradeTypeSell               TradeType = "sell"
)

// AllTradeTypes lists every trade type in event order.
var AllTradeTypes = []TradeType{
	TradeTypeIndicating,
	TradeTypeFailToBuy,
	TradeTypeBuy,
	TradeTypeNotSufficientToBuy,
	TradeTypeFailToSell,
	TradeTypeSell,
}

// Reasons attached to not_sufficient_to_buy records.
const (
	ReasonInsufficientCash = "insufficient_cash"
	ReasonLotTooSmall      = "lot_too_small"
	ReasonPositionOpen     = "position_open"
)

// TradeKey identifies a trade record. Re-applying a record with the same key is a no-op.
type TradeKey struct {
	Symbol string
	Date   time.Time
	Type   TradeType
}

// ExecutedTrade is an immutable audit record of one action applied by the ledger.
type ExecutedTrade struct {
	RunID      string          `json:"run_id"`
	Symbol     string          `json:"symbol"`
	Date       time.Time       `json:"date"`
	Type       TradeType       `json:"type"`
	Price      decimal.Decimal `json:"price"`
	Shares     int64           `json:"shares"`
	Amount     decimal.Decimal `json:"amount"`
	Commission decimal.Decimal `json:"commission"`
	StampTax   decimal.Decimal `json:"stamp_tax"`
	CashBefore decimal.Decimal `json:"cash_before"`
	CashAfter  decimal.Decimal `json:"cash_after"`
	// Return is the realized return in percent. Set on sells only.
	Return optional.Option[float64] `json:"return,omitempty"`
	// BoughtDate is the entry date of the position a sell or fail_to_sell refers to.
	BoughtDate optional.Option[time.Time] `json:"bought_date,omitempty"`
	// PriorClose is the previous close on a fail_to_sell.
	PriorClose optional.Option[float64] `json:"prior_close,omitempty"`
	Reason     string                   `json:"reason,omitempty"`
}

// Key returns the idempotency key of the record.
func (t ExecutedTrade) Key() TradeKey {
	return TradeKey{Symbol: t.Symbol, Date: TruncateToDay(t.Date), Type: t.Type}
}

// Message renders the record as a human readable log line.
func (t ExecutedTrade) Message() string {
	switch t.Type {
	case TradeTypeIndicating:
		return fmt.Sprintf("Stock %s is indicating with close price %s!", t.Symbol, t.Price.StringFixed(2))
	case TradeTypeFailToBuy:
		return fmt.Sprintf("Failed to buy %s with open price %s!", t.Symbol, t.Price.StringFixed(2))
	case TradeTypeBuy:
		return fmt.Sprintf("Buying %s for %s with price %s!", t.Amount.StringFixed(2), t.Symbol, t.Price.StringFixed(2))
	case TradeTypeNotSufficientToBuy:
		return fmt.Sprintf("Cash: %s, less than allocation or not sufficient to buy %s with price %s!",
			t.CashBefore.StringFixed(2), t.Symbol, t.Price.StringFixed(2))
	case TradeTypeFailToSell:
		return fmt.Sprintf("Failed to sell %s with price %s and last close price %s!",
			t.Symbol, t.Price.StringFixed(2), decimal.NewFromFloat(t.PriorClose.TakeOr(0)).StringFixed(2))
	case TradeTypeSell:
		bought := ""
		if t.BoughtDate.IsSome() {
			bought = t.BoughtDate.Unwrap().Format(DateLayout)
		}

		return fmt.Sprintf("Selling %s for %s bought at %s with price %s! Earned: %s%%!",
			t.Amount.StringFixed(2), t.Symbol, bought, t.Price.StringFixed(2),
			decimal.NewFromFloat(t.Return.TakeOr(0)).StringFixed(2))
	default:
		return fmt.Sprintf("Unknown trade %s for %s", t.Type, t.Symbol)
	}
}
