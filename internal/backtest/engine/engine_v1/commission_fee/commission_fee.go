package commission_fee

import "github.com/shopspring/decimal"

// CommissionFee computes the broker commission for a traded amount.
type CommissionFee interface {
	// Calculate returns the commission for amount, rounded to cents.
	Calculate(amount decimal.Decimal) decimal.Decimal
}

type Broker string

const (
	BrokerAShare Broker = "a_share"
	BrokerZero   Broker = "zero_commission"
)

var AllBrokers = []any{
	BrokerAShare,
	BrokerZero,
}

// GetCommissionFeeHandler returns the fee schedule of broker. ratePct is in percent.
func GetCommissionFeeHandler(broker Broker, ratePct decimal.Decimal, minimum decimal.Decimal) CommissionFee {
	switch broker {
	case BrokerAShare:
		return NewAShareCommissionFee(ratePct, minimum)
	case BrokerZero:
		return NewZeroCommissionFee()
	default:
		return NewZeroCommissionFee()
	}
}

var hundred = decimal.NewFromInt(100)

// percentOf returns amount * pct / 100 rounded to cents.
func percentOf(amount decimal.Decimal, pct decimal.Decimal) decimal.Decimal {
	return amount.Mul(pct).Div(hundred).Round(2)
}
