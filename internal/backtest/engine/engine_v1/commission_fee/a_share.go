package commission_fee

import "github.com/shopspring/decimal"

// AShareCommissionFee charges a percentage of the traded amount with a minimum per trade.
type AShareCommissionFee struct {
	RatePct decimal.Decimal
	Minimum decimal.Decimal
}

func NewAShareCommissionFee(ratePct decimal.Decimal, minimum decimal.Decimal) CommissionFee {
	return &AShareCommissionFee{
		RatePct: ratePct,
		Minimum: minimum,
	}
}

// Calculate returns max(rate * amount, minimum). Nothing is charged when amount is not positive.
func (c *AShareCommissionFee) Calculate(amount decimal.Decimal) decimal.Decimal {
	if !amount.IsPositive() {
		return decimal.Zero
	}

	return decimal.Max(percentOf(amount, c.RatePct), c.Minimum.Round(2))
}
