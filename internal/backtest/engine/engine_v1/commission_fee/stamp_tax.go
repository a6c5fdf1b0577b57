package commission_fee

import "github.com/shopspring/decimal"

// StampTax is a transaction tax charged on one side of a trade.
type StampTax interface {
	// OnBuy returns the tax owed when buying amount.
	OnBuy(amount decimal.Decimal) decimal.Decimal
	// OnSell returns the tax owed when selling amount.
	OnSell(amount decimal.Decimal) decimal.Decimal
}

// SellSideStampTax charges RatePct percent of the amount on sells only.
type SellSideStampTax struct {
	RatePct decimal.Decimal
}

func NewSellSideStampTax(ratePct decimal.Decimal) StampTax {
	return &SellSideStampTax{RatePct: ratePct}
}

func (s *SellSideStampTax) OnBuy(_ decimal.Decimal) decimal.Decimal {
	return decimal.Zero
}

func (s *SellSideStampTax) OnSell(amount decimal.Decimal) decimal.Decimal {
	if !amount.IsPositive() {
		return decimal.Zero
	}

	return percentOf(amount, s.RatePct)
}
