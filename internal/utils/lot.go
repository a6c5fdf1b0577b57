package utils

import (
	"github.com/rxtech-lab/argo-settlement/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// CalculateMaxLotShares returns the largest multiple of lot that can be bought at price
// with allocation, commission included. Returns 0 when not even one lot fits.
func CalculateMaxLotShares(allocation decimal.Decimal, price decimal.Decimal, lot int64, commissionFee commission_fee.CommissionFee) int64 {
	if !price.IsPositive() || !allocation.IsPositive() || lot <= 0 {
		return 0
	}

	lotSize := decimal.NewFromInt(lot)
	shares := allocation.Div(price).Div(lotSize).Floor().IntPart() * lot

	for shares > 0 {
		amount := price.Mul(decimal.NewFromInt(shares))
		if amount.Add(commissionFee.Calculate(amount)).LessThanOrEqual(allocation) {
			break
		}

		shares -= lot
	}

	if shares < 0 {
		return 0
	}

	return shares
}

// CalculateSlippage returns min(round(price * pct / 100, 2), limit).
func CalculateSlippage(price decimal.Decimal, pct decimal.Decimal, limit decimal.Decimal) decimal.Decimal {
	if !pct.IsPositive() || !price.IsPositive() {
		return decimal.Zero
	}

	return decimal.Min(price.Mul(pct).Div(hundred).Round(2), limit)
}

// RoundToDecimalPrecision rounds value half away from zero to places decimals.
func RoundToDecimalPrecision(value float64, places int32) float64 {
	return decimal.NewFromFloat(value).Round(places).InexactFloat64()
}

// ChangePct returns (to - from) * 100 / from on the decimal representation of the
// prices, so 10 -> 10.95 is exactly 9.5. Returns 0 when from is zero.
func ChangePct(from float64, to float64) decimal.Decimal {
	if from == 0 {
		return decimal.Zero
	}

	f := decimal.NewFromFloat(from)

	return decimal.NewFromFloat(to).Sub(f).Mul(hundred).Div(f)
}
