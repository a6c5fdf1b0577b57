// Package performance turns realized return sequences into summary statistics
// and combines summaries across instruments, pools and independent runs.
//
// All returns are in percent. Every reported figure is rounded to two decimals.
package performance

import (
	"math"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-settlement/internal/types"
	"github.com/rxtech-lab/argo-settlement/internal/utils"
)

// Options carries the parameters of the risk adjusted ratio.
type Options struct {
	// RiskFreeRatePct is the annual risk free rate in percent.
	RiskFreeRatePct    float64
	TradingDaysPerYear int
}

// DefaultOptions returns a 2% risk free rate over 252 trading days.
func DefaultOptions() Options {
	return Options{RiskFreeRatePct: 2, TradingDaysPerYear: 252}
}

// Summarize computes the performance record of realized returns. sellDates must
// have the same length as returns and be in chronological order.
func Summarize(returns []float64, sellDates []time.Time, opts Options) types.PerformanceRecord {
	record := types.PerformanceRecord{
		CumulativeReturn: round2(CumulativeReturn(returns)),
		AverageReturn:    round2(TriangularWeightedAverage(returns)),
		WinRate:          WinRate(returns),
		TradeCount:       len(returns),
		Drawdown:         round2(Drawdown(returns)),
	}

	if sharpe := SharpeRatio(returns, opts); sharpe.IsSome() {
		value := round2(sharpe.Unwrap())
		record.Sharpe = &value
	}

	if n := len(sellDates); n > 0 {
		updatedAt := sellDates[n-1]
		record.UpdatedAt = &updatedAt
	}

	return record
}

// CumulativeReturn returns the sum of returns.
func CumulativeReturn(returns []float64) float64 {
	total := 0.0
	for _, r := range returns {
		total += r
	}

	return total
}

// TriangularWeightedAverage weights the k-th value (1-indexed, oldest first) by k
// and normalizes by n(n+1)/2, so the latest value weighs the most.
func TriangularWeightedAverage(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	weighted := 0.0
	for i, v := range values {
		weighted += v * float64(i+1)
	}

	return weighted * 2 / float64(n) / float64(n+1)
}

// Mean returns the plain average of values.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	return CumulativeReturn(values) / float64(len(values))
}

// WinRate returns the percentage of positive returns.
func WinRate(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	wins := 0
	for _, r := range returns {
		if r > 0 {
			wins++
		}
	}

	return round2(float64(wins) * 100 / float64(len(returns)))
}

// Drawdown returns the worst single return, or 0 if no trade lost money.
func Drawdown(returns []float64) float64 {
	worst := 0.0
	for _, r := range returns {
		if r < worst {
			worst = r
		}
	}

	return worst
}

// SharpeRatio returns (mean - rf/days) / std * sqrt(days) with the population
// standard deviation. It is absent for fewer than two returns or a zero deviation.
func SharpeRatio(returns []float64, opts Options) optional.Option[float64] {
	if len(returns) < 2 || opts.TradingDaysPerYear <= 0 {
		return optional.None[float64]()
	}

	mean := Mean(returns)

	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}

	std := math.Sqrt(variance / float64(len(returns)))
	if std == 0 || math.IsNaN(std) {
		return optional.None[float64]()
	}

	days := float64(opts.TradingDaysPerYear)
	daily := (mean - opts.RiskFreeRatePct/100/days) / std

	return optional.Some(daily * math.Sqrt(days))
}

// AnnualizedReturn scales a cumulative return to 365 days between firstBuy and asOf.
func AnnualizedReturn(firstBuy time.Time, cumulative float64, asOf time.Time) float64 {
	days := math.Floor(types.TruncateToDay(asOf).Sub(types.TruncateToDay(firstBuy)).Hours() / 24)
	if days <= 0 {
		return 0
	}

	return round2(cumulative * 365 / days)
}

func round2(value float64) float64 {
	return utils.RoundToDecimalPrecision(value, 2)
}
