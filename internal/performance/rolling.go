package performance

import (
	"time"

	"github.com/rxtech-lab/argo-settlement/internal/types"
)

// RollingAfter returns, for every index i, the win rate, cumulative return and
// plain average of returns[i:].
func RollingAfter(returns []float64) (winRates []float64, cumulative []float64, averages []float64) {
	n := len(returns)
	winRates = make([]float64, n)
	cumulative = make([]float64, n)
	averages = make([]float64, n)

	sum := 0.0
	wins := 0
	for i := n - 1; i >= 0; i-- {
		sum += returns[i]
		if returns[i] > 0 {
			wins++
		}

		count := float64(n - i)
		winRates[i] = round2(float64(wins) * 100 / count)
		cumulative[i] = round2(sum)
		averages[i] = round2(sum / count)
	}

	return winRates, cumulative, averages
}

// BuildEarningInfo assembles the per run return history from a replay.
func BuildEarningInfo(returns []float64, sellDates []time.Time, buyDates []time.Time, assets []types.AssetPoint) types.EarningInfo {
	winRates, cumulative, averages := RollingAfter(returns)

	return types.EarningInfo{
		Returns:         append([]float64(nil), returns...),
		SellDates:       append([]time.Time(nil), sellDates...),
		BuyDates:        append([]time.Time(nil), buyDates...),
		WinRatesAfter:   winRates,
		CumReturnsAfter: cumulative,
		AvgReturnsAfter: averages,
		Assets:          append([]types.AssetPoint(nil), assets...),
	}
}

// StatsAfter summarizes the trades of info that closed strictly after cut.
func StatsAfter(info types.EarningInfo, cut time.Time, opts Options) types.PerformanceRecord {
	first := len(info.SellDates)
	for first > 0 && info.SellDates[first-1].After(cut) {
		first--
	}

	if first == len(info.SellDates) {
		return types.PerformanceRecord{}
	}

	return Summarize(info.Returns[first:], info.SellDates[first:], opts)
}

// RecentStats summarizes the trades that closed within the last windowDays before asOf.
func RecentStats(info types.EarningInfo, asOf time.Time, windowDays int, opts Options) types.PerformanceRecord {
	return StatsAfter(info, asOf.AddDate(0, 0, -windowDays), opts)
}
