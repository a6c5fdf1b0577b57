package performance

import (
	"math"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-settlement/internal/types"
)

// WeightedAverage returns sum(v*w)/sum(w) over present values. If any weight is
// absent the plain mean of the present values is returned instead. The result is
// absent when nothing is left to average or the weights sum to zero.
func WeightedAverage(values []optional.Option[float64], weights []optional.Option[float64]) optional.Option[float64] {
	present := make([]float64, 0, len(values))
	for _, v := range values {
		if v.IsSome() {
			present = append(present, v.Unwrap())
		}
	}

	for _, w := range weights {
		if w.IsNone() {
			if len(present) == 0 {
				return optional.None[float64]()
			}

			return optional.Some(round2(Mean(present)))
		}
	}

	if len(values) != len(weights) || len(present) == 0 {
		return optional.None[float64]()
	}

	total, sumWeight := 0.0, 0.0
	for i, v := range values {
		if v.IsNone() {
			continue
		}

		total += v.Unwrap() * weights[i].Unwrap()
		sumWeight += weights[i].Unwrap()
	}

	if sumWeight == 0 {
		return optional.None[float64]()
	}

	return optional.Some(round2(total / sumWeight))
}

// PoolRecord is the combined record of one pool together with its instrument count.
type PoolRecord struct {
	Pool            string                  `yaml:"pool" json:"pool"`
	Record          types.PerformanceRecord `yaml:"record" json:"record"`
	InstrumentCount int                     `yaml:"instrument_count" json:"instrument_count"`
}

// CombineByTradeCount merges instrument records into a pool record, weighting each
// instrument by its trade count. Instruments without trades are left out.
func CombineByTradeCount(records []types.PerformanceRecord) types.PerformanceRecord {
	weighted := make([]weightedRecord, 0, len(records))
	for _, r := range records {
		if !r.HasTrades() {
			continue
		}

		weighted = append(weighted, weightedRecord{record: r, weight: float64(r.TradeCount)})
	}

	combined := combineWeighted(weighted)
	for _, w := range weighted {
		combined.TradeCount += w.record.TradeCount
	}

	return combined
}

// CombineByInstrumentCount merges pool records into a rule record, weighting each
// pool by its instrument count. Pools without trades are left out, and the trade
// count is averaged with the same weights.
func CombineByInstrumentCount(pools []PoolRecord) types.PerformanceRecord {
	weighted := make([]weightedRecord, 0, len(pools))
	for _, p := range pools {
		if !p.Record.HasTrades() || p.InstrumentCount <= 0 {
			continue
		}

		weighted = append(weighted, weightedRecord{record: p.Record, weight: float64(p.InstrumentCount)})
	}

	combined := combineWeighted(weighted)

	counts := make([]optional.Option[float64], len(weighted))
	for i, w := range weighted {
		counts[i] = optional.Some(float64(w.record.TradeCount))
	}

	if avg := WeightedAverage(counts, weightsOf(weighted)); avg.IsSome() {
		combined.TradeCount = int(math.Round(avg.Unwrap()))
	}

	return combined
}

type weightedRecord struct {
	record types.PerformanceRecord
	weight float64
}

func weightsOf(items []weightedRecord) []optional.Option[float64] {
	weights := make([]optional.Option[float64], len(items))
	for i, item := range items {
		weights[i] = optional.Some(item.weight)
	}

	return weights
}

func combineWeighted(items []weightedRecord) types.PerformanceRecord {
	combined := types.PerformanceRecord{}
	if len(items) == 0 {
		return combined
	}

	weights := weightsOf(items)
	field := func(get func(types.PerformanceRecord) optional.Option[float64]) optional.Option[float64] {
		values := make([]optional.Option[float64], len(items))
		for i, item := range items {
			values[i] = get(item.record)
		}

		return WeightedAverage(values, weights)
	}

	combined.CumulativeReturn = field(func(r types.PerformanceRecord) optional.Option[float64] {
		return optional.Some(r.CumulativeReturn)
	}).TakeOr(0)
	combined.AverageReturn = field(func(r types.PerformanceRecord) optional.Option[float64] {
		return optional.Some(r.AverageReturn)
	}).TakeOr(0)
	combined.WinRate = field(func(r types.PerformanceRecord) optional.Option[float64] {
		return optional.Some(r.WinRate)
	}).TakeOr(0)
	combined.Drawdown = field(func(r types.PerformanceRecord) optional.Option[float64] {
		return optional.Some(r.Drawdown)
	}).TakeOr(0)

	sharpe := field(func(r types.PerformanceRecord) optional.Option[float64] {
		if r.Sharpe == nil {
			return optional.None[float64]()
		}

		return optional.Some(*r.Sharpe)
	})
	if sharpe.IsSome() {
		value := sharpe.Unwrap()
		combined.Sharpe = &value
	}

	var latest *time.Time
	for _, item := range items {
		if item.record.UpdatedAt != nil && (latest == nil || item.record.UpdatedAt.After(*latest)) {
			updated := *item.record.UpdatedAt
			latest = &updated
		}
	}

	combined.UpdatedAt = latest

	return combined
}
