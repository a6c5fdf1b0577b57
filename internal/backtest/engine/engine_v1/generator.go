package engine

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-settlement/internal/logger"
	"github.com/rxtech-lab/argo-settlement/internal/types"
	"github.com/rxtech-lab/argo-settlement/internal/utils"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// TradeItemGenerator turns the signal dates of one instrument into trade items.
// It only reads its inputs, so one generator can serve many goroutines.
type TradeItemGenerator struct {
	config SimulationEngineV1Config
	logger *logger.Logger

	limit    decimal.Decimal
	profit   decimal.Decimal
	stopLoss decimal.Decimal
	maxHold  int
}

func NewTradeItemGenerator(config SimulationEngineV1Config, log *logger.Logger) *TradeItemGenerator {
	return &TradeItemGenerator{
		config:   config,
		logger:   log,
		limit:    decimal.NewFromFloat(config.DailyPriceLimitPct),
		profit:   decimal.NewFromFloat(config.ProfitThresholdPct),
		stopLoss: decimal.NewFromFloat(config.StopLossPct),
		maxHold:  config.MaxHoldingDays,
	}
}

// Generate returns one trade item per usable signal date, in date order.
// Signals outside the configured window or missing from the series are skipped.
// The series must have strictly increasing dates and positive prices.
func (g *TradeItemGenerator) Generate(series types.PriceSeries, signalDates []time.Time) ([]types.TradeItem, error) {
	if err := series.Validate(); err != nil {
		return nil, err
	}

	items := make([]types.TradeItem, 0, len(signalDates))

	for _, date := range signalDates {
		if !g.config.InWindow(date) {
			continue
		}

		index := series.IndexOf(date)
		if index < 0 {
			g.logger.Debug("Signal date has no bar, skipping",
				zap.String("symbol", series.Symbol),
				zap.String("date", date.Format(types.DateLayout)))

			continue
		}

		item := g.generateOne(series, index)
		if err := item.Validate(); err != nil {
			return nil, err
		}

		items = append(items, item)
	}

	return items, nil
}

func (g *TradeItemGenerator) generateOne(series types.PriceSeries, index int) types.TradeItem {
	bars := series.Bars
	indicating := bars[index]

	item := types.TradeItem{
		Symbol:          series.Symbol,
		IndicatingDate:  types.TruncateToDay(indicating.Date),
		IndicatingPrice: indicating.Close,
		Outcome:         types.TradeOutcomePending,
	}

	buyIndex := index + 1
	if buyIndex >= len(bars) {
		return item
	}

	buyBar := bars[buyIndex]
	if utils.ChangePct(indicating.Close, buyBar.Open).GreaterThanOrEqual(g.limit) {
		item.FailToBuy = optional.Some(types.Fill{Date: types.TruncateToDay(buyBar.Date), Price: buyBar.Open})
		item.Outcome = types.TradeOutcomeFailToBuy

		return item
	}

	buyPrice := buyBar.Open
	item.Buy = optional.Some(types.Fill{Date: types.TruncateToDay(buyBar.Date), Price: buyPrice})
	item.Outcome = types.TradeOutcomeUnresolved

	for j := 1; j <= g.maxHold; j++ {
		k := buyIndex + j
		if k >= len(bars) {
			break
		}

		current, previous := bars[k], bars[k-1]

		if j != g.maxHold && utils.ChangePct(previous.Close, current.Close).LessThanOrEqual(g.limit.Neg()) {
			item.FailToSells = append(item.FailToSells, types.FailToSell{
				Date:           types.TruncateToDay(current.Date),
				AttemptedPrice: current.Close,
				PriorClose:     previous.Close,
			})

			continue
		}

		reason := g.exitReason(buyPrice, current.Close, j)
		if reason == types.ExitReasonNone {
			continue
		}

		item.Sell = optional.Some(types.Fill{Date: types.TruncateToDay(current.Date), Price: current.Close})
		item.ExitReason = reason
		item.Outcome = types.TradeOutcomeSold

		break
	}

	return item
}

// exitReason checks profit, then stop-loss, then the holding limit.
func (g *TradeItemGenerator) exitReason(buyPrice float64, closePrice float64, day int) types.ExitReason {
	change := utils.ChangePct(buyPrice, closePrice)

	switch {
	case change.GreaterThanOrEqual(g.profit):
		return types.ExitReasonProfit
	case change.Neg().GreaterThanOrEqual(g.stopLoss):
		return types.ExitReasonStopLoss
	case day == g.maxHold:
		return types.ExitReasonMaxHolding
	default:
		return types.ExitReasonNone
	}
}
