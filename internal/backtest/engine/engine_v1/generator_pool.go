package engine

import (
	"context"
	"runtime"

	"github.com/rxtech-lab/argo-settlement/internal/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// InstrumentTradeItems holds the trade items of one instrument.
type InstrumentTradeItems struct {
	Symbol string
	Items  []types.TradeItem
}

// GenerateAll runs the generator for every instrument of signals on a worker pool
// bounded by the number of CPUs. The result is ordered by symbol.
func (g *TradeItemGenerator) GenerateAll(ctx context.Context, series map[string]types.PriceSeries, signals types.SignalSet) ([]InstrumentTradeItems, error) {
	symbols := signals.Symbols()
	results := make([]InstrumentTradeItems, len(symbols))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(runtime.NumCPU())

	for i, symbol := range symbols {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}

			results[i].Symbol = symbol

			s, ok := series[symbol]
			if !ok {
				g.logger.Warn("No price series for signaled instrument", zap.String("symbol", symbol))

				return nil
			}

			items, err := g.Generate(s, signals.DatesFor(symbol))
			if err != nil {
				return err
			}

			results[i].Items = items

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}
