package engine

import (
	"sort"
	"time"

	"github.com/rxtech-lab/argo-settlement/internal/types"
)

// TradeEvent is one dated step of a trade item, as replayed by the ledger.
type TradeEvent struct {
	Symbol string
	Date   time.Time
	// Type is one of indicating, fail_to_buy, buy, fail_to_sell or sell.
	Type  types.TradeType
	Price float64
	// BuyDate links fail_to_sell and sell events to the buy of the same item.
	BuyDate    time.Time
	PriorClose float64
	ExitReason types.ExitReason
}

// FlattenTradeItems expands trade items into events. Instruments are expected in
// symbol order and items in date order; that order breaks ties between equal dates.
func FlattenTradeItems(groups []InstrumentTradeItems) []TradeEvent {
	events := make([]TradeEvent, 0)

	for _, group := range groups {
		for _, item := range group.Items {
			events = append(events, TradeEvent{
				Symbol: item.Symbol,
				Date:   item.IndicatingDate,
				Type:   types.TradeTypeIndicating,
				Price:  item.IndicatingPrice,
			})

			if item.FailToBuy.IsSome() {
				fill := item.FailToBuy.Unwrap()
				events = append(events, TradeEvent{
					Symbol: item.Symbol,
					Date:   fill.Date,
					Type:   types.TradeTypeFailToBuy,
					Price:  fill.Price,
				})

				continue
			}

			if item.Buy.IsNone() {
				continue
			}

			buy := item.Buy.Unwrap()
			events = append(events, TradeEvent{
				Symbol:  item.Symbol,
				Date:    buy.Date,
				Type:    types.TradeTypeBuy,
				Price:   buy.Price,
				BuyDate: buy.Date,
			})

			for _, failed := range item.FailToSells {
				events = append(events, TradeEvent{
					Symbol:     item.Symbol,
					Date:       failed.Date,
					Type:       types.TradeTypeFailToSell,
					Price:      failed.AttemptedPrice,
					BuyDate:    buy.Date,
					PriorClose: failed.PriorClose,
				})
			}

			if item.Sell.IsSome() {
				sell := item.Sell.Unwrap()
				events = append(events, TradeEvent{
					Symbol:     item.Symbol,
					Date:       sell.Date,
					Type:       types.TradeTypeSell,
					Price:      sell.Price,
					BuyDate:    buy.Date,
					ExitReason: item.ExitReason,
				})
			}
		}
	}

	return events
}

// SortEvents orders events by date. Events on the same date keep their insertion order.
func SortEvents(events []TradeEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Date.Before(events[j].Date)
	})
}
