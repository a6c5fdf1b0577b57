package types

import (
	"sort"
	"time"
)

// Signal marks a day on which a rule judges an instrument worth buying.
// The engine never produces or mutates signals.
type Signal struct {
	Symbol string    `csv:"symbol" json:"symbol"`
	Date   time.Time `csv:"date" json:"date"`
	// Rule is the name of the rule that produced the signal. Optional.
	Rule string `csv:"rule" json:"rule,omitempty"`
}

// SignalSet groups signals by instrument.
type SignalSet struct {
	bySymbol map[string][]time.Time
}

// NewSignalSet builds a set from signals. Dates are sorted and de-duplicated per instrument.
func NewSignalSet(signals []Signal) SignalSet {
	set := SignalSet{bySymbol: make(map[string][]time.Time)}
	for _, s := range signals {
		set.bySymbol[s.Symbol] = append(set.bySymbol[s.Symbol], TruncateToDay(s.Date))
	}

	for symbol, dates := range set.bySymbol {
		sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

		unique := dates[:0]
		for i, d := range dates {
			if i > 0 && d.Equal(dates[i-1]) {
				continue
			}

			unique = append(unique, d)
		}

		set.bySymbol[symbol] = unique
	}

	return set
}

// DatesFor returns the sorted signal dates of symbol.
func (s SignalSet) DatesFor(symbol string) []time.Time {
	return s.bySymbol[symbol]
}

// Symbols returns the instruments in lexical order.
func (s SignalSet) Symbols() []string {
	symbols := make([]string, 0, len(s.bySymbol))
	for symbol := range s.bySymbol {
		symbols = append(symbols, symbol)
	}

	sort.Strings(symbols)

	return symbols
}

// Len returns the total number of signal dates.
func (s SignalSet) Len() int {
	total := 0
	for _, dates := range s.bySymbol {
		total += len(dates)
	}

	return total
}
