package types

import (
	"sort"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-settlement/pkg/errors"
)

// DateLayout is the layout used when a trading date is rendered as text.
const DateLayout = "2006-01-02"

// Bar is one trading day of one instrument.
type Bar struct {
	Symbol string    `csv:"symbol" json:"symbol"`
	Date   time.Time `csv:"date" json:"date"`
	Open   float64   `csv:"open" json:"open"`
	High   float64   `csv:"high" json:"high"`
	Low    float64   `csv:"low" json:"low"`
	Close  float64   `csv:"close" json:"close"`
	Volume float64   `csv:"volume" json:"volume"`
}

// PriceSeries is the date ordered bar history of a single instrument.
// Bars are never mutated once the series has been validated.
type PriceSeries struct {
	Symbol string
	Bars   []Bar
}

// NewPriceSeries builds a series and validates it.
func NewPriceSeries(symbol string, bars []Bar) (PriceSeries, error) {
	series := PriceSeries{Symbol: symbol, Bars: bars}
	if err := series.Validate(); err != nil {
		return PriceSeries{}, err
	}

	return series, nil
}

// Validate checks that dates are strictly increasing and prices are usable.
// Gaps between dates are allowed.
func (s PriceSeries) Validate() error {
	for i, bar := range s.Bars {
		if bar.Open <= 0 || bar.Close <= 0 {
			return errors.Newf(errors.ErrCodeInvalidPrice, "series %s has a non-positive price on %s", s.Symbol, bar.Date.Format(DateLayout))
		}

		if i == 0 {
			continue
		}

		if !bar.Date.After(s.Bars[i-1].Date) {
			return errors.Newf(errors.ErrCodeNonMonotonicSeries,
				"series %s is not strictly increasing: %s follows %s",
				s.Symbol, bar.Date.Format(DateLayout), s.Bars[i-1].Date.Format(DateLayout))
		}
	}

	return nil
}

// Len returns the number of bars.
func (s PriceSeries) Len() int {
	return len(s.Bars)
}

// IndexOf returns the index of the bar on date, or -1.
func (s PriceSeries) IndexOf(date time.Time) int {
	date = TruncateToDay(date)
	i := sort.Search(len(s.Bars), func(i int) bool {
		return !TruncateToDay(s.Bars[i].Date).Before(date)
	})

	if i < len(s.Bars) && TruncateToDay(s.Bars[i].Date).Equal(date) {
		return i
	}

	return -1
}

// LatestDate returns the date of the last bar.
func (s PriceSeries) LatestDate() optional.Option[time.Time] {
	if len(s.Bars) == 0 {
		return optional.None[time.Time]()
	}

	return optional.Some(s.Bars[len(s.Bars)-1].Date)
}

// IsIndicating reports whether any of the signal dates falls on or after the
// n-th latest bar. n = 1 means the latest bar itself.
func (s PriceSeries) IsIndicating(signalDates []time.Time, n int) bool {
	if len(s.Bars) == 0 || n < 1 {
		return false
	}

	if n > len(s.Bars) {
		n = len(s.Bars)
	}

	cut := TruncateToDay(s.Bars[len(s.Bars)-n].Date)
	for _, d := range signalDates {
		if !TruncateToDay(d).Before(cut) {
			return true
		}
	}

	return false
}

// TruncateToDay drops the clock part of t and normalizes it to UTC.
func TruncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()

	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a date in DateLayout.
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, errors.Wrapf(errors.ErrCodeInvalidParameter, err, "invalid date %q", value)
	}

	return t, nil
}
