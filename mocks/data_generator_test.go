package mocks

import (
	"math"
	"testing"
	"time"
)

func TestDataGenerator_Generate(t *testing.T) {
	gen := NewDataGenerator(42) // Fixed seed for reproducibility
	config := DefaultConfig()
	config.Count = 100

	data := gen.Generate(config)

	if len(data) != 100 {
		t.Errorf("expected 100 bars, got %d", len(data))
	}

	// Verify bars are in chronological order on trading days
	for i := 1; i < len(data); i++ {
		if !data[i].Date.After(data[i-1].Date) {
			t.Errorf("data not in chronological order at index %d", i)
		}
	}

	for i, d := range data {
		if d.Date.Weekday() == time.Saturday || d.Date.Weekday() == time.Sunday {
			t.Errorf("bar at index %d falls on a weekend: %s", i, d.Date)
		}
	}

	// Verify symbol is set correctly
	for i, d := range data {
		if d.Symbol != config.Symbol {
			t.Errorf("expected symbol %s at index %d, got %s", config.Symbol, i, d.Symbol)
		}
	}

	// Verify OHLC values are positive
	for i, d := range data {
		if d.Open <= 0 || d.High <= 0 || d.Low <= 0 || d.Close <= 0 {
			t.Errorf("invalid OHLC values at index %d: O=%f H=%f L=%f C=%f",
				i, d.Open, d.High, d.Low, d.Close)
		}
	}

	// Verify High >= Low
	for i, d := range data {
		if d.High < d.Low {
			t.Errorf("High < Low at index %d: H=%f L=%f", i, d.High, d.Low)
		}
	}
}

func TestDataGenerator_PriceLimit(t *testing.T) {
	gen := NewDataGenerator(7)
	config := DefaultConfig()
	config.Volatility = 0.2 // large enough to hit the limit often

	data := gen.Generate(config)

	// rounding to cents may push a clamped price slightly past the limit
	tolerance := 0.01

	for i := 1; i < len(data); i++ {
		previous := data[i-1].Close
		for _, price := range []float64{data[i].Open, data[i].Close} {
			if math.Abs(price-previous) > previous*config.PriceLimitPct/100+tolerance {
				t.Errorf("price %f at index %d moves past the limit from %f", price, i, previous)
			}
		}
	}
}

func TestDataGenerator_Reproducibility(t *testing.T) {
	// Same seed should produce same results
	gen1 := NewDataGenerator(42)
	gen2 := NewDataGenerator(42)

	config := DefaultConfig()
	config.Count = 10

	data1 := gen1.Generate(config)
	data2 := gen2.Generate(config)

	for i := range data1 {
		if data1[i].Close != data2[i].Close {
			t.Errorf("data not reproducible at index %d: got %f and %f",
				i, data1[i].Close, data2[i].Close)
		}
	}
}

func TestDataGenerator_Different_Seeds(t *testing.T) {
	gen1 := NewDataGenerator(42)
	gen2 := NewDataGenerator(123)

	config := DefaultConfig()
	config.Count = 10

	data1 := gen1.Generate(config)
	data2 := gen2.Generate(config)

	// Different seeds should produce different results
	sameCount := 0
	for i := range data1 {
		if data1[i].Close == data2[i].Close {
			sameCount++
		}
	}

	if sameCount == len(data1) {
		t.Error("different seeds produced identical data")
	}
}

func TestGenerateYear(t *testing.T) {
	data := GenerateYear("600000")

	if len(data) != 250 {
		t.Errorf("expected 250 bars, got %d", len(data))
	}

	if data[0].Symbol != "600000" {
		t.Errorf("expected symbol 600000, got %s", data[0].Symbol)
	}
}

func TestGenerateMultiSymbol(t *testing.T) {
	symbols := []string{"600000", "000001", "300750"}
	gen := NewDataGenerator(42)
	config := DefaultConfig()
	config.Count = 100

	data := gen.GenerateMultiSymbol(symbols, config)

	expectedTotal := len(symbols) * config.Count
	if len(data) != expectedTotal {
		t.Errorf("expected %d bars, got %d", expectedTotal, len(data))
	}

	// Verify each symbol has data
	symbolCounts := make(map[string]int)
	for _, d := range data {
		symbolCounts[d.Symbol]++
	}

	for _, symbol := range symbols {
		if symbolCounts[symbol] != config.Count {
			t.Errorf("expected %d bars for %s, got %d",
				config.Count, symbol, symbolCounts[symbol])
		}
	}
}

func TestGenerateSignals(t *testing.T) {
	gen := NewDataGenerator(42)
	bars := gen.Generate(DefaultConfig())

	none := gen.GenerateSignals(bars, 0, "breakout")
	if len(none) != 0 {
		t.Errorf("expected no signals, got %d", len(none))
	}

	all := gen.GenerateSignals(bars, 1, "breakout")
	if len(all) != len(bars) {
		t.Errorf("expected %d signals, got %d", len(bars), len(all))
	}

	for i, s := range all {
		if s.Rule != "breakout" || s.Symbol != bars[i].Symbol || !s.Date.Equal(bars[i].Date) {
			t.Errorf("unexpected signal at index %d: %+v", i, s)
		}
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Count != 250 {
		t.Errorf("expected default count 250, got %d", config.Count)
	}

	if config.Symbol != "600000" {
		t.Errorf("expected default symbol 600000, got %s", config.Symbol)
	}

	if config.PriceLimitPct != 10 {
		t.Errorf("expected default price limit 10, got %f", config.PriceLimitPct)
	}

	if config.InitialPrice != 10.0 {
		t.Errorf("expected default initial price 10.0, got %f", config.InitialPrice)
	}
}
