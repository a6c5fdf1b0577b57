package mocks

import (
	"math"
	"math/rand"
	"time"

	"github.com/rxtech-lab/argo-settlement/internal/types"
)

// DataGenerator generates realistic daily bars and signals for testing and benchmarking.
type DataGenerator struct {
	rng *rand.Rand
}

// NewDataGenerator creates a new DataGenerator with the given seed.
// Use a fixed seed for reproducible results in tests.
func NewDataGenerator(seed int64) *DataGenerator {
	return &DataGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// GeneratorConfig configures how market data is generated.
type GeneratorConfig struct {
	// Symbol is the instrument code (e.g., "600000")
	Symbol string
	// StartDate is the first trading day. Weekends are skipped.
	StartDate time.Time
	// Count is the number of trading days to generate
	Count int
	// InitialPrice is the starting price
	InitialPrice float64
	// Volatility controls price movement (0.02 = 2% typical daily volatility)
	Volatility float64
	// Trend is the drift factor (-0.01 to 0.01 for bearish to bullish)
	Trend float64
	// GapVolatility controls the overnight gap between a close and the next open
	GapVolatility float64
	// PriceLimitPct caps the move against the previous close, e.g. 10 for 10%
	PriceLimitPct float64
	// VolumeBase is the average volume per bar
	VolumeBase float64
	// VolumeVariance is the variance in volume (0.0 to 1.0)
	VolumeVariance float64
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Symbol:         "600000",
		StartDate:      time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Count:          250,
		InitialPrice:   10.0,
		Volatility:     0.02, // 2% per day
		Trend:          0.0,  // neutral
		GapVolatility:  0.005,
		PriceLimitPct:  10,
		VolumeBase:     1000000,
		VolumeVariance: 0.3,
	}
}

// Generate creates daily bars based on the configuration.
// Prices follow a geometric Brownian motion and never move past the price limit.
func (g *DataGenerator) Generate(config GeneratorConfig) []types.Bar {
	bars := make([]types.Bar, config.Count)
	previousClose := config.InitialPrice
	currentDate := nextTradingDay(config.StartDate.AddDate(0, 0, -1))

	for i := 0; i < config.Count; i++ {
		open := g.clamp(previousClose*(1+config.GapVolatility*g.normal()), previousClose, config.PriceLimitPct)

		// Price change with trend and volatility
		priceChange := config.Volatility * g.normal()
		drift := config.Trend / float64(config.Count) // Distribute trend across bars

		close := g.clamp(open*(1+priceChange+drift), previousClose, config.PriceLimitPct)

		// High and low are within the open-close range plus some extension
		highExtension := math.Abs(g.rng.Float64() * config.Volatility * open * 0.5)
		lowExtension := math.Abs(g.rng.Float64() * config.Volatility * open * 0.5)

		high := g.clamp(math.Max(open, close)+highExtension, previousClose, config.PriceLimitPct)
		low := g.clamp(math.Min(open, close)-lowExtension, previousClose, config.PriceLimitPct)

		// Volume with variance
		volumeVariation := 1.0 + (g.rng.Float64()*2-1)*config.VolumeVariance
		volume := config.VolumeBase * volumeVariation
		if volume < 0 {
			volume = config.VolumeBase * 0.1
		}

		bars[i] = types.Bar{
			Symbol: config.Symbol,
			Date:   currentDate,
			Open:   roundToDecimals(open, 2),
			High:   roundToDecimals(high, 2),
			Low:    roundToDecimals(low, 2),
			Close:  roundToDecimals(close, 2),
			Volume: roundToDecimals(volume, 0),
		}

		// Update for next iteration
		previousClose = bars[i].Close
		currentDate = nextTradingDay(currentDate)
	}

	return bars
}

// GenerateMultiSymbol generates bars for multiple symbols.
func (g *DataGenerator) GenerateMultiSymbol(symbols []string, baseConfig GeneratorConfig) []types.Bar {
	var allBars []types.Bar

	for _, symbol := range symbols {
		config := baseConfig
		config.Symbol = symbol
		// Vary initial price and volatility slightly per symbol
		config.InitialPrice = baseConfig.InitialPrice * (0.8 + g.rng.Float64()*0.4)
		config.Volatility = baseConfig.Volatility * (0.8 + g.rng.Float64()*0.4)

		allBars = append(allBars, g.Generate(config)...)
	}

	return allBars
}

// GenerateSignals marks each bar as a signal with the given probability.
func (g *DataGenerator) GenerateSignals(bars []types.Bar, probability float64, rule string) []types.Signal {
	signals := make([]types.Signal, 0)

	for _, bar := range bars {
		if g.rng.Float64() < probability {
			signals = append(signals, types.Signal{Symbol: bar.Symbol, Date: bar.Date, Rule: rule})
		}
	}

	return signals
}

// GenerateYear is a convenience function to generate one year of daily bars
// with default settings for benchmarking.
func GenerateYear(symbol string) []types.Bar {
	gen := NewDataGenerator(42) // Fixed seed for reproducibility
	config := DefaultConfig()
	config.Symbol = symbol

	return gen.Generate(config)
}

// normal draws from the standard normal distribution using the Box-Muller transform.
func (g *DataGenerator) normal() float64 {
	u1 := g.rng.Float64()
	if u1 == 0 {
		u1 = math.SmallestNonzeroFloat64
	}

	u2 := g.rng.Float64()

	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}

// clamp keeps price within limitPct of reference. A zero limit only keeps prices positive.
func (g *DataGenerator) clamp(price float64, reference float64, limitPct float64) float64 {
	if limitPct > 0 {
		upper := reference * (1 + limitPct/100)
		lower := reference * (1 - limitPct/100)
		price = math.Min(math.Max(price, lower), upper)
	}

	if price <= 0 {
		price = reference * 0.99 // Prevent negative prices
	}

	return price
}

func nextTradingDay(date time.Time) time.Time {
	next := date.AddDate(0, 0, 1)
	for next.Weekday() == time.Saturday || next.Weekday() == time.Sunday {
		next = next.AddDate(0, 0, 1)
	}

	return next
}

// roundToDecimals rounds a float64 to the specified number of decimal places.
func roundToDecimals(val float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(val*pow) / pow
}
