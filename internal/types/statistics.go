package types

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// PerformanceRecord summarizes a realized return sequence. Returns are in percent.
type PerformanceRecord struct {
	// Sum of realized returns.
	CumulativeReturn float64 `yaml:"cumulative_return" json:"cumulative_return"`
	// Rank weighted average, the latest trade carries the largest weight.
	AverageReturn float64 `yaml:"average_return" json:"average_return"`
	// Percentage of trades with a positive return.
	WinRate    float64 `yaml:"win_rate" json:"win_rate"`
	TradeCount int     `yaml:"trade_count" json:"trade_count"`
	// Worst single trade return, or 0 when no trade lost money.
	Drawdown float64 `yaml:"drawdown" json:"drawdown"`
	// Sharpe is absent for fewer than two trades or a zero deviation.
	Sharpe *float64 `yaml:"sharpe,omitempty" json:"sharpe,omitempty"`
	// UpdatedAt is the sell date of the latest trade.
	UpdatedAt *time.Time `yaml:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// HasTrades reports whether the record is backed by at least one realized trade.
func (r PerformanceRecord) HasTrades() bool {
	return r.TradeCount > 0
}

// EarningInfo is the per run return history.
type EarningInfo struct {
	Returns   []float64   `json:"returns"`
	SellDates []time.Time `json:"sell_dates"`
	BuyDates  []time.Time `json:"buy_dates"`
	// Suffix statistics: index i covers trades i..n-1.
	WinRatesAfter   []float64    `json:"win_rates_after"`
	CumReturnsAfter []float64    `json:"cum_returns_after"`
	AvgReturnsAfter []float64    `json:"avg_returns_after"`
	Assets          []AssetPoint `json:"assets"`
}

// RunStatus describes where a run stands relative to the latest market data.
type RunStatus string

const (
	// RunStatusRunning means nothing is held and nothing signals today.
	RunStatusRunning RunStatus = "running"
	// RunStatusIndicating means an instrument signals on the latest bar.
	RunStatusIndicating RunStatus = "indicating"
	// RunStatusHolding means positions are still open.
	RunStatusHolding RunStatus = "holding"
)

// RunSummary is the reporting record of one simulation run.
type RunSummary struct {
	// ID is the unique identifier for this run.
	ID string `yaml:"id" json:"id"`
	// Timestamp is when this run was executed.
	Timestamp time.Time `yaml:"timestamp" json:"timestamp"`
	// Rule is the name of the rule or pool that produced the signals.
	Rule               string            `yaml:"rule" json:"rule"`
	Status             RunStatus         `yaml:"status" json:"status"`
	LastIndicatingDate *time.Time        `yaml:"last_indicating_date,omitempty" json:"last_indicating_date,omitempty"`
	InitialCapital     float64           `yaml:"initial_capital" json:"initial_capital"`
	FinalAssets        float64           `yaml:"final_assets" json:"final_assets"`
	TotalReturn        float64           `yaml:"total_return" json:"total_return"`
	AnnualizedReturn   float64           `yaml:"annualized_return" json:"annualized_return"`
	Performance        PerformanceRecord `yaml:"performance" json:"performance"`
	// Trailing window statistics, e.g. the last 30 days.
	Recent PerformanceRecord `yaml:"recent" json:"recent"`
	// UnresolvedCount is the number of positions still open when data ended.
	UnresolvedCount int `yaml:"unresolved_count" json:"unresolved_count"`
	// TradesFilePath is the path to the exported trades parquet file.
	TradesFilePath string `yaml:"trades_file_path" json:"trades_file_path"`
	// DataPath is the path to the market data used for this run.
	DataPath string `yaml:"data_path" json:"data_path"`
}

func WriteRunSummaries(path string, summaries []RunSummary) error {
	data, err := yaml.Marshal(summaries)
	if err != nil {
		return fmt.Errorf("failed to marshal run summaries to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write run summaries to file: %w", err)
	}

	return nil
}
