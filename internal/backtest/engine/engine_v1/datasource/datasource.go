package datasource

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-settlement/internal/types"
)

type DataSource interface {
	// Initialize loads daily bars from a parquet or csv file. Glob patterns are accepted.
	// Expected columns: time, symbol, open, high, low, close, volume.
	Initialize(path string) error
	// LoadSignals loads signals from a parquet or csv file with the columns time, symbol
	// and an optional rule.
	LoadSignals(path string) error
	// GetAllSymbols returns the distinct symbols of the loaded bars.
	GetAllSymbols() ([]string, error)
	// GetRules returns the distinct rules of the loaded signals. Signals without a
	// rule are reported under the empty name.
	GetRules() ([]string, error)
	// ReadAllSeries returns the validated price series of every symbol.
	ReadAllSeries() (map[string]types.PriceSeries, error)
	// ReadSignals returns the signals of a rule, or of every rule when rule is None.
	ReadSignals(rule optional.Option[string]) (types.SignalSet, error)
	// LatestDate returns the latest bar date across all symbols. Runs measure
	// recent stats and annualized returns up to this date.
	LatestDate() (optional.Option[time.Time], error)
	// Close closes the data source and releases any resources
	Close() error
}
