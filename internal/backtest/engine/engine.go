package engine

import (
	"context"

	"github.com/rxtech-lab/argo-settlement/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-settlement/internal/metrics"
	"github.com/rxtech-lab/argo-settlement/internal/performance"
	"github.com/rxtech-lab/argo-settlement/internal/types"
)

// Lifecycle callback types for simulation phases
// All callbacks with error return can abort execution if they return an error

// OnSimulationStartCallback is called once before any run starts.
type OnSimulationStartCallback func(totalRuns int, totalInstruments int) error

// OnSimulationEndCallback is called when the simulation completes (always called via defer).
type OnSimulationEndCallback func(err error)

// OnRunStartCallback is called when the run of one rule begins.
// runID is a unique identifier for this run, generated before processing starts.
type OnRunStartCallback func(runID string, rule string, totalInstruments int) error

// OnRunEndCallback is called after the results of a run are written.
type OnRunEndCallback func(runID string, rule string, resultFolderPath string)

// OnProcessDataCallback is called each time a run finishes.
type OnProcessDataCallback func(current int, total int) error

// LifecycleCallbacks holds all lifecycle callback functions for the simulation engine.
// All fields are pointers - nil means no callback will be invoked.
// Callbacks are never invoked concurrently.
type LifecycleCallbacks struct {
	OnSimulationStart *OnSimulationStartCallback
	OnSimulationEnd   *OnSimulationEndCallback
	OnRunStart        *OnRunStartCallback
	OnRunEnd          *OnRunEndCallback
	OnProcessData     *OnProcessDataCallback
}

// EventSink receives the executed trade records of a run after its replay finished.
// Appending a record whose (symbol, date, type) is already stored for the run is a no-op.
type EventSink interface {
	Append(ctx context.Context, runID string, trades []types.ExecutedTrade) error
}

//nolint:interfacebloat // Engine is a core interface that naturally requires multiple methods
type Engine interface {
	// Initialize the engine with the given YAML configuration.
	Initialize(config string) error
	// SetDataPath sets the parquet or csv file holding the daily bars. Globs are accepted.
	SetDataPath(path string) error
	// SetSignalPath sets the parquet or csv file holding the signals.
	SetSignalPath(path string) error
	// SetResultsFolder sets the output directory. Each rule is written to <folder>/<rule>.
	SetResultsFolder(folder string) error
	// SetDataSource sets the data source for the engine. It takes precedence over the data paths.
	SetDataSource(dataSource datasource.DataSource) error
	// SetEventSink adds a sink that receives the trades of every run next to the result store.
	SetEventSink(sink EventSink) error
	// SetComboGate enables the combo selection across rules.
	SetComboGate(gate performance.Gate) error
	// SetMetrics enables Prometheus instrumentation.
	SetMetrics(m *metrics.Metrics) error
	// Run simulates every rule as an independent run.
	// The context can be used to cancel the simulation between runs.
	Run(ctx context.Context, callbacks LifecycleCallbacks) error
	// GetConfigSchema returns the schema of the engine configuration
	GetConfigSchema() (string, error)
	// Close releases the result store.
	Close() error
}
