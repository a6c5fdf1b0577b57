package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-settlement/internal/backtest/engine"
	"github.com/rxtech-lab/argo-settlement/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-settlement/internal/logger"
	"github.com/rxtech-lab/argo-settlement/internal/metrics"
	"github.com/rxtech-lab/argo-settlement/internal/performance"
	"github.com/rxtech-lab/argo-settlement/internal/types"
	"github.com/rxtech-lab/argo-settlement/internal/utils"
	"github.com/rxtech-lab/argo-settlement/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// RunInput is everything one independent run needs.
type RunInput struct {
	// RunID is generated when empty.
	RunID   string
	Rule    string
	Series  map[string]types.PriceSeries
	Signals types.SignalSet
	// Resume continues from a checkpoint. Events on or before the last asset
	// date of the snapshot were already applied and are skipped.
	Resume optional.Option[types.LedgerSnapshot]
	// AsOf is the date recent stats and annualized returns are measured to.
	// The latest bar date of Series is used when absent.
	AsOf optional.Option[time.Time]
}

// RunResult is the outcome of one run.
type RunResult struct {
	RunID              string
	Rule               string
	Status             types.RunStatus
	LastIndicatingDate optional.Option[time.Time]
	// LatestDate is the as-of date of the run's data.
	LatestDate       optional.Option[time.Time]
	InitialCapital   float64
	FinalAssets      float64
	TotalReturn      float64
	AnnualizedReturn float64
	Performance      types.PerformanceRecord
	Recent           types.PerformanceRecord
	// Instruments holds one record per instrument with at least one trade item.
	Instruments map[string]types.PerformanceRecord
	// Pool combines the instrument records weighted by trade count.
	Pool        types.PerformanceRecord
	EarningInfo types.EarningInfo
	Ledger      LedgerResult
	Items       []InstrumentTradeItems
	Unresolved  int
}

// Summary returns the reporting record of the run.
func (r RunResult) Summary(timestamp time.Time, dataPath string, tradesPath string) types.RunSummary {
	summary := types.RunSummary{
		ID:               r.RunID,
		Timestamp:        timestamp,
		Rule:             ruleName(r.Rule),
		Status:           r.Status,
		InitialCapital:   r.InitialCapital,
		FinalAssets:      r.FinalAssets,
		TotalReturn:      r.TotalReturn,
		AnnualizedReturn: r.AnnualizedReturn,
		Performance:      r.Performance,
		Recent:           r.Recent,
		UnresolvedCount:  r.Unresolved,
		TradesFilePath:   tradesPath,
		DataPath:         dataPath,
	}

	if r.LastIndicatingDate.IsSome() {
		last := r.LastIndicatingDate.Unwrap()
		summary.LastIndicatingDate = &last
	}

	return summary
}

// CombinedReport is the cross rule report written to combined.yaml.
type CombinedReport struct {
	Overall types.PerformanceRecord  `yaml:"overall" json:"overall"`
	Pools   []performance.PoolRecord `yaml:"pools" json:"pools"`
	Combo   *performance.ComboResult `yaml:"combo,omitempty" json:"combo,omitempty"`
}

type SimulationEngineV1 struct {
	config        SimulationEngineV1Config
	log           *logger.Logger
	dataPath      string
	signalPath    string
	resultsFolder string
	datasource    datasource.DataSource
	state         *BacktestState
	tradeLog      *BacktestLog
	sink          optional.Option[engine.EventSink]
	gate          optional.Option[performance.Gate]
	metrics       *metrics.Metrics
	generator     *TradeItemGenerator
	results       []RunResult
	combined      optional.Option[CombinedReport]
}

func NewSimulationEngineV1() engine.Engine {
	return &SimulationEngineV1{
		config:     DefaultConfig(),
		log:        nil,
		datasource: nil,
		state:      nil,
		tradeLog:   nil,
		sink:       optional.None[engine.EventSink](),
		gate:       optional.None[performance.Gate](),
		metrics:    nil,
		generator:  nil,
		results:    nil,
		combined:   optional.None[CombinedReport](),
	}
}

// NewSimulationEngine creates an initialized engine from a parsed config.
func NewSimulationEngine(config SimulationEngineV1Config, log *logger.Logger) (*SimulationEngineV1, error) {
	b := NewSimulationEngineV1().(*SimulationEngineV1)
	if err := b.setup(config, log); err != nil {
		return nil, err
	}

	return b, nil
}

// Initialize implements engine.Engine.
func (b *SimulationEngineV1) Initialize(config string) error {
	parsed, err := ParseConfig([]byte(config))
	if err != nil {
		return err
	}

	log, err := logger.NewLogger()
	if err != nil {
		return errors.Wrap(errors.ErrCodeInitFailed, "failed to create logger", err)
	}

	if err := b.setup(parsed, log); err != nil {
		return err
	}

	b.log.Debug("Simulation engine initialized",
		zap.String("config", config),
	)

	return nil
}

func (b *SimulationEngineV1) setup(config SimulationEngineV1Config, log *logger.Logger) error {
	if err := config.Validate(); err != nil {
		return err
	}

	b.config = config
	b.log = log
	b.generator = NewTradeItemGenerator(config, log)

	var err error

	b.state, err = NewBacktestState(log)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInitFailed, "failed to create result store", err)
	}

	if err := b.state.Initialize(); err != nil {
		return errors.Wrap(errors.ErrCodeInitFailed, "failed to initialize result store", err)
	}

	b.tradeLog, err = NewBacktestLog(log)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInitFailed, "failed to create trade log", err)
	}

	return nil
}

// SetDataPath implements engine.Engine.
func (b *SimulationEngineV1) SetDataPath(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidParameter, err, "invalid data path %s", path)
	}

	b.dataPath = absPath
	b.debug("Data path set", zap.String("path", absPath))

	return nil
}

// SetSignalPath implements engine.Engine.
func (b *SimulationEngineV1) SetSignalPath(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidParameter, err, "invalid signal path %s", path)
	}

	b.signalPath = absPath
	b.debug("Signal path set", zap.String("path", absPath))

	return nil
}

// SetResultsFolder implements engine.Engine.
func (b *SimulationEngineV1) SetResultsFolder(folder string) error {
	b.resultsFolder = folder
	b.debug("Results folder set", zap.String("folder", folder))

	return nil
}

// SetDataSource implements engine.Engine.
func (b *SimulationEngineV1) SetDataSource(dataSource datasource.DataSource) error {
	b.datasource = dataSource

	return nil
}

// SetEventSink implements engine.Engine.
func (b *SimulationEngineV1) SetEventSink(sink engine.EventSink) error {
	if sink == nil {
		return errors.New(errors.ErrCodeInvalidParameter, "event sink is nil")
	}

	b.sink = optional.Some(sink)

	return nil
}

// SetComboGate implements engine.Engine.
func (b *SimulationEngineV1) SetComboGate(gate performance.Gate) error {
	if gate == nil {
		return errors.New(errors.ErrCodeInvalidParameter, "combo gate is nil")
	}

	b.gate = optional.Some(gate)

	return nil
}

// SetMetrics implements engine.Engine.
func (b *SimulationEngineV1) SetMetrics(m *metrics.Metrics) error {
	b.metrics = m

	return nil
}

// Results returns the results of the last Run.
func (b *SimulationEngineV1) Results() []RunResult {
	return b.results
}

// Combined returns the cross rule report of the last Run.
func (b *SimulationEngineV1) Combined() optional.Option[CombinedReport] {
	return b.combined
}

// GetConfigSchema implements engine.Engine.
func (b *SimulationEngineV1) GetConfigSchema() (string, error) {
	config := b.config

	schema, err := config.GenerateSchemaJSON()
	if err != nil {
		return "", fmt.Errorf("failed to generate schema: %w", err)
	}

	return schema, nil
}

// Close implements engine.Engine.
func (b *SimulationEngineV1) Close() error {
	var firstErr error

	if b.tradeLog != nil {
		if err := b.tradeLog.Close(); err != nil {
			firstErr = err
		}
	}

	if b.state != nil {
		if err := b.state.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

// Simulate executes one run: trade items, then the ledger replay, then the
// statistics. It does not touch the result store or any sink.
func (b *SimulationEngineV1) Simulate(ctx context.Context, input RunInput) (result RunResult, err error) {
	if b.generator == nil {
		return RunResult{}, errors.New(errors.ErrCodeNotInitialized, "simulation engine is not initialized")
	}

	defer func() {
		b.metrics.ObserveRun(err)
	}()

	runID := input.RunID
	if runID == "" {
		runID = uuid.New().String()
	}

	for symbol, series := range input.Series {
		if err := series.Validate(); err != nil {
			return RunResult{}, errors.Wrapf(errors.GetCode(err), err, "invalid series %s", symbol)
		}
	}

	groups, err := b.generator.GenerateAll(ctx, input.Series, input.Signals)
	if err != nil {
		return RunResult{}, err
	}

	events := FlattenTradeItems(groups)
	SortEvents(events)

	var ledger *Ledger

	if input.Resume.IsSome() {
		snapshot := input.Resume.Unwrap()

		ledger, err = RestoreLedger(runID, snapshot, b.config, b.log)
		if err != nil {
			return RunResult{}, err
		}

		events = eventsAfterSnapshot(events, snapshot)
	} else {
		ledger = NewLedger(runID, b.config, b.log)
	}

	replayStart := time.Now()

	replay, err := ledger.Apply(events)
	if err != nil {
		return RunResult{}, err
	}

	b.metrics.ObserveReplay(time.Since(replayStart))
	b.metrics.ObserveTrades(ruleName(input.Rule), replay.Trades)

	result = b.buildResult(runID, input, groups, replay)

	b.log.Debug("Run finished",
		zap.String("run_id", runID),
		zap.String("rule", ruleName(input.Rule)),
		zap.Int("events", len(events)),
		zap.Int("trades", len(replay.Trades)),
		zap.Float64("total_return", result.TotalReturn),
	)

	return result, nil
}

// SimulateMany executes independent runs in parallel. Results keep the order of inputs.
func (b *SimulationEngineV1) SimulateMany(ctx context.Context, inputs []RunInput) ([]RunResult, error) {
	return b.simulateAll(ctx, inputs, engine.LifecycleCallbacks{})
}

func (b *SimulationEngineV1) simulateAll(ctx context.Context, inputs []RunInput, callbacks engine.LifecycleCallbacks) ([]RunResult, error) {
	inputs = append([]RunInput(nil), inputs...)
	results := make([]RunResult, len(inputs))

	var (
		mu        sync.Mutex
		completed int
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(runtime.NumCPU())

	for i := range inputs {
		if inputs[i].RunID == "" {
			inputs[i].RunID = uuid.New().String()
		}

		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}

			input := inputs[i]

			if callbacks.OnRunStart != nil {
				mu.Lock()
				err := (*callbacks.OnRunStart)(input.RunID, ruleName(input.Rule), len(input.Signals.Symbols()))
				mu.Unlock()

				if err != nil {
					return errors.Wrap(errors.ErrCodeCallbackFailed, "run start callback failed", err)
				}
			}

			result, err := b.Simulate(groupCtx, input)
			if err != nil {
				return err
			}

			results[i] = result

			mu.Lock()
			defer mu.Unlock()

			completed++

			if callbacks.OnProcessData != nil {
				if err := (*callbacks.OnProcessData)(completed, len(inputs)); err != nil {
					return errors.Wrap(errors.ErrCodeCallbackFailed, "progress callback failed", err)
				}
			}

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// Run implements engine.Engine.
func (b *SimulationEngineV1) Run(ctx context.Context, callbacks engine.LifecycleCallbacks) (err error) {
	defer func() {
		if callbacks.OnSimulationEnd != nil {
			(*callbacks.OnSimulationEnd)(err)
		}
	}()

	if err := b.preRunCheck(); err != nil {
		return err
	}

	ds, closeDataSource, err := b.openDataSource()
	if err != nil {
		return err
	}
	defer closeDataSource()

	inputs, instrumentCount, err := b.loadInputs(ds)
	if err != nil {
		return err
	}

	if callbacks.OnSimulationStart != nil {
		if err := (*callbacks.OnSimulationStart)(len(inputs), instrumentCount); err != nil {
			return errors.Wrap(errors.ErrCodeCallbackFailed, "simulation start callback failed", err)
		}
	}

	// clean the results folder
	if _, err := os.Stat(b.resultsFolder); err == nil {
		if err := os.RemoveAll(b.resultsFolder); err != nil {
			return fmt.Errorf("failed to clean results folder: %w", err)
		}
	}

	if err := os.MkdirAll(b.resultsFolder, 0755); err != nil {
		return fmt.Errorf("failed to create results folder: %w", err)
	}

	if err := b.state.Cleanup(); err != nil {
		return fmt.Errorf("failed to cleanup result store: %w", err)
	}

	if err := b.tradeLog.Cleanup(); err != nil {
		return fmt.Errorf("failed to cleanup trade log: %w", err)
	}

	results, err := b.simulateAll(ctx, inputs, callbacks)
	if err != nil {
		return err
	}

	now := time.Now()
	summaries := make([]types.RunSummary, 0, len(results))

	rules := make([]string, len(results))
	for i, result := range results {
		rules[i] = result.Rule
	}

	folderNames := ruleFolderNames(rules)

	for _, result := range results {
		if err := ctx.Err(); err != nil {
			return err
		}

		folder := getResultFolder(b.resultsFolder, folderNames[result.Rule], b.config)

		summary, err := b.persist(ctx, result, folder, now)
		if err != nil {
			return err
		}

		summaries = append(summaries, summary)

		if callbacks.OnRunEnd != nil {
			(*callbacks.OnRunEnd)(result.RunID, ruleName(result.Rule), folder)
		}
	}

	if err := types.WriteRunSummaries(filepath.Join(b.resultsFolder, "summary.yaml"), summaries); err != nil {
		return err
	}

	combined := b.combine(results)
	if err := writeYAML(filepath.Join(b.resultsFolder, "combined.yaml"), combined); err != nil {
		return err
	}

	b.results = results
	b.combined = optional.Some(combined)

	return nil
}

// persist writes a run to the result store, the trade log and its result folder,
// then hands its trades to the event sink. On failure the run is removed from the
// result store and the trade log again, so they never hold a run without its summary.
// The event sink is external and retries are left to the caller.
func (b *SimulationEngineV1) persist(ctx context.Context, result RunResult, folder string, timestamp time.Time) (summary types.RunSummary, err error) {
	defer func() {
		if err != nil {
			b.discardRun(result.RunID)
		}
	}()

	trades := result.Ledger.Trades

	if err := b.state.Append(ctx, result.RunID, trades); err != nil {
		return types.RunSummary{}, err
	}

	if err := b.tradeLog.Append(ctx, result.RunID, trades); err != nil {
		return types.RunSummary{}, err
	}

	tradesPath, err := b.state.Write(folder, result.RunID)
	if err != nil {
		return types.RunSummary{}, fmt.Errorf("failed to write trades: %w", err)
	}

	if err := b.tradeLog.Write(folder, result.RunID); err != nil {
		return types.RunSummary{}, fmt.Errorf("failed to write logs: %w", err)
	}

	if err := writeJSON(filepath.Join(folder, "earning_info.json"), result.EarningInfo); err != nil {
		return types.RunSummary{}, err
	}

	if err := writeJSON(filepath.Join(folder, "snapshot.json"), result.Ledger.Snapshot); err != nil {
		return types.RunSummary{}, err
	}

	if err := writeYAML(filepath.Join(folder, "instruments.yaml"), result.Instruments); err != nil {
		return types.RunSummary{}, err
	}

	summary = result.Summary(timestamp, b.dataPath, tradesPath)

	if err := b.state.SaveRun(ctx, summary); err != nil {
		return types.RunSummary{}, err
	}

	if b.sink.IsSome() {
		if err := b.sink.Unwrap().Append(ctx, result.RunID, trades); err != nil {
			return types.RunSummary{}, errors.Wrap(errors.ErrCodeSinkFailed, "event sink rejected trades", err)
		}
	}

	b.log.Info("Run written",
		zap.String("run_id", result.RunID),
		zap.String("rule", summary.Rule),
		zap.String("status", string(summary.Status)),
		zap.String("folder", folder),
	)

	return summary, nil
}

// discardRun removes a run that failed to persist from the local stores.
func (b *SimulationEngineV1) discardRun(runID string) {
	ctx := context.Background()

	if err := b.state.DeleteRun(ctx, runID); err != nil {
		b.log.Warn("Failed to discard run from result store", zap.String("run_id", runID), zap.Error(err))
	}

	if err := b.tradeLog.DeleteRun(ctx, runID); err != nil {
		b.log.Warn("Failed to discard run from trade log", zap.String("run_id", runID), zap.Error(err))
	}
}

// combine merges the pool records of every run and, when a gate is set,
// selects the combo across rules.
func (b *SimulationEngineV1) combine(results []RunResult) CombinedReport {
	pools := make([]performance.PoolRecord, 0, len(results))
	contributors := make([]performance.Contributor, 0, len(results))

	for _, result := range results {
		pools = append(pools, performance.PoolRecord{
			Pool:            ruleName(result.Rule),
			Record:          result.Pool,
			InstrumentCount: len(result.Instruments),
		})

		contributors = append(contributors, performance.ContributorFromEarningInfo(ruleName(result.Rule), result.EarningInfo))
	}

	report := CombinedReport{
		Overall: performance.CombineByInstrumentCount(pools),
		Pools:   pools,
	}

	if b.gate.IsSome() {
		combo := performance.SelectCombo(contributors, b.gate.Unwrap(), b.config.InitialCapital, b.performanceOptions())
		report.Combo = &combo
	}

	return report
}

func (b *SimulationEngineV1) buildResult(runID string, input RunInput, groups []InstrumentTradeItems, replay LedgerResult) RunResult {
	opts := b.performanceOptions()
	latest := input.AsOf
	if latest.IsNone() {
		latest = latestDate(input.Series)
	}

	info := performance.BuildEarningInfo(replay.Returns, replay.SellDates, replay.BuyDates, replay.AssetCurve)
	finalAssets := replay.Snapshot.AssetValue()
	initial := b.config.InitialCash()

	result := RunResult{
		RunID:              runID,
		Rule:               input.Rule,
		LastIndicatingDate: lastIndicatingDate(groups),
		LatestDate:         latest,
		InitialCapital:     b.config.InitialCapital,
		FinalAssets:        utils.RoundToDecimalPrecision(finalAssets.InexactFloat64(), 2),
		Performance:        performance.Summarize(replay.Returns, replay.SellDates, opts),
		Instruments:        instrumentRecords(groups, replay.Trades, opts),
		EarningInfo:        info,
		Ledger:             replay,
		Items:              groups,
		Unresolved:         len(replay.Snapshot.Positions),
	}

	if initial.IsPositive() {
		result.TotalReturn = utils.RoundToDecimalPrecision(finalAssets.Sub(initial).Mul(hundred).Div(initial).InexactFloat64(), 2)
	}

	if latest.IsSome() {
		asOf := latest.Unwrap()
		result.Recent = performance.RecentStats(info, asOf, b.config.RecentWindowDays, opts)

		if firstBuy := earliest(replay.BuyDates); firstBuy.IsSome() {
			result.AnnualizedReturn = performance.AnnualizedReturn(firstBuy.Unwrap(), result.TotalReturn, asOf)
		}
	}

	records := make([]types.PerformanceRecord, 0, len(result.Instruments))
	for _, symbol := range sortedKeys(result.Instruments) {
		records = append(records, result.Instruments[symbol])
	}

	result.Pool = performance.CombineByTradeCount(records)
	result.Status = runStatus(result.Unresolved, input)

	return result
}

func (b *SimulationEngineV1) performanceOptions() performance.Options {
	return performance.Options{
		RiskFreeRatePct:    b.config.RiskFreeRatePct,
		TradingDaysPerYear: b.config.TradingDaysPerYear,
	}
}

// openDataSource returns the configured data source, or opens an in-memory one
// on the data and signal paths. The returned func closes what was opened here.
func (b *SimulationEngineV1) openDataSource() (datasource.DataSource, func(), error) {
	ds := b.datasource
	closeFn := func() {}

	if ds == nil {
		var err error

		ds, err = datasource.NewDataSource(":memory:", b.log)
		if err != nil {
			return nil, nil, err
		}

		closeFn = func() {
			if err := ds.Close(); err != nil {
				b.log.Warn("Failed to close data source", zap.Error(err))
			}
		}
	}

	if b.dataPath != "" {
		if err := ds.Initialize(b.dataPath); err != nil {
			closeFn()

			return nil, nil, err
		}
	}

	if b.signalPath != "" {
		if err := ds.LoadSignals(b.signalPath); err != nil {
			closeFn()

			return nil, nil, err
		}
	}

	return ds, closeFn, nil
}

// loadInputs builds one run per signal rule over the full market data.
func (b *SimulationEngineV1) loadInputs(ds datasource.DataSource) ([]RunInput, int, error) {
	series, err := ds.ReadAllSeries()
	if err != nil {
		return nil, 0, err
	}

	asOf, err := ds.LatestDate()
	if err != nil {
		return nil, 0, err
	}

	rules, err := ds.GetRules()
	if err != nil {
		return nil, 0, err
	}

	if len(rules) == 0 {
		return nil, 0, errors.New(errors.ErrCodeNoSignals, "no signals loaded")
	}

	inputs := make([]RunInput, 0, len(rules))

	for _, rule := range rules {
		signals, err := ds.ReadSignals(optional.Some(rule))
		if err != nil {
			return nil, 0, err
		}

		inputs = append(inputs, RunInput{
			Rule:    rule,
			Series:  series,
			Signals: signals,
			Resume:  optional.None[types.LedgerSnapshot](),
			AsOf:    asOf,
		})
	}

	return inputs, len(series), nil
}

func (b *SimulationEngineV1) preRunCheck() error {
	if b.generator == nil || b.state == nil || b.tradeLog == nil {
		return errors.New(errors.ErrCodeNotInitialized, "simulation engine is not initialized")
	}

	if b.datasource == nil && b.dataPath == "" {
		b.log.Error("No data path set")

		return errors.New(errors.ErrCodeMissingParameter, "no data path set")
	}

	if b.datasource == nil && b.signalPath == "" {
		b.log.Error("No signal path set")

		return errors.New(errors.ErrCodeMissingParameter, "no signal path set")
	}

	if b.resultsFolder == "" {
		b.log.Error("No results folder set")

		return errors.New(errors.ErrCodeMissingParameter, "no results folder set")
	}

	return nil
}

func (b *SimulationEngineV1) debug(msg string, fields ...zap.Field) {
	if b.log != nil {
		b.log.Debug(msg, fields...)
	}
}

// eventsAfterSnapshot drops the events a restored ledger has already applied.
func eventsAfterSnapshot(events []TradeEvent, snapshot types.LedgerSnapshot) []TradeEvent {
	n := len(snapshot.AssetCurve)
	if n == 0 {
		return events
	}

	last := snapshot.AssetCurve[n-1].Date
	kept := make([]TradeEvent, 0, len(events))

	for _, event := range events {
		if event.Date.After(last) {
			kept = append(kept, event)
		}
	}

	return kept
}

// instrumentRecords summarizes the realized returns of every instrument that has trade items.
func instrumentRecords(groups []InstrumentTradeItems, trades []types.ExecutedTrade, opts performance.Options) map[string]types.PerformanceRecord {
	returns := make(map[string][]float64)
	sellDates := make(map[string][]time.Time)

	for _, trade := range trades {
		if trade.Type != types.TradeTypeSell || trade.Return.IsNone() {
			continue
		}

		returns[trade.Symbol] = append(returns[trade.Symbol], trade.Return.Unwrap())
		sellDates[trade.Symbol] = append(sellDates[trade.Symbol], trade.Date)
	}

	records := make(map[string]types.PerformanceRecord)

	for _, group := range groups {
		if len(group.Items) == 0 {
			continue
		}

		records[group.Symbol] = performance.Summarize(returns[group.Symbol], sellDates[group.Symbol], opts)
	}

	return records
}

// runStatus reports holding before indicating before running.
func runStatus(openPositions int, input RunInput) types.RunStatus {
	if openPositions > 0 {
		return types.RunStatusHolding
	}

	for _, symbol := range input.Signals.Symbols() {
		series, ok := input.Series[symbol]
		if !ok {
			continue
		}

		if series.IsIndicating(input.Signals.DatesFor(symbol), 1) {
			return types.RunStatusIndicating
		}
	}

	return types.RunStatusRunning
}

func lastIndicatingDate(groups []InstrumentTradeItems) optional.Option[time.Time] {
	var last time.Time

	for _, group := range groups {
		for _, item := range group.Items {
			if item.IndicatingDate.After(last) {
				last = item.IndicatingDate
			}
		}
	}

	if last.IsZero() {
		return optional.None[time.Time]()
	}

	return optional.Some(last)
}

func latestDate(series map[string]types.PriceSeries) optional.Option[time.Time] {
	var latest time.Time

	for _, s := range series {
		if date := s.LatestDate(); date.IsSome() && date.Unwrap().After(latest) {
			latest = date.Unwrap()
		}
	}

	if latest.IsZero() {
		return optional.None[time.Time]()
	}

	return optional.Some(types.TruncateToDay(latest))
}

func earliest(dates []time.Time) optional.Option[time.Time] {
	if len(dates) == 0 {
		return optional.None[time.Time]()
	}

	first := dates[0]
	for _, d := range dates[1:] {
		if d.Before(first) {
			first = d
		}
	}

	return optional.Some(first)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}

	return nil
}

func writeYAML(path string, value any) error {
	data, err := yaml.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}

	return nil
}
