package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/prometheus/client_golang/prometheus/testutil"
	engine_types "github.com/rxtech-lab/argo-settlement/internal/backtest/engine"
	"github.com/rxtech-lab/argo-settlement/internal/logger"
	"github.com/rxtech-lab/argo-settlement/internal/metrics"
	"github.com/rxtech-lab/argo-settlement/internal/performance"
	"github.com/rxtech-lab/argo-settlement/internal/types"
	"github.com/rxtech-lab/argo-settlement/mocks"
	"github.com/rxtech-lab/argo-settlement/pkg/errors"
	"github.com/rxtech-lab/argo-settlement/pkg/marketdata/writer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"gopkg.in/yaml.v3"
)

func newTestEngine(t *testing.T) *SimulationEngineV1 {
	t.Helper()

	b, err := NewSimulationEngine(TestConfig(), logger.NewNopLogger())
	require.NoError(t, err)

	t.Cleanup(func() {
		b.Close()
	})

	return b
}

func singleRun(rule string, signals []types.Signal, series ...types.PriceSeries) RunInput {
	bySymbol := make(map[string]types.PriceSeries, len(series))
	for _, s := range series {
		bySymbol[s.Symbol] = s
	}

	return RunInput{
		Rule:    rule,
		Series:  bySymbol,
		Signals: types.NewSignalSet(signals),
		Resume:  optional.None[types.LedgerSnapshot](),
	}
}

// profitableSeries buys at 50 on day 1 and sells at 55 on day 2.
func profitableSeries(symbol string) types.PriceSeries {
	return buildSeries(symbol, ohlc{50, 50}, ohlc{50, 51}, ohlc{54, 55})
}

func TestSimulationEngineV1_Simulate(t *testing.T) {
	t.Run("Completed round trip", func(t *testing.T) {
		b := newTestEngine(t)

		result, err := b.Simulate(context.Background(), singleRun("breakout",
			[]types.Signal{{Symbol: "600000", Date: date(0)}},
			profitableSeries("600000"),
		))
		require.NoError(t, err)

		assert.NotEmpty(t, result.RunID)
		assert.Equal(t, types.RunStatusRunning, result.Status)
		assert.Equal(t, date(0), result.LastIndicatingDate.Unwrap())
		assert.Equal(t, date(2), result.LatestDate.Unwrap())
		assert.Equal(t, 51473.5, result.FinalAssets)
		assert.Equal(t, 2.95, result.TotalReturn)
		assert.Equal(t, 1076.75, result.AnnualizedReturn)
		assert.Equal(t, 0, result.Unresolved)

		assert.Equal(t, 9.82, result.Performance.CumulativeReturn)
		assert.Equal(t, 1, result.Performance.TradeCount)
		assert.Equal(t, 100.0, result.Performance.WinRate)
		assert.Nil(t, result.Performance.Sharpe)
		assert.Equal(t, 1, result.Recent.TradeCount)

		require.Len(t, result.Ledger.Trades, 3)
		assert.Equal(t, types.TradeTypeIndicating, result.Ledger.Trades[0].Type)
		assert.Equal(t, types.TradeTypeBuy, result.Ledger.Trades[1].Type)
		assert.Equal(t, types.TradeTypeSell, result.Ledger.Trades[2].Type)

		require.Contains(t, result.Instruments, "600000")
		assert.Equal(t, 1, result.Instruments["600000"].TradeCount)
		assert.Equal(t, 9.82, result.Pool.CumulativeReturn)

		assert.Equal(t, []float64{9.8201}, result.EarningInfo.Returns)
		assert.Len(t, result.EarningInfo.Assets, 2)
	})

	t.Run("Open position reports holding", func(t *testing.T) {
		b := newTestEngine(t)

		series := buildSeries("600000", ohlc{50, 50}, ohlc{50, 49}, ohlc{49, 48.5})
		result, err := b.Simulate(context.Background(), singleRun("",
			[]types.Signal{{Symbol: "600000", Date: date(0)}},
			series,
		))
		require.NoError(t, err)

		assert.Equal(t, types.RunStatusHolding, result.Status)
		assert.Equal(t, 1, result.Unresolved)
		assert.Equal(t, 50000.0, result.FinalAssets)
		assert.Equal(t, 0.0, result.TotalReturn)
		assert.Equal(t, 0, result.Performance.TradeCount)
		require.Len(t, result.Ledger.Snapshot.Positions, 1)
		assert.Equal(t, int64(300), result.Ledger.Snapshot.Positions[0].Shares)
	})

	t.Run("Signal on the latest bar reports indicating", func(t *testing.T) {
		b := newTestEngine(t)

		series := buildSeries("600000", ohlc{50, 50}, ohlc{50, 51})
		result, err := b.Simulate(context.Background(), singleRun("",
			[]types.Signal{{Symbol: "600000", Date: date(1)}},
			series,
		))
		require.NoError(t, err)

		assert.Equal(t, types.RunStatusIndicating, result.Status)
		assert.Equal(t, date(1), result.LastIndicatingDate.Unwrap())
		require.Len(t, result.Items, 1)
		require.Len(t, result.Items[0].Items, 1)
		assert.Equal(t, types.TradeOutcomePending, result.Items[0].Items[0].Outcome)
	})

	t.Run("Resume continues from a snapshot", func(t *testing.T) {
		b := newTestEngine(t)
		signals := []types.Signal{{Symbol: "600000", Date: date(0)}}

		first, err := b.Simulate(context.Background(), singleRun("",
			signals,
			buildSeries("600000", ohlc{50, 50}, ohlc{50, 51}),
		))
		require.NoError(t, err)
		require.Equal(t, types.RunStatusHolding, first.Status)

		input := singleRun("", signals, profitableSeries("600000"))
		input.Resume = optional.Some(first.Ledger.Snapshot)

		resumed, err := b.Simulate(context.Background(), input)
		require.NoError(t, err)

		require.Len(t, resumed.Ledger.Trades, 1)
		assert.Equal(t, types.TradeTypeSell, resumed.Ledger.Trades[0].Type)
		assert.Equal(t, 51473.5, resumed.FinalAssets)
		assert.Equal(t, types.RunStatusRunning, resumed.Status)
	})

	t.Run("Non monotonic series is rejected", func(t *testing.T) {
		b := newTestEngine(t)

		series := buildSeries("600000", ohlc{50, 50}, ohlc{50, 51})
		series.Bars[1].Date = date(0)

		_, err := b.Simulate(context.Background(), singleRun("",
			[]types.Signal{{Symbol: "600000", Date: date(0)}},
			series,
		))
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.ErrCodeNonMonotonicSeries))
	})

	t.Run("Uninitialized engine", func(t *testing.T) {
		b := NewSimulationEngineV1().(*SimulationEngineV1)

		_, err := b.Simulate(context.Background(), RunInput{})
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.ErrCodeNotInitialized))
	})

	t.Run("Metrics are recorded", func(t *testing.T) {
		b := newTestEngine(t)
		m := metrics.New()
		require.NoError(t, b.SetMetrics(m))

		_, err := b.Simulate(context.Background(), singleRun("breakout",
			[]types.Signal{{Symbol: "600000", Date: date(0)}},
			profitableSeries("600000"),
		))
		require.NoError(t, err)

		assert.Equal(t, 1.0, testutil.ToFloat64(m.TradesTotal.WithLabelValues("breakout", "buy")))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.TradesTotal.WithLabelValues("breakout", "sell")))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("ok")))
	})
}

func TestSimulationEngineV1_SimulateMany(t *testing.T) {
	b := newTestEngine(t)

	inputs := []RunInput{
		singleRun("breakout", []types.Signal{{Symbol: "600000", Date: date(0)}}, profitableSeries("600000")),
		singleRun("reversal", nil, profitableSeries("600000")),
	}

	results, err := b.SimulateMany(context.Background(), inputs)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "breakout", results[0].Rule)
	assert.Equal(t, 1, results[0].Performance.TradeCount)
	assert.Equal(t, "reversal", results[1].Rule)
	assert.Equal(t, 0, results[1].Performance.TradeCount)
	assert.Equal(t, 50000.0, results[1].FinalAssets)
	assert.NotEqual(t, results[0].RunID, results[1].RunID)

	// inputs are not modified
	assert.Empty(t, inputs[0].RunID)
}

func writeBarsFile(t *testing.T, path string, series ...types.PriceSeries) {
	t.Helper()

	w := writer.NewDuckDBWriter(path)
	require.NoError(t, w.Initialize())

	for _, s := range series {
		for _, bar := range s.Bars {
			require.NoError(t, w.Write(bar))
		}
	}

	_, err := w.Finalize()
	require.NoError(t, err)
	require.NoError(t, w.Close())
}

func writeSignalsFile(t *testing.T, path string, signals []types.Signal) {
	t.Helper()

	w := writer.NewDuckDBSignalWriter(path)
	require.NoError(t, w.Initialize())

	for _, s := range signals {
		require.NoError(t, w.Write(s))
	}

	_, err := w.Finalize()
	require.NoError(t, err)
	require.NoError(t, w.Close())
}

func TestSimulationEngineV1_Run(t *testing.T) {
	t.Run("Complete execution flow through Run function", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		dataDir := t.TempDir()
		resultsDir := filepath.Join(t.TempDir(), "results")

		barsPath := filepath.Join(dataDir, "bars.parquet")
		signalsPath := filepath.Join(dataDir, "signals.parquet")

		writeBarsFile(t, barsPath, profitableSeries("600000"), buildSeries("000001", ohlc{10, 10}, ohlc{10, 10}, ohlc{10, 10}))
		writeSignalsFile(t, signalsPath, []types.Signal{
			{Symbol: "600000", Date: date(0), Rule: "breakout"},
			{Symbol: "000001", Date: date(0), Rule: "reversal"},
		})

		sink := mocks.NewMockEventSink(ctrl)
		sink.EXPECT().Append(gomock.Any(), gomock.Any(), gomock.Len(3)).Return(nil).Times(2)

		b := newTestEngine(t)
		require.NoError(t, b.SetDataPath(barsPath))
		require.NoError(t, b.SetSignalPath(signalsPath))
		require.NoError(t, b.SetResultsFolder(resultsDir))
		require.NoError(t, b.SetEventSink(sink))
		require.NoError(t, b.SetComboGate(performance.ThresholdGate{MinCumulative: 20, MinWinRate: 70}))

		var (
			startRuns, startInstruments int
			ended                       []string
			progress                    []int
			endErr                      error
			endCalled                   bool
		)

		onStart := engine_types.OnSimulationStartCallback(func(totalRuns int, totalInstruments int) error {
			startRuns, startInstruments = totalRuns, totalInstruments

			return nil
		})
		onRunEnd := engine_types.OnRunEndCallback(func(runID string, rule string, resultFolderPath string) {
			ended = append(ended, rule)
		})
		onProcess := engine_types.OnProcessDataCallback(func(current int, total int) error {
			progress = append(progress, current)

			return nil
		})
		onEnd := engine_types.OnSimulationEndCallback(func(err error) {
			endCalled = true
			endErr = err
		})

		err := b.Run(context.Background(), engine_types.LifecycleCallbacks{
			OnSimulationStart: &onStart,
			OnRunEnd:          &onRunEnd,
			OnProcessData:     &onProcess,
			OnSimulationEnd:   &onEnd,
		})
		require.NoError(t, err)

		assert.Equal(t, 2, startRuns)
		assert.Equal(t, 2, startInstruments)
		assert.ElementsMatch(t, []string{"breakout", "reversal"}, ended)
		assert.ElementsMatch(t, []int{1, 2}, progress)
		assert.True(t, endCalled)
		assert.NoError(t, endErr)

		for _, rule := range []string{"breakout", "reversal"} {
			for _, name := range []string{"trades.parquet", "logs.parquet", "trades.log", "earning_info.json", "snapshot.json", "instruments.yaml"} {
				assert.FileExists(t, filepath.Join(resultsDir, rule, name))
			}
		}

		data, err := os.ReadFile(filepath.Join(resultsDir, "summary.yaml"))
		require.NoError(t, err)

		var summaries []types.RunSummary
		require.NoError(t, yaml.Unmarshal(data, &summaries))
		require.Len(t, summaries, 2)

		results := b.Results()
		require.Len(t, results, 2)

		for _, result := range results {
			trades, err := b.state.GetTrades(result.RunID)
			require.NoError(t, err)
			assert.Len(t, trades, 3)
		}

		runs, err := b.state.CountRuns()
		require.NoError(t, err)
		assert.Equal(t, 2, runs)

		combined := b.Combined()
		require.True(t, combined.IsSome())
		report := combined.Unwrap()
		assert.Len(t, report.Pools, 2)
		require.NotNil(t, report.Combo)
		assert.Equal(t, performance.GateAbove20, report.Combo.Gate)
		assert.FileExists(t, filepath.Join(resultsDir, "combined.yaml"))
	})

	t.Run("Data source takes precedence over paths", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		ds := mocks.NewMockDataSource(ctrl)
		ds.EXPECT().ReadAllSeries().Return(map[string]types.PriceSeries{"600000": profitableSeries("600000")}, nil)
		ds.EXPECT().LatestDate().Return(optional.Some(date(30)), nil)
		ds.EXPECT().GetRules().Return([]string{""}, nil)
		ds.EXPECT().ReadSignals(optional.Some("")).Return(types.NewSignalSet([]types.Signal{{Symbol: "600000", Date: date(0)}}), nil)

		b := newTestEngine(t)
		require.NoError(t, b.SetDataSource(ds))
		require.NoError(t, b.SetResultsFolder(t.TempDir()))

		require.NoError(t, b.Run(context.Background(), engine_types.LifecycleCallbacks{}))

		require.Len(t, b.Results(), 1)
		assert.Equal(t, 9.82, b.Results()[0].Performance.CumulativeReturn)
		assert.Equal(t, optional.Some(date(30)), b.Results()[0].LatestDate)
		assert.Nil(t, b.Combined().Unwrap().Combo)
	})

	t.Run("Sink failure aborts the run", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		ds := mocks.NewMockDataSource(ctrl)
		ds.EXPECT().ReadAllSeries().Return(map[string]types.PriceSeries{"600000": profitableSeries("600000")}, nil)
		ds.EXPECT().LatestDate().Return(optional.None[time.Time](), nil)
		ds.EXPECT().GetRules().Return([]string{"breakout"}, nil)
		ds.EXPECT().ReadSignals(gomock.Any()).Return(types.NewSignalSet([]types.Signal{{Symbol: "600000", Date: date(0)}}), nil)

		sink := mocks.NewMockEventSink(ctrl)
		sink.EXPECT().Append(gomock.Any(), gomock.Any(), gomock.Any()).Return(assert.AnError)

		b := newTestEngine(t)
		require.NoError(t, b.SetDataSource(ds))
		require.NoError(t, b.SetResultsFolder(t.TempDir()))
		require.NoError(t, b.SetEventSink(sink))

		var endErr error

		onEnd := engine_types.OnSimulationEndCallback(func(err error) {
			endErr = err
		})

		var runID string

		onRunStart := engine_types.OnRunStartCallback(func(id string, _ string, _ int) error {
			runID = id

			return nil
		})

		err := b.Run(context.Background(), engine_types.LifecycleCallbacks{OnSimulationEnd: &onEnd, OnRunStart: &onRunStart})
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.ErrCodeSinkFailed))
		assert.Equal(t, err, endErr)

		// the failed run is removed from the local stores
		require.NotEmpty(t, runID)

		runs, err := b.state.CountRuns()
		require.NoError(t, err)
		assert.Equal(t, 0, runs)

		trades, err := b.state.GetTrades(runID)
		require.NoError(t, err)
		assert.Empty(t, trades)

		logs, err := b.tradeLog.GetLogs(runID)
		require.NoError(t, err)
		assert.Empty(t, logs)
	})

	t.Run("Rules with colliding folder names get distinct folders", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		signals := types.NewSignalSet([]types.Signal{{Symbol: "600000", Date: date(0)}})

		ds := mocks.NewMockDataSource(ctrl)
		ds.EXPECT().ReadAllSeries().Return(map[string]types.PriceSeries{"600000": profitableSeries("600000")}, nil)
		ds.EXPECT().LatestDate().Return(optional.None[time.Time](), nil)
		ds.EXPECT().GetRules().Return([]string{"..", "rule a", "rule_a"}, nil)
		ds.EXPECT().ReadSignals(gomock.Any()).Return(signals, nil).Times(3)

		parent := t.TempDir()
		resultsDir := filepath.Join(parent, "results")

		b := newTestEngine(t)
		require.NoError(t, b.SetDataSource(ds))
		require.NoError(t, b.SetResultsFolder(resultsDir))

		folders := make(map[string]string)

		onRunEnd := engine_types.OnRunEndCallback(func(_ string, rule string, folder string) {
			folders[rule] = folder
		})

		require.NoError(t, b.Run(context.Background(), engine_types.LifecycleCallbacks{OnRunEnd: &onRunEnd}))

		assert.Equal(t, map[string]string{
			"..":     filepath.Join(resultsDir, "__"),
			"rule a": filepath.Join(resultsDir, "rule_a"),
			"rule_a": filepath.Join(resultsDir, "rule_a_2"),
		}, folders)

		for _, folder := range folders {
			assert.FileExists(t, filepath.Join(folder, "earning_info.json"))
		}

		assert.NoFileExists(t, filepath.Join(parent, "earning_info.json"))
	})

	t.Run("Start callback error aborts before any run", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		ds := mocks.NewMockDataSource(ctrl)
		ds.EXPECT().ReadAllSeries().Return(map[string]types.PriceSeries{}, nil)
		ds.EXPECT().LatestDate().Return(optional.None[time.Time](), nil)
		ds.EXPECT().GetRules().Return([]string{"breakout"}, nil)
		ds.EXPECT().ReadSignals(gomock.Any()).Return(types.NewSignalSet(nil), nil)

		b := newTestEngine(t)
		require.NoError(t, b.SetDataSource(ds))
		require.NoError(t, b.SetResultsFolder(t.TempDir()))

		onStart := engine_types.OnSimulationStartCallback(func(int, int) error {
			return assert.AnError
		})

		err := b.Run(context.Background(), engine_types.LifecycleCallbacks{OnSimulationStart: &onStart})
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.ErrCodeCallbackFailed))
		assert.Empty(t, b.Results())
	})

	t.Run("Missing inputs", func(t *testing.T) {
		b := newTestEngine(t)

		err := b.Run(context.Background(), engine_types.LifecycleCallbacks{})
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.ErrCodeMissingParameter))

		require.NoError(t, b.SetDataPath("bars.parquet"))
		require.NoError(t, b.SetSignalPath("signals.parquet"))

		err = b.Run(context.Background(), engine_types.LifecycleCallbacks{})
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.ErrCodeMissingParameter))
	})
}

func TestSimulationEngineV1_Initialize(t *testing.T) {
	t.Run("Valid config", func(t *testing.T) {
		b := NewSimulationEngineV1()
		defer b.Close()

		require.NoError(t, b.Initialize("initial_capital: 100000\nmax_holding_days: 3\n"))

		engine := b.(*SimulationEngineV1)
		assert.Equal(t, 100000.0, engine.config.InitialCapital)
		assert.Equal(t, 3, engine.config.MaxHoldingDays)
	})

	t.Run("Invalid config", func(t *testing.T) {
		b := NewSimulationEngineV1()

		err := b.Initialize("max_holding_days: 0\n")
		require.Error(t, err)
	})

	t.Run("Schema", func(t *testing.T) {
		schema, err := NewSimulationEngineV1().GetConfigSchema()
		require.NoError(t, err)
		assert.Contains(t, schema, "initial_capital")
	})

	t.Run("Nil setters are rejected", func(t *testing.T) {
		b := newTestEngine(t)

		assert.Error(t, b.SetEventSink(nil))
		assert.Error(t, b.SetComboGate(nil))
	})
}
