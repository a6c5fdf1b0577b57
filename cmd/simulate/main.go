package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/rxtech-lab/argo-settlement/internal/backtest/engine"
	engine_v1 "github.com/rxtech-lab/argo-settlement/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/argo-settlement/internal/logger"
	"github.com/rxtech-lab/argo-settlement/internal/metrics"
	"github.com/rxtech-lab/argo-settlement/internal/performance"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// simulateOptions holds the resolved flag values of one invocation.
type simulateOptions struct {
	ConfigPath    string
	DataPath      string
	SignalPath    string
	ResultsFolder string
	Gate          string
	K             int
	MetricsAddr   string
	LogLevel      string
	ShowProgress  bool
}

// newLogger builds the CLI logger. An empty level means info.
func newLogger(level string) (*logger.Logger, error) {
	if level == "" {
		return logger.NewLogger()
	}

	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	return logger.NewLoggerWithLevel(parsed)
}

// loadConfig reads the config file, or returns the defaults when path is empty.
func loadConfig(path string) (engine_v1.SimulationEngineV1Config, error) {
	if path == "" {
		return engine_v1.DefaultConfig(), nil
	}

	return engine_v1.LoadConfig(path)
}

// runSimulation wires the engine from options and runs every rule found in the signals.
func runSimulation(ctx context.Context, opts simulateOptions) error {
	appLogger, err := newLogger(opts.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = appLogger.Sync() }()

	config, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}

	simulation, err := engine_v1.NewSimulationEngine(config, appLogger)
	if err != nil {
		return fmt.Errorf("failed to initialize simulation engine: %w", err)
	}
	defer simulation.Close()

	if err := simulation.SetDataPath(opts.DataPath); err != nil {
		return err
	}

	if err := simulation.SetSignalPath(opts.SignalPath); err != nil {
		return err
	}

	if err := simulation.SetResultsFolder(opts.ResultsFolder); err != nil {
		return err
	}

	if opts.Gate != "" {
		gate, err := performance.GateByName(opts.Gate, opts.K)
		if err != nil {
			return err
		}

		if err := simulation.SetComboGate(gate); err != nil {
			return err
		}
	}

	if opts.MetricsAddr != "" {
		m := metrics.New()

		srv, err := m.Serve(opts.MetricsAddr, appLogger)
		if err != nil {
			return err
		}
		defer srv.Close()

		if err := simulation.SetMetrics(m); err != nil {
			return err
		}
	}

	var bar *progressbar.ProgressBar

	onStart := engine.OnSimulationStartCallback(func(totalRuns int, totalInstruments int) error {
		appLogger.Info("Simulating",
			zap.Int("rules", totalRuns),
			zap.Int("instruments", totalInstruments),
		)

		if opts.ShowProgress {
			bar = progressbar.NewOptions(totalRuns, progressbar.OptionSetDescription("Simulating"), progressbar.OptionShowCount())
		}

		return nil
	})

	onProcess := engine.OnProcessDataCallback(func(current int, total int) error {
		if bar != nil {
			return bar.Set(current)
		}

		return nil
	})

	onRunEnd := engine.OnRunEndCallback(func(runID string, rule string, resultFolderPath string) {
		appLogger.Info("Rule written",
			zap.String("rule", rule),
			zap.String("run_id", runID),
			zap.String("folder", resultFolderPath),
		)
	})

	return simulation.Run(ctx, engine.LifecycleCallbacks{
		OnSimulationStart: &onStart,
		OnProcessData:     &onProcess,
		OnRunEnd:          &onRunEnd,
	})
}

// simulateAction is the core logic executed by the CLI command.
func simulateAction(ctx context.Context, cmd *cli.Command) error {
	opts := simulateOptions{
		ConfigPath:    cmd.String("config"),
		DataPath:      cmd.String("data"),
		SignalPath:    cmd.String("signals"),
		ResultsFolder: cmd.String("results"),
		Gate:          cmd.String("gate"),
		K:             int(cmd.Int("k")),
		MetricsAddr:   cmd.String("metrics-addr"),
		LogLevel:      cmd.String("log-level"),
		ShowProgress:  !cmd.Bool("no-progress"),
	}

	if err := runSimulation(ctx, opts); err != nil {
		return fmt.Errorf("simulation failed: %w", err)
	}

	log.Printf("Simulation completed, results in %s", opts.ResultsFolder)

	return nil
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "simulate",
		Usage: "Replay trade signals against daily bars and settle them on a shared cash ledger",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the simulation config YAML. Defaults apply when omitted",
			},
			&cli.StringFlag{
				Name:     "data",
				Aliases:  []string{"d"},
				Usage:    "Parquet or CSV file with daily bars (time, symbol, open, high, low, close, volume)",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "signals",
				Aliases:  []string{"s"},
				Usage:    "Parquet or CSV file with signals (time, symbol, optional rule)",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "results",
				Aliases: []string{"r"},
				Usage:   "Output directory. It is cleared before the run",
				Value:   "results",
			},
			&cli.StringFlag{
				Name:  "gate",
				Usage: fmt.Sprintf("Combo gate across rules (%s or %s). Empty disables the combo", performance.GateAbove20, performance.GateBestK),
			},
			&cli.IntFlag{
				Name:  "k",
				Usage: "Number of rules admitted by the best_k gate",
				Value: 3,
			},
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "Serve Prometheus metrics on this address, e.g. :9090",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error)",
				Value: "info",
			},
			&cli.BoolFlag{
				Name:  "no-progress",
				Usage: "Disable the progress bar",
			},
		},
		Action: simulateAction,
	}
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
