package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rxtech-lab/argo-settlement/internal/types"
	"github.com/rxtech-lab/argo-settlement/mocks"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
)

// marketOptions holds the resolved flag values of one invocation.
type marketOptions struct {
	Symbols           []string
	Start             time.Time
	Days              int
	Seed              int64
	InitialPrice      float64
	Volatility        float64
	PriceLimitPct     float64
	SignalProbability float64
	Rules             []string
	Writer            MarketWriter
	DataPath          string
	ShowProgress      bool
}

// marketOutput is the pair of files written by generateMarket.
type marketOutput struct {
	BarsPath    string
	SignalsPath string
	Bars        int
	Signals     int
}

// generateMarket writes synthetic daily bars and signals for every symbol and rule.
func generateMarket(opts marketOptions) (marketOutput, error) {
	if len(opts.Symbols) == 0 {
		return marketOutput{}, fmt.Errorf("at least one symbol is required")
	}

	if opts.Days <= 0 {
		return marketOutput{}, fmt.Errorf("days must be positive, got %d", opts.Days)
	}

	if opts.SignalProbability < 0 || opts.SignalProbability > 1 {
		return marketOutput{}, fmt.Errorf("signal probability must be within [0, 1], got %v", opts.SignalProbability)
	}

	if err := os.MkdirAll(opts.DataPath, 0755); err != nil {
		return marketOutput{}, fmt.Errorf("failed to create data directory: %w", err)
	}

	output := marketOutput{
		BarsPath:    filepath.Join(opts.DataPath, "bars.parquet"),
		SignalsPath: filepath.Join(opts.DataPath, "signals.parquet"),
	}

	barWriter, signalWriter, err := newWriters(opts.Writer, output.BarsPath, output.SignalsPath)
	if err != nil {
		return marketOutput{}, err
	}

	if err := barWriter.Initialize(); err != nil {
		return marketOutput{}, fmt.Errorf("failed to initialize bar writer: %w", err)
	}
	defer barWriter.Close()

	if err := signalWriter.Initialize(); err != nil {
		return marketOutput{}, fmt.Errorf("failed to initialize signal writer: %w", err)
	}
	defer signalWriter.Close()

	generator := mocks.NewDataGenerator(opts.Seed)
	config := mocks.DefaultConfig()
	config.StartDate = types.TruncateToDay(opts.Start)
	config.Count = opts.Days

	if opts.InitialPrice > 0 {
		config.InitialPrice = opts.InitialPrice
	}

	if opts.Volatility > 0 {
		config.Volatility = opts.Volatility
	}

	if opts.PriceLimitPct > 0 {
		config.PriceLimitPct = opts.PriceLimitPct
	}

	var bar *progressbar.ProgressBar
	if opts.ShowProgress {
		bar = progressbar.NewOptions(len(opts.Symbols),
			progressbar.OptionSetDescription("Generating"),
			progressbar.OptionShowCount())
	}

	for _, symbol := range opts.Symbols {
		bars := generator.GenerateMultiSymbol([]string{symbol}, config)

		for _, b := range bars {
			if err := barWriter.Write(b); err != nil {
				return marketOutput{}, fmt.Errorf("failed to write bar: %w", err)
			}
		}

		output.Bars += len(bars)

		for _, rule := range opts.Rules {
			signals := generator.GenerateSignals(bars, opts.SignalProbability, rule)

			for _, s := range signals {
				if err := signalWriter.Write(s); err != nil {
					return marketOutput{}, fmt.Errorf("failed to write signal: %w", err)
				}
			}

			output.Signals += len(signals)
		}

		if bar != nil {
			_ = bar.Add(1)
		}
	}

	if _, err := barWriter.Finalize(); err != nil {
		return marketOutput{}, fmt.Errorf("failed to finalize bars: %w", err)
	}

	if _, err := signalWriter.Finalize(); err != nil {
		return marketOutput{}, fmt.Errorf("failed to finalize signals: %w", err)
	}

	return output, nil
}

// splitList splits a comma separated flag value and drops empty entries.
func splitList(value string) []string {
	items := make([]string, 0)

	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			items = append(items, item)
		}
	}

	return items
}

// marketAction is the core logic executed by the CLI command.
func marketAction(ctx context.Context, cmd *cli.Command) error {
	if provider := cmd.String("provider"); provider != MarketProviderSynthetic {
		return fmt.Errorf("unsupported provider: %s", provider)
	}

	opts := marketOptions{
		Symbols:           splitList(cmd.String("symbols")),
		Start:             cmd.Timestamp("start"),
		Days:              int(cmd.Int("days")),
		Seed:              int64(cmd.Int("seed")),
		InitialPrice:      cmd.Float("price"),
		Volatility:        cmd.Float("volatility"),
		PriceLimitPct:     cmd.Float("limit"),
		SignalProbability: cmd.Float("signal-probability"),
		Rules:             splitList(cmd.String("rules")),
		Writer:            cmd.String("writer"),
		DataPath:          cmd.String("data"),
		ShowProgress:      true,
	}

	log.Printf("Generating %d days for %d symbols from %s...",
		opts.Days, len(opts.Symbols), opts.Start.Format(types.DateLayout))

	output, err := generateMarket(opts)
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	log.Printf("Wrote %d bars to %s and %d signals to %s", output.Bars, output.BarsPath, output.Signals, output.SignalsPath)

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "market",
		Usage: "Generate synthetic daily bars and signals",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "symbols",
				Aliases:  []string{"t"},
				Usage:    "Comma separated instrument symbols",
				Required: true,
			},
			&cli.TimestampFlag{
				Name:    "start",
				Aliases: []string{"s"},
				Usage:   "First trading day in `YYYY-MM-DD` format",
				Value:   time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02"},
				},
			},
			&cli.IntFlag{
				Name:  "days",
				Usage: "Number of trading days per symbol",
				Value: 250,
			},
			&cli.IntFlag{
				Name:  "seed",
				Usage: "Random seed",
				Value: 42,
			},
			&cli.FloatFlag{
				Name:  "price",
				Usage: "Initial price",
				Value: 10,
			},
			&cli.FloatFlag{
				Name:  "volatility",
				Usage: "Daily volatility of the close",
				Value: 0.02,
			},
			&cli.FloatFlag{
				Name:  "limit",
				Usage: "Daily price limit in percent",
				Value: 10,
			},
			&cli.FloatFlag{
				Name:  "signal-probability",
				Usage: "Probability that a bar carries a signal",
				Value: 0.05,
			},
			&cli.StringFlag{
				Name:  "rules",
				Usage: "Comma separated rule names attached to the signals",
				Value: "default",
			},
			&cli.StringFlag{
				Name:    "provider",
				Aliases: []string{"p"},
				Usage:   fmt.Sprintf("Data provider to use (e.g., %s)", MarketProviderSynthetic),
				Value:   MarketProviderSynthetic,
			},
			&cli.StringFlag{
				Name:    "writer",
				Aliases: []string{"w"},
				Usage:   fmt.Sprintf("Data writer format (e.g., %s)", MarketWriterDuckDB),
				Value:   MarketWriterDuckDB,
			},
			&cli.StringFlag{
				Name:    "data",
				Aliases: []string{"d"},
				Usage:   "Path to the data output directory",
				Value:   "data",
			},
		},
		Action: marketAction,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
