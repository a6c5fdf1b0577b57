package main

import (
	"fmt"

	"github.com/rxtech-lab/argo-settlement/pkg/marketdata/writer"
)

type MarketProvider = string

const (
	MarketProviderSynthetic MarketProvider = "synthetic"
)

type MarketWriter = string

const (
	MarketWriterDuckDB MarketWriter = "duckdb"
)

// newWriters returns the bar and signal writers for the given writer type.
func newWriters(writerType MarketWriter, barsPath string, signalsPath string) (writer.MarketDataWriter, writer.SignalWriter, error) {
	switch writerType {
	case MarketWriterDuckDB:
		return writer.NewDuckDBWriter(barsPath), writer.NewDuckDBSignalWriter(signalsPath), nil
	default:
		return nil, nil, fmt.Errorf("unsupported writer: %s", writerType)
	}
}
