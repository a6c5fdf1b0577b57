package writer

import (
	"github.com/rxtech-lab/argo-settlement/internal/types"
)

// MarketDataWriter defines the interface for writing daily bars to a destination.
type MarketDataWriter interface {
	// Initialize sets up the writer, potentially creating tables or files.
	Initialize() error
	// Write persists a single bar.
	Write(bar types.Bar) error
	// Finalize completes the writing process (e.g., commits transactions, exports files).
	Finalize() (outputPath string, err error)
	// Close releases any resources held by the writer.
	Close() error
	// GetOutputPath returns the configured output file path.
	GetOutputPath() string
}

// SignalWriter defines the interface for writing signals to a destination.
type SignalWriter interface {
	Initialize() error
	Write(signal types.Signal) error
	Finalize() (outputPath string, err error)
	Close() error
	GetOutputPath() string
}
