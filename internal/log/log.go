package log

import (
	"strconv"
	"time"

	"github.com/rxtech-lab/argo-settlement/internal/types"
)

// Level is the severity of a trade event log entry.
type Level string

const (
	LevelInfo Level = "info"
	// LevelWarn marks rejected actions: fail_to_buy, not_sufficient_to_buy and fail_to_sell.
	LevelWarn Level = "warn"
)

// LogEntry is one human readable line of the trade event log.
type LogEntry struct {
	// Timestamp is the trading date of the event.
	Timestamp time.Time
	RunID     string
	Symbol    string
	Type      types.TradeType
	Level     Level
	Message   string
	// Fields contains optional structured key-value data.
	Fields map[string]string
}

// Log is the interface for storing trade event logs.
type Log interface {
	// Log stores a log entry.
	Log(entry LogEntry) error
	// GetLogs retrieves the entries of a run in the order they were logged.
	GetLogs(runID string) ([]LogEntry, error)
}

// FromTrade renders an executed trade as a log entry.
func FromTrade(runID string, trade types.ExecutedTrade) LogEntry {
	level := LevelInfo

	switch trade.Type {
	case types.TradeTypeFailToBuy, types.TradeTypeNotSufficientToBuy, types.TradeTypeFailToSell:
		level = LevelWarn
	}

	fields := map[string]string{}
	if trade.Shares > 0 {
		fields["shares"] = strconv.FormatInt(trade.Shares, 10)
	}

	if !trade.Amount.IsZero() {
		fields["amount"] = trade.Amount.StringFixed(2)
	}

	if trade.Reason != "" {
		fields["reason"] = trade.Reason
	}

	return LogEntry{
		Timestamp: types.TruncateToDay(trade.Date),
		RunID:     runID,
		Symbol:    trade.Symbol,
		Type:      trade.Type,
		Level:     level,
		Message:   trade.Message(),
		Fields:    fields,
	}
}
