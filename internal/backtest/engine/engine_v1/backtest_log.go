package engine

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-settlement/internal/log"
	"github.com/rxtech-lab/argo-settlement/internal/logger"
	"github.com/rxtech-lab/argo-settlement/internal/types"
	"github.com/rxtech-lab/argo-settlement/pkg/errors"
	"go.uber.org/zap"
)

// BacktestLog implements the Log interface for simulations.
// It records the human readable trade event log in a DuckDB database and
// doubles as an engine.EventSink. It has no bearing on the ledger.
type BacktestLog struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewBacktestLog creates a new instance of BacktestLog.
func NewBacktestLog(logger *logger.Logger) (*BacktestLog, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		logger.Error("Failed to open database", zap.Error(err))

		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		logger.Error("Failed to connect to database", zap.Error(err))
		db.Close()

		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	logStorage := &BacktestLog{
		logger: logger,
		db:     db,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}

	if err := logStorage.initialize(); err != nil {
		db.Close()

		return nil, err
	}

	return logStorage, nil
}

// Log implements the Log interface. It records a log entry.
func (l *BacktestLog) Log(entry log.LogEntry) error {
	if l == nil || l.db == nil {
		return fmt.Errorf("backtest log or database is nil")
	}

	return l.insert(l.db, entry)
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
}

func (l *BacktestLog) insert(db execer, entry log.LogEntry) error {
	var nextID int

	err := db.QueryRow("SELECT nextval('log_id_seq')").Scan(&nextID)
	if err != nil {
		return fmt.Errorf("failed to get next ID from sequence: %w", err)
	}

	var fieldsJSON string

	if len(entry.Fields) > 0 {
		fieldsBytes, err := json.Marshal(entry.Fields)
		if err != nil {
			return fmt.Errorf("failed to marshal fields to JSON: %w", err)
		}

		fieldsJSON = string(fieldsBytes)
	}

	query, args, err := l.sq.
		Insert("logs").
		Columns("id", "run_id", "timestamp", "symbol", "trading_type", "level", "message", "fields").
		Values(nextID, entry.RunID, entry.Timestamp, entry.Symbol, string(entry.Type), string(entry.Level), entry.Message, fieldsJSON).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build log insert: %w", err)
	}

	if _, err := db.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to insert log entry: %w", err)
	}

	return nil
}

// Append implements engine.EventSink. The whole batch is logged in one transaction.
func (l *BacktestLog) Append(ctx context.Context, runID string, trades []types.ExecutedTrade) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(errors.ErrCodeSinkFailed, "failed to begin transaction", err)
	}

	for _, trade := range trades {
		entry := log.FromTrade(runID, trade)
		if err := l.insert(tx, entry); err != nil {
			tx.Rollback()

			return errors.Wrap(errors.ErrCodeSinkFailed, "failed to log trade", err)
		}

		l.logger.Debug(entry.Message,
			zap.String("run_id", runID),
			zap.String("level", string(entry.Level)),
		)
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeSinkFailed, "failed to commit log entries", err)
	}

	return nil
}

// GetLogs implements the Log interface.
func (l *BacktestLog) GetLogs(runID string) ([]log.LogEntry, error) {
	if l == nil || l.db == nil {
		return nil, fmt.Errorf("backtest log or database is nil")
	}

	rows, err := l.sq.
		Select("timestamp", "symbol", "trading_type", "level", "message", "fields").
		From("logs").
		Where(squirrel.Eq{"run_id": runID}).
		OrderBy("id ASC").
		RunWith(l.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query logs: %w", err)
	}
	defer rows.Close()

	var logs []log.LogEntry

	for rows.Next() {
		var (
			entry      log.LogEntry
			tradeType  string
			levelStr   string
			fieldsJSON sql.NullString
		)

		if err := rows.Scan(&entry.Timestamp, &entry.Symbol, &tradeType, &levelStr, &entry.Message, &fieldsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan log entry: %w", err)
		}

		entry.RunID = runID
		entry.Type = types.TradeType(tradeType)
		entry.Level = log.Level(levelStr)

		if fieldsJSON.Valid && fieldsJSON.String != "" {
			var fields map[string]string
			if err := json.Unmarshal([]byte(fieldsJSON.String), &fields); err != nil {
				return nil, fmt.Errorf("failed to unmarshal fields from JSON: %w", err)
			}

			entry.Fields = fields
		}

		logs = append(logs, entry)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating logs: %w", err)
	}

	return logs, nil
}

// Write saves the logs of a run to logs.parquet and trades.log in the specified directory.
func (l *BacktestLog) Write(path string, runID string) error {
	if l == nil || l.db == nil || l.logger == nil {
		return fmt.Errorf("backtest log, database, or logger is nil")
	}

	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	logsPath := filepath.Join(path, "logs.parquet")

	_, err := l.db.Exec(fmt.Sprintf(`COPY (SELECT * FROM logs WHERE run_id = '%s' ORDER BY id) TO '%s' (FORMAT PARQUET)`,
		strings.ReplaceAll(runID, "'", "''"), strings.ReplaceAll(logsPath, "'", "''")))
	if err != nil {
		return fmt.Errorf("failed to export logs to Parquet: %w", err)
	}

	entries, err := l.GetLogs(runID)
	if err != nil {
		return err
	}

	textPath := filepath.Join(path, "trades.log")

	file, err := os.Create(textPath)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	for _, entry := range entries {
		fmt.Fprintf(w, "%s [%s] %s\n", entry.Timestamp.Format(types.DateLayout), strings.ToUpper(string(entry.Level)), entry.Message)
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write log file: %w", err)
	}

	l.logger.Debug("Successfully exported logs",
		zap.String("logs", logsPath),
		zap.String("text", textPath),
	)

	return nil
}

// DeleteRun removes the log entries of a run.
func (l *BacktestLog) DeleteRun(ctx context.Context, runID string) error {
	_, err := l.sq.Delete("logs").Where(squirrel.Eq{"run_id": runID}).RunWith(l.db).ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete logs of run %s: %w", runID, err)
	}

	return nil
}

// Cleanup resets the database state.
func (l *BacktestLog) Cleanup() error {
	if l == nil || l.db == nil {
		return fmt.Errorf("backtest log or database is nil")
	}

	_, err := l.db.Exec(`
		DROP TABLE IF EXISTS logs;
		DROP SEQUENCE IF EXISTS log_id_seq;
	`)
	if err != nil {
		return fmt.Errorf("failed to cleanup logs table: %w", err)
	}

	return l.initialize()
}

// Close closes the database connection.
func (l *BacktestLog) Close() error {
	if l == nil || l.db == nil {
		return nil
	}

	return l.db.Close()
}

// initialize creates the necessary tables for storing logs.
func (l *BacktestLog) initialize() error {
	if l == nil || l.db == nil {
		return fmt.Errorf("backtest log or database is nil")
	}

	_, err := l.db.Exec(`CREATE SEQUENCE IF NOT EXISTS log_id_seq`)
	if err != nil {
		return fmt.Errorf("failed to create sequence: %w", err)
	}

	_, err = l.db.Exec(`
		CREATE TABLE IF NOT EXISTS logs (
			id INTEGER PRIMARY KEY,
			run_id TEXT,
			timestamp DATE,
			symbol TEXT,
			trading_type TEXT,
			level TEXT,
			message TEXT,
			fields TEXT
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create logs table: %w", err)
	}

	return nil
}
