package engine

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-settlement/internal/logger"
	"github.com/rxtech-lab/argo-settlement/internal/types"
	"github.com/rxtech-lab/argo-settlement/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// insertBatchSize is the number of rows per multi-row insert statement.
const insertBatchSize = 256

var tradeColumns = []string{
	"run_id", "symbol", "trading_date", "trading_type", "price", "shares", "amount",
	"commission", "stamp_tax", "cash_before", "cash_after", "return_pct", "bought_date",
	"prior_close", "reason", "message",
}

// BacktestState is the result store of a simulation. It keeps the executed trades
// and run summaries of every run in DuckDB and exports them to Parquet.
type BacktestState struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

func NewBacktestState(logger *logger.Logger) (*BacktestState, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		logger.Error("Failed to open database", zap.Error(err))

		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &BacktestState{
		logger: logger,
		db:     db,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}, nil
}

// Initialize creates the necessary tables for tracking trades and runs.
func (b *BacktestState) Initialize() error {
	_, err := b.db.Exec(`
		CREATE TABLE IF NOT EXISTS sim_trades (
			run_id TEXT,
			symbol TEXT,
			trading_date DATE,
			trading_type TEXT,
			price DOUBLE,
			shares BIGINT,
			amount DOUBLE,
			commission DOUBLE,
			stamp_tax DOUBLE,
			cash_before DOUBLE,
			cash_after DOUBLE,
			return_pct DOUBLE,
			bought_date DATE,
			prior_close DOUBLE,
			reason TEXT,
			message TEXT,
			PRIMARY KEY (run_id, symbol, trading_date, trading_type)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create sim_trades table: %w", err)
	}

	_, err = b.db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			rule TEXT,
			status TEXT,
			executed_at TIMESTAMP,
			initial_capital DOUBLE,
			final_assets DOUBLE,
			total_return DOUBLE,
			cumulative_return DOUBLE,
			average_return DOUBLE,
			win_rate DOUBLE,
			trade_count INTEGER,
			drawdown DOUBLE,
			sharpe DOUBLE,
			unresolved_count INTEGER
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create runs table: %w", err)
	}

	return nil
}

// Append implements engine.EventSink. All trades are written in one transaction;
// trades already stored under the same key are skipped.
func (b *BacktestState) Append(ctx context.Context, runID string, trades []types.ExecutedTrade) error {
	if len(trades) == 0 {
		return nil
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(errors.ErrCodeSinkFailed, "failed to begin transaction", err)
	}

	for start := 0; start < len(trades); start += insertBatchSize {
		end := min(start+insertBatchSize, len(trades))

		insert := b.sq.Insert("sim_trades").Columns(tradeColumns...)
		for _, trade := range trades[start:end] {
			insert = insert.Values(tradeValues(runID, trade)...)
		}

		_, err := insert.Suffix("ON CONFLICT DO NOTHING").RunWith(tx).ExecContext(ctx)
		if err != nil {
			tx.Rollback()

			return errors.Wrap(errors.ErrCodeSinkFailed, "failed to insert trades", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeSinkFailed, "failed to commit trades", err)
	}

	b.logger.Debug("Trades stored",
		zap.String("run_id", runID),
		zap.Int("count", len(trades)),
	)

	return nil
}

func tradeValues(runID string, trade types.ExecutedTrade) []interface{} {
	var returnPct, priorClose sql.NullFloat64

	var boughtDate sql.NullTime

	if trade.Return.IsSome() {
		returnPct = sql.NullFloat64{Float64: trade.Return.Unwrap(), Valid: true}
	}

	if trade.PriorClose.IsSome() {
		priorClose = sql.NullFloat64{Float64: trade.PriorClose.Unwrap(), Valid: true}
	}

	if trade.BoughtDate.IsSome() {
		boughtDate = sql.NullTime{Time: trade.BoughtDate.Unwrap(), Valid: true}
	}

	return []interface{}{
		runID, trade.Symbol, types.TruncateToDay(trade.Date), string(trade.Type),
		trade.Price.InexactFloat64(), trade.Shares, trade.Amount.InexactFloat64(),
		trade.Commission.InexactFloat64(), trade.StampTax.InexactFloat64(),
		trade.CashBefore.InexactFloat64(), trade.CashAfter.InexactFloat64(),
		returnPct, boughtDate, priorClose, trade.Reason, trade.Message(),
	}
}

// SaveRun stores the summary of a run. Saving the same run twice keeps the first summary.
func (b *BacktestState) SaveRun(ctx context.Context, summary types.RunSummary) error {
	var sharpe sql.NullFloat64
	if summary.Performance.Sharpe != nil {
		sharpe = sql.NullFloat64{Float64: *summary.Performance.Sharpe, Valid: true}
	}

	_, err := b.sq.
		Insert("runs").
		Columns(
			"run_id", "rule", "status", "executed_at", "initial_capital", "final_assets",
			"total_return", "cumulative_return", "average_return", "win_rate", "trade_count",
			"drawdown", "sharpe", "unresolved_count",
		).
		Values(
			summary.ID, summary.Rule, string(summary.Status), summary.Timestamp, summary.InitialCapital,
			summary.FinalAssets, summary.TotalReturn, summary.Performance.CumulativeReturn,
			summary.Performance.AverageReturn, summary.Performance.WinRate, summary.Performance.TradeCount,
			summary.Performance.Drawdown, sharpe, summary.UnresolvedCount,
		).
		Suffix("ON CONFLICT DO NOTHING").
		RunWith(b.db).
		ExecContext(ctx)
	if err != nil {
		return errors.Wrap(errors.ErrCodeSinkFailed, "failed to insert run", err)
	}

	return nil
}

// GetTrades returns the trades of a run in insertion order.
func (b *BacktestState) GetTrades(runID string) ([]types.ExecutedTrade, error) {
	rows, err := b.sq.
		Select(tradeColumns[1:15]...).
		From("sim_trades").
		Where(squirrel.Eq{"run_id": runID}).
		OrderBy("rowid ASC").
		RunWith(b.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var trades []types.ExecutedTrade

	for rows.Next() {
		var (
			trade                                                      types.ExecutedTrade
			tradeType                                                  string
			price, amount, commission, stampTax, cashBefore, cashAfter float64
			returnPct, priorClose                                      sql.NullFloat64
			boughtDate                                                 sql.NullTime
		)

		err := rows.Scan(
			&trade.Symbol, &trade.Date, &tradeType, &price, &trade.Shares, &amount,
			&commission, &stampTax, &cashBefore, &cashAfter, &returnPct, &boughtDate,
			&priorClose, &trade.Reason,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}

		trade.RunID = runID
		trade.Type = types.TradeType(tradeType)
		trade.Date = types.TruncateToDay(trade.Date)
		trade.Price = money(price)
		trade.Amount = money(amount)
		trade.Commission = money(commission)
		trade.StampTax = money(stampTax)
		trade.CashBefore = money(cashBefore)
		trade.CashAfter = money(cashAfter)

		if returnPct.Valid {
			trade.Return = optional.Some(returnPct.Float64)
		}

		if boughtDate.Valid {
			trade.BoughtDate = optional.Some(types.TruncateToDay(boughtDate.Time))
		}

		if priorClose.Valid {
			trade.PriorClose = optional.Some(priorClose.Float64)
		}

		trades = append(trades, trade)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trades: %w", err)
	}

	return trades, nil
}

func money(value float64) decimal.Decimal {
	return decimal.NewFromFloat(value).Round(2)
}

// CountTrades returns the number of trades of a run by type.
func (b *BacktestState) CountTrades(runID string) (map[types.TradeType]int, error) {
	rows, err := b.sq.
		Select("trading_type", "COUNT(*)").
		From("sim_trades").
		Where(squirrel.Eq{"run_id": runID}).
		GroupBy("trading_type").
		RunWith(b.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to count trades: %w", err)
	}
	defer rows.Close()

	counts := make(map[types.TradeType]int)

	for rows.Next() {
		var (
			tradeType string
			count     int
		)

		if err := rows.Scan(&tradeType, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}

		counts[types.TradeType(tradeType)] = count
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating counts: %w", err)
	}

	return counts, nil
}

// CountRuns returns the number of stored run summaries.
func (b *BacktestState) CountRuns() (int, error) {
	var count int

	err := b.sq.Select("COUNT(*)").From("runs").RunWith(b.db).QueryRow().Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count runs: %w", err)
	}

	return count, nil
}

// DeleteRun removes the trades and the summary of a run in one transaction.
func (b *BacktestState) DeleteRun(ctx context.Context, runID string) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	for _, table := range []string{"sim_trades", "runs"} {
		if _, err := b.sq.Delete(table).Where(squirrel.Eq{"run_id": runID}).RunWith(tx).ExecContext(ctx); err != nil {
			_ = tx.Rollback()

			return fmt.Errorf("failed to delete run from %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Cleanup resets the database state
func (b *BacktestState) Cleanup() error {
	// Squirrel doesn't have DROP syntax
	_, err := b.db.Exec(`
		DROP TABLE IF EXISTS sim_trades;
		DROP TABLE IF EXISTS runs;
	`)
	if err != nil {
		return fmt.Errorf("failed to cleanup tables: %w", err)
	}

	return b.Initialize()
}

// Write exports the trades of a run to <path>/trades.parquet and returns the file path.
func (b *BacktestState) Write(path string, runID string) (string, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	tradesPath := filepath.Join(path, "trades.parquet")

	// Squirrel doesn't support COPY.
	query := fmt.Sprintf(
		`COPY (SELECT * FROM sim_trades WHERE run_id = '%s' ORDER BY rowid) TO '%s' (FORMAT PARQUET)`,
		strings.ReplaceAll(runID, "'", "''"), strings.ReplaceAll(tradesPath, "'", "''"),
	)
	if _, err := b.db.Exec(query); err != nil {
		return "", fmt.Errorf("failed to export trades to Parquet: %w", err)
	}

	b.logger.Debug("Exported trades to Parquet",
		zap.String("run_id", runID),
		zap.String("trades", tradesPath),
	)

	return tradesPath, nil
}

// Close closes the database connection.
func (b *BacktestState) Close() error {
	if b == nil || b.db == nil {
		return nil
	}

	return b.db.Close()
}
