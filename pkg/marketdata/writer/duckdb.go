package writer

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-settlement/internal/types"
)

// parquetTable buffers rows in an in-memory DuckDB table inside one transaction
// and exports the table to a Parquet file on finalize.
type parquetTable struct {
	db         *sql.DB
	tx         *sql.Tx
	stmt       *sql.Stmt
	outputPath string
	table      string
	schema     string
	insert     string
}

func (t *parquetTable) initialize() (err error) {
	t.db, err = sql.Open("duckdb", ":memory:")
	if err != nil {
		return fmt.Errorf("failed to open DuckDB connection: %w", err)
	}

	_, err = t.db.Exec(fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (%s)`, t.table, t.schema))
	if err != nil {
		t.db.Close()

		return fmt.Errorf("failed to create table: %w", err)
	}

	t.tx, err = t.db.Begin()
	if err != nil {
		t.db.Close()

		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	t.stmt, err = t.tx.Prepare(t.insert)
	if err != nil {
		t.tx.Rollback()
		t.db.Close()

		return fmt.Errorf("failed to prepare statement: %w", err)
	}

	return nil
}

func (t *parquetTable) exec(args ...any) error {
	if t.stmt == nil {
		return fmt.Errorf("writer not initialized or statement is nil")
	}

	if _, err := t.stmt.Exec(args...); err != nil {
		return fmt.Errorf("failed to insert data: %w", err)
	}

	return nil
}

func (t *parquetTable) finalize() (string, error) {
	if t.tx == nil {
		return "", fmt.Errorf("writer not initialized or transaction is nil")
	}

	if err := t.tx.Commit(); err != nil {
		t.tx.Rollback()

		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}

	t.tx = nil

	_, err := t.db.Exec(fmt.Sprintf(`COPY (SELECT * FROM %s ORDER BY symbol, time) TO '%s' (FORMAT PARQUET)`, t.table, t.outputPath))
	if err != nil {
		return "", fmt.Errorf("failed to export to Parquet: %w", err)
	}

	return t.outputPath, nil
}

func (t *parquetTable) close() error {
	var closeErrors []string

	if t.stmt != nil {
		if err := t.stmt.Close(); err != nil {
			closeErrors = append(closeErrors, fmt.Sprintf("failed to close statement: %v", err))
		}

		t.stmt = nil
	}

	// Finalize was not called or failed.
	if t.tx != nil {
		if err := t.tx.Rollback(); err != nil {
			closeErrors = append(closeErrors, fmt.Sprintf("failed to rollback transaction: %v", err))
		}

		t.tx = nil
	}

	if t.db != nil {
		if err := t.db.Close(); err != nil {
			closeErrors = append(closeErrors, fmt.Sprintf("failed to close db connection: %v", err))
		}

		t.db = nil
	}

	if len(closeErrors) > 0 {
		return fmt.Errorf("errors occurred during close:\n- %s", strings.Join(closeErrors, "\n- "))
	}

	return nil
}

// DuckDBWriter writes daily bars to a Parquet file with the market_data layout
// (time, symbol, open, high, low, close, volume).
type DuckDBWriter struct {
	parquetTable
}

// NewDuckDBWriter creates a new DuckDBWriter.
// outputPath is the Parquet file written by Finalize.
func NewDuckDBWriter(outputPath string) MarketDataWriter {
	return &DuckDBWriter{parquetTable: parquetTable{
		outputPath: outputPath,
		table:      "market_data",
		schema:     "time TIMESTAMP, symbol TEXT, open DOUBLE, high DOUBLE, low DOUBLE, close DOUBLE, volume DOUBLE",
		insert:     "INSERT INTO market_data (time, symbol, open, high, low, close, volume) VALUES (?, ?, ?, ?, ?, ?, ?)",
	}}
}

// Initialize creates the in-memory table and begins the write transaction.
func (w *DuckDBWriter) Initialize() error {
	return w.initialize()
}

// Write persists a single bar using the prepared statement within the transaction.
func (w *DuckDBWriter) Write(bar types.Bar) error {
	return w.exec(types.TruncateToDay(bar.Date), bar.Symbol, bar.Open, bar.High, bar.Low, bar.Close, bar.Volume)
}

// Finalize commits the transaction and exports the data to a Parquet file.
func (w *DuckDBWriter) Finalize() (string, error) {
	return w.finalize()
}

// Close releases the statement, transaction and connection.
func (w *DuckDBWriter) Close() error {
	return w.close()
}

func (w *DuckDBWriter) GetOutputPath() string {
	return w.outputPath
}

// DuckDBSignalWriter writes signals to a Parquet file with the columns time, symbol and rule.
type DuckDBSignalWriter struct {
	parquetTable
}

func NewDuckDBSignalWriter(outputPath string) SignalWriter {
	return &DuckDBSignalWriter{parquetTable: parquetTable{
		outputPath: outputPath,
		table:      "signals",
		schema:     "time TIMESTAMP, symbol TEXT, rule TEXT",
		insert:     "INSERT INTO signals (time, symbol, rule) VALUES (?, ?, ?)",
	}}
}

func (w *DuckDBSignalWriter) Initialize() error {
	return w.initialize()
}

func (w *DuckDBSignalWriter) Write(signal types.Signal) error {
	return w.exec(types.TruncateToDay(signal.Date), signal.Symbol, signal.Rule)
}

func (w *DuckDBSignalWriter) Finalize() (string, error) {
	return w.finalize()
}

func (w *DuckDBSignalWriter) Close() error {
	return w.close()
}

func (w *DuckDBSignalWriter) GetOutputPath() string {
	return w.outputPath
}
