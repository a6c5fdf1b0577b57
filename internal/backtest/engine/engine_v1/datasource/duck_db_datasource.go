package datasource

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-settlement/internal/logger"
	"github.com/rxtech-lab/argo-settlement/internal/types"
	"github.com/rxtech-lab/argo-settlement/pkg/errors"
	"go.uber.org/zap"
)

const (
	marketDataView = "market_data"
	signalsView    = "signals"
)

type DuckDBDataSource struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType

	hasSignals bool
}

// NewDataSource creates a new DuckDB data source instance with the specified database path.
// The path parameter specifies the DuckDB database file location, ":memory:" keeps it in memory.
// This is distinct from Initialize() which loads market data into the database.
func NewDataSource(path string, logger *logger.Logger) (DataSource, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to open duckdb", err)
	}

	_, err = db.Exec(`
		SET memory_limit='4GB';
		SET threads=4;
	`)
	if err != nil {
		db.Close()

		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to set DuckDB options", err)
	}

	return &DuckDBDataSource{
		db:     db,
		logger: logger,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}, nil
}

// readFunction picks the DuckDB table function for a file path.
func readFunction(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		return fmt.Sprintf("read_parquet('%s')", escapeLiteral(path)), nil
	case ".csv":
		return fmt.Sprintf("read_csv_auto('%s')", escapeLiteral(path)), nil
	default:
		return "", errors.Newf(errors.ErrCodeInvalidParameter, "unsupported data file %q, expected .parquet or .csv", path)
	}
}

func escapeLiteral(value string) string {
	return strings.ReplaceAll(value, "'", "''")
}

func (d *DuckDBDataSource) createView(view string, path string, columns string) error {
	source, err := readFunction(path)
	if err != nil {
		return err
	}

	if _, err := d.db.Exec(fmt.Sprintf(`DROP VIEW IF EXISTS %s;`, view)); err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to drop existing view", err)
	}

	// Squirrel doesn't support CREATE VIEW.
	query := fmt.Sprintf(`CREATE VIEW %s AS SELECT %s FROM %s;`, view, columns, source)
	if _, err := d.db.Exec(query); err != nil {
		return errors.Wrapf(errors.ErrCodeDataSourceUnavailable, err, "failed to load %s", path)
	}

	return nil
}

// Initialize implements DataSource.
func (d *DuckDBDataSource) Initialize(path string) error {
	d.logger.Debug("Initializing DuckDB data source", zap.String("path", path))

	return d.createView(marketDataView, path,
		"CAST(time AS DATE) AS time, CAST(symbol AS TEXT) AS symbol, open, high, low, close, volume")
}

// LoadSignals implements DataSource.
func (d *DuckDBDataSource) LoadSignals(path string) error {
	d.logger.Debug("Loading signals", zap.String("path", path))

	if err := d.createView(signalsView+"_raw", path, "*"); err != nil {
		return err
	}

	columns, err := d.columnsOf(signalsView + "_raw")
	if err != nil {
		return err
	}

	rule := "''"
	if columns["rule"] {
		rule = "COALESCE(CAST(rule AS TEXT), '')"
	}

	query := fmt.Sprintf(`
		CREATE OR REPLACE VIEW %s AS
		SELECT CAST(time AS DATE) AS time, CAST(symbol AS TEXT) AS symbol, %s AS rule
		FROM %s_raw;
	`, signalsView, rule, signalsView)
	if _, err := d.db.Exec(query); err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to create signals view", err)
	}

	d.hasSignals = true

	return nil
}

func (d *DuckDBDataSource) columnsOf(view string) (map[string]bool, error) {
	rows, err := d.db.Query(fmt.Sprintf(`SELECT * FROM %s LIMIT 0`, view))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to inspect columns", err)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to get columns", err)
	}

	columns := make(map[string]bool, len(names))
	for _, name := range names {
		columns[strings.ToLower(name)] = true
	}

	return columns, nil
}

// GetAllSymbols returns all distinct symbols from the market data.
func (d *DuckDBDataSource) GetAllSymbols() ([]string, error) {
	query, args, err := d.sq.
		Select("DISTINCT symbol").
		From(marketDataView).
		OrderBy("symbol").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build query", err)
	}

	return d.queryStrings(query, args...)
}

// GetRules implements DataSource.
func (d *DuckDBDataSource) GetRules() ([]string, error) {
	if !d.hasSignals {
		return nil, errors.New(errors.ErrCodeNoSignals, "no signals loaded")
	}

	query, args, err := d.sq.
		Select("DISTINCT rule").
		From(signalsView).
		OrderBy("rule").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build query", err)
	}

	return d.queryStrings(query, args...)
}

func (d *DuckDBDataSource) queryStrings(query string, args ...interface{}) ([]string, error) {
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query", err)
	}
	defer rows.Close()

	var values []string

	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan row", err)
		}

		values = append(values, value)
	}

	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating rows", err)
	}

	return values, nil
}

// ReadAllSeries implements DataSource.
func (d *DuckDBDataSource) ReadAllSeries() (map[string]types.PriceSeries, error) {
	bars, err := d.readBars(nil)
	if err != nil {
		return nil, err
	}

	grouped := make(map[string][]types.Bar)
	for _, bar := range bars {
		grouped[bar.Symbol] = append(grouped[bar.Symbol], bar)
	}

	result := make(map[string]types.PriceSeries, len(grouped))
	for symbol, symbolBars := range grouped {
		series, err := types.NewPriceSeries(symbol, symbolBars)
		if err != nil {
			return nil, err
		}

		result[symbol] = series
	}

	return result, nil
}

func (d *DuckDBDataSource) readBars(where squirrel.Sqlizer) ([]types.Bar, error) {
	builder := d.sq.
		Select("time", "symbol", "open", "high", "low", "close", "volume").
		From(marketDataView).
		OrderBy("symbol", "time")
	if where != nil {
		builder = builder.Where(where)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build query", err)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query bars", err)
	}
	defer rows.Close()

	bars := make([]types.Bar, 0, 1024)

	for rows.Next() {
		var bar types.Bar

		var volume sql.NullFloat64

		if err := rows.Scan(&bar.Date, &bar.Symbol, &bar.Open, &bar.High, &bar.Low, &bar.Close, &volume); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan bar", err)
		}

		bar.Date = types.TruncateToDay(bar.Date)
		bar.Volume = volume.Float64
		bars = append(bars, bar)
	}

	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating bars", err)
	}

	return bars, nil
}

// ReadSignals implements DataSource.
func (d *DuckDBDataSource) ReadSignals(rule optional.Option[string]) (types.SignalSet, error) {
	if !d.hasSignals {
		return types.SignalSet{}, errors.New(errors.ErrCodeNoSignals, "no signals loaded")
	}

	builder := d.sq.
		Select("time", "symbol", "rule").
		From(signalsView).
		OrderBy("symbol", "time")
	if rule.IsSome() {
		builder = builder.Where(squirrel.Eq{"rule": rule.Unwrap()})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return types.SignalSet{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build query", err)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return types.SignalSet{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query signals", err)
	}
	defer rows.Close()

	var signals []types.Signal

	for rows.Next() {
		var signal types.Signal
		if err := rows.Scan(&signal.Date, &signal.Symbol, &signal.Rule); err != nil {
			return types.SignalSet{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan signal", err)
		}

		signals = append(signals, signal)
	}

	if err = rows.Err(); err != nil {
		return types.SignalSet{}, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating signals", err)
	}

	return types.NewSignalSet(signals), nil
}

// LatestDate implements DataSource.
func (d *DuckDBDataSource) LatestDate() (optional.Option[time.Time], error) {
	query, args, err := d.sq.Select("MAX(time)").From(marketDataView).ToSql()
	if err != nil {
		return optional.None[time.Time](), errors.Wrap(errors.ErrCodeQueryFailed, "failed to build query", err)
	}

	var latest sql.NullTime
	if err := d.db.QueryRow(query, args...).Scan(&latest); err != nil {
		return optional.None[time.Time](), errors.Wrap(errors.ErrCodeQueryFailed, "failed to query latest date", err)
	}

	if !latest.Valid {
		return optional.None[time.Time](), nil
	}

	return optional.Some(types.TruncateToDay(latest.Time)), nil
}

// Close implements DataSource.
func (d *DuckDBDataSource) Close() error {
	if d.db != nil {
		return d.db.Close()
	}

	return nil
}
