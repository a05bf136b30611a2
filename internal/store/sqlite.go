package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"trendscope/internal/analysis/channel"
	"trendscope/internal/errors"
	"trendscope/internal/models"
)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based data store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", errors.ErrDatabaseError, dbPath, err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: init schema: %w", errors.ErrDatabaseError, err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Imported price/volume series
	CREATE TABLE IF NOT EXISTS series_points (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		period TEXT NOT NULL,
		date DATETIME NOT NULL,
		open REAL,
		high REAL,
		low REAL,
		close REAL NOT NULL,
		volume REAL NOT NULL DEFAULT 0,
		UNIQUE(symbol, period, date)
	);

	-- Channels found by the multi-channel detector
	CREATE TABLE IF NOT EXISTS channels (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		period TEXT NOT NULL,
		start_idx INTEGER NOT NULL,
		end_idx INTEGER NOT NULL,
		lookback INTEGER NOT NULL,
		slope REAL NOT NULL,
		intercept REAL NOT NULL,
		std_dev REAL NOT NULL,
		std_multiplier REAL NOT NULL,
		coverage REAL NOT NULL,
		center_proximity REAL NOT NULL,
		touches_upper INTEGER NOT NULL,
		touches_lower INTEGER NOT NULL,
		score REAL NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Grid-search optimizer runs
	CREATE TABLE IF NOT EXISTS optimizer_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		period TEXT NOT NULL,
		lookback INTEGER NOT NULL,
		end_offset INTEGER NOT NULL,
		delta REAL NOT NULL,
		intercept_shift REAL NOT NULL,
		max_crosses INTEGER NOT NULL,
		coverage_count INTEGER NOT NULL,
		touches_upper INTEGER NOT NULL,
		touches_lower INTEGER NOT NULL,
		evaluations INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_series_symbol_period ON series_points(symbol, period, date);
	CREATE INDEX IF NOT EXISTS idx_channels_symbol_period ON channels(symbol, period, start_idx);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveSeries stores (or replaces) the points of one series.
func (s *SQLiteStore) SaveSeries(ctx context.Context, series *models.Series) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM series_points WHERE symbol = ? AND period = ?",
		series.Symbol, string(series.Period)); err != nil {
		return errors.Wrap(err, "clear series")
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO series_points (symbol, period, date, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "prepare insert")
	}
	defer stmt.Close()

	for _, p := range series.Points {
		if _, err := stmt.ExecContext(ctx, series.Symbol, string(series.Period),
			p.Date.UTC(), p.Open, p.High, p.Low, p.Close, p.Volume); err != nil {
			return errors.Wrap(err, "insert point")
		}
	}

	return tx.Commit()
}

// GetSeries loads the points of one series, oldest first.
func (s *SQLiteStore) GetSeries(ctx context.Context, symbol string, period models.ChartPeriod) (*models.Series, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, open, high, low, close, volume
		FROM series_points
		WHERE symbol = ? AND period = ?
		ORDER BY date ASC`, symbol, string(period))
	if err != nil {
		return nil, errors.Wrap(err, "query series")
	}
	defer rows.Close()

	series := &models.Series{Symbol: symbol, Period: period}
	for rows.Next() {
		var p models.SeriesPoint
		if err := rows.Scan(&p.Date, &p.Open, &p.High, &p.Low, &p.Close, &p.Volume); err != nil {
			return nil, errors.Wrap(err, "scan point")
		}
		series.Points = append(series.Points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate series")
	}
	if len(series.Points) == 0 {
		return nil, errors.NewDataError("series", symbol, "no stored points", errors.ErrSymbolNotFound)
	}

	return series, nil
}

// ListSymbols returns the distinct stored symbols.
func (s *SQLiteStore) ListSymbols(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT symbol FROM series_points ORDER BY symbol")
	if err != nil {
		return nil, errors.Wrap(err, "query symbols")
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, errors.Wrap(err, "scan symbol")
		}
		symbols = append(symbols, sym)
	}
	return symbols, rows.Err()
}

// SaveChannels replaces the stored channel set for one (symbol, period).
func (s *SQLiteStore) SaveChannels(ctx context.Context, symbol string, period models.ChartPeriod, channels []channel.ChannelCandidate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM channels WHERE symbol = ? AND period = ?",
		symbol, string(period)); err != nil {
		return errors.Wrap(err, "clear channels")
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO channels (symbol, period, start_idx, end_idx, lookback, slope, intercept,
			std_dev, std_multiplier, coverage, center_proximity, touches_upper, touches_lower, score)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "prepare insert")
	}
	defer stmt.Close()

	for _, c := range channels {
		if _, err := stmt.ExecContext(ctx, symbol, string(period),
			c.StartIdx, c.EndIdx, c.Lookback, c.Slope, c.Intercept,
			c.StdDev, c.StdMultiplier, c.Coverage, c.CenterProximity,
			boolToInt(c.TouchesUpper), boolToInt(c.TouchesLower), c.Score); err != nil {
			return errors.Wrap(err, "insert channel")
		}
	}

	return tx.Commit()
}

// GetChannels loads the stored channel set for one (symbol, period),
// ordered by start index. Point data is not persisted; rebuild it from
// the series when needed.
func (s *SQLiteStore) GetChannels(ctx context.Context, symbol string, period models.ChartPeriod) ([]channel.ChannelCandidate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT start_idx, end_idx, lookback, slope, intercept, std_dev, std_multiplier,
			coverage, center_proximity, touches_upper, touches_lower, score
		FROM channels
		WHERE symbol = ? AND period = ?
		ORDER BY start_idx ASC`, symbol, string(period))
	if err != nil {
		return nil, errors.Wrap(err, "query channels")
	}
	defer rows.Close()

	var channels []channel.ChannelCandidate
	for rows.Next() {
		var c channel.ChannelCandidate
		var up, down int
		if err := rows.Scan(&c.StartIdx, &c.EndIdx, &c.Lookback, &c.Slope, &c.Intercept,
			&c.StdDev, &c.StdMultiplier, &c.Coverage, &c.CenterProximity, &up, &down, &c.Score); err != nil {
			return nil, errors.Wrap(err, "scan channel")
		}
		c.TouchesUpper = up != 0
		c.TouchesLower = down != 0
		channels = append(channels, c)
	}
	return channels, rows.Err()
}

// SaveOptimizerRun appends one grid-search result.
func (s *SQLiteStore) SaveOptimizerRun(ctx context.Context, symbol string, period models.ChartPeriod, result *channel.OptimalResult) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO optimizer_runs (symbol, period, lookback, end_offset, delta, intercept_shift,
			max_crosses, coverage_count, touches_upper, touches_lower, evaluations)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		symbol, string(period), result.Lookback, result.EndOffset, result.Delta,
		result.InterceptShift, result.MaxCrosses, result.CoverageCount,
		boolToInt(result.TouchesUpper), boolToInt(result.TouchesLower), result.Evaluations)
	return errors.Wrap(err, "insert optimizer run")
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
