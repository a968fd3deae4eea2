package market

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/FeanorKingofNoldor/prometheus-v2-sub000/pkg/fixed"
)

// DuckDBReader reads daily bars from a DuckDB prices_daily table with the
// columns instrument_id, trade_date, open, high, low, close, volume.
type DuckDBReader struct {
	dataSourceName string
	db             *sql.DB
}

func NewDuckDBReader(dataSourceName string) *DuckDBReader {
	return &DuckDBReader{dataSourceName: dataSourceName}
}

func (r *DuckDBReader) Connect() error {
	db, err := sql.Open("duckdb", r.dataSourceName)
	if err != nil {
		return fmt.Errorf("sql.Open: %w", err)
	}
	r.db = db
	return nil
}

func (r *DuckDBReader) Close() {
	_ = r.db.Close()
}

func (r *DuckDBReader) ReadBar(ctx context.Context, instrument string, date time.Time) (Bar, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT trade_date, open, high, low, close, volume
		 FROM prices_daily WHERE instrument_id = ? AND trade_date = ?`,
		instrument, Day(date))

	bar, err := scanBar(row.Scan, instrument)
	if errors.Is(err, sql.ErrNoRows) {
		return Bar{}, fmt.Errorf("%w: %s on %s", ErrNoMarketData, instrument, Day(date).Format(time.DateOnly))
	}
	if err != nil {
		return Bar{}, err
	}
	return bar, nil
}

func (r *DuckDBReader) ReadRange(ctx context.Context, instrument string, from, to time.Time) ([]Bar, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT trade_date, open, high, low, close, volume
		 FROM prices_daily WHERE instrument_id = ? AND trade_date BETWEEN ? AND ?
		 ORDER BY trade_date`,
		instrument, Day(from), Day(to))
	if err != nil {
		return nil, fmt.Errorf("error preparing query: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var bars []Bar
	for rows.Next() {
		bar, err := scanBar(rows.Scan, instrument)
		if err != nil {
			return nil, err
		}
		bars = append(bars, bar)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error scanning rows: %w", err)
	}
	return bars, nil
}

func scanBar(scan func(dest ...any) error, instrument string) (Bar, error) {
	var (
		tradeDate                      time.Time
		open, high, low, close, volume float64
	)
	if err := scan(&tradeDate, &open, &high, &low, &close, &volume); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Bar{}, err
		}
		return Bar{}, fmt.Errorf("error scanning row: %w", err)
	}
	bar := Bar{
		Instrument: instrument,
		Date:       Day(tradeDate),
		Open:       fixed.FromFloat64(open),
		High:       fixed.FromFloat64(high),
		Low:        fixed.FromFloat64(low),
		Close:      fixed.FromFloat64(close),
		Volume:     fixed.FromFloat64(volume),
	}
	if err := bar.Validate(); err != nil {
		return Bar{}, err
	}
	return bar, nil
}
