package audit

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS order_transitions (
	order_id    TEXT NOT NULL,
	instrument  TEXT NOT NULL,
	side        TEXT NOT NULL,
	order_type  TEXT NOT NULL,
	quantity    TEXT NOT NULL,
	from_status TEXT NOT NULL,
	to_status   TEXT NOT NULL,
	reason      TEXT,
	metadata    TEXT,
	created_at  TEXT NOT NULL,
	sim_date    TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS fills (
	fill_id    TEXT NOT NULL,
	order_id   TEXT NOT NULL,
	instrument TEXT NOT NULL,
	side       TEXT NOT NULL,
	quantity   TEXT NOT NULL,
	price      TEXT NOT NULL,
	commission TEXT NOT NULL,
	filled_at  TEXT NOT NULL,
	sim_date   TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS snapshots (
	cash           TEXT NOT NULL,
	equity         TEXT NOT NULL,
	open_positions INTEGER NOT NULL,
	positions      TEXT,
	sim_date       TEXT NOT NULL
);`

// SQLiteLog persists audit records to a SQLite file so a run can be replayed
// offline. Write failures are logged and dropped, never surfaced to the
// simulator.
type SQLiteLog struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewSQLiteLog(path string, logger *zap.Logger) (*SQLiteLog, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_busy_timeout=5000", path))
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create audit schema: %w", err)
	}
	return &SQLiteLog{db: db, logger: logger}, nil
}

func (l *SQLiteLog) Close() error {
	return l.db.Close()
}

func (l *SQLiteLog) OrderTransition(event OrderEvent) {
	metadata, _ := json.Marshal(event.Order.Metadata)
	_, err := l.db.Exec(
		`INSERT INTO order_transitions
		 (order_id, instrument, side, order_type, quantity, from_status, to_status, reason, metadata, created_at, sim_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.Order.ID.String(), event.Order.Instrument, event.Order.Side.String(),
		event.Order.Type.String(), event.Order.Quantity.String(),
		string(event.From), string(event.To), event.Reason, string(metadata),
		event.Order.CreatedAt.Format(time.RFC3339),
		event.Date.Format(time.DateOnly))
	if err != nil {
		l.logger.Warn("dropping order transition audit record", zap.Error(err))
	}
}

func (l *SQLiteLog) Fill(event FillEvent) {
	_, err := l.db.Exec(
		`INSERT INTO fills
		 (fill_id, order_id, instrument, side, quantity, price, commission, filled_at, sim_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.Fill.ID.String(), event.Fill.OrderID.String(), event.Fill.Instrument,
		event.Fill.Side.String(), event.Fill.Quantity.String(), event.Fill.Price.String(),
		event.Fill.Commission.String(), event.Fill.Time.Format(time.RFC3339),
		event.Date.Format(time.DateOnly))
	if err != nil {
		l.logger.Warn("dropping fill audit record", zap.Error(err))
	}
}

func (l *SQLiteLog) Snapshot(event SnapshotEvent) {
	positions, _ := json.Marshal(event.Positions)
	_, err := l.db.Exec(
		`INSERT INTO snapshots (cash, equity, open_positions, positions, sim_date)
		 VALUES (?, ?, ?, ?, ?)`,
		event.Account.Cash.String(), event.Account.Equity.String(),
		len(event.Positions), string(positions), event.Date.Format(time.DateOnly))
	if err != nil {
		l.logger.Warn("dropping snapshot audit record", zap.Error(err))
	}
}
