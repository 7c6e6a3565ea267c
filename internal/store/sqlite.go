package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/paaliaq/tradingapi/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface checks.
var _ OrderStore = (*SQLiteStore)(nil)
var _ PositionStore = (*SQLiteStore)(nil)
var _ BalanceStore = (*SQLiteStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS orders (
	id              TEXT PRIMARY KEY,
	symbol          TEXT NOT NULL,
	qty             REAL NOT NULL,
	side            TEXT NOT NULL,
	type            TEXT NOT NULL,
	time_in_force   TEXT NOT NULL,
	order_class     TEXT NOT NULL,
	limit_price     REAL,
	stop_price      REAL,
	trail_price     REAL,
	trail_percent   REAL,
	notional        REAL,
	extended_hours  INTEGER NOT NULL DEFAULT 0,
	tp_limit_price  REAL,
	sl_stop_price   REAL,
	sl_limit_price  REAL,
	status          TEXT NOT NULL,
	created_at      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);

CREATE TABLE IF NOT EXISTS positions (
	symbol          TEXT PRIMARY KEY,
	qty             REAL NOT NULL,
	side            TEXT NOT NULL,
	exchange        TEXT NOT NULL,
	asset_class     TEXT NOT NULL,
	avg_entry_price REAL,
	cost_basis      REAL,
	market_value    REAL,
	unrealized_pl   REAL,
	current_price   REAL
);

CREATE TABLE IF NOT EXISTS account (
	id   INTEGER PRIMARY KEY CHECK (id = 1),
	cash REAL NOT NULL
);
`

// SQLiteStore implements OrderStore and PositionStore backed by a
// SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// applies the schema, and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// nullFloat adapts an optional domain field to a nullable column.
func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

// ---------------------------------------------------------------------------
// OrderStore implementation
// ---------------------------------------------------------------------------

// SaveOrder inserts a new order record.
func (s *SQLiteStore) SaveOrder(ctx context.Context, rec *OrderRecord) error {
	var tpLimit, slStop, slLimit sql.NullFloat64
	if rec.TakeProfit != nil {
		tpLimit = nullFloat(rec.TakeProfit.LimitPrice)
	}
	if rec.StopLoss != nil {
		slStop = nullFloat(rec.StopLoss.StopPrice)
		slLimit = nullFloat(rec.StopLoss.LimitPrice)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO orders (
			id, symbol, qty, side, type, time_in_force, order_class,
			limit_price, stop_price, trail_price, trail_percent, notional,
			extended_hours, tp_limit_price, sl_stop_price, sl_limit_price,
			status, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Symbol, rec.Qty, string(rec.Side), string(rec.Type),
		string(rec.TimeInForce), string(rec.Class),
		nullFloat(rec.LimitPrice), nullFloat(rec.StopPrice),
		nullFloat(rec.TrailPrice), nullFloat(rec.TrailPercent),
		nullFloat(rec.Notional), rec.ExtendedHours,
		tpLimit, slStop, slLimit,
		rec.Status, rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

func (s *SQLiteStore) scanOrder(row interface{ Scan(...any) error }) (*OrderRecord, error) {
	var (
		rec                                       OrderRecord
		side, typ, tif, class, createdAt          string
		limitP, stopP, trailP, trailPct, notional sql.NullFloat64
		tpLimit, slStop, slLimit                  sql.NullFloat64
	)
	err := row.Scan(
		&rec.ID, &rec.Symbol, &rec.Qty, &side, &typ, &tif, &class,
		&limitP, &stopP, &trailP, &trailPct, &notional,
		&rec.ExtendedHours, &tpLimit, &slStop, &slLimit,
		&rec.Status, &createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rec.Side = domain.OrderSide(side)
	rec.Type = domain.OrderType(typ)
	rec.TimeInForce = domain.TimeInForce(tif)
	rec.Class = domain.OrderClass(class)
	rec.LimitPrice = floatPtr(limitP)
	rec.StopPrice = floatPtr(stopP)
	rec.TrailPrice = floatPtr(trailP)
	rec.TrailPercent = floatPtr(trailPct)
	rec.Notional = floatPtr(notional)
	if tpLimit.Valid {
		rec.TakeProfit = &domain.TakeProfit{LimitPrice: floatPtr(tpLimit)}
	}
	if slStop.Valid || slLimit.Valid {
		rec.StopLoss = &domain.StopLoss{
			StopPrice:  floatPtr(slStop),
			LimitPrice: floatPtr(slLimit),
		}
	}
	if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("order %s has bad created_at: %w", rec.ID, err)
	}
	return &rec, nil
}

const orderColumns = `id, symbol, qty, side, type, time_in_force, order_class,
	limit_price, stop_price, trail_price, trail_percent, notional,
	extended_hours, tp_limit_price, sl_stop_price, sl_limit_price,
	status, created_at`

// GetOrder retrieves a single order by its ID.
func (s *SQLiteStore) GetOrder(ctx context.Context, id string) (*OrderRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
	return s.scanOrder(row)
}

// ListOrders returns orders with the given status, newest first.
func (s *SQLiteStore) ListOrders(ctx context.Context, status string, limit int) ([]OrderRecord, error) {
	query := `SELECT ` + orderColumns + ` FROM orders`
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []OrderRecord
	for rows.Next() {
		rec, err := s.scanOrder(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// UpdateOrderStatus moves an order to a new lifecycle state.
func (s *SQLiteStore) UpdateOrderStatus(ctx context.Context, id, status string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE orders SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---------------------------------------------------------------------------
// BalanceStore implementation
// ---------------------------------------------------------------------------

// InitCash seeds the cash balance if none exists. An existing balance
// is left untouched, so a simulated account survives restarts.
func (s *SQLiteStore) InitCash(ctx context.Context, amount float64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO account (id, cash) VALUES (1, ?)`, amount)
	return err
}

// GetCash returns the current cash balance.
func (s *SQLiteStore) GetCash(ctx context.Context) (float64, error) {
	var cash float64
	err := s.db.QueryRowContext(ctx,
		`SELECT cash FROM account WHERE id = 1`).Scan(&cash)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	return cash, err
}

// AdjustCash applies a signed delta to the cash balance.
func (s *SQLiteStore) AdjustCash(ctx context.Context, delta float64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE account SET cash = cash + ? WHERE id = 1`, delta)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---------------------------------------------------------------------------
// PositionStore implementation
// ---------------------------------------------------------------------------

// UpsertPosition inserts or replaces the position for a symbol.
func (s *SQLiteStore) UpsertPosition(ctx context.Context, pos *domain.Position) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO positions (
			symbol, qty, side, exchange, asset_class,
			avg_entry_price, cost_basis, market_value, unrealized_pl,
			current_price
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		pos.Symbol, pos.Qty, string(pos.Side), string(pos.Exchange),
		string(pos.AssetClass),
		nullFloat(pos.AvgEntryPrice), nullFloat(pos.CostBasis),
		nullFloat(pos.MarketValue), nullFloat(pos.UnrealizedPL),
		nullFloat(pos.CurrentPrice),
	)
	return err
}

func (s *SQLiteStore) scanPosition(row interface{ Scan(...any) error }) (*domain.Position, error) {
	var (
		pos                        domain.Position
		side, exchange, assetClass string
		avg, basis, mv, upl, cur   sql.NullFloat64
	)
	err := row.Scan(
		&pos.Symbol, &pos.Qty, &side, &exchange, &assetClass,
		&avg, &basis, &mv, &upl, &cur,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	pos.Side = domain.PositionSide(side)
	pos.Exchange = domain.Exchange(exchange)
	pos.AssetClass = domain.AssetClass(assetClass)
	pos.AvgEntryPrice = floatPtr(avg)
	pos.CostBasis = floatPtr(basis)
	pos.MarketValue = floatPtr(mv)
	pos.UnrealizedPL = floatPtr(upl)
	pos.CurrentPrice = floatPtr(cur)
	return &pos, nil
}

const positionColumns = `symbol, qty, side, exchange, asset_class,
	avg_entry_price, cost_basis, market_value, unrealized_pl, current_price`

// GetPosition retrieves the position for a symbol.
func (s *SQLiteStore) GetPosition(ctx context.Context, symbol string) (*domain.Position, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+positionColumns+` FROM positions WHERE symbol = ?`, symbol)
	return s.scanPosition(row)
}

// ListPositions returns all positions, ordered by symbol.
func (s *SQLiteStore) ListPositions(ctx context.Context) ([]domain.Position, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+positionColumns+` FROM positions ORDER BY symbol`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var positions []domain.Position
	for rows.Next() {
		pos, err := s.scanPosition(rows)
		if err != nil {
			return nil, err
		}
		positions = append(positions, *pos)
	}
	return positions, rows.Err()
}

// DeletePosition removes the position for a symbol.
func (s *SQLiteStore) DeletePosition(ctx context.Context, symbol string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM positions WHERE symbol = ?`, symbol)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
