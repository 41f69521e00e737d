package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	registry "utility-registry/internal/registry/domain"
)

// SubscribersTable is the subscriber table name, also used by the metrics gauge.
const SubscribersTable = "abonents"

// Dialect selects the SQL driver and migration set.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// ParseDialect validates a configured driver name.
func ParseDialect(name string) (Dialect, error) {
	switch Dialect(strings.ToLower(strings.TrimSpace(name))) {
	case DialectPostgres:
		return DialectPostgres, nil
	case DialectSQLite, "sqlite3":
		return DialectSQLite, nil
	default:
		return "", fmt.Errorf("sqlstore: unsupported driver %q", name)
	}
}

func (d Dialect) driverName() string {
	if d == DialectPostgres {
		return "pgx"
	}
	return "sqlite3"
}

// Store persists subscribers and monthly readings.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// Open connects to the database and verifies the connection.
func Open(ctx context.Context, dialect Dialect, dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("sqlstore: dsn required")
	}
	if dialect == DialectSQLite {
		if dir := sqliteDir(dsn); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("sqlstore: create database dir: %w", err)
			}
		}
	}
	db, err := sql.Open(dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open: %w", err)
	}
	if dialect == DialectSQLite {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlstore: ping: %w", err)
	}
	return New(db, dialect)
}

// sqliteDir returns the directory holding the database file of a sqlite DSN,
// or "" for in-memory databases and files in the working directory.
func sqliteDir(dsn string) string {
	path, query, _ := strings.Cut(strings.TrimPrefix(dsn, "file:"), "?")
	if path == "" || strings.HasPrefix(path, ":memory:") || strings.Contains(query, "mode=memory") {
		return ""
	}
	if dir := filepath.Dir(path); dir != "." {
		return dir
	}
	return ""
}

// New wraps an existing connection pool.
func New(db *sql.DB, dialect Dialect) (*Store, error) {
	if db == nil {
		return nil, errors.New("sqlstore: nil db")
	}
	if dialect != DialectPostgres && dialect != DialectSQLite {
		return nil, fmt.Errorf("sqlstore: unsupported dialect %q", dialect)
	}
	return &Store{db: db, dialect: dialect}, nil
}

// DB exposes the pool for migrations, audit and metrics.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect returns the store dialect.
func (s *Store) Dialect() Dialect {
	return s.dialect
}

// Close closes the pool.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// ListSubscribers returns all subscribers ordered by id.
func (s *Store) ListSubscribers(ctx context.Context) ([]registry.Subscriber, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("sqlstore: nil db")
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, fullname, electricity_meter, transformation_ratio, water_meter, wastewater, gas_meter
FROM abonents
ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []registry.Subscriber
	for rows.Next() {
		var (
			sub                                 registry.Subscriber
			electricity, water, wastewater, gas sql.NullString
			ratio                               sql.NullFloat64
		)
		if err := rows.Scan(&sub.ID, &sub.Name, &electricity, &ratio, &water, &wastewater, &gas); err != nil {
			return nil, err
		}
		sub.ElectricityMeter = electricity.String
		sub.TransformationRatio = ratio.Float64
		sub.WaterMeter = water.String
		sub.Wastewater = wastewater.String
		sub.GasMeter = gas.String
		out = append(out, sub)
	}
	return out, rows.Err()
}

// GetReading returns nil, nil when no row exists for the period.
func (s *Store) GetReading(ctx context.Context, subscriberID int64, period registry.Period) (*registry.Reading, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("sqlstore: nil db")
	}
	row := s.db.QueryRowContext(ctx, s.rebind(`
SELECT electricity, water, wastewater, gas
FROM monthly_data
WHERE abonent_id = $1 AND month = $2 AND year = $3
LIMIT 1`), subscriberID, period.Month, period.Year)

	var electricity, water, wastewater, gas sql.NullFloat64
	if err := row.Scan(&electricity, &water, &wastewater, &gas); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &registry.Reading{
		SubscriberID: subscriberID,
		Period:       period,
		Electricity:  nullableFloat(electricity),
		Water:        nullableFloat(water),
		Wastewater:   nullableFloat(wastewater),
		Gas:          nullableFloat(gas),
	}, nil
}

// AddSubscriber inserts a subscriber. A zero ID is assigned by the database.
func (s *Store) AddSubscriber(ctx context.Context, sub registry.Subscriber) (int64, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("sqlstore: nil db")
	}
	if strings.TrimSpace(sub.Name) == "" {
		return 0, registry.ErrEmptySubscriberName
	}
	args := []any{
		sub.Name,
		nullString(sub.ElectricityMeter),
		nullRatio(sub.TransformationRatio),
		nullString(sub.WaterMeter),
		nullString(sub.Wastewater),
		nullString(sub.GasMeter),
	}
	if sub.ID == 0 {
		var id int64
		err := s.db.QueryRowContext(ctx, s.rebind(`
INSERT INTO abonents (fullname, electricity_meter, transformation_ratio, water_meter, wastewater, gas_meter)
VALUES ($1,$2,$3,$4,$5,$6)
RETURNING id`), args...).Scan(&id)
		return id, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	_, err = tx.ExecContext(ctx, s.rebind(`
INSERT INTO abonents (id, fullname, electricity_meter, transformation_ratio, water_meter, wastewater, gas_meter)
VALUES ($1,$2,$3,$4,$5,$6,$7)`), append([]any{sub.ID}, args...)...)
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	if s.dialect == DialectPostgres {
		_, err = tx.ExecContext(ctx, `
SELECT setval(pg_get_serial_sequence('abonents', 'id'), (SELECT MAX(id) FROM abonents))`)
		if err != nil {
			_ = tx.Rollback()
			return 0, err
		}
	}
	return sub.ID, tx.Commit()
}

// PutReading inserts or replaces the reading for (subscriber, month, year).
func (s *Store) PutReading(ctx context.Context, reading registry.Reading) error {
	if s == nil || s.db == nil {
		return errors.New("sqlstore: nil db")
	}
	if err := reading.Period.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, s.rebind(`
INSERT INTO monthly_data (abonent_id, month, year, electricity, water, wastewater, gas)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (abonent_id, month, year) DO UPDATE SET
	electricity = excluded.electricity,
	water = excluded.water,
	wastewater = excluded.wastewater,
	gas = excluded.gas`),
		reading.SubscriberID, reading.Period.Month, reading.Period.Year,
		floatArg(reading.Electricity), floatArg(reading.Water), floatArg(reading.Wastewater), floatArg(reading.Gas))
	return err
}

// rebind converts $N placeholders to ? for SQLite. Queries must use each
// placeholder once, in ascending order.
func (s *Store) rebind(query string) string {
	if s.dialect != DialectSQLite {
		return query
	}
	var b strings.Builder
	b.Grow(len(query))
	for i := 0; i < len(query); i++ {
		if query[i] == '$' && i+1 < len(query) && query[i+1] >= '0' && query[i+1] <= '9' {
			b.WriteByte('?')
			for i+1 < len(query) && query[i+1] >= '0' && query[i+1] <= '9' {
				i++
			}
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func nullableFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return registry.Float(v.Float64)
}

func floatArg(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullString(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}

func nullRatio(v float64) any {
	if v == 0 {
		return nil
	}
	return v
}
