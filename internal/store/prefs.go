package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/i474232898/epd-weather/internal/cycle"
)

// Supported preference store drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Prefs is a small key/value store on top of database/sql that survives
// restarts, standing in for the device's non-volatile storage.
type Prefs struct {
	db     *sql.DB
	driver string
}

var _ cycle.Prefs = (*Prefs)(nil)

// OpenPrefs opens the store and creates its table.
func OpenPrefs(ctx context.Context, driver, dsn string) (*Prefs, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported prefs driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if driver == DriverSQLite {
		// One connection keeps ":memory:" databases alive and serialises writers.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	p := &Prefs{db: db, driver: driver}
	if err := p.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return p, nil
}

func (p *Prefs) migrate(ctx context.Context) error {
	const schema = `CREATE TABLE IF NOT EXISTS prefs (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at BIGINT NOT NULL
	)`
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create prefs table: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (p *Prefs) Close() error {
	return p.db.Close()
}

// rebind rewrites ? placeholders to $n for postgres.
func (p *Prefs) rebind(query string) string {
	if p.driver != DriverPostgres {
		return query
	}
	out := make([]byte, 0, len(query)+8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			out = append(out, '$')
			out = strconv.AppendInt(out, int64(n), 10)
			continue
		}
		out = append(out, query[i])
	}
	return string(out)
}

func (p *Prefs) get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := p.db.QueryRowContext(ctx, p.rebind(`SELECT value FROM prefs WHERE key = ?`), key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get pref %s: %w", key, err)
	}
	return value, true, nil
}

func (p *Prefs) put(ctx context.Context, key, value string) error {
	query := p.rebind(`INSERT INTO prefs (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`)
	if _, err := p.db.ExecContext(ctx, query, key, value, time.Now().Unix()); err != nil {
		return fmt.Errorf("put pref %s: %w", key, err)
	}
	return nil
}

// GetBool returns the stored flag or def when unset.
func (p *Prefs) GetBool(ctx context.Context, key string, def bool) (bool, error) {
	v, ok, err := p.get(ctx, key)
	if err != nil || !ok {
		return def, err
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("pref %s: %w", key, err)
	}
	return b, nil
}

// PutBool stores a flag.
func (p *Prefs) PutBool(ctx context.Context, key string, v bool) error {
	return p.put(ctx, key, strconv.FormatBool(v))
}

// GetInt returns the stored integer or def when unset.
func (p *Prefs) GetInt(ctx context.Context, key string, def int64) (int64, error) {
	v, ok, err := p.get(ctx, key)
	if err != nil || !ok {
		return def, err
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def, fmt.Errorf("pref %s: %w", key, err)
	}
	return n, nil
}

// PutInt stores an integer.
func (p *Prefs) PutInt(ctx context.Context, key string, v int64) error {
	return p.put(ctx, key, strconv.FormatInt(v, 10))
}
