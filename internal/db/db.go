package db

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrClosed is returned by batch operations after Close
var ErrClosed = errors.New("database closed")

// Options tunes an opened DB
type Options struct {
	CacheTTL time.Duration // hostmask -> id cache lifetime, 0 means 10m
}

// DB wraps a single SQLite connection that always has one open batch
// transaction. Every read and write goes through that transaction so
// uncommitted writes stay visible to later lookups.
//
// Store methods do not lock. Callers serialize access with Do; the batch
// methods (CommitIfDirty, Rollback, Vacuum, Close) take the lock themselves.
type DB struct {
	conn *sqlx.DB
	Path string

	mu      sync.Mutex
	tx      *sqlx.Tx
	batchID string
	writes  int
	closed  bool

	masks *ttlcache.Cache[string, int64]
}

// Open opens a SQLite database, applies migrations and starts the first batch
func Open(path string, opts Options) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// One connection: the batch transaction owns it, and ":memory:" databases
	// are per-connection.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("setting %q: %w", pragma, err)
		}
	}

	if err := migrateUp(conn.DB); err != nil {
		conn.Close()
		return nil, err
	}

	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	masks := ttlcache.New[string, int64](
		ttlcache.WithTTL[string, int64](ttl),
		ttlcache.WithCapacity[string, int64](100_000),
	)
	go masks.Start()

	d := &DB{conn: conn, Path: path, masks: masks}
	if err := d.BeginBatch(); err != nil {
		masks.Stop()
		conn.Close()
		return nil, err
	}
	return d, nil
}

func migrateUp(conn *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(conn, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("preparing migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("preparing migrations: %w", err)
	}
	// m.Close would close conn as well, so it is never called.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// Do runs fn with the store lock held
func (d *DB) Do(fn func() error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return fn()
}

// ext returns the open batch, or the bare connection between batches
func (d *DB) ext() sqlx.Ext {
	if d.tx != nil {
		return d.tx
	}
	return d.conn
}

func (d *DB) exec(query string, args ...any) (sql.Result, error) {
	res, err := d.ext().Exec(query, args...)
	if err != nil {
		return nil, err
	}
	d.writes++
	return res, nil
}

// get scans one row into dest. Returns false without error when there is no row.
func (d *DB) get(dest any, query string, args ...any) (bool, error) {
	err := sqlx.Get(d.ext(), dest, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (d *DB) selectAll(dest any, query string, args ...any) error {
	return sqlx.Select(d.ext(), dest, query, args...)
}

// BeginBatch opens a new batch transaction if none is open
func (d *DB) BeginBatch() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.beginLocked()
}

func (d *DB) beginLocked() error {
	if d.closed {
		return ErrClosed
	}
	if d.tx != nil {
		return nil
	}
	tx, err := d.conn.Beginx()
	if err != nil {
		return fmt.Errorf("beginning batch: %w", err)
	}
	d.tx = tx
	d.batchID = uuid.NewString()
	d.writes = 0
	slog.Debug("batch opened", "batch", d.batchID)
	return nil
}

// Pending returns the number of writes since the last commit
func (d *DB) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writes
}

// CommitIfDirty commits the batch and opens a new one, but only when at
// least one write happened since the last commit. Reports whether it committed.
func (d *DB) CommitIfDirty() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.commitLocked()
}

func (d *DB) commitLocked() (bool, error) {
	if d.closed {
		return false, ErrClosed
	}
	if d.tx == nil || d.writes == 0 {
		return false, nil
	}
	writes, batch := d.writes, d.batchID
	if err := d.tx.Commit(); err != nil {
		d.tx = nil
		d.masks.DeleteAll()
		if berr := d.beginLocked(); berr != nil {
			return false, errors.Join(fmt.Errorf("committing batch %s: %w", batch, err), berr)
		}
		return false, fmt.Errorf("committing batch %s: %w", batch, err)
	}
	d.tx = nil
	slog.Debug("batch committed", "batch", batch, "writes", writes)
	return true, d.beginLocked()
}

// Rollback discards the open batch and starts a fresh one. The hostmask cache
// is cleared since it may hold ids that were never committed.
func (d *DB) Rollback() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rollbackLocked()
}

func (d *DB) rollbackLocked() error {
	if d.closed {
		return ErrClosed
	}
	d.masks.DeleteAll()
	if d.tx != nil {
		err := d.tx.Rollback()
		slog.Warn("batch rolled back", "batch", d.batchID, "writes", d.writes)
		d.tx = nil
		if err != nil {
			return errors.Join(fmt.Errorf("rolling back batch %s: %w", d.batchID, err), d.beginLocked())
		}
	}
	return d.beginLocked()
}

// Vacuum commits pending writes, compacts the file and reopens the batch
func (d *DB) Vacuum() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := d.commitLocked(); err != nil {
		return err
	}
	if d.tx != nil {
		// empty batch, nothing to keep
		if err := d.tx.Rollback(); err != nil {
			return fmt.Errorf("closing batch: %w", err)
		}
		d.tx = nil
	}
	if _, err := d.conn.Exec("VACUUM"); err != nil {
		return errors.Join(fmt.Errorf("vacuuming: %w", err), d.beginLocked())
	}
	slog.Info("database vacuumed", "path", d.Path)
	return d.beginLocked()
}

// Close commits pending writes and closes the connection
func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}

	var errs []error
	if _, err := d.commitLocked(); err != nil {
		errs = append(errs, err)
	}
	if d.tx != nil {
		if err := d.tx.Rollback(); err != nil {
			errs = append(errs, err)
		}
		d.tx = nil
	}
	d.closed = true
	d.masks.Stop()
	if err := d.conn.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
