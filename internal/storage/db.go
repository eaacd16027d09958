package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	// Register the postgres driver
	_ "github.com/lib/pq"
	// Register the sqlite driver
	_ "modernc.org/sqlite"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Options selects the backend and its data source.
type Options struct {
	// Driver is DriverSQLite or DriverPostgres.
	Driver string
	// DSN is a file path (or ":memory:") for sqlite, a connection URL for postgres.
	DSN string
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// store holds the query methods shared by DB and Tx.
type store struct {
	q      queryer
	driver string
}

// rebind rewrites ? placeholders into $n for postgres.
func (s store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// DB wraps a sql.DB connection.
type DB struct {
	store
	conn *sql.DB
}

// Tx is a store bound to a single database transaction.
type Tx struct {
	store
	tx *sql.Tx
}

// NewDB opens a sqlite database at path and runs migrations.
func NewDB(path string) (*DB, error) {
	return Open(context.Background(), Options{Driver: DriverSQLite, DSN: path})
}

// Open opens a database connection for the configured driver and runs migrations.
func Open(ctx context.Context, opts Options) (*DB, error) {
	var (
		conn *sql.DB
		err  error
	)
	switch opts.Driver {
	case DriverSQLite, "":
		opts.Driver = DriverSQLite
		conn, err = sql.Open("sqlite", sqliteDSN(opts.DSN))
		if err != nil {
			return nil, err
		}
		// One connection serializes writers and keeps :memory: databases alive.
		conn.SetMaxOpenConns(1)
	case DriverPostgres:
		conn, err = sql.Open("postgres", opts.DSN)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	db := &DB{store: store{q: conn, driver: opts.Driver}, conn: conn}
	if err := db.migrate(opts); err != nil {
		conn.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

func sqliteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// Driver returns the name of the backend in use.
func (db *DB) Driver() string {
	return db.driver
}

// Ping verifies the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// InTx runs fn inside a transaction. The transaction is committed when fn
// returns nil and rolled back on any error or panic.
func (db *DB) InTx(ctx context.Context, fn func(tx *Tx) error) (err error) {
	sqlTx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&Tx{store: store{q: sqlTx, driver: db.driver}, tx: sqlTx}); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
