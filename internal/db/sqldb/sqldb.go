// Package sqldb provides a relational implementation of the URL mapping store.
// MySQL is the primary engine; PostgreSQL is accepted as an equivalent one.
// The schema is owned by goose migrations embedded into the binary.
package sqldb

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/patric-chuzhbe/linkshrt/internal/models"
)

//go:embed migrations/*/*.sql
var migrations embed.FS

// SQLDB is a connection pool backed store of URL mappings.
type SQLDB struct {
	database     *sql.DB
	dialect      dialect
	queryTimeout time.Duration
}

// Options describe how to open the pool.
type Options struct {
	Dialect         string
	DSN             string
	QueryTimeout    time.Duration
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type initOptions struct {
	schemaReset bool
}

// InitOption defines a functional option for EnsureSchema.
type InitOption func(*initOptions)

// WithSchemaReset rolls every migration back before applying them again.
// It drops all stored mappings and is meant for test setups.
func WithSchemaReset(value bool) InitOption {
	return func(options *initOptions) {
		options.schemaReset = value
	}
}

// New opens a connection pool for the configured dialect. It does not touch the schema,
// call EnsureSchema for that.
func New(options Options) (*SQLDB, error) {
	d, err := lookupDialect(options.Dialect)
	if err != nil {
		return nil, err
	}

	database, err := sql.Open(d.driverName, options.DSN)
	if err != nil {
		return nil,
			fmt.Errorf(
				"in internal/db/sqldb/sqldb.go/New(): error while `sql.Open()` calling: %w",
				err,
			)
	}

	if options.MaxOpenConns > 0 {
		database.SetMaxOpenConns(options.MaxOpenConns)
	}
	if options.MaxIdleConns > 0 {
		database.SetMaxIdleConns(options.MaxIdleConns)
	}
	if options.ConnMaxLifetime > 0 {
		database.SetConnMaxLifetime(options.ConnMaxLifetime)
	}

	return &SQLDB{
		database:     database,
		dialect:      d,
		queryTimeout: options.QueryTimeout,
	}, nil
}

// NewWithDB wraps an already opened pool, e.g. one produced by sqlmock.
func NewWithDB(database *sql.DB, dialectName string, queryTimeout time.Duration) (*SQLDB, error) {
	d, err := lookupDialect(dialectName)
	if err != nil {
		return nil, err
	}

	return &SQLDB{
		database:     database,
		dialect:      d,
		queryTimeout: queryTimeout,
	}, nil
}

// EnsureSchema applies the embedded migrations. Running it against an up to date
// schema is a no-op.
func (db *SQLDB) EnsureSchema(ctx context.Context, optionsProto ...InitOption) error {
	options := &initOptions{
		schemaReset: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	goose.SetBaseFS(migrations)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect(db.dialect.gooseDialect); err != nil {
		return fmt.Errorf(
			"in internal/db/sqldb/sqldb.go/EnsureSchema(): error while `goose.SetDialect()` calling: %w",
			err,
		)
	}

	if options.schemaReset {
		if err := goose.ResetContext(ctx, db.database, db.dialect.migrationsDir); err != nil {
			return fmt.Errorf(
				"in internal/db/sqldb/sqldb.go/EnsureSchema(): error while `goose.ResetContext()` calling: %w",
				err,
			)
		}
	}

	if err := goose.UpContext(ctx, db.database, db.dialect.migrationsDir); err != nil {
		return fmt.Errorf(
			"in internal/db/sqldb/sqldb.go/EnsureSchema(): error while `goose.UpContext()` calling: %w",
			err,
		)
	}

	return nil
}

// Exists reports whether a mapping with the given token is stored.
func (db *SQLDB) Exists(ctx context.Context, token string) (bool, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	row := db.database.QueryRowContext(
		ctx,
		`SELECT COUNT(*) FROM urls WHERE short_url = `+db.dialect.placeholder(1),
		token,
	)
	var count int
	if err := row.Scan(&count); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}

		return false, fmt.Errorf(
			"in internal/db/sqldb/sqldb.go/Exists(): error while `row.Scan()` calling: %w",
			err,
		)
	}

	return count > 0, nil
}

// Insert stores a new mapping. A token that is already taken yields models.ErrDuplicateKey.
func (db *SQLDB) Insert(ctx context.Context, originalURL, token string) error {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	_, err := db.database.ExecContext(
		ctx,
		`INSERT INTO urls (original_url, short_url) VALUES (`+
			db.dialect.placeholder(1)+`, `+db.dialect.placeholder(2)+`)`,
		originalURL,
		token,
	)
	if err != nil {
		if db.dialect.isDuplicate(err) {
			return fmt.Errorf("%w: %q", models.ErrDuplicateKey, token)
		}

		return fmt.Errorf(
			"in internal/db/sqldb/sqldb.go/Insert(): error while `ExecContext()` calling: %w",
			err,
		)
	}

	return nil
}

// Lookup returns the destination stored for the token, or models.ErrNotFound.
func (db *SQLDB) Lookup(ctx context.Context, token string) (string, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	row := db.database.QueryRowContext(
		ctx,
		`SELECT original_url FROM urls WHERE short_url = `+db.dialect.placeholder(1),
		token,
	)
	var originalURL string
	if err := row.Scan(&originalURL); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", models.ErrNotFound
		}

		return "", fmt.Errorf(
			"in internal/db/sqldb/sqldb.go/Lookup(): error while `row.Scan()` calling: %w",
			err,
		)
	}

	return originalURL, nil
}

// Ping checks the connectivity of the pool.
func (db *SQLDB) Ping(ctx context.Context) error {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	return db.database.PingContext(ctx)
}

// Dialect reports the engine name the store was opened for.
func (db *SQLDB) Dialect() string {
	return db.dialect.name
}

// Close closes the pool and releases any associated resources.
func (db *SQLDB) Close() error {
	return db.database.Close()
}

func (db *SQLDB) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if db.queryTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, db.queryTimeout)
}
