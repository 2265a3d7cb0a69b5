package sqldb

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/patric-chuzhbe/linkshrt/internal/models"
)

const (
	mysqlDuplicateEntry     = 1062
	postgresUniqueViolation = "23505"
	defaultMySQLPort        = 3306
	defaultPostgresPort     = 5432
	defaultConnectTimeout   = 10 * time.Second
	migrationsRoot          = "migrations"
	postgresSSLMode         = "disable"
)

// ErrUnknownDialect is returned for database types the store has no driver for.
var ErrUnknownDialect = errors.New("unknown SQL dialect")

type dialect struct {
	name          string
	driverName    string
	gooseDialect  string
	migrationsDir string
	placeholder   func(position int) string
	isDuplicate   func(err error) bool
}

var dialects = map[string]dialect{
	models.DatabaseTypeMySQL: {
		name:          models.DatabaseTypeMySQL,
		driverName:    "mysql",
		gooseDialect:  "mysql",
		migrationsDir: migrationsRoot + "/mysql",
		placeholder:   func(int) string { return "?" },
		isDuplicate:   isMySQLDuplicate,
	},
	models.DatabaseTypePostgres: {
		name:          models.DatabaseTypePostgres,
		driverName:    "pgx",
		gooseDialect:  "postgres",
		migrationsDir: migrationsRoot + "/postgres",
		placeholder:   func(position int) string { return "$" + strconv.Itoa(position) },
		isDuplicate:   isPostgresDuplicate,
	},
}

func lookupDialect(name string) (dialect, error) {
	d, ok := dialects[name]
	if !ok {
		return dialect{}, fmt.Errorf("%w: %q", ErrUnknownDialect, name)
	}

	return d, nil
}

func isMySQLDuplicate(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry
}

func isPostgresDuplicate(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == postgresUniqueViolation
}

// ConnectionSettings are the discrete connection parameters a DSN is assembled from.
type ConnectionSettings struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
}

// BuildDSN renders the settings into a data source name understood by the driver of the dialect.
func BuildDSN(dialectName string, settings ConnectionSettings) (string, error) {
	switch dialectName {
	case models.DatabaseTypeMySQL:
		port := settings.Port
		if port == 0 {
			port = defaultMySQLPort
		}

		cfg := mysql.NewConfig()
		cfg.User = settings.User
		cfg.Passwd = settings.Password
		cfg.Net = "tcp"
		cfg.Addr = net.JoinHostPort(settings.Host, strconv.Itoa(port))
		cfg.DBName = settings.Name
		cfg.Timeout = defaultConnectTimeout
		cfg.ParseTime = true

		return cfg.FormatDSN(), nil

	case models.DatabaseTypePostgres:
		port := settings.Port
		if port == 0 {
			port = defaultPostgresPort
		}

		dsn := url.URL{
			Scheme:   "postgres",
			Host:     net.JoinHostPort(settings.Host, strconv.Itoa(port)),
			Path:     "/" + settings.Name,
			RawQuery: "sslmode=" + postgresSSLMode,
		}
		if settings.User != "" {
			dsn.User = url.UserPassword(settings.User, settings.Password)
		}

		return dsn.String(), nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownDialect, dialectName)
}
