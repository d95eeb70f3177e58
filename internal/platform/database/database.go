// Package database opens the relational store behind the persistence gateway.
// MySQL is the default; Postgres is supported through pgx's database/sql driver.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"

	"profreg/internal/platform/config"
)

// Dialect captures the few SQL differences between the supported drivers.
type Dialect string

const (
	MySQL    Dialect = "mysql"
	Postgres Dialect = "postgres"
)

// Rebind rewrites '?' placeholders to '$n' for Postgres. Queries must not
// contain literal question marks.
func (d Dialect) Rebind(query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
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

// FromDual is the FROM clause a table-less SELECT with a WHERE needs.
func (d Dialect) FromDual() string {
	if d == MySQL {
		return " FROM DUAL"
	}
	return ""
}

// Open prepares a *sql.DB for cfg. It does not dial: connection errors
// surface per request, never at start.
func Open(cfg config.DatabaseConfig) (*sql.DB, Dialect, error) {
	driverName, dsn, dialect, err := DSN(cfg)
	if err != nil {
		return nil, "", err
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w", dialect, err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	// zero idle connections: every released *sql.Conn is really closed
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	return db, dialect, nil
}

// DSN builds the driver name and connection string for cfg.
func DSN(cfg config.DatabaseConfig) (driverName, dsn string, dialect Dialect, err error) {
	switch cfg.Driver {
	case config.DriverMySQL, "":
		mc := mysql.NewConfig()
		mc.User = cfg.User
		mc.Passwd = cfg.Password
		mc.Net = "tcp"
		mc.Addr = hostPort(cfg.Host, cfg.Port, "3306")
		mc.DBName = cfg.Name
		return "mysql", mc.FormatDSN(), MySQL, nil
	case config.DriverPostgres:
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(cfg.User, cfg.Password),
			Host:   hostPort(cfg.Host, cfg.Port, "5432"),
			Path:   "/" + cfg.Name,
		}
		return "pgx", u.String(), Postgres, nil
	default:
		return "", "", "", fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func hostPort(host, port, defaultPort string) string {
	if host == "" {
		host = "localhost"
	}
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}
	if port == "" {
		port = defaultPort
	}
	return net.JoinHostPort(host, port)
}

const createProfessionTable = `CREATE TABLE IF NOT EXISTS profession (
	name VARCHAR(255) NOT NULL,
	surname VARCHAR(255) NOT NULL,
	phone VARCHAR(16) NOT NULL UNIQUE,
	email VARCHAR(255) NOT NULL UNIQUE,
	profession TEXT NOT NULL
)`

// EnsureSchema creates the profession table when it does not exist yet. The
// UNIQUE columns back up the application-level duplicate check.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, createProfessionTable); err != nil {
		return fmt.Errorf("create profession table: %w", err)
	}
	return nil
}
