package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported database/sql driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverPgx      = "pgx"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// New opens and pings the store. SQLite connections use case sensitive LIKE so product
// lookups behave the same on every driver.
func New(ctx context.Context, driver, url string) (*sql.DB, error) {
	switch driver {
	case DriverSQLite:
		url = withPragma(url, "case_sensitive_like(1)")
		url = withPragma(url, "foreign_keys(1)")
	case DriverPostgres, DriverPgx:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	conn, err := sql.Open(driver, url)
	if err != nil {
		return nil, err
	}
	if driver == DriverSQLite {
		conn.SetMaxOpenConns(1)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return conn, nil
}

// Bootstrap runs the schema script for the driver. Every statement is idempotent.
func Bootstrap(ctx context.Context, conn *sql.DB, driver string) error {
	script, err := schemaFS.ReadFile("schema/" + dialect(driver) + ".sql")
	if err != nil {
		return fmt.Errorf("schema for %s: %w", driver, err)
	}

	for _, stmt := range strings.Split(string(script), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap schema: %w", err)
		}
	}
	return nil
}

// Rebind rewrites ? placeholders into $n for the postgres drivers.
func Rebind(driver, query string) string {
	if dialect(driver) != "postgres" {
		return query
	}

	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteString("$" + strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func dialect(driver string) string {
	if driver == DriverPostgres || driver == DriverPgx {
		return "postgres"
	}
	return "sqlite"
}

func withPragma(url, pragma string) string {
	sep := "?"
	if strings.Contains(url, "?") {
		sep = "&"
	}
	return url + sep + "_pragma=" + pragma
}
