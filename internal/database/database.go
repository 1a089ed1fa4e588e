package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	_ "github.com/tursodatabase/libsql-client-go/libsql"

	"github.com/mauv0809/ripple-snapshot/internal/config"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Dialect identifies which SQL flavour a connection speaks.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite3"
	DialectLibSQL   Dialect = "libsql"
	DialectPostgres Dialect = "postgres"
)

// InitDB opens the ranking database described by cfg and, when requested,
// brings its schema up to date.
func InitDB(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, Dialect, error) {
	db, dialect, err := Open(ctx, cfg)
	if err != nil {
		return nil, "", err
	}
	if cfg.Migrate {
		if err := Migrate(ctx, db, dialect); err != nil {
			db.Close()
			return nil, "", err
		}
	}
	return db, dialect, nil
}

// Open opens and pings a connection pool without touching the schema.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, Dialect, error) {
	driver, dsn, dialect := resolve(cfg)
	switch dialect {
	case DialectPostgres:
		log.Info("Opening Postgres ranking database")
	case DialectLibSQL:
		log.Info("Opening Turso ranking database", "url", cfg.Turso.PrimaryURL)
	default:
		log.Info("Opening local SQLite ranking database", "path", cfg.DBName)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open %s database: %w", dialect, err)
	}
	if dialect == DialectSQLite && isMemory(cfg.DBName) {
		// Every new connection to :memory: is a fresh, empty database.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, "", fmt.Errorf("failed to ping %s database: %w", dialect, err)
	}
	return db, dialect, nil
}

// Migrate applies the embedded goose migrations.
func Migrate(ctx context.Context, db *sql.DB, dialect Dialect) error {
	fsys, err := fs.Sub(embedMigrations, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(dialect.goose(), db, fsys)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	log.Info("Database migrated", "applied", len(results))
	return nil
}

func resolve(cfg config.DatabaseConfig) (driver, dsn string, dialect Dialect) {
	url := strings.TrimSpace(cfg.DatabaseURL)
	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
		return "pgx", url, DialectPostgres
	}
	if cfg.Turso.PrimaryURL != "" {
		return "libsql", cfg.Turso.PrimaryURL + "?authToken=" + cfg.Turso.AuthToken, DialectLibSQL
	}
	if isMemory(cfg.DBName) {
		return "sqlite3", ":memory:", DialectSQLite
	}
	return "sqlite3", "file:" + cfg.DBName + "?_busy_timeout=5000", DialectSQLite
}

func isMemory(name string) bool {
	return name == ":memory:" || name == ""
}

func (d Dialect) goose() goose.Dialect {
	switch d {
	case DialectPostgres:
		return goose.DialectPostgres
	case DialectLibSQL:
		return goose.DialectTurso
	default:
		return goose.DialectSQLite3
	}
}

// Rebind rewrites '?' placeholders into the dialect's native form.
func (d Dialect) Rebind(query string) string {
	if d != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 16)
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
