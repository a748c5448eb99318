package catalog

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/go-sql-driver/mysql"
	"github.com/pressly/goose/v3"
	"imgaudit/pkg/config"
	errs "imgaudit/pkg/errors"
	"imgaudit/pkg/logger"
	"imgaudit/pkg/retry"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// goose keeps its base FS and dialect in package globals
var migrateMu sync.Mutex

// DataSourceName builds the driver name and DSN for cfg
func DataSourceName(cfg config.DatabaseConfig) (driver, dsn string, err error) {
	switch cfg.Driver {
	case "mysql":
		if cfg.DSN != "" {
			return "mysql", cfg.DSN, nil
		}
		mc := mysql.NewConfig()
		mc.User = cfg.User
		mc.Passwd = cfg.Password
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
		mc.DBName = cfg.Name
		return "mysql", mc.FormatDSN(), nil
	case "sqlite":
		if cfg.DSN != "" {
			return "sqlite", cfg.DSN, nil
		}
		if cfg.Name == "" {
			return "", "", errs.New(errs.ErrorTypeConfig, "sqlite requires database.name or database.dsn", nil)
		}
		return "sqlite", cfg.Name, nil
	default:
		return "", "", errs.New(errs.ErrorTypeConfig, fmt.Sprintf("unsupported database driver %q", cfg.Driver), nil)
	}
}

// Open connects to the database, retrying until it answers a ping or the
// configured attempts run out.
func Open(ctx context.Context, cfg config.DatabaseConfig, log logger.Logger) (*sql.DB, error) {
	log = logger.OrNop(log)

	driver, dsn, err := DataSourceName(cfg)
	if err != nil {
		return nil, err
	}

	attempts := cfg.ConnectAttempts
	if attempts <= 0 {
		attempts = 1
	}
	rc := retry.Fixed(attempts, cfg.ConnectDelay, log)
	rc.Operation = "db_connect"

	db, err := retry.DoWithResult(ctx, func(ctx context.Context) (*sql.DB, error) {
		db, err := sql.Open(driver, dsn)
		if err != nil {
			return nil, errs.New(errs.ErrorTypeDatabase, "open failed", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, errs.New(errs.ErrorTypeDatabase, "ping failed", err)
		}
		return db, nil
	}, rc)
	if err != nil {
		return nil, fmt.Errorf("connect to %s database: %w", driver, err)
	}

	if driver == "sqlite" {
		// One connection keeps an in-memory database visible to every query
		db.SetMaxOpenConns(1)
	}

	log.InfoWithFields("Database connected", map[string]interface{}{
		"driver": driver,
		"host":   cfg.Host,
		"name":   cfg.Name,
	})

	return db, nil
}

// Migrate applies the bundled schema migrations. dialect is a goose dialect
// name such as "sqlite3" or "mysql".
func Migrate(db *sql.DB, dialect string, log logger.Logger) error {
	migrateMu.Lock()
	defer migrateMu.Unlock()

	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(gooseLogger{log: logger.OrNop(log)})
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("goose set dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// GooseDialect maps a configured driver to its goose dialect
func GooseDialect(driver string) string {
	if driver == "sqlite" {
		return "sqlite3"
	}
	return driver
}

// gooseLogger routes goose output through the application logger
type gooseLogger struct {
	log logger.Logger
}

func (g gooseLogger) Printf(format string, v ...interface{}) {
	g.log.WithField("component", "migrate").Debug(fmt.Sprintf(format, v...))
}

func (g gooseLogger) Fatalf(format string, v ...interface{}) {
	g.log.WithField("component", "migrate").Error(fmt.Sprintf(format, v...))
}
