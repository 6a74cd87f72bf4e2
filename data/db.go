package data

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

func init() {
	sqlx.BindDriver(string(DialectSQLite), sqlx.QUESTION)
}

// ParseDSN picks the driver from the DSN: postgres:// and postgresql:// go to
// Postgres; sqlite://path, file: URIs and :memory: go to SQLite.
func ParseDSN(dsn string) (Dialect, string, error) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return DialectPostgres, dsn, nil
	case strings.HasPrefix(dsn, "sqlite://"):
		path := strings.TrimPrefix(dsn, "sqlite://")
		if path == "" {
			return "", "", fmt.Errorf("sqlite dsn without a path")
		}
		return DialectSQLite, path, nil
	case strings.HasPrefix(dsn, "file:"), dsn == ":memory:":
		return DialectSQLite, dsn, nil
	default:
		return "", "", fmt.Errorf("unsupported archive dsn %q", redact(dsn))
	}
}

// Open connects to the archive and applies pending migrations.
func Open(dsn string) (*sqlx.DB, error) {
	dialect, source, err := ParseDSN(dsn)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Connect(string(dialect), source)
	if err != nil {
		return nil, fmt.Errorf("connect %s archive: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		// one connection, so :memory: databases survive between statements
		db.SetMaxOpenConns(1)
	}

	if err := RunMigrations(db, dialect); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func redact(dsn string) string {
	if at := strings.LastIndex(dsn, "@"); at >= 0 {
		if scheme := strings.Index(dsn, "://"); scheme >= 0 && scheme < at {
			return dsn[:scheme+3] + "***" + dsn[at:]
		}
	}
	return dsn
}
