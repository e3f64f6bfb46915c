package persistence

import (
	"database/sql"
	"fmt"
	"net/url"

	"kayzen-ingest/infrastructure/configuration"
	"kayzen-ingest/infrastructure/logger"

	_ "github.com/lib/pq"
)

// NewPostgreSQLDB opens a PostgreSQL connection for the run history.
func NewPostgreSQLDB(cfg configuration.Database) (*sql.DB, error) {
	db, err := sql.Open("postgres", postgresDSN(cfg))
	if err != nil {
		return nil, err
	}
	logger.GetLogger().WithField("host", cfg.Host).WithField("database", cfg.Name).Debug("Opening PostgreSQL connection")
	return configurePool(db)
}

func postgresDSN(cfg configuration.Database) string {
	q := url.Values{}
	q.Set("sslmode", "disable")
	if cfg.Host != "localhost" && cfg.Host != "127.0.0.1" {
		q.Set("sslmode", "require")
	}
	u := &url.URL{
		Scheme:   "postgres",
		Host:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Path:     "/" + cfg.Name,
		RawQuery: q.Encode(),
	}
	if cfg.User != "" {
		u.User = url.UserPassword(cfg.User, cfg.Password)
	}
	return u.String()
}

// NewRunHistoryDB opens the run-history database for the configured vendor and
// makes sure its schema exists. An empty vendor returns (nil, nil, nil).
func NewRunHistoryDB(cfg configuration.Database) (*sql.DB, *RunRepository, error) {
	var (
		db     *sql.DB
		err    error
		ensure func(*sql.DB) error
		repo   func(*sql.DB) *RunRepository
	)
	switch cfg.Vendor {
	case "":
		return nil, nil, nil
	case "postgres":
		db, err = NewPostgreSQLDB(cfg)
		ensure, repo = EnsureRunSchema, NewRunRepository
	case "mssql":
		db, err = NewMSSQLDB(cfg)
		ensure, repo = EnsureRunSchemaMSSQL, NewRunRepositoryMSSQL
	default:
		return nil, nil, fmt.Errorf("unsupported DB_VENDOR %q", cfg.Vendor)
	}
	if err != nil {
		return nil, nil, err
	}
	if err := ensure(db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return db, repo(db), nil
}
