package storage

import (
	"errors"
	"fmt"

	"github.com/julianstephens/nutrilog/internal/storage/postgres"
	"github.com/julianstephens/nutrilog/internal/storage/sqlite"
)

// IsPostgres reports whether target names a PostgreSQL database, as a URL or a
// key=value string, rather than a SQLite file.
func IsPostgres(target string) bool {
	return postgres.IsConnString(target) || postgres.IsDSN(target)
}

// New returns an unopened provider for target: a PostgreSQL URL or DSN, or a SQLite file path.
// Callers must Init or Load it before use.
func New(target string) (Provider, error) {
	if IsPostgres(target) {
		if err := postgres.ValidateConnString(target); err != nil {
			if errors.Is(err, postgres.ErrEmbeddedCredentials) {
				return nil, fmt.Errorf("%w; store the URL with 'nutrilog keyring set' or set %s instead", err, "NUTRILOG_DB_CONNECTION")
			}
			return nil, err
		}
		return postgres.New(target), nil
	}
	return sqlite.NewStore(target), nil
}

// NewTrusted is New for connection strings read from the keyring or the
// environment, which may carry a password.
func NewTrusted(target string) Provider {
	if IsPostgres(target) {
		return postgres.New(target)
	}
	return sqlite.NewStore(target)
}
