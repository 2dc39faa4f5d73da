package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/julianstephens/daybell/internal/config"
	"github.com/julianstephens/daybell/internal/constants"
	"github.com/julianstephens/daybell/internal/keyring"
	"github.com/julianstephens/daybell/internal/logger"
	"github.com/julianstephens/daybell/internal/storage"
	"github.com/julianstephens/daybell/internal/storage/jsonfile"
	"github.com/julianstephens/daybell/internal/storage/postgres"
	"github.com/julianstephens/daybell/internal/storage/sqlite"
)

// getConnectionString is swapped in tests.
var getConnectionString = keyring.GetConnectionString

// ResolveStore picks the store selector. An explicit value wins; otherwise
// a connection string saved in the OS keyring is used, then the default
// SQLite path.
func ResolveStore(selector string) string {
	if strings.TrimSpace(selector) != "" {
		return selector
	}
	connStr, err := getConnectionString()
	if err == nil && connStr != "" {
		logger.Debug("Using connection string from keyring")
		return connStr
	}
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		logger.Debug("Keyring lookup failed", "error", err)
	}
	return constants.DefaultStorePath
}

// IsPostgres reports whether selector is a PostgreSQL URL or DSN.
func IsPostgres(selector string) bool {
	return postgres.IsURL(selector) || strings.Contains(selector, "host=")
}

// OpenBackend constructs the backend named by selector without loading it.
// PostgreSQL URLs and DSNs select postgres, *.json selects the JSON file
// store and anything else is a SQLite path.
func OpenBackend(selector string) (storage.Backend, error) {
	switch {
	case IsPostgres(selector):
		if _, err := postgres.ValidateConnString(selector); err != nil {
			if errors.Is(err, postgres.ErrEmbeddedCredentials) {
				return nil, fmt.Errorf("%w; store the connection string with 'daybell keyring set' or use .pgpass", err)
			}
			return nil, err
		}
		return postgres.New(selector), nil
	case strings.EqualFold(filepath.Ext(selector), ".json"):
		return jsonfile.New(config.ExpandPath(selector)), nil
	default:
		return sqlite.NewStore(config.ExpandPath(selector)), nil
	}
}
