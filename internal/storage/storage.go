// Package storage selects the persistence backend from the configured database URL.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/tyemirov/moviecatalog/internal/authkit"
	"github.com/tyemirov/moviecatalog/internal/catalog"
	"github.com/tyemirov/moviecatalog/internal/storage/mongostore"
	"github.com/tyemirov/moviecatalog/internal/storage/sqlstore"
	"go.uber.org/zap"
)

// DefaultDatabaseURL is an in-process SQLite database used when nothing is configured.
const DefaultDatabaseURL = "sqlite:file:moviecatalog?mode=memory&cache=shared"

// ErrUnsupportedScheme indicates a database URL whose scheme no backend serves.
var ErrUnsupportedScheme = errors.New("storage.unsupported_scheme")

// Stores bundles the backend views used by the HTTP layer.
type Stores struct {
	Users    authkit.UserStore
	Movies   catalog.MovieStore
	Comments catalog.CommentStore
	Driver   string
	close    func(context.Context) error
}

// Close releases the backend connections.
func (stores Stores) Close(ctx context.Context) error {
	if stores.close == nil {
		return nil
	}
	return stores.close(ctx)
}

// Open connects to the backend selected by the scheme of databaseURL.
// mongodb and mongodb+srv select MongoDB; postgres and sqlite select GORM.
func Open(ctx context.Context, databaseURL string, databaseName string, logger *zap.Logger) (Stores, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(databaseURL) == "" {
		logger.Warn("database_url not set; using in-memory sqlite, data will not survive restarts")
		databaseURL = DefaultDatabaseURL
	}
	scheme, err := Scheme(databaseURL)
	if err != nil {
		return Stores{}, err
	}
	switch scheme {
	case "mongodb", "mongodb+srv":
		store, openErr := mongostore.Open(ctx, databaseURL, databaseName)
		if openErr != nil {
			return Stores{}, openErr
		}
		logger.Info("storage ready", zap.String("driver", store.Driver()))
		return Stores{
			Users:    store.Users(),
			Movies:   store.Movies(),
			Comments: store.Comments(),
			Driver:   store.Driver(),
			close:    store.Close,
		}, nil
	case "postgres", "postgresql", "sqlite", "sqlite3":
		store, openErr := sqlstore.Open(ctx, databaseURL)
		if openErr != nil {
			return Stores{}, openErr
		}
		logger.Info("storage ready", zap.String("driver", store.Driver()))
		return Stores{
			Users:    store.Users(),
			Movies:   store.Movies(),
			Comments: store.Comments(),
			Driver:   store.Driver(),
			close:    store.Close,
		}, nil
	default:
		return Stores{}, fmt.Errorf("storage.open.%s: %w", scheme, ErrUnsupportedScheme)
	}
}

// Scheme returns the lower-cased scheme of databaseURL.
func Scheme(databaseURL string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(databaseURL))
	if err != nil {
		return "", fmt.Errorf("storage.parse_url: %w", err)
	}
	if parsed.Scheme == "" {
		return "", fmt.Errorf("storage.open: %w", ErrUnsupportedScheme)
	}
	return strings.ToLower(parsed.Scheme), nil
}
