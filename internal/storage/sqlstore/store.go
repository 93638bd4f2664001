package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	sqliteDialector "github.com/glebarez/sqlite"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	// ErrUnsupportedDialect indicates that no GORM dialector is available for the scheme.
	ErrUnsupportedDialect = errors.New("sql_store.unsupported_dialect")

	errEmptyDatabaseURL    = errors.New("sql_store.empty_database_url")
	errSQLiteEmptyPath     = errors.New("sql_store.sqlite.empty_path")
	errSQLiteInvalidURL    = errors.New("sql_store.sqlite.invalid_url")
	errUnsupportedNoScheme = errors.New("sql_store.unsupported_no_scheme")
)

// Store owns the GORM connection shared by the user, movie, and comment stores.
type Store struct {
	db          *gorm.DB
	pool        *pgxpool.Pool
	driverLabel string
}

// Open connects to a postgres:// or sqlite:// database and migrates the schema.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("sql_store.open: %w", errEmptyDatabaseURL)
	}
	dialector, driverLabel, pool, err := resolveDialector(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	gormDB, openErr := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if openErr != nil {
		if pool != nil {
			pool.Close()
		}
		return nil, fmt.Errorf("sql_store.open.%s: %w", driverLabel, openErr)
	}
	if migrateErr := gormDB.WithContext(ctx).AutoMigrate(&userRecord{}, &movieRecord{}, &commentRecord{}); migrateErr != nil {
		if pool != nil {
			pool.Close()
		}
		return nil, fmt.Errorf("sql_store.migrate.%s: %w", driverLabel, migrateErr)
	}
	return &Store{
		db:          gormDB,
		pool:        pool,
		driverLabel: driverLabel,
	}, nil
}

// Driver exposes the selected database driver label.
func (store *Store) Driver() string {
	return store.driverLabel
}

// Users returns the credential store view.
func (store *Store) Users() *UserStore {
	return &UserStore{db: store.db, driverLabel: store.driverLabel}
}

// Movies returns the movie store view.
func (store *Store) Movies() *MovieStore {
	return &MovieStore{db: store.db, driverLabel: store.driverLabel}
}

// Comments returns the comment store view.
func (store *Store) Comments() *CommentStore {
	return &CommentStore{db: store.db, driverLabel: store.driverLabel}
}

// Close releases the underlying connections.
func (store *Store) Close(ctx context.Context) error {
	sqlDB, err := store.db.DB()
	if err != nil {
		return fmt.Errorf("sql_store.close.%s: %w", store.driverLabel, err)
	}
	closeErr := sqlDB.Close()
	if store.pool != nil {
		store.pool.Close()
	}
	if closeErr != nil {
		return fmt.Errorf("sql_store.close.%s: %w", store.driverLabel, closeErr)
	}
	return nil
}

func resolveDialector(ctx context.Context, databaseURL string) (gorm.Dialector, string, *pgxpool.Pool, error) {
	parsed, err := url.Parse(databaseURL)
	if err != nil {
		return nil, "", nil, fmt.Errorf("sql_store.parse_url: %w", err)
	}
	if parsed.Scheme == "" {
		return nil, "", nil, fmt.Errorf("sql_store.dialect: %w", errUnsupportedNoScheme)
	}
	switch strings.ToLower(parsed.Scheme) {
	case "postgres", "postgresql":
		pool, poolErr := BuildPool(ctx, databaseURL)
		if poolErr != nil {
			return nil, "", nil, poolErr
		}
		return postgres.New(postgres.Config{Conn: stdlib.OpenDBFromPool(pool)}), "postgres", pool, nil
	case "sqlite", "sqlite3":
		dsn, dsnErr := buildSQLiteDSN(parsed)
		if dsnErr != nil {
			return nil, "", nil, fmt.Errorf("sql_store.sqlite: %w", dsnErr)
		}
		return sqliteDialector.Open(dsn), "sqlite", nil, nil
	default:
		return nil, "", nil, fmt.Errorf("sql_store.dialect.%s: %w", strings.ToLower(parsed.Scheme), ErrUnsupportedDialect)
	}
}

func buildSQLiteDSN(parsed *url.URL) (string, error) {
	if parsed == nil {
		return "", errSQLiteInvalidURL
	}
	var builder strings.Builder
	switch {
	case parsed.Opaque != "":
		builder.WriteString(parsed.Opaque)
	case parsed.Host != "":
		builder.WriteString(parsed.Host)
		if parsed.Path != "" {
			if !strings.HasPrefix(parsed.Path, "/") {
				builder.WriteString("/")
			}
			builder.WriteString(parsed.Path)
		}
	default:
		builder.WriteString(parsed.Path)
	}
	if builder.Len() == 0 {
		return "", errSQLiteEmptyPath
	}
	if parsed.RawQuery != "" {
		builder.WriteString("?")
		builder.WriteString(parsed.RawQuery)
	}
	return builder.String(), nil
}
