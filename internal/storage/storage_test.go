package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestSchemeNormalisesCase(t *testing.T) {
	scheme, err := Scheme("MongoDB+SRV://cluster.example.net/db")
	require.NoError(t, err)
	assert.Equal(t, "mongodb+srv", scheme)

	_, err = Scheme("just-a-path.db")
	require.ErrorIs(t, err, ErrUnsupportedScheme)
}

func TestOpenSelectsSQLiteBackend(t *testing.T) {
	ctx := context.Background()
	stores, err := Open(ctx, "sqlite:///"+filepath.Join(t.TempDir(), "catalog.db"), "", zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = stores.Close(ctx)
	})

	assert.Equal(t, "sqlite", stores.Driver)
	require.NotNil(t, stores.Users)
	require.NotNil(t, stores.Movies)
	require.NotNil(t, stores.Comments)

	_, err = stores.Users.Create(ctx, "a@example.com", "A", "hash")
	require.NoError(t, err)
}

func TestOpenDefaultsToInMemorySQLite(t *testing.T) {
	ctx := context.Background()
	stores, err := Open(ctx, "", "", zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = stores.Close(ctx)
	})
	assert.Equal(t, "sqlite", stores.Driver)
}

func TestOpenRejectsUnknownScheme(t *testing.T) {
	_, err := Open(context.Background(), "redis://localhost:6379/0", "", nil)
	require.ErrorIs(t, err, ErrUnsupportedScheme)
}

func TestZeroStoresCloseIsNoop(t *testing.T) {
	assert.NoError(t, Stores{}.Close(context.Background()))
}
