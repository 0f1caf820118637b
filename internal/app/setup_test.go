package app

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cropsage/cropsage/internal/config"
	"github.com/cropsage/cropsage/internal/session"
)

func TestProvideStoreFileBackend(t *testing.T) {
	cfg := &config.Config{
		StoreBackend: config.StoreFile,
		SessionsDir:  filepath.Join(t.TempDir(), "sessions"),
	}

	store, pool, err := provideStore(t.Context(), cfg, provideLogger(&config.Config{LogLevel: "error"}))
	require.NoError(t, err)
	assert.Nil(t, pool)
	assert.IsType(t, &session.FileStore{}, store)
}

func TestProvideLoggerBadLevelFallsBack(t *testing.T) {
	logger := provideLogger(&config.Config{LogLevel: "chatty"})
	require.NotNil(t, logger)
	assert.False(t, logger.Enabled(t.Context(), -8))
}
