package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServerRequiresDependencies(t *testing.T) {
	_, err := NewServer(ServerConfig{Store: newMemStore()})
	assert.Error(t, err)

	_, err = NewServer(ServerConfig{Engine: &fakeEngine{}})
	assert.Error(t, err)

	srv, err := NewServer(ServerConfig{Engine: &fakeEngine{}, Store: newMemStore()})
	require.NoError(t, err)
	assert.NotNil(t, srv.Handler())
}

func TestNewHTTPServerTimeouts(t *testing.T) {
	srv, err := NewServer(ServerConfig{Engine: &fakeEngine{}, Store: newMemStore()})
	require.NoError(t, err)

	hs := NewHTTPServer(":8080", srv.Handler())
	assert.Equal(t, ":8080", hs.Addr)
	assert.NotZero(t, hs.ReadHeaderTimeout)
	assert.NotZero(t, hs.WriteTimeout)
}
