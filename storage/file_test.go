package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ruteri/certificate-registry/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileBackend_StoreFetch(t *testing.T) {
	dir := t.TempDir()
	backend, err := NewFileBackend(dir, discardLogger())
	require.NoError(t, err)

	ctx := context.Background()
	fingerprint := interfaces.HashOf([]byte("alice"))
	data := []byte(`{"certificate_id":"CERT-1"}`)

	_, err = backend.Fetch(ctx, fingerprint)
	assert.ErrorIs(t, err, interfaces.ErrContentNotFound)

	require.NoError(t, backend.Store(ctx, fingerprint, data))
	require.NoError(t, backend.Store(ctx, fingerprint, data), "storing twice is not an error")

	fetched, err := backend.Fetch(ctx, fingerprint)
	require.NoError(t, err)
	assert.Equal(t, data, fetched)

	assert.FileExists(t, filepath.Join(dir, "certificates", documentName(fingerprint)))

	entries, err := os.ReadDir(filepath.Join(dir, "certificates"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files left behind")
}

func TestFileBackend_Available(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "archive")
	backend, err := NewFileBackend(dir, discardLogger())
	require.NoError(t, err)

	assert.True(t, backend.Available(context.Background()))
	assert.Equal(t, "file-archive", backend.Name())
	assert.Equal(t, "file://"+dir, backend.LocationURI())

	require.NoError(t, os.RemoveAll(dir))
	assert.False(t, backend.Available(context.Background()))
}
