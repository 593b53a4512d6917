package filestore

import (
	"context"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/reframe/internal/config"
	appErr "github.com/xxxsen/reframe/internal/pkg/errors"
)

func readAll(t *testing.T, store Store, key string) string {
	t.Helper()
	rc, err := store.Open(context.Background(), key)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(data)
}

func TestLocalStoreSaveReplaces(t *testing.T) {
	dir := t.TempDir()
	store, err := New(config.ArtifactStoreConfig{Type: "local", Data: map[string]interface{}{"dir": dir}})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "model.json.gz", strings.NewReader("v1")))
	require.Equal(t, "v1", readAll(t, store, "model.json.gz"))

	require.NoError(t, store.Save(ctx, "model.json.gz", strings.NewReader("v2")))
	require.Equal(t, "v2", readAll(t, store, "model.json.gz"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestLocalStoreCopy(t *testing.T) {
	store := NewLocal(t.TempDir())
	ctx := context.Background()
	versioned := VersionedKey("model.json.gz", 3)
	require.Equal(t, "model.json.gz.v3", versioned)

	require.NoError(t, store.Save(ctx, versioned, strings.NewReader("weights")))
	require.NoError(t, store.Copy(ctx, versioned, "model.json.gz"))
	require.Equal(t, "weights", readAll(t, store, "model.json.gz"))
	require.Equal(t, "weights", readAll(t, store, versioned))
}

func TestLocalStoreErrors(t *testing.T) {
	store := NewLocal(t.TempDir())
	ctx := context.Background()

	_, err := store.Open(ctx, "missing")
	require.ErrorIs(t, err, appErr.ErrNotFound)

	require.Error(t, store.Save(ctx, "../escape", strings.NewReader("x")))
	require.Error(t, store.Save(ctx, "", strings.NewReader("x")))

	_, err = New(config.ArtifactStoreConfig{Type: "ftp", Data: map[string]interface{}{}})
	require.Error(t, err)
}
