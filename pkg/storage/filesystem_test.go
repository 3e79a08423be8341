package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	written, err := store.SaveStream(ctx, "question_papers/dbms.pdf", strings.NewReader("%PDF-1.4 body"), "application/pdf")
	require.NoError(t, err)
	assert.EqualValues(t, 13, written)

	size, err := store.Size(ctx, "question_papers/dbms.pdf")
	require.NoError(t, err)
	assert.EqualValues(t, 13, size)

	rc, err := store.Open(ctx, "question_papers/dbms.pdf")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "%PDF-1.4 body", string(data))

	require.NoError(t, store.Delete(ctx, "question_papers/dbms.pdf"))
	_, err = store.Size(ctx, "question_papers/dbms.pdf")
	assert.ErrorIs(t, err, ErrNotFound)

	// deleting twice is fine
	require.NoError(t, store.Delete(ctx, "question_papers/dbms.pdf"))
}

func TestLocalStorageOpenMissing(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Open(context.Background(), "question_papers/missing.pdf")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStorageKeepsKeysInsideRoot(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocalStorage(filepath.Join(root, "media"))
	require.NoError(t, err)

	_, err = store.SaveStream(context.Background(), "../../escape.txt", strings.NewReader("x"), "")
	require.NoError(t, err)

	_, statErr := os.Stat(filepath.Join(root, "escape.txt"))
	assert.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(filepath.Join(root, "media", "escape.txt"))
	assert.NoError(t, statErr)
}

func TestLocalStorageRejectsEmptyKey(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.SaveStream(context.Background(), "", strings.NewReader("x"), "")
	assert.Error(t, err)
}
