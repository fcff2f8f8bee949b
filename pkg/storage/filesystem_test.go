package storage

import (
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveUploadRoundTrip(t *testing.T) {
	base := filepath.Join(t.TempDir(), "uploads")
	store, err := NewLocalStorage(base)
	require.NoError(t, err)
	store.now = func() time.Time { return time.UnixMilli(1700000000000) }

	location, err := store.SaveUpload("hw1.pdf", strings.NewReader("answer"))
	require.NoError(t, err)
	assert.Equal(t, filepath.ToSlash(filepath.Join(base, "1700000000000_hw1.pdf")), location)

	file, err := store.Open(location)
	require.NoError(t, err)
	body, err := io.ReadAll(file)
	require.NoError(t, err)
	require.NoError(t, file.Close())
	assert.Equal(t, "answer", string(body))

	require.NoError(t, store.Delete(location))
	_, err = store.Open(location)
	assert.Error(t, err)
	assert.NoError(t, store.Delete(location))
}

func TestLocalStorageUploadNameStripsDirectories(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	store.now = func() time.Time { return time.UnixMilli(42) }

	assert.Equal(t, "42_passwd", store.UploadName("../../etc/passwd"))
	assert.Equal(t, "42_upload", store.UploadName(""))
}

func TestLocalStorageRejectsTraversal(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Open("../secret.txt")
	assert.ErrorIs(t, err, ErrOutsideBase)
	_, err = store.SaveStream("../../escape.txt", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrOutsideBase)
}
