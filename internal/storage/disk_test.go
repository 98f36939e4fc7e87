package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskStorage_PutAndDelete(t *testing.T) {
	dir := t.TempDir()
	s := NewDiskStorage(dir, "/media/images/")
	ctx := context.Background()

	url, err := s.Put(ctx, "memes/abc.png", []byte("png-bytes"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "/media/images/memes/abc.png", url)

	data, err := os.ReadFile(filepath.Join(dir, "memes", "abc.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	require.NoError(t, s.Delete(ctx, "memes/abc.png"))
	_, err = os.Stat(filepath.Join(dir, "memes", "abc.png"))
	assert.True(t, os.IsNotExist(err))

	// Deleting again is a no-op.
	assert.NoError(t, s.Delete(ctx, "memes/abc.png"))
}

func TestDiskStorage_RejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	s := NewDiskStorage(dir, "/media/images")

	path, err := s.pathFor("../escape.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "escape.txt"), path)

	_, err = s.pathFor("..")
	assert.Error(t, err)
}
