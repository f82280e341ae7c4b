package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenReportsMetadata(t *testing.T) {
	dir := t.TempDir()
	p := NewProvider(dir)

	path := filepath.Join(dir, "clip.mp4")
	require.NoError(t, os.WriteFile(path, []byte("media bytes"), 0o644))

	f, meta, err := p.Open(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, int64(11), meta.Size)
	assert.Equal(t, "video/mp4", meta.ContentType)
	assert.False(t, meta.ModTime.IsZero())
}

func TestOpenUnknownExtension(t *testing.T) {
	dir := t.TempDir()
	p := NewProvider(dir)

	path := filepath.Join(dir, "blob.xyzq")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	f, meta, err := p.Open(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, "application/octet-stream", meta.ContentType)
}

func TestDeleteIdempotent(t *testing.T) {
	dir := t.TempDir()
	p := NewProvider(dir)

	path := filepath.Join(dir, "gone.mp4")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	require.NoError(t, p.Delete(path))
	assert.NoError(t, p.Delete(path))
}

func TestDiskUsage(t *testing.T) {
	p := NewProvider(t.TempDir())

	stats, err := p.DiskUsage()
	require.NoError(t, err)
	assert.Greater(t, stats.Total, int64(0))
	assert.GreaterOrEqual(t, stats.Total, stats.Available)
}
