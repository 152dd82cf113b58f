package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceUpload_LocalRoundTrip(t *testing.T) {
	dir := t.TempDir()
	svc := NewService(&LocalProvider{Dir: dir}, 1<<20, false)

	result, err := svc.Upload(context.Background(), strings.NewReader("jpegdata"), "frame.jpg", "image/jpeg", 8)
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(result.Filename, ".jpg"))
	assert.Equal(t, "/uploads/"+result.Filename, result.URL)
	assert.Equal(t, int64(8), result.Size)

	data, err := os.ReadFile(filepath.Join(dir, result.Filename))
	require.NoError(t, err)
	assert.Equal(t, "jpegdata", string(data))

	require.NoError(t, svc.Delete(context.Background(), result.Filename))
	_, err = os.Stat(filepath.Join(dir, result.Filename))
	assert.True(t, os.IsNotExist(err))
}

func TestServiceUpload_RejectsUnsupportedType(t *testing.T) {
	svc := NewService(&LocalProvider{Dir: t.TempDir()}, 1<<20, false)

	_, err := svc.Upload(context.Background(), strings.NewReader("%PDF"), "doc.pdf", "application/pdf", 4)
	assert.ErrorIs(t, err, ErrUnsupportedFileType)
}

func TestServiceUpload_RejectsOversize(t *testing.T) {
	svc := NewService(&LocalProvider{Dir: t.TempDir()}, 10, false)

	_, err := svc.Upload(context.Background(), strings.NewReader("0123456789abc"), "big.png", "image/png", 13)
	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func TestServiceUpload_UnlimitedWhenMaxZero(t *testing.T) {
	svc := NewService(&LocalProvider{Dir: t.TempDir()}, 0, false)

	_, err := svc.Upload(context.Background(), strings.NewReader("x"), "a.png", "image/png", 1<<40)
	require.NoError(t, err)
}

func TestServiceUpload_UniqueKeys(t *testing.T) {
	svc := NewService(&LocalProvider{Dir: t.TempDir()}, 0, false)

	a, err := svc.Upload(context.Background(), strings.NewReader("x"), "same.mp4", "video/mp4", 1)
	require.NoError(t, err)
	b, err := svc.Upload(context.Background(), strings.NewReader("y"), "same.mp4", "video/mp4", 1)
	require.NoError(t, err)
	assert.NotEqual(t, a.Filename, b.Filename)
	assert.True(t, strings.HasSuffix(a.Filename, ".mp4"))
}

func TestIsCineType(t *testing.T) {
	assert.True(t, IsCineType("video/mp4"))
	assert.True(t, IsCineType("video/quicktime"))
	assert.False(t, IsCineType("image/jpeg"))
}
