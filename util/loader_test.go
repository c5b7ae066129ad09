package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDirectoryImages(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"frame-2.png", "frame-1.jpg", "notes.txt", "frame-3.JPEG"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name), 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.png"), 0o700))

	images, err := LoadDirectoryImageFiles(dir)
	require.NoError(t, err)
	require.Len(t, images, 3)

	assert.Equal(t, "frame-1.jpg", images[0].Name())
	assert.Equal(t, "frame-2.png", images[1].Name())
	assert.Equal(t, "frame-3.JPEG", images[2].Name())
	assert.Equal(t, []byte("frame-2.png"), images[1].Data)
}

func TestLoadDirectoryImagesMissing(t *testing.T) {
	_, err := LoadDirectoryImageFiles(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestIsImageFile(t *testing.T) {
	assert.True(t, IsImageFile("a/b/c.PNG"))
	assert.True(t, IsImageFile("c.bmp"))
	assert.False(t, IsImageFile("c.onnx"))
	assert.False(t, IsImageFile("png"))
}
