package mediasvc

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udemo/academy/core"
)

func pngBytes(t *testing.T, w, h int) *bytes.Buffer {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 100, A: 255})
		}
	}
	buf := new(bytes.Buffer)
	require.NoError(t, png.Encode(buf, img))
	return buf
}

func TestStore_SaveThumbnail(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root)

	public, err := store.SaveThumbnail(pngBytes(t, 400, 400))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(public, "/media/thumbnails/"))
	assert.True(t, strings.HasSuffix(public, ".jpg"))

	fp := filepath.Join(root, filepath.FromSlash(strings.TrimPrefix(public, "/media/")))
	saved, err := imaging.Open(fp)
	require.NoError(t, err)
	assert.Equal(t, thumbnailWidth, saved.Bounds().Dx())
	assert.Equal(t, thumbnailHeight, saved.Bounds().Dy())

	require.NoError(t, store.Delete(public))
	_, err = os.Stat(fp)
	assert.True(t, os.IsNotExist(err))
}

func TestStore_SaveThumbnail_Invalid(t *testing.T) {
	store := NewStore(t.TempDir())
	_, err := store.SaveThumbnail(strings.NewReader("not an image"))
	require.Error(t, err)
	_, ok := err.(*core.ValidationError)
	assert.True(t, ok)
}

func TestStore_Delete_Outside(t *testing.T) {
	store := NewStore(t.TempDir())
	assert.NoError(t, store.Delete("/etc/passwd"))
	assert.NoError(t, store.Delete("/media/../../etc/passwd"))
}
