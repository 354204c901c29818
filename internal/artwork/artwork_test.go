package artwork

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestCache_WriteScaled(t *testing.T) {
	dir := t.TempDir()
	cache := NewCache(dir, 64, testLogger())

	key, err := cache.WriteScaled(encodePNG(t, 256, 128))
	require.NoError(t, err)
	assert.Len(t, key, 32)
	assert.True(t, cache.Exists(key))

	path, ok := cache.LocalPath(key)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, key+".png"), path)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.Width)
	assert.Equal(t, 32, cfg.Height)
}

func TestCache_WriteScaled_Idempotent(t *testing.T) {
	dir := t.TempDir()
	cache := NewCache(dir, 64, testLogger())
	raw := encodePNG(t, 16, 16)

	first, err := cache.WriteScaled(raw)
	require.NoError(t, err)
	second, err := cache.WriteScaled(raw)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCache_WriteScaled_JPEG(t *testing.T) {
	cache := NewCache(t.TempDir(), 0, testLogger())

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 800, 1000)), nil))

	key, err := cache.WriteScaled(buf.Bytes())
	require.NoError(t, err)
	path, ok := cache.LocalPath(key)
	require.True(t, ok)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 512, cfg.Width)
	assert.Equal(t, DefaultMaxDimension, cfg.Height)
}

func TestCache_WriteScaled_NotAnImage(t *testing.T) {
	cache := NewCache(t.TempDir(), 64, testLogger())

	_, err := cache.WriteScaled([]byte("not an image"))
	assert.ErrorIs(t, err, ErrDecode)
}

func TestCache_Exists_InvalidKey(t *testing.T) {
	cache := NewCache(t.TempDir(), 64, testLogger())

	assert.False(t, cache.Exists("../../etc/passwd"))
	assert.False(t, cache.Exists("0123456789ABCDEF0123456789ABCDEF"))
	_, ok := cache.LocalPath("")
	assert.False(t, ok)
}

func TestFetcher_Fetch(t *testing.T) {
	raw := encodePNG(t, 4, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/cover.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(raw)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewFetcher(5 * time.Second)

	got, err := f.Fetch(context.Background(), srv.URL+"/cover.png")
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	_, err = f.Fetch(context.Background(), srv.URL+"/missing.png")
	assert.Error(t, err)
}
