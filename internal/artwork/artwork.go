// Package artwork stores cover images, scaled and keyed by content hash.
package artwork

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
)

// DefaultMaxDimension bounds the longest side of cached artwork.
const DefaultMaxDimension = 640

var (
	// ErrDecode indicates the bytes are not a supported image.
	ErrDecode = errors.New("unsupported image")

	// ErrInvalidKey indicates a key that is not a hex checksum.
	ErrInvalidKey = errors.New("invalid artwork key")
)

// Cache is a directory of PNG files named by their MD5.
type Cache struct {
	dir    string
	maxDim int
	log    *slog.Logger
}

// NewCache creates a cache rooted at dir.
func NewCache(dir string, maxDimension int, log *slog.Logger) *Cache {
	if maxDimension <= 0 {
		maxDimension = DefaultMaxDimension
	}
	return &Cache{dir: dir, maxDim: maxDimension, log: log.With("component", "artwork")}
}

// WriteScaled decodes raw, scales it to fit the maximum dimension, encodes
// it as PNG and stores it. The key is the uppercase MD5 of the stored bytes.
// Writing the same image twice is a no-op.
func (c *Cache) WriteScaled(raw []byte) (string, error) {
	src, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDecode, err)
	}

	img := scale(src, c.maxDim)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode png: %w", err)
	}
	sum := md5.Sum(buf.Bytes())
	key := strings.ToUpper(hex.EncodeToString(sum[:]))

	path := c.path(key)
	if _, err := os.Stat(path); err == nil {
		return key, nil
	}

	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return "", fmt.Errorf("create artwork dir: %w", err)
	}
	tmp, err := os.CreateTemp(c.dir, ".artwork-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("write artwork: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("close artwork: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("store artwork: %w", err)
	}

	b := img.Bounds()
	c.log.Debug("artwork cached", "key", key, "format", format, "width", b.Dx(), "height", b.Dy())
	return key, nil
}

// Exists reports whether key is cached.
func (c *Cache) Exists(key string) bool {
	if !validKey(key) {
		return false
	}
	_, err := os.Stat(c.path(key))
	return err == nil
}

// LocalPath returns the file for key, or false when it is not cached.
func (c *Cache) LocalPath(key string) (string, bool) {
	if !c.Exists(key) {
		return "", false
	}
	return c.path(key), true
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, strings.ToUpper(key)+".png")
}

func validKey(key string) bool {
	if len(key) != 32 {
		return false
	}
	_, err := hex.DecodeString(key)
	return err == nil
}

// scale shrinks src so neither side exceeds maxDim, keeping the aspect
// ratio. Smaller images are returned unchanged.
func scale(src image.Image, maxDim int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxDim && h <= maxDim {
		return src
	}

	nw, nh := maxDim, maxDim
	if w >= h {
		nh = max(1, h*maxDim/w)
	} else {
		nw = max(1, w*maxDim/h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}
