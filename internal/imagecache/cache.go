// Package imagecache serves resized author images from a disk cache.
//
// Resized renditions are keyed by author id, size and format, so purging an
// author drops every rendition at once. Sources may be JPEG, PNG, GIF or
// WebP. Output is JPEG or PNG; WebP requests are encoded as JPEG because
// no pure-Go WebP encoder is available.
package imagecache

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"strings"

	"github.com/peterbourgon/diskv/v3"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"audioshelf/internal/logging"
)

// ErrUnsupportedFormat is returned for output formats other than jpeg,
// webp and png.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// ErrInvalidDimension is returned for a requested width or height outside
// 1..MaxDimension.
var ErrInvalidDimension = errors.New("invalid image dimension")

// MaxDimension bounds both sides of a rendition in pixels.
const MaxDimension = 4096

// Options selects the rendition. A nil dimension is derived from the other
// one and the source aspect ratio.
type Options struct {
	Width  *int
	Height *int
	Format string
}

// Image is an encoded rendition.
type Image struct {
	Data        []byte
	ContentType string
	Cached      bool
}

// Cache resizes images and persists the results with diskv.
type Cache struct {
	d            *diskv.Diskv
	defaultWidth int
	logger       *slog.Logger
}

// New opens a cache rooted at dir. memoryMiB bounds the in-memory layer.
func New(dir string, memoryMiB, defaultWidth int, logger *slog.Logger) *Cache {
	if defaultWidth <= 0 {
		defaultWidth = 400
	}
	return &Cache{
		d: diskv.New(diskv.Options{
			BasePath:          dir,
			AdvancedTransform: keyToPath,
			InverseTransform:  pathToKey,
			CacheSizeMax:      uint64(max(memoryMiB, 0)) * 1024 * 1024,
		}),
		defaultWidth: defaultWidth,
		logger:       logging.NewComponentLogger(logger, "imagecache"),
	}
}

// AuthorImage returns the rendition of srcPath for the author, resizing and
// caching it on first use.
func (c *Cache) AuthorImage(authorID, srcPath string, opts Options) (*Image, error) {
	format, contentType, err := outputFormat(opts.Format)
	if err != nil {
		return nil, err
	}
	if err := checkDimension("width", opts.Width); err != nil {
		return nil, err
	}
	if err := checkDimension("height", opts.Height); err != nil {
		return nil, err
	}
	if opts.Width == nil && opts.Height == nil {
		w := c.defaultWidth
		opts.Width = &w
	}
	key := cacheKey(authorID, opts, format)
	if data, err := c.d.Read(key); err == nil {
		return &Image{Data: data, ContentType: contentType, Cached: true}, nil
	}

	src, err := decodeFile(srcPath)
	if err != nil {
		return nil, err
	}
	resized := resize(src, opts.Width, opts.Height)

	var buf bytes.Buffer
	switch format {
	case "png":
		err = png.Encode(&buf, resized)
	default:
		err = jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 85})
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", format, err)
	}
	if err := c.d.Write(key, buf.Bytes()); err != nil {
		logging.WarnWithContext(c.logger, "image cache write failed", "image_cache_write_failed",
			logging.AuthorID(authorID),
			logging.Error(err),
			logging.String(logging.FieldImpact, "image will be resized again on next request"),
		)
	}
	return &Image{Data: buf.Bytes(), ContentType: contentType}, nil
}

// PurgeAuthor removes every cached rendition for the author.
func (c *Cache) PurgeAuthor(authorID string) int {
	if authorID == "" {
		return 0
	}
	cancel := make(chan struct{})
	defer close(cancel)
	var keys []string
	for key := range c.d.KeysPrefix(authorID+"/", cancel) {
		keys = append(keys, key)
	}
	removed := 0
	for _, key := range keys {
		if err := c.d.Erase(key); err == nil {
			removed++
		}
	}
	if removed > 0 {
		c.logger.Debug("purged author image cache",
			logging.AuthorID(authorID),
			logging.Int("renditions", removed),
		)
	}
	return removed
}

// Has reports whether a rendition is cached.
func (c *Cache) Has(authorID string, opts Options) bool {
	format, _, err := outputFormat(opts.Format)
	if err != nil {
		return false
	}
	if opts.Width == nil && opts.Height == nil {
		w := c.defaultWidth
		opts.Width = &w
	}
	return c.d.Has(cacheKey(authorID, opts, format))
}

func outputFormat(requested string) (format, contentType string, err error) {
	switch strings.ToLower(strings.TrimSpace(requested)) {
	case "", "jpeg", "jpg", "webp":
		return "jpeg", "image/jpeg", nil
	case "png":
		return "png", "image/png", nil
	default:
		return "", "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, requested)
	}
}

func checkDimension(name string, v *int) error {
	if v != nil && (*v <= 0 || *v > MaxDimension) {
		return fmt.Errorf("%w: %s %d (max %d)", ErrInvalidDimension, name, *v, MaxDimension)
	}
	return nil
}

func cacheKey(authorID string, opts Options, format string) string {
	dim := func(v *int) string {
		if v == nil {
			return "auto"
		}
		return fmt.Sprint(*v)
	}
	return fmt.Sprintf("%s/%sx%s.%s", authorID, dim(opts.Width), dim(opts.Height), format)
}

func keyToPath(key string) *diskv.PathKey {
	dir, file, ok := strings.Cut(key, "/")
	if !ok {
		return &diskv.PathKey{FileName: key}
	}
	return &diskv.PathKey{Path: []string{dir}, FileName: file}
}

func pathToKey(pk *diskv.PathKey) string {
	if len(pk.Path) == 0 {
		return pk.FileName
	}
	return strings.Join(pk.Path, "/") + "/" + pk.FileName
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", path, err)
	}
	return img, nil
}

// resize scales src to the requested box. With both dimensions the source
// is center-cropped to the target aspect ratio first. A side derived from
// the source aspect ratio is capped at MaxDimension.
func resize(src image.Image, width, height *int) image.Image {
	b := src.Bounds()
	sw, sh := b.Dx(), b.Dy()
	if sw == 0 || sh == 0 {
		return src
	}

	var w, h int
	crop := b
	switch {
	case width != nil && height != nil:
		w, h = *width, *height
		if sw*h > sh*w {
			cw := sh * w / h
			x0 := b.Min.X + (sw-cw)/2
			crop = image.Rect(x0, b.Min.Y, x0+cw, b.Max.Y)
		} else {
			ch := sw * h / w
			y0 := b.Min.Y + (sh-ch)/2
			crop = image.Rect(b.Min.X, y0, b.Max.X, y0+ch)
		}
	case width != nil:
		w = *width
		h = min(max(1, sh*w/sw), MaxDimension)
	default:
		h = *height
		w = min(max(1, sw*h/sh), MaxDimension)
	}
	if w <= 0 || h <= 0 {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, crop, draw.Over, nil)
	return dst
}
