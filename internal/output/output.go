package output

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bryanchriswhite/hotshot/internal/logger"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// Encoder writes a captured image in one file format.
type Encoder interface {
	// Encode writes img to w
	Encode(w io.Writer, img image.Image) error

	// Extension returns the file extension without the dot
	Extension() string

	// ContentType returns the MIME type for HTTP responses
	ContentType() string
}

// Supported format names
const (
	FormatPNG  = "png"
	FormatJPEG = "jpeg"
	FormatBMP  = "bmp"
	FormatTIFF = "tiff"
)

// DefaultJPEGQuality is used when no quality is configured.
const DefaultJPEGQuality = 90

type pngEncoder struct{}

func (pngEncoder) Encode(w io.Writer, img image.Image) error { return png.Encode(w, img) }
func (pngEncoder) Extension() string                         { return "png" }
func (pngEncoder) ContentType() string                       { return "image/png" }

type jpegEncoder struct {
	quality int
}

func (e jpegEncoder) Encode(w io.Writer, img image.Image) error {
	return jpeg.Encode(w, img, &jpeg.Options{Quality: e.quality})
}
func (jpegEncoder) Extension() string   { return "jpg" }
func (jpegEncoder) ContentType() string { return "image/jpeg" }

type bmpEncoder struct{}

func (bmpEncoder) Encode(w io.Writer, img image.Image) error { return bmp.Encode(w, img) }
func (bmpEncoder) Extension() string                         { return "bmp" }
func (bmpEncoder) ContentType() string                       { return "image/bmp" }

type tiffEncoder struct{}

func (tiffEncoder) Encode(w io.Writer, img image.Image) error {
	return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
}
func (tiffEncoder) Extension() string   { return "tiff" }
func (tiffEncoder) ContentType() string { return "image/tiff" }

// NewEncoder returns the encoder for a format name. Quality applies to
// jpeg only; values outside 1..100 use DefaultJPEGQuality.
func NewEncoder(format string, quality int) (Encoder, error) {
	switch strings.ToLower(format) {
	case FormatPNG, "":
		return pngEncoder{}, nil
	case FormatJPEG, "jpg":
		if quality < 1 || quality > 100 {
			quality = DefaultJPEGQuality
		}
		return jpegEncoder{quality: quality}, nil
	case FormatBMP:
		return bmpEncoder{}, nil
	case FormatTIFF, "tif":
		return tiffEncoder{}, nil
	default:
		return nil, fmt.Errorf("unsupported image format %q (use png, jpeg, bmp, tiff)", format)
	}
}

// FormatFromPath infers a format name from a file extension, or returns
// "" when the extension is not recognized.
func FormatFromPath(path string) string {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")) {
	case "png":
		return FormatPNG
	case "jpg", "jpeg":
		return FormatJPEG
	case "bmp":
		return FormatBMP
	case "tif", "tiff":
		return FormatTIFF
	default:
		return ""
	}
}

// DefaultPath returns dir/hotshot-<timestamp>.<ext>.
func DefaultPath(dir string, enc Encoder, t time.Time) string {
	name := fmt.Sprintf("hotshot-%s.%s", t.Format("20060102-150405.000"), enc.Extension())
	return filepath.Join(dir, name)
}

// Save encodes img to path, creating parent directories. The file is
// written under a temporary name and renamed so a failed encode never
// leaves a truncated image behind.
func Save(path string, img image.Image, enc Encoder) error {
	log := logger.WithComponent("output")

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".hotshot-*")
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	tmpName := tmp.Name()

	if err := tmp.Chmod(0644); err != nil {
		log.Warn().Err(err).Str("path", tmpName).Msg("Failed to set output file mode")
	}

	if err := enc.Encode(tmp, img); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to encode %s: %w", enc.Extension(), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write output file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move output file into place: %w", err)
	}

	log.Debug().Str("path", path).Str("format", enc.Extension()).Msg("Saved capture")
	return nil
}
