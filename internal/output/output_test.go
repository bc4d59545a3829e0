package output

import (
	"bytes"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func testImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 6, 4))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	img.SetRGBA(1, 1, color.RGBA{R: 0x10, G: 0x20, B: 0x30, A: 0xff})
	return img
}

func TestEncodersRoundTrip(t *testing.T) {
	for _, format := range []string{FormatPNG, FormatJPEG, FormatBMP, FormatTIFF} {
		t.Run(format, func(t *testing.T) {
			enc, err := NewEncoder(format, 0)
			if err != nil {
				t.Fatalf("NewEncoder(%q) error = %v", format, err)
			}

			var buf bytes.Buffer
			if err := enc.Encode(&buf, testImage()); err != nil {
				t.Fatalf("Encode() error = %v", err)
			}

			cfg, name, err := image.DecodeConfig(&buf)
			if err != nil {
				t.Fatalf("DecodeConfig() error = %v", err)
			}
			if cfg.Width != 6 || cfg.Height != 4 {
				t.Fatalf("decoded size %dx%d, want 6x4", cfg.Width, cfg.Height)
			}
			if !strings.Contains(enc.ContentType(), name) {
				t.Fatalf("decoded as %q but content type is %q", name, enc.ContentType())
			}
		})
	}
}

func TestNewEncoderAliases(t *testing.T) {
	tests := map[string]string{
		"":     "png",
		"PNG":  "png",
		"jpg":  "jpg",
		"jpeg": "jpg",
		"tif":  "tiff",
		"bmp":  "bmp",
	}
	for format, ext := range tests {
		enc, err := NewEncoder(format, 80)
		if err != nil {
			t.Fatalf("NewEncoder(%q) error = %v", format, err)
		}
		if enc.Extension() != ext {
			t.Fatalf("NewEncoder(%q).Extension() = %q, want %q", format, enc.Extension(), ext)
		}
	}

	if _, err := NewEncoder("gif", 0); err == nil {
		t.Fatal("NewEncoder(gif) succeeded, want error")
	}
}

func TestJPEGQualityDefault(t *testing.T) {
	enc, _ := NewEncoder(FormatJPEG, 500)
	if q := enc.(jpegEncoder).quality; q != DefaultJPEGQuality {
		t.Fatalf("quality = %d, want %d", q, DefaultJPEGQuality)
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := map[string]string{
		"shot.png":     FormatPNG,
		"/tmp/a.JPG":   FormatJPEG,
		"b.jpeg":       FormatJPEG,
		"c.tif":        FormatTIFF,
		"d.bmp":        FormatBMP,
		"e.gif":        "",
		"no-extension": "",
	}
	for path, want := range tests {
		if got := FormatFromPath(path); got != want {
			t.Fatalf("FormatFromPath(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestDefaultPath(t *testing.T) {
	enc, _ := NewEncoder(FormatPNG, 0)
	ts := time.Date(2026, 3, 4, 5, 6, 7, 8_000_000, time.UTC)

	got := DefaultPath("/pics", enc, ts)
	want := filepath.Join("/pics", "hotshot-20260304-050607.008.png")
	if got != want {
		t.Fatalf("DefaultPath() = %q, want %q", got, want)
	}
}

func TestSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "shots")
	path := filepath.Join(dir, "out.png")
	enc, _ := NewEncoder(FormatPNG, 0)

	if err := Save(path, testImage(), enc); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open saved file: %v", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		t.Fatalf("decode saved file: %v", err)
	}
	if got := color.RGBAModel.Convert(img.At(1, 1)).(color.RGBA); got.R != 0x10 || got.G != 0x20 || got.B != 0x30 {
		t.Fatalf("pixel = %+v, want 10 20 30", got)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("directory has %d entries, want only the output file", len(entries))
	}
}
