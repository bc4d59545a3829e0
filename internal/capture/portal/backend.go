package portal

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"time"

	"github.com/bryanchriswhite/hotshot/internal/capture"
	"github.com/bryanchriswhite/hotshot/internal/logger"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Backend captures through the xdg-desktop-portal Screenshot interface.
// The portal has no rectangle or active-window request, so those modes
// take a full screenshot and work from that.
type Backend struct {
	req    requester
	remove func(name string) error
}

// New creates a portal backend. A zero timeout uses DefaultTimeout.
func New(timeout time.Duration) *Backend {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Backend{
		req:    &dbusRequester{timeout: timeout},
		remove: os.Remove,
	}
}

func (b *Backend) Server() capture.DisplayServer {
	return capture.Wayland
}

func (b *Backend) CaptureFullscreen(ctx context.Context) (*image.RGBA, error) {
	return b.screenshot(ctx, false)
}

// CaptureRegion takes a full screenshot and crops it. The region is
// clamped to the image; nothing left after clamping is an error.
func (b *Backend) CaptureRegion(ctx context.Context, r capture.Region) (*image.RGBA, error) {
	full, err := b.screenshot(ctx, false)
	if err != nil {
		return nil, err
	}

	clipped := r.ClampTo(full.Bounds().Dx(), full.Bounds().Dy())
	if clipped.Empty() {
		return nil, fmt.Errorf("%s on %dx%d screenshot: %w", r, full.Bounds().Dx(), full.Bounds().Dy(), capture.ErrRegionOutOfBounds)
	}
	return crop(full, clipped), nil
}

// CaptureInteractive lets the portal's own dialog pick what to capture.
func (b *Backend) CaptureInteractive(ctx context.Context) (*image.RGBA, error) {
	return b.screenshot(ctx, true)
}

// CaptureActiveWindow falls back to a full screenshot.
func (b *Backend) CaptureActiveWindow(ctx context.Context) (*image.RGBA, error) {
	logger.WithComponent("portal").Debug().Msg("Portal has no active window request, capturing full screen")
	return b.screenshot(ctx, false)
}

func (b *Backend) ListMonitors(context.Context) ([]capture.Monitor, error) {
	return nil, fmt.Errorf("listing monitors on %s: %w", capture.Wayland, capture.ErrUnsupported)
}

func (b *Backend) screenshot(ctx context.Context, interactive bool) (*image.RGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	uri, err := b.req.Screenshot(ctx, interactive)
	if err != nil {
		return nil, err
	}

	path := uriPath(uri)
	img, err := decodeFile(path)

	// The portal leaves the file behind; removing it is best effort.
	if rmErr := b.remove(path); rmErr != nil {
		logger.WithComponent("portal").Warn().Err(rmErr).Str("path", path).Msg("Failed to remove portal screenshot")
	}

	if err != nil {
		return nil, err
	}
	return img, nil
}

func decodeFile(path string) (*image.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &capture.DecodeError{Path: path, Err: err}
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, &capture.DecodeError{Path: path, Err: err}
	}
	return toRGBA(src), nil
}

// toRGBA returns img as a tightly packed RGBA image anchored at the origin.
func toRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	if rgba, ok := img.(*image.RGBA); ok && b.Min == (image.Point{}) && rgba.Stride == b.Dx()*4 {
		return rgba
	}

	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// crop copies r out of img into a new buffer without row padding.
func crop(img *image.RGBA, r capture.Region) *image.RGBA {
	return toRGBA(img.SubImage(r.Rect()))
}

var _ capture.Backend = (*Backend)(nil)
