package x11

import (
	"context"
	"image"
	"math"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/bryanchriswhite/hotshot/internal/capture"
	"github.com/bryanchriswhite/hotshot/internal/logger"
)

// Options tunes the interactive selection overlay.
type Options struct {
	// DimAlpha is the 16-bit alpha of the black fill laid over the screen
	DimAlpha uint16
	// BorderWidth is the width in pixels of the selection frame
	BorderWidth int
}

// DefaultOptions returns a half-transparent dim and a 2px border.
func DefaultOptions() Options {
	return Options{
		DimAlpha:    0x8000,
		BorderWidth: 2,
	}
}

// Backend captures the screen over the X protocol. Each capture opens its
// own connection and closes it before returning.
type Backend struct {
	dial func() (Protocol, error)
	opts Options
}

// New creates an X11 backend that connects to $DISPLAY.
func New(opts Options) *Backend {
	return newWithDialer(Dial, opts)
}

func newWithDialer(dial func() (Protocol, error), opts Options) *Backend {
	if opts.BorderWidth <= 0 {
		opts.BorderWidth = DefaultOptions().BorderWidth
	}
	return &Backend{dial: dial, opts: opts}
}

func (b *Backend) Server() capture.DisplayServer {
	return capture.X11
}

func (b *Backend) connect(ctx context.Context) (Protocol, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := b.dial()
	if err != nil {
		return nil, &capture.ConnectionError{Backend: capture.X11, Err: err}
	}
	return p, nil
}

// CaptureFullscreen fetches the whole root window.
func (b *Backend) CaptureFullscreen(ctx context.Context) (*image.RGBA, error) {
	p, err := b.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	scr := p.Screen()
	return fetch(p, xproto.Drawable(scr.Root), 0, 0, scr.WidthInPixels, scr.HeightInPixels)
}

// CaptureRegion fetches a rectangle of the root window as given. A
// rectangle partly off-screen is rejected by the server.
func (b *Backend) CaptureRegion(ctx context.Context, r capture.Region) (*image.RGBA, error) {
	if r.Empty() ||
		r.X < math.MinInt16 || r.X > math.MaxInt16 ||
		r.Y < math.MinInt16 || r.Y > math.MaxInt16 ||
		r.Width > math.MaxUint16 || r.Height > math.MaxUint16 {
		return nil, capture.ErrRegionOutOfBounds
	}

	p, err := b.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	return fetch(p, xproto.Drawable(p.Screen().Root), int16(r.X), int16(r.Y), uint16(r.Width), uint16(r.Height))
}

// CaptureActiveWindow fetches the focused window, including whatever the
// window manager drew on top of it, at its position on the root.
func (b *Backend) CaptureActiveWindow(ctx context.Context) (*image.RGBA, error) {
	p, err := b.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	root := p.Screen().Root

	win, err := p.ActiveWindow()
	if err != nil {
		return nil, request("get active window", err)
	}
	if win == 0 {
		return nil, capture.ErrNoActiveWindow
	}

	geom, err := p.Geometry(xproto.Drawable(win))
	if err != nil {
		return nil, request("get window geometry", err)
	}

	// Reparenting window managers put the client inside a frame, so its
	// geometry is relative to the frame rather than the root.
	pos, err := p.TranslateCoordinates(win, root, 0, 0)
	if err != nil {
		return nil, request("translate coordinates", err)
	}

	logger.WithComponent("x11-capture").Debug().
		Uint32("window", uint32(win)).
		Str("title", p.WindowName(win)).
		Int16("x", pos.DstX).
		Int16("y", pos.DstY).
		Uint16("width", geom.Width).
		Uint16("height", geom.Height).
		Msg("Capturing active window")

	return fetch(p, xproto.Drawable(root), pos.DstX, pos.DstY, geom.Width, geom.Height)
}

// CaptureInteractive shows the selection overlay and captures the dragged
// rectangle from the screenshot frozen when the overlay opened.
func (b *Backend) CaptureInteractive(ctx context.Context) (*image.RGBA, error) {
	p, err := b.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	o, err := newOverlay(p, b.opts)
	if err != nil {
		return nil, err
	}
	defer o.Close()

	if err := o.Redraw(nil); err != nil {
		return nil, err
	}

	sel := newSelector(p, o, int(o.width), int(o.height), p.EscapeKeycodes())
	region, err := sel.run()
	if err != nil {
		return nil, err
	}

	logger.WithComponent("x11-capture").Debug().
		Str("region", region.String()).
		Msg("Selection complete")

	return o.Extract(region)
}

// ListMonitors enumerates active RandR outputs.
func (b *Backend) ListMonitors(ctx context.Context) ([]capture.Monitor, error) {
	p, err := b.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	monitors, err := p.Monitors()
	if err != nil {
		return nil, request("list monitors", err)
	}
	return monitors, nil
}

// fetch reads a rectangle of d and converts it to RGBA. At depth 24 the
// padding byte of each pixel is undefined, so alpha is forced opaque.
func fetch(p Protocol, d xproto.Drawable, x, y int16, width, height uint16) (*image.RGBA, error) {
	data, err := p.GetImage(d, x, y, width, height)
	if err != nil {
		return nil, request("get image", err)
	}

	img, err := capture.FromBGRA(data, int(width), int(height))
	if err != nil {
		return nil, request("get image", err)
	}

	if p.Screen().RootDepth == 24 {
		capture.SetOpaque(img.Pix)
	}
	return img, nil
}

var _ capture.Backend = (*Backend)(nil)
