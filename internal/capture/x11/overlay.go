package x11

import (
	"fmt"
	"image"

	"github.com/BurntSushi/xgb/render"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/bryanchriswhite/hotshot/internal/capture"
	"github.com/bryanchriswhite/hotshot/internal/logger"
)

// overlay owns the server-side resources of one interactive selection:
// the frozen screenshot, the override-redirect window, the solid-fill
// sources, the crosshair cursor and the input grabs. Resources are pushed
// on a release stack as they are acquired and Close pops them in reverse.
type overlay struct {
	proto  Protocol
	screen *xproto.ScreenInfo
	width  uint16
	height uint16
	border int16

	screenPixmap  xproto.Pixmap
	screenPicture render.Picture
	window        xproto.Window
	windowPicture render.Picture
	dimPicture    render.Picture
	borderPicture render.Picture

	releases []release
	closed   bool
}

type release struct {
	name string
	fn   func() error
}

func (o *overlay) push(name string, fn func() error) {
	o.releases = append(o.releases, release{name: name, fn: fn})
}

// request labels a failed protocol call.
func request(op string, err error) error {
	return &capture.RequestError{Backend: capture.X11, Op: op, Err: err}
}

// newOverlay acquires every overlay resource. On failure the resources
// acquired so far are released before returning.
func newOverlay(p Protocol, opts Options) (*overlay, error) {
	scr := p.Screen()
	o := &overlay{
		proto:  p,
		screen: scr,
		width:  scr.WidthInPixels,
		height: scr.HeightInPixels,
		border: int16(opts.BorderWidth),
	}
	if err := o.acquire(opts); err != nil {
		o.Close()
		return nil, err
	}
	return o, nil
}

func (o *overlay) acquire(opts Options) error {
	p, scr := o.proto, o.screen

	if err := p.InitRender(); err != nil {
		return request("render query version", err)
	}

	formats, err := p.PictFormats()
	if err != nil {
		return request("render query pict formats", err)
	}
	rootFormat, argbFormat, err := findFormats(formats, scr)
	if err != nil {
		return err
	}

	font, err := p.OpenCursorFont()
	if err != nil {
		return request("open cursor font", err)
	}
	o.push("cursor font", func() error { return p.CloseFont(font) })

	cursor, err := p.CreateGlyphCursor(font, crosshairGlyph)
	if err != nil {
		return request("create crosshair cursor", err)
	}
	o.push("crosshair cursor", func() error { return p.FreeCursor(cursor) })

	root := xproto.Drawable(scr.Root)

	// Freeze the screen once so redraws never re-fetch from the root.
	if o.screenPixmap, err = p.CreatePixmap(scr.RootDepth, root, o.width, o.height); err != nil {
		return request("create screenshot pixmap", err)
	}
	pix := o.screenPixmap
	o.push("screenshot pixmap", func() error { return p.FreePixmap(pix) })

	if err = p.CopyArea(root, xproto.Drawable(o.screenPixmap), o.width, o.height); err != nil {
		return request("copy root to pixmap", err)
	}

	if o.screenPicture, err = p.CreatePicture(xproto.Drawable(o.screenPixmap), rootFormat, false); err != nil {
		return request("create screenshot picture", err)
	}
	screenPic := o.screenPicture
	o.push("screenshot picture", func() error { return p.FreePicture(screenPic) })

	if o.window, err = p.CreateOverlayWindow(o.width, o.height); err != nil {
		return request("create overlay window", err)
	}
	win := o.window
	o.push("overlay window", func() error { return p.DestroyWindow(win) })

	if o.windowPicture, err = p.CreatePicture(xproto.Drawable(o.window), rootFormat, false); err != nil {
		return request("create window picture", err)
	}
	winPic := o.windowPicture
	o.push("window picture", func() error { return p.FreePicture(winPic) })

	dim := render.Color{Red: 0, Green: 0, Blue: 0, Alpha: opts.DimAlpha}
	if o.dimPicture, err = o.solidFill("dim", argbFormat, dim); err != nil {
		return err
	}

	white := render.Color{Red: 0xffff, Green: 0xffff, Blue: 0xffff, Alpha: 0xffff}
	if o.borderPicture, err = o.solidFill("border", argbFormat, white); err != nil {
		return err
	}

	if err = p.GrabPointer(o.window, cursor); err != nil {
		return request("grab pointer", err)
	}
	if err = p.GrabKeyboard(o.window); err != nil {
		return request("grab keyboard", err)
	}

	return nil
}

// solidFill creates a repeating 1x1 ARGB picture filled with c.
func (o *overlay) solidFill(name string, format render.Pictformat, c render.Color) (render.Picture, error) {
	p := o.proto

	pix, err := p.CreatePixmap(32, xproto.Drawable(o.screen.Root), 1, 1)
	if err != nil {
		return 0, request("create "+name+" pixmap", err)
	}
	o.push(name+" pixmap", func() error { return p.FreePixmap(pix) })

	pic, err := p.CreatePicture(xproto.Drawable(pix), format, true)
	if err != nil {
		return 0, request("create "+name+" picture", err)
	}
	o.push(name+" picture", func() error { return p.FreePicture(pic) })

	err = p.FillRectangles(render.PictOpSrc, pic, c, []xproto.Rectangle{{X: 0, Y: 0, Width: 1, Height: 1}})
	if err != nil {
		return 0, request("fill "+name, err)
	}
	return pic, nil
}

// Redraw paints the frozen screenshot, dims it, and when sel has area
// restores the undimmed pixels inside sel and frames it.
func (o *overlay) Redraw(sel *capture.Region) error {
	p := o.proto

	if err := p.Composite(render.PictOpSrc, o.screenPicture, o.windowPicture, 0, 0, 0, 0, o.width, o.height); err != nil {
		return request("composite screenshot", err)
	}
	if err := p.Composite(render.PictOpOver, o.dimPicture, o.windowPicture, 0, 0, 0, 0, o.width, o.height); err != nil {
		return request("composite dim", err)
	}

	if sel != nil && !sel.Empty() {
		x, y := int16(sel.X), int16(sel.Y)
		w, h := uint16(sel.Width), uint16(sel.Height)

		if err := p.Composite(render.PictOpSrc, o.screenPicture, o.windowPicture, x, y, x, y, w, h); err != nil {
			return request("composite cutout", err)
		}
		for _, r := range borderRects(*sel, o.border) {
			if err := p.Composite(render.PictOpOver, o.borderPicture, o.windowPicture, 0, 0, r.X, r.Y, r.Width, r.Height); err != nil {
				return request("composite border", err)
			}
		}
	}

	p.Sync()
	return nil
}

// Extract reads a rectangle of the frozen screenshot.
func (o *overlay) Extract(r capture.Region) (*image.RGBA, error) {
	return fetch(o.proto, xproto.Drawable(o.screenPixmap), int16(r.X), int16(r.Y), uint16(r.Width), uint16(r.Height))
}

// Close releases every acquired resource in reverse order, then drops the
// input grabs and flushes regardless of earlier failures. Release failures
// are logged, never returned.
func (o *overlay) Close() {
	if o.closed {
		return
	}
	o.closed = true

	log := logger.WithComponent("x11-overlay")

	for i := len(o.releases) - 1; i >= 0; i-- {
		r := o.releases[i]
		if err := r.fn(); err != nil {
			log.Warn().Err(err).Str("resource", r.name).Msg("Failed to release overlay resource")
		}
	}
	o.releases = nil

	if err := o.proto.UngrabPointer(); err != nil {
		log.Warn().Err(err).Msg("Failed to ungrab pointer")
	}
	if err := o.proto.UngrabKeyboard(); err != nil {
		log.Warn().Err(err).Msg("Failed to ungrab keyboard")
	}
	o.proto.Sync()
}

// borderRects returns the top, bottom, left and right strips of width bw
// just outside sel. Origins are clamped so they never go negative.
func borderRects(sel capture.Region, bw int16) []xproto.Rectangle {
	x, y := int16(sel.X), int16(sel.Y)
	w, h := uint16(sel.Width), uint16(sel.Height)
	outerX := max(x-bw, 0)
	outerY := max(y-bw, 0)
	span := w + 2*uint16(bw)

	return []xproto.Rectangle{
		{X: outerX, Y: outerY, Width: span, Height: uint16(bw)},
		{X: outerX, Y: y + int16(h), Width: span, Height: uint16(bw)},
		{X: outerX, Y: y, Width: uint16(bw), Height: h},
		{X: x + int16(w), Y: y, Width: uint16(bw), Height: h},
	}
}

// findFormats locates the picture format of the root visual and a 32-bit
// ARGB format whose visual the screen actually offers.
func findFormats(reply *render.QueryPictFormatsReply, scr *xproto.ScreenInfo) (root, argb render.Pictformat, err error) {
	screen32 := map[xproto.Visualid]bool{}
	for _, depth := range scr.AllowedDepths {
		if depth.Depth != 32 {
			continue
		}
		for _, v := range depth.Visuals {
			screen32[v.VisualId] = true
		}
	}

	var foundRoot, foundARGB bool
	for _, ps := range reply.Screens {
		for _, pd := range ps.Depths {
			for _, pv := range pd.Visuals {
				if !foundRoot && pv.Visual == scr.RootVisual {
					root, foundRoot = pv.Format, true
				}
				if !foundARGB && pd.Depth == 32 && screen32[pv.Visual] {
					argb, foundARGB = pv.Format, true
				}
			}
		}
	}

	if !foundARGB {
		return 0, 0, capture.ErrNoCompatibleVisual
	}
	if !foundRoot {
		return 0, 0, fmt.Errorf("no picture format for root visual 0x%x: %w", scr.RootVisual, capture.ErrNoCompatibleVisual)
	}
	return root, argb, nil
}
