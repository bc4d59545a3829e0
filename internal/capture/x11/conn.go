package x11

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/render"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/bryanchriswhite/hotshot/internal/logger"
)

// cursor font glyph for the crosshair; its mask is the next glyph
const crosshairGlyph = 34

var errConnectionClosed = errors.New("connection closed by server")

// xconn implements Protocol over an xgb connection.
type xconn struct {
	conn   *xgb.Conn
	screen *xproto.ScreenInfo
	xu     *xgbutil.XUtil
}

// Dial connects to the X server named by $DISPLAY.
func Dial() (Protocol, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	setup := xproto.Setup(conn)
	return &xconn{
		conn:   conn,
		screen: setup.DefaultScreen(conn),
	}, nil
}

func (c *xconn) util() (*xgbutil.XUtil, error) {
	if c.xu != nil {
		return c.xu, nil
	}
	xu, err := xgbutil.NewConnXgb(c.conn)
	if err != nil {
		return nil, err
	}
	c.xu = xu
	return xu, nil
}

func (c *xconn) Screen() *xproto.ScreenInfo {
	return c.screen
}

func (c *xconn) GetImage(d xproto.Drawable, x, y int16, width, height uint16) ([]byte, error) {
	reply, err := xproto.GetImage(
		c.conn,
		xproto.ImageFormatZPixmap,
		d,
		x, y,
		width, height,
		0xffffffff,
	).Reply()
	if err != nil {
		return nil, err
	}
	return reply.Data, nil
}

func (c *xconn) ActiveWindow() (xproto.Window, error) {
	name := "_NET_ACTIVE_WINDOW"
	atom, err := xproto.InternAtom(c.conn, false, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, fmt.Errorf("failed to intern %s: %w", name, err)
	}

	reply, err := xproto.GetProperty(
		c.conn,
		false,
		c.screen.Root,
		atom.Atom,
		xproto.AtomWindow,
		0,
		1,
	).Reply()
	if err != nil {
		return 0, fmt.Errorf("failed to get %s property: %w", name, err)
	}

	if len(reply.Value) < 4 {
		return 0, nil
	}
	return xproto.Window(xgb.Get32(reply.Value)), nil
}

func (c *xconn) WindowName(win xproto.Window) string {
	xu, err := c.util()
	if err != nil {
		return ""
	}
	name, err := ewmh.WmNameGet(xu, win)
	if err != nil {
		return ""
	}
	return name
}

func (c *xconn) Geometry(d xproto.Drawable) (*xproto.GetGeometryReply, error) {
	return xproto.GetGeometry(c.conn, d).Reply()
}

func (c *xconn) TranslateCoordinates(src, dst xproto.Window, x, y int16) (*xproto.TranslateCoordinatesReply, error) {
	return xproto.TranslateCoordinates(c.conn, src, dst, x, y).Reply()
}

func (c *xconn) InitRender() error {
	if err := render.Init(c.conn); err != nil {
		return err
	}
	_, err := render.QueryVersion(c.conn, 0, 11).Reply()
	return err
}

func (c *xconn) PictFormats() (*render.QueryPictFormatsReply, error) {
	return render.QueryPictFormats(c.conn).Reply()
}

func (c *xconn) CreatePixmap(depth byte, d xproto.Drawable, width, height uint16) (xproto.Pixmap, error) {
	pix, err := xproto.NewPixmapId(c.conn)
	if err != nil {
		return 0, err
	}
	if err := xproto.CreatePixmapChecked(c.conn, depth, pix, d, width, height).Check(); err != nil {
		return 0, err
	}
	return pix, nil
}

func (c *xconn) FreePixmap(p xproto.Pixmap) error {
	return xproto.FreePixmapChecked(c.conn, p).Check()
}

func (c *xconn) CopyArea(src, dst xproto.Drawable, width, height uint16) error {
	gc, err := xproto.NewGcontextId(c.conn)
	if err != nil {
		return err
	}

	// Children of the root are part of the screenshot.
	err = xproto.CreateGCChecked(
		c.conn,
		gc,
		dst,
		xproto.GcSubwindowMode,
		[]uint32{xproto.SubwindowModeIncludeInferiors},
	).Check()
	if err != nil {
		return err
	}
	defer xproto.FreeGC(c.conn, gc)

	return xproto.CopyAreaChecked(c.conn, src, dst, gc, 0, 0, 0, 0, width, height).Check()
}

func (c *xconn) CreatePicture(d xproto.Drawable, format render.Pictformat, repeat bool) (render.Picture, error) {
	pic, err := render.NewPictureId(c.conn)
	if err != nil {
		return 0, err
	}

	var (
		mask   uint32
		values []uint32
	)
	if repeat {
		mask = render.CpRepeat
		values = []uint32{render.RepeatNormal}
	}

	if err := render.CreatePictureChecked(c.conn, pic, d, format, mask, values).Check(); err != nil {
		return 0, err
	}
	return pic, nil
}

func (c *xconn) FreePicture(p render.Picture) error {
	return render.FreePictureChecked(c.conn, p).Check()
}

func (c *xconn) Composite(op byte, src, dst render.Picture, srcX, srcY, dstX, dstY int16, width, height uint16) error {
	return render.CompositeChecked(
		c.conn,
		op,
		src,
		0, // no mask
		dst,
		srcX, srcY,
		0, 0,
		dstX, dstY,
		width, height,
	).Check()
}

func (c *xconn) FillRectangles(op byte, dst render.Picture, color render.Color, rects []xproto.Rectangle) error {
	return render.FillRectanglesChecked(c.conn, op, dst, color, rects).Check()
}

func (c *xconn) CreateOverlayWindow(width, height uint16) (xproto.Window, error) {
	win, err := xproto.NewWindowId(c.conn)
	if err != nil {
		return 0, err
	}

	mask := uint32(xproto.CwBackPixel | xproto.CwBorderPixel | xproto.CwOverrideRedirect | xproto.CwEventMask)
	values := []uint32{
		c.screen.BlackPixel,
		0,
		1, // override-redirect
		xproto.EventMaskExposure |
			xproto.EventMaskButtonPress |
			xproto.EventMaskButtonRelease |
			xproto.EventMaskPointerMotion |
			xproto.EventMaskKeyPress,
	}

	err = xproto.CreateWindowChecked(
		c.conn,
		c.screen.RootDepth,
		win,
		c.screen.Root,
		0, 0,
		width, height,
		0,
		xproto.WindowClassInputOutput,
		c.screen.RootVisual,
		mask,
		values,
	).Check()
	if err != nil {
		return 0, err
	}

	if err := xproto.MapWindowChecked(c.conn, win).Check(); err != nil {
		xproto.DestroyWindow(c.conn, win)
		return 0, err
	}
	c.conn.Sync()

	return win, nil
}

func (c *xconn) DestroyWindow(win xproto.Window) error {
	return errors.Join(
		xproto.UnmapWindowChecked(c.conn, win).Check(),
		xproto.DestroyWindowChecked(c.conn, win).Check(),
	)
}

func (c *xconn) OpenCursorFont() (xproto.Font, error) {
	font, err := xproto.NewFontId(c.conn)
	if err != nil {
		return 0, err
	}
	name := "cursor"
	if err := xproto.OpenFontChecked(c.conn, font, uint16(len(name)), name).Check(); err != nil {
		return 0, err
	}
	return font, nil
}

func (c *xconn) CloseFont(f xproto.Font) error {
	return xproto.CloseFontChecked(c.conn, f).Check()
}

func (c *xconn) CreateGlyphCursor(f xproto.Font, glyph uint16) (xproto.Cursor, error) {
	cursor, err := xproto.NewCursorId(c.conn)
	if err != nil {
		return 0, err
	}
	err = xproto.CreateGlyphCursorChecked(
		c.conn,
		cursor,
		f, f,
		glyph, glyph+1,
		0xffff, 0xffff, 0xffff, // white foreground
		0, 0, 0, // black background
	).Check()
	if err != nil {
		return 0, err
	}
	return cursor, nil
}

func (c *xconn) FreeCursor(cursor xproto.Cursor) error {
	return xproto.FreeCursorChecked(c.conn, cursor).Check()
}

func (c *xconn) GrabPointer(win xproto.Window, cursor xproto.Cursor) error {
	reply, err := xproto.GrabPointer(
		c.conn,
		true,
		win,
		uint16(xproto.EventMaskButtonPress|xproto.EventMaskButtonRelease|xproto.EventMaskPointerMotion),
		xproto.GrabModeAsync,
		xproto.GrabModeAsync,
		win,
		cursor,
		xproto.TimeCurrentTime,
	).Reply()
	if err != nil {
		return err
	}
	if reply.Status != xproto.GrabStatusSuccess {
		return fmt.Errorf("pointer grab refused (status %d)", reply.Status)
	}
	return nil
}

func (c *xconn) GrabKeyboard(win xproto.Window) error {
	reply, err := xproto.GrabKeyboard(
		c.conn,
		true,
		win,
		xproto.TimeCurrentTime,
		xproto.GrabModeAsync,
		xproto.GrabModeAsync,
	).Reply()
	if err != nil {
		return err
	}
	if reply.Status != xproto.GrabStatusSuccess {
		return fmt.Errorf("keyboard grab refused (status %d)", reply.Status)
	}
	return nil
}

func (c *xconn) UngrabPointer() error {
	return xproto.UngrabPointerChecked(c.conn, xproto.TimeCurrentTime).Check()
}

func (c *xconn) UngrabKeyboard() error {
	return xproto.UngrabKeyboardChecked(c.conn, xproto.TimeCurrentTime).Check()
}

func (c *xconn) EscapeKeycodes() []xproto.Keycode {
	xu, err := c.util()
	if err != nil {
		logger.WithComponent("x11-capture").Debug().Err(err).Msg("xgbutil unavailable, using default Escape keycode")
		return nil
	}
	keybind.Initialize(xu)
	return keybind.StrToKeycodes(xu, "Escape")
}

func (c *xconn) WaitForEvent() (xgb.Event, error) {
	ev, xerr := c.conn.WaitForEvent()
	if xerr != nil {
		return nil, xerr
	}
	if ev == nil {
		return nil, errConnectionClosed
	}
	return ev, nil
}

func (c *xconn) PollForEvent() (xgb.Event, error) {
	ev, xerr := c.conn.PollForEvent()
	if xerr != nil {
		return nil, xerr
	}
	return ev, nil
}

func (c *xconn) Sync() {
	c.conn.Sync()
}

func (c *xconn) Close() {
	c.conn.Close()
}
