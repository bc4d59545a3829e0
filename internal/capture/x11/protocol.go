package x11

import (
	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/render"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/bryanchriswhite/hotshot/internal/capture"
)

// Protocol is the slice of the X protocol the backend consumes. Every
// method is one blocking round trip on a single connection. The production
// implementation wraps an xgb connection; tests substitute a fake.
type Protocol interface {
	// Screen returns the default screen of the connection
	Screen() *xproto.ScreenInfo

	// GetImage fetches ZPixmap data for a rectangle of a drawable
	GetImage(d xproto.Drawable, x, y int16, width, height uint16) ([]byte, error)

	// ActiveWindow reads _NET_ACTIVE_WINDOW from the root window.
	// Returns 0 when the property is absent.
	ActiveWindow() (xproto.Window, error)

	// WindowName returns a window's title, or "" when unavailable
	WindowName(win xproto.Window) string

	Geometry(d xproto.Drawable) (*xproto.GetGeometryReply, error)
	TranslateCoordinates(src, dst xproto.Window, x, y int16) (*xproto.TranslateCoordinatesReply, error)

	// Monitors enumerates active outputs through RandR
	Monitors() ([]capture.Monitor, error)

	// InitRender verifies the Render extension is present
	InitRender() error
	PictFormats() (*render.QueryPictFormatsReply, error)

	CreatePixmap(depth byte, d xproto.Drawable, width, height uint16) (xproto.Pixmap, error)
	FreePixmap(p xproto.Pixmap) error
	CopyArea(src, dst xproto.Drawable, width, height uint16) error

	CreatePicture(d xproto.Drawable, format render.Pictformat, repeat bool) (render.Picture, error)
	FreePicture(p render.Picture) error
	Composite(op byte, src, dst render.Picture, srcX, srcY, dstX, dstY int16, width, height uint16) error
	FillRectangles(op byte, dst render.Picture, color render.Color, rects []xproto.Rectangle) error

	// CreateOverlayWindow creates and maps a full-screen override-redirect
	// window that receives pointer, key and expose events
	CreateOverlayWindow(width, height uint16) (xproto.Window, error)
	DestroyWindow(win xproto.Window) error

	OpenCursorFont() (xproto.Font, error)
	CloseFont(f xproto.Font) error
	CreateGlyphCursor(f xproto.Font, glyph uint16) (xproto.Cursor, error)
	FreeCursor(c xproto.Cursor) error

	GrabPointer(win xproto.Window, cursor xproto.Cursor) error
	GrabKeyboard(win xproto.Window) error
	UngrabPointer() error
	UngrabKeyboard() error

	// EscapeKeycodes returns the keycodes bound to the Escape keysym
	EscapeKeycodes() []xproto.Keycode

	// WaitForEvent blocks for the next event
	WaitForEvent() (xgb.Event, error)
	// PollForEvent returns the next queued event, or nil when none is queued
	PollForEvent() (xgb.Event, error)

	Sync()
	Close()
}
