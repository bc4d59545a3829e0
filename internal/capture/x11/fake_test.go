package x11

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/render"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/bryanchriswhite/hotshot/internal/capture"
)

const (
	fakeRootVisual xproto.Visualid   = 0x21
	fakeARGBVisual xproto.Visualid   = 0x44
	fakeRootFormat render.Pictformat = 0x30
	fakeARGBFormat render.Pictformat = 0x31
)

// fakeProto is an in-memory X server. It records the resources it hands
// out and fails the named request when failOn matches.
type fakeProto struct {
	screen *xproto.ScreenInfo
	events []xgb.Event

	nextID   uint32
	calls    []string
	released []string
	live     map[uint32]string
	failOn   string

	activeWindow xproto.Window
	geometry     xproto.GetGeometryReply
	translated   xproto.TranslateCoordinatesReply
	monitors     []capture.Monitor
	noARGB       bool

	imageRequests []imageRequest
	fill          byte

	grabbedPointer  bool
	grabbedKeyboard bool
	syncs           int
	closed          bool
}

type imageRequest struct {
	drawable      xproto.Drawable
	x, y          int16
	width, height uint16
}

func newFakeProto(width, height uint16) *fakeProto {
	return &fakeProto{
		screen: &xproto.ScreenInfo{
			Root:           1,
			RootDepth:      24,
			RootVisual:     fakeRootVisual,
			WidthInPixels:  width,
			HeightInPixels: height,
			AllowedDepths: []xproto.DepthInfo{
				{Depth: 24, Visuals: []xproto.VisualInfo{{VisualId: fakeRootVisual}}},
				{Depth: 32, Visuals: []xproto.VisualInfo{{VisualId: fakeARGBVisual}}},
			},
		},
		nextID: 100,
		live:   map[uint32]string{},
		fill:   0x10,
	}
}

func (f *fakeProto) call(name string) error {
	f.calls = append(f.calls, name)
	if f.failOn == name {
		return fmt.Errorf("%s: BadAlloc", name)
	}
	return nil
}

func (f *fakeProto) alloc(kind string) uint32 {
	f.nextID++
	f.live[f.nextID] = kind
	return f.nextID
}

func (f *fakeProto) free(kind string, id uint32) error {
	if f.live[id] != kind {
		return fmt.Errorf("free %s %d: not allocated", kind, id)
	}
	delete(f.live, id)
	f.released = append(f.released, kind)
	return nil
}

func (f *fakeProto) Screen() *xproto.ScreenInfo { return f.screen }

func (f *fakeProto) GetImage(d xproto.Drawable, x, y int16, width, height uint16) ([]byte, error) {
	if err := f.call("GetImage"); err != nil {
		return nil, err
	}
	f.imageRequests = append(f.imageRequests, imageRequest{d, x, y, width, height})
	data := make([]byte, int(width)*int(height)*4)
	for i := 0; i < len(data); i += 4 {
		data[i], data[i+1], data[i+2], data[i+3] = f.fill, 0x20, 0x30, 0x00
	}
	return data, nil
}

func (f *fakeProto) ActiveWindow() (xproto.Window, error) {
	if err := f.call("ActiveWindow"); err != nil {
		return 0, err
	}
	return f.activeWindow, nil
}

func (f *fakeProto) WindowName(xproto.Window) string { return "fake" }

func (f *fakeProto) Geometry(xproto.Drawable) (*xproto.GetGeometryReply, error) {
	if err := f.call("Geometry"); err != nil {
		return nil, err
	}
	g := f.geometry
	return &g, nil
}

func (f *fakeProto) TranslateCoordinates(_, _ xproto.Window, _, _ int16) (*xproto.TranslateCoordinatesReply, error) {
	if err := f.call("TranslateCoordinates"); err != nil {
		return nil, err
	}
	t := f.translated
	return &t, nil
}

func (f *fakeProto) Monitors() ([]capture.Monitor, error) {
	if err := f.call("Monitors"); err != nil {
		return nil, err
	}
	return f.monitors, nil
}

func (f *fakeProto) InitRender() error { return f.call("InitRender") }

func (f *fakeProto) PictFormats() (*render.QueryPictFormatsReply, error) {
	if err := f.call("PictFormats"); err != nil {
		return nil, err
	}
	depths := []render.Pictdepth{
		{Depth: 24, Visuals: []render.Pictvisual{{Visual: fakeRootVisual, Format: fakeRootFormat}}},
	}
	if !f.noARGB {
		depths = append(depths, render.Pictdepth{
			Depth: 32, Visuals: []render.Pictvisual{{Visual: fakeARGBVisual, Format: fakeARGBFormat}},
		})
	}
	return &render.QueryPictFormatsReply{
		Screens: []render.Pictscreen{{Depths: depths}},
	}, nil
}

func (f *fakeProto) CreatePixmap(_ byte, _ xproto.Drawable, _, _ uint16) (xproto.Pixmap, error) {
	if err := f.call("CreatePixmap"); err != nil {
		return 0, err
	}
	return xproto.Pixmap(f.alloc("pixmap")), nil
}

func (f *fakeProto) FreePixmap(p xproto.Pixmap) error { return f.free("pixmap", uint32(p)) }

func (f *fakeProto) CopyArea(_, _ xproto.Drawable, _, _ uint16) error { return f.call("CopyArea") }

func (f *fakeProto) CreatePicture(xproto.Drawable, render.Pictformat, bool) (render.Picture, error) {
	if err := f.call("CreatePicture"); err != nil {
		return 0, err
	}
	return render.Picture(f.alloc("picture")), nil
}

func (f *fakeProto) FreePicture(p render.Picture) error { return f.free("picture", uint32(p)) }

func (f *fakeProto) Composite(op byte, _, _ render.Picture, _, _, _, _ int16, _, _ uint16) error {
	return f.call(fmt.Sprintf("Composite(%d)", op))
}

func (f *fakeProto) FillRectangles(byte, render.Picture, render.Color, []xproto.Rectangle) error {
	return f.call("FillRectangles")
}

func (f *fakeProto) CreateOverlayWindow(_, _ uint16) (xproto.Window, error) {
	if err := f.call("CreateOverlayWindow"); err != nil {
		return 0, err
	}
	return xproto.Window(f.alloc("window")), nil
}

func (f *fakeProto) DestroyWindow(w xproto.Window) error { return f.free("window", uint32(w)) }

func (f *fakeProto) OpenCursorFont() (xproto.Font, error) {
	if err := f.call("OpenCursorFont"); err != nil {
		return 0, err
	}
	return xproto.Font(f.alloc("font")), nil
}

func (f *fakeProto) CloseFont(font xproto.Font) error { return f.free("font", uint32(font)) }

func (f *fakeProto) CreateGlyphCursor(xproto.Font, uint16) (xproto.Cursor, error) {
	if err := f.call("CreateGlyphCursor"); err != nil {
		return 0, err
	}
	return xproto.Cursor(f.alloc("cursor")), nil
}

func (f *fakeProto) FreeCursor(c xproto.Cursor) error { return f.free("cursor", uint32(c)) }

func (f *fakeProto) GrabPointer(xproto.Window, xproto.Cursor) error {
	if err := f.call("GrabPointer"); err != nil {
		return err
	}
	f.grabbedPointer = true
	return nil
}

func (f *fakeProto) GrabKeyboard(xproto.Window) error {
	if err := f.call("GrabKeyboard"); err != nil {
		return err
	}
	f.grabbedKeyboard = true
	return nil
}

func (f *fakeProto) UngrabPointer() error {
	f.grabbedPointer = false
	f.released = append(f.released, "pointer grab")
	return nil
}

func (f *fakeProto) UngrabKeyboard() error {
	f.grabbedKeyboard = false
	f.released = append(f.released, "keyboard grab")
	return nil
}

func (f *fakeProto) EscapeKeycodes() []xproto.Keycode { return []xproto.Keycode{9} }

var errNoMoreEvents = errors.New("event script exhausted")

func (f *fakeProto) WaitForEvent() (xgb.Event, error) {
	if len(f.events) == 0 {
		return nil, errNoMoreEvents
	}
	ev := f.events[0]
	f.events = f.events[1:]
	return ev, nil
}

func (f *fakeProto) PollForEvent() (xgb.Event, error) {
	if len(f.events) == 0 {
		return nil, nil
	}
	return f.WaitForEvent()
}

func (f *fakeProto) Sync() { f.syncs++ }

func (f *fakeProto) Close() { f.closed = true }

func (f *fakeProto) dialer() func() (Protocol, error) {
	return func() (Protocol, error) { return f, nil }
}

func press(x, y int16) xgb.Event {
	return xproto.ButtonPressEvent{Detail: xproto.ButtonIndex1, EventX: x, EventY: y}
}

func motion(x, y int16) xgb.Event {
	return xproto.MotionNotifyEvent{EventX: x, EventY: y}
}

func releaseAt(x, y int16) xgb.Event {
	return xproto.ButtonReleaseEvent{Detail: xproto.ButtonIndex1, EventX: x, EventY: y}
}

func key(code xproto.Keycode) xgb.Event {
	return xproto.KeyPressEvent{Detail: code}
}

var _ Protocol = (*fakeProto)(nil)
