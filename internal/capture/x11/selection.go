package x11

import (
	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/bryanchriswhite/hotshot/internal/capture"
)

// keycode of Escape on the standard evdev layout, used when the keyboard
// mapping cannot be queried
const defaultEscapeKeycode xproto.Keycode = 9

type eventSource interface {
	WaitForEvent() (xgb.Event, error)
	PollForEvent() (xgb.Event, error)
}

// eventQueue wraps an event source with a pushback buffer so that an event
// read ahead while coalescing motion is dispatched by the main loop.
type eventQueue struct {
	src     eventSource
	pending []xgb.Event
}

func (q *eventQueue) next() (xgb.Event, error) {
	if n := len(q.pending); n > 0 {
		ev := q.pending[n-1]
		q.pending = q.pending[:n-1]
		return ev, nil
	}
	return q.src.WaitForEvent()
}

// poll returns an already-queued event without blocking, or nil.
func (q *eventQueue) poll() (xgb.Event, error) {
	if n := len(q.pending); n > 0 {
		ev := q.pending[n-1]
		q.pending = q.pending[:n-1]
		return ev, nil
	}
	return q.src.PollForEvent()
}

func (q *eventQueue) unread(ev xgb.Event) {
	q.pending = append(q.pending, ev)
}

// surface is what the selector draws on and captures from.
type surface interface {
	Redraw(sel *capture.Region) error
}

type selectState int

const (
	stateIdle selectState = iota
	stateDragging
)

// selector is the drag-to-select state machine. It returns the selected
// region, or ErrSelectionCancelled when Escape is pressed.
type selector struct {
	events  *eventQueue
	surface surface
	width   int
	height  int
	escape  map[xproto.Keycode]bool

	state            selectState
	originX, originY int
	curX, curY       int
}

func newSelector(src eventSource, s surface, width, height int, escape []xproto.Keycode) *selector {
	keys := map[xproto.Keycode]bool{}
	for _, k := range escape {
		keys[k] = true
	}
	if len(keys) == 0 {
		keys[defaultEscapeKeycode] = true
	}

	return &selector{
		events:  &eventQueue{src: src},
		surface: s,
		width:   width,
		height:  height,
		escape:  keys,
	}
}

func (s *selector) selection() *capture.Region {
	if s.state != stateDragging {
		return nil
	}
	r := capture.NormalizeSelection(s.originX, s.originY, s.curX, s.curY, s.width, s.height)
	return &r
}

func (s *selector) run() (capture.Region, error) {
	for {
		ev, err := s.events.next()
		if err != nil {
			return capture.Region{}, request("wait for event", err)
		}

		switch e := ev.(type) {
		case xproto.ExposeEvent:
			if e.Count == 0 {
				if err := s.surface.Redraw(s.selection()); err != nil {
					return capture.Region{}, err
				}
			}

		case xproto.ButtonPressEvent:
			if e.Detail == xproto.ButtonIndex1 {
				s.state = stateDragging
				s.originX, s.originY = int(e.EventX), int(e.EventY)
				s.curX, s.curY = s.originX, s.originY
			}

		case xproto.MotionNotifyEvent:
			if s.state != stateDragging {
				continue
			}
			s.curX, s.curY = int(e.EventX), int(e.EventY)
			if err := s.coalesceMotion(); err != nil {
				return capture.Region{}, err
			}
			if err := s.surface.Redraw(s.selection()); err != nil {
				return capture.Region{}, err
			}

		case xproto.ButtonReleaseEvent:
			if e.Detail != xproto.ButtonIndex1 || s.state != stateDragging {
				continue
			}
			s.curX, s.curY = int(e.EventX), int(e.EventY)
			sel := *s.selection()
			s.state = stateIdle
			if !sel.Empty() {
				return sel, nil
			}
			// A click without a drag keeps the session open.
			if err := s.surface.Redraw(nil); err != nil {
				return capture.Region{}, err
			}

		case xproto.KeyPressEvent:
			if s.escape[e.Detail] {
				return capture.Region{}, capture.ErrSelectionCancelled
			}
		}
	}
}

// coalesceMotion drains queued motion events, keeping the latest pointer
// position. The first non-motion event is pushed back for the main loop.
func (s *selector) coalesceMotion() error {
	for {
		ev, err := s.events.poll()
		if err != nil {
			return request("poll for event", err)
		}
		if ev == nil {
			return nil
		}
		m, ok := ev.(xproto.MotionNotifyEvent)
		if !ok {
			s.events.unread(ev)
			return nil
		}
		s.curX, s.curY = int(m.EventX), int(m.EventY)
	}
}
