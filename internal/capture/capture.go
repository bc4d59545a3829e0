package capture

import (
	"context"
	"image"
)

// Backend defines the capability set every display-server backend provides.
// Each operation owns its protocol resources for the duration of the call
// and hands the resulting buffer to the caller.
type Backend interface {
	// Server reports which display server this backend talks to
	Server() DisplayServer

	// CaptureFullscreen captures the whole default screen
	CaptureFullscreen(ctx context.Context) (*image.RGBA, error)

	// CaptureRegion captures an explicit rectangle of the screen
	CaptureRegion(ctx context.Context, region Region) (*image.RGBA, error)

	// CaptureInteractive lets the user drag out a rectangle and captures it.
	// Returns ErrSelectionCancelled when the user aborts.
	CaptureInteractive(ctx context.Context) (*image.RGBA, error)

	// CaptureActiveWindow captures the currently focused window
	CaptureActiveWindow(ctx context.Context) (*image.RGBA, error)

	// ListMonitors enumerates the connected monitors. Backends that cannot
	// enumerate return an error wrapping ErrUnsupported.
	ListMonitors(ctx context.Context) ([]Monitor, error)
}

// Mode is a capture intent. The set of modes is closed: the only
// implementations are Fullscreen, RegionMode, RegionInteractive and
// ActiveWindow, and each one dispatches to exactly one Backend method, so a
// new mode cannot be added without every backend growing the matching
// operation.
type Mode interface {
	// Name is the stable identifier handed to persistence collaborators
	Name() string

	// Capture runs this mode against a backend
	Capture(ctx context.Context, b Backend) (*image.RGBA, error)

	mode()
}

// Fullscreen captures the entire screen.
type Fullscreen struct{}

// RegionMode captures an explicit rectangle.
type RegionMode struct {
	Region Region
}

// RegionInteractive asks the user to drag out a rectangle.
type RegionInteractive struct{}

// ActiveWindow captures the focused window.
type ActiveWindow struct{}

func (Fullscreen) Name() string        { return "fullscreen" }
func (RegionMode) Name() string        { return "region" }
func (RegionInteractive) Name() string { return "region-interactive" }
func (ActiveWindow) Name() string      { return "active-window" }

func (Fullscreen) Capture(ctx context.Context, b Backend) (*image.RGBA, error) {
	return b.CaptureFullscreen(ctx)
}

func (m RegionMode) Capture(ctx context.Context, b Backend) (*image.RGBA, error) {
	return b.CaptureRegion(ctx, m.Region)
}

func (RegionInteractive) Capture(ctx context.Context, b Backend) (*image.RGBA, error) {
	return b.CaptureInteractive(ctx)
}

func (ActiveWindow) Capture(ctx context.Context, b Backend) (*image.RGBA, error) {
	return b.CaptureActiveWindow(ctx)
}

func (Fullscreen) mode()        {}
func (RegionMode) mode()        {}
func (RegionInteractive) mode() {}
func (ActiveWindow) mode()      {}

// ParseMode maps a mode name (and, for "region", a geometry string) back to
// a Mode. An empty geometry with "region" selects RegionInteractive.
func ParseMode(name, geometry string) (Mode, error) {
	switch name {
	case "fullscreen", "":
		return Fullscreen{}, nil
	case "region":
		if geometry == "" {
			return RegionInteractive{}, nil
		}
		r, err := ParseRegion(geometry)
		if err != nil {
			return nil, err
		}
		return RegionMode{Region: r}, nil
	case "region-interactive":
		return RegionInteractive{}, nil
	case "active-window", "window":
		return ActiveWindow{}, nil
	default:
		return nil, &UnknownModeError{Name: name}
	}
}
