package capture

import (
	"errors"
	"fmt"
)

var (
	// ErrNoDisplayServer is returned when no environment signal identifies
	// a display server.
	ErrNoDisplayServer = errors.New("no display server detected")

	// ErrNoActiveWindow is returned when the session reports no focused window.
	ErrNoActiveWindow = errors.New("no active window found")

	// ErrNoCompatibleVisual is returned when the screen has no 32-bit
	// alpha-capable visual for the selection overlay.
	ErrNoCompatibleVisual = errors.New("no 32-bit ARGB visual available")

	// ErrRegionOutOfBounds is returned when a requested rectangle has no
	// overlap with the captured image.
	ErrRegionOutOfBounds = errors.New("region is outside screen bounds")

	// ErrSelectionCancelled is returned when the user aborts an interactive
	// selection. It is an outcome, not a failure.
	ErrSelectionCancelled = errors.New("region selection cancelled")

	// ErrUnsupported is returned for operations a backend cannot perform.
	ErrUnsupported = errors.New("operation not supported")

	// ErrNoMonitors is returned when monitor enumeration yields nothing.
	ErrNoMonitors = errors.New("no monitors found")
)

// IsCancelled reports whether err is an intentional selection abort.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrSelectionCancelled)
}

// ConnectionError reports a failure to reach the display server.
type ConnectionError struct {
	Backend DisplayServer
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s: failed to connect: %v", e.Backend, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// RequestError reports a failed protocol request, naming the request.
type RequestError struct {
	Backend DisplayServer
	Op      string
	Err     error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s: %s failed: %v", e.Backend, e.Op, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// MonitorNotFoundError reports a display specifier that matched nothing.
type MonitorNotFoundError struct {
	Spec   string
	Reason string
}

func (e *MonitorNotFoundError) Error() string {
	return e.Reason
}

// DecodeError reports an image file that could not be decoded.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode screenshot %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// RegionParseError names the field of a region string that failed to parse.
// Field is empty when the string matched neither grammar.
type RegionParseError struct {
	Input string
	Field string
}

func (e *RegionParseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid region format %q: use X,Y,W,H or WxH+X+Y", e.Input)
	}
	return fmt.Sprintf("invalid %s in region %q", e.Field, e.Input)
}

// UnknownModeError reports a capture mode name that is not recognized.
type UnknownModeError struct {
	Name string
}

func (e *UnknownModeError) Error() string {
	return fmt.Sprintf("unknown capture mode %q (use fullscreen, region, region-interactive, active-window)", e.Name)
}
