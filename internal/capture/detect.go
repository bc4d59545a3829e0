package capture

import "os"

// DisplayServer identifies which protocol backend serves the session.
type DisplayServer int

const (
	// X11 is the X-based protocol backend.
	X11 DisplayServer = iota + 1
	// Wayland is the compositor-portal backend.
	Wayland
)

func (d DisplayServer) String() string {
	switch d {
	case X11:
		return "x11"
	case Wayland:
		return "wayland"
	default:
		return "unknown"
	}
}

// Environment variables consulted by Detect, most specific first.
const (
	EnvWaylandDisplay = "WAYLAND_DISPLAY"
	EnvSessionType    = "XDG_SESSION_TYPE"
	EnvDisplay        = "DISPLAY"
)

// LookupFunc reads one environment variable.
type LookupFunc func(key string) (string, bool)

// DetectDisplayServer inspects the process environment.
func DetectDisplayServer() (DisplayServer, error) {
	return Detect(os.LookupEnv)
}

// Detect decides which display server to use. A set WAYLAND_DISPLAY wins;
// then XDG_SESSION_TYPE when it is exactly "wayland" or "x11" (any other
// value is ignored); then a set DISPLAY implies X11.
func Detect(lookup LookupFunc) (DisplayServer, error) {
	if _, ok := lookup(EnvWaylandDisplay); ok {
		return Wayland, nil
	}
	if session, ok := lookup(EnvSessionType); ok {
		switch session {
		case "wayland":
			return Wayland, nil
		case "x11":
			return X11, nil
		}
	}
	if _, ok := lookup(EnvDisplay); ok {
		return X11, nil
	}
	return 0, ErrNoDisplayServer
}
