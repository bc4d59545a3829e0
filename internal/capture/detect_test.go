package capture

import (
	"errors"
	"testing"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want DisplayServer
		err  error
	}{
		{
			name: "wayland display wins",
			env:  map[string]string{EnvWaylandDisplay: "wayland-0", EnvSessionType: "x11", EnvDisplay: ":0"},
			want: Wayland,
		},
		{
			name: "empty wayland display still counts",
			env:  map[string]string{EnvWaylandDisplay: ""},
			want: Wayland,
		},
		{
			name: "session type wayland",
			env:  map[string]string{EnvSessionType: "wayland", EnvDisplay: ":0"},
			want: Wayland,
		},
		{
			name: "session type x11",
			env:  map[string]string{EnvSessionType: "x11"},
			want: X11,
		},
		{
			name: "unrecognized session type falls through",
			env:  map[string]string{EnvSessionType: "tty", EnvDisplay: ":1"},
			want: X11,
		},
		{
			name: "session type must match exactly",
			env:  map[string]string{EnvSessionType: "X11"},
			err:  ErrNoDisplayServer,
		},
		{
			name: "display only",
			env:  map[string]string{EnvDisplay: ":0"},
			want: X11,
		},
		{
			name: "nothing set",
			env:  map[string]string{},
			err:  ErrNoDisplayServer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookup := func(key string) (string, bool) {
				v, ok := tt.env[key]
				return v, ok
			}

			got, err := Detect(lookup)
			if tt.err != nil {
				if !errors.Is(err, tt.err) {
					t.Fatalf("Detect() error = %v, want %v", err, tt.err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Detect() error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("Detect() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDetectDisplayServerReadsEnvironment(t *testing.T) {
	t.Setenv(EnvWaylandDisplay, "wayland-1")

	got, err := DetectDisplayServer()
	if err != nil {
		t.Fatalf("DetectDisplayServer() error = %v", err)
	}
	if got != Wayland {
		t.Fatalf("DetectDisplayServer() = %v, want wayland", got)
	}
}

func TestDisplayServerString(t *testing.T) {
	if X11.String() != "x11" || Wayland.String() != "wayland" || DisplayServer(0).String() != "unknown" {
		t.Fatalf("unexpected names: %s %s %s", X11, Wayland, DisplayServer(0))
	}
}
