package capture

import (
	"context"
	"errors"
	"image"
	"testing"
)

// recorder is a Backend that reports which operation was invoked.
type recorder struct {
	called string
	region Region
}

func (r *recorder) Server() DisplayServer { return X11 }

func (r *recorder) CaptureFullscreen(context.Context) (*image.RGBA, error) {
	r.called = "fullscreen"
	return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil
}

func (r *recorder) CaptureRegion(_ context.Context, region Region) (*image.RGBA, error) {
	r.called, r.region = "region", region
	return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil
}

func (r *recorder) CaptureInteractive(context.Context) (*image.RGBA, error) {
	r.called = "interactive"
	return nil, ErrSelectionCancelled
}

func (r *recorder) CaptureActiveWindow(context.Context) (*image.RGBA, error) {
	r.called = "window"
	return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil
}

func (r *recorder) ListMonitors(context.Context) ([]Monitor, error) {
	return nil, nil
}

func TestModeDispatch(t *testing.T) {
	region := Region{X: 1, Y: 2, Width: 3, Height: 4}
	tests := []struct {
		mode Mode
		want string
		name string
	}{
		{Fullscreen{}, "fullscreen", "fullscreen"},
		{RegionMode{Region: region}, "region", "region"},
		{RegionInteractive{}, "interactive", "region-interactive"},
		{ActiveWindow{}, "window", "active-window"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &recorder{}
			_, err := tt.mode.Capture(context.Background(), b)
			if err != nil && !IsCancelled(err) {
				t.Fatalf("Capture() error = %v", err)
			}
			if b.called != tt.want {
				t.Fatalf("dispatched to %q, want %q", b.called, tt.want)
			}
			if tt.mode.Name() != tt.name {
				t.Fatalf("Name() = %q, want %q", tt.mode.Name(), tt.name)
			}
		})
	}

	b := &recorder{}
	RegionMode{Region: region}.Capture(context.Background(), b)
	if b.region != region {
		t.Fatalf("region passed = %+v, want %+v", b.region, region)
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		name, geometry string
		want           Mode
	}{
		{"", "", Fullscreen{}},
		{"fullscreen", "", Fullscreen{}},
		{"region", "", RegionInteractive{}},
		{"region", "10x20+1+2", RegionMode{Region: Region{X: 1, Y: 2, Width: 10, Height: 20}}},
		{"region-interactive", "", RegionInteractive{}},
		{"active-window", "", ActiveWindow{}},
		{"window", "", ActiveWindow{}},
	}

	for _, tt := range tests {
		got, err := ParseMode(tt.name, tt.geometry)
		if err != nil {
			t.Fatalf("ParseMode(%q, %q) error = %v", tt.name, tt.geometry, err)
		}
		if got != tt.want {
			t.Fatalf("ParseMode(%q, %q) = %#v, want %#v", tt.name, tt.geometry, got, tt.want)
		}
	}
}

func TestParseModeErrors(t *testing.T) {
	var unknown *UnknownModeError
	if _, err := ParseMode("video", ""); !errors.As(err, &unknown) {
		t.Fatalf("error = %v, want *UnknownModeError", err)
	}

	var parseErr *RegionParseError
	if _, err := ParseMode("region", "1,2"); !errors.As(err, &parseErr) {
		t.Fatalf("error = %v, want *RegionParseError", err)
	}
}

func TestErrorMessagesCarryContext(t *testing.T) {
	base := errors.New("BadMatch")
	err := &RequestError{Backend: X11, Op: "get image", Err: base}

	if got, want := err.Error(), "x11: get image failed: BadMatch"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, base) {
		t.Fatal("RequestError does not unwrap")
	}

	conn := &ConnectionError{Backend: Wayland, Err: base}
	if got, want := conn.Error(), "wayland: failed to connect: BadMatch"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}
