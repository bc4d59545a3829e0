package engine

import (
	"context"
	"fmt"
	"image"
	"strconv"
	"sync"
	"time"

	"github.com/bryanchriswhite/hotshot/internal/capture"
	"github.com/bryanchriswhite/hotshot/internal/capture/portal"
	"github.com/bryanchriswhite/hotshot/internal/capture/x11"
	"github.com/bryanchriswhite/hotshot/internal/logger"
)

// Options configures the backends the dispatcher builds.
type Options struct {
	Overlay       x11.Options
	PortalTimeout time.Duration
}

// Dispatcher is the entry point for captures. It detects the display server
// once, builds the matching backend, and routes every request to it.
type Dispatcher struct {
	detect     func() (capture.DisplayServer, error)
	newBackend func(capture.DisplayServer) (capture.Backend, error)

	once    sync.Once
	server  capture.DisplayServer
	backend capture.Backend
	err     error
}

// New creates a dispatcher that detects from the process environment.
func New(opts Options) *Dispatcher {
	return &Dispatcher{
		detect: capture.DetectDisplayServer,
		newBackend: func(server capture.DisplayServer) (capture.Backend, error) {
			switch server {
			case capture.X11:
				return x11.New(opts.Overlay), nil
			case capture.Wayland:
				return portal.New(opts.PortalTimeout), nil
			default:
				return nil, capture.ErrNoDisplayServer
			}
		},
	}
}

// NewWithBackend creates a dispatcher bound to an existing backend,
// skipping detection.
func NewWithBackend(b capture.Backend) *Dispatcher {
	return &Dispatcher{
		detect:     func() (capture.DisplayServer, error) { return b.Server(), nil },
		newBackend: func(capture.DisplayServer) (capture.Backend, error) { return b, nil },
	}
}

func (d *Dispatcher) resolve() (capture.Backend, error) {
	d.once.Do(func() {
		d.server, d.err = d.detect()
		if d.err != nil {
			return
		}
		d.backend, d.err = d.newBackend(d.server)
		if d.err == nil {
			logger.WithComponent("dispatcher").Debug().
				Str("display_server", d.server.String()).
				Msg("Selected capture backend")
		}
	})
	return d.backend, d.err
}

// DisplayServer reports the detected display server.
func (d *Dispatcher) DisplayServer() (capture.DisplayServer, error) {
	if _, err := d.resolve(); err != nil {
		return 0, err
	}
	return d.server, nil
}

// Capture runs mode against the backend. When bounds is set, Fullscreen
// captures exactly bounds and Region is clipped to it; an explicit region
// entirely outside bounds fails with ErrRegionOutOfBounds. Interactive and
// active-window captures ignore bounds.
func (d *Dispatcher) Capture(ctx context.Context, mode capture.Mode, bounds *capture.Region) (*image.RGBA, error) {
	b, err := d.resolve()
	if err != nil {
		return nil, err
	}

	if bounds != nil {
		mode, err = applyBounds(mode, *bounds)
		if err != nil {
			return nil, err
		}
	}

	log := logger.WithComponent("dispatcher")
	log.Debug().
		Str("display_server", d.server.String()).
		Str("mode", mode.Name()).
		Msg("Starting capture")

	start := time.Now()
	img, err := mode.Capture(ctx, b)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("display_server", d.server.String()).
		Str("mode", mode.Name()).
		Int("width", img.Bounds().Dx()).
		Int("height", img.Bounds().Dy()).
		Dur("elapsed", time.Since(start)).
		Msg("Capture complete")

	return img, nil
}

func applyBounds(mode capture.Mode, bounds capture.Region) (capture.Mode, error) {
	switch m := mode.(type) {
	case capture.Fullscreen:
		return capture.RegionMode{Region: bounds}, nil
	case capture.RegionMode:
		clipped := m.Region.Intersect(bounds)
		if clipped.Empty() {
			return nil, fmt.Errorf("%s outside display %s: %w", m.Region, bounds, capture.ErrRegionOutOfBounds)
		}
		return capture.RegionMode{Region: clipped}, nil
	default:
		return mode, nil
	}
}

// ListMonitors enumerates monitors fresh on every call.
func (d *Dispatcher) ListMonitors(ctx context.Context) ([]capture.Monitor, error) {
	b, err := d.resolve()
	if err != nil {
		return nil, err
	}
	return b.ListMonitors(ctx)
}

// ResolveDisplay finds a monitor by zero-based index or by exact name.
// A value that parses as a number is always treated as an index.
func (d *Dispatcher) ResolveDisplay(ctx context.Context, spec string) (capture.Monitor, error) {
	monitors, err := d.ListMonitors(ctx)
	if err != nil {
		return capture.Monitor{}, err
	}
	if len(monitors) == 0 {
		return capture.Monitor{}, capture.ErrNoMonitors
	}

	if idx, err := strconv.ParseUint(spec, 10, 0); err == nil {
		if idx >= uint64(len(monitors)) {
			return capture.Monitor{}, &capture.MonitorNotFoundError{
				Spec:   spec,
				Reason: fmt.Sprintf("display index %d out of range (0..%d)", idx, len(monitors)-1),
			}
		}
		return monitors[idx], nil
	}

	for _, m := range monitors {
		if m.Name == spec {
			return m, nil
		}
	}
	return capture.Monitor{}, &capture.MonitorNotFoundError{
		Spec:   spec,
		Reason: fmt.Sprintf("no display named '%s'", spec),
	}
}
