package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/randr"
	"github.com/bryanchriswhite/hotshot/internal/capture"
)

// Monitors retrieves all active monitors using XRandR
func (c *xconn) Monitors() ([]capture.Monitor, error) {
	if err := randr.Init(c.conn); err != nil {
		return nil, fmt.Errorf("randr init failed: %w", err)
	}

	resources, err := randr.GetScreenResources(c.conn, c.screen.Root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get screen resources: %w", err)
	}

	monitors := make([]capture.Monitor, 0, len(resources.Crtcs))

	for i, crtc := range resources.Crtcs {
		info, err := randr.GetCrtcInfo(c.conn, crtc, resources.ConfigTimestamp).Reply()
		if err != nil {
			continue
		}

		// Skip disabled CRTCs
		if info.Width == 0 || info.Height == 0 || len(info.Outputs) == 0 {
			continue
		}

		name := fmt.Sprintf("Monitor%d", i)
		output, err := randr.GetOutputInfo(c.conn, info.Outputs[0], resources.ConfigTimestamp).Reply()
		if err == nil {
			name = string(output.Name)
		}

		monitors = append(monitors, capture.Monitor{
			Name:   name,
			X:      int(info.X),
			Y:      int(info.Y),
			Width:  int(info.Width),
			Height: int(info.Height),
		})
	}

	return monitors, nil
}
