package capture

import (
	"fmt"
	"image"
	"strconv"
	"strings"
)

// Region is a capture rectangle. X and Y may be negative on multi-monitor
// layouts; Width and Height are requested sizes and are not guaranteed to
// fit on screen.
type Region struct {
	X      int32  `json:"x"`
	Y      int32  `json:"y"`
	Width  uint32 `json:"width"`
	Height uint32 `json:"height"`
}

// Empty reports whether the region has no area.
func (r Region) Empty() bool {
	return r.Width == 0 || r.Height == 0
}

// Rect converts the region to an image.Rectangle.
func (r Region) Rect() image.Rectangle {
	return image.Rect(int(r.X), int(r.Y), int(r.X)+int(r.Width), int(r.Y)+int(r.Height))
}

// Intersect clips r against bounds. The result is empty when they do not overlap.
func (r Region) Intersect(bounds Region) Region {
	return regionFromRect(r.Rect().Intersect(bounds.Rect()))
}

// ClampTo clips r to a width x height image anchored at the origin.
func (r Region) ClampTo(width, height int) Region {
	return regionFromRect(r.Rect().Intersect(image.Rect(0, 0, width, height)))
}

func (r Region) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", r.Width, r.Height, r.X, r.Y)
}

func regionFromRect(rect image.Rectangle) Region {
	if rect.Empty() {
		return Region{X: int32(rect.Min.X), Y: int32(rect.Min.Y)}
	}
	return Region{
		X:      int32(rect.Min.X),
		Y:      int32(rect.Min.Y),
		Width:  uint32(rect.Dx()),
		Height: uint32(rect.Dy()),
	}
}

// Monitor is one connected output as reported by the display server.
type Monitor struct {
	Name   string `json:"name"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Region returns the monitor's area in root-window coordinates.
func (m Monitor) Region() Region {
	return Region{
		X:      int32(m.X),
		Y:      int32(m.Y),
		Width:  uint32(max(m.Width, 0)),
		Height: uint32(max(m.Height, 0)),
	}
}

func (m Monitor) String() string {
	return fmt.Sprintf("%s: %dx%d+%d+%d", m.Name, m.Width, m.Height, m.X, m.Y)
}

// ParseRegion parses "X,Y,W,H" or "WxH+X+Y". Fields are parsed in the
// order they appear, so the error names the first field that is invalid.
func ParseRegion(s string) (Region, error) {
	if strings.Contains(s, "x") && strings.Contains(s, "+") {
		parts := strings.Split(strings.Replace(s, "x", "+", 1), "+")
		if len(parts) == 4 {
			return parseFields(s, []field{
				{"width", parts[0]}, {"height", parts[1]}, {"x", parts[2]}, {"y", parts[3]},
			})
		}
	}

	parts := strings.Split(s, ",")
	if len(parts) == 4 {
		return parseFields(s, []field{
			{"x", parts[0]}, {"y", parts[1]}, {"width", parts[2]}, {"height", parts[3]},
		})
	}

	return Region{}, &RegionParseError{Input: s}
}

type field struct {
	name string
	text string
}

func parseFields(input string, fields []field) (Region, error) {
	var r Region
	for _, f := range fields {
		text := strings.TrimSpace(f.text)
		switch f.name {
		case "x", "y":
			v, err := strconv.ParseInt(text, 10, 32)
			if err != nil {
				return Region{}, &RegionParseError{Input: input, Field: f.name}
			}
			if f.name == "x" {
				r.X = int32(v)
			} else {
				r.Y = int32(v)
			}
		case "width", "height":
			v, err := strconv.ParseUint(text, 10, 32)
			if err != nil {
				return Region{}, &RegionParseError{Input: input, Field: f.name}
			}
			if f.name == "width" {
				r.Width = uint32(v)
			} else {
				r.Height = uint32(v)
			}
		}
	}
	return r, nil
}

// NormalizeSelection turns two drag corners into a rectangle with a
// non-negative origin that lies entirely inside a screenW x screenH screen.
// The corners may be given in either order.
func NormalizeSelection(x0, y0, x1, y1, screenW, screenH int) Region {
	left := clamp(min(x0, x1), 0, screenW)
	top := clamp(min(y0, y1), 0, screenH)
	right := clamp(max(x0, x1), 0, screenW)
	bottom := clamp(max(y0, y1), 0, screenH)

	return Region{
		X:      int32(left),
		Y:      int32(top),
		Width:  uint32(right - left),
		Height: uint32(bottom - top),
	}
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	return min(max(v, lo), hi)
}
