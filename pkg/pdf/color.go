package pdf

import (
	"seehuhn.de/go/pdf/graphics/color"
)

// ColorSpace names a PDF device color space usable for images.
type ColorSpace string

const (
	DeviceRGB  ColorSpace = "DeviceRGB"
	DeviceCMYK ColorSpace = "DeviceCMYK"
)

// Channels returns the number of components per sample in the color space.
func (cs ColorSpace) Channels() int {
	switch cs {
	case DeviceRGB:
		return 3
	case DeviceCMYK:
		return 4
	}
	return 0
}

func (cs ColorSpace) space() color.Space {
	if cs == DeviceRGB {
		return color.SpaceDeviceRGB
	}
	return color.SpaceDeviceCMYK
}

// Color is a device color. Components are clamped to [0, 1].
type Color = color.Color

func CMYK(c, m, y, k float64) Color {
	return color.DeviceCMYK{clampUnit(c), clampUnit(m), clampUnit(y), clampUnit(k)}
}

func RGB(r, g, b float64) Color {
	return color.DeviceRGB{clampUnit(r), clampUnit(g), clampUnit(b)}
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
