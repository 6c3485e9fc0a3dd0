package render

import (
	"errors"
	"fmt"
	"math"
)

// ErrMeasurement marks a failed text measurement. It is never fatal: the
// width falls back to the minimum strip width.
var ErrMeasurement = errors.New("text measurement failed")

// Measurer reports the horizontal advance of text, in pixels, set in a
// registered font family at sizePx pixels per em.
type Measurer interface {
	Advance(family string, sizePx float64, text string) (float64, error)
}

type WidthRequest struct {
	Text             string
	FontSize         float64
	TopFontScale     float64
	BottomFont       string
	TopFont          string
	DevicePixelRatio float64
}

// ResolveWidth returns the physical width the comparison strip needs to
// show Text in both fonts plus padding, never less than the minimum strip
// width and never more than MaxPhysicalWidth. A non-nil error wraps
// ErrMeasurement; the width is usable either way.
func ResolveWidth(m Measurer, req WidthRequest) (float64, error) {
	dpr := normalizeDPR(req.DevicePixelRatio)
	bottom, bottomErr := advance(m, req.BottomFont, req.FontSize, req.Text)
	top, topErr := advance(m, req.TopFont, req.FontSize*req.TopFontScale, req.Text)

	required := math.Max(bottom, top)*dpr + HorizontalPadding*dpr
	width := math.Min(math.Max(MinSurfaceWidth*dpr, required), MaxPhysicalWidth)
	return width, errors.Join(bottomErr, topErr)
}

func advance(m Measurer, family string, sizePx float64, text string) (float64, error) {
	if text == "" {
		return 0, nil
	}
	if m == nil {
		return 0, fmt.Errorf("%w: no measurer", ErrMeasurement)
	}
	w, err := m.Advance(family, sizePx, text)
	if err != nil {
		return 0, fmt.Errorf("%w: %q at %.2fpx: %v", ErrMeasurement, family, sizePx, err)
	}
	if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
		return 0, fmt.Errorf("%w: %q returned %v", ErrMeasurement, family, w)
	}
	return w, nil
}

func normalizeDPR(dpr float64) float64 {
	if !(dpr > 0) || math.IsInf(dpr, 0) {
		return 1
	}
	return dpr
}
