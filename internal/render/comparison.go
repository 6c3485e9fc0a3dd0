package render

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/rook-computer/fontcompare/internal/state"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// FontSource is what the renderer needs from the font registry.
type FontSource interface {
	Measurer
	Has(family string) bool
	Face(family string, sizePx float64) (font.Face, error)
}

// ComparisonRenderer paints the two overlaid text samples onto a Surface.
// It never looks at the scroll position: the whole strip is painted and
// panning is left to whoever presents the surface.
type ComparisonRenderer struct {
	Fonts            FontSource
	Fallback         string
	DevicePixelRatio float64
}

func NewComparisonRenderer(fonts FontSource, fallback string, dpr float64) *ComparisonRenderer {
	return &ComparisonRenderer{Fonts: fonts, Fallback: fallback, DevicePixelRatio: dpr}
}

// Render fully overwrites surface with the comparison for cfg and returns
// the dimensions of the pass. The returned error is informational only
// (measurement or face failures that were degraded to fallbacks); the
// surface is always painted.
func (r *ComparisonRenderer) Render(surface *Surface, cfg state.RenderConfig) (Dimensions, error) {
	dpr := normalizeDPR(r.DevicePixelRatio)
	bottomFamily := r.family(cfg.BottomFont)
	topFamily := r.family(cfg.TopFont)
	bottomSize := float64(cfg.FontSize)
	topSize := bottomSize * cfg.TopFontScale

	width, measureErr := ResolveWidth(r.Fonts, WidthRequest{
		Text:             cfg.Text,
		FontSize:         bottomSize,
		TopFontScale:     cfg.TopFontScale,
		BottomFont:       bottomFamily,
		TopFont:          topFamily,
		DevicePixelRatio: dpr,
	})
	dims := Dimensions{LogicalWidth: width / dpr, LogicalHeight: SurfaceHeight, DevicePixelRatio: dpr}

	img, unlock := surface.lockFor(dims)
	defer unlock()

	draw.Draw(img, img.Bounds(), &image.Uniform{C: Background}, image.Point{}, draw.Src)

	baseline := dims.LogicalHeight/2 + bottomSize/4
	drawGuide(img, baseline, dpr)

	bottomErr := r.drawText(img, cfg.Text, bottomFamily, bottomSize, baseline, BottomTextColor, dpr)
	topErr := r.drawText(img, cfg.Text, topFamily, topSize, baseline+float64(cfg.BaselineOffset), withOpacity(TopTextColor, TopTextOpacity), dpr)

	return dims, errors.Join(measureErr, bottomErr, topErr)
}

// family picks the registered family for a slot, or the fallback when the
// slot's font is not usable yet.
func (r *ComparisonRenderer) family(ref state.FontRef) string {
	if ref.Ready && r.Fonts != nil && r.Fonts.Has(ref.Name) {
		return ref.Name
	}
	return r.Fallback
}

// drawGuide strokes the baseline guide, GuideWidth logical px thick and
// centered on baseline.
func drawGuide(img *image.RGBA, baseline, dpr float64) {
	top := int(math.Round((baseline - GuideWidth/2) * dpr))
	bottom := int(math.Round((baseline + GuideWidth/2) * dpr))
	if bottom <= top {
		bottom = top + 1
	}
	rect := image.Rect(img.Bounds().Min.X, top, img.Bounds().Max.X, bottom).Intersect(img.Bounds())
	draw.Draw(img, rect, &image.Uniform{C: GuideColor}, image.Point{}, draw.Src)
}

func (r *ComparisonRenderer) drawText(img *image.RGBA, text, family string, sizePx, baseline float64, c color.Color, dpr float64) error {
	if text == "" || r.Fonts == nil {
		return nil
	}
	face, err := r.Fonts.Face(family, sizePx*dpr)
	if err != nil && family != r.Fallback {
		var fallbackErr error
		face, fallbackErr = r.Fonts.Face(r.Fallback, sizePx*dpr)
		if fallbackErr != nil {
			return errors.Join(err, fallbackErr)
		}
	} else if err != nil {
		return err
	}

	drawString(img, face, image.NewUniform(c), fixed.Point26_6{
		X: fixed.Int26_6(math.Round(TextInset * dpr * 64)),
		Y: fixed.Int26_6(math.Round(baseline * dpr * 64)),
	}, text)
	return err
}

// drawString is font.Drawer.DrawString that stops at the right edge of img.
func drawString(img *image.RGBA, face font.Face, src image.Image, dot fixed.Point26_6, text string) {
	maxX := fixed.I(img.Bounds().Max.X)
	prev := rune(-1)
	for _, c := range text {
		if prev >= 0 {
			dot.X += face.Kern(prev, c)
		}
		if dot.X >= maxX {
			return
		}
		dr, mask, maskp, advance, ok := face.Glyph(dot, c)
		if !ok {
			continue
		}
		draw.DrawMask(img, dr, src, image.Point{}, mask, maskp, draw.Over)
		dot.X += advance
		prev = c
	}
}

func withOpacity(c color.RGBA, opacity float64) color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: uint8(math.Round(255 * opacity))}
}
