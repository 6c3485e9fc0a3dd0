package render

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"strings"
	"testing"

	"github.com/rook-computer/fontcompare/internal/fonts"
	"github.com/rook-computer/fontcompare/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
)

func newTestRenderer(dpr float64) (*ComparisonRenderer, *Surface) {
	return NewComparisonRenderer(fonts.NewRegistry(), fonts.FallbackFamily, dpr), NewSurface()
}

func TestRenderShortTextUsesFloorSize(t *testing.T) {
	r, surface := newTestRenderer(1)
	dims, err := r.Render(surface, state.DefaultRenderConfig())
	require.NoError(t, err)

	assert.Equal(t, Dimensions{LogicalWidth: 1000, LogicalHeight: 400, DevicePixelRatio: 1}, dims)
	assert.Equal(t, image.Rect(0, 0, 1000, 400), surface.Bounds())

	img := surface.Snapshot()
	assert.Equal(t, Background, img.RGBAAt(999, 10))
	assert.Equal(t, Background, img.RGBAAt(0, 399))
	// baseline = 400/2 + 64/4 = 216, guide covers rows 215 and 216.
	assert.Equal(t, GuideColor, img.RGBAAt(900, 215))
	assert.Equal(t, GuideColor, img.RGBAAt(900, 216))
	assert.Equal(t, Background, img.RGBAAt(900, 214))
	assert.Equal(t, Background, img.RGBAAt(900, 217))
}

func TestRenderScalesForDevicePixelRatio(t *testing.T) {
	r, surface := newTestRenderer(2)
	cfg := state.DefaultRenderConfig()
	cfg.FontSize = 128
	dims, err := r.Render(surface, cfg)
	require.NoError(t, err)

	assert.Equal(t, 2.0, dims.DevicePixelRatio)
	assert.Equal(t, image.Rect(0, 0, 2000, 800), surface.Bounds())
	// baseline = 200 + 32 = 232 logical, guide spans 231..233 logical.
	img := surface.Snapshot()
	for y := 462; y < 466; y++ {
		assert.Equal(t, GuideColor, img.RGBAAt(1990, y), "row %d", y)
	}
	assert.Equal(t, Background, img.RGBAAt(1990, 461))
	assert.Equal(t, Background, img.RGBAAt(1990, 466))
}

func TestRenderEmptyTextPaintsOnlyBackdrop(t *testing.T) {
	r, surface := newTestRenderer(1)
	cfg := state.DefaultRenderConfig()
	cfg.Text = ""
	_, err := r.Render(surface, cfg)
	require.NoError(t, err)

	img := surface.Snapshot()
	for y := 0; y < 400; y++ {
		want := Background
		if y == 215 || y == 216 {
			want = GuideColor
		}
		for x := 0; x < 1000; x += 37 {
			if img.RGBAAt(x, y) != want {
				t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, img.RGBAAt(x, y), want)
			}
		}
	}
}

func TestRenderPaintsGlyphsNearTheInset(t *testing.T) {
	r, surface := newTestRenderer(1)
	cfg := state.DefaultRenderConfig()
	cfg.Text = "MMMM"
	_, err := r.Render(surface, cfg)
	require.NoError(t, err)

	img := surface.Snapshot()
	painted := 0
	for y := 150; y < 215; y++ {
		for x := 0; x < 20; x++ {
			assert.Equal(t, Background, img.RGBAAt(x, y), "nothing left of the inset")
		}
		for x := 20; x < 300; x++ {
			if img.RGBAAt(x, y) != Background {
				painted++
			}
		}
	}
	assert.Greater(t, painted, 500)
}

func TestRenderIsIdempotent(t *testing.T) {
	r, surface := newTestRenderer(1.5)
	a := state.DefaultRenderConfig()
	a.Text = "Quartz glyph jocks"
	a.BaselineOffset = 12
	b := a
	b.FontSize = 240
	b.TopFontScale = 0.7

	_, err := r.Render(surface, a)
	require.NoError(t, err)
	first := surface.Snapshot()

	_, err = r.Render(surface, a)
	require.NoError(t, err)
	assert.Equal(t, first.Pix, surface.Snapshot().Pix)

	_, err = r.Render(surface, b)
	require.NoError(t, err)
	assert.NotEqual(t, first.Bounds(), surface.Bounds())

	_, err = r.Render(surface, a)
	require.NoError(t, err)
	assert.Equal(t, first.Pix, surface.Snapshot().Pix)
}

func TestRenderLongTextWidensSurface(t *testing.T) {
	r, surface := newTestRenderer(1)
	cfg := state.DefaultRenderConfig()
	cfg.Text = strings.Repeat("Sphinx of black quartz ", 4)
	cfg.FontSize = 400
	dims, err := r.Render(surface, cfg)
	require.NoError(t, err)
	assert.Greater(t, dims.LogicalWidth, 1000.0)
	assert.Equal(t, dims.PhysicalSize(), surface.Bounds().Size())
}

func TestRenderCapsSurfaceWidth(t *testing.T) {
	r, surface := newTestRenderer(1)
	cfg := state.DefaultRenderConfig()
	cfg.Text = strings.Repeat("W", 2000)
	cfg.FontSize = 400
	cfg.TopFontScale = 1.5
	dims, err := r.Render(surface, cfg)
	require.NoError(t, err)

	assert.Equal(t, image.Pt(MaxPhysicalWidth, 400), dims.PhysicalSize())
	assert.Equal(t, dims.PhysicalSize(), surface.Bounds().Size())
	assert.Equal(t, float64(MaxPhysicalWidth), dims.LogicalWidth)
}

func TestRenderFallsBackForUnreadyFont(t *testing.T) {
	r, surface := newTestRenderer(1)
	fallback := state.DefaultRenderConfig()
	fallback.TopFont = state.FontRef{Name: fonts.FallbackFamily, Ready: true}
	_, err := r.Render(surface, fallback)
	require.NoError(t, err)
	want := surface.Snapshot()

	for _, ref := range []state.FontRef{{Name: "Go Mono", Ready: false}, {Name: "Unregistered", Ready: true}} {
		cfg := state.DefaultRenderConfig()
		cfg.TopFont = ref
		_, err := r.Render(surface, cfg)
		require.NoError(t, err)
		assert.Equal(t, want.Pix, surface.Snapshot().Pix, "%+v", ref)
	}
}

type failingMeasure struct{ *fonts.Registry }

func (failingMeasure) Advance(string, float64, string) (float64, error) {
	return 0, errors.New("boom")
}

func TestRenderSurvivesMeasurementFailure(t *testing.T) {
	r := NewComparisonRenderer(failingMeasure{fonts.NewRegistry()}, fonts.FallbackFamily, 1)
	surface := NewSurface()
	cfg := state.DefaultRenderConfig()
	cfg.Text = strings.Repeat("W", 200)

	dims, err := r.Render(surface, cfg)
	assert.True(t, errors.Is(err, ErrMeasurement))
	assert.Equal(t, 1000.0, dims.LogicalWidth)
	assert.Equal(t, Background, surface.Snapshot().RGBAAt(500, 399))
}

type noFaces struct{ *fonts.Registry }

func (noFaces) Face(string, float64) (font.Face, error) { return nil, errors.New("no faces") }

func TestRenderSurvivesMissingFaces(t *testing.T) {
	r := NewComparisonRenderer(noFaces{fonts.NewRegistry()}, fonts.FallbackFamily, 1)
	surface := NewSurface()
	_, err := r.Render(surface, state.DefaultRenderConfig())
	assert.Error(t, err)
	assert.Equal(t, image.Rect(0, 0, 1000, 400), surface.Bounds())
	assert.Equal(t, Background, surface.Snapshot().RGBAAt(30, 180))
}

func TestSurfaceWindowAndPNG(t *testing.T) {
	r, surface := newTestRenderer(2)
	_, err := r.Render(surface, state.DefaultRenderConfig())
	require.NoError(t, err)

	win := surface.Window(200, 300)
	assert.Equal(t, image.Rect(0, 0, 600, 800), win.Bounds())

	over := surface.Window(900, 300)
	assert.Equal(t, Background, over.RGBAAt(599, 10), "past the right edge shows the backdrop")
	assert.Equal(t, GuideColor, over.RGBAAt(10, 430))

	var buf bytes.Buffer
	require.NoError(t, surface.WritePNG(&buf))
	decoded, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, surface.Bounds(), decoded.Bounds())
}

func TestTopTextOpacity(t *testing.T) {
	c := withOpacity(TopTextColor, TopTextOpacity)
	assert.Equal(t, uint8(163), c.A)
	assert.Equal(t, TopTextColor.R, c.R)
}
