package render

import (
	"image"
	"image/draw"
	"image/png"
	"io"
	"math"
	"sync"

	"github.com/rook-computer/fontcompare/internal/render/layout"
)

// Dimensions describe one render pass. They are derived from the config on
// every pass and never stored back into it.
type Dimensions struct {
	LogicalWidth     float64
	LogicalHeight    float64
	DevicePixelRatio float64
}

// PhysicalSize is the backing raster size in device pixels.
func (d Dimensions) PhysicalSize() image.Point {
	dpr := normalizeDPR(d.DevicePixelRatio)
	return image.Pt(int(math.Ceil(d.LogicalWidth*dpr-1e-9)), int(math.Ceil(d.LogicalHeight*dpr-1e-9)))
}

// Surface is the pixel buffer the comparison is painted into. The render
// loop writes it; readers such as HTTP handlers take the read lock through
// the accessor methods.
type Surface struct {
	mu   sync.RWMutex
	img  *image.RGBA
	dims Dimensions
}

func NewSurface() *Surface {
	return &Surface{img: image.NewRGBA(image.Rect(0, 0, 0, 0)), dims: Dimensions{DevicePixelRatio: 1}}
}

func (s *Surface) Dimensions() Dimensions {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dims
}

// Bounds returns the physical bounds of the last rendered image.
func (s *Surface) Bounds() image.Rectangle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.img.Bounds()
}

// Snapshot returns a copy of the whole surface.
func (s *Surface) Snapshot() *image.RGBA {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := image.NewRGBA(s.img.Bounds())
	copy(out.Pix, s.img.Pix)
	return out
}

// Window copies the part of the surface visible through a viewport of
// viewWidth logical pixels scrolled to scrollX logical pixels. Areas past
// the content edges (elastic overscroll) are filled with the background.
func (s *Surface) Window(scrollX, viewWidth float64) *image.RGBA {
	s.mu.RLock()
	defer s.mu.RUnlock()
	dpr := normalizeDPR(s.dims.DevicePixelRatio)
	win := layout.Window(s.img.Bounds(), int(math.Round(scrollX*dpr)), int(math.Round(viewWidth*dpr)))

	out := image.NewRGBA(image.Rect(0, 0, win.Dx(), win.Dy()))
	draw.Draw(out, out.Bounds(), &image.Uniform{C: Background}, image.Point{}, draw.Src)
	draw.Draw(out, out.Bounds(), s.img, win.Min, draw.Src)
	return out
}

// WritePNG encodes the whole surface.
func (s *Surface) WritePNG(w io.Writer) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return png.Encode(w, s.img)
}

// lockFor resizes the backing image when needed and returns it with the
// write lock held; the caller must call unlock.
func (s *Surface) lockFor(dims Dimensions) (img *image.RGBA, unlock func()) {
	s.mu.Lock()
	size := dims.PhysicalSize()
	if s.img.Bounds().Size() != size {
		s.img = image.NewRGBA(image.Rectangle{Max: size})
	}
	s.dims = dims
	return s.img, s.mu.Unlock
}
