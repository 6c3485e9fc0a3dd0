package render

import (
	"context"
	"image"

	"github.com/rook-computer/fontcompare/internal/scroll"
)

// Frame is everything a presenter needs to show one animation frame.
type Frame struct {
	Surface  *Surface
	Viewport scroll.Viewport
	Banner   string
	QRCode   image.Image
	Caption  string
}

// Presenter shows the visible window of the comparison surface. It plays
// the role of the scroll container: the scroll position is applied here and
// never by the renderer.
type Presenter interface {
	Start(ctx context.Context) error
	Stop() error
	// ViewportWidth is the logical width of the visible window.
	ViewportWidth() float64
	Present(frame Frame)
}

// HeadlessPresenter keeps no output device; the surface is only reachable
// through the HTTP snapshots.
type HeadlessPresenter struct {
	Width float64
}

func (p *HeadlessPresenter) Start(ctx context.Context) error { return nil }
func (p *HeadlessPresenter) Stop() error                     { return nil }
func (p *HeadlessPresenter) Present(frame Frame)             {}

func (p *HeadlessPresenter) ViewportWidth() float64 {
	if p.Width <= 0 {
		return 800
	}
	return p.Width
}
